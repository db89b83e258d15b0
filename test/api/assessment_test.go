package api_test

import (
	"net/http"
	"net/url"
	"testing"
)

func createPatient(t *testing.T, token, name string) string {
	t.Helper()
	resp := makeRequest(t, http.MethodPost, "/patients", patientBody(name), token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create patient: HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
	return resp.getString("id")
}

func assessmentBody(patientID, assessmentType, date string) map[string]interface{} {
	return map[string]interface{}{
		"patient":               patientID,
		"assessment_type":       assessmentType,
		"assessment_date":       date,
		"questions_and_answers": map[string]string{"q1": "a1"},
		"final_score":           7.5,
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	token := registerClinician(t)
	patientID := createPatient(t, token, uniqueName("Bob"))

	resp := makeRequest(t, http.MethodPost, "/assessments", assessmentBody(patientID, "Nutrition", "2024-03-10"), token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create assessment: HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
	assessmentID := resp.getString("id")
	if assessmentID == "" {
		t.Fatal("create response missing id")
	}

	resp = makeRequest(t, http.MethodPut, "/assessments/"+assessmentID, assessmentBody(patientID, "Mental Health", "2024-03-11"), token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update assessment: HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}

	resp = makeRequest(t, http.MethodGet, "/assessments_list?assessment_type="+url.QueryEscape("Mental Health"), nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list assessments: HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
	if count, _ := resp.Body["count"].(float64); count != 1 {
		t.Fatalf("expected 1 filtered assessment, got %v", resp.Body["count"])
	}

	resp = makeRequest(t, http.MethodDelete, "/assessments/"+assessmentID, nil, token)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete assessment: HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
}

func TestAssessmentInvalidType(t *testing.T) {
	token := registerClinician(t)
	patientID := createPatient(t, token, uniqueName("Bob"))

	resp := makeRequest(t, http.MethodPost, "/assessments", assessmentBody(patientID, "Horoscope", "2024-03-10"), token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid type, got HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
	if resp.getString("assessment_type") == "" {
		t.Fatalf("expected field error for assessment_type, got %s", resp.RawBody)
	}
}

func TestAssessmentCrossClinicianPatient(t *testing.T) {
	ownerToken := registerClinician(t)
	otherToken := registerClinician(t)
	patientID := createPatient(t, ownerToken, uniqueName("Bob"))

	resp := makeRequest(t, http.MethodPost, "/assessments", assessmentBody(patientID, "Nutrition", "2024-03-10"), otherToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign patient, got HTTP %d: %s", resp.StatusCode, resp.RawBody)
	}
	if resp.getString("patient") == "" {
		t.Fatalf("expected field error for patient, got %s", resp.RawBody)
	}
}
