package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AssessmentType string

const (
	AssessmentTypeCognitive AssessmentType = "Cognitive Status"
	AssessmentTypePhysical  AssessmentType = "Physical Health"
	AssessmentTypeMental    AssessmentType = "Mental Health"
	AssessmentTypeNutrition AssessmentType = "Nutrition"
	AssessmentTypeOther     AssessmentType = "Other"
)

// AssessmentTypes lists the recognized assessment type labels.
var AssessmentTypes = []AssessmentType{
	AssessmentTypeCognitive,
	AssessmentTypePhysical,
	AssessmentTypeMental,
	AssessmentTypeNutrition,
	AssessmentTypeOther,
}

func ValidAssessmentType(s string) bool {
	for _, t := range AssessmentTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

type Assessment struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	ClinicianID         uuid.UUID       `db:"clinician_id" json:"clinician_id"`
	PatientID           uuid.UUID       `db:"patient_id" json:"patient"`
	AssessmentType      string          `db:"assessment_type" json:"assessment_type"`
	AssessmentDate      Date            `db:"assessment_date" json:"assessment_date"`
	QuestionsAndAnswers json.RawMessage `db:"questions_and_answers" json:"questions_and_answers"`
	FinalScore          float64         `db:"final_score" json:"final_score"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// AssessmentPayload is the wire representation accepted by the create
// and update endpoints.
type AssessmentPayload struct {
	PatientID           uuid.UUID       `json:"patient"`
	AssessmentType      string          `json:"assessment_type"`
	AssessmentDate      Date            `json:"assessment_date"`
	QuestionsAndAnswers json.RawMessage `json:"questions_and_answers"`
	FinalScore          *float64        `json:"final_score"`
}

// AssessmentFilters are the optional exact-match filters on the
// assessment listing. PatientName matches the referenced patient's
// full name, not its id. Filters compose conjunctively.
type AssessmentFilters struct {
	AssessmentType string
	PatientName    string
	DatePerformed  *Date
}

// AssessmentListItem is the fixed projection returned by the list
// endpoint; patient is the referenced patient's id.
type AssessmentListItem struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	AssessmentType      string          `db:"assessment_type" json:"assessment_type"`
	PatientID           uuid.UUID       `db:"patient_id" json:"patient"`
	AssessmentDate      Date            `db:"assessment_date" json:"assessment_date"`
	QuestionsAndAnswers json.RawMessage `db:"questions_and_answers" json:"questions_and_answers"`
	FinalScore          float64         `db:"final_score" json:"final_score"`
}

// AssessmentList is the paginated response body for the assessment listing.
type AssessmentList struct {
	Assessments []*AssessmentListItem `json:"assessments"`
	Pagination
}
