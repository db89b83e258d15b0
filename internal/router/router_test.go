package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/assessment-api/internal/handler"
	assessmenthandler "github.com/jwalitptl/assessment-api/internal/handler/assessment"
	authhandler "github.com/jwalitptl/assessment-api/internal/handler/auth"
	patienthandler "github.com/jwalitptl/assessment-api/internal/handler/patient"
	"github.com/jwalitptl/assessment-api/internal/middleware"
	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/repository"
	assessmentsvc "github.com/jwalitptl/assessment-api/internal/service/assessment"
	authsvc "github.com/jwalitptl/assessment-api/internal/service/auth"
	patientsvc "github.com/jwalitptl/assessment-api/internal/service/patient"
	"github.com/jwalitptl/assessment-api/pkg/auth"
	"github.com/jwalitptl/assessment-api/pkg/metrics"
	"github.com/jwalitptl/assessment-api/pkg/security"
)

// memStore is a single in-memory backing store shared by the repository
// fakes so cross-repository lookups (assessment -> patient) resolve.
type memStore struct {
	clinicians  map[uuid.UUID]*model.Clinician
	patients    map[uuid.UUID]*model.Patient
	assessments map[uuid.UUID]*model.Assessment
}

func newMemStore() *memStore {
	return &memStore{
		clinicians:  make(map[uuid.UUID]*model.Clinician),
		patients:    make(map[uuid.UUID]*model.Patient),
		assessments: make(map[uuid.UUID]*model.Assessment),
	}
}

type memClinicianRepo struct{ store *memStore }

func (r *memClinicianRepo) Create(_ context.Context, c *model.Clinician) error {
	r.store.clinicians[c.ID] = c
	return nil
}

func (r *memClinicianRepo) Get(_ context.Context, id uuid.UUID) (*model.Clinician, error) {
	if c, ok := r.store.clinicians[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memClinicianRepo) GetByUsername(_ context.Context, username string) (*model.Clinician, error) {
	for _, c := range r.store.clinicians {
		if c.Username == username {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memPatientRepo struct{ store *memStore }

func (r *memPatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.store.patients[p.ID] = p
	return nil
}

func (r *memPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := r.store.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memPatientRepo) Update(_ context.Context, p *model.Patient) error {
	if _, ok := r.store.patients[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.store.patients[p.ID] = p
	return nil
}

func (r *memPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.patients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.patients, id)
	return nil
}

func (r *memPatientRepo) Count(_ context.Context, clinicianID uuid.UUID) (int, error) {
	count := 0
	for _, p := range r.store.patients {
		if p.ClinicianID == clinicianID {
			count++
		}
	}
	return count, nil
}

func (r *memPatientRepo) List(_ context.Context, clinicianID uuid.UUID, opts repository.ListOptions) ([]*model.PatientListItem, error) {
	items := []*model.PatientListItem{}
	for _, p := range r.store.patients {
		if p.ClinicianID != clinicianID {
			continue
		}
		items = append(items, &model.PatientListItem{
			ID:          p.ID,
			FullName:    p.FullName,
			Gender:      p.Gender,
			PhoneNumber: p.PhoneNumber,
			DateOfBirth: p.DateOfBirth,
			Address:     p.Address,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch opts.Column {
		case "full_name":
			less = items[i].FullName < items[j].FullName
		default:
			less = items[i].ID.String() < items[j].ID.String()
		}
		if opts.Desc {
			return !less
		}
		return less
	})
	if opts.Offset >= len(items) {
		return []*model.PatientListItem{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[opts.Offset:end], nil
}

type memAssessmentRepo struct{ store *memStore }

func (r *memAssessmentRepo) Create(_ context.Context, a *model.Assessment) error {
	r.store.assessments[a.ID] = a
	return nil
}

func (r *memAssessmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	if a, ok := r.store.assessments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memAssessmentRepo) Update(_ context.Context, a *model.Assessment) error {
	if _, ok := r.store.assessments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	r.store.assessments[a.ID] = a
	return nil
}

func (r *memAssessmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.assessments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.assessments, id)
	return nil
}

func (r *memAssessmentRepo) matches(a *model.Assessment, clinicianID uuid.UUID, filters *model.AssessmentFilters) bool {
	if a.ClinicianID != clinicianID {
		return false
	}
	if filters == nil {
		return true
	}
	if filters.AssessmentType != "" && a.AssessmentType != filters.AssessmentType {
		return false
	}
	if filters.PatientName != "" {
		p, ok := r.store.patients[a.PatientID]
		if !ok || p.FullName != filters.PatientName {
			return false
		}
	}
	if filters.DatePerformed != nil && !a.AssessmentDate.Equal(filters.DatePerformed.Time) {
		return false
	}
	return true
}

func (r *memAssessmentRepo) Count(_ context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters) (int, error) {
	count := 0
	for _, a := range r.store.assessments {
		if r.matches(a, clinicianID, filters) {
			count++
		}
	}
	return count, nil
}

func (r *memAssessmentRepo) List(_ context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters, opts repository.ListOptions) ([]*model.AssessmentListItem, error) {
	items := []*model.AssessmentListItem{}
	for _, a := range r.store.assessments {
		if !r.matches(a, clinicianID, filters) {
			continue
		}
		items = append(items, &model.AssessmentListItem{
			ID:                  a.ID,
			AssessmentType:      a.AssessmentType,
			PatientID:           a.PatientID,
			AssessmentDate:      a.AssessmentDate,
			QuestionsAndAnswers: a.QuestionsAndAnswers,
			FinalScore:          a.FinalScore,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		less := items[i].AssessmentDate.Before(items[j].AssessmentDate.Time)
		if opts.Desc {
			return !less
		}
		return less
	})
	if opts.Offset >= len(items) {
		return []*model.AssessmentListItem{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[opts.Offset:end], nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	clinicianRepo := &memClinicianRepo{store: store}
	patientRepo := &memPatientRepo{store: store}
	assessmentRepo := &memAssessmentRepo{store: store}

	jwtSvc := auth.NewJWTService(auth.Config{Secret: "test", RefreshSecret: "test-refresh"})
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	authService := authsvc.NewService(clinicianRepo, jwtSvc, hasher)
	patientService := patientsvc.NewService(patientRepo, nil)
	assessmentService := assessmentsvc.NewService(assessmentRepo, patientRepo, nil)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("test")
	require.NoError(t, m.Register(registry))

	r := NewRouter(
		Config{CORSConfig: middleware.DefaultCORSConfig()},
		middleware.NewAuthMiddleware(authService),
		authhandler.NewHandler(authService),
		patienthandler.NewHandler(patientService),
		assessmenthandler.NewHandler(assessmentService),
		handler.NewHandler(nil, registry),
		m,
	)
	r.Setup()
	return r.Engine(), store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func registerClinician(t *testing.T, engine *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/api/v1/register", "", gin.H{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "pw123",
		"password2": "pw123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tokens model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

func patientBody(name string) gin.H {
	return gin.H{
		"full_name":     name,
		"gender":        "F",
		"phone_number":  "555-0101",
		"date_of_birth": "1980-05-01",
		"address":       "12 Elm St",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	engine, _ := newTestRouter(t)
	registerClinician(t, engine, "drsmith")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/token", "", gin.H{
		"username": "drsmith",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/token", "", gin.H{
		"username": "drsmith",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/register", "", gin.H{
		"username":  "drsmith",
		"email":     "drsmith@example.com",
		"password":  "pw123",
		"password2": "pw124",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"password": "Passwords must match"}, body)
}

func TestRecordEndpointsRequireAuth(t *testing.T) {
	engine, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/patient_list"},
		{http.MethodPost, "/api/v1/patients"},
		{http.MethodPut, "/api/v1/patients/" + uuid.NewString()},
		{http.MethodDelete, "/api/v1/patients/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/assessments_list"},
		{http.MethodPost, "/api/v1/assessments"},
		{http.MethodDelete, "/api/v1/assessments/" + uuid.NewString()},
	}
	for _, p := range paths {
		w := doJSON(t, engine, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestPatientCRUD(t *testing.T) {
	engine, store := newTestRouter(t)
	token := registerClinician(t, engine, "drsmith")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/patients", token, patientBody("Alice"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Alice", created.FullName)
	assert.NotEqual(t, uuid.Nil, created.ClinicianID)

	// Update.
	w = doJSON(t, engine, http.MethodPut, "/api/v1/patients/"+created.ID.String(), token, patientBody("Alice B"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Alice B", store.patients[created.ID].FullName)

	// Update against an unknown id is an empty 404.
	w = doJSON(t, engine, http.MethodPut, "/api/v1/patients/"+uuid.NewString(), token, patientBody("X"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())

	// Delete.
	w = doJSON(t, engine, http.MethodDelete, "/api/v1/patients/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.patients)
}

func TestPatientValidationErrorShape(t *testing.T) {
	engine, _ := newTestRouter(t)
	token := registerClinician(t, engine, "drsmith")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/patients", token, gin.H{"full_name": "Alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "This field is required", body["gender"])
	assert.Equal(t, "This field is required", body["address"])
	assert.NotContains(t, body, "full_name")
}

func TestPatientListPagination(t *testing.T) {
	engine, _ := newTestRouter(t)
	token := registerClinician(t, engine, "drsmith")

	for i := 0; i < 7; i++ {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/patients", token, patientBody(fmt.Sprintf("Patient %d", i)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/patient_list?page=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page model.PatientList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 7, page.Count)
	assert.Equal(t, 2, page.NumPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Patients, 2)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	// Out-of-range and non-integer pages clamp to a valid page.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/patient_list?page=99", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.CurrentPage)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/patient_list?page=abc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.CurrentPage)
}

func TestPatientListRejectsUnknownSort(t *testing.T) {
	engine, _ := newTestRouter(t)
	token := registerClinician(t, engine, "drsmith")

	w := doJSON(t, engine, http.MethodGet, "/api/v1/patient_list?sort_by=password_hash", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "sort_by")
}

func TestCrossClinicianIsolation(t *testing.T) {
	engine, _ := newTestRouter(t)
	ownerToken := registerClinician(t, engine, "drsmith")
	otherToken := registerClinician(t, engine, "drjones")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/patients", ownerToken, patientBody("Alice"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// The other clinician's listing never shows it.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/patient_list", otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.PatientList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Count)

	// Mutations against it are forbidden.
	w = doJSON(t, engine, http.MethodDelete, "/api/v1/patients/"+created.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, engine, http.MethodPut, "/api/v1/patients/"+created.ID.String(), otherToken, patientBody("Hijack"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An assessment referencing the other clinician's patient is rejected
	// as a field error.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/assessments", otherToken, gin.H{
		"patient":               created.ID.String(),
		"assessment_type":       "Nutrition",
		"assessment_date":       "2024-03-10",
		"questions_and_answers": gin.H{"q1": "a1"},
		"final_score":           7.5,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "patient")
}

func TestAssessmentListFilters(t *testing.T) {
	engine, _ := newTestRouter(t)
	token := registerClinician(t, engine, "drsmith")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/patients", token, patientBody("Bob"))
	require.Equal(t, http.StatusCreated, w.Code)
	var bob model.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bob))

	types := []string{"Nutrition", "Nutrition", "Mental Health"}
	for i, at := range types {
		w = doJSON(t, engine, http.MethodPost, "/api/v1/assessments", token, gin.H{
			"patient":               bob.ID.String(),
			"assessment_type":       at,
			"assessment_date":       fmt.Sprintf("2024-03-0%d", i+1),
			"questions_and_answers": gin.H{"q1": "a1"},
			"final_score":           5.0,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/assessments_list?assessment_type=Nutrition&patient=Bob", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.AssessmentList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Count)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/assessments_list?date_performed=2024-03-03", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Mental Health", page.Assessments[0].AssessmentType)

	// Malformed filter dates are rejected, not ignored.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/assessments_list?date_performed=03/03/2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, engine, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, engine, http.MethodGet, "/api/v1/health/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
