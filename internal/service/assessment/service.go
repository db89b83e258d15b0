package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/repository"
	"github.com/jwalitptl/assessment-api/pkg/errors"
)

var assessmentSortColumns = map[string]string{
	"id":              "id",
	"assessment_type": "assessment_type",
	"assessment_date": "assessment_date",
	"final_score":     "final_score",
}

type Service struct {
	repo        repository.AssessmentRepository
	patientRepo repository.PatientRepository
	outboxRepo  repository.OutboxRepository
}

func NewService(repo repository.AssessmentRepository, patientRepo repository.PatientRepository, outboxRepo repository.OutboxRepository) *Service {
	return &Service{repo: repo, patientRepo: patientRepo, outboxRepo: outboxRepo}
}

// List returns one page of the caller's assessments. Filters compose
// conjunctively; absent filters are no-ops.
func (s *Service) List(ctx context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters, q model.ListQuery) (*model.AssessmentList, error) {
	column, desc, err := resolveSort(q, "assessment_date")
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx, clinicianID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count assessments: %w", err)
	}

	page := model.Paginate(count, q.Page)
	assessments, err := s.repo.List(ctx, clinicianID, filters, repository.ListOptions{
		Column: column,
		Desc:   desc,
		Limit:  model.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	return &model.AssessmentList{Assessments: assessments, Pagination: page}, nil
}

// Create stores a new assessment owned by clinicianID. The referenced
// patient must exist and belong to the same clinician.
func (s *Service) Create(ctx context.Context, clinicianID uuid.UUID, payload *model.AssessmentPayload) (*model.Assessment, error) {
	if err := s.validatePayload(ctx, clinicianID, payload); err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		ID:                  uuid.New(),
		ClinicianID:         clinicianID,
		PatientID:           payload.PatientID,
		AssessmentType:      payload.AssessmentType,
		AssessmentDate:      payload.AssessmentDate,
		QuestionsAndAnswers: payload.QuestionsAndAnswers,
		FinalScore:          *payload.FinalScore,
	}

	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.enqueueEvent(ctx, "ASSESSMENT_CREATE", assessment)
	return assessment, nil
}

// Update replaces all writable fields of an existing assessment. Only
// the owning clinician may update it.
func (s *Service) Update(ctx context.Context, clinicianID, id uuid.UUID, payload *model.AssessmentPayload) (*model.Assessment, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("assessment", err)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if existing.ClinicianID != clinicianID {
		return nil, errors.Forbidden("assessment belongs to another clinician", nil)
	}

	if err := s.validatePayload(ctx, clinicianID, payload); err != nil {
		return nil, err
	}

	existing.PatientID = payload.PatientID
	existing.AssessmentType = payload.AssessmentType
	existing.AssessmentDate = payload.AssessmentDate
	existing.QuestionsAndAnswers = payload.QuestionsAndAnswers
	existing.FinalScore = *payload.FinalScore

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.enqueueEvent(ctx, "ASSESSMENT_UPDATE", existing)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, clinicianID, id uuid.UUID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("assessment", err)
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}

	if existing.ClinicianID != clinicianID {
		return errors.Forbidden("assessment belongs to another clinician", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	s.enqueueEvent(ctx, "ASSESSMENT_DELETE", map[string]interface{}{"id": id})
	return nil
}

func (s *Service) validatePayload(ctx context.Context, clinicianID uuid.UUID, payload *model.AssessmentPayload) error {
	fields := make(map[string]string)

	if payload.PatientID == uuid.Nil {
		fields["patient"] = "This field is required"
	}
	switch {
	case payload.AssessmentType == "":
		fields["assessment_type"] = "This field is required"
	case !model.ValidAssessmentType(payload.AssessmentType):
		fields["assessment_type"] = fmt.Sprintf("%q is not a valid choice", payload.AssessmentType)
	}
	if payload.AssessmentDate.IsZero() {
		fields["assessment_date"] = "This field is required"
	}
	if isEmptyJSON(payload.QuestionsAndAnswers) {
		fields["questions_and_answers"] = "This field is required"
	}
	if payload.FinalScore == nil {
		fields["final_score"] = "This field is required"
	}

	// Cross-clinician assessments are rejected: the referenced patient
	// must be owned by the caller.
	if payload.PatientID != uuid.Nil {
		patient, err := s.patientRepo.Get(ctx, payload.PatientID)
		if err != nil {
			if err == repository.ErrNotFound {
				fields["patient"] = "patient does not exist"
			} else {
				return fmt.Errorf("failed to get patient: %w", err)
			}
		} else if patient.ClinicianID != clinicianID {
			fields["patient"] = "patient belongs to another clinician"
		}
	}

	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.outboxRepo == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal outbox payload")
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to create outbox event")
	}
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func resolveSort(q model.ListQuery, defaultColumn string) (string, bool, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = defaultColumn
	}
	column, ok := assessmentSortColumns[sortBy]
	if !ok {
		return "", false, errors.ValidationField("sort_by", fmt.Sprintf("%q is not a sortable field", sortBy))
	}

	switch strings.ToLower(q.Order) {
	case "", "asc":
		return column, false, nil
	case "desc":
		return column, true, nil
	default:
		return "", false, errors.ValidationField("order", "must be asc or desc")
	}
}
