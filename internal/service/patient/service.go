package patient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/repository"
	"github.com/jwalitptl/assessment-api/pkg/errors"
)

// patientSortColumns maps the sort_by query parameter to the column it
// orders by. Unknown keys are rejected with a validation error instead
// of reaching the database.
var patientSortColumns = map[string]string{
	"id":            "id",
	"full_name":     "full_name",
	"gender":        "gender",
	"phone_number":  "phone_number",
	"date_of_birth": "date_of_birth",
}

type Service struct {
	repo       repository.PatientRepository
	outboxRepo repository.OutboxRepository
}

func NewService(repo repository.PatientRepository, outboxRepo repository.OutboxRepository) *Service {
	return &Service{repo: repo, outboxRepo: outboxRepo}
}

// List returns one page of the caller's patients with pagination
// metadata. The result only ever contains records owned by clinicianID.
func (s *Service) List(ctx context.Context, clinicianID uuid.UUID, q model.ListQuery) (*model.PatientList, error) {
	column, desc, err := resolveSort(q, "id")
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	page := model.Paginate(count, q.Page)
	patients, err := s.repo.List(ctx, clinicianID, repository.ListOptions{
		Column: column,
		Desc:   desc,
		Limit:  model.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return &model.PatientList{Patients: patients, Pagination: page}, nil
}

// Create stores a new patient owned by clinicianID. Any clinician value
// in the payload has already been dropped at the transfer layer.
func (s *Service) Create(ctx context.Context, clinicianID uuid.UUID, payload *model.PatientPayload) (*model.Patient, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		ID:          uuid.New(),
		ClinicianID: clinicianID,
		FullName:    payload.FullName,
		Gender:      payload.Gender,
		PhoneNumber: payload.PhoneNumber,
		DateOfBirth: payload.DateOfBirth,
		Address:     payload.Address,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.enqueueEvent(ctx, "PATIENT_CREATE", patient)
	return patient, nil
}

// Update replaces all writable fields of an existing patient. Only the
// owning clinician may update it.
func (s *Service) Update(ctx context.Context, clinicianID, id uuid.UUID, payload *model.PatientPayload) (*model.Patient, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if existing.ClinicianID != clinicianID {
		return nil, errors.Forbidden("patient belongs to another clinician", nil)
	}

	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	existing.FullName = payload.FullName
	existing.Gender = payload.Gender
	existing.PhoneNumber = payload.PhoneNumber
	existing.DateOfBirth = payload.DateOfBirth
	existing.Address = payload.Address

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.enqueueEvent(ctx, "PATIENT_UPDATE", existing)
	return existing, nil
}

// Delete removes a patient by id; cascades delete its assessments.
func (s *Service) Delete(ctx context.Context, clinicianID, id uuid.UUID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("patient", err)
		}
		return fmt.Errorf("failed to get patient: %w", err)
	}

	if existing.ClinicianID != clinicianID {
		return errors.Forbidden("patient belongs to another clinician", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.enqueueEvent(ctx, "PATIENT_DELETE", map[string]interface{}{"id": id})
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

func validatePayload(payload *model.PatientPayload) error {
	fields := make(map[string]string)
	if payload.FullName == "" {
		fields["full_name"] = "This field is required"
	}
	if payload.Gender == "" {
		fields["gender"] = "This field is required"
	}
	if payload.PhoneNumber == "" {
		fields["phone_number"] = "This field is required"
	}
	if payload.DateOfBirth.IsZero() {
		fields["date_of_birth"] = "This field is required"
	}
	if payload.Address == "" {
		fields["address"] = "This field is required"
	}
	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

func resolveSort(q model.ListQuery, defaultColumn string) (string, bool, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = defaultColumn
	}
	column, ok := patientSortColumns[sortBy]
	if !ok {
		return "", false, errors.ValidationField("sort_by", fmt.Sprintf("%q is not a sortable field", sortBy))
	}

	switch q.Order {
	case "", "asc":
		return column, false, nil
	case "desc":
		return column, true, nil
	default:
		return "", false, errors.ValidationField("order", "must be asc or desc")
	}
}
