package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/assessment-api/internal/model"
)

// ErrNotFound is returned when a record id does not resolve.
var ErrNotFound = errors.New("record not found")

type ClinicianRepository interface {
	Create(ctx context.Context, clinician *model.Clinician) error
	Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error)
	GetByUsername(ctx context.Context, username string) (*model.Clinician, error)
}

// ListOptions describe how a scoped listing is ordered and sliced. Column
// must come from a service-level allow list, never raw caller input.
type ListOptions struct {
	Column string
	Desc   bool
	Limit  int
	Offset int
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, clinicianID uuid.UUID) (int, error)
	List(ctx context.Context, clinicianID uuid.UUID, opts ListOptions) ([]*model.PatientListItem, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *model.Assessment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	Update(ctx context.Context, assessment *model.Assessment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters) (int, error)
	List(ctx context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters, opts ListOptions) ([]*model.AssessmentListItem, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
