package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, clinician_id, full_name, gender, phone_number, date_of_birth, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.ClinicianID,
		patient.FullName,
		patient.Gender,
		patient.PhoneNumber,
		patient.DateOfBirth,
		patient.Address,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET full_name = $1, gender = $2, phone_number = $3, date_of_birth = $4, address = $5, updated_at = $6
		WHERE id = $7
	`
	patient.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		patient.FullName,
		patient.Gender,
		patient.PhoneNumber,
		patient.DateOfBirth,
		patient.Address,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM patients WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patientRepository) Count(ctx context.Context, clinicianID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM patients WHERE clinician_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, clinicianID); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

func (r *patientRepository) List(ctx context.Context, clinicianID uuid.UUID, opts repository.ListOptions) ([]*model.PatientListItem, error) {
	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}

	// opts.Column comes from the service allow list, never the caller.
	query := fmt.Sprintf(`
		SELECT id, full_name, gender, phone_number, date_of_birth, address
		FROM patients
		WHERE clinician_id = $1
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, opts.Column, direction)

	patients := []*model.PatientListItem{}
	if err := r.db.SelectContext(ctx, &patients, query, clinicianID, opts.Limit, opts.Offset); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
