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

type clinicianRepository struct {
	db *sqlx.DB
}

func NewClinicianRepository(db *sqlx.DB) repository.ClinicianRepository {
	return &clinicianRepository{db: db}
}

func (r *clinicianRepository) Create(ctx context.Context, clinician *model.Clinician) error {
	query := `
		INSERT INTO clinicians (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	clinician.CreatedAt = time.Now()
	clinician.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		clinician.ID,
		clinician.Username,
		clinician.Email,
		clinician.PasswordHash,
		clinician.CreatedAt,
		clinician.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinician: %w", err)
	}
	return nil
}

func (r *clinicianRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	query := `SELECT * FROM clinicians WHERE id = $1`
	var clinician model.Clinician
	if err := r.db.GetContext(ctx, &clinician, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinician: %w", err)
	}
	return &clinician, nil
}

func (r *clinicianRepository) GetByUsername(ctx context.Context, username string) (*model.Clinician, error) {
	query := `SELECT * FROM clinicians WHERE username = $1`
	var clinician model.Clinician
	if err := r.db.GetContext(ctx, &clinician, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinician by username: %w", err)
	}
	return &clinician, nil
}
