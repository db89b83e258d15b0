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

type assessmentRepository struct {
	db *sqlx.DB
}

func NewAssessmentRepository(db *sqlx.DB) repository.AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *model.Assessment) error {
	query := `
		INSERT INTO assessments (id, clinician_id, patient_id, assessment_type, assessment_date, questions_and_answers, final_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	assessment.CreatedAt = time.Now()
	assessment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		assessment.ID,
		assessment.ClinicianID,
		assessment.PatientID,
		assessment.AssessmentType,
		assessment.AssessmentDate,
		[]byte(assessment.QuestionsAndAnswers),
		assessment.FinalScore,
		assessment.CreatedAt,
		assessment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

func (r *assessmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	query := `SELECT * FROM assessments WHERE id = $1`
	var assessment model.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &assessment, nil
}

func (r *assessmentRepository) Update(ctx context.Context, assessment *model.Assessment) error {
	query := `
		UPDATE assessments
		SET patient_id = $1, assessment_type = $2, assessment_date = $3, questions_and_answers = $4, final_score = $5, updated_at = $6
		WHERE id = $7
	`
	assessment.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		assessment.PatientID,
		assessment.AssessmentType,
		assessment.AssessmentDate,
		[]byte(assessment.QuestionsAndAnswers),
		assessment.FinalScore,
		assessment.UpdatedAt,
		assessment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *assessmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM assessments WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// filterClauses appends the optional assessment filters to the WHERE
// clause. The patient filter matches the referenced patient's full name,
// which is why listing joins the patients table.
func filterClauses(query string, args []interface{}, filters *model.AssessmentFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	if filters.AssessmentType != "" {
		query += fmt.Sprintf(" AND a.assessment_type = $%d", len(args)+1)
		args = append(args, filters.AssessmentType)
	}
	if filters.PatientName != "" {
		query += fmt.Sprintf(" AND p.full_name = $%d", len(args)+1)
		args = append(args, filters.PatientName)
	}
	if filters.DatePerformed != nil {
		query += fmt.Sprintf(" AND a.assessment_date = $%d", len(args)+1)
		args = append(args, *filters.DatePerformed)
	}
	return query, args
}

func (r *assessmentRepository) Count(ctx context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM assessments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.clinician_id = $1
	`
	args := []interface{}{clinicianID}
	query, args = filterClauses(query, args, filters)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

func (r *assessmentRepository) List(ctx context.Context, clinicianID uuid.UUID, filters *model.AssessmentFilters, opts repository.ListOptions) ([]*model.AssessmentListItem, error) {
	query := `
		SELECT a.id, a.assessment_type, a.patient_id, a.assessment_date, a.questions_and_answers, a.final_score
		FROM assessments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.clinician_id = $1
	`
	args := []interface{}{clinicianID}
	query, args = filterClauses(query, args, filters)

	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}

	// opts.Column comes from the service allow list, never the caller.
	query += fmt.Sprintf(" ORDER BY a.%s %s LIMIT $%d OFFSET $%d",
		opts.Column, direction, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	assessments := []*model.AssessmentListItem{}
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}
