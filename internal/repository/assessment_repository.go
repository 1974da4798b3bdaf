package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AssessmentRepository handles persistence of assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// FindByID returns an assessment by its ID.
func (r *AssessmentRepository) FindByID(ctx context.Context, id int64) (*models.Assessment, error) {
	const query = `SELECT id, class_id, subject_name, teacher_id, title, description, assessment_date, max_score, weight, created_at
        FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// Exists checks for a duplicate (class, subject, title, date) assessment.
func (r *AssessmentRepository) Exists(ctx context.Context, classID int64, subjectName, title string, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM assessments WHERE class_id = $1 AND subject_name = $2 AND title = $3 AND assessment_date = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, subjectName, title, date); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assessment: %w", err)
	}
	return true, nil
}

// Create persists a new assessment and fills in the generated ID.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.CreatedOn.IsZero() {
		assessment.CreatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (class_id, subject_name, teacher_id, title, description, assessment_date, max_score, weight, created_at)
        VALUES (:class_id, :subject_name, :teacher_id, :title, :description, :assessment_date, :max_score, :weight, :created_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, assessment)
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&assessment.ID); err != nil {
			return fmt.Errorf("scan assessment id: %w", err)
		}
	}
	return nil
}

// ListByClassSubject returns a class+subject's assessments, optionally scoped
// to a date range.
func (r *AssessmentRepository) ListByClassSubject(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.Assessment, error) {
	query := `SELECT id, class_id, subject_name, teacher_id, title, description, assessment_date, max_score, weight, created_at
        FROM assessments WHERE class_id = $1 AND subject_name = $2`
	args := []interface{}{classID, subjectName}
	var conditions []string
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("assessment_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("assessment_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY assessment_date"

	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// DeleteCascade removes an assessment and all of its marks atomically.
func (r *AssessmentRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete assessment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE assessment_id = $1`, id); err != nil {
		return fmt.Errorf("delete assessment marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete assessment: %w", err)
	}
	return nil
}
