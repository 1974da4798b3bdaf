package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// DoubtRepository handles persistence of doubt threads.
type DoubtRepository struct {
	db *sqlx.DB
}

// NewDoubtRepository constructs the repository.
func NewDoubtRepository(db *sqlx.DB) *DoubtRepository {
	return &DoubtRepository{db: db}
}

const doubtColumns = `id, student_id, subject, doubt_text, status, response_text, resolved_by, submitted_on, resolved_on`

// Create persists a new open doubt and fills in the generated ID.
func (r *DoubtRepository) Create(ctx context.Context, doubt *models.Doubt) error {
	if doubt.Status == "" {
		doubt.Status = models.DoubtOpen
	}
	if doubt.SubmittedOn.IsZero() {
		doubt.SubmittedOn = time.Now().UTC()
	}
	const query = `INSERT INTO doubts (student_id, subject, doubt_text, status, submitted_on)
        VALUES (:student_id, :subject, :doubt_text, :status, :submitted_on)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, doubt)
	if err != nil {
		return fmt.Errorf("create doubt: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&doubt.ID); err != nil {
			return fmt.Errorf("scan doubt id: %w", err)
		}
	}
	return nil
}

// FindByID returns a doubt by its ID.
func (r *DoubtRepository) FindByID(ctx context.Context, id int64) (*models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts WHERE id = $1`, doubtColumns)
	var doubt models.Doubt
	if err := r.db.GetContext(ctx, &doubt, query, id); err != nil {
		return nil, err
	}
	return &doubt, nil
}

// ListByStudent returns a student's doubts, newest first.
func (r *DoubtRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts WHERE student_id = $1 ORDER BY submitted_on DESC`, doubtColumns)
	var doubts []models.Doubt
	if err := r.db.SelectContext(ctx, &doubts, query, studentID); err != nil {
		return nil, fmt.Errorf("list student doubts: %w", err)
	}
	return doubts, nil
}

// ListOpen returns open doubts, oldest first so responders work the backlog.
func (r *DoubtRepository) ListOpen(ctx context.Context) ([]models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts WHERE status = 'open' ORDER BY submitted_on`, doubtColumns)
	var doubts []models.Doubt
	if err := r.db.SelectContext(ctx, &doubts, query); err != nil {
		return nil, fmt.Errorf("list open doubts: %w", err)
	}
	return doubts, nil
}

// ListOpenForSubjects returns open doubts whose subject is in the given set.
func (r *DoubtRepository) ListOpenForSubjects(ctx context.Context, subjects []string) ([]models.Doubt, error) {
	if len(subjects) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM doubts WHERE status = 'open' AND subject IN (?) ORDER BY submitted_on`, doubtColumns), subjects)
	if err != nil {
		return nil, fmt.Errorf("build doubt query: %w", err)
	}
	query = r.db.Rebind(query)
	var doubts []models.Doubt
	if err := r.db.SelectContext(ctx, &doubts, query, args...); err != nil {
		return nil, fmt.Errorf("list subject doubts: %w", err)
	}
	return doubts, nil
}

// Answer transitions a doubt from open to answered, recording the response.
// It returns false when the doubt was not open, leaving the row untouched.
func (r *DoubtRepository) Answer(ctx context.Context, id int64, responderID int64, responseText string, resolvedOn time.Time) (bool, error) {
	const query = `UPDATE doubts SET status = 'answered', response_text = $2, resolved_by = $3, resolved_on = $4
        WHERE id = $1 AND status = 'open'`
	res, err := r.db.ExecContext(ctx, query, id, responseText, responderID, resolvedOn)
	if err != nil {
		return false, fmt.Errorf("answer doubt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inspect doubt update: %w", err)
	}
	return affected > 0, nil
}
