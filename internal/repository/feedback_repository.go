package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// FeedbackRepository handles persistence of feedback threads.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const feedbackColumns = `id, student_id, feedback_type, subject_name, teacher_id, class_id, rating, feedback_text,
        status, admin_response, responded_by, submitted_on, responded_on`

// Create persists a new pending feedback item and fills in the generated ID.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.Status == "" {
		feedback.Status = models.FeedbackPending
	}
	if feedback.SubmittedOn.IsZero() {
		feedback.SubmittedOn = time.Now().UTC()
	}
	const query = `INSERT INTO feedback (student_id, feedback_type, subject_name, teacher_id, class_id, rating, feedback_text, status, submitted_on)
        VALUES (:student_id, :feedback_type, :subject_name, :teacher_id, :class_id, :rating, :feedback_text, :status, :submitted_on)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, feedback)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&feedback.ID); err != nil {
			return fmt.Errorf("scan feedback id: %w", err)
		}
	}
	return nil
}

// FindByID returns a feedback item by its ID.
func (r *FeedbackRepository) FindByID(ctx context.Context, id int64) (*models.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE id = $1`, feedbackColumns)
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// ListByStudent returns a student's feedback, newest first.
func (r *FeedbackRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE student_id = $1 ORDER BY submitted_on DESC`, feedbackColumns)
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student feedback: %w", err)
	}
	return items, nil
}

// ListAll returns every feedback item, pending first then newest.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback ORDER BY status = 'pending' DESC, submitted_on DESC`, feedbackColumns)
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// Respond transitions a feedback item from pending to resolved, recording
// the admin response. It returns false when the item was not pending.
func (r *FeedbackRepository) Respond(ctx context.Context, id int64, responderID int64, response string, respondedOn time.Time) (bool, error) {
	const query = `UPDATE feedback SET status = 'resolved', admin_response = $2, responded_by = $3, responded_on = $4
        WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, response, responderID, respondedOn)
	if err != nil {
		return false, fmt.Errorf("respond to feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inspect feedback update: %w", err)
	}
	return affected > 0, nil
}
