package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// MarkRepository handles persistence of per-student scores.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// SaveBatch writes the given marks in a single transaction, updating the
// existing (assessment, student) row when present and inserting otherwise.
// The caller has already filtered out invalid entries; everything passed in
// commits together.
func (r *MarkRepository) SaveBatch(ctx context.Context, marks []models.Mark) (inserted, updated int, err error) {
	if len(marks) == 0 {
		return 0, 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin save marks: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range marks {
		marks[i].UpdatedOn = time.Now().UTC()
		const updateQuery = `UPDATE marks SET score = :score, comment = :comment, updated_at = :updated_at
            WHERE assessment_id = :assessment_id AND student_id = :student_id`
		res, err := tx.NamedExecContext(ctx, updateQuery, marks[i])
		if err != nil {
			return 0, 0, fmt.Errorf("update mark: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("inspect mark update: %w", err)
		}
		if affected > 0 {
			updated++
			continue
		}
		const insertQuery = `INSERT INTO marks (assessment_id, student_id, score, comment, updated_at)
            VALUES (:assessment_id, :student_id, :score, :comment, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, marks[i]); err != nil {
			return 0, 0, fmt.Errorf("insert mark: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit save marks: %w", err)
	}
	return inserted, updated, nil
}

// ListByAssessment returns the recorded marks for one assessment.
func (r *MarkRepository) ListByAssessment(ctx context.Context, assessmentID int64) ([]models.Mark, error) {
	const query = `SELECT id, assessment_id, student_id, score, comment, updated_at FROM marks WHERE assessment_id = $1 ORDER BY student_id`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// WeightedRows returns a student's marks joined with each assessment's
// scoring parameters for one class and subject. Assessments the student was
// never scored on produce no row.
func (r *MarkRepository) WeightedRows(ctx context.Context, studentID, classID int64, subjectName string) ([]models.WeightedMarkRow, error) {
	const query = `SELECT m.assessment_id, m.score, a.max_score, a.weight
        FROM marks m
        JOIN assessments a ON a.id = m.assessment_id
        WHERE m.student_id = $1 AND a.class_id = $2 AND a.subject_name = $3
        ORDER BY a.assessment_date`
	var rows []models.WeightedMarkRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID, subjectName); err != nil {
		return nil, fmt.Errorf("list weighted marks: %w", err)
	}
	return rows, nil
}

// Stats returns per-assessment descriptive statistics over recorded marks
// for a class and subject, optionally scoped to a date range.
func (r *MarkRepository) Stats(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.AssessmentStats, error) {
	query := `SELECT a.id AS assessment_id, a.title, a.assessment_date, a.max_score,
        COUNT(m.id) AS count,
        COALESCE(AVG(m.score), 0) AS mean,
        COALESCE(MIN(m.score), 0) AS min,
        COALESCE(MAX(m.score), 0) AS max
        FROM assessments a
        LEFT JOIN marks m ON m.assessment_id = a.id
        WHERE a.class_id = $1 AND a.subject_name = $2`
	args := []interface{}{classID, subjectName}
	var conditions []string
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("a.assessment_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("a.assessment_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY a.id, a.title, a.assessment_date, a.max_score ORDER BY a.assessment_date"

	var stats []models.AssessmentStats
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("assessment statistics: %w", err)
	}
	return stats, nil
}

// SheetEntries returns one row per enrolled student for an assessment's mark
// sheet; students without a recorded mark come back with nil score.
func (r *MarkRepository) SheetEntries(ctx context.Context, assessmentID, classID int64) ([]models.MarkSheetEntry, error) {
	const query = `SELECT u.id AS student_id, u.name AS student_name, m.score, m.comment
        FROM users u
        JOIN student_class_map scm ON scm.student_id = u.id AND scm.status = 'active'
        LEFT JOIN marks m ON m.student_id = u.id AND m.assessment_id = $1
        WHERE scm.class_id = $2
        ORDER BY u.name`
	var entries []models.MarkSheetEntry
	if err := r.db.SelectContext(ctx, &entries, query, assessmentID, classID); err != nil {
		return nil, fmt.Errorf("list mark sheet entries: %w", err)
	}
	return entries, nil
}
