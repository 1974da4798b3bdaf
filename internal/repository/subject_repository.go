package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// SubjectRepository handles persistence of catalog subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByName returns a subject by its unique name.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	const query = `SELECT id, name, description, grade_level, created_by, created_on FROM subjects WHERE name = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, name); err != nil {
		return nil, err
	}
	return &subject, nil
}

// List returns all subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, description, grade_level, created_by, created_on FROM subjects ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create persists a new subject and fills in the generated ID.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.CreatedOn.IsZero() {
		subject.CreatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (name, description, grade_level, created_by, created_on)
        VALUES (:name, :description, :grade_level, :created_by, :created_on)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&subject.ID); err != nil {
			return fmt.Errorf("scan subject id: %w", err)
		}
	}
	return nil
}

// Delete removes a subject from the catalog.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// Missing returns the subset of names with no catalog row.
func (r *SubjectRepository) Missing(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = name
	}
	query := fmt.Sprintf(`SELECT name FROM subjects WHERE name IN (%s)`, strings.Join(placeholders, ","))
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("validate subjects: %w", err)
	}
	existing := make(map[string]bool, len(found))
	for _, name := range found {
		existing[name] = true
	}
	var missing []string
	for _, name := range names {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
