package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// ClassRepository handles persistence of classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, name, kind, description, grade_level, section, schedule_days, schedule_time_start,
        schedule_time_end, schedule_pdf_path, meeting_link, max_students, status, created_by, created_on, updated_by, updated_on`

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns classes filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes c"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("c.kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":        "c.name",
		"grade_level": "c.grade_level",
		"created_on":  "c.created_on",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.name, c.kind, c.description, c.grade_level, c.section, c.schedule_days,
        c.schedule_time_start, c.schedule_time_end, c.schedule_pdf_path, c.meeting_link, c.max_students, c.status,
        c.created_by, c.created_on, c.updated_by, c.updated_on
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// Create persists a new class and fills in the generated ID.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.Kind == "" {
		class.Kind = models.ClassKindRegular
	}
	if class.Status == "" {
		class.Status = models.ClassStatusActive
	}
	if class.CreatedOn.IsZero() {
		class.CreatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO classes (name, kind, description, grade_level, section, schedule_days, schedule_time_start,
        schedule_time_end, schedule_pdf_path, meeting_link, max_students, status, created_by, created_on)
        VALUES (:name, :kind, :description, :grade_level, :section, :schedule_days, :schedule_time_start,
        :schedule_time_end, :schedule_pdf_path, :meeting_link, :max_students, :status, :created_by, :created_on)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&class.ID); err != nil {
			return fmt.Errorf("scan class id: %w", err)
		}
	}
	return nil
}

// Update persists changes to an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	now := time.Now().UTC()
	class.UpdatedOn = &now
	const query = `UPDATE classes SET name = :name, kind = :kind, description = :description, grade_level = :grade_level,
        section = :section, schedule_days = :schedule_days, schedule_time_start = :schedule_time_start,
        schedule_time_end = :schedule_time_end, meeting_link = :meeting_link, max_students = :max_students,
        status = :status, updated_by = :updated_by, updated_on = :updated_on
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// SetSchedulePDF records the stored schedule document path for a class.
func (r *ClassRepository) SetSchedulePDF(ctx context.Context, id int64, path string, updatedBy int64) error {
	const query = `UPDATE classes SET schedule_pdf_path = $2, updated_by = $3, updated_on = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path, updatedBy); err != nil {
		return fmt.Errorf("set schedule pdf: %w", err)
	}
	return nil
}

// Delete removes a class; dependent rows go with it via cascading keys.
func (r *ClassRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// MissingOrInactive returns the subset of IDs with no active class row.
func (r *ClassRepository) MissingOrInactive(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id FROM classes WHERE status = 'active' AND id IN (%s)`, strings.Join(placeholders, ","))
	var found []int64
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("validate classes: %w", err)
	}
	existing := make(map[int64]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !existing[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
