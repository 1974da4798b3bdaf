package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// UserRepository handles persistence of users and refresh tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT id, username, password_hash, role, name, email, phone, address, created_by, created_on, updated_by, updated_on
        FROM users WHERE username = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by its ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT id, username, password_hash, role, name, email, phone, address, created_by, created_on, updated_by, updated_on
        FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users filtered by the provided criteria.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := "FROM users u"
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.username ILIKE $%d OR u.name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"username":   "u.username",
		"name":       "u.name",
		"created_on": "u.created_on",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "u.created_on"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT u.id, u.username, u.password_hash, u.role, u.name, u.email, u.phone, u.address,
        u.created_by, u.created_on, u.updated_by, u.updated_on
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create persists a new user and fills in the generated ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedOn.IsZero() {
		user.CreatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO users (username, password_hash, role, name, email, phone, address, created_by, created_on)
        VALUES (:username, :password_hash, :role, :name, :email, :phone, :address, :created_by, :created_on)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&user.ID); err != nil {
			return fmt.Errorf("scan user id: %w", err)
		}
	}
	return nil
}

// Update persists profile changes for an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.UpdatedOn = &now
	const query = `UPDATE users SET name = :name, email = :email, phone = :phone, address = :address,
        password_hash = :password_hash, updated_by = :updated_by, updated_on = :updated_on
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DeleteCascade removes the user and every dependent row in one transaction.
// Assignment links, marks, attendance, doubts, feedback and refresh tokens
// are cleared before the user row so the whole removal is all-or-nothing.
// Audit references the user left on surviving rows (marked_by, assigned_by,
// resolved_by, responded_by, created_by, updated_by, feedback.teacher_id)
// are nulled so the final user delete cannot trip a foreign key.
func (r *UserRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM marks WHERE student_id = $1`,
		`DELETE FROM marks WHERE assessment_id IN (SELECT id FROM assessments WHERE teacher_id = $1)`,
		`DELETE FROM assessments WHERE teacher_id = $1`,
		`DELETE FROM attendance WHERE student_id = $1`,
		`DELETE FROM student_class_map WHERE student_id = $1`,
		`DELETE FROM teacher_class_map WHERE teacher_id = $1`,
		`DELETE FROM student_subjects WHERE student_id = $1`,
		`DELETE FROM teacher_subjects WHERE teacher_id = $1`,
		`DELETE FROM doubts WHERE student_id = $1`,
		`DELETE FROM feedback WHERE student_id = $1`,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		`UPDATE attendance SET marked_by = NULL WHERE marked_by = $1`,
		`UPDATE student_class_map SET assigned_by = NULL WHERE assigned_by = $1`,
		`UPDATE teacher_class_map SET assigned_by = NULL WHERE assigned_by = $1`,
		`UPDATE student_subjects SET assigned_by = NULL WHERE assigned_by = $1`,
		`UPDATE teacher_subjects SET assigned_by = NULL WHERE assigned_by = $1`,
		`UPDATE doubts SET resolved_by = NULL WHERE resolved_by = $1`,
		`UPDATE feedback SET teacher_id = NULL WHERE teacher_id = $1`,
		`UPDATE feedback SET responded_by = NULL WHERE responded_by = $1`,
		`UPDATE users SET created_by = NULL WHERE created_by = $1`,
		`UPDATE users SET updated_by = NULL WHERE updated_by = $1`,
		`UPDATE classes SET created_by = NULL WHERE created_by = $1`,
		`UPDATE classes SET updated_by = NULL WHERE updated_by = $1`,
		`UPDATE subjects SET created_by = NULL WHERE created_by = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade delete user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// CreateRefreshToken stores a refresh token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, ip_address, user_agent)
        VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken loads a refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
        FROM refresh_tokens WHERE token = $1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks a single refresh token revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all live refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
