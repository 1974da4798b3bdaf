package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[int64]*models.User
	byName  map[string]*models.User
	total   int
	created *models.User
	updated *models.User
	deleted int64
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, m.total, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = 100
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) DeleteCascade(ctx context.Context, id int64) error {
	m.deleted = id
	return nil
}

var (
	adminPrincipal   = models.Principal{UserID: 1, Role: models.RoleAdmin}
	teacherPrincipal = models.Principal{UserID: 2, Role: models.RoleTeacher}
	studentPrincipal = models.Principal{UserID: 3, Role: models.RoleStudent}
)

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), adminPrincipal, CreateUserRequest{
		Username: "newstudent",
		Password: "password1",
		Role:     models.RoleStudent,
		Name:     "New Student",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, repo.created)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("password1")))
}

func TestUserServiceCreateForbiddenForTeacher(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), teacherPrincipal, CreateUserRequest{
		Username: "newstudent",
		Password: "password1",
		Role:     models.RoleStudent,
		Name:     "New Student",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateDuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{byName: map[string]*models.User{"taken": {ID: 5, Username: "taken"}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), adminPrincipal, CreateUserRequest{
		Username: "taken",
		Password: "password1",
		Role:     models.RoleStudent,
		Name:     "Dup",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListClampsPagination(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{1: {ID: 1}}, total: 1}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, page, err := svc.List(context.Background(), models.UserFilter{Page: -3, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)
}

func TestUserServiceUpdateSelf(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{3: {ID: 3, Username: "stud", Name: "Old Name", Role: models.RoleStudent}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	name := "New Name"
	user, err := svc.Update(context.Background(), studentPrincipal, 3, UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	require.NotNil(t, repo.updated)
}

func TestUserServiceUpdateOtherForbidden(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{4: {ID: 4, Role: models.RoleStudent}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	name := "Hijack"
	_, err := svc.Update(context.Background(), studentPrincipal, 4, UpdateUserRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteCascade(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{8: {ID: 8, Role: models.RoleStudent}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), adminPrincipal, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), repo.deleted)
}

func TestUserServiceDeleteOwnAccountRejected(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{1: {ID: 1, Role: models.RoleAdmin}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), adminPrincipal, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deleted)
}

func TestUserServiceDeleteForbiddenForTeacher(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{8: {ID: 8, Role: models.RoleStudent}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), teacherPrincipal, 8)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
