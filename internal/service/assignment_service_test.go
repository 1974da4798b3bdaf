package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockAssignmentRepo struct {
	studentReplaced  bool
	teacherReplaced  bool
	lastClassIDs     []int64
	lastSubjectNames []string
	assignments      *models.UserAssignments
	roster           []models.RosterEntry
}

func (m *mockAssignmentRepo) ReplaceForStudent(ctx context.Context, studentID int64, classIDs []int64, subjectNames []string, assignedBy int64) error {
	m.studentReplaced = true
	m.lastClassIDs = classIDs
	m.lastSubjectNames = subjectNames
	return nil
}

func (m *mockAssignmentRepo) ReplaceForTeacher(ctx context.Context, teacherID int64, classIDs []int64, subjectNames []string, assignedBy int64) error {
	m.teacherReplaced = true
	m.lastClassIDs = classIDs
	m.lastSubjectNames = subjectNames
	return nil
}

func (m *mockAssignmentRepo) AssignmentsForUser(ctx context.Context, userID int64, role models.UserRole) (*models.UserAssignments, error) {
	if m.assignments != nil {
		return m.assignments, nil
	}
	return &models.UserAssignments{}, nil
}

func (m *mockAssignmentRepo) ClassRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	return m.roster, nil
}

func (m *mockAssignmentRepo) TeachersForClass(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	return m.roster, nil
}

type mockUserLookup struct {
	users map[int64]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassLookup struct {
	missing []int64
}

func (m *mockClassLookup) MissingOrInactive(ctx context.Context, ids []int64) ([]int64, error) {
	return m.missing, nil
}

type mockSubjectLookup struct {
	missing []string
}

func (m *mockSubjectLookup) Missing(ctx context.Context, names []string) ([]string, error) {
	return m.missing, nil
}

func newTestAssignmentService(repo *mockAssignmentRepo, users *mockUserLookup, classes *mockClassLookup, subjects *mockSubjectLookup) *AssignmentService {
	return NewAssignmentService(repo, users, classes, subjects, validator.New(), zap.NewNop())
}

func TestAssignReplacesStudentSet(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserLookup{users: map[int64]*models.User{10: {ID: 10, Role: models.RoleStudent}}}
	svc := newTestAssignmentService(repo, users, &mockClassLookup{}, &mockSubjectLookup{})

	err := svc.Assign(context.Background(), adminPrincipal, 10, AssignRequest{
		ClassIDs:     []int64{1, 2, 1},
		SubjectNames: []string{"Math", " Math ", "Physics", ""},
	})
	require.NoError(t, err)
	assert.True(t, repo.studentReplaced)
	assert.False(t, repo.teacherReplaced)
	assert.Equal(t, []int64{1, 2}, repo.lastClassIDs)
	assert.Equal(t, []string{"Math", "Physics"}, repo.lastSubjectNames)
}

func TestAssignReplacesTeacherSet(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserLookup{users: map[int64]*models.User{20: {ID: 20, Role: models.RoleTeacher}}}
	svc := newTestAssignmentService(repo, users, &mockClassLookup{}, &mockSubjectLookup{})

	err := svc.Assign(context.Background(), adminPrincipal, 20, AssignRequest{ClassIDs: []int64{3}, SubjectNames: []string{"Chemistry"}})
	require.NoError(t, err)
	assert.True(t, repo.teacherReplaced)
}

func TestAssignEmptySetClears(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserLookup{users: map[int64]*models.User{10: {ID: 10, Role: models.RoleStudent}}}
	svc := newTestAssignmentService(repo, users, &mockClassLookup{}, &mockSubjectLookup{})

	err := svc.Assign(context.Background(), adminPrincipal, 10, AssignRequest{})
	require.NoError(t, err)
	assert.True(t, repo.studentReplaced)
	assert.Empty(t, repo.lastClassIDs)
	assert.Empty(t, repo.lastSubjectNames)
}

func TestAssignRejectsWholeRequestOnUnknownRefs(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserLookup{users: map[int64]*models.User{10: {ID: 10, Role: models.RoleStudent}}}
	classes := &mockClassLookup{missing: []int64{2}}
	subjects := &mockSubjectLookup{missing: []string{"Alchemy"}}
	svc := newTestAssignmentService(repo, users, classes, subjects)

	err := svc.Assign(context.Background(), adminPrincipal, 10, AssignRequest{
		ClassIDs:     []int64{1, 2},
		SubjectNames: []string{"Math", "Alchemy"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "unknown or inactive classes: 2")
	assert.Contains(t, appErr.Message, "unknown subjects: Alchemy")
	assert.False(t, repo.studentReplaced)
	assert.False(t, repo.teacherReplaced)
}

func TestAssignForbiddenForNonAdmin(t *testing.T) {
	svc := newTestAssignmentService(&mockAssignmentRepo{}, &mockUserLookup{}, &mockClassLookup{}, &mockSubjectLookup{})

	err := svc.Assign(context.Background(), teacherPrincipal, 10, AssignRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignRejectsAdminTarget(t *testing.T) {
	users := &mockUserLookup{users: map[int64]*models.User{1: {ID: 1, Role: models.RoleAdmin}}}
	svc := newTestAssignmentService(&mockAssignmentRepo{}, users, &mockClassLookup{}, &mockSubjectLookup{})

	err := svc.Assign(context.Background(), adminPrincipal, 1, AssignRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentsGetSelfOnly(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: &models.UserAssignments{ClassIDs: []int64{1}, SubjectNames: []string{"Math"}}}
	users := &mockUserLookup{users: map[int64]*models.User{3: {ID: 3, Role: models.RoleStudent}}}
	svc := newTestAssignmentService(repo, users, &mockClassLookup{}, &mockSubjectLookup{})

	got, err := svc.Get(context.Background(), studentPrincipal, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.ClassIDs)

	_, err = svc.Get(context.Background(), studentPrincipal, 4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
