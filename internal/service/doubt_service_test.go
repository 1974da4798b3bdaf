package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockDoubtRepo struct {
	doubts        map[int64]*models.Doubt
	created       *models.Doubt
	answered      bool
	listedOpenFor []string
}

func (m *mockDoubtRepo) Create(ctx context.Context, doubt *models.Doubt) error {
	doubt.ID = 70
	m.created = doubt
	return nil
}

func (m *mockDoubtRepo) FindByID(ctx context.Context, id int64) (*models.Doubt, error) {
	if d, ok := m.doubts[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDoubtRepo) ListByStudent(ctx context.Context, studentID int64) ([]models.Doubt, error) {
	var out []models.Doubt
	for _, d := range m.doubts {
		if d.StudentID == studentID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDoubtRepo) ListOpen(ctx context.Context) ([]models.Doubt, error) {
	var out []models.Doubt
	for _, d := range m.doubts {
		if d.Status == models.DoubtOpen {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDoubtRepo) ListOpenForSubjects(ctx context.Context, subjects []string) ([]models.Doubt, error) {
	m.listedOpenFor = subjects
	var out []models.Doubt
	for _, d := range m.doubts {
		if d.Status == models.DoubtOpen && containsString(subjects, d.Subject) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDoubtRepo) Answer(ctx context.Context, id int64, responderID int64, responseText string, resolvedOn time.Time) (bool, error) {
	d, ok := m.doubts[id]
	if !ok || d.Status != models.DoubtOpen {
		return false, nil
	}
	d.Status = models.DoubtAnswered
	d.ResponseText = &responseText
	d.ResolvedBy = &responderID
	d.ResolvedOn = &resolvedOn
	m.answered = true
	return true, nil
}

type mockDoubtAssignments struct {
	subjects map[int64][]string
}

func (m *mockDoubtAssignments) AssignmentsForUser(ctx context.Context, userID int64, role models.UserRole) (*models.UserAssignments, error) {
	return &models.UserAssignments{SubjectNames: m.subjects[userID]}, nil
}

func newTestDoubtService(repo *mockDoubtRepo, assignments *mockDoubtAssignments) *DoubtService {
	return NewDoubtService(repo, assignments, validator.New(), zap.NewNop())
}

func TestDoubtSubmit(t *testing.T) {
	repo := &mockDoubtRepo{}
	svc := newTestDoubtService(repo, &mockDoubtAssignments{})

	doubt, err := svc.Submit(context.Background(), studentPrincipal, SubmitDoubtRequest{Subject: "Math", DoubtText: "What is a limit?"})
	require.NoError(t, err)
	assert.Equal(t, models.DoubtOpen, doubt.Status)
	assert.Equal(t, studentPrincipal.UserID, doubt.StudentID)
}

func TestDoubtSubmitForbiddenForTeacher(t *testing.T) {
	svc := newTestDoubtService(&mockDoubtRepo{}, &mockDoubtAssignments{})

	_, err := svc.Submit(context.Background(), teacherPrincipal, SubmitDoubtRequest{Subject: "Math", DoubtText: "?"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDoubtListOpenScopedToTeacherSubjects(t *testing.T) {
	repo := &mockDoubtRepo{doubts: map[int64]*models.Doubt{
		70: {ID: 70, Subject: "Math", Status: models.DoubtOpen},
		71: {ID: 71, Subject: "History", Status: models.DoubtOpen},
	}}
	assignments := &mockDoubtAssignments{subjects: map[int64][]string{2: {"Math"}}}
	svc := newTestDoubtService(repo, assignments)

	doubts, err := svc.ListOpen(context.Background(), teacherPrincipal)
	require.NoError(t, err)
	require.Len(t, doubts, 1)
	assert.Equal(t, "Math", doubts[0].Subject)
	assert.Equal(t, []string{"Math"}, repo.listedOpenFor)
}

func TestDoubtListOpenForbiddenForStudent(t *testing.T) {
	svc := newTestDoubtService(&mockDoubtRepo{}, &mockDoubtAssignments{})

	_, err := svc.ListOpen(context.Background(), studentPrincipal)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDoubtAnswer(t *testing.T) {
	repo := &mockDoubtRepo{doubts: map[int64]*models.Doubt{70: {ID: 70, Subject: "Math", Status: models.DoubtOpen}}}
	assignments := &mockDoubtAssignments{subjects: map[int64][]string{2: {"Math"}}}
	svc := newTestDoubtService(repo, assignments)

	answered, err := svc.Answer(context.Background(), teacherPrincipal, 70, AnswerDoubtRequest{ResponseText: "See chapter 3."})
	require.NoError(t, err)
	assert.Equal(t, models.DoubtAnswered, answered.Status)
	require.NotNil(t, answered.ResponseText)
	assert.Equal(t, "See chapter 3.", *answered.ResponseText)
}

func TestDoubtAnswerTwiceRejected(t *testing.T) {
	repo := &mockDoubtRepo{doubts: map[int64]*models.Doubt{70: {ID: 70, Subject: "Math", Status: models.DoubtAnswered}}}
	assignments := &mockDoubtAssignments{subjects: map[int64][]string{2: {"Math"}}}
	svc := newTestDoubtService(repo, assignments)

	_, err := svc.Answer(context.Background(), teacherPrincipal, 70, AnswerDoubtRequest{ResponseText: "Again."})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDoubtAnswerOutsideSubjectForbidden(t *testing.T) {
	repo := &mockDoubtRepo{doubts: map[int64]*models.Doubt{70: {ID: 70, Subject: "History", Status: models.DoubtOpen}}}
	assignments := &mockDoubtAssignments{subjects: map[int64][]string{2: {"Math"}}}
	svc := newTestDoubtService(repo, assignments)

	_, err := svc.Answer(context.Background(), teacherPrincipal, 70, AnswerDoubtRequest{ResponseText: "Not mine."})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.answered)
}
