package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockClassRepo struct {
	classes      map[int64]*models.Class
	created      *models.Class
	deleted      int64
	schedulePath string
}

func (m *mockClassRepo) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	var out []models.Class
	for _, c := range m.classes {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = 60
	m.created = class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	return nil
}

func (m *mockClassRepo) SetSchedulePDF(ctx context.Context, id int64, path string, updatedBy int64) error {
	m.schedulePath = path
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = id
	return nil
}

type mockScheduleStorage struct {
	saved   map[string]string
	removed []string
}

func (m *mockScheduleStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[filename] = string(raw)
	return "schedules/" + filename, nil
}

func (m *mockScheduleStorage) Delete(filename string) error {
	m.removed = append(m.removed, filename)
	return nil
}

func newTestClassService(repo *mockClassRepo, storage *mockScheduleStorage) *ClassService {
	return NewClassService(repo, storage, validator.New(), zap.NewNop())
}

func TestClassCreateAdminOnly(t *testing.T) {
	repo := &mockClassRepo{}
	svc := newTestClassService(repo, &mockScheduleStorage{})

	class, err := svc.Create(context.Background(), adminPrincipal, CreateClassRequest{Name: "10-A", MaxStudents: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(60), class.ID)

	_, err = svc.Create(context.Background(), teacherPrincipal, CreateClassRequest{Name: "10-B"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClassAttachSchedulePDF(t *testing.T) {
	repo := &mockClassRepo{classes: map[int64]*models.Class{60: {ID: 60, Name: "10-A"}}}
	storage := &mockScheduleStorage{}
	svc := newTestClassService(repo, storage)

	path, err := svc.AttachSchedulePDF(context.Background(), adminPrincipal, 60, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "schedules/class_60_schedule.pdf", path)
	assert.Equal(t, "%PDF-1.4", storage.saved["class_60_schedule.pdf"])
	assert.Equal(t, path, repo.schedulePath)
}

func TestClassAttachScheduleUnknownClass(t *testing.T) {
	svc := newTestClassService(&mockClassRepo{}, &mockScheduleStorage{})

	_, err := svc.AttachSchedulePDF(context.Background(), adminPrincipal, 99, strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassDeleteRemovesScheduleFile(t *testing.T) {
	pdfPath := "schedules/class_60_schedule.pdf"
	repo := &mockClassRepo{classes: map[int64]*models.Class{60: {ID: 60, Name: "10-A", SchedulePDFPath: &pdfPath}}}
	storage := &mockScheduleStorage{}
	svc := newTestClassService(repo, storage)

	err := svc.Delete(context.Background(), adminPrincipal, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), repo.deleted)
	assert.Equal(t, []string{pdfPath}, storage.removed)
}

func TestClassUpdateAppliesPartialChanges(t *testing.T) {
	repo := &mockClassRepo{classes: map[int64]*models.Class{60: {ID: 60, Name: "10-A", MaxStudents: 30, Status: models.ClassStatusActive}}}
	svc := newTestClassService(repo, &mockScheduleStorage{})

	status := models.ClassStatusInactive
	updated, err := svc.Update(context.Background(), adminPrincipal, 60, UpdateClassRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusInactive, updated.Status)
	assert.Equal(t, "10-A", updated.Name)
}
