package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockAttendanceRepo struct {
	written []models.Attendance
	records []models.Attendance
	summary *models.AttendanceSummary
}

func (m *mockAttendanceRepo) OverwriteBatch(ctx context.Context, records []models.Attendance) error {
	m.written = records
	return nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) Summary(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceSummary, error) {
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.AttendanceSummary{}, nil
}

type mockAccessChecker struct {
	teacherClasses map[int64]map[int64]bool
	enrolled       map[int64]map[int64]bool
	subjects       map[int64]map[string]bool
}

func (m *mockAccessChecker) HasTeacherClass(ctx context.Context, teacherID, classID int64) (bool, error) {
	return m.teacherClasses[teacherID][classID], nil
}

func (m *mockAccessChecker) HasTeacherSubject(ctx context.Context, teacherID int64, subjectName string) (bool, error) {
	return m.subjects[teacherID][subjectName], nil
}

func (m *mockAccessChecker) IsStudentEnrolled(ctx context.Context, studentID, classID int64) (bool, error) {
	return m.enrolled[studentID][classID], nil
}

type fakeCache struct {
	store    map[string][]byte
	deletes  []string
	setCalls int
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.store[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.store == nil {
		f.store = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	f.setCalls++
	return nil
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.deletes = append(f.deletes, pattern)
	return nil
}

func newTestAttendanceService(repo *mockAttendanceRepo, access *mockAccessChecker, cache ReportCache) *AttendanceService {
	return NewAttendanceService(repo, access, cache, time.Minute, validator.New(), zap.NewNop())
}

func TestAttendanceMarkWritesBatch(t *testing.T) {
	repo := &mockAttendanceRepo{}
	access := &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}, 31: {1: true}},
	}
	svc := newTestAttendanceService(repo, access, nil)

	date := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    date,
		Entries: []AttendanceEntry{
			{StudentID: 30, Status: models.AttendancePresent},
			{StudentID: 31, Status: models.AttendanceAbsent},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.written, 2)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), repo.written[0].Date)
	assert.Equal(t, models.AttendanceAbsent, repo.written[1].Status)
	require.NotNil(t, repo.written[0].MarkedBy)
	assert.Equal(t, teacherPrincipal.UserID, *repo.written[0].MarkedBy)
}

func TestAttendanceMarkRejectsUnenrolledStudent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	access := &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}},
	}
	svc := newTestAttendanceService(repo, access, nil)

	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    time.Now(),
		Entries: []AttendanceEntry{
			{StudentID: 30, Status: models.AttendancePresent},
			{StudentID: 99, Status: models.AttendancePresent},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.written)
}

func TestAttendanceMarkRejectsDuplicateStudent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	access := &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}},
	}
	svc := newTestAttendanceService(repo, access, nil)

	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    time.Now(),
		Entries: []AttendanceEntry{
			{StudentID: 30, Status: models.AttendancePresent},
			{StudentID: 30, Status: models.AttendanceLate},
		},
	})
	require.Error(t, err)
	assert.Empty(t, repo.written)
}

func TestAttendanceMarkRejectsUnknownStatus(t *testing.T) {
	repo := &mockAttendanceRepo{}
	access := &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}},
	}
	svc := newTestAttendanceService(repo, access, nil)

	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    time.Now(),
		Entries: []AttendanceEntry{{StudentID: 30, Status: "asleep"}},
	})
	require.Error(t, err)
	assert.Empty(t, repo.written)
}

func TestAttendanceMarkForbiddenForUnassignedTeacher(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockAccessChecker{}, nil)

	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    time.Now(),
		Entries: []AttendanceEntry{{StudentID: 30, Status: models.AttendancePresent}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceMarkInvalidatesReports(t *testing.T) {
	cache := &fakeCache{}
	access := &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}},
	}
	svc := newTestAttendanceService(&mockAttendanceRepo{}, access, cache)

	err := svc.Mark(context.Background(), teacherPrincipal, MarkAttendanceRequest{
		ClassID: 1,
		Date:    time.Now(),
		Entries: []AttendanceEntry{{StudentID: 30, Status: models.AttendancePresent}},
	})
	require.NoError(t, err)
	require.Len(t, cache.deletes, 1)
	assert.Equal(t, "attendance:report:c1:*", cache.deletes[0])
}

func TestAttendanceListScopesStudentToSelf(t *testing.T) {
	repo := &mockAttendanceRepo{records: []models.Attendance{{StudentID: 3}}}
	svc := newTestAttendanceService(repo, &mockAccessChecker{}, nil)

	records, err := svc.List(context.Background(), studentPrincipal, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAttendanceListRequiresClassForTeacher(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockAccessChecker{}, nil)

	_, err := svc.List(context.Background(), teacherPrincipal, models.AttendanceFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceReportCachesResult(t *testing.T) {
	cache := &fakeCache{}
	repo := &mockAttendanceRepo{
		summary: &models.AttendanceSummary{Present: 8, Absent: 2, Total: 10, Percentage: 80},
		records: []models.Attendance{{StudentID: 30, Status: models.AttendancePresent}},
	}
	classID := int64(1)
	svc := newTestAttendanceService(repo, &mockAccessChecker{}, cache)

	report, err := svc.Report(context.Background(), adminPrincipal, models.AttendanceFilter{ClassID: &classID})
	require.NoError(t, err)
	assert.Equal(t, 80.0, report.Summary.Percentage)
	assert.Equal(t, 1, cache.setCalls)

	// second call is served from the cache
	repo.summary = &models.AttendanceSummary{}
	cached, err := svc.Report(context.Background(), adminPrincipal, models.AttendanceFilter{ClassID: &classID})
	require.NoError(t, err)
	assert.Equal(t, 80.0, cached.Summary.Percentage)
	assert.Equal(t, 1, cache.setCalls)
}
