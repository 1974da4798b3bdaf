package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
)

type mockAssessmentRepo struct {
	assessments map[int64]*models.Assessment
	exists      bool
	created     *models.Assessment
	deleted     int64
	listed      []models.Assessment
}

func (m *mockAssessmentRepo) FindByID(ctx context.Context, id int64) (*models.Assessment, error) {
	if a, ok := m.assessments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentRepo) Exists(ctx context.Context, classID int64, subjectName, title string, date time.Time) (bool, error) {
	return m.exists, nil
}

func (m *mockAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	assessment.ID = 50
	m.created = assessment
	return nil
}

func (m *mockAssessmentRepo) ListByClassSubject(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.Assessment, error) {
	return m.listed, nil
}

func (m *mockAssessmentRepo) DeleteCascade(ctx context.Context, id int64) error {
	m.deleted = id
	return nil
}

type mockMarkRepo struct {
	savedMarks   []models.Mark
	inserted     int
	updated      int
	listed       []models.Mark
	weightedRows []models.WeightedMarkRow
	stats        []models.AssessmentStats
	sheetEntries []models.MarkSheetEntry
}

func (m *mockMarkRepo) SaveBatch(ctx context.Context, marks []models.Mark) (int, int, error) {
	m.savedMarks = marks
	return m.inserted, m.updated, nil
}

func (m *mockMarkRepo) ListByAssessment(ctx context.Context, assessmentID int64) ([]models.Mark, error) {
	return m.listed, nil
}

func (m *mockMarkRepo) WeightedRows(ctx context.Context, studentID, classID int64, subjectName string) ([]models.WeightedMarkRow, error) {
	return m.weightedRows, nil
}

func (m *mockMarkRepo) Stats(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.AssessmentStats, error) {
	return m.stats, nil
}

func (m *mockMarkRepo) SheetEntries(ctx context.Context, assessmentID, classID int64) ([]models.MarkSheetEntry, error) {
	return m.sheetEntries, nil
}

type mockClassFinder struct {
	classes map[int64]*models.Class
}

func (m *mockClassFinder) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockPDFRenderer struct {
	lastTitle string
	lastData  export.Dataset
}

func (m *mockPDFRenderer) Render(data export.Dataset, title string) ([]byte, error) {
	m.lastData = data
	m.lastTitle = title
	return []byte("%PDF-1.4"), nil
}

func fullAccess() *mockAccessChecker {
	return &mockAccessChecker{
		teacherClasses: map[int64]map[int64]bool{2: {1: true}},
		enrolled:       map[int64]map[int64]bool{30: {1: true}, 31: {1: true}, 32: {1: true}},
		subjects:       map[int64]map[string]bool{2: {"Math": true}},
	}
}

func newTestAssessmentService(assessments *mockAssessmentRepo, marks *mockMarkRepo, access *mockAccessChecker, classes *mockClassFinder, cache ReportCache, pdf pdfRenderer) *AssessmentService {
	return NewAssessmentService(assessments, marks, access, classes, cache, time.Minute, export.NewCSVExporter(), pdf, validator.New(), zap.NewNop())
}

func ptrFloat(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }

func TestAssessmentCreate(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := newTestAssessmentService(repo, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	created, err := svc.Create(context.Background(), teacherPrincipal, CreateAssessmentRequest{
		ClassID:     1,
		SubjectName: "Math",
		Title:       "Quiz 1",
		Date:        time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
		MaxScore:    20,
		Weight:      0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), created.ID)
	assert.Equal(t, teacherPrincipal.UserID, created.TeacherID)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), created.Date)
}

func TestAssessmentCreateDuplicateRejected(t *testing.T) {
	repo := &mockAssessmentRepo{exists: true}
	svc := newTestAssessmentService(repo, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.Create(context.Background(), teacherPrincipal, CreateAssessmentRequest{
		ClassID:     1,
		SubjectName: "Math",
		Title:       "Quiz 1",
		Date:        time.Now(),
		MaxScore:    20,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssessmentCreateOutsideTeacherScope(t *testing.T) {
	svc := newTestAssessmentService(&mockAssessmentRepo{}, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.Create(context.Background(), teacherPrincipal, CreateAssessmentRequest{
		ClassID:     1,
		SubjectName: "History",
		Title:       "Quiz 1",
		Date:        time.Now(),
		MaxScore:    20,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSaveMarksPartialSuccess(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 2, MaxScore: 20,
	}}}
	marks := &mockMarkRepo{inserted: 1, updated: 0}
	svc := newTestAssessmentService(repo, marks, fullAccess(), &mockClassFinder{}, nil, nil)

	result, err := svc.SaveMarks(context.Background(), teacherPrincipal, 50, []MarkEntry{
		{StudentID: 30, Score: ptrFloat(18)},
		{StudentID: 31, Score: ptrFloat(25)}, // over max
		{StudentID: 32, Score: nil},          // intentionally blank
		{StudentID: 99, Score: ptrFloat(10)}, // not enrolled
		{StudentID: 30, Score: ptrFloat(19)}, // duplicate
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 3)
	assert.Len(t, marks.savedMarks, 1)
	assert.Equal(t, int64(30), marks.savedMarks[0].StudentID)
}

func TestSaveMarksBoundaryScores(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 2, MaxScore: 20,
	}}}
	marks := &mockMarkRepo{inserted: 2}
	svc := newTestAssessmentService(repo, marks, fullAccess(), &mockClassFinder{}, nil, nil)

	result, err := svc.SaveMarks(context.Background(), teacherPrincipal, 50, []MarkEntry{
		{StudentID: 30, Score: ptrFloat(0)},
		{StudentID: 31, Score: ptrFloat(20)},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Len(t, marks.savedMarks, 2)
}

func TestSaveMarksRejectsForeignTeacher(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 77, MaxScore: 20,
	}}}
	svc := newTestAssessmentService(repo, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.SaveMarks(context.Background(), teacherPrincipal, 50, []MarkEntry{{StudentID: 30, Score: ptrFloat(5)}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWeightedAverage(t *testing.T) {
	rows := []models.WeightedMarkRow{
		{Score: 18, MaxScore: 20, Weight: 0.2},
		{Score: 24, MaxScore: 30, Weight: 0.3},
	}
	assert.Equal(t, 84.0, weightedAverage(rows))
}

func TestWeightedAverageNoRows(t *testing.T) {
	assert.Equal(t, 0.0, weightedAverage(nil))
}

func TestWeightedAverageSkipsZeroMax(t *testing.T) {
	rows := []models.WeightedMarkRow{
		{Score: 10, MaxScore: 0, Weight: 0.5},
		{Score: 15, MaxScore: 20, Weight: 0.5},
	}
	assert.Equal(t, 75.0, weightedAverage(rows))
}

func TestListMarksTeacherScope(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 2, MaxScore: 20,
	}}}
	marks := &mockMarkRepo{listed: []models.Mark{{ID: 7, AssessmentID: 50, StudentID: 30, Score: 18}}}
	svc := newTestAssessmentService(repo, marks, fullAccess(), &mockClassFinder{}, nil, nil)

	got, err := svc.ListMarks(context.Background(), teacherPrincipal, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(30), got[0].StudentID)

	_, err = svc.ListMarks(context.Background(), studentPrincipal, 50)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListMarksUnknownAssessment(t *testing.T) {
	svc := newTestAssessmentService(&mockAssessmentRepo{}, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.ListMarks(context.Background(), adminPrincipal, 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentAverageSelfOnly(t *testing.T) {
	marks := &mockMarkRepo{weightedRows: []models.WeightedMarkRow{{Score: 18, MaxScore: 20, Weight: 1}}}
	svc := newTestAssessmentService(&mockAssessmentRepo{}, marks, fullAccess(), &mockClassFinder{}, nil, nil)

	avg, err := svc.StudentAverage(context.Background(), studentPrincipal, 3, 1, "Math")
	require.NoError(t, err)
	assert.Equal(t, 90.0, avg.Average)
	assert.Equal(t, 1, avg.Assessments)

	_, err = svc.StudentAverage(context.Background(), studentPrincipal, 4, 1, "Math")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClassStatisticsCached(t *testing.T) {
	cache := &fakeCache{}
	marks := &mockMarkRepo{stats: []models.AssessmentStats{{AssessmentID: 50, Title: "Quiz 1", Count: 10, Mean: 14.5}}}
	svc := newTestAssessmentService(&mockAssessmentRepo{}, marks, fullAccess(), &mockClassFinder{}, cache, nil)

	stats, err := svc.ClassStatistics(context.Background(), adminPrincipal, 1, "Math", nil, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, cache.setCalls)

	marks.stats = nil
	cached, err := svc.ClassStatistics(context.Background(), adminPrincipal, 1, "Math", nil, nil)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
	assert.Equal(t, 1, cache.setCalls)
}

func TestExportStatisticsCSV(t *testing.T) {
	marks := &mockMarkRepo{stats: []models.AssessmentStats{{
		AssessmentID: 50, Title: "Quiz 1", Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		MaxScore: 20, Count: 10, Mean: 14.5, Min: 8, Max: 19,
	}}}
	svc := newTestAssessmentService(&mockAssessmentRepo{}, marks, fullAccess(), &mockClassFinder{}, nil, nil)

	raw, err := svc.ExportStatisticsCSV(context.Background(), teacherPrincipal, 1, "Math", nil, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Title,Date,Max Score,Count,Mean,Min,Max", lines[0])
	assert.Equal(t, "Quiz 1,2026-04-01,20,10,14.5,8,19", lines[1])
}

func TestExportStatisticsCSVForbiddenForStudent(t *testing.T) {
	svc := newTestAssessmentService(&mockAssessmentRepo{}, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.ExportStatisticsCSV(context.Background(), studentPrincipal, 1, "Math", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssessmentDeleteOwnerOnly(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 77,
	}}}
	svc := newTestAssessmentService(repo, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	err := svc.Delete(context.Background(), teacherPrincipal, 50)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), adminPrincipal, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), repo.deleted)
}

func TestExportMarksCSV(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 2, Title: "Midterm", MaxScore: 100, Weight: 0.4,
	}}}
	marks := &mockMarkRepo{sheetEntries: []models.MarkSheetEntry{
		{StudentID: 30, StudentName: "Alice A", Score: ptrFloat(87.5), Comment: ptrString("good")},
		{StudentID: 31, StudentName: "Bob B"},
	}}
	classes := &mockClassFinder{classes: map[int64]*models.Class{1: {ID: 1, Name: "10-A"}}}
	svc := newTestAssessmentService(repo, marks, fullAccess(), classes, nil, nil)

	raw, err := svc.ExportMarksCSV(context.Background(), teacherPrincipal, 50)
	require.NoError(t, err)

	lines := strings.Split(string(raw), "\n")
	assert.Equal(t, "Assessment: Midterm", lines[0])
	assert.Equal(t, "Class: 10-A, Subject: Math", lines[1])
	assert.Equal(t, "Max Score: 100", lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "Student Name,Score,Comment", lines[4])
	assert.Equal(t, `"Alice A","87.5","good"`, lines[5])
	assert.Equal(t, `"Bob B","",""`, lines[6])
	assert.NotContains(t, string(raw), "0.4")
	assert.NotContains(t, string(raw), "Weight")
}

func TestExportMarksCSVForbiddenForStudent(t *testing.T) {
	svc := newTestAssessmentService(&mockAssessmentRepo{}, &mockMarkRepo{}, fullAccess(), &mockClassFinder{}, nil, nil)

	_, err := svc.ExportMarksCSV(context.Background(), studentPrincipal, 50)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportMarksPDF(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[int64]*models.Assessment{50: {
		ID: 50, ClassID: 1, SubjectName: "Math", TeacherID: 2, Title: "Midterm", MaxScore: 100,
	}}}
	marks := &mockMarkRepo{sheetEntries: []models.MarkSheetEntry{{StudentID: 30, StudentName: "Alice A", Score: ptrFloat(90)}}}
	classes := &mockClassFinder{classes: map[int64]*models.Class{1: {ID: 1, Name: "10-A"}}}
	pdf := &mockPDFRenderer{}
	svc := newTestAssessmentService(repo, marks, fullAccess(), classes, nil, pdf)

	raw, err := svc.ExportMarksPDF(context.Background(), teacherPrincipal, 50)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "Midterm (10-A / Math)", pdf.lastTitle)
	assert.Equal(t, []string{"Student Name", "Score", "Comment"}, pdf.lastData.Headers)
}
