package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
)

type assessmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Assessment, error)
	Exists(ctx context.Context, classID int64, subjectName, title string, date time.Time) (bool, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	ListByClassSubject(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.Assessment, error)
	DeleteCascade(ctx context.Context, id int64) error
}

type markRepository interface {
	SaveBatch(ctx context.Context, marks []models.Mark) (inserted, updated int, err error)
	ListByAssessment(ctx context.Context, assessmentID int64) ([]models.Mark, error)
	WeightedRows(ctx context.Context, studentID, classID int64, subjectName string) ([]models.WeightedMarkRow, error)
	Stats(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.AssessmentStats, error)
	SheetEntries(ctx context.Context, assessmentID, classID int64) ([]models.MarkSheetEntry, error)
}

type assessmentAccessChecker interface {
	HasTeacherClass(ctx context.Context, teacherID, classID int64) (bool, error)
	HasTeacherSubject(ctx context.Context, teacherID int64, subjectName string) (bool, error)
	IsStudentEnrolled(ctx context.Context, studentID, classID int64) (bool, error)
}

type assessmentClassLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// CreateAssessmentRequest carries the fields needed to add an assessment.
type CreateAssessmentRequest struct {
	ClassID     int64     `json:"class_id" validate:"required"`
	SubjectName string    `json:"subject_name" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description,omitempty"`
	Date        time.Time `json:"assessment_date" validate:"required"`
	MaxScore    float64   `json:"max_score" validate:"required,gt=0"`
	Weight      float64   `json:"weight" validate:"gte=0,lte=1"`
}

// MarkEntry is one student's score within a save request. A nil score marks
// the entry as intentionally blank and it is skipped without error.
type MarkEntry struct {
	StudentID int64    `json:"student_id" validate:"required"`
	Score     *float64 `json:"score,omitempty"`
	Comment   *string  `json:"comment,omitempty"`
}

// MarkEntryError describes why a single entry was rejected.
type MarkEntryError struct {
	StudentID int64  `json:"student_id"`
	Reason    string `json:"reason"`
}

// SaveMarksResult reports the outcome of a batch save. Valid entries commit
// even when others fail.
type SaveMarksResult struct {
	Saved   int              `json:"saved"`
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  []MarkEntryError `json:"errors,omitempty"`
}

// SubjectAverage is a student's weighted average for one class and subject.
type SubjectAverage struct {
	StudentID   int64   `json:"student_id"`
	ClassID     int64   `json:"class_id"`
	SubjectName string  `json:"subject_name"`
	Average     float64 `json:"average"`
	Assessments int     `json:"assessments"`
}

// AssessmentService manages assessments and the marks recorded against them.
type AssessmentService struct {
	assessments assessmentRepository
	marks       markRepository
	access      assessmentAccessChecker
	classes     assessmentClassLookup
	cache       ReportCache
	cacheTTL    time.Duration
	csv         csvRenderer
	pdf         pdfRenderer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssessmentService constructs an AssessmentService instance.
func NewAssessmentService(assessments assessmentRepository, marks markRepository, access assessmentAccessChecker, classes assessmentClassLookup, cache ReportCache, cacheTTL time.Duration, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AssessmentService{
		assessments: assessments,
		marks:       marks,
		access:      access,
		classes:     classes,
		cache:       cache,
		cacheTTL:    cacheTTL,
		csv:         csv,
		pdf:         pdf,
		validator:   validate,
		logger:      logger,
	}
}

// Create adds an assessment. Teachers must hold assignments to both the class
// and the subject; a duplicate (class, subject, title, date) is rejected.
func (s *AssessmentService) Create(ctx context.Context, principal models.Principal, req CreateAssessmentRequest) (*models.Assessment, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can create assessments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}

	if principal.IsTeacher() {
		if err := s.checkTeacherScope(ctx, principal.UserID, req.ClassID, req.SubjectName); err != nil {
			return nil, err
		}
	}

	date := truncateToDay(req.Date)
	exists, err := s.assessments.Exists(ctx, req.ClassID, req.SubjectName, req.Title, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicate")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an assessment with this title already exists for the class, subject and date")
	}

	assessment := &models.Assessment{
		ClassID:     req.ClassID,
		SubjectName: req.SubjectName,
		TeacherID:   principal.UserID,
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		MaxScore:    req.MaxScore,
		Weight:      req.Weight,
		CreatedOn:   time.Now().UTC(),
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}

	s.invalidateStatistics(ctx, req.ClassID, req.SubjectName)
	s.logger.Info("assessment created",
		zap.Int64("assessment_id", assessment.ID),
		zap.Int64("class_id", assessment.ClassID),
		zap.String("subject", assessment.SubjectName))
	return assessment, nil
}

// Get returns an assessment by ID.
func (s *AssessmentService) Get(ctx context.Context, id int64) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assessment")
	}
	return assessment, nil
}

// List returns a class+subject's assessments, optionally scoped by dates.
func (s *AssessmentService) List(ctx context.Context, classID int64, subjectName string, from, to *time.Time) ([]models.Assessment, error) {
	assessments, err := s.assessments.ListByClassSubject(ctx, classID, subjectName, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// SaveMarks records scores for an assessment with per-entry outcomes. Blank
// scores are skipped, out-of-range scores and unenrolled students produce
// per-entry errors, and every remaining valid entry commits together.
// Re-saving a student's score replaces the earlier value.
func (s *AssessmentService) SaveMarks(ctx context.Context, principal models.Principal, assessmentID int64, entries []MarkEntry) (*SaveMarksResult, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can save marks")
	}

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assessment")
	}
	if principal.IsTeacher() && assessment.TeacherID != principal.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assessment belongs to another teacher")
	}

	result := &SaveMarksResult{}
	seen := make(map[int64]bool, len(entries))
	var valid []models.Mark
	for _, entry := range entries {
		if entry.Score == nil {
			result.Skipped++
			continue
		}
		if seen[entry.StudentID] {
			result.Errors = append(result.Errors, MarkEntryError{StudentID: entry.StudentID, Reason: "student listed more than once"})
			continue
		}
		seen[entry.StudentID] = true

		if *entry.Score < 0 || *entry.Score > assessment.MaxScore {
			result.Errors = append(result.Errors, MarkEntryError{
				StudentID: entry.StudentID,
				Reason:    fmt.Sprintf("score %s is outside 0..%s", formatFloat(*entry.Score), formatFloat(assessment.MaxScore)),
			})
			continue
		}

		enrolled, err := s.access.IsStudentEnrolled(ctx, entry.StudentID, assessment.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			result.Errors = append(result.Errors, MarkEntryError{StudentID: entry.StudentID, Reason: "student is not enrolled in the class"})
			continue
		}

		valid = append(valid, models.Mark{
			AssessmentID: assessmentID,
			StudentID:    entry.StudentID,
			Score:        *entry.Score,
			Comment:      entry.Comment,
		})
	}

	inserted, updated, err := s.marks.SaveBatch(ctx, valid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save marks")
	}
	result.Saved = inserted
	result.Updated = updated

	s.invalidateStatistics(ctx, assessment.ClassID, assessment.SubjectName)
	s.logger.Info("marks saved",
		zap.Int64("assessment_id", assessmentID),
		zap.Int("saved", result.Saved),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// ListMarks returns the recorded marks for one assessment. Teachers must
// hold assignments to the assessment's class and subject; admins may read
// any assessment's marks.
func (s *AssessmentService) ListMarks(ctx context.Context, principal models.Principal, assessmentID int64) ([]models.Mark, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can list marks")
	}

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assessment")
	}
	if principal.IsTeacher() {
		if err := s.checkTeacherScope(ctx, principal.UserID, assessment.ClassID, assessment.SubjectName); err != nil {
			return nil, err
		}
	}

	marks, err := s.marks.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// StudentAverage computes a student's weighted average for one class and
// subject. Each scored assessment contributes score/max_score*100 scaled by
// its weight; assessments the student was never scored on are left out
// entirely. No scored assessments yields an average of zero.
func (s *AssessmentService) StudentAverage(ctx context.Context, principal models.Principal, studentID, classID int64, subjectName string) (*SubjectAverage, error) {
	if principal.Role == models.RoleStudent && principal.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another student's average")
	}
	if principal.IsTeacher() {
		if err := s.checkTeacherScope(ctx, principal.UserID, classID, subjectName); err != nil {
			return nil, err
		}
	}

	rows, err := s.marks.WeightedRows(ctx, studentID, classID, subjectName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	average := &SubjectAverage{
		StudentID:   studentID,
		ClassID:     classID,
		SubjectName: subjectName,
		Average:     weightedAverage(rows),
		Assessments: len(rows),
	}
	return average, nil
}

// ClassStatistics returns per-assessment descriptive statistics for a class
// and subject, optionally scoped by dates. Results are cached briefly.
func (s *AssessmentService) ClassStatistics(ctx context.Context, principal models.Principal, classID int64, subjectName string, from, to *time.Time) ([]models.AssessmentStats, error) {
	if principal.IsTeacher() {
		if err := s.checkTeacherScope(ctx, principal.UserID, classID, subjectName); err != nil {
			return nil, err
		}
	}

	key := statsCacheKey(classID, subjectName, from, to)
	if s.cache != nil {
		var cached []models.AssessmentStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	stats, err := s.marks.Stats(ctx, classID, subjectName, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache statistics", zap.Error(err))
		}
	}
	return stats, nil
}

// ExportStatisticsCSV renders the class statistics table as plain CSV, one
// row per assessment. Access follows ClassStatistics.
func (s *AssessmentService) ExportStatisticsCSV(ctx context.Context, principal models.Principal, classID int64, subjectName string, from, to *time.Time) ([]byte, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can export statistics")
	}
	stats, err := s.ClassStatistics(ctx, principal, classID, subjectName, from, to)
	if err != nil {
		return nil, err
	}
	if s.csv == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "csv renderer unavailable")
	}

	dataset := export.Dataset{Headers: []string{"Title", "Date", "Max Score", "Count", "Mean", "Min", "Max"}}
	for _, row := range stats {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":     row.Title,
			"Date":      row.Date.Format("2006-01-02"),
			"Max Score": formatFloat(row.MaxScore),
			"Count":     strconv.Itoa(row.Count),
			"Mean":      formatFloat(row.Mean),
			"Min":       formatFloat(row.Min),
			"Max":       formatFloat(row.Max),
		})
	}
	rendered, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return rendered, nil
}

// Delete removes an assessment and all of its marks. Teachers may only
// delete their own assessments; admins may delete any.
func (s *AssessmentService) Delete(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can delete assessments")
	}

	assessment, err := s.assessments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assessment")
	}
	if principal.IsTeacher() && assessment.TeacherID != principal.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "assessment belongs to another teacher")
	}

	if err := s.assessments.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment")
	}

	s.invalidateStatistics(ctx, assessment.ClassID, assessment.SubjectName)
	s.logger.Info("assessment deleted", zap.Int64("assessment_id", id), zap.Int64("deleted_by", principal.UserID))
	return nil
}

// ExportMarksCSV renders the assessment's mark sheet as CSV. One row per
// enrolled student; students without a recorded mark have empty score and
// comment fields. The assessment weight is never part of the export.
func (s *AssessmentService) ExportMarksCSV(ctx context.Context, principal models.Principal, assessmentID int64) ([]byte, error) {
	sheet, err := s.buildMarkSheet(ctx, principal, assessmentID)
	if err != nil {
		return nil, err
	}
	return export.RenderMarkSheet(*sheet), nil
}

// ExportMarksPDF renders the assessment's mark sheet as a tabular PDF.
func (s *AssessmentService) ExportMarksPDF(ctx context.Context, principal models.Principal, assessmentID int64) ([]byte, error) {
	sheet, err := s.buildMarkSheet(ctx, principal, assessmentID)
	if err != nil {
		return nil, err
	}
	if s.pdf == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "pdf renderer unavailable")
	}

	dataset := export.Dataset{Headers: []string{"Student Name", "Score", "Comment"}}
	for _, row := range sheet.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student Name": row.StudentName,
			"Score":        row.Score,
			"Comment":      row.Comment,
		})
	}
	title := fmt.Sprintf("%s (%s / %s)", sheet.AssessmentTitle, sheet.ClassName, sheet.Subject)
	rendered, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return rendered, nil
}

func (s *AssessmentService) buildMarkSheet(ctx context.Context, principal models.Principal, assessmentID int64) (*export.MarkSheet, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can export marks")
	}

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assessment")
	}
	if principal.IsTeacher() {
		if err := s.checkTeacherScope(ctx, principal.UserID, assessment.ClassID, assessment.SubjectName); err != nil {
			return nil, err
		}
	}

	class, err := s.classes.FindByID(ctx, assessment.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	entries, err := s.marks.SheetEntries(ctx, assessmentID, assessment.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark sheet")
	}

	sheet := &export.MarkSheet{
		AssessmentTitle: assessment.Title,
		ClassName:       class.Name,
		Subject:         assessment.SubjectName,
		MaxScore:        assessment.MaxScore,
	}
	for _, entry := range entries {
		row := export.MarkSheetRow{StudentName: entry.StudentName}
		if entry.Score != nil {
			row.Score = formatFloat(*entry.Score)
		}
		if entry.Comment != nil {
			row.Comment = *entry.Comment
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func (s *AssessmentService) checkTeacherScope(ctx context.Context, teacherID, classID int64, subjectName string) error {
	hasClass, err := s.access.HasTeacherClass(ctx, teacherID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
	}
	if !hasClass {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this class")
	}
	hasSubject, err := s.access.HasTeacherSubject(ctx, teacherID, subjectName)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject access")
	}
	if !hasSubject {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this subject")
	}
	return nil
}

func (s *AssessmentService) invalidateStatistics(ctx context.Context, classID int64, subjectName string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("marks:stats:c%d:%s:*", classID, subjectName)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
	}
}

// weightedAverage folds scored assessments into a percentage: each row
// contributes score/max*100 scaled by its weight, normalised by the total
// weight of the rows present. No rows, or all-zero weights, yields zero.
func weightedAverage(rows []models.WeightedMarkRow) float64 {
	var weightedSum, totalWeight float64
	for _, row := range rows {
		if row.MaxScore <= 0 {
			continue
		}
		weightedSum += row.Score / row.MaxScore * 100 * row.Weight
		totalWeight += row.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Round(weightedSum/totalWeight*100) / 100
}

func statsCacheKey(classID int64, subjectName string, from, to *time.Time) string {
	fromPart, toPart := "", ""
	if from != nil {
		fromPart = from.Format("2006-01-02")
	}
	if to != nil {
		toPart = to.Format("2006-01-02")
	}
	return fmt.Sprintf("marks:stats:c%d:%s:%s:%s", classID, subjectName, fromPart, toPart)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
