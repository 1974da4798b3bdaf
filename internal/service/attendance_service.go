package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type attendanceRepository interface {
	OverwriteBatch(ctx context.Context, records []models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	Summary(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceSummary, error)
}

type attendanceAccessChecker interface {
	HasTeacherClass(ctx context.Context, teacherID, classID int64) (bool, error)
	IsStudentEnrolled(ctx context.Context, studentID, classID int64) (bool, error)
}

// ReportCache stores derived report payloads with a TTL.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceEntry is one student's status within a marking request.
type AttendanceEntry struct {
	StudentID int64                   `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes,omitempty"`
}

// MarkAttendanceRequest records attendance for one class and day.
type MarkAttendanceRequest struct {
	ClassID int64             `json:"class_id" validate:"required"`
	Date    time.Time         `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceReport is the summary payload returned for report queries.
type AttendanceReport struct {
	Summary models.AttendanceSummary `json:"summary"`
	Records []models.Attendance      `json:"records"`
}

// AttendanceService manages the attendance ledger.
type AttendanceService struct {
	repo      attendanceRepository
	access    attendanceAccessChecker
	cache     ReportCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, access attendanceAccessChecker, cache ReportCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AttendanceService{repo: repo, access: access, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Mark records attendance for a class on one day. Teachers must hold an
// assignment to the class and every student must be actively enrolled;
// nothing is written when any entry fails validation. Marking the same
// (student, class, date) again replaces the earlier record.
func (s *AttendanceService) Mark(ctx context.Context, principal models.Principal, req MarkAttendanceRequest) error {
	if !principal.IsAdmin() && !principal.IsTeacher() {
		return appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can mark attendance")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if principal.IsTeacher() {
		ok, err := s.access.HasTeacherClass(ctx, principal.UserID, req.ClassID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this class")
		}
	}

	date := truncateToDay(req.Date)
	seen := make(map[int64]bool, len(req.Entries))
	records := make([]models.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q for student %d", entry.Status, entry.StudentID))
		}
		if seen[entry.StudentID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d listed more than once", entry.StudentID))
		}
		seen[entry.StudentID] = true

		enrolled, err := s.access.IsStudentEnrolled(ctx, entry.StudentID, req.ClassID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d is not enrolled in class %d", entry.StudentID, req.ClassID))
		}

		records = append(records, models.Attendance{
			StudentID: entry.StudentID,
			ClassID:   req.ClassID,
			Date:      date,
			Status:    entry.Status,
			Notes:     entry.Notes,
			MarkedBy:  &principal.UserID,
			MarkedOn:  time.Now().UTC(),
		})
	}

	if err := s.repo.OverwriteBatch(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidateReports(ctx, req.ClassID)
	s.logger.Info("attendance marked",
		zap.Int64("class_id", req.ClassID),
		zap.Time("date", date),
		zap.Int("entries", len(records)))
	return nil
}

// List returns attendance records scoped by the filter. Students only see
// their own records; teachers must be assigned to the class they query.
func (s *AttendanceService) List(ctx context.Context, principal models.Principal, filter models.AttendanceFilter) ([]models.Attendance, error) {
	if err := s.scopeFilter(ctx, principal, &filter); err != nil {
		return nil, err
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Report aggregates attendance counts and a presence percentage over the
// filter. Results are cached briefly; marking attendance for the class
// invalidates its cached reports.
func (s *AttendanceService) Report(ctx context.Context, principal models.Principal, filter models.AttendanceFilter) (*AttendanceReport, error) {
	if err := s.scopeFilter(ctx, principal, &filter); err != nil {
		return nil, err
	}

	key := reportCacheKey(filter)
	if s.cache != nil {
		var cached AttendanceReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	report := &AttendanceReport{Summary: *summary, Records: records}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance report", zap.Error(err))
		}
	}
	return report, nil
}

func (s *AttendanceService) scopeFilter(ctx context.Context, principal models.Principal, filter *models.AttendanceFilter) error {
	switch principal.Role {
	case models.RoleStudent:
		filter.StudentID = &principal.UserID
	case models.RoleTeacher:
		if filter.ClassID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "class_id is required")
		}
		ok, err := s.access.HasTeacherClass(ctx, principal.UserID, *filter.ClassID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this class")
		}
	}
	return nil
}

func (s *AttendanceService) invalidateReports(ctx context.Context, classID int64) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("attendance:report:c%d:*", classID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate attendance reports", zap.Error(err))
	}
}

func reportCacheKey(filter models.AttendanceFilter) string {
	classPart := "call"
	if filter.ClassID != nil {
		classPart = fmt.Sprintf("c%d", *filter.ClassID)
	}
	studentPart := "sall"
	if filter.StudentID != nil {
		studentPart = fmt.Sprintf("s%d", *filter.StudentID)
	}
	fromPart, toPart := "", ""
	if filter.DateFrom != nil {
		fromPart = filter.DateFrom.Format("2006-01-02")
	}
	if filter.DateTo != nil {
		toPart = filter.DateTo.Format("2006-01-02")
	}
	return fmt.Sprintf("attendance:report:%s:%s:%s:%s", classPart, studentPart, fromPart, toPart)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
