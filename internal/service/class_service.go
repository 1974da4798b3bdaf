package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	SetSchedulePDF(ctx context.Context, id int64, path string, updatedBy int64) error
	Delete(ctx context.Context, id int64) error
}

type scheduleStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// CreateClassRequest carries the fields needed to add a class.
type CreateClassRequest struct {
	Name              string           `json:"name" validate:"required"`
	Kind              models.ClassKind `json:"kind,omitempty"`
	Description       *string          `json:"description,omitempty"`
	GradeLevel        *string          `json:"grade_level,omitempty"`
	Section           *string          `json:"section,omitempty"`
	ScheduleDays      *string          `json:"schedule_days,omitempty"`
	ScheduleTimeStart *string          `json:"schedule_time_start,omitempty"`
	ScheduleTimeEnd   *string          `json:"schedule_time_end,omitempty"`
	MeetingLink       *string          `json:"meeting_link,omitempty"`
	MaxStudents       int              `json:"max_students" validate:"gte=0"`
}

// UpdateClassRequest carries mutable class fields.
type UpdateClassRequest struct {
	Name              *string             `json:"name,omitempty"`
	Description       *string             `json:"description,omitempty"`
	GradeLevel        *string             `json:"grade_level,omitempty"`
	Section           *string             `json:"section,omitempty"`
	ScheduleDays      *string             `json:"schedule_days,omitempty"`
	ScheduleTimeStart *string             `json:"schedule_time_start,omitempty"`
	ScheduleTimeEnd   *string             `json:"schedule_time_end,omitempty"`
	MeetingLink       *string             `json:"meeting_link,omitempty"`
	MaxStudents       *int                `json:"max_students,omitempty" validate:"omitempty,gte=0"`
	Status            *models.ClassStatus `json:"status,omitempty"`
}

// ClassService manages the class catalog.
type ClassService struct {
	repo      classRepository
	storage   scheduleStorage
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, storage scheduleStorage, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, storage: storage, validator: validate, logger: logger}
}

// Create adds a class to the catalog. Only admins may call it.
func (s *ClassService) Create(ctx context.Context, principal models.Principal, req CreateClassRequest) (*models.Class, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can create classes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := &models.Class{
		Name:              req.Name,
		Kind:              req.Kind,
		Description:       req.Description,
		GradeLevel:        req.GradeLevel,
		Section:           req.Section,
		ScheduleDays:      req.ScheduleDays,
		ScheduleTimeStart: req.ScheduleTimeStart,
		ScheduleTimeEnd:   req.ScheduleTimeEnd,
		MeetingLink:       req.MeetingLink,
		MaxStudents:       req.MaxStudents,
		CreatedBy:         &principal.UserID,
		CreatedOn:         time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.Int64("class_id", class.ID), zap.String("name", class.Name))
	return class, nil
}

// Get returns a class by ID.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	return class, nil
}

// List returns classes matching the filter along with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update applies changes to a class. Only admins may call it.
func (s *ClassService) Update(ctx context.Context, principal models.Principal, id int64, req UpdateClassRequest) (*models.Class, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can update classes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Description != nil {
		class.Description = req.Description
	}
	if req.GradeLevel != nil {
		class.GradeLevel = req.GradeLevel
	}
	if req.Section != nil {
		class.Section = req.Section
	}
	if req.ScheduleDays != nil {
		class.ScheduleDays = req.ScheduleDays
	}
	if req.ScheduleTimeStart != nil {
		class.ScheduleTimeStart = req.ScheduleTimeStart
	}
	if req.ScheduleTimeEnd != nil {
		class.ScheduleTimeEnd = req.ScheduleTimeEnd
	}
	if req.MeetingLink != nil {
		class.MeetingLink = req.MeetingLink
	}
	if req.MaxStudents != nil {
		class.MaxStudents = *req.MaxStudents
	}
	if req.Status != nil {
		class.Status = *req.Status
	}
	class.UpdatedBy = &principal.UserID

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// AttachSchedulePDF stores an uploaded schedule document for the class and
// records its path. A previous document for the class is replaced.
func (s *ClassService) AttachSchedulePDF(ctx context.Context, principal models.Principal, id int64, r io.Reader) (string, error) {
	if !principal.IsAdmin() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only admins can attach schedules")
	}
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "schedule storage unavailable")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	filename := fmt.Sprintf("class_%d_schedule.pdf", id)
	stored, err := s.storage.SaveStream(filename, r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}
	if err := s.repo.SetSchedulePDF(ctx, id, stored, principal.UserID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record schedule path")
	}

	s.logger.Info("schedule attached", zap.Int64("class_id", class.ID), zap.String("path", stored))
	return stored, nil
}

// Delete removes a class and its dependent rows. Only admins may call it.
func (s *ClassService) Delete(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete classes")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if class.SchedulePDFPath != nil && s.storage != nil {
		if err := s.storage.Delete(*class.SchedulePDFPath); err != nil {
			s.logger.Warn("failed to remove schedule file", zap.Error(err))
		}
	}
	s.logger.Info("class deleted", zap.Int64("class_id", id), zap.Int64("deleted_by", principal.UserID))
	return nil
}
