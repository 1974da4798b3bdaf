package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByID(ctx context.Context, id int64) (*models.Feedback, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Feedback, error)
	ListAll(ctx context.Context) ([]models.Feedback, error)
	Respond(ctx context.Context, id int64, responderID int64, response string, respondedOn time.Time) (bool, error)
}

// SubmitFeedbackRequest carries a student's feedback submission.
type SubmitFeedbackRequest struct {
	FeedbackType string  `json:"feedback_type" validate:"required"`
	SubjectName  *string `json:"subject_name,omitempty"`
	TeacherID    *int64  `json:"teacher_id,omitempty"`
	ClassID      *int64  `json:"class_id,omitempty"`
	Rating       int     `json:"rating" validate:"required,gte=1,lte=5"`
	FeedbackText string  `json:"feedback_text" validate:"required"`
}

// RespondFeedbackRequest carries an admin's response to pending feedback.
type RespondFeedbackRequest struct {
	Response string `json:"response" validate:"required"`
}

// FeedbackService manages student feedback threads.
type FeedbackService struct {
	repo      feedbackRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs a FeedbackService instance.
func NewFeedbackService(repo feedbackRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, validator: validate, logger: logger}
}

// Submit records a new pending feedback item for the calling student.
func (s *FeedbackService) Submit(ctx context.Context, principal models.Principal, req SubmitFeedbackRequest) (*models.Feedback, error) {
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit feedback")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	feedback := &models.Feedback{
		StudentID:    principal.UserID,
		FeedbackType: req.FeedbackType,
		SubjectName:  req.SubjectName,
		TeacherID:    req.TeacherID,
		ClassID:      req.ClassID,
		Rating:       req.Rating,
		FeedbackText: req.FeedbackText,
		Status:       models.FeedbackPending,
		SubmittedOn:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit feedback")
	}

	s.logger.Info("feedback submitted", zap.Int64("feedback_id", feedback.ID), zap.String("type", feedback.FeedbackType))
	return feedback, nil
}

// ListMine returns the calling student's feedback, newest first.
func (s *FeedbackService) ListMine(ctx context.Context, principal models.Principal) ([]models.Feedback, error) {
	items, err := s.repo.ListByStudent(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return items, nil
}

// ListAll returns every feedback item, pending first. Only admins may call it.
func (s *FeedbackService) ListAll(ctx context.Context, principal models.Principal) ([]models.Feedback, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can browse all feedback")
	}
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return items, nil
}

// Respond resolves a pending feedback item with an admin response. Resolved
// is terminal, so responding twice is rejected.
func (s *FeedbackService) Respond(ctx context.Context, principal models.Principal, id int64, req RespondFeedbackRequest) (*models.Feedback, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can respond to feedback")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch feedback")
	}

	responded, err := s.repo.Respond(ctx, id, principal.UserID, req.Response, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to respond to feedback")
	}
	if !responded {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback is already resolved")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch feedback")
	}
	s.logger.Info("feedback resolved", zap.Int64("feedback_id", id), zap.Int64("responded_by", principal.UserID))
	return updated, nil
}
