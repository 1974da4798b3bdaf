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

type doubtRepository interface {
	Create(ctx context.Context, doubt *models.Doubt) error
	FindByID(ctx context.Context, id int64) (*models.Doubt, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Doubt, error)
	ListOpen(ctx context.Context) ([]models.Doubt, error)
	ListOpenForSubjects(ctx context.Context, subjects []string) ([]models.Doubt, error)
	Answer(ctx context.Context, id int64, responderID int64, responseText string, resolvedOn time.Time) (bool, error)
}

type doubtAssignmentLookup interface {
	AssignmentsForUser(ctx context.Context, userID int64, role models.UserRole) (*models.UserAssignments, error)
}

// SubmitDoubtRequest carries a student's question.
type SubmitDoubtRequest struct {
	Subject   string `json:"subject" validate:"required"`
	DoubtText string `json:"doubt_text" validate:"required"`
}

// AnswerDoubtRequest carries the response to an open doubt.
type AnswerDoubtRequest struct {
	ResponseText string `json:"response_text" validate:"required"`
}

// DoubtService manages student doubt threads.
type DoubtService struct {
	repo        doubtRepository
	assignments doubtAssignmentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDoubtService constructs a DoubtService instance.
func NewDoubtService(repo doubtRepository, assignments doubtAssignmentLookup, validate *validator.Validate, logger *zap.Logger) *DoubtService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DoubtService{repo: repo, assignments: assignments, validator: validate, logger: logger}
}

// Submit records a new open doubt for the calling student.
func (s *DoubtService) Submit(ctx context.Context, principal models.Principal, req SubmitDoubtRequest) (*models.Doubt, error) {
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit doubts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doubt payload")
	}

	doubt := &models.Doubt{
		StudentID:   principal.UserID,
		Subject:     req.Subject,
		DoubtText:   req.DoubtText,
		Status:      models.DoubtOpen,
		SubmittedOn: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, doubt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit doubt")
	}

	s.logger.Info("doubt submitted", zap.Int64("doubt_id", doubt.ID), zap.String("subject", doubt.Subject))
	return doubt, nil
}

// ListMine returns the calling student's doubts, newest first.
func (s *DoubtService) ListMine(ctx context.Context, principal models.Principal) ([]models.Doubt, error) {
	doubts, err := s.repo.ListByStudent(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doubts")
	}
	return doubts, nil
}

// ListOpen returns the open doubt backlog. Admins see everything; teachers
// see only doubts for subjects they are assigned to.
func (s *DoubtService) ListOpen(ctx context.Context, principal models.Principal) ([]models.Doubt, error) {
	switch principal.Role {
	case models.RoleAdmin:
		doubts, err := s.repo.ListOpen(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doubts")
		}
		return doubts, nil
	case models.RoleTeacher:
		assignments, err := s.assignments.AssignmentsForUser(ctx, principal.UserID, models.RoleTeacher)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject assignments")
		}
		doubts, err := s.repo.ListOpenForSubjects(ctx, assignments.SubjectNames)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doubts")
		}
		return doubts, nil
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot browse the doubt backlog")
}

// Answer resolves an open doubt with a response. Answered is terminal, so a
// second answer for the same doubt is rejected.
func (s *DoubtService) Answer(ctx context.Context, principal models.Principal, id int64, req AnswerDoubtRequest) (*models.Doubt, error) {
	if !principal.IsTeacher() && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can answer doubts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answer payload")
	}

	doubt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doubt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doubt")
	}

	if principal.IsTeacher() {
		assignments, err := s.assignments.AssignmentsForUser(ctx, principal.UserID, models.RoleTeacher)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject assignments")
		}
		if !containsString(assignments.SubjectNames, doubt.Subject) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to this subject")
		}
	}

	answered, err := s.repo.Answer(ctx, id, principal.UserID, req.ResponseText, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to answer doubt")
	}
	if !answered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "doubt is already answered")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doubt")
	}
	s.logger.Info("doubt answered", zap.Int64("doubt_id", id), zap.Int64("answered_by", principal.UserID))
	return updated, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
