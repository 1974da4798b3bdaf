package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type assignmentRepository interface {
	ReplaceForStudent(ctx context.Context, studentID int64, classIDs []int64, subjectNames []string, assignedBy int64) error
	ReplaceForTeacher(ctx context.Context, teacherID int64, classIDs []int64, subjectNames []string, assignedBy int64) error
	AssignmentsForUser(ctx context.Context, userID int64, role models.UserRole) (*models.UserAssignments, error)
	ClassRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error)
	TeachersForClass(ctx context.Context, classID int64) ([]models.RosterEntry, error)
}

type assignmentUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type assignmentClassLookup interface {
	MissingOrInactive(ctx context.Context, ids []int64) ([]int64, error)
}

type assignmentSubjectLookup interface {
	Missing(ctx context.Context, names []string) ([]string, error)
}

// AssignRequest carries a user's complete assignment set. Assigning replaces
// whatever the user held before; an empty set clears all assignments.
type AssignRequest struct {
	ClassIDs     []int64  `json:"class_ids"`
	SubjectNames []string `json:"subject_names"`
}

// AssignmentService maintains the links between users and classes/subjects.
type AssignmentService struct {
	repo      assignmentRepository
	users     assignmentUserLookup
	classes   assignmentClassLookup
	subjects  assignmentSubjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentRepository, users assignmentUserLookup, classes assignmentClassLookup, subjects assignmentSubjectLookup, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, users: users, classes: classes, subjects: subjects, validator: validate, logger: logger}
}

// Assign replaces the target user's full class and subject assignment set.
// The whole request is validated before anything changes: every class must
// exist and be active and every subject must be in the catalog, otherwise
// nothing is written. Repeating the same request is a no-op beyond timestamps.
func (s *AssignmentService) Assign(ctx context.Context, principal models.Principal, userID int64, req AssignRequest) error {
	if !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can manage assignments")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.Role != models.RoleStudent && user.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "assignments only apply to students and teachers")
	}

	classIDs := dedupeInt64(req.ClassIDs)
	subjectNames := dedupeStrings(req.SubjectNames)

	missingClasses, err := s.classes.MissingOrInactive(ctx, classIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate classes")
	}
	missingSubjects, err := s.subjects.Missing(ctx, subjectNames)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subjects")
	}
	if len(missingClasses) > 0 || len(missingSubjects) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, assignValidationMessage(missingClasses, missingSubjects))
	}

	if user.Role == models.RoleStudent {
		err = s.repo.ReplaceForStudent(ctx, userID, classIDs, subjectNames, principal.UserID)
	} else {
		err = s.repo.ReplaceForTeacher(ctx, userID, classIDs, subjectNames, principal.UserID)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace assignments")
	}

	s.logger.Info("assignments replaced",
		zap.Int64("user_id", userID),
		zap.String("role", string(user.Role)),
		zap.Int("classes", len(classIDs)),
		zap.Int("subjects", len(subjectNames)))
	return nil
}

// Get returns the class IDs and subject names held by a user. Students and
// teachers may read their own set; admins may read anyone's.
func (s *AssignmentService) Get(ctx context.Context, principal models.Principal, userID int64) (*models.UserAssignments, error) {
	if !principal.IsAdmin() && principal.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another user's assignments")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	assignments, err := s.repo.AssignmentsForUser(ctx, userID, user.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Roster returns the students actively assigned to a class.
func (s *AssignmentService) Roster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	roster, err := s.repo.ClassRoster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

// Teachers returns the teachers assigned to a class.
func (s *AssignmentService) Teachers(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	teachers, err := s.repo.TeachersForClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

func assignValidationMessage(missingClasses []int64, missingSubjects []string) string {
	var parts []string
	if len(missingClasses) > 0 {
		ids := make([]string, len(missingClasses))
		for i, id := range missingClasses {
			ids[i] = strconv.FormatInt(id, 10)
		}
		parts = append(parts, "unknown or inactive classes: "+strings.Join(ids, ", "))
	}
	if len(missingSubjects) > 0 {
		parts = append(parts, "unknown subjects: "+strings.Join(missingSubjects, ", "))
	}
	return fmt.Sprintf("assignment rejected (%s)", strings.Join(parts, "; "))
}

func dedupeInt64(values []int64) []int64 {
	seen := make(map[int64]bool, len(values))
	var out []int64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
