package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AssignmentRepository maintains the many-to-many links between users and
// classes/subjects.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ReplaceForStudent swaps the student's full class and subject assignment set
// in one transaction. The previous links are deleted and the new set inserted
// stamped with the assigning actor.
func (r *AssignmentRepository) ReplaceForStudent(ctx context.Context, studentID int64, classIDs []int64, subjectNames []string, assignedBy int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_class_map WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("clear student classes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("clear student subjects: %w", err)
	}

	now := time.Now().UTC()
	for _, classID := range classIDs {
		const query = `INSERT INTO student_class_map (student_id, class_id, assigned_by, assigned_on, status)
            VALUES ($1, $2, $3, $4, 'active')
            ON CONFLICT (student_id, class_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, studentID, classID, assignedBy, now); err != nil {
			return fmt.Errorf("assign student class: %w", err)
		}
	}
	for _, name := range subjectNames {
		const query = `INSERT INTO student_subjects (student_id, subject_name, assigned_by, assigned_on)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (student_id, subject_name) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, studentID, name, assignedBy, now); err != nil {
			return fmt.Errorf("assign student subject: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// ReplaceForTeacher swaps the teacher's full class and subject assignment set
// in one transaction.
func (r *AssignmentRepository) ReplaceForTeacher(ctx context.Context, teacherID int64, classIDs []int64, subjectNames []string, assignedBy int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_class_map WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher classes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}

	now := time.Now().UTC()
	for _, classID := range classIDs {
		const query = `INSERT INTO teacher_class_map (teacher_id, class_id, assigned_by, assigned_on, role)
            VALUES ($1, $2, $3, $4, 'primary')
            ON CONFLICT (teacher_id, class_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, teacherID, classID, assignedBy, now); err != nil {
			return fmt.Errorf("assign teacher class: %w", err)
		}
	}
	for _, name := range subjectNames {
		const query = `INSERT INTO teacher_subjects (teacher_id, subject_name, assigned_by, assigned_on)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (teacher_id, subject_name) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, teacherID, name, assignedBy, now); err != nil {
			return fmt.Errorf("assign teacher subject: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// AssignmentsForUser returns the class IDs and subject names held by a user.
func (r *AssignmentRepository) AssignmentsForUser(ctx context.Context, userID int64, role models.UserRole) (*models.UserAssignments, error) {
	classQuery := `SELECT class_id FROM student_class_map WHERE student_id = $1 ORDER BY class_id`
	subjectQuery := `SELECT subject_name FROM student_subjects WHERE student_id = $1 ORDER BY subject_name`
	if role == models.RoleTeacher {
		classQuery = `SELECT class_id FROM teacher_class_map WHERE teacher_id = $1 ORDER BY class_id`
		subjectQuery = `SELECT subject_name FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_name`
	}

	assignments := &models.UserAssignments{}
	if err := r.db.SelectContext(ctx, &assignments.ClassIDs, classQuery, userID); err != nil {
		return nil, fmt.Errorf("list class assignments: %w", err)
	}
	if err := r.db.SelectContext(ctx, &assignments.SubjectNames, subjectQuery, userID); err != nil {
		return nil, fmt.Errorf("list subject assignments: %w", err)
	}
	return assignments, nil
}

// ClassRoster returns the students actively assigned to a class.
func (r *AssignmentRepository) ClassRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	const query = `SELECT u.id AS user_id, u.username, u.name FROM users u
        JOIN student_class_map scm ON scm.student_id = u.id
        WHERE scm.class_id = $1 AND scm.status = 'active'
        ORDER BY u.name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}

// TeachersForClass returns the teachers assigned to a class.
func (r *AssignmentRepository) TeachersForClass(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	const query = `SELECT u.id AS user_id, u.username, u.name FROM users u
        JOIN teacher_class_map tcm ON tcm.teacher_id = u.id
        WHERE tcm.class_id = $1
        ORDER BY u.name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classID); err != nil {
		return nil, fmt.Errorf("list class teachers: %w", err)
	}
	return roster, nil
}

// HasTeacherClass reports whether the teacher holds an assignment to the class.
func (r *AssignmentRepository) HasTeacherClass(ctx context.Context, teacherID, classID int64) (bool, error) {
	const query = `SELECT 1 FROM teacher_class_map WHERE teacher_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher class: %w", err)
	}
	return true, nil
}

// HasTeacherSubject reports whether the teacher holds an assignment to the subject.
func (r *AssignmentRepository) HasTeacherSubject(ctx context.Context, teacherID int64, subjectName string) (bool, error) {
	const query = `SELECT 1 FROM teacher_subjects WHERE teacher_id = $1 AND subject_name = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, subjectName); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher subject: %w", err)
	}
	return true, nil
}

// IsStudentEnrolled reports whether the student has an active link to the class.
func (r *AssignmentRepository) IsStudentEnrolled(ctx context.Context, studentID, classID int64) (bool, error) {
	const query = `SELECT 1 FROM student_class_map WHERE student_id = $1 AND class_id = $2 AND status = 'active' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student enrollment: %w", err)
	}
	return true, nil
}
