package models

import "time"

// AssignmentStatus marks whether a student/class link is active.
type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "active"
	AssignmentStatusInactive AssignmentStatus = "inactive"
)

// TeacherClassRole describes the teacher's function within a class.
type TeacherClassRole string

const TeacherClassRolePrimary TeacherClassRole = "primary"

// StudentClassMap links a student to a class.
type StudentClassMap struct {
	ID         int64            `db:"id" json:"id"`
	StudentID  int64            `db:"student_id" json:"student_id"`
	ClassID    int64            `db:"class_id" json:"class_id"`
	AssignedBy *int64           `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedOn time.Time        `db:"assigned_on" json:"assigned_on"`
	Status     AssignmentStatus `db:"status" json:"status"`
}

// TeacherClassMap links a teacher to a class.
type TeacherClassMap struct {
	ID         int64            `db:"id" json:"id"`
	TeacherID  int64            `db:"teacher_id" json:"teacher_id"`
	ClassID    int64            `db:"class_id" json:"class_id"`
	AssignedBy *int64           `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedOn time.Time        `db:"assigned_on" json:"assigned_on"`
	Role       TeacherClassRole `db:"role" json:"role"`
}

// StudentSubject links a student to a subject by name.
type StudentSubject struct {
	ID          int64     `db:"id" json:"id"`
	StudentID   int64     `db:"student_id" json:"student_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	AssignedBy  *int64    `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedOn  time.Time `db:"assigned_on" json:"assigned_on"`
}

// TeacherSubject links a teacher to a subject by name.
type TeacherSubject struct {
	ID          int64     `db:"id" json:"id"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	AssignedBy  *int64    `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedOn  time.Time `db:"assigned_on" json:"assigned_on"`
}

// UserAssignments is the full assignment set held by one user.
type UserAssignments struct {
	ClassIDs     []int64  `json:"class_ids"`
	SubjectNames []string `json:"subject_names"`
}

// RosterEntry is a user row joined through a class mapping table.
type RosterEntry struct {
	UserID   int64  `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Name     string `db:"name" json:"name"`
}
