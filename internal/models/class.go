package models

import "time"

// ClassKind distinguishes regular classes from one-off sessions.
type ClassKind string

const (
	ClassKindRegular ClassKind = "regular"
	ClassKindSession ClassKind = "session"
)

// ClassStatus marks whether a class accepts activity.
type ClassStatus string

const (
	ClassStatusActive   ClassStatus = "active"
	ClassStatusInactive ClassStatus = "inactive"
)

// Class represents a class or session in the catalog.
type Class struct {
	ID                int64       `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	Kind              ClassKind   `db:"kind" json:"kind"`
	Description       *string     `db:"description" json:"description,omitempty"`
	GradeLevel        *string     `db:"grade_level" json:"grade_level,omitempty"`
	Section           *string     `db:"section" json:"section,omitempty"`
	ScheduleDays      *string     `db:"schedule_days" json:"schedule_days,omitempty"`
	ScheduleTimeStart *string     `db:"schedule_time_start" json:"schedule_time_start,omitempty"`
	ScheduleTimeEnd   *string     `db:"schedule_time_end" json:"schedule_time_end,omitempty"`
	SchedulePDFPath   *string     `db:"schedule_pdf_path" json:"schedule_pdf_path,omitempty"`
	MeetingLink       *string     `db:"meeting_link" json:"meeting_link,omitempty"`
	MaxStudents       int         `db:"max_students" json:"max_students"`
	Status            ClassStatus `db:"status" json:"status"`
	CreatedBy         *int64      `db:"created_by" json:"created_by,omitempty"`
	CreatedOn         time.Time   `db:"created_on" json:"created_on"`
	UpdatedBy         *int64      `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedOn         *time.Time  `db:"updated_on" json:"updated_on,omitempty"`
}

// ClassFilter captures listing criteria for classes.
type ClassFilter struct {
	Status    ClassStatus
	Kind      ClassKind
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
