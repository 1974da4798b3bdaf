package models

import "time"

// AttendanceStatus is the per-day status recorded for a student.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether the status is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is one status record per (student, class, date).
type Attendance struct {
	ID        int64            `db:"id" json:"id"`
	StudentID int64            `db:"student_id" json:"student_id"`
	ClassID   int64            `db:"class_id" json:"class_id"`
	Date      time.Time        `db:"attendance_date" json:"attendance_date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	MarkedBy  *int64           `db:"marked_by" json:"marked_by,omitempty"`
	MarkedOn  time.Time        `db:"marked_on" json:"marked_on"`
}

// AttendanceFilter scopes attendance queries.
type AttendanceFilter struct {
	ClassID   *int64
	StudentID *int64
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AttendanceSummary aggregates status counts over a filter.
type AttendanceSummary struct {
	Present    int     `db:"present" json:"present"`
	Absent     int     `db:"absent" json:"absent"`
	Late       int     `db:"late" json:"late"`
	Excused    int     `db:"excused" json:"excused"`
	Total      int     `db:"total" json:"total"`
	Percentage float64 `json:"percentage"`
}
