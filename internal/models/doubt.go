package models

import "time"

// DoubtStatus is the doubt thread state. Answered is terminal.
type DoubtStatus string

const (
	DoubtOpen     DoubtStatus = "open"
	DoubtAnswered DoubtStatus = "answered"
)

// Doubt is a one-shot student question with an optional answer.
type Doubt struct {
	ID           int64       `db:"id" json:"id"`
	StudentID    int64       `db:"student_id" json:"student_id"`
	Subject      string      `db:"subject" json:"subject"`
	DoubtText    string      `db:"doubt_text" json:"doubt_text"`
	Status       DoubtStatus `db:"status" json:"status"`
	ResponseText *string     `db:"response_text" json:"response_text,omitempty"`
	ResolvedBy   *int64      `db:"resolved_by" json:"resolved_by,omitempty"`
	SubmittedOn  time.Time   `db:"submitted_on" json:"submitted_on"`
	ResolvedOn   *time.Time  `db:"resolved_on" json:"resolved_on,omitempty"`
}
