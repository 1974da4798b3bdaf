package models

import "time"

// FeedbackStatus tracks review progress. Resolved is terminal.
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackReviewed FeedbackStatus = "reviewed"
	FeedbackResolved FeedbackStatus = "resolved"
)

// Feedback is a one-shot student submission with an optional admin response.
type Feedback struct {
	ID            int64          `db:"id" json:"id"`
	StudentID     int64          `db:"student_id" json:"student_id"`
	FeedbackType  string         `db:"feedback_type" json:"feedback_type"`
	SubjectName   *string        `db:"subject_name" json:"subject_name,omitempty"`
	TeacherID     *int64         `db:"teacher_id" json:"teacher_id,omitempty"`
	ClassID       *int64         `db:"class_id" json:"class_id,omitempty"`
	Rating        int            `db:"rating" json:"rating"`
	FeedbackText  string         `db:"feedback_text" json:"feedback_text"`
	Status        FeedbackStatus `db:"status" json:"status"`
	AdminResponse *string        `db:"admin_response" json:"admin_response,omitempty"`
	RespondedBy   *int64         `db:"responded_by" json:"responded_by,omitempty"`
	SubmittedOn   time.Time      `db:"submitted_on" json:"submitted_on"`
	RespondedOn   *time.Time     `db:"responded_on" json:"responded_on,omitempty"`
}
