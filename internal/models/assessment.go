package models

import "time"

// Assessment is a gradable event scoped to a class, subject and teacher.
type Assessment struct {
	ID          int64     `db:"id" json:"id"`
	ClassID     int64     `db:"class_id" json:"class_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Date        time.Time `db:"assessment_date" json:"assessment_date"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	Weight      float64   `db:"weight" json:"weight"`
	CreatedOn   time.Time `db:"created_at" json:"created_at"`
}

// Mark is one score per student per assessment.
type Mark struct {
	ID           int64     `db:"id" json:"id"`
	AssessmentID int64     `db:"assessment_id" json:"assessment_id"`
	StudentID    int64     `db:"student_id" json:"student_id"`
	Score        float64   `db:"score" json:"score"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	UpdatedOn    time.Time `db:"updated_at" json:"updated_at"`
}

// WeightedMarkRow joins a mark with its assessment's scoring parameters.
type WeightedMarkRow struct {
	AssessmentID int64   `db:"assessment_id" json:"assessment_id"`
	Score        float64 `db:"score" json:"score"`
	MaxScore     float64 `db:"max_score" json:"max_score"`
	Weight       float64 `db:"weight" json:"weight"`
}

// AssessmentStats holds descriptive statistics over recorded marks of one
// assessment.
type AssessmentStats struct {
	AssessmentID int64     `db:"assessment_id" json:"assessment_id"`
	Title        string    `db:"title" json:"title"`
	Date         time.Time `db:"assessment_date" json:"assessment_date"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Count        int       `db:"count" json:"count"`
	Mean         float64   `db:"mean" json:"mean"`
	Min          float64   `db:"min" json:"min"`
	Max          float64   `db:"max" json:"max"`
}

// MarkSheetEntry is one student row of an assessment's mark sheet; students
// without a recorded mark have nil score and comment.
type MarkSheetEntry struct {
	StudentID   int64    `db:"student_id" json:"student_id"`
	StudentName string   `db:"student_name" json:"student_name"`
	Score       *float64 `db:"score" json:"score,omitempty"`
	Comment     *string  `db:"comment" json:"comment,omitempty"`
}
