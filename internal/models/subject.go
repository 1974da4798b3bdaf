package models

import "time"

// Subject is a teachable subject in the catalog. Names are globally unique.
type Subject struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	GradeLevel  *string   `db:"grade_level" json:"grade_level,omitempty"`
	CreatedBy   *int64    `db:"created_by" json:"created_by,omitempty"`
	CreatedOn   time.Time `db:"created_on" json:"created_on"`
}
