package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor record. SubjectIDs is resolved from the
// teacher_subjects join table, not a column.
type Teacher struct {
	ID             string         `db:"id" json:"id"`
	UserID         *string        `db:"user_id" json:"user_id,omitempty"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	TeachingTypes  pq.StringArray `db:"teaching_types" json:"teaching_types"`
	MaxConsecutive int            `db:"max_consecutive" json:"max_consecutive"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	SubjectIDs []string `db:"-" json:"subject_ids"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
