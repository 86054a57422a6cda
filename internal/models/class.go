package models

import "time"

// Class represents a student group. SubjectIDs is resolved from the
// class_subjects join table.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	SubjectIDs []string `db:"-" json:"subject_ids"`
}
