package models

import "time"

// SubjectType distinguishes theory subjects from double-period labs.
type SubjectType string

const (
	SubjectTypeTheory SubjectType = "theory"
	SubjectTypeLab    SubjectType = "lab"
)

// Subject represents a teachable subject.
type Subject struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Code         string      `db:"code" json:"code"`
	Type         SubjectType `db:"type" json:"type"`
	HoursPerWeek int         `db:"hours_per_week" json:"hours_per_week"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures filtering options for listing subjects.
type SubjectFilter struct {
	Search    string
	Type      *SubjectType
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
