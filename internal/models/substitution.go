package models

import "time"

// SubstitutionStatus marks whether cover was found for a vacated slot.
type SubstitutionStatus string

const (
	SubstitutionAssigned   SubstitutionStatus = "assigned"
	SubstitutionUnassigned SubstitutionStatus = "unassigned"
)

// Substitution is one cover slot produced by approving a leave request. An
// unassigned row stays visible so admins can resolve it manually.
type Substitution struct {
	ID                  string             `db:"id" json:"id"`
	LeaveRequestID      string             `db:"leave_request_id" json:"leave_request_id"`
	ValidForDate        time.Time          `db:"valid_for_date" json:"valid_for_date"`
	ClassName           string             `db:"class_name" json:"class_name"`
	Weekday             string             `db:"weekday" json:"weekday"`
	Time                string             `db:"time" json:"time"`
	SubjectID           string             `db:"subject_id" json:"subject_id"`
	OriginalTeacherID   string             `db:"original_teacher_id" json:"original_teacher_id"`
	SubstituteTeacherID *string            `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	Status              SubstitutionStatus `db:"status" json:"status"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}
