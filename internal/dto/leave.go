package dto

import "github.com/edustack/timetable-api/internal/models"

// ApplyLeaveRequest files a leave request. Half-day leave must list the
// vacated periods as "P<n>" codes; full-day leave must not.
type ApplyLeaveRequest struct {
	Weekday   string   `json:"weekday" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	IsFullDay bool     `json:"is_full_day"`
	Periods   []string `json:"periods" validate:"omitempty,max=12"`
	Reason    string   `json:"reason" validate:"required,max=500"`
}

// ReviewLeaveRequest carries the admin's approval or rejection comment.
type ReviewLeaveRequest struct {
	Comment string `json:"comment" validate:"max=500"`
}

// AssignSubstituteRequest manually overrides a substitution. A nil TeacherID
// clears the assignment back to unassigned.
type AssignSubstituteRequest struct {
	TeacherID *string `json:"teacher_id"`
}

// AssignSubstituteResponse carries the updated slot. Warning is set when the
// assignment succeeded but the teacher is not already on the class's base
// timetable.
type AssignSubstituteResponse struct {
	Substitution models.Substitution `json:"substitution"`
	Warning      string              `json:"warning,omitempty"`
}

// FreeTeacherResponse is one candidate for manual substitute assignment.
// Familiar teachers already appear on the class's base timetable.
type FreeTeacherResponse struct {
	TeacherID string `json:"teacher_id"`
	FullName  string `json:"full_name"`
	Familiar  bool   `json:"familiar"`
}
