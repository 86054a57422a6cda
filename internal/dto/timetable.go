package dto

import "github.com/edustack/timetable-api/internal/models"

// GenerateTimetableRequest drives a full regeneration run. Days must be real
// weekday names; a fixed Seed reproduces a previous run exactly.
type GenerateTimetableRequest struct {
	Days          []string `json:"days" validate:"required,min=1,max=7,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	PeriodsPerDay int      `json:"periods_per_day" validate:"required,min=1,max=12"`
	LunchAfter    int      `json:"lunch_after" validate:"min=0"`
	Seed          *int64   `json:"seed,omitempty"`
}

// ClassTimetableResponse is one class's generated week.
type ClassTimetableResponse struct {
	ClassName string                  `json:"class_name"`
	Entries   []models.TimetableEntry `json:"entries"`
}

// ViolationResponse surfaces a cross-class double booking detected by the
// post-generation verification pass.
type ViolationResponse struct {
	Day       string   `json:"day"`
	Time      string   `json:"time"`
	TeacherID string   `json:"teacher_id"`
	Classes   []string `json:"classes"`
}

// RunStatsResponse summarises a generation run.
type RunStatsResponse struct {
	TotalSlots     int                 `json:"total_slots"`
	FilledSlots    int                 `json:"filled_slots"`
	EmergencySlots int                 `json:"emergency_slots"`
	UnassignedLabs int                 `json:"unassigned_labs"`
	Violations     []ViolationResponse `json:"violations,omitempty"`
}

// GenerateTimetableResponse returns the persisted timetables plus run stats.
type GenerateTimetableResponse struct {
	Timetables []ClassTimetableResponse `json:"timetables"`
	Stats      RunStatsResponse         `json:"stats"`
}

// TeacherTimetableEntry is one row of a teacher-centric weekly view.
type TeacherTimetableEntry struct {
	ClassName   string  `json:"class_name"`
	Day         string  `json:"day"`
	Time        string  `json:"time"`
	SubjectID   *string `json:"subject_id,omitempty"`
	Room        string  `json:"room"`
	IsEmergency bool    `json:"is_emergency"`
}
