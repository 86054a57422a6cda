package models

import "time"

// TimetableEntry is one persisted cell of a class's weekly timetable. Time is
// either a period code ("P3") or "LUNCH". A NULL teacher on a subject-bearing
// row marks a slot the generator could not staff.
type TimetableEntry struct {
	ID          string    `db:"id" json:"id"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Day         string    `db:"day" json:"day"`
	Time        string    `db:"time" json:"time"`
	SubjectID   *string   `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Room        string    `db:"room" json:"room"`
	IsBreak     bool      `db:"is_break" json:"is_break"`
	IsEmergency bool      `db:"is_emergency" json:"is_emergency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
