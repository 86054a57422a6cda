package models

import (
	"time"

	"github.com/lib/pq"
)

// LeaveStatus is the review state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// LeaveRequest represents a teacher's request for a day (or periods) off.
// Periods holds codes like "P3" and is empty for full-day leave.
type LeaveRequest struct {
	ID           string         `db:"id" json:"id"`
	TeacherID    string         `db:"teacher_id" json:"teacher_id"`
	Weekday      string         `db:"weekday" json:"weekday"`
	IsFullDay    bool           `db:"is_full_day" json:"is_full_day"`
	Periods      pq.StringArray `db:"periods" json:"periods"`
	Reason       string         `db:"reason" json:"reason"`
	Status       LeaveStatus    `db:"status" json:"status"`
	ReviewedBy   *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	AdminComment *string        `db:"admin_comment" json:"admin_comment,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
