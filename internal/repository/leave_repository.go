package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/timetable-api/internal/models"
)

// LeaveRepository manages teacher leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create files a new leave request in pending state.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now

	const query = `INSERT INTO leave_requests (id, teacher_id, weekday, is_full_day, periods, reason, status, reviewed_by, reviewed_at, admin_comment, created_at, updated_at)
		VALUES (:id, :teacher_id, :weekday, :is_full_day, :periods, :reason, :status, :reviewed_by, :reviewed_at, :admin_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID fetches one leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	const query = `SELECT id, teacher_id, weekday, is_full_day, periods, reason, status, reviewed_by, reviewed_at, admin_comment, created_at, updated_at FROM leave_requests WHERE id = $1`
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// ListByTeacher returns a teacher's leave history, newest first.
func (r *LeaveRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.LeaveRequest, error) {
	const query = `SELECT id, teacher_id, weekday, is_full_day, periods, reason, status, reviewed_by, reviewed_at, admin_comment, created_at, updated_at FROM leave_requests WHERE teacher_id = $1 ORDER BY created_at DESC`
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, teacherID); err != nil {
		return nil, fmt.Errorf("list leave requests for teacher: %w", err)
	}
	return leaves, nil
}

// ListByStatus returns leave requests in a given status, oldest first so the
// review queue is FIFO.
func (r *LeaveRepository) ListByStatus(ctx context.Context, status models.LeaveStatus) ([]models.LeaveRequest, error) {
	const query = `SELECT id, teacher_id, weekday, is_full_day, periods, reason, status, reviewed_by, reviewed_at, admin_comment, created_at, updated_at FROM leave_requests WHERE status = $1 ORDER BY created_at ASC`
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, status); err != nil {
		return nil, fmt.Errorf("list leave requests by status: %w", err)
	}
	return leaves, nil
}

// UpdateStatus records the review outcome for a leave request.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, reviewedBy string, comment *string) error {
	now := time.Now().UTC()
	const query = `UPDATE leave_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, admin_comment = $5, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, now, comment); err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	return nil
}
