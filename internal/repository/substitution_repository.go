package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/timetable-api/internal/models"
)

// SubstitutionRepository manages per-date substitution slots produced by
// leave approval.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs a SubstitutionRepository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

// BulkCreate inserts the substitution slots for an approved leave inside one
// transaction.
func (r *SubstitutionRepository) BulkCreate(ctx context.Context, subs []models.Substitution) error {
	if len(subs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin substitution insert: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO substitutions (id, leave_request_id, valid_for_date, class_name, weekday, time, subject_id, original_teacher_id, substitute_teacher_id, status, created_at, updated_at)
		VALUES (:id, :leave_request_id, :valid_for_date, :class_name, :weekday, :time, :subject_id, :original_teacher_id, :substitute_teacher_id, :status, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range subs {
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
		if subs[i].CreatedAt.IsZero() {
			subs[i].CreatedAt = now
		}
		subs[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, subs[i]); err != nil {
			return fmt.Errorf("insert substitution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit substitution insert: %w", err)
	}
	return nil
}

// DeleteByLeave removes all substitutions belonging to a leave request. Used
// when an approval is re-run.
func (r *SubstitutionRepository) DeleteByLeave(ctx context.Context, leaveID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM substitutions WHERE leave_request_id = $1`, leaveID); err != nil {
		return fmt.Errorf("delete substitutions for leave: %w", err)
	}
	return nil
}

// FindByID fetches one substitution slot.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	const query = `SELECT id, leave_request_id, valid_for_date, class_name, weekday, time, subject_id, original_teacher_id, substitute_teacher_id, status, created_at, updated_at FROM substitutions WHERE id = $1`
	var sub models.Substitution
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns substitutions filtered by optional date and status, ordered
// by date then class then period.
func (r *SubstitutionRepository) List(ctx context.Context, date *time.Time, status *models.SubstitutionStatus) ([]models.Substitution, error) {
	base := "SELECT id, leave_request_id, valid_for_date, class_name, weekday, time, subject_id, original_teacher_id, substitute_teacher_id, status, created_at, updated_at FROM substitutions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if date != nil {
		conditions = append(conditions, fmt.Sprintf("valid_for_date = $%d", len(args)+1))
		args = append(args, date.Format("2006-01-02"))
	}
	if status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY valid_for_date ASC, class_name ASC, time ASC"

	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, fmt.Errorf("list substitutions: %w", err)
	}
	return subs, nil
}

// ListByLeave returns the substitutions generated for one leave request.
func (r *SubstitutionRepository) ListByLeave(ctx context.Context, leaveID string) ([]models.Substitution, error) {
	const query = `SELECT id, leave_request_id, valid_for_date, class_name, weekday, time, subject_id, original_teacher_id, substitute_teacher_id, status, created_at, updated_at FROM substitutions WHERE leave_request_id = $1 ORDER BY class_name ASC, time ASC`
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, leaveID); err != nil {
		return nil, fmt.Errorf("list substitutions for leave: %w", err)
	}
	return subs, nil
}

// ListAssignedOnDate returns substitutions already holding a substitute on a
// date. These count as committed busy slots for later approvals on the same
// day.
func (r *SubstitutionRepository) ListAssignedOnDate(ctx context.Context, date time.Time) ([]models.Substitution, error) {
	const query = `SELECT id, leave_request_id, valid_for_date, class_name, weekday, time, subject_id, original_teacher_id, substitute_teacher_id, status, created_at, updated_at FROM substitutions WHERE valid_for_date = $1 AND substitute_teacher_id IS NOT NULL ORDER BY time ASC`
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list assigned substitutions: %w", err)
	}
	return subs, nil
}

// UpdateAssignment sets or clears the substitute on a slot and flips its
// status accordingly.
func (r *SubstitutionRepository) UpdateAssignment(ctx context.Context, id string, teacherID *string) error {
	status := models.SubstitutionUnassigned
	if teacherID != nil {
		status = models.SubstitutionAssigned
	}
	const query = `UPDATE substitutions SET substitute_teacher_id = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, teacherID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update substitution assignment: %w", err)
	}
	return nil
}
