package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/timetable-api/internal/models"
)

// TimetableRepository manages the persisted weekly timetable. A generation
// run replaces the whole table atomically; reads serve the class, teacher
// and export views.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ReplaceAll swaps the stored timetable for the given entries in a single
// transaction. Partial failure rolls back to the previous timetable.
func (r *TimetableRepository) ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}

	const insert = `INSERT INTO timetable_entries (id, class_name, day, time, subject_id, teacher_id, room, is_break, is_emergency, created_at)
		VALUES (:id, :class_name, :day, :time, :subject_id, :teacher_id, :room, :is_break, :is_emergency, :created_at)`
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, entries[i]); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable replace: %w", err)
	}
	return nil
}

// ListAll returns the full stored timetable ordered for display.
func (r *TimetableRepository) ListAll(ctx context.Context) ([]models.TimetableEntry, error) {
	const query = `SELECT id, class_name, day, time, subject_id, teacher_id, room, is_break, is_emergency, created_at FROM timetable_entries ORDER BY class_name ASC, day ASC, time ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return entries, nil
}

// ListByClass returns one class's week.
func (r *TimetableRepository) ListByClass(ctx context.Context, className string) ([]models.TimetableEntry, error) {
	const query = `SELECT id, class_name, day, time, subject_id, teacher_id, room, is_break, is_emergency, created_at FROM timetable_entries WHERE class_name = $1 ORDER BY day ASC, time ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, className); err != nil {
		return nil, fmt.Errorf("list timetable for class: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns every slot a teacher covers, break rows excluded.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	const query = `SELECT id, class_name, day, time, subject_id, teacher_id, room, is_break, is_emergency, created_at FROM timetable_entries WHERE teacher_id = $1 AND is_break = FALSE ORDER BY day ASC, time ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable for teacher: %w", err)
	}
	return entries, nil
}

// ClassNames returns the distinct class names present in the stored
// timetable.
func (r *TimetableRepository) ClassNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, `SELECT DISTINCT class_name FROM timetable_entries ORDER BY class_name ASC`); err != nil {
		return nil, fmt.Errorf("list timetable class names: %w", err)
	}
	return names, nil
}

// DeleteByClass removes one class's stored week.
func (r *TimetableRepository) DeleteByClass(ctx context.Context, className string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE class_name = $1`, className)
	if err != nil {
		return 0, fmt.Errorf("delete timetable for class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete timetable for class: %w", err)
	}
	return affected, nil
}

// DeleteAll clears the stored timetable.
func (r *TimetableRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}
