package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edustack/timetable-api/internal/models"
)

// ClassRepository manages persistence for classes and their subject demand.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the search with total count.
func (r *ClassRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Class, int, error) {
	base := "FROM classes WHERE 1=1"
	var args []interface{}
	if search != "" {
		base += " AND LOWER(name) LIKE $1"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT id, name, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, pageSize, offset)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	if err := r.attachSubjects(ctx, classes); err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// ListAll returns every class with its subject demand resolved, ordered by
// name. Generation iterates classes in this order.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, created_at, updated_at FROM classes ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	if err := r.attachSubjects(ctx, classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// FindByID fetches one class with its subject links.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	var subjectIDs []string
	if err := r.db.SelectContext(ctx, &subjectIDs, `SELECT subject_id FROM class_subjects WHERE class_id = $1 ORDER BY subject_id`, id); err != nil {
		return nil, fmt.Errorf("load class subjects: %w", err)
	}
	class.SubjectIDs = subjectIDs
	return &class, nil
}

// ExistsByName checks if another class already uses the name.
func (r *ClassRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classes WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

// Create inserts a new class plus its subject links.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return r.ReplaceSubjects(ctx, class.ID, class.SubjectIDs)
}

// Update modifies a class and rewrites its subject links.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return r.ReplaceSubjects(ctx, class.ID, class.SubjectIDs)
}

// Delete removes a class and its subject links.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("unlink class subjects: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// ReplaceSubjects rewrites the class_subjects links for a class.
func (r *ClassRepository) ReplaceSubjects(ctx context.Context, classID string, subjectIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2)`, classID, subjectID); err != nil {
			return fmt.Errorf("link class subject: %w", err)
		}
	}
	return nil
}

type classSubjectRow struct {
	ClassID   string `db:"class_id"`
	SubjectID string `db:"subject_id"`
}

func (r *ClassRepository) attachSubjects(ctx context.Context, classes []models.Class) error {
	if len(classes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	var rows []classSubjectRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT class_id, subject_id FROM class_subjects WHERE class_id = ANY($1) ORDER BY subject_id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load class subjects: %w", err)
	}
	byClass := make(map[string][]string, len(classes))
	for _, row := range rows {
		byClass[row.ClassID] = append(byClass[row.ClassID], row.SubjectID)
	}
	for i := range classes {
		classes[i].SubjectIDs = byClass[classes[i].ID]
	}
	return nil
}
