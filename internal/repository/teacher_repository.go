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

// TeacherRepository manages persistence for teachers and their subject
// qualifications.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching filters along with total count. SubjectIDs
// are resolved for the returned page.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, user_id, full_name, email, teaching_types, max_consecutive, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	if err := r.attachSubjects(ctx, teachers); err != nil {
		return nil, 0, err
	}
	return teachers, total, nil
}

// ListActive returns every active teacher with subjects resolved. This is the
// pool the generation engine and the substitution resolver work from.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, user_id, full_name, email, teaching_types, max_consecutive, active, created_at, updated_at FROM teachers WHERE active = TRUE ORDER BY full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	if err := r.attachSubjects(ctx, teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID with subjects resolved.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, full_name, email, teaching_types, max_consecutive, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	subjects, err := r.subjectIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.SubjectIDs = subjects
	return &teacher, nil
}

// FindByUserID fetches the teacher record linked to a user account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, full_name, email, teaching_types, max_consecutive, active, created_at, updated_at FROM teachers WHERE user_id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	subjects, err := r.subjectIDs(ctx, teacher.ID)
	if err != nil {
		return nil, err
	}
	teacher.SubjectIDs = subjects
	return &teacher, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record plus its subject links.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, user_id, full_name, email, teaching_types, max_consecutive, active, created_at, updated_at)
		VALUES (:id, :user_id, :full_name, :email, :teaching_types, :max_consecutive, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return r.ReplaceSubjects(ctx, teacher.ID, teacher.SubjectIDs)
}

// Update modifies an existing teacher record and rewrites its subject links.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET user_id = :user_id, full_name = :full_name, email = :email, teaching_types = :teaching_types, max_consecutive = :max_consecutive, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return r.ReplaceSubjects(ctx, teacher.ID, teacher.SubjectIDs)
}

// Deactivate sets a teacher's active flag to false.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teachers SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}

// ReplaceSubjects rewrites the teacher_subjects links for a teacher.
func (r *TeacherRepository) ReplaceSubjects(ctx context.Context, teacherID string, subjectIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)`, teacherID, subjectID); err != nil {
			return fmt.Errorf("link teacher subject: %w", err)
		}
	}
	return nil
}

func (r *TeacherRepository) subjectIDs(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id`, teacherID); err != nil {
		return nil, fmt.Errorf("load teacher subjects: %w", err)
	}
	return ids, nil
}

type teacherSubjectRow struct {
	TeacherID string `db:"teacher_id"`
	SubjectID string `db:"subject_id"`
}

func (r *TeacherRepository) attachSubjects(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.ID)
	}
	var rows []teacherSubjectRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT teacher_id, subject_id FROM teacher_subjects WHERE teacher_id = ANY($1) ORDER BY subject_id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load teacher subjects: %w", err)
	}
	bySubject := make(map[string][]string, len(teachers))
	for _, row := range rows {
		bySubject[row.TeacherID] = append(bySubject[row.TeacherID], row.SubjectID)
	}
	for i := range teachers {
		teachers[i].SubjectIDs = bySubject[teachers[i].ID]
	}
	return nil
}
