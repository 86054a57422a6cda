package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/timetable-api/internal/models"
)

func TestLeaveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec("INSERT INTO leave_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	leave := &models.LeaveRequest{
		TeacherID: "t1",
		Weekday:   "Tuesday",
		IsFullDay: false,
		Periods:   []string{"P1", "P2"},
		Reason:    "medical appointment",
		Status:    models.LeaveStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), leave))
	assert.NotEmpty(t, leave.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "weekday", "is_full_day", "periods", "reason", "status", "reviewed_by", "reviewed_at", "admin_comment", "created_at", "updated_at"}).
		AddRow("l1", "t1", "Monday", true, "{}", "family event", "pending", nil, nil, nil, time.Now(), time.Now()).
		AddRow("l2", "t2", "Friday", false, "{P3,P4}", "training", "pending", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_requests WHERE status = $1 ORDER BY created_at ASC")).
		WithArgs(models.LeaveStatusPending).
		WillReturnRows(rows)

	leaves, err := repo.ListByStatus(context.Background(), models.LeaveStatusPending)
	require.NoError(t, err)
	require.Len(t, leaves, 2)
	assert.True(t, leaves[0].IsFullDay)
	assert.Equal(t, []string{"P3", "P4"}, []string(leaves[1].Periods))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	comment := "approved, substitute arranged"
	mock.ExpectExec("UPDATE leave_requests SET status").
		WithArgs("l1", models.LeaveStatusApproved, "admin-1", sqlmock.AnyArg(), &comment).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "l1", models.LeaveStatusApproved, "admin-1", &comment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO substitutions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO substitutions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub := strPtr("t9")
	subs := []models.Substitution{
		{LeaveRequestID: "l1", ValidForDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), ClassName: "10A", Weekday: "Tuesday", Time: "P1", SubjectID: "s-math", OriginalTeacherID: "t1", SubstituteTeacherID: sub, Status: models.SubstitutionAssigned},
		{LeaveRequestID: "l1", ValidForDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), ClassName: "10B", Weekday: "Tuesday", Time: "P3", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), subs))
	assert.NotEmpty(t, subs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryUpdateAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	mock.ExpectExec("UPDATE substitutions SET substitute_teacher_id").
		WithArgs("sub-1", strPtr("t9"), models.SubstitutionAssigned, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE substitutions SET substitute_teacher_id").
		WithArgs("sub-1", nil, models.SubstitutionUnassigned, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAssignment(context.Background(), "sub-1", strPtr("t9")))
	require.NoError(t, repo.UpdateAssignment(context.Background(), "sub-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "leave_request_id", "valid_for_date", "class_name", "weekday", "time", "subject_id", "original_teacher_id", "substitute_teacher_id", "status", "created_at", "updated_at"}).
		AddRow("sub-1", "l1", date, "10A", "Tuesday", "P1", "s-math", "t1", nil, "unassigned", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM substitutions WHERE 1=1 AND valid_for_date = $1 ORDER BY valid_for_date ASC, class_name ASC, time ASC")).
		WithArgs("2026-09-01").
		WillReturnRows(rows)

	subs, err := repo.List(context.Background(), &date, nil)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.SubstitutionUnassigned, subs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
