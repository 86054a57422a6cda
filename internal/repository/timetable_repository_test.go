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

func strPtr(s string) *string { return &s }

func TestTimetableRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.TimetableEntry{
		{ClassName: "10A", Day: "Monday", Time: "P1", SubjectID: strPtr("s-math"), TeacherID: strPtr("t1"), Room: "10A"},
		{ClassName: "10A", Day: "Monday", Time: "LUNCH", IsBreak: true},
	}
	require.NoError(t, repo.ReplaceAll(context.Background(), entries))
	assert.NotEmpty(t, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceAllRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	entries := []models.TimetableEntry{
		{ClassName: "10A", Day: "Monday", Time: "P1"},
	}
	require.Error(t, repo.ReplaceAll(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_name", "day", "time", "subject_id", "teacher_id", "room", "is_break", "is_emergency", "created_at"}).
		AddRow("e1", "10A", "Monday", "P1", "s-math", "t1", "10A", false, false, time.Now()).
		AddRow("e2", "10A", "Monday", "LUNCH", nil, nil, "", true, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE class_name = $1 ORDER BY day ASC, time ASC")).
		WithArgs("10A").
		WillReturnRows(rows)

	entries, err := repo.ListByClass(context.Background(), "10A")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].IsBreak)
	assert.Nil(t, entries[1].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE class_name = $1")).
		WithArgs("10A").
		WillReturnResult(sqlmock.NewResult(0, 42))

	affected, err := repo.DeleteByClass(context.Background(), "10A")
	require.NoError(t, err)
	assert.Equal(t, int64(42), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
