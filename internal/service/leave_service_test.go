package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edustack/timetable-api/internal/dto"
	"github.com/edustack/timetable-api/internal/models"
	appErrors "github.com/edustack/timetable-api/pkg/errors"
)

type mockLeaveRepo struct {
	items map[string]*models.LeaveRequest
}

func (m *mockLeaveRepo) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if m.items == nil {
		m.items = make(map[string]*models.LeaveRequest)
	}
	if leave.ID == "" {
		leave.ID = "leave-generated"
	}
	cp := *leave
	m.items[leave.ID] = &cp
	return nil
}

func (m *mockLeaveRepo) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	if leave, ok := m.items[id]; ok {
		cp := *leave
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaveRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, leave := range m.items {
		if leave.TeacherID == teacherID {
			out = append(out, *leave)
		}
	}
	return out, nil
}

func (m *mockLeaveRepo) ListByStatus(ctx context.Context, status models.LeaveStatus) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, leave := range m.items {
		if leave.Status == status {
			out = append(out, *leave)
		}
	}
	return out, nil
}

func (m *mockLeaveRepo) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, reviewedBy string, comment *string) error {
	leave, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	leave.Status = status
	leave.ReviewedBy = &reviewedBy
	leave.AdminComment = comment
	return nil
}

type mockSubstitutionRepo struct {
	items map[string]*models.Substitution
	seq   int
}

func (m *mockSubstitutionRepo) BulkCreate(ctx context.Context, subs []models.Substitution) error {
	if m.items == nil {
		m.items = make(map[string]*models.Substitution)
	}
	for i := range subs {
		if subs[i].ID == "" {
			m.seq++
			subs[i].ID = "sub-" + string(rune('a'+m.seq))
		}
		cp := subs[i]
		m.items[subs[i].ID] = &cp
	}
	return nil
}

func (m *mockSubstitutionRepo) DeleteByLeave(ctx context.Context, leaveID string) error {
	for id, sub := range m.items {
		if sub.LeaveRequestID == leaveID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockSubstitutionRepo) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	if sub, ok := m.items[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubstitutionRepo) List(ctx context.Context, date *time.Time, status *models.SubstitutionStatus) ([]models.Substitution, error) {
	var out []models.Substitution
	for _, sub := range m.items {
		if date != nil && !sub.ValidForDate.Equal(*date) {
			continue
		}
		if status != nil && sub.Status != *status {
			continue
		}
		out = append(out, *sub)
	}
	return out, nil
}

func (m *mockSubstitutionRepo) ListByLeave(ctx context.Context, leaveID string) ([]models.Substitution, error) {
	var out []models.Substitution
	for _, sub := range m.items {
		if sub.LeaveRequestID == leaveID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *mockSubstitutionRepo) ListAssignedOnDate(ctx context.Context, date time.Time) ([]models.Substitution, error) {
	var out []models.Substitution
	for _, sub := range m.items {
		if sub.ValidForDate.Equal(date) && sub.SubstituteTeacherID != nil {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *mockSubstitutionRepo) UpdateAssignment(ctx context.Context, id string, teacherID *string) error {
	sub, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.SubstituteTeacherID = teacherID
	if teacherID != nil {
		sub.Status = models.SubstitutionAssigned
	} else {
		sub.Status = models.SubstitutionUnassigned
	}
	return nil
}

type mockTeacherDirectory struct {
	teachers []models.Teacher
}

func (m *mockTeacherDirectory) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	for _, teacher := range m.teachers {
		if teacher.UserID != nil && *teacher.UserID == userID {
			cp := teacher
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherDirectory) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, teacher := range m.teachers {
		if teacher.ID == id {
			cp := teacher
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherDirectory) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return m.teachers, nil
}

type mockTimetableReader struct {
	entries []models.TimetableEntry
}

func (m *mockTimetableReader) ListAll(ctx context.Context) ([]models.TimetableEntry, error) {
	return m.entries, nil
}

func leaveFixture() (*LeaveService, *mockLeaveRepo, *mockSubstitutionRepo) {
	userID := "u1"
	directory := &mockTeacherDirectory{teachers: []models.Teacher{
		{ID: "t1", UserID: &userID, FullName: "Alice Carter", SubjectIDs: []string{"s-math"}, TeachingTypes: []string{"theory"}},
		{ID: "t2", FullName: "Ben Okafor", SubjectIDs: []string{"s-math"}, TeachingTypes: []string{"theory"}},
		{ID: "t3", FullName: "Cara Mills", SubjectIDs: []string{"s-hist"}, TeachingTypes: []string{"theory"}},
	}}
	mathID := "s-math"
	histID := "s-hist"
	t1, t3 := "t1", "t3"
	timetables := &mockTimetableReader{entries: []models.TimetableEntry{
		{ClassName: "10A", Day: "Monday", Time: "P1", SubjectID: &mathID, TeacherID: &t1, Room: "10A"},
		{ClassName: "10A", Day: "Monday", Time: "P2", SubjectID: &histID, TeacherID: &t3, Room: "10A"},
		{ClassName: "10B", Day: "Monday", Time: "P2", SubjectID: &mathID, TeacherID: &t1, Room: "10B"},
	}}
	leaves := &mockLeaveRepo{}
	subs := &mockSubstitutionRepo{}
	svc := NewLeaveService(leaves, subs, directory, timetables, &mockAudit{}, nil, validator.New(), zap.NewNop())
	svc.now = func() time.Time {
		// a Friday, so "Monday" resolves three days out
		return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	}
	return svc, leaves, subs
}

func TestLeaveServiceApplyNormalizesPeriods(t *testing.T) {
	svc, leaves, _ := leaveFixture()

	leave, err := svc.Apply(context.Background(), "u1", dto.ApplyLeaveRequest{
		Weekday: "Monday",
		Periods: []string{" p1", "P2", "P2"},
		Reason:  "medical appointment",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, []string(leave.Periods))
	assert.Equal(t, models.LeaveStatusPending, leave.Status)
	assert.Len(t, leaves.items, 1)
}

func TestLeaveServiceApplyFullDayRejectsPeriods(t *testing.T) {
	svc, _, _ := leaveFixture()

	_, err := svc.Apply(context.Background(), "u1", dto.ApplyLeaveRequest{
		Weekday:   "Monday",
		IsFullDay: true,
		Periods:   []string{"P1"},
		Reason:    "family event",
	})
	require.Error(t, err)
}

func TestLeaveServiceApplyHalfDayRequiresPeriods(t *testing.T) {
	svc, _, _ := leaveFixture()

	_, err := svc.Apply(context.Background(), "u1", dto.ApplyLeaveRequest{
		Weekday: "Monday",
		Reason:  "errand",
	})
	require.Error(t, err)
}

func TestLeaveServiceApplyWithoutProfileForbidden(t *testing.T) {
	svc, _, _ := leaveFixture()

	_, err := svc.Apply(context.Background(), "unknown-user", dto.ApplyLeaveRequest{
		Weekday:   "Monday",
		IsFullDay: true,
		Reason:    "family event",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestLeaveServiceApproveResolvesSubstitutions(t *testing.T) {
	svc, leaves, subs := leaveFixture()
	leaves.items = map[string]*models.LeaveRequest{
		"l1": {ID: "l1", TeacherID: "t1", Weekday: "Monday", IsFullDay: true, Status: models.LeaveStatusPending},
	}

	created, err := svc.Approve(context.Background(), "l1", "admin-1", dto.ReviewLeaveRequest{Comment: "ok"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	wantDate := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	for _, sub := range created {
		assert.True(t, sub.ValidForDate.Equal(wantDate))
		assert.Equal(t, "t1", sub.OriginalTeacherID)
	}

	// t2 is the only free qualified teacher; it can cover one slot per
	// period, and the two vacated slots fall in different periods.
	for _, sub := range created {
		require.NotNil(t, sub.SubstituteTeacherID)
		assert.Equal(t, "t2", *sub.SubstituteTeacherID)
		assert.Equal(t, models.SubstitutionAssigned, sub.Status)
	}

	assert.Equal(t, models.LeaveStatusApproved, leaves.items["l1"].Status)
	assert.Len(t, subs.items, 2)
}

func TestLeaveServiceApproveLeavesUnresolvableSlotsOpen(t *testing.T) {
	svc, leaves, _ := leaveFixture()
	// t3 vacates a history slot and nobody else teaches history
	leaves.items = map[string]*models.LeaveRequest{
		"l2": {ID: "l2", TeacherID: "t3", Weekday: "Monday", IsFullDay: true, Status: models.LeaveStatusPending},
	}

	created, err := svc.Approve(context.Background(), "l2", "admin-1", dto.ReviewLeaveRequest{})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Nil(t, created[0].SubstituteTeacherID)
	assert.Equal(t, models.SubstitutionUnassigned, created[0].Status)
}

func TestLeaveServiceApproveRejectsReviewedLeave(t *testing.T) {
	svc, leaves, _ := leaveFixture()
	leaves.items = map[string]*models.LeaveRequest{
		"l1": {ID: "l1", TeacherID: "t1", Weekday: "Monday", IsFullDay: true, Status: models.LeaveStatusApproved},
	}

	_, err := svc.Approve(context.Background(), "l1", "admin-1", dto.ReviewLeaveRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrLeaveFinalized.Code, appErr.Code)
}

func TestLeaveServiceReject(t *testing.T) {
	svc, leaves, subs := leaveFixture()
	leaves.items = map[string]*models.LeaveRequest{
		"l1": {ID: "l1", TeacherID: "t1", Weekday: "Monday", IsFullDay: true, Status: models.LeaveStatusPending},
	}

	require.NoError(t, svc.Reject(context.Background(), "l1", "admin-1", dto.ReviewLeaveRequest{Comment: "short staffed"}))
	assert.Equal(t, models.LeaveStatusRejected, leaves.items["l1"].Status)
	assert.Empty(t, subs.items)
}

func TestLeaveServiceAssignSubstituteRejectsSelf(t *testing.T) {
	svc, _, subs := leaveFixture()
	subs.items = map[string]*models.Substitution{
		"sub-1": {ID: "sub-1", LeaveRequestID: "l1", ClassName: "10A", Weekday: "Monday", Time: "P1", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}

	self := "t1"
	_, err := svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: &self})
	require.Error(t, err)
}

func TestLeaveServiceAssignSubstituteRejectsBusyTeacher(t *testing.T) {
	svc, _, subs := leaveFixture()
	// t3 teaches history in 10A at Monday P2 on the base timetable
	subs.items = map[string]*models.Substitution{
		"sub-1": {ID: "sub-1", LeaveRequestID: "l1", ClassName: "10B", Weekday: "Monday", Time: "P2", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}

	busy := "t3"
	_, err := svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: &busy})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrTeacherBusy.Code, appErr.Code)
}

func TestLeaveServiceAssignSubstituteSetsAndClears(t *testing.T) {
	svc, _, subs := leaveFixture()
	subs.items = map[string]*models.Substitution{
		"sub-1": {ID: "sub-1", LeaveRequestID: "l1", ClassName: "10A", Weekday: "Monday", Time: "P1", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}

	cover := "t2"
	updated, err := svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: &cover})
	require.NoError(t, err)
	require.NotNil(t, updated.Substitution.SubstituteTeacherID)
	assert.Equal(t, "t2", *updated.Substitution.SubstituteTeacherID)
	assert.Equal(t, models.SubstitutionAssigned, updated.Substitution.Status)

	cleared, err := svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Substitution.SubstituteTeacherID)
	assert.Equal(t, models.SubstitutionUnassigned, cleared.Substitution.Status)
	assert.Empty(t, cleared.Warning)
}

func TestLeaveServiceAssignSubstituteWarnsWhenUnfamiliar(t *testing.T) {
	svc, _, subs := leaveFixture()
	subs.items = map[string]*models.Substitution{
		"sub-1": {ID: "sub-1", LeaveRequestID: "l1", ClassName: "10A", Weekday: "Monday", Time: "P1", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}

	// t2 is free but appears nowhere on 10A's base timetable: the
	// assignment goes through with a warning attached.
	cover := "t2"
	updated, err := svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: &cover})
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionAssigned, updated.Substitution.Status)
	assert.NotEmpty(t, updated.Warning)

	// t3 already teaches 10A (history, Monday P2) and is free at P1, so
	// reassigning to t3 must not warn.
	familiar := "t3"
	updated, err = svc.AssignSubstitute(context.Background(), "sub-1", dto.AssignSubstituteRequest{TeacherID: &familiar})
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionAssigned, updated.Substitution.Status)
	assert.Empty(t, updated.Warning)
}

func TestLeaveServiceFreeTeachersFamiliarFirst(t *testing.T) {
	svc, _, subs := leaveFixture()
	subs.items = map[string]*models.Substitution{
		"sub-1": {ID: "sub-1", LeaveRequestID: "l1", ClassName: "10B", Weekday: "Monday", Time: "P2", SubjectID: "s-math", OriginalTeacherID: "t1", Status: models.SubstitutionUnassigned},
	}

	free, err := svc.FreeTeachers(context.Background(), "sub-1")
	require.NoError(t, err)
	// t1 is excluded as the absentee, t3 teaches another class at P2 on
	// the base timetable; only t2 remains.
	require.Len(t, free, 1)
	assert.Equal(t, "t2", free[0].TeacherID)
	assert.False(t, free[0].Familiar)
}
