package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseTimetables() []ClassTimetable {
	return []ClassTimetable{
		{
			ClassName: "10-A",
			Entries: []Entry{
				{Day: "Monday", Time: "P1", SubjectID: "math", TeacherID: "t1", Room: "Room-101"},
				{Day: "Monday", Time: "P2", SubjectID: "eng", TeacherID: "t2", Room: "Room-101"},
				{Day: "Monday", Time: "P3", SubjectID: "math", TeacherID: "t1", Room: "Room-101"},
				{Day: "Monday", Time: LunchCode, IsBreak: true},
				{Day: "Tuesday", Time: "P1", SubjectID: "eng", TeacherID: "t2", Room: "Room-101"},
			},
		},
		{
			ClassName: "10-B",
			Entries: []Entry{
				{Day: "Monday", Time: "P1", SubjectID: "math", TeacherID: "t3", Room: "Room-102"},
				{Day: "Monday", Time: "P2", SubjectID: "math", TeacherID: "t1", Room: "Room-102"},
			},
		},
	}
}

func substitutePool() []Teacher {
	return []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"eng"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t3", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t4", []string{"math", "eng"}, []TeachingType{TypeTheory}, 0),
	}
}

func TestNextWeekdayStrictlyFuture(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

	next, err := NextWeekday("Monday", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), next, "same weekday must roll a full week out")

	next, err = NextWeekday("Tuesday", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), next)

	next, err = NextWeekday("Sunday", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), next)

	_, err = NextWeekday("Funday", monday)
	assert.Error(t, err)
}

func TestResolveSubstitutionsFullDay(t *testing.T) {
	leave := LeaveInfo{TeacherID: "t1", Weekday: "Monday", FullDay: true}

	out := ResolveSubstitutions(leave, baseTimetables(), substitutePool(), nil)
	require.Len(t, out, 3)

	// Sorted by class, then period.
	assert.Equal(t, "10-A", out[0].ClassName)
	assert.Equal(t, "P1", out[0].Time)
	assert.Equal(t, "10-A", out[1].ClassName)
	assert.Equal(t, "P3", out[1].Time)
	assert.Equal(t, "10-B", out[2].ClassName)
	assert.Equal(t, "P2", out[2].Time)

	for _, a := range out {
		assert.True(t, a.Assigned)
		assert.Equal(t, "t1", a.OriginalTeacherID)
		assert.NotEqual(t, "t1", a.SubstituteID, "teacher on leave can never cover their own slot")
		assert.Equal(t, "math", a.SubjectID)
	}

	// Monday P1: t3 teaches 10-B, so only t4 is free and qualified.
	assert.Equal(t, "t4", out[0].SubstituteID)
}

func TestResolveSubstitutionsHalfDay(t *testing.T) {
	leave := LeaveInfo{TeacherID: "t1", Weekday: "Monday", Periods: []string{"P3"}}

	out := ResolveSubstitutions(leave, baseTimetables(), substitutePool(), nil)
	require.Len(t, out, 1)
	assert.Equal(t, "10-A", out[0].ClassName)
	assert.Equal(t, "P3", out[0].Time)
	assert.True(t, out[0].Assigned)
}

func TestResolveSubstitutionsNoDoubleBookedSubstitute(t *testing.T) {
	// t1 teaches two classes in the same period; a single free substitute
	// cannot cover both.
	timetables := []ClassTimetable{
		{ClassName: "10-A", Entries: []Entry{{Day: "Monday", Time: "P1", SubjectID: "math", TeacherID: "t1"}}},
		{ClassName: "10-B", Entries: []Entry{{Day: "Monday", Time: "P1", SubjectID: "math", TeacherID: "t1"}}},
	}
	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t4", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}
	leave := LeaveInfo{TeacherID: "t1", Weekday: "Monday", FullDay: true}

	out := ResolveSubstitutions(leave, timetables, pool, nil)
	require.Len(t, out, 2)
	assert.True(t, out[0].Assigned)
	assert.Equal(t, "t4", out[0].SubstituteID)
	assert.False(t, out[1].Assigned, "the only substitute is already committed in the same period")
	assert.Empty(t, out[1].SubstituteID)
}

func TestResolveSubstitutionsHonoursCommittedSlots(t *testing.T) {
	leave := LeaveInfo{TeacherID: "t1", Weekday: "Monday", Periods: []string{"P3"}}
	committed := []BusySlot{{Weekday: "Monday", Time: "P3", TeacherID: "t4"}}

	// t4 already covers another class at P3 on this date; t3 steps in.
	out := ResolveSubstitutions(leave, baseTimetables(), substitutePool(), committed)
	require.Len(t, out, 1)
	assert.True(t, out[0].Assigned)
	assert.Equal(t, "t3", out[0].SubstituteID)
}

func TestResolveSubstitutionsUnassignedWhenNobodyQualifies(t *testing.T) {
	leave := LeaveInfo{TeacherID: "t2", Weekday: "Monday", FullDay: true}
	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"eng"}, []TeachingType{TypeTheory}, 0),
	}

	out := ResolveSubstitutions(leave, baseTimetables(), pool, nil)
	require.Len(t, out, 1)
	assert.False(t, out[0].Assigned)
	assert.Equal(t, "P2", out[0].Time)
}

func TestResolveSubstitutionsPrefersLeastOccupied(t *testing.T) {
	// t3 carries one base slot, t4 none: t4 must win the pick.
	leave := LeaveInfo{TeacherID: "t1", Weekday: "Monday", Periods: []string{"P3"}}

	out := ResolveSubstitutions(leave, baseTimetables(), substitutePool(), nil)
	require.Len(t, out, 1)
	assert.Equal(t, "t4", out[0].SubstituteID)
}

func TestBusyAt(t *testing.T) {
	timetables := baseTimetables()
	committed := []BusySlot{{Weekday: "Monday", Time: "P4", TeacherID: "t4"}}

	assert.True(t, BusyAt("t1", "Monday", "P1", timetables, committed))
	assert.True(t, BusyAt("t4", "Monday", "P4", timetables, committed))
	assert.False(t, BusyAt("t4", "Monday", "P1", timetables, committed))
	assert.False(t, BusyAt("t1", "Tuesday", "P1", timetables, committed))
}

func TestClassTeachers(t *testing.T) {
	familiar := ClassTeachers(baseTimetables(), "10-A")
	assert.True(t, familiar["t1"])
	assert.True(t, familiar["t2"])
	assert.False(t, familiar["t3"])
	assert.False(t, familiar["t4"])
}
