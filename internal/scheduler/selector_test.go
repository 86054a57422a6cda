package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTeacher(id string, subjects []string, types []TeachingType, maxConsecutive int) Teacher {
	subjectSet := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		subjectSet[s] = true
	}
	typeSet := make(map[TeachingType]bool, len(types))
	for _, tt := range types {
		typeSet[tt] = true
	}
	return Teacher{ID: id, Name: "Teacher " + id, Subjects: subjectSet, Types: typeSet, MaxConsecutive: maxConsecutive}
}

func mathSubject() Subject {
	return Subject{ID: "math", Name: "Math", Code: "MTH", Type: TypeTheory, HoursPerWeek: 4}
}

func TestSelectorFiltersUnqualified(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{
		testTeacher("t1", []string{"physics"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math"}, []TeachingType{TypeLab}, 0),
		testTeacher("t3", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}

	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 1, Pool: pool})
	require.True(t, ok)
	assert.Equal(t, "t3", picked.ID)
}

func TestSelectorPrefersLeastLoaded(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}
	led.Commit("t1", "Tuesday", 1, false)
	led.Commit("t1", "Wednesday", 1, false)

	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 1, Pool: pool})
	require.True(t, ok)
	assert.Equal(t, "t2", picked.ID)
}

func TestSelectorStickyPreference(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}
	// t2 carries more load but is preferred for the subject.
	led.Commit("t2", "Tuesday", 1, false)

	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 1, Pool: pool, PreferredID: "t2"})
	require.True(t, ok)
	assert.Equal(t, "t2", picked.ID)
}

func TestSelectorAvoidsLastTeacher(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}

	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 2, Pool: pool, LastTeacherID: "t1"})
	require.True(t, ok)
	assert.Equal(t, "t2", picked.ID)
}

func TestSelectorAllowsRepeatWhenOnlyOption(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0)}

	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 2, Pool: pool, LastTeacherID: "t1"})
	require.True(t, ok)
	assert.Equal(t, "t1", picked.ID)
}

func TestSelectorLastResortIgnoresConsecutiveLimit(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 2)}
	led.Commit("t1", "Monday", 1, false)
	led.Commit("t1", "Monday", 2, false)

	// Consecutive limit reached, but t1 is the only candidate.
	picked, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 3, Pool: pool})
	require.True(t, ok)
	assert.Equal(t, "t1", picked.ID)
}

func TestSelectorHonoursQuota(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math"}, []TeachingType{TypeTheory}, 0),
	}

	picked, ok := sel.Pick(led, PickRequest{
		Subject: mathSubject(),
		Day:     "Monday",
		Period:  1,
		Pool:    pool,
		QuotaOK: func(teacherID string) bool { return teacherID != "t1" },
	})
	require.True(t, ok)
	assert.Equal(t, "t2", picked.ID)
}

func TestSelectorNoCandidate(t *testing.T) {
	led := NewLedger(17)
	sel := NewSelector(2)

	pool := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0)}
	led.Commit("t1", "Monday", 1, false)

	_, ok := sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 1, Pool: pool})
	assert.False(t, ok)

	_, ok = sel.Pick(led, PickRequest{Subject: mathSubject(), Day: "Monday", Period: 2, Pool: pool, Exclude: map[string]bool{"t1": true}})
	assert.False(t, ok)
}
