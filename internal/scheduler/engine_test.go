package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fiveDayConfig() Config {
	return Config{
		Days:          []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		PeriodsPerDay: 6,
	}
}

func generate(t *testing.T, cfg Config, classes []Class, teachers []Teacher) *RunResult {
	t.Helper()
	engine := NewEngine(cfg, NewOrdering(42), zap.NewNop())
	result, err := engine.Generate(classes, teachers)
	require.NoError(t, err)
	return result
}

func TestEngineRejectsMalformedInput(t *testing.T) {
	teachers := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0)}
	classes := []Class{{Name: "10-A", Subjects: []Subject{mathSubject()}}}

	cases := []struct {
		name    string
		cfg     Config
		classes []Class
		pool    []Teacher
	}{
		{"no days", Config{PeriodsPerDay: 6}, classes, teachers},
		{"bad weekday", Config{Days: []string{"Funday"}, PeriodsPerDay: 6}, classes, teachers},
		{"no classes", fiveDayConfig(), nil, teachers},
		{"no teachers", fiveDayConfig(), classes, nil},
		{"lunch outside day", Config{Days: []string{"Monday"}, PeriodsPerDay: 4, LunchAfter: 4}, classes, teachers},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(tc.cfg, NewOrdering(1), zap.NewNop())
			_, err := engine.Generate(tc.classes, tc.pool)
			assert.Error(t, err)
		})
	}
}

func TestEngineSchedulesTheoryAndLab(t *testing.T) {
	math := mathSubject()
	physicsLab := Subject{ID: "phy-lab", Name: "Physics Lab", Code: "PHYL", Type: TypeLab, HoursPerWeek: 2}

	teachers := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"phy-lab"}, []TeachingType{TypeLab}, 0),
	}
	classes := []Class{{Name: "10-A", Subjects: []Subject{math, physicsLab}}}

	result := generate(t, fiveDayConfig(), classes, teachers)
	require.Len(t, result.Timetables, 1)
	tt := result.Timetables[0]

	mathCount := 0
	var labEntries []Entry
	for _, entry := range tt.Entries {
		switch entry.SubjectID {
		case "math":
			mathCount++
			assert.Equal(t, "t1", entry.TeacherID)
		case "phy-lab":
			labEntries = append(labEntries, entry)
		}
	}
	assert.Equal(t, 4, mathCount, "math should land exactly hoursPerWeek times")

	// Lab atomicity: one block of two consecutive periods, same teacher.
	require.Len(t, labEntries, 2)
	assert.Equal(t, labEntries[0].Day, labEntries[1].Day)
	assert.Equal(t, labEntries[0].TeacherID, labEntries[1].TeacherID)
	assert.Equal(t, "t2", labEntries[0].TeacherID)
	first, ok := ParsePeriod(labEntries[0].Time)
	require.True(t, ok)
	second, ok := ParsePeriod(labEntries[1].Time)
	require.True(t, ok)
	assert.Equal(t, first+1, second)

	assert.Zero(t, result.Stats.UnassignedLabs)
	assert.Empty(t, result.Stats.Violations)
}

func TestEngineNoDoubleBookingAcrossClasses(t *testing.T) {
	math := mathSubject()
	english := Subject{ID: "eng", Name: "English", Code: "ENG", Type: TypeTheory, HoursPerWeek: 4}

	// A deliberately tight pool shared across three classes.
	teachers := []Teacher{
		testTeacher("t1", []string{"math", "eng"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"math", "eng"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t3", []string{"math", "eng"}, []TeachingType{TypeTheory}, 0),
	}
	classes := []Class{
		{Name: "10-A", Subjects: []Subject{math, english}},
		{Name: "10-B", Subjects: []Subject{math, english}},
		{Name: "10-C", Subjects: []Subject{math, english}},
	}

	result := generate(t, fiveDayConfig(), classes, teachers)
	assert.Empty(t, result.Stats.Violations)

	seen := make(map[string]map[string]string)
	for _, tt := range result.Timetables {
		for _, entry := range tt.Entries {
			if entry.TeacherID == "" {
				continue
			}
			slot := entry.Day + "_" + entry.Time
			if seen[slot] == nil {
				seen[slot] = make(map[string]string)
			}
			if prior, ok := seen[slot][entry.TeacherID]; ok {
				t.Fatalf("teacher %s booked for %s and %s at %s", entry.TeacherID, prior, tt.ClassName, slot)
			}
			seen[slot][entry.TeacherID] = tt.ClassName
		}
	}
}

func TestEngineHourCeiling(t *testing.T) {
	math := mathSubject()
	english := Subject{ID: "eng", Name: "English", Code: "ENG", Type: TypeTheory, HoursPerWeek: 4}

	teachers := []Teacher{testTeacher("t1", []string{"math", "eng"}, []TeachingType{TypeTheory}, 0)}
	classes := []Class{
		{Name: "10-A", Subjects: []Subject{math, english}},
		{Name: "10-B", Subjects: []Subject{math, english}},
		{Name: "10-C", Subjects: []Subject{math, english}},
	}

	result := generate(t, fiveDayConfig(), classes, teachers)

	hours := make(map[string]int)
	for _, tt := range result.Timetables {
		for _, entry := range tt.Entries {
			if entry.TeacherID == "" || entry.Emergency {
				continue
			}
			hours[entry.TeacherID]++
		}
	}
	for teacherID, h := range hours {
		assert.LessOrEqual(t, h, 17, "teacher %s exceeds weekly ceiling outside emergency fill", teacherID)
	}
}

func TestEngineConsecutiveLimit(t *testing.T) {
	math := mathSubject()
	english := Subject{ID: "eng", Name: "English", Code: "ENG", Type: TypeTheory, HoursPerWeek: 4}
	history := Subject{ID: "hist", Name: "History", Code: "HIS", Type: TypeTheory, HoursPerWeek: 4}

	teachers := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 2),
		testTeacher("t2", []string{"eng"}, []TeachingType{TypeTheory}, 2),
		testTeacher("t3", []string{"hist"}, []TeachingType{TypeTheory}, 2),
	}
	classes := []Class{{Name: "10-A", Subjects: []Subject{math, english, history}}}

	result := generate(t, fiveDayConfig(), classes, teachers)
	tt := result.Timetables[0]

	// With ample alternatives no teacher should run past two adjacent
	// periods on a day.
	type dayRun struct {
		last    int
		current int
	}
	runs := make(map[string]*dayRun)
	for _, entry := range tt.Entries {
		if entry.TeacherID == "" || entry.IsBreak || entry.Emergency {
			continue
		}
		period, ok := ParsePeriod(entry.Time)
		if !ok {
			continue
		}
		key := entry.TeacherID + "_" + entry.Day
		r := runs[key]
		if r == nil {
			runs[key] = &dayRun{last: period, current: 1}
			continue
		}
		if period == r.last+1 {
			r.current++
		} else {
			r.current = 1
		}
		r.last = period
		assert.LessOrEqual(t, r.current, 2, "teacher %s exceeds consecutive limit", entry.TeacherID)
	}
}

func TestEngineLunchRowsAndOrdering(t *testing.T) {
	cfg := fiveDayConfig()
	cfg.LunchAfter = 3

	teachers := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0)}
	classes := []Class{{Name: "10-A", Subjects: []Subject{mathSubject()}}}

	result := generate(t, cfg, classes, teachers)
	tt := result.Timetables[0]

	lunches := 0
	lastDay, lastPeriod := 0, 0
	for _, entry := range tt.Entries {
		if entry.IsBreak {
			lunches++
			assert.Equal(t, LunchCode, entry.Time)
		}
		day := weekdayOrder[entry.Day]
		period := sortPeriod(entry.Time)
		if day == lastDay {
			assert.GreaterOrEqual(t, period, lastPeriod, "entries must be sorted within a day")
		} else {
			assert.Greater(t, day, lastDay, "entries must be sorted by weekday")
		}
		lastDay, lastPeriod = day, period
	}
	assert.Equal(t, len(cfg.Days), lunches)
}

func TestEngineUnfillableSlotStaysOpen(t *testing.T) {
	// No teacher qualifies for history: its slots must surface as
	// unfilled, not as an error.
	math := mathSubject()
	history := Subject{ID: "hist", Name: "History", Code: "HIS", Type: TypeTheory, HoursPerWeek: 4}

	teachers := []Teacher{testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0)}
	classes := []Class{{Name: "10-A", Subjects: []Subject{math, history}}}

	result := generate(t, fiveDayConfig(), classes, teachers)
	tt := result.Timetables[0]

	unstaffedHistory := 0
	for _, entry := range tt.Entries {
		if entry.SubjectID == "hist" {
			assert.Empty(t, entry.TeacherID)
			unstaffedHistory++
		}
	}
	assert.Positive(t, unstaffedHistory)
	assert.Less(t, result.Stats.FilledSlots, result.Stats.TotalSlots)
}

func TestEngineEmergencyFillFlagged(t *testing.T) {
	// One teacher, heavy demand: the ceiling forces the emergency pass to
	// take over and its assignments must be flagged.
	math := mathSubject()
	english := Subject{ID: "eng", Name: "English", Code: "ENG", Type: TypeTheory, HoursPerWeek: 4}
	history := Subject{ID: "hist", Name: "History", Code: "HIS", Type: TypeTheory, HoursPerWeek: 4}

	teachers := []Teacher{testTeacher("t1", []string{"math", "eng", "hist"}, []TeachingType{TypeTheory}, 0)}
	classes := []Class{
		{Name: "10-A", Subjects: []Subject{math, english, history}},
		{Name: "10-B", Subjects: []Subject{math, english, history}},
		{Name: "10-C", Subjects: []Subject{math, english, history}},
	}

	result := generate(t, fiveDayConfig(), classes, teachers)
	assert.Positive(t, result.Stats.EmergencySlots)
	assert.Empty(t, result.Stats.Violations, "emergency fill must still respect literal slot conflicts")
}

func TestEngineCountsUnassignedLabs(t *testing.T) {
	// The only teacher qualified for the lab cannot take lab periods, so
	// every retry pass comes up short and the shortfall must be reported.
	math := mathSubject()
	chemLab := Subject{ID: "chem-lab", Name: "Chemistry Lab", Code: "CHEL", Type: TypeLab, HoursPerWeek: 2}

	teachers := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"chem-lab"}, []TeachingType{TypeTheory}, 0),
	}
	classes := []Class{{Name: "10-A", Subjects: []Subject{math, chemLab}}}

	result := generate(t, fiveDayConfig(), classes, teachers)
	assert.Equal(t, 1, result.Stats.UnassignedLabs)

	for _, entry := range result.Timetables[0].Entries {
		assert.NotEqual(t, "chem-lab", entry.SubjectID)
	}
}

func TestEngineDeterministicWithFixedSeed(t *testing.T) {
	math := mathSubject()
	physicsLab := Subject{ID: "phy-lab", Name: "Physics Lab", Code: "PHYL", Type: TypeLab, HoursPerWeek: 2}
	teachers := []Teacher{
		testTeacher("t1", []string{"math"}, []TeachingType{TypeTheory}, 0),
		testTeacher("t2", []string{"phy-lab"}, []TeachingType{TypeLab}, 0),
	}
	classes := []Class{{Name: "10-A", Subjects: []Subject{math, physicsLab}}}

	first := generate(t, fiveDayConfig(), classes, teachers)
	second := generate(t, fiveDayConfig(), classes, teachers)
	assert.Equal(t, first.Timetables, second.Timetables)
}
