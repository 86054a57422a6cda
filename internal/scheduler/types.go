package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// TeachingType distinguishes theory periods from two-period lab blocks.
type TeachingType string

const (
	TypeTheory TeachingType = "theory"
	TypeLab    TeachingType = "lab"
)

// LunchCode is the time code used for break rows in a timetable.
const LunchCode = "LUNCH"

// lunchSortPeriod places LUNCH rows after every numbered period of a day.
const lunchSortPeriod = 99

// Subject is a fully resolved subject at the engine boundary.
type Subject struct {
	ID           string
	Name         string
	Code         string
	Type         TeachingType
	HoursPerWeek int
}

// Teacher is a fully resolved teacher at the engine boundary. Subjects holds
// the ids of subjects the teacher is qualified for; Types the teaching
// capabilities. The engine never mutates a Teacher, only the ledger counters
// derived from it.
type Teacher struct {
	ID             string
	Name           string
	Subjects       map[string]bool
	Types          map[TeachingType]bool
	MaxConsecutive int
}

// QualifiedFor reports whether the teacher can teach the given subject.
func (t Teacher) QualifiedFor(subjectID string) bool {
	return t.Subjects[subjectID]
}

// Capable reports whether the teacher supports a teaching type.
func (t Teacher) Capable(tt TeachingType) bool {
	return t.Types[tt]
}

// Class pairs a class name with the subjects it must cover.
type Class struct {
	Name     string
	Subjects []Subject
}

// Entry is one cell of a weekly timetable. Empty SubjectID and TeacherID mark
// a free or unfilled period. Emergency flags assignments made by the final
// fill pass that ignores the weekly hour ceiling.
type Entry struct {
	Day       string
	Time      string
	SubjectID string
	TeacherID string
	Room      string
	IsBreak   bool
	Emergency bool
}

// ClassTimetable is the generated weekly schedule for one class.
type ClassTimetable struct {
	ClassName string
	Entries   []Entry
}

// Violation records a teacher booked into two classes at the same slot. The
// ledger makes this structurally impossible; any occurrence is a defect.
type Violation struct {
	Day       string
	Time      string
	TeacherID string
	Classes   []string
}

// RunStats summarises a generation run.
type RunStats struct {
	TotalSlots     int
	FilledSlots    int
	EmergencySlots int
	UnassignedLabs int
	Violations     []Violation
}

// Config holds the caller-supplied parameters of a generation run.
type Config struct {
	Days          []string
	PeriodsPerDay int
	// LunchAfter inserts a LUNCH row after the given period index. Zero
	// disables the break.
	LunchAfter int
	// WeeklyHourLimit caps committed hours per teacher per run (labs count
	// double). EmergencyFill is the only pass allowed to exceed it.
	WeeklyHourLimit int
	// DefaultMaxConsecutive applies to teachers without an explicit limit.
	DefaultMaxConsecutive int
	LabRetryPasses        int
	GapFillPasses         int
}

const (
	defaultWeeklyHourLimit = 17
	defaultMaxConsecutive  = 2
	defaultLabRetryPasses  = 3
	defaultGapFillPasses   = 5
)

func (c Config) withDefaults() Config {
	if c.WeeklyHourLimit <= 0 {
		c.WeeklyHourLimit = defaultWeeklyHourLimit
	}
	if c.DefaultMaxConsecutive <= 0 {
		c.DefaultMaxConsecutive = defaultMaxConsecutive
	}
	if c.LabRetryPasses <= 0 {
		c.LabRetryPasses = defaultLabRetryPasses
	}
	if c.GapFillPasses <= 0 {
		c.GapFillPasses = defaultGapFillPasses
	}
	return c
}

// PeriodCode renders a period index as its wire code, e.g. 3 -> "P3".
func PeriodCode(period int) string {
	return fmt.Sprintf("P%d", period)
}

// ParsePeriod extracts the index from a period code. LUNCH and malformed
// codes return false.
func ParsePeriod(code string) (int, bool) {
	if !strings.HasPrefix(code, "P") {
		return 0, false
	}
	n, err := strconv.Atoi(code[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

var weekdayOrder = map[string]int{
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
	"Friday":    5,
	"Saturday":  6,
	"Sunday":    7,
}

// KnownWeekday reports whether the engine recognises a weekday name.
func KnownWeekday(day string) bool {
	_, ok := weekdayOrder[day]
	return ok
}

func sortPeriod(code string) int {
	if code == LunchCode {
		return lunchSortPeriod
	}
	if n, ok := ParsePeriod(code); ok {
		return n
	}
	return 0
}
