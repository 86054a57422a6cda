package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// LeaveInfo is the approved leave driving a substitution run.
type LeaveInfo struct {
	TeacherID string
	Weekday   string
	FullDay   bool
	// Periods holds codes like "P3" for half-day leave; ignored when
	// FullDay is set.
	Periods []string
}

// BusySlot marks a teacher already committed as a substitute at a slot on
// the resolution date.
type BusySlot struct {
	Weekday   string
	Time      string
	TeacherID string
}

// SubstituteAssignment is one resolved (or unresolved) cover slot.
type SubstituteAssignment struct {
	ClassName         string
	Weekday           string
	Time              string
	SubjectID         string
	OriginalTeacherID string
	SubstituteID      string
	Assigned          bool
}

// NextWeekday returns the next strictly-future occurrence of the weekday at
// midnight. When from already falls on the weekday, the result is a week
// out, never the same day.
func NextWeekday(weekday string, from time.Time) (time.Time, error) {
	target, ok := weekdayIndex(weekday)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid weekday %q", weekday)
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	diff := (target - int(start.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return start.AddDate(0, 0, diff), nil
}

func weekdayIndex(weekday string) (int, bool) {
	switch weekday {
	case "Sunday":
		return 0, true
	case "Monday":
		return 1, true
	case "Tuesday":
		return 2, true
	case "Wednesday":
		return 3, true
	case "Thursday":
		return 4, true
	case "Friday":
		return 5, true
	case "Saturday":
		return 6, true
	}
	return 0, false
}

// ResolveSubstitutions computes cover for every slot the leave vacates. The
// busy snapshot combines base-timetable occupancy with substitutes already
// committed on the same date; each pick is marked busy immediately so one
// substitute cannot cover two classes in the same period. Slots with no free
// qualified teacher come back unassigned for manual resolution.
func ResolveSubstitutions(leave LeaveInfo, timetables []ClassTimetable, teachers []Teacher, committed []BusySlot) []SubstituteAssignment {
	busy := buildBusyMap(timetables)
	for _, b := range committed {
		addBusy(busy, b.Weekday, b.Time, b.TeacherID)
	}

	affectedTimes := make(map[string]bool)
	if leave.FullDay {
		for _, tt := range timetables {
			for _, entry := range tt.Entries {
				if entry.Day != leave.Weekday || entry.IsBreak {
					continue
				}
				if _, ok := ParsePeriod(entry.Time); ok {
					affectedTimes[entry.Time] = true
				}
			}
		}
	} else {
		for _, code := range leave.Periods {
			affectedTimes[code] = true
		}
	}

	var out []SubstituteAssignment
	for _, tt := range timetables {
		for _, entry := range tt.Entries {
			if entry.Day != leave.Weekday || entry.IsBreak {
				continue
			}
			if entry.TeacherID != leave.TeacherID || entry.SubjectID == "" {
				continue
			}
			if !affectedTimes[entry.Time] {
				continue
			}

			assignment := SubstituteAssignment{
				ClassName:         tt.ClassName,
				Weekday:           entry.Day,
				Time:              entry.Time,
				SubjectID:         entry.SubjectID,
				OriginalTeacherID: entry.TeacherID,
			}
			if sub, ok := chooseSubstitute(teachers, entry.SubjectID, entry.Day, entry.Time, busy, leave.TeacherID); ok {
				assignment.SubstituteID = sub.ID
				assignment.Assigned = true
				addBusy(busy, entry.Day, entry.Time, sub.ID)
			}
			out = append(out, assignment)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		return sortPeriod(out[i].Time) < sortPeriod(out[j].Time)
	})
	return out
}

// chooseSubstitute picks the free, qualified teacher with the fewest slot
// occupancies in the snapshot; ties keep pool order.
func chooseSubstitute(pool []Teacher, subjectID, weekday, timeCode string, busy map[string]map[string]bool, avoidID string) (Teacher, bool) {
	slot := busyKey(weekday, timeCode)
	qualified := make([]Teacher, 0)
	for _, t := range pool {
		if t.ID == avoidID || !t.QualifiedFor(subjectID) {
			continue
		}
		if busy[slot][t.ID] {
			continue
		}
		qualified = append(qualified, t)
	}
	if len(qualified) == 0 {
		return Teacher{}, false
	}

	load := func(teacherID string) int {
		n := 0
		for _, set := range busy {
			if set[teacherID] {
				n++
			}
		}
		return n
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return load(qualified[i].ID) < load(qualified[j].ID)
	})
	return qualified[0], true
}

// BusyAt reports whether a teacher is occupied at the slot, combining base
// timetables with substitutes already committed on the date. Used to
// validate manual overrides.
func BusyAt(teacherID, weekday, timeCode string, timetables []ClassTimetable, committed []BusySlot) bool {
	busy := buildBusyMap(timetables)
	for _, b := range committed {
		addBusy(busy, b.Weekday, b.Time, b.TeacherID)
	}
	return busy[busyKey(weekday, timeCode)][teacherID]
}

// ClassTeachers returns the teacher ids appearing anywhere in the class's
// base timetable. A substitute outside this set is allowed but flagged as
// unfamiliar with the class.
func ClassTeachers(timetables []ClassTimetable, className string) map[string]bool {
	out := make(map[string]bool)
	for _, tt := range timetables {
		if tt.ClassName != className {
			continue
		}
		for _, entry := range tt.Entries {
			if entry.TeacherID != "" {
				out[entry.TeacherID] = true
			}
		}
	}
	return out
}

func buildBusyMap(timetables []ClassTimetable) map[string]map[string]bool {
	busy := make(map[string]map[string]bool)
	for _, tt := range timetables {
		for _, entry := range tt.Entries {
			if entry.TeacherID == "" || entry.IsBreak {
				continue
			}
			addBusy(busy, entry.Day, entry.Time, entry.TeacherID)
		}
	}
	return busy
}

func addBusy(busy map[string]map[string]bool, weekday, timeCode, teacherID string) {
	key := busyKey(weekday, timeCode)
	if busy[key] == nil {
		busy[key] = make(map[string]bool)
	}
	busy[key][teacherID] = true
}

func busyKey(weekday, timeCode string) string {
	return weekday + "_" + timeCode
}
