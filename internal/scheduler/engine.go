package scheduler

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Engine orchestrates a full generation run: it owns the ledger for the
// run's lifetime, schedules classes strictly sequentially (the ledger is
// shared mutable state) and verifies the cross-class no-double-booking
// invariant before the result is handed back for persistence.
type Engine struct {
	cfg      Config
	ordering *Ordering
	logger   *zap.Logger
}

// RunResult carries the generated timetables and run statistics.
type RunResult struct {
	Timetables []ClassTimetable
	Stats      RunStats
}

// NewEngine builds an engine for one generation run.
func NewEngine(cfg Config, ordering *Ordering, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ordering == nil {
		ordering = NewOrdering(0)
	}
	return &Engine{cfg: cfg.withDefaults(), ordering: ordering, logger: logger}
}

// Generate schedules every class in order. Malformed input fails the whole
// run; unfilled slots do not.
func (e *Engine) Generate(classes []Class, teachers []Teacher) (*RunResult, error) {
	if len(e.cfg.Days) == 0 {
		return nil, fmt.Errorf("days must contain at least one weekday")
	}
	for _, day := range e.cfg.Days {
		if !KnownWeekday(day) {
			return nil, fmt.Errorf("unknown weekday %q", day)
		}
	}
	if e.cfg.PeriodsPerDay < 1 {
		return nil, fmt.Errorf("periodsPerDay must be positive")
	}
	if e.cfg.LunchAfter < 0 || e.cfg.LunchAfter >= e.cfg.PeriodsPerDay {
		return nil, fmt.Errorf("lunchAfter must fall inside the day")
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes to schedule")
	}
	if len(teachers) == 0 {
		return nil, fmt.Errorf("no teachers available")
	}

	led := NewLedger(e.cfg.WeeklyHourLimit)
	sel := NewSelector(e.cfg.DefaultMaxConsecutive)

	result := &RunResult{Timetables: make([]ClassTimetable, 0, len(classes))}
	unassignedLabs := 0
	for _, class := range classes {
		cs := newClassScheduler(e.cfg, led, sel, e.ordering, e.logger, class, teachers)
		entries := cs.run()
		led = cs.ledger
		unassignedLabs += cs.unplacedLabs
		result.Timetables = append(result.Timetables, ClassTimetable{ClassName: class.Name, Entries: entries})
	}

	result.Stats = e.collectStats(result.Timetables)
	result.Stats.UnassignedLabs = unassignedLabs
	result.Stats.Violations = e.verify(result.Timetables)
	return result, nil
}

func (e *Engine) collectStats(timetables []ClassTimetable) RunStats {
	var stats RunStats
	for _, tt := range timetables {
		for _, entry := range tt.Entries {
			if entry.IsBreak {
				continue
			}
			stats.TotalSlots++
			if entry.SubjectID != "" && entry.TeacherID != "" {
				stats.FilledSlots++
			}
			if entry.Emergency {
				stats.EmergencySlots++
			}
		}
	}
	if stats.FilledSlots < stats.TotalSlots {
		e.logger.Warn("generation left slots unfilled",
			zap.Int("filled", stats.FilledSlots),
			zap.Int("total", stats.TotalSlots))
	}
	return stats
}

// verify re-scans every committed schedule and asserts that no teacher holds
// two classes at the same slot. The ledger should make this impossible, so
// the check is a diagnostic, run before persistence: violations are logged
// as critical defects, never auto-repaired.
func (e *Engine) verify(timetables []ClassTimetable) []Violation {
	occupancy := make(map[string]map[string][]string)
	for _, tt := range timetables {
		for _, entry := range tt.Entries {
			if entry.TeacherID == "" || entry.IsBreak {
				continue
			}
			slot := entry.Day + "_" + entry.Time
			if occupancy[slot] == nil {
				occupancy[slot] = make(map[string][]string)
			}
			occupancy[slot][entry.TeacherID] = append(occupancy[slot][entry.TeacherID], tt.ClassName)
		}
	}

	var violations []Violation
	for slot, teachers := range occupancy {
		for teacherID, classes := range teachers {
			if len(classes) < 2 {
				continue
			}
			sort.Strings(classes)
			day, timeCode := splitSlot(slot)
			violations = append(violations, Violation{Day: day, Time: timeCode, TeacherID: teacherID, Classes: classes})
			e.logger.Error("teacher double-booked across classes",
				zap.String("teacher_id", teacherID),
				zap.String("day", day),
				zap.String("time", timeCode),
				zap.Strings("classes", classes))
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Day != violations[j].Day {
			return weekdayOrder[violations[i].Day] < weekdayOrder[violations[j].Day]
		}
		return sortPeriod(violations[i].Time) < sortPeriod(violations[j].Time)
	})
	return violations
}

func splitSlot(slot string) (day, timeCode string) {
	for i := 0; i < len(slot); i++ {
		if slot[i] == '_' {
			return slot[:i], slot[i+1:]
		}
	}
	return slot, ""
}
