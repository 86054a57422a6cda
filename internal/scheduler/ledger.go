package scheduler

import "fmt"

// Availability reasons reported by Ledger.IsAvailable.
const (
	ReasonConflict    = "conflict"
	ReasonLabConflict = "lab_conflict"
	ReasonHoursLimit  = "hours_limit"
)

// Availability is the result of a ledger query.
type Availability struct {
	Available bool
	Reason    string
}

// Ledger is the run-scoped record of teacher busy-ness, weekly hours and
// consecutive-run state. It is shared across every class of a generation run
// and is the single source of truth for "is teacher X free at (day, period)".
// A teacher id appears in a slot's busy set at most once across the whole
// run, which is what makes cross-class double-booking structurally
// impossible.
type Ledger struct {
	hourLimit  int
	busy       map[string]map[string]bool
	hours      map[string]int
	lastPeriod map[string]int
	runLength  map[string]int
}

// NewLedger builds an empty ledger with the given weekly hour ceiling.
func NewLedger(hourLimit int) *Ledger {
	if hourLimit <= 0 {
		hourLimit = defaultWeeklyHourLimit
	}
	return &Ledger{
		hourLimit:  hourLimit,
		busy:       make(map[string]map[string]bool),
		hours:      make(map[string]int),
		lastPeriod: make(map[string]int),
		runLength:  make(map[string]int),
	}
}

func slotRef(day string, period int) string {
	return fmt.Sprintf("%s_P%d", day, period)
}

func dayRef(teacherID, day string) string {
	return teacherID + "_" + day
}

// IsAvailable checks slot occupancy and the weekly hour ceiling. Labs need
// the following period free as well and count two hours. Pure query.
func (l *Ledger) IsAvailable(teacherID, day string, period int, isLab bool) Availability {
	if l.busy[slotRef(day, period)][teacherID] {
		return Availability{Reason: ReasonConflict}
	}
	if isLab && l.busy[slotRef(day, period+1)][teacherID] {
		return Availability{Reason: ReasonLabConflict}
	}
	required := 1
	if isLab {
		required = 2
	}
	if l.hours[teacherID]+required > l.hourLimit {
		return Availability{Reason: ReasonHoursLimit}
	}
	return Availability{Available: true}
}

// FreeAt reports whether the teacher has no literal occupancy at the slot,
// ignoring the hour ceiling. Used by the emergency fill pass.
func (l *Ledger) FreeAt(teacherID, day string, period int) bool {
	return !l.busy[slotRef(day, period)][teacherID]
}

// Commit marks the slot (and the next one for labs) busy, accumulates hours
// and advances the per-day consecutive run. Never fails.
func (l *Ledger) Commit(teacherID, day string, period int, isLab bool) {
	l.mark(teacherID, day, period)
	required := 1
	if isLab {
		l.mark(teacherID, day, period+1)
		required = 2
	}
	l.hours[teacherID] += required

	key := dayRef(teacherID, day)
	if last, ok := l.lastPeriod[key]; ok && period == last+1 {
		l.runLength[key]++
	} else {
		l.runLength[key] = 1
	}
	if isLab {
		l.lastPeriod[key] = period + 1
	} else {
		l.lastPeriod[key] = period
	}
}

// Revert undoes a tentative commit. Hour counters clamp at zero and the
// day's consecutive-run state is dropped entirely; the loss of finer-grained
// run history on revert is a documented imprecision, accepted because lab
// passes roll back whole attempts rather than single placements.
func (l *Ledger) Revert(teacherID, day string, period int, isLab bool) {
	l.unmark(teacherID, day, period)
	required := 1
	if isLab {
		l.unmark(teacherID, day, period+1)
		required = 2
	}
	l.hours[teacherID] -= required
	if l.hours[teacherID] < 0 {
		l.hours[teacherID] = 0
	}
	key := dayRef(teacherID, day)
	delete(l.lastPeriod, key)
	delete(l.runLength, key)
}

// ConsecutiveOK reports whether assigning the period would keep the teacher
// within maxConsecutive immediately-adjacent periods for the day. Relax
// bypasses the check.
func (l *Ledger) ConsecutiveOK(teacherID, day string, period, maxConsecutive int, relax bool) bool {
	if relax {
		return true
	}
	key := dayRef(teacherID, day)
	last, ok := l.lastPeriod[key]
	if !ok || period != last+1 {
		return true
	}
	return l.runLength[key] < maxConsecutive
}

// WeeklyHours returns the hours committed so far for a teacher.
func (l *Ledger) WeeklyHours(teacherID string) int {
	return l.hours[teacherID]
}

// Clone copies the ledger for a tentative scheduling pass. The copy can be
// mutated freely and adopted on success or discarded on failure.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger(l.hourLimit)
	for slot, set := range l.busy {
		dst := make(map[string]bool, len(set))
		for id := range set {
			dst[id] = true
		}
		c.busy[slot] = dst
	}
	for id, h := range l.hours {
		c.hours[id] = h
	}
	for key, p := range l.lastPeriod {
		c.lastPeriod[key] = p
	}
	for key, n := range l.runLength {
		c.runLength[key] = n
	}
	return c
}

func (l *Ledger) mark(teacherID, day string, period int) {
	slot := slotRef(day, period)
	if l.busy[slot] == nil {
		l.busy[slot] = make(map[string]bool)
	}
	l.busy[slot][teacherID] = true
}

func (l *Ledger) unmark(teacherID, day string, period int) {
	if set := l.busy[slotRef(day, period)]; set != nil {
		delete(set, teacherID)
	}
}
