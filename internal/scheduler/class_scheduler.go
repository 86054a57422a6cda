package scheduler

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// classScheduler builds the weekly timetable for a single class. It runs a
// fixed pipeline: sticky subject-to-teacher mapping, lab placement with
// retry, theory fill, gap-fill passes with the consecutive rule relaxed, and
// a final emergency pass that ignores the weekly hour ceiling.
type classScheduler struct {
	cfg      Config
	ledger   *Ledger
	selector *Selector
	ordering *Ordering
	logger   *zap.Logger

	class    Class
	teachers []Teacher

	sticky       map[string]string
	entries      map[string]*Entry
	subjectFreq  map[string]int
	theoryCount  map[string]int
	labTaught    map[string]bool
	classRoom    string
	unplacedLabs int
}

func newClassScheduler(cfg Config, led *Ledger, sel *Selector, ord *Ordering, logger *zap.Logger, class Class, teachers []Teacher) *classScheduler {
	return &classScheduler{
		cfg:         cfg,
		ledger:      led,
		selector:    sel,
		ordering:    ord,
		logger:      logger,
		class:       class,
		teachers:    teachers,
		sticky:      make(map[string]string),
		entries:     make(map[string]*Entry),
		subjectFreq: make(map[string]int),
		theoryCount: make(map[string]int),
		labTaught:   make(map[string]bool),
	}
}

func (cs *classScheduler) run() []Entry {
	cs.classRoom = "Room-" + strconv.Itoa(cs.ordering.Intn(300)+100)
	cs.mapSubjectsToTeachers()
	cs.scheduleLabs()
	cs.fillTheory()
	cs.gapFill()
	cs.emergencyFill()
	return cs.finalize()
}

// mapSubjectsToTeachers groups lab/theory variants of the same base subject
// and binds each group to one least-loaded teacher qualified for every
// variant, so the class sees a consistent face for a subject across the
// week. Groups with no fully qualified teacher fall back to per-slot
// selection.
func (cs *classScheduler) mapSubjectsToTeachers() {
	groups := make(map[string][]Subject)
	for _, sub := range cs.class.Subjects {
		key := baseSubjectName(sub.Name)
		groups[key] = append(groups[key], sub)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		variants := groups[name]
		var best *Teacher
		for i := range cs.teachers {
			t := cs.teachers[i]
			if !qualifiedForAll(t, variants) {
				continue
			}
			if best == nil || cs.ledger.WeeklyHours(t.ID) < cs.ledger.WeeklyHours(best.ID) {
				best = &cs.teachers[i]
			}
		}
		if best == nil {
			cs.logger.Warn("no sticky teacher for subject group",
				zap.String("class", cs.class.Name),
				zap.String("subject", name))
			continue
		}
		for _, sub := range variants {
			cs.sticky[sub.ID] = best.ID
		}
	}
}

// scheduleLabs places every lab subject exactly once as a two-period block.
// Each pass works on a ledger clone so a failed pass can be discarded
// wholesale; the clone is adopted only when all labs land.
func (cs *classScheduler) scheduleLabs() {
	labs := make([]Subject, 0)
	for _, sub := range cs.class.Subjects {
		if sub.Type == TypeLab {
			labs = append(labs, sub)
		}
	}
	if len(labs) == 0 {
		return
	}

	for pass := 1; pass <= cs.cfg.LabRetryPasses; pass++ {
		scratch := cs.ledger.Clone()
		placed := make(map[string]bool, len(labs))
		var tentative []Entry
		tentativeLab := make(map[string]bool)

		for _, day := range cs.ordering.ShuffledStrings(cs.cfg.Days) {
			if len(placed) >= len(labs) {
				break
			}
			labToday := false
			for _, period := range cs.ordering.ShuffledInts(cs.labCandidatePeriods()) {
				if labToday {
					break
				}
				for _, lab := range labs {
					if placed[lab.ID] {
						continue
					}
					teacher, ok := cs.labTeacher(scratch, lab, day, period)
					if !ok {
						continue
					}
					scratch.Commit(teacher.ID, day, period, true)
					placed[lab.ID] = true
					labToday = true
					labRoom := "Lab-" + strconv.Itoa(cs.ordering.Intn(20)+1)
					tentative = append(tentative,
						Entry{Day: day, Time: PeriodCode(period), SubjectID: lab.ID, TeacherID: teacher.ID, Room: labRoom},
						Entry{Day: day, Time: PeriodCode(period + 1), SubjectID: lab.ID, TeacherID: teacher.ID, Room: labRoom},
					)
					tentativeLab[dayRef(teacher.ID, day)] = true
					break
				}
			}
		}

		if len(placed) == len(labs) || pass == cs.cfg.LabRetryPasses {
			cs.ledger = scratch
			for i := range tentative {
				e := tentative[i]
				cs.entries[entryKey(e.Day, e.Time)] = &tentative[i]
				cs.subjectFreq[e.SubjectID]++
			}
			for key := range tentativeLab {
				cs.labTaught[key] = true
			}
			if len(placed) < len(labs) {
				cs.unplacedLabs = len(labs) - len(placed)
				cs.logger.Warn("lab placement incomplete after retries",
					zap.String("class", cs.class.Name),
					zap.Int("placed", len(placed)),
					zap.Int("labs", len(labs)))
			}
			return
		}
	}
}

// labCandidatePeriods excludes the last period of the day (a lab needs two
// consecutive periods) and the period directly before lunch (the block would
// straddle the break).
func (cs *classScheduler) labCandidatePeriods() []int {
	periods := make([]int, 0, cs.cfg.PeriodsPerDay-1)
	for p := 1; p < cs.cfg.PeriodsPerDay; p++ {
		if cs.cfg.LunchAfter > 0 && p == cs.cfg.LunchAfter {
			continue
		}
		periods = append(periods, p)
	}
	return periods
}

func (cs *classScheduler) labTeacher(led *Ledger, lab Subject, day string, period int) (Teacher, bool) {
	if stickyID, ok := cs.sticky[lab.ID]; ok {
		for _, t := range cs.teachers {
			if t.ID != stickyID {
				continue
			}
			if t.Capable(TypeLab) && led.IsAvailable(t.ID, day, period, true).Available &&
				led.ConsecutiveOK(t.ID, day, period, cs.maxConsecutive(t), false) {
				return t, true
			}
			break
		}
	}
	return cs.selector.Pick(led, PickRequest{
		Subject:   lab,
		Day:       day,
		Period:    period,
		IsLab:     true,
		Pool:      cs.teachers,
		ClassName: cs.class.Name,
	})
}

// fillTheory walks every free, non-lunch period in day order and places the
// theory subject with the most remaining weekly hours, avoiding repeating
// the preceding period's subject when possible. A period where a subject
// exists but no teacher can be found is reserved for the subject with an
// empty teacher, which the gap-fill passes pick up later; a period with no
// remaining subject becomes a free period.
func (cs *classScheduler) fillTheory() {
	theory := make([]Subject, 0)
	for _, sub := range cs.class.Subjects {
		if sub.Type == TypeTheory {
			theory = append(theory, sub)
		}
	}

	for _, day := range cs.cfg.Days {
		lastSubject := ""
		lastTeacher := ""
		for p := 1; p <= cs.cfg.PeriodsPerDay; p++ {
			if e, ok := cs.entries[entryKey(day, PeriodCode(p))]; ok {
				lastSubject = e.SubjectID
				lastTeacher = e.TeacherID
				continue
			}

			pickable := cs.pickableTheory(theory)
			if len(pickable) == 0 {
				cs.entries[entryKey(day, PeriodCode(p))] = &Entry{Day: day, Time: PeriodCode(p), Room: cs.classRoom}
				lastSubject, lastTeacher = "", ""
				continue
			}
			ordered := orderByRemaining(pickable, cs.subjectFreq, lastSubject)

			var chosenSub Subject
			var chosenTeacher Teacher
			found := false
			for _, sub := range ordered {
				teacher, ok := cs.theoryTeacher(sub, day, p, lastTeacher)
				if !ok {
					continue
				}
				chosenSub, chosenTeacher = sub, teacher
				found = true
				break
			}

			if !found {
				// Teacher availability soft-failure: keep the subject so
				// gap fill can still staff the slot.
				sub := ordered[0]
				cs.entries[entryKey(day, PeriodCode(p))] = &Entry{Day: day, Time: PeriodCode(p), SubjectID: sub.ID, Room: cs.classRoom}
				cs.subjectFreq[sub.ID]++
				lastSubject, lastTeacher = sub.ID, ""
				continue
			}

			cs.ledger.Commit(chosenTeacher.ID, day, p, false)
			cs.theoryCount[dayRef(chosenTeacher.ID, day)]++
			cs.subjectFreq[chosenSub.ID]++
			cs.entries[entryKey(day, PeriodCode(p))] = &Entry{Day: day, Time: PeriodCode(p), SubjectID: chosenSub.ID, TeacherID: chosenTeacher.ID, Room: cs.classRoom}
			lastSubject, lastTeacher = chosenSub.ID, chosenTeacher.ID
		}
	}
}

func (cs *classScheduler) pickableTheory(theory []Subject) []Subject {
	out := make([]Subject, 0, len(theory))
	for _, sub := range theory {
		target := sub.HoursPerWeek
		if target <= 0 {
			target = 4
		}
		if cs.subjectFreq[sub.ID] < target {
			out = append(out, sub)
		}
	}
	return out
}

func (cs *classScheduler) theoryTeacher(sub Subject, day string, period int, lastTeacher string) (Teacher, bool) {
	quota := func(teacherID string) bool { return cs.theoryQuotaOK(teacherID, day) }
	if stickyID, ok := cs.sticky[sub.ID]; ok {
		for _, t := range cs.teachers {
			if t.ID != stickyID {
				continue
			}
			if t.Capable(TypeTheory) && quota(t.ID) &&
				cs.ledger.IsAvailable(t.ID, day, period, false).Available &&
				cs.ledger.ConsecutiveOK(t.ID, day, period, cs.maxConsecutive(t), false) {
				return t, true
			}
			break
		}
	}
	return cs.selector.Pick(cs.ledger, PickRequest{
		Subject:       sub,
		Day:           day,
		Period:        period,
		LastTeacherID: lastTeacher,
		Pool:          cs.teachers,
		ClassName:     cs.class.Name,
		PreferredID:   cs.sticky[sub.ID],
		QuotaOK:       quota,
	})
}

// theoryQuotaOK caps a teacher at two theory periods per day for this class,
// or one on days they already taught the class a lab, so a single teacher
// cannot dominate a class's day.
func (cs *classScheduler) theoryQuotaOK(teacherID, day string) bool {
	limit := 2
	if cs.labTaught[dayRef(teacherID, day)] {
		limit = 1
	}
	return cs.theoryCount[dayRef(teacherID, day)] < limit
}

// gapFill retries subject-bearing, teacherless slots with the consecutive
// limit relaxed. Several passes: staffing one slot can free up another.
func (cs *classScheduler) gapFill() {
	for pass := 0; pass < cs.cfg.GapFillPasses; pass++ {
		filled := 0
		for _, day := range cs.cfg.Days {
			for p := 1; p <= cs.cfg.PeriodsPerDay; p++ {
				e, ok := cs.entries[entryKey(day, PeriodCode(p))]
				if !ok || e.IsBreak || e.SubjectID == "" || e.TeacherID != "" {
					continue
				}
				prevTeacher := ""
				if prev, ok := cs.entries[entryKey(day, PeriodCode(p-1))]; ok {
					prevTeacher = prev.TeacherID
				}
				sub, found := cs.subjectByID(e.SubjectID)
				if !found {
					continue
				}
				teacher, ok := cs.gapFillTeacher(sub, day, p, prevTeacher)
				if !ok {
					continue
				}
				cs.ledger.Commit(teacher.ID, day, p, false)
				cs.theoryCount[dayRef(teacher.ID, day)]++
				e.TeacherID = teacher.ID
				filled++
			}
		}
		if filled == 0 {
			break
		}
	}
}

func (cs *classScheduler) gapFillTeacher(sub Subject, day string, period int, prevTeacher string) (Teacher, bool) {
	candidates := make([]Teacher, 0)
	for _, t := range cs.teachers {
		if !t.QualifiedFor(sub.ID) || !t.Capable(TypeTheory) {
			continue
		}
		if !cs.ledger.IsAvailable(t.ID, day, period, false).Available {
			continue
		}
		if !cs.theoryQuotaOK(t.ID, day) {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return cs.ledger.WeeklyHours(candidates[i].ID) < cs.ledger.WeeklyHours(candidates[j].ID)
	})
	for _, t := range candidates {
		if t.ID != prevTeacher {
			return t, true
		}
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return Teacher{}, false
}

// emergencyFill staffs any remaining subject-bearing slot ignoring the
// weekly hour ceiling. Only a literal slot conflict or the daily theory
// quota can still block a teacher here; the assignment is flagged so hour
// ceiling audits can separate these out.
func (cs *classScheduler) emergencyFill() {
	for _, day := range cs.cfg.Days {
		for p := 1; p <= cs.cfg.PeriodsPerDay; p++ {
			e, ok := cs.entries[entryKey(day, PeriodCode(p))]
			if !ok || e.IsBreak || e.SubjectID == "" || e.TeacherID != "" {
				continue
			}
			sub, found := cs.subjectByID(e.SubjectID)
			if !found {
				continue
			}
			var best *Teacher
			for i := range cs.teachers {
				t := cs.teachers[i]
				if !t.QualifiedFor(sub.ID) || !t.Capable(TypeTheory) {
					continue
				}
				if !cs.ledger.FreeAt(t.ID, day, p) {
					continue
				}
				if !cs.theoryQuotaOK(t.ID, day) {
					continue
				}
				if best == nil || cs.ledger.WeeklyHours(t.ID) < cs.ledger.WeeklyHours(best.ID) {
					best = &cs.teachers[i]
				}
			}
			if best == nil {
				cs.logger.Warn("slot left unstaffed after emergency fill",
					zap.String("class", cs.class.Name),
					zap.String("day", day),
					zap.String("time", e.Time))
				continue
			}
			cs.ledger.Commit(best.ID, day, p, false)
			cs.theoryCount[dayRef(best.ID, day)]++
			e.TeacherID = best.ID
			e.Emergency = true
		}
	}
}

// finalize inserts LUNCH rows and sorts entries by weekday then period, with
// LUNCH ordered after every numbered period of its day.
func (cs *classScheduler) finalize() []Entry {
	out := make([]Entry, 0, len(cs.entries)+len(cs.cfg.Days))
	for _, e := range cs.entries {
		out = append(out, *e)
	}
	if cs.cfg.LunchAfter > 0 {
		for _, day := range cs.cfg.Days {
			out = append(out, Entry{Day: day, Time: LunchCode, IsBreak: true})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if weekdayOrder[out[i].Day] != weekdayOrder[out[j].Day] {
			return weekdayOrder[out[i].Day] < weekdayOrder[out[j].Day]
		}
		return sortPeriod(out[i].Time) < sortPeriod(out[j].Time)
	})
	return out
}

func (cs *classScheduler) subjectByID(id string) (Subject, bool) {
	for _, sub := range cs.class.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subject{}, false
}

func (cs *classScheduler) maxConsecutive(t Teacher) int {
	if t.MaxConsecutive > 0 {
		return t.MaxConsecutive
	}
	return cs.cfg.DefaultMaxConsecutive
}

func entryKey(day, time string) string {
	return day + "|" + time
}

func baseSubjectName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, " lab")
	return strings.TrimSpace(n)
}

func qualifiedForAll(t Teacher, subjects []Subject) bool {
	for _, sub := range subjects {
		if !t.QualifiedFor(sub.ID) {
			return false
		}
		if sub.Type == TypeLab && !t.Capable(TypeLab) {
			return false
		}
		if sub.Type == TypeTheory && !t.Capable(TypeTheory) {
			return false
		}
	}
	return true
}

func orderByRemaining(subjects []Subject, freq map[string]int, lastSubject string) []Subject {
	remaining := func(s Subject) int {
		target := s.HoursPerWeek
		if target <= 0 {
			target = 4
		}
		return target - freq[s.ID]
	}
	ordered := make([]Subject, len(subjects))
	copy(ordered, subjects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return remaining(ordered[i]) > remaining(ordered[j])
	})
	// Anti-repetition: subjects differing from the previous period first.
	differs := make([]Subject, 0, len(ordered))
	same := make([]Subject, 0, 1)
	for _, s := range ordered {
		if s.ID == lastSubject {
			same = append(same, s)
		} else {
			differs = append(differs, s)
		}
	}
	return append(differs, same...)
}
