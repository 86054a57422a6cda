package scheduler

import "sort"

// PickRequest describes one teacher selection for a subject at a slot.
type PickRequest struct {
	Subject Subject
	Day     string
	Period  int
	IsLab   bool
	// LastTeacherID is the teacher of the immediately preceding period,
	// avoided unless no alternative satisfies the consecutive limit.
	LastTeacherID string
	Pool          []Teacher
	ClassName     string
	// PreferredID biases selection towards the class's sticky teacher for
	// the subject.
	PreferredID string
	Exclude     map[string]bool
	// QuotaOK gates theory candidates on the per-class-per-day quota. Nil
	// disables the check (lab placement).
	QuotaOK func(teacherID string) bool
}

// Selector ranks qualified, available teachers for a slot under load
// balancing and consecutive-period rules. Relaxation is ordered: a distinct,
// consecutive-safe teacher is preferred, then a repeated but consecutive-safe
// one, and as a last resort the least-loaded available candidate regardless
// of the consecutive limit. Completeness wins over strict fairness.
type Selector struct {
	defaultMaxConsecutive int
}

// NewSelector builds a selector with the run's default consecutive limit.
func NewSelector(maxConsecutive int) *Selector {
	if maxConsecutive <= 0 {
		maxConsecutive = defaultMaxConsecutive
	}
	return &Selector{defaultMaxConsecutive: maxConsecutive}
}

// Pick returns the chosen teacher, or false when no qualified candidate is
// available at the slot.
func (s *Selector) Pick(led *Ledger, req PickRequest) (Teacher, bool) {
	required := TypeTheory
	if req.IsLab {
		required = TypeLab
	}

	candidates := make([]Teacher, 0, len(req.Pool))
	for _, t := range req.Pool {
		if req.Exclude[t.ID] {
			continue
		}
		if !t.QualifiedFor(req.Subject.ID) || !t.Capable(required) {
			continue
		}
		if !led.IsAvailable(t.ID, req.Day, req.Period, req.IsLab).Available {
			continue
		}
		if req.QuotaOK != nil && !req.QuotaOK(t.ID) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return Teacher{}, false
	}

	// Least-loaded first; ties keep pool order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return led.WeeklyHours(candidates[i].ID) < led.WeeklyHours(candidates[j].ID)
	})

	if req.PreferredID != "" && req.PreferredID != req.LastTeacherID {
		for _, t := range candidates {
			if t.ID == req.PreferredID && led.ConsecutiveOK(t.ID, req.Day, req.Period, s.maxConsecutive(t), false) {
				return t, true
			}
		}
	}

	for _, t := range candidates {
		if t.ID == req.LastTeacherID {
			continue
		}
		if led.ConsecutiveOK(t.ID, req.Day, req.Period, s.maxConsecutive(t), false) {
			return t, true
		}
	}

	// Allow the same teacher back-to-back when nobody else fits.
	for _, t := range candidates {
		if led.ConsecutiveOK(t.ID, req.Day, req.Period, s.maxConsecutive(t), false) {
			return t, true
		}
	}

	// Last resort: ignore the consecutive limit.
	return candidates[0], true
}

func (s *Selector) maxConsecutive(t Teacher) int {
	if t.MaxConsecutive > 0 {
		return t.MaxConsecutive
	}
	return s.defaultMaxConsecutive
}
