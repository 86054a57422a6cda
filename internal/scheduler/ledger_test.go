package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerConflictDetection(t *testing.T) {
	led := NewLedger(17)

	avail := led.IsAvailable("t1", "Monday", 1, false)
	require.True(t, avail.Available)

	led.Commit("t1", "Monday", 1, false)

	avail = led.IsAvailable("t1", "Monday", 1, false)
	assert.False(t, avail.Available)
	assert.Equal(t, ReasonConflict, avail.Reason)

	// Another teacher stays free at the same slot.
	assert.True(t, led.IsAvailable("t2", "Monday", 1, false).Available)
	// Same teacher, different slot.
	assert.True(t, led.IsAvailable("t1", "Monday", 2, false).Available)
}

func TestLedgerLabConflict(t *testing.T) {
	led := NewLedger(17)
	led.Commit("t1", "Monday", 3, false)

	avail := led.IsAvailable("t1", "Monday", 2, true)
	assert.False(t, avail.Available)
	assert.Equal(t, ReasonLabConflict, avail.Reason)
}

func TestLedgerHourCeiling(t *testing.T) {
	led := NewLedger(17)
	days := []string{"Monday", "Tuesday", "Wednesday"}
	for i := 0; i < 16; i++ {
		led.Commit("t1", days[i/6], i%6+1, false)
	}
	require.Equal(t, 16, led.WeeklyHours("t1"))

	// One theory hour still fits, a lab (two hours) does not.
	assert.True(t, led.IsAvailable("t1", "Friday", 1, false).Available)
	avail := led.IsAvailable("t1", "Friday", 1, true)
	assert.False(t, avail.Available)
	assert.Equal(t, ReasonHoursLimit, avail.Reason)
}

func TestLedgerConsecutiveRun(t *testing.T) {
	led := NewLedger(17)
	led.Commit("t1", "Monday", 1, false)
	led.Commit("t1", "Monday", 2, false)

	// Two in a row committed; a third adjacent period breaks the limit.
	assert.False(t, led.ConsecutiveOK("t1", "Monday", 3, 2, false))
	// Relaxed check always passes.
	assert.True(t, led.ConsecutiveOK("t1", "Monday", 3, 2, true))
	// A gap resets eligibility.
	assert.True(t, led.ConsecutiveOK("t1", "Monday", 5, 2, false))
	// Other days are unaffected.
	assert.True(t, led.ConsecutiveOK("t1", "Tuesday", 3, 2, false))
}

func TestLedgerConsecutiveRunResetsAfterGap(t *testing.T) {
	led := NewLedger(17)
	led.Commit("t1", "Monday", 1, false)
	led.Commit("t1", "Monday", 2, false)
	led.Commit("t1", "Monday", 5, false)

	assert.True(t, led.ConsecutiveOK("t1", "Monday", 6, 2, false))
	led.Commit("t1", "Monday", 6, false)
	assert.False(t, led.ConsecutiveOK("t1", "Monday", 7, 2, false))
}

func TestLedgerRevert(t *testing.T) {
	led := NewLedger(17)
	led.Commit("t1", "Monday", 2, true)
	require.Equal(t, 2, led.WeeklyHours("t1"))
	require.False(t, led.IsAvailable("t1", "Monday", 2, false).Available)
	require.False(t, led.IsAvailable("t1", "Monday", 3, false).Available)

	led.Revert("t1", "Monday", 2, true)
	assert.Zero(t, led.WeeklyHours("t1"))
	assert.True(t, led.IsAvailable("t1", "Monday", 2, true).Available)
	assert.True(t, led.IsAvailable("t1", "Monday", 3, false).Available)

	// Hours clamp at zero on over-revert.
	led.Revert("t1", "Monday", 2, true)
	assert.Zero(t, led.WeeklyHours("t1"))
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	led := NewLedger(17)
	led.Commit("t1", "Monday", 1, false)

	clone := led.Clone()
	clone.Commit("t1", "Monday", 2, false)
	clone.Commit("t2", "Tuesday", 1, true)

	assert.Equal(t, 1, led.WeeklyHours("t1"))
	assert.Equal(t, 2, clone.WeeklyHours("t1"))
	assert.True(t, led.IsAvailable("t1", "Monday", 2, false).Available)
	assert.Zero(t, led.WeeklyHours("t2"))
}
