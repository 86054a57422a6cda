package scheduler

import (
	"math/rand"
	"time"
)

// Ordering supplies the shuffled iteration orders used during lab placement
// and room assignment. Runs seeded with the same value produce identical
// timetables, which keeps tests repeatable; seed zero derives a seed from the
// clock for production variety.
type Ordering struct {
	rng *rand.Rand
}

// NewOrdering builds an ordering source from a seed.
func NewOrdering(seed int64) *Ordering {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Ordering{rng: rand.New(rand.NewSource(seed))}
}

// ShuffledStrings returns a shuffled copy of the input.
func (o *Ordering) ShuffledStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	o.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// ShuffledInts returns a shuffled copy of the input.
func (o *Ordering) ShuffledInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	o.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Intn proxies to the underlying generator.
func (o *Ordering) Intn(n int) int {
	return o.rng.Intn(n)
}
