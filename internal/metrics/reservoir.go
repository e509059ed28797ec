package metrics

import (
	"math"
	"math/rand"
	"sort"
)

// DefaultReservoirSize bounds percentile memory regardless of run volume.
// 2048 samples keeps p99 estimates stable for the run sizes this engine
// drives while staying well under a page of float64s.
const DefaultReservoirSize = 2048

// reservoir keeps a bounded uniform sample of an unbounded latency stream
// (Vitter's Algorithm R). Below capacity the sample is exact.
type reservoir struct {
	samples []float64
	seen    int64
	rng     *rand.Rand
}

func newReservoir(capacity int, seed int64) *reservoir {
	if capacity <= 0 {
		capacity = DefaultReservoirSize
	}
	return &reservoir{
		samples: make([]float64, 0, capacity),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (r *reservoir) add(v float64) {
	r.seen++
	if len(r.samples) < cap(r.samples) {
		r.samples = append(r.samples, v)
		return
	}
	if idx := r.rng.Int63n(r.seen); idx < int64(cap(r.samples)) {
		r.samples[idx] = v
	}
}

// sorted returns the retained samples in ascending order.
func (r *reservoir) sorted() []float64 {
	out := make([]float64, len(r.samples))
	copy(out, r.samples)
	sort.Float64s(out)
	return out
}

// percentile interpolates the p-th percentile from sorted data.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || p < 0 || p > 100 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(n-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
