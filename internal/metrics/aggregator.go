package metrics

import (
	"math"
	"sync"
	"time"

	"perfrunner/internal/executor"

	"github.com/sirupsen/logrus"
)

// Snapshot is the frozen result of a run. It is handed by value to the
// evaluator and report builder; nothing mutates it after Finalize.
type Snapshot struct {
	TotalRequests      int64                    `json:"total_requests"`
	SuccessfulRequests int64                    `json:"successful_requests"`
	FailedRequests     int64                    `json:"failed_requests"`
	OutcomeCounts      map[executor.Kind]int64  `json:"outcome_counts"`
	StatusCodes        map[int]int64            `json:"status_codes"`
	ErrorCounts        map[string]int64         `json:"error_counts,omitempty"`

	MinLatencyMS  float64 `json:"min_latency_ms"`
	MaxLatencyMS  float64 `json:"max_latency_ms"`
	MeanLatencyMS float64 `json:"mean_latency_ms"`
	StdDevMS      float64 `json:"stddev_ms"`
	P50MS         float64 `json:"p50_ms"`
	P90MS         float64 `json:"p90_ms"`
	P95MS         float64 `json:"p95_ms"`
	P99MS         float64 `json:"p99_ms"`

	SuccessRate   float64   `json:"success_rate"`
	ErrorRate     float64   `json:"error_rate"`
	ThroughputRPS float64   `json:"throughput_rps"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// Aggregator folds call outcomes into running statistics. It is the single
// owner of the run's mutable state; Fold serializes concurrent completions
// behind one mutex so callers never observe torn updates. Memory stays
// bounded: only counters, moments and a fixed-size reservoir are retained,
// never the raw outcomes.
type Aggregator struct {
	mu        sync.Mutex
	finalized bool

	total   int64
	success int64
	failed  int64
	byKind  map[executor.Kind]int64
	byCode  map[int]int64
	byError map[string]int64

	min   float64
	max   float64
	sum   float64
	sumSq float64

	res   *reservoir
	start time.Time
	end   time.Time
}

// NewAggregator returns an aggregator with the default reservoir size.
func NewAggregator() *Aggregator {
	return NewAggregatorSize(DefaultReservoirSize)
}

// NewAggregatorSize allows tests to shrink the reservoir.
func NewAggregatorSize(reservoirSize int) *Aggregator {
	return &Aggregator{
		byKind:  make(map[executor.Kind]int64),
		byCode:  make(map[int]int64),
		byError: make(map[string]int64),
		min:     math.Inf(1),
		max:     math.Inf(-1),
		res:     newReservoir(reservoirSize, time.Now().UnixNano()),
	}
}

// Fold merges one outcome into the running statistics. O(1) amortized; safe
// for concurrent use. Outcomes arriving after Finalize are dropped.
func (a *Aggregator) Fold(out executor.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		logrus.WithField("kind", out.Kind).Debug("Dropping outcome folded after finalize")
		return
	}

	a.total++
	if out.Failed() {
		a.failed++
	} else {
		a.success++
	}
	a.byKind[out.Kind]++
	if out.StatusCode != 0 {
		a.byCode[out.StatusCode]++
	}
	if out.ErrorDetail != "" {
		a.byError[out.ErrorDetail]++
	}

	a.sum += out.LatencyMS
	a.sumSq += out.LatencyMS * out.LatencyMS
	a.min = math.Min(a.min, out.LatencyMS)
	a.max = math.Max(a.max, out.LatencyMS)
	a.res.add(out.LatencyMS)

	finished := out.StartedAt.Add(time.Duration(out.LatencyMS * float64(time.Millisecond)))
	if a.start.IsZero() || out.StartedAt.Before(a.start) {
		a.start = out.StartedAt
	}
	if finished.After(a.end) {
		a.end = finished
	}
}

// Count returns the number of outcomes folded so far.
func (a *Aggregator) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Finalize freezes the aggregate and computes derived statistics. Further
// folds are ignored. Calling Finalize twice yields equivalent snapshots.
func (a *Aggregator) Finalize() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.finalized = true

	snap := Snapshot{
		TotalRequests:      a.total,
		SuccessfulRequests: a.success,
		FailedRequests:     a.failed,
		OutcomeCounts:      copyMap(a.byKind),
		StatusCodes:        copyMap(a.byCode),
		ErrorCounts:        copyMap(a.byError),
		StartTime:          a.start,
		EndTime:            a.end,
	}

	if a.total == 0 {
		return snap
	}

	n := float64(a.total)
	mean := a.sum / n
	variance := a.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	sorted := a.res.sorted()

	snap.MinLatencyMS = a.min
	snap.MaxLatencyMS = a.max
	snap.MeanLatencyMS = mean
	snap.StdDevMS = math.Sqrt(variance)
	snap.P50MS = percentile(sorted, 50)
	snap.P90MS = percentile(sorted, 90)
	snap.P95MS = percentile(sorted, 95)
	snap.P99MS = percentile(sorted, 99)
	snap.SuccessRate = float64(a.success) / n
	snap.ErrorRate = float64(a.failed) / n

	if wall := snap.EndTime.Sub(snap.StartTime); wall > 0 {
		snap.ThroughputRPS = n / wall.Seconds()
	}

	return snap
}

func copyMap[K comparable](src map[K]int64) map[K]int64 {
	dst := make(map[K]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
