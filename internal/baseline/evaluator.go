package baseline

import (
	"perfrunner/internal/metrics"
)

// Status classifies one observed metric against its baseline.
type Status string

const (
	StatusPass      Status = "pass"
	StatusRegressed Status = "regressed"
	StatusImproved  Status = "improved"
)

// Verdict is the immutable per-metric evaluation result.
type Verdict struct {
	MetricName    string   `json:"metric_name"`
	BaselineValue *float64 `json:"baseline_value"`
	ObservedValue float64  `json:"observed_value"`
	DeltaPct      float64  `json:"delta_pct"`
	Status        Status   `json:"status"`
}

// Thresholds maps metric name to the maximum acceptable delta, in percent.
// A delta exactly at the threshold still passes.
type Thresholds map[string]float64

// Tracked metric names, in evaluation order.
const (
	MetricP50       = "p50_latency_ms"
	MetricP95       = "p95_latency_ms"
	MetricP99       = "p99_latency_ms"
	MetricErrorRate = "error_rate"
)

// DefaultThresholds tolerates a 10% drift on latency percentiles and error
// rate before flagging a run.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MetricP50:       10,
		MetricP95:       10,
		MetricP99:       10,
		MetricErrorRate: 10,
	}
}

// trackedMetric binds a metric name to its extractors. All tracked metrics
// are worse when higher, so positive deltas regress and negative improve.
type trackedMetric struct {
	name     string
	observed func(metrics.Snapshot) float64
	stored   func(Baseline) float64
}

var trackedMetrics = []trackedMetric{
	{MetricP50, func(s metrics.Snapshot) float64 { return s.P50MS }, func(b Baseline) float64 { return b.P50MS }},
	{MetricP95, func(s metrics.Snapshot) float64 { return s.P95MS }, func(b Baseline) float64 { return b.P95MS }},
	{MetricP99, func(s metrics.Snapshot) float64 { return s.P99MS }, func(b Baseline) float64 { return b.P99MS }},
	{MetricErrorRate, func(s metrics.Snapshot) float64 { return s.ErrorRate }, func(b Baseline) float64 { return b.ErrorRate }},
}

// Evaluate compares a finalized snapshot to the stored baseline and returns
// one verdict per tracked metric, in a fixed order. A nil baseline is the
// bootstrap case: every metric passes with no baseline value. Metrics with no
// configured threshold fall back to the defaults.
func Evaluate(snap metrics.Snapshot, base *Baseline, thresholds Thresholds) []Verdict {
	defaults := DefaultThresholds()
	verdicts := make([]Verdict, 0, len(trackedMetrics))

	for _, m := range trackedMetrics {
		observed := m.observed(snap)

		if base == nil {
			verdicts = append(verdicts, Verdict{
				MetricName:    m.name,
				ObservedValue: observed,
				Status:        StatusPass,
			})
			continue
		}

		tolerance, ok := thresholds[m.name]
		if !ok {
			tolerance = defaults[m.name]
		}

		stored := m.stored(*base)
		verdicts = append(verdicts, compare(m.name, observed, stored, tolerance))
	}

	return verdicts
}

func compare(name string, observed, stored, tolerance float64) Verdict {
	v := Verdict{
		MetricName:    name,
		BaselineValue: &stored,
		ObservedValue: observed,
		Status:        StatusPass,
	}

	// A zero baseline admits no percentage delta. Any nonzero observation
	// against it is treated as a regression at full scale.
	if stored == 0 {
		if observed > 0 {
			v.DeltaPct = 100
			v.Status = StatusRegressed
		}
		return v
	}

	v.DeltaPct = (observed - stored) / stored * 100

	switch {
	case v.DeltaPct > tolerance:
		v.Status = StatusRegressed
	case v.DeltaPct < -tolerance:
		v.Status = StatusImproved
	}

	return v
}

// Regressed reports whether any verdict in the set flags a regression.
func Regressed(verdicts []Verdict) bool {
	for _, v := range verdicts {
		if v.Status == StatusRegressed {
			return true
		}
	}
	return false
}
