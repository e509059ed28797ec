package baseline

import (
	"testing"

	"perfrunner/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(p50, p95, p99, errorRate float64) metrics.Snapshot {
	return metrics.Snapshot{
		TotalRequests:      100,
		SuccessfulRequests: 100,
		P50MS:              p50,
		P95MS:              p95,
		P99MS:              p99,
		ErrorRate:          errorRate,
	}
}

func baselineWith(p50, p95, p99, errorRate float64) *Baseline {
	return &Baseline{
		Name:      "bench",
		Version:   3,
		P50MS:     p50,
		P95MS:     p95,
		P99MS:     p99,
		ErrorRate: errorRate,
	}
}

func verdictFor(t *testing.T, verdicts []Verdict, name string) Verdict {
	t.Helper()
	for _, v := range verdicts {
		if v.MetricName == name {
			return v
		}
	}
	t.Fatalf("no verdict for metric %s", name)
	return Verdict{}
}

func TestEvaluate_OrderedTrackedMetrics(t *testing.T) {
	verdicts := Evaluate(snapshotWith(10, 20, 30, 0.01), baselineWith(10, 20, 30, 0.01), nil)

	require.Len(t, verdicts, 4)
	assert.Equal(t, MetricP50, verdicts[0].MetricName)
	assert.Equal(t, MetricP95, verdicts[1].MetricName)
	assert.Equal(t, MetricP99, verdicts[2].MetricName)
	assert.Equal(t, MetricErrorRate, verdicts[3].MetricName)
}

func TestEvaluate_RegressionPastTolerance(t *testing.T) {
	// Baseline p95 200ms, tolerance 10%: 221ms regresses, 219ms passes.
	base := baselineWith(100, 200, 300, 0.02)

	verdicts := Evaluate(snapshotWith(100, 221, 300, 0.02), base, nil)
	p95 := verdictFor(t, verdicts, MetricP95)
	assert.Equal(t, StatusRegressed, p95.Status)
	assert.InDelta(t, 10.5, p95.DeltaPct, 1e-9)
	require.NotNil(t, p95.BaselineValue)
	assert.Equal(t, 200.0, *p95.BaselineValue)

	verdicts = Evaluate(snapshotWith(100, 219, 300, 0.02), base, nil)
	assert.Equal(t, StatusPass, verdictFor(t, verdicts, MetricP95).Status)
}

func TestEvaluate_ExactlyAtToleranceBoundaryPasses(t *testing.T) {
	base := baselineWith(100, 200, 300, 0.02)

	// 220 is exactly +10% of 200.
	verdicts := Evaluate(snapshotWith(100, 220, 300, 0.02), base, nil)
	p95 := verdictFor(t, verdicts, MetricP95)
	assert.Equal(t, StatusPass, p95.Status)
	assert.InDelta(t, 10.0, p95.DeltaPct, 1e-9)

	// Same at the improving boundary.
	verdicts = Evaluate(snapshotWith(100, 180, 300, 0.02), base, nil)
	assert.Equal(t, StatusPass, verdictFor(t, verdicts, MetricP95).Status)
}

func TestEvaluate_ImprovedPastTolerance(t *testing.T) {
	// Error rate 50% below baseline is an improvement.
	base := baselineWith(100, 200, 300, 0.10)

	verdicts := Evaluate(snapshotWith(100, 200, 300, 0.05), base, nil)
	errRate := verdictFor(t, verdicts, MetricErrorRate)
	assert.Equal(t, StatusImproved, errRate.Status)
	assert.InDelta(t, -50.0, errRate.DeltaPct, 1e-9)
}

func TestEvaluate_Bootstrap_NoBaseline(t *testing.T) {
	verdicts := Evaluate(snapshotWith(100, 200, 300, 0.5), nil, nil)

	require.Len(t, verdicts, 4)
	for _, v := range verdicts {
		assert.Equal(t, StatusPass, v.Status)
		assert.Nil(t, v.BaselineValue)
		assert.Zero(t, v.DeltaPct)
	}
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	base := baselineWith(100, 200, 300, 0.02)
	thresholds := Thresholds{MetricP95: 25}

	// +15% passes the loosened p95 tolerance but regresses default p50.
	verdicts := Evaluate(snapshotWith(115, 230, 300, 0.02), base, thresholds)

	assert.Equal(t, StatusPass, verdictFor(t, verdicts, MetricP95).Status)
	assert.Equal(t, StatusRegressed, verdictFor(t, verdicts, MetricP50).Status)
}

func TestEvaluate_ZeroBaselineValue(t *testing.T) {
	base := baselineWith(100, 200, 300, 0)

	// Error rate was zero at baseline; any failures now regress.
	verdicts := Evaluate(snapshotWith(100, 200, 300, 0.01), base, nil)
	errRate := verdictFor(t, verdicts, MetricErrorRate)
	assert.Equal(t, StatusRegressed, errRate.Status)

	// Still zero stays pass.
	verdicts = Evaluate(snapshotWith(100, 200, 300, 0), base, nil)
	assert.Equal(t, StatusPass, verdictFor(t, verdicts, MetricErrorRate).Status)
}

func TestRegressed(t *testing.T) {
	assert.False(t, Regressed([]Verdict{{Status: StatusPass}, {Status: StatusImproved}}))
	assert.True(t, Regressed([]Verdict{{Status: StatusPass}, {Status: StatusRegressed}}))
	assert.False(t, Regressed(nil))
}
