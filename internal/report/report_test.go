package report

import (
	"encoding/json"
	"testing"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		TotalRequests:      50,
		SuccessfulRequests: 48,
		FailedRequests:     2,
		StatusCodes:        map[int]int64{200: 48, 500: 2},
		MinLatencyMS:       90,
		MaxLatencyMS:       150,
		MeanLatencyMS:      102.4,
		P50MS:              100.1,
		P90MS:              120,
		P95MS:              130.5,
		P99MS:              148,
		SuccessRate:        0.96,
		ErrorRate:          0.04,
		ThroughputRPS:      42.7,
		StartTime:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTime:            time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC),
	}
}

func sampleMeta() Metadata {
	return Metadata{
		RunID:       "run-42",
		Scenario:    "smoke",
		EndpointKey: "GET http://localhost:9000/health",
		LoadPattern: "constant",
		Concurrency: 5,
	}
}

func TestBuild_Passed(t *testing.T) {
	verdicts := []baseline.Verdict{
		{MetricName: baseline.MetricP95, Status: baseline.StatusPass},
		{MetricName: baseline.MetricErrorRate, Status: baseline.StatusImproved},
	}

	summary := Build(sampleSnapshot(), verdicts, sampleMeta())

	assert.True(t, summary.Passed)
	assert.Equal(t, "run-42", summary.Run.RunID)
	assert.Len(t, summary.Verdicts, 2)
}

func TestBuild_RegressionFailsSummary(t *testing.T) {
	verdicts := []baseline.Verdict{
		{MetricName: baseline.MetricP95, Status: baseline.StatusRegressed},
	}

	summary := Build(sampleSnapshot(), verdicts, sampleMeta())

	assert.False(t, summary.Passed)
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	verdicts := []baseline.Verdict{
		{MetricName: baseline.MetricP50, Status: baseline.StatusPass},
	}

	summary := Build(sampleSnapshot(), verdicts, sampleMeta())

	verdicts[0].Status = baseline.StatusRegressed
	assert.Equal(t, baseline.StatusPass, summary.Verdicts[0].Status)
	assert.True(t, summary.Passed)
}

func TestBuild_Deterministic(t *testing.T) {
	verdicts := []baseline.Verdict{
		{MetricName: baseline.MetricP95, ObservedValue: 130.5, Status: baseline.StatusPass},
	}

	a := Build(sampleSnapshot(), verdicts, sampleMeta())
	b := Build(sampleSnapshot(), verdicts, sampleMeta())

	rawA, err := json.Marshal(a)
	require.NoError(t, err)
	rawB, err := json.Marshal(b)
	require.NoError(t, err)

	assert.JSONEq(t, string(rawA), string(rawB))
	assert.Equal(t, a.Text(), b.Text())
}

func TestSummary_Text(t *testing.T) {
	base := 200.0
	verdicts := []baseline.Verdict{
		{MetricName: baseline.MetricP95, BaselineValue: &base, ObservedValue: 130.5, DeltaPct: -34.75, Status: baseline.StatusImproved},
		{MetricName: baseline.MetricErrorRate, ObservedValue: 0.04, Status: baseline.StatusPass},
	}

	text := Build(sampleSnapshot(), verdicts, sampleMeta()).Text()

	assert.Contains(t, text, "PERFORMANCE RUN REPORT")
	assert.Contains(t, text, "run-42")
	assert.Contains(t, text, "Total Requests:      50")
	assert.Contains(t, text, "p95:    130.50")
	assert.Contains(t, text, "improved")
	assert.Contains(t, text, "(no baseline)")
	assert.Contains(t, text, "200: 48")
	assert.Contains(t, text, "Overall: PASS")
}

func TestSummary_JSONShape(t *testing.T) {
	summary := Build(sampleSnapshot(), nil, sampleMeta())

	raw, err := json.Marshal(summary)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "run")
	assert.Contains(t, decoded, "metrics")
	assert.Contains(t, decoded, "verdicts")
	assert.Contains(t, decoded, "passed")
}
