package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/metrics"
)

// Metadata identifies the run being reported. Timestamps beyond these and the
// snapshot's own are never embedded, keeping the summary deterministic.
type Metadata struct {
	RunID       string `json:"run_id"`
	Scenario    string `json:"scenario,omitempty"`
	EndpointKey string `json:"endpoint_key"`
	LoadPattern string `json:"load_pattern"`
	Concurrency int    `json:"concurrency"`
}

// Summary is the structured report consumed by external tooling (test
// assertions, Allure attachments, JSON files). The engine never writes it to
// disk itself.
type Summary struct {
	Run      Metadata           `json:"run"`
	Metrics  metrics.Snapshot   `json:"metrics"`
	Verdicts []baseline.Verdict `json:"verdicts"`
	Passed   bool               `json:"passed"`
}

// Build assembles the summary from a finalized snapshot and its verdicts.
// Pure: inputs are copied, never mutated, and the same inputs always produce
// the same summary.
func Build(snap metrics.Snapshot, verdicts []baseline.Verdict, meta Metadata) Summary {
	vs := make([]baseline.Verdict, len(verdicts))
	copy(vs, verdicts)

	return Summary{
		Run:      meta,
		Metrics:  snap,
		Verdicts: vs,
		Passed:   !baseline.Regressed(vs),
	}
}

// Text renders the summary as a human-readable report for log output and
// plain-text attachments.
func (s Summary) Text() string {
	var b strings.Builder
	line := strings.Repeat("=", 70)

	fmt.Fprintf(&b, "%s\nPERFORMANCE RUN REPORT\n%s\n\n", line, line)
	fmt.Fprintf(&b, "Run:\n")
	fmt.Fprintf(&b, "  Run ID:        %s\n", s.Run.RunID)
	if s.Run.Scenario != "" {
		fmt.Fprintf(&b, "  Scenario:      %s\n", s.Run.Scenario)
	}
	fmt.Fprintf(&b, "  Endpoint:      %s\n", s.Run.EndpointKey)
	fmt.Fprintf(&b, "  Load Pattern:  %s (concurrency %d)\n", s.Run.LoadPattern, s.Run.Concurrency)
	fmt.Fprintf(&b, "  Start Time:    %s\n", s.Metrics.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "  End Time:      %s\n\n", s.Metrics.EndTime.Format(time.RFC3339))

	fmt.Fprintf(&b, "Results:\n")
	fmt.Fprintf(&b, "  Total Requests:      %d\n", s.Metrics.TotalRequests)
	fmt.Fprintf(&b, "  Successful:          %d\n", s.Metrics.SuccessfulRequests)
	fmt.Fprintf(&b, "  Failed:              %d\n", s.Metrics.FailedRequests)
	fmt.Fprintf(&b, "  Success Rate:        %.2f%%\n", s.Metrics.SuccessRate*100)
	fmt.Fprintf(&b, "  Throughput:          %.2f req/sec\n\n", s.Metrics.ThroughputRPS)

	fmt.Fprintf(&b, "Latency (ms):\n")
	fmt.Fprintf(&b, "  Mean:   %.2f (stddev %.2f)\n", s.Metrics.MeanLatencyMS, s.Metrics.StdDevMS)
	fmt.Fprintf(&b, "  Min:    %.2f\n", s.Metrics.MinLatencyMS)
	fmt.Fprintf(&b, "  Max:    %.2f\n", s.Metrics.MaxLatencyMS)
	fmt.Fprintf(&b, "  p50:    %.2f\n", s.Metrics.P50MS)
	fmt.Fprintf(&b, "  p90:    %.2f\n", s.Metrics.P90MS)
	fmt.Fprintf(&b, "  p95:    %.2f\n", s.Metrics.P95MS)
	fmt.Fprintf(&b, "  p99:    %.2f\n\n", s.Metrics.P99MS)

	if len(s.Metrics.StatusCodes) > 0 {
		fmt.Fprintf(&b, "Status Codes:\n")
		codes := make([]int, 0, len(s.Metrics.StatusCodes))
		for code := range s.Metrics.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "  %d: %d\n", code, s.Metrics.StatusCodes[code])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Verdicts:\n")
	for _, v := range s.Verdicts {
		if v.BaselineValue == nil {
			fmt.Fprintf(&b, "  %-18s %-9s observed=%.4f (no baseline)\n",
				v.MetricName, v.Status, v.ObservedValue)
			continue
		}
		fmt.Fprintf(&b, "  %-18s %-9s observed=%.4f baseline=%.4f delta=%+.2f%%\n",
			v.MetricName, v.Status, v.ObservedValue, *v.BaselineValue, v.DeltaPct)
	}

	fmt.Fprintf(&b, "\nOverall: %s\n", map[bool]string{true: "PASS", false: "REGRESSED"}[s.Passed])

	return b.String()
}
