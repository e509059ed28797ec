package runner

import (
	"context"
	"fmt"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/executor"
	"perfrunner/internal/loadgen"
	"perfrunner/internal/metrics"
	"perfrunner/internal/report"
	"perfrunner/internal/target"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config describes one performance run end to end.
type Config struct {
	Target         target.Target
	Shape          loadgen.Shape
	PerCallTimeout time.Duration
	RunTimeout     time.Duration

	// Thresholds defaults to baseline.DefaultThresholds when nil.
	Thresholds baseline.Thresholds

	// Store supplies the comparison baseline. Nil, an unreachable store or
	// a corrupt record all degrade to bootstrap mode with a warning.
	Store baseline.Store

	// GracePeriod for in-flight calls on cancellation; zero keeps the
	// driver default.
	GracePeriod time.Duration

	// Scenario names the run in reports.
	Scenario string
}

// Validate fails fast on configuration that would dispatch bad load. This is
// the only class of error Run returns; everything a call can do wrong during
// the run lands in the metrics instead.
func (c Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if err := c.Shape.Validate(); err != nil {
		return err
	}
	if c.PerCallTimeout <= 0 {
		return fmt.Errorf("per-call timeout must be positive, got %v", c.PerCallTimeout)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %v", c.RunTimeout)
	}
	return nil
}

// Result bundles everything a run produces. Callers assert on the verdict
// statuses; the engine never turns a regression into an error.
type Result struct {
	Metrics  metrics.Snapshot
	Verdicts []baseline.Verdict
	Summary  report.Summary
	Baseline *baseline.Baseline
	Stats    loadgen.Stats
}

// Run executes one performance run: load the baseline, drive the shape, fold
// outcomes, finalize, evaluate and build the report. The run always produces
// a finalized, consistent snapshot, even when the run budget forces early
// termination.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	runID := uuid.New().String()
	endpointKey := cfg.Target.Key()

	logrus.WithFields(logrus.Fields{
		"run_id":      runID,
		"scenario":    cfg.Scenario,
		"endpoint":    endpointKey,
		"pattern":     cfg.Shape.Pattern,
		"concurrency": cfg.Shape.TargetConcurrency,
	}).Info("Starting performance run")

	base := loadBaseline(ctx, cfg.Store, endpointKey)

	exec := executor.New(cfg.PerCallTimeout)
	agg := metrics.NewAggregator()

	driver := loadgen.NewDriver(cfg.Shape)
	if cfg.GracePeriod > 0 {
		driver = driver.WithGracePeriod(cfg.GracePeriod)
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	stats := driver.Run(runCtx, func(callCtx context.Context) executor.Outcome {
		return exec.Execute(callCtx, cfg.Target)
	}, agg.Fold)

	snap := agg.Finalize()
	verdicts := baseline.Evaluate(snap, base, cfg.Thresholds)

	summary := report.Build(snap, verdicts, report.Metadata{
		RunID:       runID,
		Scenario:    cfg.Scenario,
		EndpointKey: endpointKey,
		LoadPattern: string(cfg.Shape.Pattern),
		Concurrency: cfg.Shape.TargetConcurrency,
	})

	logrus.WithFields(logrus.Fields{
		"run_id":         runID,
		"total_requests": snap.TotalRequests,
		"success_rate":   snap.SuccessRate * 100,
		"p95_ms":         snap.P95MS,
		"throughput_rps": snap.ThroughputRPS,
		"dispatched":     stats.Dispatched,
		"abandoned":      stats.Abandoned,
		"passed":         summary.Passed,
	}).Info("Performance run completed")

	return &Result{
		Metrics:  snap,
		Verdicts: verdicts,
		Summary:  summary,
		Baseline: base,
		Stats:    stats,
	}, nil
}

// AcceptBaseline records the run's snapshot as the endpoint's new baseline.
// An explicit action, never triggered by Run itself.
func AcceptBaseline(ctx context.Context, store baseline.Store, endpointKey string, snap metrics.Snapshot) (*baseline.Baseline, error) {
	if store == nil {
		return nil, fmt.Errorf("no baseline store configured")
	}
	return store.Save(ctx, endpointKey, snap)
}

// loadBaseline degrades store failures to bootstrap mode: a storage outage
// must not block test execution.
func loadBaseline(ctx context.Context, store baseline.Store, endpointKey string) *baseline.Baseline {
	if store == nil {
		return nil
	}
	base, err := store.Load(ctx, endpointKey)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", endpointKey).
			Warn("Baseline unavailable, evaluating in bootstrap mode")
		return nil
	}
	if base == nil {
		logrus.WithField("endpoint", endpointKey).Info("No baseline recorded yet, bootstrap run")
	}
	return base
}
