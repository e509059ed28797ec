package loadgen

import (
	"context"
	"time"

	"perfrunner/internal/executor"

	"github.com/sirupsen/logrus"
)

// DefaultGracePeriod is how long in-flight calls may finish after the run
// context is cancelled before they are abandoned as timeouts.
const DefaultGracePeriod = 2 * time.Second

// capPollInterval bounds how quickly ramp/spike cap changes and elapsed-time
// stop conditions are observed while all slots are busy.
const capPollInterval = 5 * time.Millisecond

// CallFunc performs one call and returns its outcome. Implementations never
// return errors; failures are encoded in the outcome.
type CallFunc func(ctx context.Context) executor.Outcome

// Sink receives each completed outcome immediately, in completion order.
type Sink func(executor.Outcome)

// Stats summarizes a driver run for consistency checks and logging.
type Stats struct {
	Dispatched int64
	Completed  int64
	Abandoned  int64
}

// Driver realizes a load shape as a bounded stream of concurrent calls. At
// any instant no more than the shape's current concurrency cap is in flight.
type Driver struct {
	shape Shape
	grace time.Duration
}

// NewDriver builds a driver for a validated shape.
func NewDriver(shape Shape) *Driver {
	return &Driver{shape: shape, grace: DefaultGracePeriod}
}

// WithGracePeriod overrides the cancellation grace period.
func (d *Driver) WithGracePeriod(grace time.Duration) *Driver {
	d.grace = grace
	return d
}

// Run dispatches calls until the shape's stop condition is met or ctx is
// cancelled. Every dispatched call produces exactly one outcome on the sink:
// calls still unfinished after the grace period are abandoned and reported as
// synthesized timeout outcomes, and their late real results are discarded.
func (d *Driver) Run(ctx context.Context, call CallFunc, sink Sink) Stats {
	start := time.Now()

	var stats Stats
	inflight := 0

	// Buffered to the worst-case in-flight count so call goroutines never
	// block on completion delivery after an abandon.
	completions := make(chan executor.Outcome, d.shape.TargetConcurrency)

	// Calls survive run cancellation for up to the grace period, so they
	// run on a context detached from ctx's cancellation.
	callCtx := context.WithoutCancel(ctx)

	dispatch := func() {
		stats.Dispatched++
		inflight++
		go func() {
			completions <- call(callCtx)
		}()
	}

	stopDeclared := func() bool {
		if d.shape.countBased() {
			return stats.Dispatched >= d.shape.Count
		}
		return time.Since(start) >= d.shape.Duration
	}

	ticker := time.NewTicker(capPollInterval)
	defer ticker.Stop()

	cancelled := false
	for !cancelled {
		if stopDeclared() {
			break
		}
		if inflight < d.shape.capAt(time.Since(start)) {
			dispatch()
			continue
		}
		select {
		case out := <-completions:
			inflight--
			stats.Completed++
			sink(out)
		case <-ticker.C:
			// re-evaluate cap and elapsed stop condition
		case <-ctx.Done():
			cancelled = true
		}
	}

	// Drain remaining in-flight calls. A cancelled run only waits out the
	// grace period; a naturally finished run waits for everything.
	var deadline <-chan time.Time
	if cancelled {
		timer := time.NewTimer(d.grace)
		defer timer.Stop()
		deadline = timer.C
	}

	for inflight > 0 {
		select {
		case out := <-completions:
			inflight--
			stats.Completed++
			sink(out)
		case <-deadline:
			stats.Abandoned = int64(inflight)
			logrus.WithFields(logrus.Fields{
				"abandoned": inflight,
				"grace":     d.grace,
			}).Warn("Abandoning in-flight calls after cancellation grace period")
			abandonedAt := time.Now()
			for i := 0; i < inflight; i++ {
				sink(executor.Outcome{
					StartedAt:   abandonedAt,
					LatencyMS:   float64(d.grace.Milliseconds()),
					Kind:        executor.KindTimeout,
					ErrorDetail: "abandoned after run cancellation",
				})
			}
			inflight = 0
		}
	}

	return stats
}
