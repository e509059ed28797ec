package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/executor"
	"perfrunner/internal/loadgen"
	"perfrunner/internal/metrics"
	"perfrunner/internal/target"
	"perfrunner/internal/testutils"

	"github.com/stretchr/testify/suite"
)

// failingStore simulates a baseline store outage.
type failingStore struct{}

func (failingStore) Load(context.Context, string) (*baseline.Baseline, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Save(context.Context, string, metrics.Snapshot) (*baseline.Baseline, error) {
	return nil, errors.New("connection refused")
}

type RunnerTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.ctx = context.Background()
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) config(stub *testutils.StubTarget, shape loadgen.Shape) Config {
	return Config{
		Target: target.Target{
			BaseURL: stub.URL,
			Path:    "/load",
			Method:  "GET",
		},
		Shape:          shape,
		PerCallTimeout: 5 * time.Second,
		RunTimeout:     time.Minute,
		Scenario:       "test",
	}
}

func (suite *RunnerTestSuite) TestRun_ConstantCountAgainstSteadyTarget() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{
		Latency: 100 * time.Millisecond,
	})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 5,
		Count:             50,
	})

	result, err := Run(suite.ctx, cfg)
	suite.Require().NoError(err)

	snap := result.Metrics
	suite.Equal(int64(50), snap.TotalRequests)
	suite.Equal(int64(50), snap.SuccessfulRequests)
	suite.Zero(snap.FailedRequests)
	suite.Equal(int64(50), stub.Hits())
	suite.LessOrEqual(stub.MaxConcurrent(), int64(5))

	// p50 near the stub's 100ms latency, with generous jitter allowance.
	suite.InDelta(100.0, snap.P50MS, 80.0)
	suite.Positive(snap.ThroughputRPS)

	// Bootstrap: no store configured, every verdict passes.
	suite.Require().Len(result.Verdicts, 4)
	for _, v := range result.Verdicts {
		suite.Equal(baseline.StatusPass, v.Status)
		suite.Nil(v.BaselineValue)
	}
	suite.True(result.Summary.Passed)
	suite.Equal("test", result.Summary.Run.Scenario)
}

func (suite *RunnerTestSuite) TestRun_InvalidConfigFailsFast() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 0,
		Count:             10,
	})

	result, err := Run(suite.ctx, cfg)
	suite.Error(err)
	suite.Nil(result)
	suite.Zero(stub.Hits())
}

func (suite *RunnerTestSuite) TestRun_HTTPErrorsCountedNotRaised() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{
		FailEvery: 5,
	})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 4,
		Count:             40,
	})

	result, err := Run(suite.ctx, cfg)
	suite.Require().NoError(err)

	snap := result.Metrics
	suite.Equal(int64(40), snap.TotalRequests)
	suite.Equal(int64(8), snap.FailedRequests)
	suite.Equal(int64(8), snap.OutcomeCounts[executor.KindHTTPError])
	suite.Equal(snap.TotalRequests, snap.SuccessfulRequests+snap.FailedRequests)
}

func (suite *RunnerTestSuite) TestRun_BudgetExceededStillFinalizes() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{Hang: true})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 3,
		Duration:          10 * time.Second,
	})
	cfg.RunTimeout = 150 * time.Millisecond
	cfg.GracePeriod = 100 * time.Millisecond

	result, err := Run(suite.ctx, cfg)
	suite.Require().NoError(err)

	snap := result.Metrics
	suite.Equal(result.Stats.Dispatched, snap.TotalRequests)
	suite.Positive(snap.TotalRequests)
	suite.Equal(snap.TotalRequests, snap.OutcomeCounts[executor.KindTimeout])
	suite.Equal(result.Stats.Abandoned, snap.TotalRequests)
}

func (suite *RunnerTestSuite) TestRun_StoreOutageDegradesToBootstrap() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 2,
		Count:             10,
	})
	cfg.Store = failingStore{}

	result, err := Run(suite.ctx, cfg)
	suite.Require().NoError(err)

	for _, v := range result.Verdicts {
		suite.Equal(baseline.StatusPass, v.Status)
		suite.Nil(v.BaselineValue)
	}
}

func (suite *RunnerTestSuite) TestRun_AuthenticatedTarget() {
	stub := testutils.NewStubTarget(testutils.StubTargetOptions{
		RequireAuth: true,
		JWTSecret:   "run-secret",
	})
	defer stub.Close()

	cfg := suite.config(stub, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 2,
		Count:             10,
	})
	cfg.Target.Tokens = target.NewJWTSigner("run-secret", "perfrunner-test", time.Hour)

	result, err := Run(suite.ctx, cfg)
	suite.Require().NoError(err)
	suite.Equal(int64(10), result.Metrics.SuccessfulRequests)

	// Without a token every call is rejected, but still only counted,
	// never raised.
	cfg.Target.Tokens = nil
	result, err = Run(suite.ctx, cfg)
	suite.Require().NoError(err)
	suite.Equal(int64(10), result.Metrics.FailedRequests)
	suite.Equal(int64(10), result.Metrics.OutcomeCounts[executor.KindHTTPError])
}

func (suite *RunnerTestSuite) TestRun_RegressionAgainstSavedBaseline() {
	// First run against a fast target becomes the baseline; second run
	// against a much slower target regresses.
	fast := testutils.NewStubTarget(testutils.StubTargetOptions{Latency: 10 * time.Millisecond})
	defer fast.Close()

	store := baseline.NewFileStore(suite.T().TempDir())

	fastCfg := suite.config(fast, loadgen.Shape{
		Pattern:           loadgen.PatternConstant,
		TargetConcurrency: 3,
		Count:             30,
	})
	fastCfg.Store = store

	first, err := Run(suite.ctx, fastCfg)
	suite.Require().NoError(err)
	suite.True(first.Summary.Passed)

	// Both runs must share the endpoint key for baseline comparison, so
	// replay against the same target with injected latency is simulated
	// by saving the fast run and rerunning a slow target under that key.
	key := fastCfg.Target.Key()
	_, err = AcceptBaseline(suite.ctx, store, key, first.Metrics)
	suite.Require().NoError(err)

	slow := testutils.NewStubTarget(testutils.StubTargetOptions{Latency: 100 * time.Millisecond})
	defer slow.Close()

	slowCfg := suite.config(slow, fastCfg.Shape)
	slowCfg.Store = movedStore{inner: store, from: slowCfg.Target.Key(), to: key}

	second, err := Run(suite.ctx, slowCfg)
	suite.Require().NoError(err)

	suite.False(second.Summary.Passed)
	regressed := 0
	for _, v := range second.Verdicts {
		if v.Status == baseline.StatusRegressed {
			regressed++
		}
	}
	suite.Positive(regressed)
}

// movedStore redirects one endpoint key to another so two stub servers on
// different ports can share a baseline in tests.
type movedStore struct {
	inner baseline.Store
	from  string
	to    string
}

func (m movedStore) Load(ctx context.Context, key string) (*baseline.Baseline, error) {
	if key == m.from {
		key = m.to
	}
	return m.inner.Load(ctx, key)
}

func (m movedStore) Save(ctx context.Context, key string, snap metrics.Snapshot) (*baseline.Baseline, error) {
	if key == m.from {
		key = m.to
	}
	return m.inner.Save(ctx, key, snap)
}
