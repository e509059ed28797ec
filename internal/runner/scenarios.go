package runner

import (
	"fmt"
	"os"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/loadgen"

	"gopkg.in/yaml.v3"
)

// Scenario is a reusable run definition: a load shape plus its time budgets
// and tolerances. The target is supplied at run time.
type Scenario struct {
	Description    string
	Shape          loadgen.Shape
	PerCallTimeout time.Duration
	RunTimeout     time.Duration
	Thresholds     baseline.Thresholds
}

// DefaultScenarios returns the predefined catalog.
func DefaultScenarios() map[string]Scenario {
	return map[string]Scenario{
		"smoke": {
			Description: "Quick validation run: 100 requests at concurrency 5",
			Shape: loadgen.Shape{
				Pattern:           loadgen.PatternConstant,
				TargetConcurrency: 5,
				Count:             100,
			},
			PerCallTimeout: 10 * time.Second,
			RunTimeout:     2 * time.Minute,
		},
		"sustained_load": {
			Description: "Standard load run: 5 minutes at concurrency 50",
			Shape: loadgen.Shape{
				Pattern:           loadgen.PatternConstant,
				TargetConcurrency: 50,
				Duration:          5 * time.Minute,
			},
			PerCallTimeout: 30 * time.Second,
			RunTimeout:     7 * time.Minute,
		},
		"ramp_up": {
			Description: "Ramp to concurrency 50 over 30s, hold for 2 minutes total",
			Shape: loadgen.Shape{
				Pattern:           loadgen.PatternRamp,
				TargetConcurrency: 50,
				Duration:          2 * time.Minute,
				RampDuration:      30 * time.Second,
			},
			PerCallTimeout: 30 * time.Second,
			RunTimeout:     4 * time.Minute,
		},
		"spike": {
			Description: "Burst handling: base 10, spike to 100 for 30s of a 3 minute run",
			Shape: loadgen.Shape{
				Pattern:           loadgen.PatternSpike,
				TargetConcurrency: 100,
				BaseConcurrency:   10,
				Duration:          3 * time.Minute,
				SpikeWindow:       30 * time.Second,
			},
			PerCallTimeout: 30 * time.Second,
			RunTimeout:     5 * time.Minute,
		},
		"endurance": {
			Description: "Stability run: 30 minutes at concurrency 20",
			Shape: loadgen.Shape{
				Pattern:           loadgen.PatternConstant,
				TargetConcurrency: 20,
				Duration:          30 * time.Minute,
			},
			PerCallTimeout: 30 * time.Second,
			RunTimeout:     35 * time.Minute,
		},
	}
}

// scenarioFile is the YAML shape of a scenario catalog. Durations are
// strings in Go duration syntax ("30s", "5m").
type scenarioFile struct {
	Scenarios map[string]struct {
		Description       string             `yaml:"description"`
		Pattern           string             `yaml:"pattern"`
		TargetConcurrency int                `yaml:"target_concurrency"`
		Count             int64              `yaml:"count"`
		Duration          string             `yaml:"duration"`
		RampDuration      string             `yaml:"ramp_duration"`
		BaseConcurrency   int                `yaml:"base_concurrency"`
		SpikeWindow       string             `yaml:"spike_window"`
		PerCallTimeout    string             `yaml:"per_call_timeout"`
		RunTimeout        string             `yaml:"run_timeout"`
		Thresholds        map[string]float64 `yaml:"thresholds"`
	} `yaml:"scenarios"`
}

// LoadScenarioFile reads a YAML scenario catalog. Shapes are validated so a
// bad file fails before any run starts.
func LoadScenarioFile(path string) (map[string]Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid scenario file %s: %w", path, err)
	}

	scenarios := make(map[string]Scenario, len(file.Scenarios))
	for name, def := range file.Scenarios {
		duration, err := parseDuration(def.Duration)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid duration: %w", name, err)
		}
		rampDuration, err := parseDuration(def.RampDuration)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid ramp duration: %w", name, err)
		}
		spikeWindow, err := parseDuration(def.SpikeWindow)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid spike window: %w", name, err)
		}
		perCall, err := parseDuration(def.PerCallTimeout)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid per-call timeout: %w", name, err)
		}
		runTimeout, err := parseDuration(def.RunTimeout)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid run timeout: %w", name, err)
		}

		shape := loadgen.Shape{
			Pattern:           loadgen.Pattern(def.Pattern),
			TargetConcurrency: def.TargetConcurrency,
			Count:             def.Count,
			Duration:          duration,
			RampDuration:      rampDuration,
			BaseConcurrency:   def.BaseConcurrency,
			SpikeWindow:       spikeWindow,
		}
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}

		if perCall <= 0 {
			perCall = 30 * time.Second
		}
		if runTimeout <= 0 {
			runTimeout = 10 * time.Minute
		}

		var thresholds baseline.Thresholds
		if len(def.Thresholds) > 0 {
			thresholds = baseline.Thresholds(def.Thresholds)
		}

		scenarios[name] = Scenario{
			Description:    def.Description,
			Shape:          shape,
			PerCallTimeout: perCall,
			RunTimeout:     runTimeout,
			Thresholds:     thresholds,
		}
	}

	return scenarios, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
