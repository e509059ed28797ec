package loadgen

import (
	"fmt"
	"time"
)

// Pattern selects how concurrency is applied over the run.
type Pattern string

const (
	PatternConstant Pattern = "constant"
	PatternRamp     Pattern = "ramp"
	PatternSpike    Pattern = "spike"
)

// Shape is the read-only description of a load run. Constant shapes declare
// either Count or Duration, never both; ramp and spike are duration-based.
type Shape struct {
	Pattern           Pattern       `json:"pattern" yaml:"pattern"`
	TargetConcurrency int           `json:"target_concurrency" yaml:"target_concurrency"`
	Count             int64         `json:"count,omitempty" yaml:"count,omitempty"`
	Duration          time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// RampDuration is the window over which a ramp grows from 1 to
	// TargetConcurrency. Ramp only.
	RampDuration time.Duration `json:"ramp_duration,omitempty" yaml:"ramp_duration,omitempty"`

	// BaseConcurrency and SpikeWindow shape the burst. Spike only; the
	// window sits centered inside Duration.
	BaseConcurrency int           `json:"base_concurrency,omitempty" yaml:"base_concurrency,omitempty"`
	SpikeWindow     time.Duration `json:"spike_window,omitempty" yaml:"spike_window,omitempty"`
}

// Validate rejects unusable shapes before any call is dispatched.
func (s Shape) Validate() error {
	if s.TargetConcurrency <= 0 {
		return fmt.Errorf("target concurrency must be positive, got %d", s.TargetConcurrency)
	}

	switch s.Pattern {
	case PatternConstant:
		if s.Count > 0 && s.Duration > 0 {
			return fmt.Errorf("constant shape declares either count or duration, not both")
		}
		if s.Count <= 0 && s.Duration <= 0 {
			return fmt.Errorf("constant shape requires a positive count or duration")
		}
	case PatternRamp:
		if s.Duration <= 0 {
			return fmt.Errorf("ramp shape requires a positive duration")
		}
		if s.RampDuration <= 0 || s.RampDuration > s.Duration {
			return fmt.Errorf("ramp duration must be positive and within the run duration")
		}
		if s.Count > 0 {
			return fmt.Errorf("ramp shape is duration-based, count is not supported")
		}
	case PatternSpike:
		if s.Duration <= 0 {
			return fmt.Errorf("spike shape requires a positive duration")
		}
		if s.SpikeWindow <= 0 || s.SpikeWindow >= s.Duration {
			return fmt.Errorf("spike window must be positive and shorter than the run duration")
		}
		if s.BaseConcurrency <= 0 || s.BaseConcurrency > s.TargetConcurrency {
			return fmt.Errorf("spike base concurrency must be in [1, target], got %d", s.BaseConcurrency)
		}
		if s.Count > 0 {
			return fmt.Errorf("spike shape is duration-based, count is not supported")
		}
	default:
		return fmt.Errorf("unknown load pattern %q", s.Pattern)
	}

	return nil
}

// countBased reports whether the stop condition is a fixed dispatch count.
func (s Shape) countBased() bool {
	return s.Pattern == PatternConstant && s.Count > 0
}

// capAt returns the in-flight concurrency cap at the given elapsed time.
func (s Shape) capAt(elapsed time.Duration) int {
	switch s.Pattern {
	case PatternRamp:
		if elapsed >= s.RampDuration {
			return s.TargetConcurrency
		}
		frac := float64(elapsed) / float64(s.RampDuration)
		c := 1 + int(frac*float64(s.TargetConcurrency-1))
		if c > s.TargetConcurrency {
			c = s.TargetConcurrency
		}
		return c
	case PatternSpike:
		spikeStart := (s.Duration - s.SpikeWindow) / 2
		if elapsed >= spikeStart && elapsed < spikeStart+s.SpikeWindow {
			return s.TargetConcurrency
		}
		return s.BaseConcurrency
	default:
		return s.TargetConcurrency
	}
}
