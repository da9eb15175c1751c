package sim

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for Params.
const (
	DefaultStepFraction     = 0.01
	DefaultArrivalThreshold = 0.001
	DefaultHorizon          = 100
)

// ErrInvalidConfig is returned when a run cannot be set up from its inputs.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Params controls vehicle motion and the clock.
type Params struct {
	// StepFraction is the share of the remaining offset covered per tick, per axis.
	StepFraction float64 `json:"stepFraction" mapstructure:"stepFraction"`
	// ArrivalThreshold is the planar distance in degrees at which a vehicle stops.
	ArrivalThreshold float64 `json:"arrivalThreshold" mapstructure:"arrivalThreshold"`
	// Horizon is the number of ticks the clock runs.
	Horizon int `json:"horizon" mapstructure:"horizon"`
	// Workers > 1 advances vehicles of the same tick concurrently.
	Workers int `json:"workers" mapstructure:"workers"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		StepFraction:     DefaultStepFraction,
		ArrivalThreshold: DefaultArrivalThreshold,
		Horizon:          DefaultHorizon,
		Workers:          1,
	}
}

// Validate checks p. A zero horizon is valid and describes an empty run.
func (p Params) Validate() error {
	if math.IsNaN(p.StepFraction) || math.IsInf(p.StepFraction, 0) || p.StepFraction <= 0 || p.StepFraction > 1 {
		return fmt.Errorf("stepFraction must be in (0, 1], got %v: %w", p.StepFraction, ErrInvalidConfig)
	}
	if math.IsNaN(p.ArrivalThreshold) || math.IsInf(p.ArrivalThreshold, 0) || p.ArrivalThreshold < 0 {
		return fmt.Errorf("arrivalThreshold must be a finite value >= 0, got %v: %w", p.ArrivalThreshold, ErrInvalidConfig)
	}
	if p.Horizon < 0 {
		return fmt.Errorf("horizon must be >= 0, got %d: %w", p.Horizon, ErrInvalidConfig)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d: %w", p.Workers, ErrInvalidConfig)
	}
	return nil
}
