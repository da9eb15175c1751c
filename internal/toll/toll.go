// Package toll decides whether a position is tolled and prices the charge.
package toll

import (
	"errors"
	"fmt"
	"math"

	"github.com/tollsim/tollsim/internal/geo"
	"github.com/tollsim/tollsim/pkg/core"
)

// Default tariff values.
const (
	DefaultRatePerKm  = 0.05
	DefaultMinimumFee = 1.00
)

// ErrInvalidTariff is returned by Tariff.Validate.
var ErrInvalidTariff = errors.New("invalid tariff")

// Match identifies the zone that claimed a position.
type Match struct {
	Index int
	Zone  string
}

// Evaluator tests positions against an ordered set of zones.
// Zones are checked in the order given and the first one containing the
// position wins, so overlapping zones never produce more than one match.
type Evaluator struct {
	zones []geo.Zone
}

// NewEvaluator keeps its own copy of zones.
func NewEvaluator(zones []geo.Zone) *Evaluator {
	return &Evaluator{zones: append([]geo.Zone(nil), zones...)}
}

// Evaluate returns the first zone containing p. It has no side effects.
func (e *Evaluator) Evaluate(p core.Position) (Match, bool) {
	for i, z := range e.zones {
		if z.Contains(p) {
			return Match{Index: i, Zone: z.Name()}, true
		}
	}
	return Match{}, false
}

// Zones returns the number of zones.
func (e *Evaluator) Zones() int { return len(e.zones) }

// Tariff prices a charge from the distance between trip start and the
// current position.
type Tariff struct {
	RatePerKm  float64 `json:"ratePerKm" mapstructure:"ratePerKm"`
	MinimumFee float64 `json:"minimumFee" mapstructure:"minimumFee"`
}

// DefaultTariff returns the default tariff.
func DefaultTariff() Tariff {
	return Tariff{RatePerKm: DefaultRatePerKm, MinimumFee: DefaultMinimumFee}
}

// Validate rejects negative or non-finite values.
func (t Tariff) Validate() error {
	if !finiteNonNegative(t.RatePerKm) {
		return fmt.Errorf("ratePerKm must be a finite value >= 0, got %v: %w", t.RatePerKm, ErrInvalidTariff)
	}
	if !finiteNonNegative(t.MinimumFee) {
		return fmt.Errorf("minimumFee must be a finite value >= 0, got %v: %w", t.MinimumFee, ErrInvalidTariff)
	}
	return nil
}

// Charge is max(distanceKm × RatePerKm, MinimumFee).
func (t Tariff) Charge(distanceKm float64) float64 {
	return math.Max(distanceKm*t.RatePerKm, t.MinimumFee)
}

// ChargeFor prices a trip that started at start and is now at current.
// The basis is the geodesic distance between the two points, not the path
// driven, so it does not reset after a previous charge.
func (t Tariff) ChargeFor(start, current core.Position) float64 {
	return t.Charge(geo.GeodesicKm(start, current))
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
