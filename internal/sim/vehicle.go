package sim

import (
	"github.com/tollsim/tollsim/internal/geo"
	"github.com/tollsim/tollsim/internal/ledger"
	"github.com/tollsim/tollsim/internal/toll"
	"github.com/tollsim/tollsim/pkg/core"
)

// Env is what a vehicle needs to take a step. It is shared by all vehicles
// of a run and is read-only apart from the ledger.
type Env struct {
	Params    Params
	Evaluator *toll.Evaluator
	Tariff    toll.Tariff
	Ledger    *ledger.Ledger
}

// Step is the outcome of one tick for one vehicle.
type Step struct {
	Movement core.MovementRecord
	// Toll is set when a charge was debited.
	Toll *core.TollCollectionRecord
	// Declined is set when the vehicle was in a zone but the charge failed.
	Declined bool
}

// Vehicle is the per-vehicle process. Only the engine goroutine that owns
// the current tick touches it.
type Vehicle struct {
	trip core.Trip
	pos  core.Position
	done bool
}

// NewVehicle places a vehicle at the start of its trip.
func NewVehicle(trip core.Trip) *Vehicle {
	return &Vehicle{trip: trip, pos: trip.Start}
}

// ID returns the vehicle id.
func (v *Vehicle) ID() int { return v.trip.VehicleID }

// Trip returns the trip the vehicle was created with.
func (v *Vehicle) Trip() core.Trip { return v.trip }

// Position returns the current position.
func (v *Vehicle) Position() core.Position { return v.pos }

// Done reports whether the vehicle has arrived and stopped.
func (v *Vehicle) Done() bool { return v.done }

// Advance runs the vehicle's work for tick now. The arrival check comes
// first, so a vehicle already within the threshold stops without producing
// a step. Otherwise it moves, is evaluated for tolls, and returns the step.
func (v *Vehicle) Advance(now int, env *Env) (Step, bool) {
	if v.done {
		return Step{}, false
	}
	dst := v.trip.Destination
	if geo.PlanarDistance(v.pos, dst) <= env.Params.ArrivalThreshold {
		v.done = true
		return Step{}, false
	}

	f := env.Params.StepFraction
	v.pos = core.Position{
		Lat: v.pos.Lat + (dst.Lat-v.pos.Lat)*f,
		Lon: v.pos.Lon + (dst.Lon-v.pos.Lon)*f,
	}

	step := Step{Movement: core.MovementRecord{VehicleID: v.trip.VehicleID, Position: v.pos, Time: now}}

	if m, ok := env.Evaluator.Evaluate(v.pos); ok {
		charge := env.Tariff.ChargeFor(v.trip.Start, v.pos)
		if env.Ledger.AttemptCharge(v.trip.VehicleID, charge) {
			step.Toll = &core.TollCollectionRecord{
				VehicleID: v.trip.VehicleID,
				Zone:      m.Zone,
				Charge:    charge,
				Time:      now,
			}
		} else {
			step.Declined = true
		}
	}

	return step, true
}
