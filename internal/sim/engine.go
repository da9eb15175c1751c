// Package sim runs the toll simulation.
//
// The clock runs ticks 0 through Horizon-1. On each tick every vehicle that
// has not arrived takes exactly one step: it moves a fixed fraction of the
// remaining offset toward its destination, is checked against the toll
// zones, and may be charged. Records are handed to the Sink as they happen.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tollsim/tollsim/internal/geo"
	"github.com/tollsim/tollsim/internal/ledger"
	"github.com/tollsim/tollsim/internal/toll"
	"github.com/tollsim/tollsim/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("engine already run")

// Config holds everything a run needs.
type Config struct {
	Params Params
	Tariff toll.Tariff
	Zones  []geo.Zone
	Trips  []core.Trip
	Ledger *ledger.Ledger
	Sink   Sink
	Logger *slog.Logger
}

// Summary describes a finished run.
type Summary struct {
	Ticks       int
	Movements   int
	Collections int
	Declined    int
	Revenue     float64
	Arrived     int
	Balances    map[int]float64
}

// Engine owns the vehicles and the clock of one run.
type Engine struct {
	env      Env
	vehicles []*Vehicle
	sink     Sink
	log      *slog.Logger
	metrics  *metrics

	now     atomic.Int64
	started atomic.Bool
}

// NewEngine validates cfg and places every vehicle at its start.
// All setup problems are reported here, before any tick runs.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tariff.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required: %w", ErrInvalidConfig)
	}

	seen := make(map[int]struct{}, len(cfg.Trips))
	vehicles := make([]*Vehicle, 0, len(cfg.Trips))
	for _, trip := range cfg.Trips {
		if _, dup := seen[trip.VehicleID]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %d: %w", trip.VehicleID, ErrInvalidConfig)
		}
		seen[trip.VehicleID] = struct{}{}
		if !geo.Finite(trip.Start) || !geo.Finite(trip.Destination) {
			return nil, fmt.Errorf("vehicle %d: start and destination must be finite: %w", trip.VehicleID, ErrInvalidConfig)
		}
		if _, ok := cfg.Ledger.Balance(trip.VehicleID); !ok {
			return nil, fmt.Errorf("vehicle %d has no ledger account: %w", trip.VehicleID, ErrInvalidConfig)
		}
		vehicles = append(vehicles, NewVehicle(trip))
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	sink := cfg.Sink
	if sink == nil {
		sink = Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		env: Env{
			Params:    cfg.Params,
			Evaluator: toll.NewEvaluator(cfg.Zones),
			Tariff:    cfg.Tariff,
			Ledger:    cfg.Ledger,
		},
		vehicles: vehicles,
		sink:     sink,
		log:      logger,
		metrics:  m,
	}, nil
}

// Now returns the tick currently being executed, or the horizon once the
// run is over. Safe to call from any goroutine.
func (e *Engine) Now() int { return int(e.now.Load()) }

// Vehicles returns the vehicle processes in trip order.
func (e *Engine) Vehicles() []*Vehicle { return e.vehicles }

// Run drives the clock to the horizon. The context is checked between
// ticks; a cancelled run returns the context error with the records of the
// completed ticks already delivered.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	if !e.started.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRun
	}

	horizon := e.env.Params.Horizon
	var sum Summary
	e.log.Info("Simulation started", "vehicles", len(e.vehicles), "zones", e.env.Evaluator.Zones(), "horizon", horizon)

	steps := make([]Step, len(e.vehicles))
	moved := make([]bool, len(e.vehicles))

	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			e.log.Warn("Simulation cancelled", "tick", t, "error", err)
			return e.finish(sum), err
		}
		e.now.Store(int64(t))

		if err := e.tick(ctx, t, steps, moved); err != nil {
			return e.finish(sum), err
		}

		for i := range e.vehicles {
			if !moved[i] {
				continue
			}
			e.emit(ctx, steps[i], &sum)
		}

		sum.Ticks++
		e.metrics.ticks.Add(ctx, 1)
	}

	e.now.Store(int64(horizon))
	sum = e.finish(sum)
	e.log.Info("Simulation finished",
		"ticks", sum.Ticks,
		"movements", sum.Movements,
		"collections", sum.Collections,
		"declined", sum.Declined,
		"revenue", sum.Revenue,
		"arrived", sum.Arrived,
	)
	return sum, nil
}

// tick advances every active vehicle once. With more than one worker the
// vehicles are advanced concurrently; each vehicle only touches its own
// state and its own ledger account.
func (e *Engine) tick(ctx context.Context, t int, steps []Step, moved []bool) error {
	workers := e.env.Params.Workers
	if workers <= 1 || len(e.vehicles) < 2 {
		for i, v := range e.vehicles {
			steps[i], moved[i] = v.Advance(t, &e.env)
		}
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range e.vehicles {
		i, v := i, v
		g.Go(func() error {
			steps[i], moved[i] = v.Advance(t, &e.env)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) emit(ctx context.Context, s Step, sum *Summary) {
	vehicleAttr := metric.WithAttributes(attribute.Int("vehicle", s.Movement.VehicleID))

	if s.Toll != nil {
		e.sink.TollCollection(*s.Toll)
		sum.Collections++
		sum.Revenue += s.Toll.Charge
		e.metrics.collected.Add(ctx, 1, vehicleAttr)
		e.metrics.revenue.Add(ctx, s.Toll.Charge, vehicleAttr)
		e.log.Debug("Toll collected", "vehicle", s.Toll.VehicleID, "zone", s.Toll.Zone, "charge", s.Toll.Charge, "tick", s.Toll.Time)
	}
	if s.Declined {
		sum.Declined++
		e.metrics.declined.Add(ctx, 1, vehicleAttr)
		e.log.Debug("Toll declined", "vehicle", s.Movement.VehicleID, "tick", s.Movement.Time)
	}

	e.sink.Movement(s.Movement)
	sum.Movements++
	e.metrics.movements.Add(ctx, 1)
}

func (e *Engine) finish(sum Summary) Summary {
	sum.Arrived = 0
	for _, v := range e.vehicles {
		if v.Done() || geo.PlanarDistance(v.Position(), v.Trip().Destination) <= e.env.Params.ArrivalThreshold {
			sum.Arrived++
		}
	}
	sum.Balances = e.env.Ledger.Balances()
	return sum
}
