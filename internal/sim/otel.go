package sim

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tollsim/tollsim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	ticks     metric.Int64Counter
	movements metric.Int64Counter
	collected metric.Int64Counter
	declined  metric.Int64Counter
	revenue   metric.Float64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)
	if out.ticks, err = m.Int64Counter("sim.ticks", metric.WithDescription("Ticks executed")); err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	if out.movements, err = m.Int64Counter("sim.movements", metric.WithDescription("Movement records emitted")); err != nil {
		return nil, fmt.Errorf("creating movements counter: %w", err)
	}
	if out.collected, err = m.Int64Counter("sim.tolls.collected", metric.WithDescription("Toll charges debited")); err != nil {
		return nil, fmt.Errorf("creating collected counter: %w", err)
	}
	if out.declined, err = m.Int64Counter("sim.tolls.declined", metric.WithDescription("Toll charges declined for insufficient funds")); err != nil {
		return nil, fmt.Errorf("creating declined counter: %w", err)
	}
	if out.revenue, err = m.Float64Counter("sim.tolls.revenue", metric.WithDescription("Sum of debited charges")); err != nil {
		return nil, fmt.Errorf("creating revenue counter: %w", err)
	}
	return &out, nil
}
