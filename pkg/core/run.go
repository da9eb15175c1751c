// pkg/core/run.go
package core

import "time"

// Run identifies a simulation run for reporting backends.
type Run struct {
	ID        uint
	Name      string
	StartedAt time.Time
	Horizon   int
	Vehicles  int
	Zones     int
	Params    map[string]any
}

// RunResult is handed to reporting backends once the run is over.
type RunResult struct {
	EndTime  int
	Balances map[int]float64
}
