package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tollsim/tollsim/pkg/core"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Run", &Run{}, "runs"},
		{"Movement", &Movement{}, "movements"},
		{"TollCollection", &TollCollection{}, "toll_collections"},
		{"Balance", &Balance{}, "balances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestNewRun_EncodesParams(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row, err := NewRun(&core.Run{
		Name:      "default",
		StartedAt: started,
		Horizon:   100,
		Vehicles:  5,
		Zones:     2,
		Params:    map[string]any{"stepFraction": 0.01, "ratePerKm": 0.05},
	})
	require.NoError(t, err)

	assert.Equal(t, "default", row.Name)
	assert.Equal(t, started, row.StartedAt)
	assert.Equal(t, 100, row.Horizon)
	assert.False(t, row.EndTime.Valid)

	var params map[string]float64
	require.NoError(t, json.Unmarshal(row.Params, &params))
	assert.Equal(t, 0.01, params["stepFraction"])
	assert.Equal(t, 0.05, params["ratePerKm"])
}

func TestNewRun_RejectsUnencodableParams(t *testing.T) {
	_, err := NewRun(&core.Run{Params: map[string]any{"bad": make(chan int)}})
	assert.Error(t, err)
}

func TestRecordConversion(t *testing.T) {
	m := core.MovementRecord{VehicleID: 3, Position: core.Position{Lat: 37.7751, Lon: -122.419}, Time: 12}
	row := NewMovement(7, m)
	assert.Equal(t, uint(7), row.RunID)
	assert.Equal(t, m, row.Record())

	tc := core.TollCollectionRecord{VehicleID: 3, Zone: "north", Charge: 1, Time: 12}
	trow := NewTollCollection(7, tc)
	assert.Equal(t, uint(7), trow.RunID)
	assert.Equal(t, tc, trow.Record())
}
