// Package model holds the GORM row types of the SQLite reporting database.
package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tollsim/tollsim/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table migrated by the reporting database.
var DatabaseModels = []any{
	&Run{},
	&Movement{},
	&TollCollection{},
	&Balance{},
}

// Run is one simulation run.
type Run struct {
	gorm.Model
	Name      string         `json:"name" gorm:"size:127"`
	StartedAt time.Time      `json:"startedAt"`
	Horizon   int            `json:"horizon"`
	Vehicles  int            `json:"vehicles"`
	Zones     int            `json:"zones"`
	Params    datatypes.JSON `json:"params"`
	EndTime   sql.NullInt64  `json:"endTime"`
}

func (*Run) TableName() string {
	return "runs"
}

// Movement is one vehicle position at one tick.
type Movement struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	RunID     uint    `json:"runId" gorm:"index:idx_movement_run_time"`
	Time      int     `json:"time" gorm:"index:idx_movement_run_time"`
	VehicleID int     `json:"vehicleId" gorm:"index"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

func (*Movement) TableName() string {
	return "movements"
}

// TollCollection is one successful charge.
type TollCollection struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	RunID     uint    `json:"runId" gorm:"index:idx_toll_run_time"`
	Time      int     `json:"time" gorm:"index:idx_toll_run_time"`
	VehicleID int     `json:"vehicleId" gorm:"index"`
	Zone      string  `json:"zone" gorm:"size:127"`
	Charge    float64 `json:"charge"`
}

func (*TollCollection) TableName() string {
	return "toll_collections"
}

// Balance is a vehicle's final account balance.
type Balance struct {
	RunID     uint    `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	VehicleID int     `json:"vehicleId" gorm:"primaryKey;autoIncrement:false"`
	Amount    float64 `json:"amount"`
}

func (*Balance) TableName() string {
	return "balances"
}

// NewRun converts run metadata to a row. Params is stored as a JSON column.
func NewRun(r *core.Run) (Run, error) {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return Run{}, fmt.Errorf("failed to encode run params: %w", err)
	}
	return Run{
		Name:      r.Name,
		StartedAt: r.StartedAt,
		Horizon:   r.Horizon,
		Vehicles:  r.Vehicles,
		Zones:     r.Zones,
		Params:    datatypes.JSON(params),
	}, nil
}

func NewMovement(runID uint, r core.MovementRecord) Movement {
	return Movement{
		RunID:     runID,
		Time:      r.Time,
		VehicleID: r.VehicleID,
		Lat:       r.Position.Lat,
		Lon:       r.Position.Lon,
	}
}

func (m Movement) Record() core.MovementRecord {
	return core.MovementRecord{
		VehicleID: m.VehicleID,
		Position:  core.Position{Lat: m.Lat, Lon: m.Lon},
		Time:      m.Time,
	}
}

func NewTollCollection(runID uint, r core.TollCollectionRecord) TollCollection {
	return TollCollection{
		RunID:     runID,
		Time:      r.Time,
		VehicleID: r.VehicleID,
		Zone:      r.Zone,
		Charge:    r.Charge,
	}
}

func (t TollCollection) Record() core.TollCollectionRecord {
	return core.TollCollectionRecord{
		VehicleID: t.VehicleID,
		Zone:      t.Zone,
		Charge:    t.Charge,
		Time:      t.Time,
	}
}
