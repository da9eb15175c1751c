// pkg/core/vehicle.go
package core

// Trip describes one vehicle for a run.
// VehicleID is unique within the run and also keys the vehicle's account.
type Trip struct {
	VehicleID   int      `json:"vehicleId"`
	Start       Position `json:"start"`
	Destination Position `json:"destination"`
}

// MovementRecord is emitted once per tick per active vehicle.
type MovementRecord struct {
	VehicleID int      `json:"vehicleId"`
	Position  Position `json:"position"`
	Time      int      `json:"time"`
}

// TollCollectionRecord is emitted only when a charge was debited.
// Zone is the name of the zone that triggered the charge.
type TollCollectionRecord struct {
	VehicleID int     `json:"vehicleId"`
	Zone      string  `json:"zone"`
	Charge    float64 `json:"charge"`
	Time      int     `json:"time"`
}
