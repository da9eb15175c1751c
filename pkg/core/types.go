// pkg/core/types.go
package core

// Position is a geographic coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polyline is an ordered list of positions.
type Polyline []Position

// TollZone is a named polygon region. Ring is the outer ring; it may be
// given open or closed.
type TollZone struct {
	Name string   `json:"name"`
	Ring Polyline `json:"ring"`
}

// Road is a road centerline. Roads are informational input only; vehicles
// do not follow them.
type Road struct {
	Name   string   `json:"name"`
	Points Polyline `json:"points"`
}
