// Package scenario loads the static inputs of a run: roads, toll zones and
// vehicle trips.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/tollsim/tollsim/internal/geo"
	"github.com/tollsim/tollsim/pkg/core"
)

// ErrInvalidScenario is returned for scenarios that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is the JSON document describing a run's inputs.
//
// Polylines are accepted either as [{"lat":..,"lon":..},...] or as compact
// [[lat,lon],...]; positions either as {"lat":..,"lon":..} or as "lat,lon".
type Scenario struct {
	Name     string          `json:"name"`
	Roads    []core.Road     `json:"roads"`
	Zones    []core.TollZone `json:"zones"`
	Vehicles []core.Trip     `json:"vehicles"`
}

// Compiled is a validated scenario ready for the engine.
type Compiled struct {
	Name  string
	Roads []geo.Road
	Zones []geo.Zone
	Trips []core.Trip
}

// VehicleIDs returns the trip ids in ascending order.
func (c Compiled) VehicleIDs() []int {
	ids := make([]int, len(c.Trips))
	for i, t := range c.Trips {
		ids[i] = t.VehicleID
	}
	sort.Ints(ids)
	return ids
}

// RoadKm returns the total geodesic length of all roads.
func (c Compiled) RoadKm() float64 {
	var km float64
	for _, r := range c.Roads {
		km += r.LengthKm()
	}
	return km
}

// Load reads a scenario file.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a scenario document. Unknown fields are rejected.
func Parse(raw []byte) (Scenario, error) {
	var doc scenarioJSON
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w: %w", ErrInvalidScenario, err)
	}
	return doc.scenario(), nil
}

// Build validates s and compiles its geometry. Every problem is reported
// before a run can start.
func (s Scenario) Build() (Compiled, error) {
	if len(s.Vehicles) == 0 {
		return Compiled{}, fmt.Errorf("no vehicles: %w", ErrInvalidScenario)
	}

	seen := make(map[int]bool, len(s.Vehicles))
	for i, t := range s.Vehicles {
		if seen[t.VehicleID] {
			return Compiled{}, fmt.Errorf("vehicle %d (index %d): duplicate id: %w", t.VehicleID, i, ErrInvalidScenario)
		}
		seen[t.VehicleID] = true
		if !geo.Finite(t.Start) || !geo.Finite(t.Destination) {
			return Compiled{}, fmt.Errorf("vehicle %d: position is not finite: %w", t.VehicleID, geo.ErrInvalidGeometry)
		}
	}

	zones, err := geo.NewZones(s.Zones)
	if err != nil {
		return Compiled{}, err
	}

	roads := make([]geo.Road, 0, len(s.Roads))
	for i, r := range s.Roads {
		if r.Name == "" {
			r.Name = fmt.Sprintf("road-%d", i)
		}
		road, err := geo.NewRoad(r)
		if err != nil {
			return Compiled{}, err
		}
		roads = append(roads, road)
	}

	name := s.Name
	if name == "" {
		name = "scenario"
	}
	return Compiled{
		Name:  name,
		Roads: roads,
		Zones: zones,
		Trips: append([]core.Trip(nil), s.Vehicles...),
	}, nil
}

// Default returns the built-in San Francisco scenario: one road, two
// triangular toll zones and five vehicles sharing a start and destination.
func Default() Scenario {
	start := core.Position{Lat: 37.7749, Lon: -122.4194}
	dest := core.Position{Lat: 37.7770, Lon: -122.4161}

	vehicles := make([]core.Trip, 5)
	for i := range vehicles {
		vehicles[i] = core.Trip{VehicleID: i, Start: start, Destination: dest}
	}

	return Scenario{
		Name: "default",
		Roads: []core.Road{{
			Name: "main",
			Points: core.Polyline{
				{Lat: 37.7749, Lon: -122.4194},
				{Lat: 37.7750, Lon: -122.4183},
				{Lat: 37.7760, Lon: -122.4172},
				{Lat: 37.7770, Lon: -122.4161},
			},
		}},
		Zones: []core.TollZone{
			{
				Name: "west",
				Ring: core.Polyline{
					{Lat: 37.7749, Lon: -122.4194},
					{Lat: 37.7750, Lon: -122.4183},
					{Lat: 37.7745, Lon: -122.4180},
					{Lat: 37.7749, Lon: -122.4194},
				},
			},
			{
				Name: "east",
				Ring: core.Polyline{
					{Lat: 37.7760, Lon: -122.4172},
					{Lat: 37.7770, Lon: -122.4161},
					{Lat: 37.7755, Lon: -122.4150},
					{Lat: 37.7760, Lon: -122.4172},
				},
			},
		},
		Vehicles: vehicles,
	}
}
