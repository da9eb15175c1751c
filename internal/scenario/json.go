package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tollsim/tollsim/internal/geo"
	"github.com/tollsim/tollsim/pkg/core"
)

type scenarioJSON struct {
	Name     string     `json:"name"`
	Roads    []roadJSON `json:"roads"`
	Zones    []zoneJSON `json:"zones"`
	Vehicles []tripJSON `json:"vehicles"`
}

type roadJSON struct {
	Name   string       `json:"name"`
	Points polylineJSON `json:"points"`
}

type zoneJSON struct {
	Name string       `json:"name"`
	Ring polylineJSON `json:"ring"`
}

type tripJSON struct {
	VehicleID   int          `json:"vehicleId"`
	Start       positionJSON `json:"start"`
	Destination positionJSON `json:"destination"`
}

type polylineJSON core.Polyline

func (p *polylineJSON) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("[")) && bytes.HasPrefix(bytes.TrimSpace(trimmed[1:]), []byte("[")) {
		line, err := geo.ParsePolyline(string(trimmed))
		if err != nil {
			return err
		}
		*p = polylineJSON(line)
		return nil
	}
	var line core.Polyline
	if err := json.Unmarshal(trimmed, &line); err != nil {
		return err
	}
	*p = polylineJSON(line)
	return nil
}

type positionJSON core.Position

func (p *positionJSON) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		pos, err := geo.PositionFromString(s)
		if err != nil {
			return fmt.Errorf("position %q: %w", s, err)
		}
		*p = positionJSON(pos)
		return nil
	}
	var pos core.Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return err
	}
	*p = positionJSON(pos)
	return nil
}

func (doc scenarioJSON) scenario() Scenario {
	s := Scenario{Name: doc.Name}
	for _, r := range doc.Roads {
		s.Roads = append(s.Roads, core.Road{Name: r.Name, Points: core.Polyline(r.Points)})
	}
	for _, z := range doc.Zones {
		s.Zones = append(s.Zones, core.TollZone{Name: z.Name, Ring: core.Polyline(z.Ring)})
	}
	for _, v := range doc.Vehicles {
		s.Vehicles = append(s.Vehicles, core.Trip{
			VehicleID:   v.VehicleID,
			Start:       core.Position(v.Start),
			Destination: core.Position(v.Destination),
		})
	}
	return s
}
