package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tollsim/tollsim/pkg/core"
)

// ParsePolyline parses a JSON array of coordinates into a core.Polyline.
// Input format: "[[lat1,lon1],[lat2,lon2],...]"
func ParsePolyline(input string) (core.Polyline, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	polyline := make(core.Polyline, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values: %w", i, ErrInvalidCoordinates)
		}
		polyline[i] = core.Position{Lat: coord[0], Lon: coord[1]}
	}

	return polyline, nil
}

// Road is a validated road centerline.
type Road struct {
	name string
	line geom.LineString
	km   float64
}

// NewRoad validates r and builds its line string.
func NewRoad(r core.Road) (Road, error) {
	if len(r.Points) < 2 {
		return Road{}, fmt.Errorf("road %q must have at least 2 points, got %d: %w",
			r.Name, len(r.Points), ErrInvalidGeometry)
	}

	flatCoords := make([]float64, 0, len(r.Points)*2)
	var km float64
	for i, p := range r.Points {
		if !Finite(p) {
			return Road{}, fmt.Errorf("road %q: point %d is not finite: %w", r.Name, i, ErrInvalidGeometry)
		}
		flatCoords = append(flatCoords, p.Lon, p.Lat)
		if i > 0 {
			km += GeodesicKm(r.Points[i-1], p)
		}
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return Road{name: r.Name, line: geom.NewLineString(seq), km: km}, nil
}

// Name returns the road name.
func (r Road) Name() string { return r.name }

// LineString returns the road geometry.
func (r Road) LineString() geom.LineString { return r.line }

// LengthKm is the geodesic length of the centerline.
func (r Road) LengthKm() float64 { return r.km }
