package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tollsim/tollsim/pkg/core"
	"github.com/wroge/wgs84"
)

// Positions are carried as lat/lon in core types. When handed to
// simplefeatures they become XY with X = longitude and Y = latitude.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrInvalidGeometry is returned for empty or degenerate zones and roads.
var ErrInvalidGeometry = errors.New("invalid geometry")

// PositionFromString parses a string in the format "lat,lon" into a core.Position.
func PositionFromString(coords string) (core.Position, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	p := core.Position{Lat: lat, Lon: lon}
	if !Finite(p) {
		return core.Position{}, ErrInvalidCoordinates
	}
	return p, nil
}

// Finite reports whether both components of p are finite numbers.
func Finite(p core.Position) bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// XY converts a position to a simplefeatures coordinate.
func XY(p core.Position) geom.XY {
	return geom.XY{X: p.Lon, Y: p.Lat}
}

// Point converts a position to a simplefeatures point.
func Point(p core.Position) geom.Point {
	return XY(p).AsPoint()
}

// WebMercator projects a WGS84 position (EPSG:4326) to EPSG:3857 metres.
// Plotting tools expect planar metres, so exported tracks carry both forms.
func WebMercator(p core.Position) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(p.Lon, p.Lat, 0)
	return x, y
}
