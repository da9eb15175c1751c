package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tollsim/tollsim/pkg/core"
)

// Zone is a compiled, validated toll zone polygon.
type Zone struct {
	name string
	poly geom.Polygon
}

// NewZone validates z and builds its polygon. The ring is closed
// automatically; it needs at least three distinct vertices, a non-zero area
// and must not cross itself.
func NewZone(z core.TollZone) (Zone, error) {
	if len(z.Ring) == 0 {
		return Zone{}, fmt.Errorf("zone %q: empty ring: %w", z.Name, ErrInvalidGeometry)
	}

	ring := make(core.Polyline, 0, len(z.Ring)+1)
	for i, p := range z.Ring {
		if !Finite(p) {
			return Zone{}, fmt.Errorf("zone %q: vertex %d is not finite: %w", z.Name, i, ErrInvalidGeometry)
		}
		if len(ring) > 0 && ring[len(ring)-1] == p {
			continue
		}
		ring = append(ring, p)
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return Zone{}, fmt.Errorf("zone %q: ring needs at least 3 distinct vertices, got %d: %w",
			z.Name, len(ring), ErrInvalidGeometry)
	}

	flat := make([]float64, 0, 2*(len(ring)+1))
	for _, p := range ring {
		flat = append(flat, p.Lon, p.Lat)
	}
	flat = append(flat, ring[0].Lon, ring[0].Lat)

	outer := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{outer})
	if poly.Area() == 0 {
		return Zone{}, fmt.Errorf("zone %q: ring has zero area: %w", z.Name, ErrInvalidGeometry)
	}
	if err := poly.Validate(); err != nil {
		return Zone{}, fmt.Errorf("zone %q: %w: %w", z.Name, ErrInvalidGeometry, err)
	}

	return Zone{name: z.Name, poly: poly}, nil
}

// Name returns the zone name.
func (z Zone) Name() string { return z.name }

// Polygon returns the zone polygon.
func (z Zone) Polygon() geom.Polygon { return z.poly }

// Contains reports whether p lies inside the zone or on its boundary.
func (z Zone) Contains(p core.Position) bool {
	return geom.Intersects(z.poly.AsGeometry(), Point(p).AsGeometry())
}

// NewZones compiles zones in order, failing on the first invalid one.
func NewZones(zones []core.TollZone) ([]Zone, error) {
	out := make([]Zone, 0, len(zones))
	for i, z := range zones {
		if z.Name == "" {
			z.Name = fmt.Sprintf("zone-%d", i)
		}
		compiled, err := NewZone(z)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}
