package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/tollsim/tollsim/pkg/core"
)

func TestPositionFromString_Valid(t *testing.T) {
	p, err := PositionFromString("37.7749,-122.4194")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != 37.7749 {
		t.Errorf("expected Lat=37.7749, got %f", p.Lat)
	}
	if p.Lon != -122.4194 {
		t.Errorf("expected Lon=-122.4194, got %f", p.Lon)
	}
}

func TestPositionFromString_Whitespace(t *testing.T) {
	p, err := PositionFromString(" 1.5 , 2.5 ")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != (core.Position{Lat: 1.5, Lon: 2.5}) {
		t.Errorf("unexpected position %+v", p)
	}
}

func TestPositionFromString_Invalid(t *testing.T) {
	inputs := []string{"", "37.7", "abc,1", "1,xyz", "1,2,3", "NaN,1", "1,+Inf"}
	for _, in := range inputs {
		_, err := PositionFromString(in)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestWebMercator_Origin(t *testing.T) {
	x, y := WebMercator(core.Position{})

	if x != 0 {
		t.Errorf("expected X=0 at origin, got %f", x)
	}
	if y != 0 {
		t.Errorf("expected Y=0 at origin, got %f", y)
	}
}

func TestWebMercator_Hemispheres(t *testing.T) {
	x, y := WebMercator(core.Position{Lat: 10, Lon: 10})
	if x <= 0 || y <= 0 {
		t.Errorf("expected positive X/Y, got %f/%f", x, y)
	}

	x, y = WebMercator(core.Position{Lat: -30, Lon: -45})
	if x >= 0 {
		t.Errorf("expected negative X for western hemisphere, got %f", x)
	}
	if y >= 0 {
		t.Errorf("expected negative Y for southern hemisphere, got %f", y)
	}
}

func TestPlanarDistance(t *testing.T) {
	d := PlanarDistance(core.Position{Lat: 0, Lon: 0}, core.Position{Lat: 3, Lon: 4})
	if d != 5 {
		t.Errorf("expected 5, got %f", d)
	}
}

func TestGeodesicKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      core.Position
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         core.Position{Lat: 37.7749, Lon: -122.4194},
			b:         core.Position{Lat: 37.7749, Lon: -122.4194},
			wantKm:    0,
			tolerance: 1e-9,
		},
		{
			name:      "one degree of longitude on the equator",
			a:         core.Position{Lat: 0, Lon: 0},
			b:         core.Position{Lat: 0, Lon: 1},
			wantKm:    111.3195,
			tolerance: 0.001,
		},
		{
			name:      "one degree of latitude from the equator",
			a:         core.Position{Lat: 0, Lon: 0},
			b:         core.Position{Lat: 1, Lon: 0},
			wantKm:    110.574,
			tolerance: 0.001,
		},
		{
			name:      "San Francisco trip",
			a:         core.Position{Lat: 37.7749, Lon: -122.4194},
			b:         core.Position{Lat: 37.7770, Lon: -122.4161},
			wantKm:    0.372,
			tolerance: 0.005,
		},
		{
			name:      "New York to Los Angeles",
			a:         core.Position{Lat: 40.7128, Lon: -74.0060},
			b:         core.Position{Lat: 34.0522, Lon: -118.2437},
			wantKm:    3944,
			tolerance: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GeodesicKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("GeodesicKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestGeodesicKm_Symmetry(t *testing.T) {
	a := core.Position{Lat: 25.0, Lon: 121.0}
	b := core.Position{Lat: 26.0, Lon: 122.0}
	if d1, d2 := GeodesicKm(a, b), GeodesicKm(b, a); math.Abs(d1-d2) > 1e-6 {
		t.Errorf("geodesic distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestGeodesicKm_AntipodalFallback(t *testing.T) {
	d := GeodesicKm(core.Position{Lat: 0, Lon: 0}, core.Position{Lat: 0.5, Lon: 179.7})
	if math.IsNaN(d) || d < 19000 || d > 20100 {
		t.Errorf("expected a near-antipodal distance, got %f", d)
	}
}
