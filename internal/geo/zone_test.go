package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tollsim/tollsim/pkg/core"
)

func square(name string) core.TollZone {
	return core.TollZone{Name: name, Ring: core.Polyline{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0},
	}}
}

func TestNewZone_Contains(t *testing.T) {
	z, err := NewZone(square("sq"))
	require.NoError(t, err)
	assert.Equal(t, "sq", z.Name())

	assert.True(t, z.Contains(core.Position{Lat: 0.5, Lon: 0.5}), "interior")
	assert.True(t, z.Contains(core.Position{Lat: 0, Lon: 0.5}), "edge counts as inside")
	assert.True(t, z.Contains(core.Position{Lat: 1, Lon: 1}), "vertex counts as inside")
	assert.False(t, z.Contains(core.Position{Lat: 1.5, Lon: 0.5}), "outside")
	assert.False(t, z.Contains(core.Position{Lat: -0.0001, Lon: 0.5}), "just outside")
}

func TestNewZone_ClosedAndOpenRingsAgree(t *testing.T) {
	open := square("open")
	closed := square("closed")
	closed.Ring = append(closed.Ring, closed.Ring[0])

	zo, err := NewZone(open)
	require.NoError(t, err)
	zc, err := NewZone(closed)
	require.NoError(t, err)

	for _, p := range []core.Position{{Lat: 0.2, Lon: 0.7}, {Lat: 2, Lon: 2}, {Lat: 1, Lon: 0.3}} {
		assert.Equal(t, zo.Contains(p), zc.Contains(p), "point %+v", p)
	}
	assert.InDelta(t, 1.0, zc.Polygon().Area(), 1e-12)
}

func TestNewZone_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ring core.Polyline
	}{
		{"empty", nil},
		{"two vertices", core.Polyline{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}},
		{"repeated vertices", core.Polyline{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}}},
		{"collinear", core.Polyline{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}},
		{"self-intersecting", core.Polyline{{Lat: 0, Lon: 0}, {Lat: 4, Lon: 2}, {Lat: 4, Lon: 0}, {Lat: 0, Lon: 1}}},
		{"not finite", core.Polyline{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 2, Lon: nan()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewZone(core.TollZone{Name: tt.name, Ring: tt.ring})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGeometry), "got %v", err)
		})
	}
}

func TestNewZones_NamesAndOrder(t *testing.T) {
	a := square("")
	b := square("b")
	zones, err := NewZones([]core.TollZone{a, b})
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "zone-0", zones[0].Name())
	assert.Equal(t, "b", zones[1].Name())
}

func TestNewZones_FailsFast(t *testing.T) {
	_, err := NewZones([]core.TollZone{square("ok"), {Name: "bad"}})
	require.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Contains(t, err.Error(), `"bad"`)
}

func nan() float64 {
	var zero float64
	return zero / zero
}
