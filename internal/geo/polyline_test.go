package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tollsim/tollsim/pkg/core"
)

func TestParsePolyline(t *testing.T) {
	line, err := ParsePolyline(`[[37.7749,-122.4194],[37.7750,-122.4183]]`)
	require.NoError(t, err)
	require.Len(t, line, 2)
	assert.Equal(t, core.Position{Lat: 37.7749, Lon: -122.4194}, line[0])
	assert.Equal(t, core.Position{Lat: 37.7750, Lon: -122.4183}, line[1])
}

func TestParsePolyline_Errors(t *testing.T) {
	_, err := ParsePolyline(`not json`)
	assert.Error(t, err)

	_, err = ParsePolyline(`[[1,2],[3]]`)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestNewRoad(t *testing.T) {
	road, err := NewRoad(core.Road{Name: "market", Points: core.Polyline{
		{Lat: 37.7749, Lon: -122.4194},
		{Lat: 37.7750, Lon: -122.4183},
		{Lat: 37.7760, Lon: -122.4172},
		{Lat: 37.7770, Lon: -122.4161},
	}})
	require.NoError(t, err)

	assert.Equal(t, "market", road.Name())
	assert.Equal(t, 4, road.LineString().Coordinates().Length())
	assert.InDelta(t, 0.392, road.LengthKm(), 0.005)
}

func TestNewRoad_TooShort(t *testing.T) {
	_, err := NewRoad(core.Road{Name: "stub", Points: core.Polyline{{Lat: 1, Lon: 1}}})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}
