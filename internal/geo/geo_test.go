package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMatchesKnownGeodesic(t *testing.T) {
	d := Distance(Point{Lon: 0, Lat: 0}, Point{Lon: 1, Lat: 1})
	require.InDelta(t, 156899.57, d, 1.0)

	require.Zero(t, Distance(Point{Lon: 121.47, Lat: 31.23}, Point{Lon: 121.47, Lat: 31.23}))
}

func TestWithinIsInclusive(t *testing.T) {
	origin := Point{Lon: 0, Lat: 0}

	require.True(t, Within(origin, origin, 0))
	require.False(t, Within(Point{Lon: 1, Lat: 1}, origin, 1000))
	require.True(t, Within(Point{Lon: 1, Lat: 1}, origin, 160000))

	exact := Distance(origin, Point{Lon: 0, Lat: 0.5})
	require.True(t, Within(origin, Point{Lon: 0, Lat: 0.5}, exact))
	require.False(t, Within(origin, Point{Lon: 0, Lat: 0.5}, exact-0.01))
}

func TestWithinAlongMeridianNotClippedByBound(t *testing.T) {
	center := Point{Lon: 10, Lat: 0}
	north := Point{Lon: 10, Lat: 0.9}
	d := Distance(center, north)
	assert.True(t, Within(center, north, d))
}

func TestWithinAcrossAntimeridian(t *testing.T) {
	west := Point{Lon: 179.999, Lat: 0}
	east := Point{Lon: -179.999, Lat: 0}
	require.True(t, Within(west, east, 500))
}

func TestWithinRejectsNegativeDistance(t *testing.T) {
	require.False(t, Within(Point{}, Point{}, -1))
}

func TestPointUnmarshalAcceptsBothShapes(t *testing.T) {
	var flat, nested Point
	require.NoError(t, json.Unmarshal([]byte(`{"lon":121.47,"lat":31.23}`), &flat))
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Point","coordinates":[121.47,31.23]}`), &nested))

	require.InDelta(t, 121.47, flat.Lon, 1e-6)
	require.InDelta(t, 31.23, flat.Lat, 1e-6)
	require.Equal(t, flat, nested)

	var bad Point
	require.ErrorIs(t, json.Unmarshal([]byte(`{"coordinates":[1]}`), &bad), ErrInvalidPoint)
}

func TestPointValidate(t *testing.T) {
	require.NoError(t, Point{Lon: -180, Lat: 90}.Validate())
	require.Error(t, Point{Lon: 181, Lat: 0}.Validate())
	require.Error(t, Point{Lon: 0, Lat: -91}.Validate())
}
