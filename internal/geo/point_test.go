package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredInvertsOrder(t *testing.T) {
	p := Point{Lat: 12.97, Lng: 77.59}
	s := p.Stored()

	assert.Equal(t, TypePoint, s.Type)
	assert.Equal(t, 77.59, s.Coordinates[0], "longitude first")
	assert.Equal(t, 12.97, s.Coordinates[1], "latitude second")
	assert.Equal(t, p, s.Point())
}

func TestStoredPointJSON(t *testing.T) {
	raw, err := json.Marshal(Point{Lat: 12.97, Lng: 77.59}.Stored())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[77.59,12.97]}`, string(raw))
}

func TestStoredPointScan(t *testing.T) {
	var s StoredPoint
	require.NoError(t, s.Scan([]byte(`{"type":"Point","coordinates":[77.59,12.97]}`)))
	assert.Equal(t, Point{Lat: 12.97, Lng: 77.59}, s.Point())

	require.Error(t, s.Scan(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`))
	require.Error(t, s.Scan(42))
}

func TestStoredPointValueRoundTrip(t *testing.T) {
	in := Point{Lat: -33.86, Lng: 151.21}.Stored()
	v, err := in.Value()
	require.NoError(t, err)

	var out StoredPoint
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)
}

func TestDistanceMeters(t *testing.T) {
	center := Point{Lat: 12.97, Lng: 77.59}
	assert.InDelta(t, 0, DistanceMeters(center, center), 1e-6)

	// 0.01 degree of latitude is roughly 1.11 km.
	d := DistanceMeters(center, Point{Lat: 12.98, Lng: 77.59})
	assert.InDelta(t, 1112, d, 5)
}

func TestValid(t *testing.T) {
	assert.True(t, Point{Lat: 0, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
}
