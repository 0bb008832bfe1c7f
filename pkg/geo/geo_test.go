package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateAlong(t *testing.T) {
	// ~111 m per 0.001 deg of latitude
	coords := []Coordinate{
		NewCoordinate(0, 0),
		NewCoordinate(0.001, 0),
		NewCoordinate(0.002, 0),
	}
	total := PolylineLength(coords)

	testCases := []struct {
		name    string
		dist    float64
		wantLat float64
	}{
		{name: "start", dist: 0, wantLat: 0},
		{name: "before start is clamped", dist: -20, wantLat: 0},
		{name: "middle of first segment", dist: total / 4, wantLat: 0.0005},
		{name: "second vertex", dist: total / 2, wantLat: 0.001},
		{name: "past the end is clamped", dist: total + 500, wantLat: 0.002},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, bearing := CoordinateAlong(coords, tt.dist)
			assert.InDelta(t, tt.wantLat, got.Lat, 1e-6)
			assert.InDelta(t, 0, got.Lon, 1e-6)
			assert.InDelta(t, 0, bearing, 1e-6)
		})
	}
}

func TestCumulativeDistances(t *testing.T) {
	coords := []Coordinate{
		NewCoordinate(-7.55, 110.80),
		NewCoordinate(-7.551, 110.80),
		NewCoordinate(-7.551, 110.801),
	}
	cum := CumulativeDistances(coords)
	require.Len(t, cum, 3)
	assert.Equal(t, 0.0, cum[0])
	assert.InDelta(t, PolylineLength(coords), cum[2], 1e-9)
	assert.Greater(t, cum[2], cum[1])
}

func TestProjectPointToLine(t *testing.T) {
	a := NewCoordinate(0, 0)
	b := NewCoordinate(0, 0.01)
	p := NewCoordinate(0.0005, 0.005)

	proj := ProjectPointToLineCoord(a, b, p)
	assert.InDelta(t, 0, proj.Lat, 1e-6)
	assert.InDelta(t, 0.005, proj.Lon, 1e-6)

	dist := PointLinePerpendicularDistance(a, b, p)
	assert.InDelta(t, 55.6, dist, 0.5)
}

func TestPolylineRoundTrip(t *testing.T) {
	coords := []Coordinate{
		NewCoordinate(38.5, -120.2),
		NewCoordinate(40.7, -120.95),
		NewCoordinate(43.252, -126.453),
	}

	encoded, err := EncodePolyline(coords, 5)
	require.NoError(t, err)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", encoded)

	decoded, err := DecodePolyline(encoded, 5)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	for i := range coords {
		assert.InDelta(t, coords[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, coords[i].Lon, decoded[i].Lon, 1e-5)
	}

	_, err = DecodePolyline(encoded, 7)
	assert.Error(t, err)
}

func TestBearingDifference(t *testing.T) {
	assert.InDelta(t, 20, BearingDifference(350, 10), 1e-9)
	assert.InDelta(t, 180, BearingDifference(0, 180), 1e-9)
	assert.InDelta(t, 90, BearingTo(0, 0, 0, 1), 1e-9)
}
