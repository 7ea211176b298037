package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetNorth returns a point roughly meters north of p.
func offsetNorth(p GeoPoint, meters float64) GeoPoint {
	return GeoPoint{Latitude: p.Latitude + meters/(EarthRadiusMeters*math.Pi/180), Longitude: p.Longitude}
}

var forum = GeoPoint{Latitude: 50.7359, Longitude: -3.5346}

func TestHaversine_KnownCampusDistance(t *testing.T) {
	d := Haversine(forum, GeoPoint{Latitude: 50.7362, Longitude: -3.5350})
	if d < 40 || d > 50 {
		t.Fatalf("distance %.2fm outside sanity bound 40-50m", d)
	}
}

func TestHaversine_SymmetryAndZero(t *testing.T) {
	pts := []GeoPoint{forum, {0, 0}, {-33.86, 151.21}, {51.5, -0.12}, {89.9, 179.9}}
	for _, a := range pts {
		assert.Equal(t, 0.0, Haversine(a, a))
		for _, b := range pts {
			assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-6)
		}
	}
}

func TestHaversine_TriangleInequality(t *testing.T) {
	a, b, c := forum, GeoPoint{50.74, -3.53}, GeoPoint{50.73, -3.52}
	assert.LessOrEqual(t, Haversine(a, c), Haversine(a, b)+Haversine(b, c)+1e-6)
}

func TestNewGeoPoint(t *testing.T) {
	_, err := NewGeoPoint(50.7, -3.5)
	require.NoError(t, err)

	for _, bad := range [][2]float64{{91, 0}, {-90.5, 0}, {0, 181}, {0, -180.01}, {math.NaN(), 0}} {
		_, err := NewGeoPoint(bad[0], bad[1])
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Fatalf("%v: want ErrInvalidCoordinate, got %v", bad, err)
		}
	}
}

func TestNearest_OrdersAndTruncates(t *testing.T) {
	cands := []Candidate{
		{ID: "far", Point: offsetNorth(forum, 300)},
		{ID: "near", Point: offsetNorth(forum, 50)},
		{ID: "mid", Point: offsetNorth(forum, 150)},
	}
	got := Nearest(forum, cands, 2, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.InDelta(t, 50, got[0].Distance, 0.5)
	assert.InDelta(t, 150, got[1].Distance, 0.5)
}

func TestNearest_ExcludesAndDefaults(t *testing.T) {
	cands := make([]Candidate, 0, 15)
	for i := 0; i < 15; i++ {
		cands = append(cands, Candidate{ID: string(rune('a' + i)), Point: offsetNorth(forum, float64(10*(i+1)))})
	}
	got := Nearest(forum, cands, 0, map[string]struct{}{"a": {}})
	require.Len(t, got, DefaultMaxResults)
	assert.Equal(t, "b", got[0].ID)
}

func TestNearest_StableTies(t *testing.T) {
	p := offsetNorth(forum, 20)
	got := Nearest(forum, []Candidate{{ID: "first", Point: p}, {ID: "second", Point: p}}, 5, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestNearest_Empty(t *testing.T) {
	got := Nearest(forum, nil, 3, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBoundingBoxAndWithin(t *testing.T) {
	box := BoundingBox(forum, 100)
	assert.InDelta(t, 100/MetersPerDegree, box.MaxLat-forum.Latitude, 1e-12)
	assert.True(t, box.Contains(forum))
	assert.False(t, box.Contains(offsetNorth(forum, 500)))

	cands := []Candidate{
		{ID: "in", Point: offsetNorth(forum, 60)},
		{ID: "out", Point: offsetNorth(forum, 140)},
		// inside the box corner but beyond the circle
		{ID: "corner", Point: GeoPoint{Latitude: box.MaxLat - 1e-7, Longitude: box.MaxLon - 1e-7}},
	}
	got := Within(forum, cands, 100)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestBoundingBox_PolesAndAntimeridian(t *testing.T) {
	for _, lat := range []float64{90, -90} {
		box := BoundingBox(GeoPoint{Latitude: lat, Longitude: 10}, 1000)
		assert.False(t, math.IsInf(box.MinLon, 0) || math.IsNaN(box.MinLon))
		assert.Equal(t, -180.0, box.MinLon)
		assert.Equal(t, 180.0, box.MaxLon)
		assert.GreaterOrEqual(t, box.MinLat, -90.0)
		assert.LessOrEqual(t, box.MaxLat, 90.0)
	}

	// A box reaching over 180 degrees covers every longitude.
	fiji := GeoPoint{Latitude: -17.7, Longitude: 179.999}
	box := BoundingBox(fiji, 1000)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
	assert.True(t, box.Contains(GeoPoint{Latitude: -17.7, Longitude: -179.999}))
}

func TestBox_ContainsStrict(t *testing.T) {
	box := Box{MinLat: 50, MaxLat: 51, MinLon: -4, MaxLon: -3}
	assert.True(t, box.ContainsStrict(GeoPoint{Latitude: 50.5, Longitude: -3.5}))
	assert.False(t, box.ContainsStrict(GeoPoint{Latitude: 50, Longitude: -3.5}))
	assert.True(t, box.Contains(GeoPoint{Latitude: 50, Longitude: -3.5}))
}

func TestBearingAndCompass(t *testing.T) {
	north := offsetNorth(forum, 100)
	assert.InDelta(t, 0, Bearing(forum, north), 0.01)
	assert.Equal(t, "north", Compass(Bearing(forum, north)))
	assert.Equal(t, "south", Compass(Bearing(north, forum)))
	assert.Equal(t, "east", Compass(90))
	assert.Equal(t, "north-west", Compass(310))
	assert.Equal(t, "north", Compass(359))
}
