// Package geo holds the great-circle helpers used to match users to nearby
// features and map tiles.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// EarthRadiusMeters is the sphere radius used by Haversine.
	EarthRadiusMeters = 6371000.0
	// MetersPerDegree approximates one degree of latitude.
	MetersPerDegree = 111320.0
	// DefaultMaxResults caps Nearest when the caller passes no limit.
	DefaultMaxResults = 10
)

// ErrInvalidCoordinate is returned for latitudes or longitudes out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPoint is a WGS84 latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewGeoPoint validates the ranges and returns the point.
func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return GeoPoint{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	return GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance in meters between p1 and p2.
func Haversine(p1, p2 GeoPoint) float64 {
	lat1, lat2 := radians(p1.Latitude), radians(p2.Latitude)
	dLat := lat2 - lat1
	dLon := radians(p2.Longitude - p1.Longitude)

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing from -> to in degrees, 0..360 clockwise from north.
func Bearing(from, to GeoPoint) float64 {
	lat1, lat2 := radians(from.Latitude), radians(to.Latitude)
	dLon := radians(to.Longitude - from.Longitude)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

var compassPoints = []string{"north", "north-east", "east", "south-east", "south", "south-west", "west", "north-west"}

// Compass maps a bearing onto an 8-point compass name.
func Compass(bearing float64) string {
	idx := int(math.Round(math.Mod(bearing+360, 360)/45)) % len(compassPoints)
	return compassPoints[idx]
}

// Box is a rectangle in degree space.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a box that contains every point within meters of center,
// using the flat 111320 m/degree approximation. Latitudes are clamped to the
// poles. Near a pole, or when the box would cross the antimeridian, the box
// spans every longitude.
func BoundingBox(center GeoPoint, meters float64) Box {
	dLat := meters / MetersPerDegree
	b := Box{
		MinLat: math.Max(center.Latitude-dLat, -90),
		MaxLat: math.Min(center.Latitude+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	cos := math.Cos(radians(center.Latitude))
	if cos < 1e-9 {
		return b
	}
	dLon := meters / (MetersPerDegree * cos)
	if dLon >= 180 || center.Longitude-dLon < -180 || center.Longitude+dLon > 180 {
		return b
	}
	b.MinLon = center.Longitude - dLon
	b.MaxLon = center.Longitude + dLon
	return b
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p GeoPoint) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// ContainsStrict is Contains with the edges excluded.
func (b Box) ContainsStrict(p GeoPoint) bool {
	return p.Latitude > b.MinLat && p.Latitude < b.MaxLat &&
		p.Longitude > b.MinLon && p.Longitude < b.MaxLon
}

// Candidate is anything with an id and a position.
type Candidate struct {
	ID    string
	Point GeoPoint
}

// Ranked pairs a candidate with its distance from the query point.
type Ranked struct {
	Candidate
	Distance float64
}

// Nearest returns up to maxResults candidates ordered by distance from query,
// skipping ids in exclude. Ties keep input order.
func Nearest(query GeoPoint, candidates []Candidate, maxResults int, exclude map[string]struct{}) []Ranked {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		ranked = append(ranked, Ranked{Candidate: c, Distance: Haversine(query, c.Point)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}

// Within keeps the candidates no further than meters from center. The box
// pre-filter runs first so the exact distance is only computed for plausible
// points. Input order is preserved.
func Within(center GeoPoint, candidates []Candidate, meters float64) []Ranked {
	box := BoundingBox(center, meters)
	out := make([]Ranked, 0)
	for _, c := range candidates {
		if !box.Contains(c.Point) {
			continue
		}
		if d := Haversine(center, c.Point); d <= meters {
			out = append(out, Ranked{Candidate: c, Distance: d})
		}
	}
	return out
}
