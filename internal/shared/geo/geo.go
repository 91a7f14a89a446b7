// Package geo implements great-circle distance and radius search over located
// entities such as taxi ranks and fare signs. Everything here is pure; callers
// supply the candidate pool.
package geo

import (
	"math"
	"sort"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
)

const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return apperr.Validation(apperr.CodeInvalidCoordinate, "invalid coordinate (%v, %v)", p.Lat, p.Lon)
	}
	return nil
}

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates on a sphere of radius EarthRadiusKm.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func Distance(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Rectangle is a latitude/longitude box used to narrow candidate sets in SQL
// before exact distances are computed.
type Rectangle struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox returns a box that contains every point within radiusKm of
// center. Near the poles, or when the box would cross the antimeridian, the
// longitude range widens to the full circle.
func BoundingBox(center Point, radiusKm float64) Rectangle {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	rect := Rectangle{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}

	cosLat := math.Cos(toRadians(math.Max(math.Abs(rect.MinLat), math.Abs(rect.MaxLat))))
	if cosLat <= 1e-9 {
		return rect
	}
	dLon := dLat / cosLat
	if center.Lon-dLon < -180 || center.Lon+dLon > 180 {
		return rect
	}
	rect.MinLon = center.Lon - dLon
	rect.MaxLon = center.Lon + dLon
	return rect
}

func (r Rectangle) Contains(p Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat && p.Lon >= r.MinLon && p.Lon <= r.MaxLon
}

// Located is implemented by anything that can be searched by distance.
type Located interface {
	LocationKey() string
	Location() Point
	IsActive() bool
}

type Match[T Located] struct {
	Item       T
	DistanceKm float64
}

// Nearby returns the active candidates within radiusMeters of origin (inclusive),
// ordered by ascending distance with ties broken by ascending key.
func Nearby[T Located](origin Point, radiusMeters float64, candidates []T) ([]Match[T], error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "radius must be non-negative")
	}
	limitKm := radiusMeters / 1000

	matches := make([]Match[T], 0)
	for _, c := range candidates {
		if !c.IsActive() {
			continue
		}
		d := Distance(origin, c.Location())
		if d <= limitKm {
			matches = append(matches, Match[T]{Item: c, DistanceKm: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Item.LocationKey() < matches[j].Item.LocationKey()
	})
	return matches, nil
}

// Nearest returns the closest active candidate within radiusMeters.
func Nearest[T Located](origin Point, radiusMeters float64, candidates []T) (Match[T], bool, error) {
	matches, err := Nearby(origin, radiusMeters, candidates)
	if err != nil || len(matches) == 0 {
		return Match[T]{}, false, err
	}
	return matches[0], true, nil
}
