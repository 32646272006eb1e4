package geo

import (
	"math"

	"github.com/example/ebike-ride/internal/models"
)

const (
	EarthRadiusKm   = 6371.0
	WalkingSpeedKmh = 5.0
)

// HaversineKm is the great-circle distance between a and b in kilometres.
func HaversineKm(a, b models.Coord) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// WalkTimeMinutes converts a walking distance into minutes at WalkingSpeedKmh.
func WalkTimeMinutes(distanceKm float64) float64 {
	return distanceKm / WalkingSpeedKmh * 60
}

// TravelMinutes is the time to cover distanceKm at speedKmh.
func TravelMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceKm / speedKmh * 60
}

type Bounds struct {
	NorthEast models.Coord `json:"north_east"`
	SouthWest models.Coord `json:"south_west"`
}

// BoundsOf returns the smallest box containing every point of path.
func BoundsOf(path []models.Coord) Bounds {
	if len(path) == 0 {
		return Bounds{}
	}
	b := Bounds{NorthEast: path[0], SouthWest: path[0]}
	for _, p := range path[1:] {
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	}
	return b
}

// PathLengthKm sums the haversine length of consecutive path segments.
func PathLengthKm(path []models.Coord) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		total += HaversineKm(path[i], path[i+1])
	}
	return total
}
