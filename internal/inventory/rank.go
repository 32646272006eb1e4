package inventory

import (
	"sort"

	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/models"
)

// RangeBuffer is the safety margin applied to a trip before a bike's range is
// considered sufficient.
const RangeBuffer = 1.2

// Rank decorates every bike with its distance and walking time from rider and
// orders them nearest first. Ties keep their input order.
func Rank(bikes []models.Bike, rider models.Coord) []models.RankedBike {
	out := make([]models.RankedBike, 0, len(bikes))
	for _, b := range bikes {
		d := geo.HaversineKm(rider, b.Location)
		out = append(out, models.RankedBike{Bike: b, DistanceKm: d, WalkTimeMinutes: geo.WalkTimeMinutes(d)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// FilterByRange keeps bikes whose range covers rider->bike->destination with
// RangeBuffer to spare. A nil destination returns ranked unchanged.
func FilterByRange(ranked []models.RankedBike, rider models.Coord, destination *models.Coord) []models.RankedBike {
	if destination == nil {
		return ranked
	}
	out := make([]models.RankedBike, 0, len(ranked))
	for _, b := range ranked {
		trip := geo.HaversineKm(rider, b.Location) + geo.HaversineKm(b.Location, *destination)
		if HasRange(b.RangeKm, trip) {
			out = append(out, b)
		}
	}
	return out
}

// HasRange reports whether rangeKm strictly exceeds tripKm with the buffer applied.
func HasRange(rangeKm, tripKm float64) bool {
	return rangeKm > tripKm*RangeBuffer
}

// Find returns the ranked bike with the given id.
func Find(ranked []models.RankedBike, id int) (models.RankedBike, bool) {
	for _, b := range ranked {
		if b.ID == id {
			return b, true
		}
	}
	return models.RankedBike{}, false
}
