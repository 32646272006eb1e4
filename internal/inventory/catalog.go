package inventory

import "github.com/example/ebike-ride/internal/models"

// Center is the default map centre around Dhaka University.
var Center = models.Coord{Lat: 23.734, Lng: 90.393}

// Geofence is the displayed parking boundary. It is not enforced.
var Geofence = []models.Coord{
	{Lat: 23.740, Lng: 90.388},
	{Lat: 23.740, Lng: 90.398},
	{Lat: 23.728, Lng: 90.398},
	{Lat: 23.728, Lng: 90.388},
}

// Catalog returns a fresh copy of the seed fleet.
func Catalog() []models.Bike {
	return []models.Bike{
		{ID: 1, Location: models.Coord{Lat: 23.735, Lng: 90.394}, BatteryPercent: 85, Model: "Sprinter ZX", RatePerMinute: 2.5, RangeKm: 45},
		{ID: 2, Location: models.Coord{Lat: 23.733, Lng: 90.392}, BatteryPercent: 92, Model: "CityGlide", RatePerMinute: 2.0, RangeKm: 50},
		{ID: 3, Location: models.Coord{Lat: 23.736, Lng: 90.391}, BatteryPercent: 60, Model: "Sprinter ZX", RatePerMinute: 2.5, RangeKm: 30},
		{ID: 4, Location: models.Coord{Lat: 23.732, Lng: 90.395}, BatteryPercent: 78, Model: "EcoRide", RatePerMinute: 1.8, RangeKm: 40},
		{ID: 5, Location: models.Coord{Lat: 23.734, Lng: 90.390}, BatteryPercent: 45, Model: "CityGlide", RatePerMinute: 2.0, RangeKm: 22},
	}
}
