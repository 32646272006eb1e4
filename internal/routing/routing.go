package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/models"
)

type Profile string

const (
	Walking   Profile = "walking"
	Bicycling Profile = "bicycling"
)

var (
	ErrNoRoute  = errors.New("no route found")
	ErrNotFound = errors.New("place not found")
)

type Route struct {
	Profile    Profile        `json:"profile"`
	Path       []models.Coord `json:"path"`
	Bounds     geo.Bounds     `json:"bounds"`
	DistanceKm float64        `json:"distance_km"`
	Duration   time.Duration  `json:"duration"`
}

type Place struct {
	Address  string       `json:"address"`
	Location models.Coord `json:"location"`
}

// Router computes a path between two points for a travel profile.
type Router interface {
	Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error)
}

// Geocoder resolves a free-text address to a position.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// StraightLine is the offline router: a two-point path at a constant speed per profile.
type StraightLine struct {
	WalkingKmh   float64
	BicyclingKmh float64
}

func (s StraightLine) Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	speed := s.WalkingKmh
	if p == Bicycling {
		speed = s.BicyclingKmh
	}
	path := []models.Coord{from, to}
	d := geo.HaversineKm(from, to)
	return Route{
		Profile:    p,
		Path:       path,
		Bounds:     geo.BoundsOf(path),
		DistanceKm: d,
		Duration:   time.Duration(geo.TravelMinutes(d, speed) * float64(time.Minute)),
	}, nil
}

// Gazetteer geocodes against a fixed list of named places. Lookup is
// case-insensitive and matches on substring of the place name.
type Gazetteer map[string]models.Coord

func (g Gazetteer) Geocode(ctx context.Context, query string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Place{}, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}
	best := ""
	for name := range g {
		if strings.Contains(strings.ToLower(name), q) && (best == "" || name < best) {
			best = name
		}
	}
	if best == "" {
		return Place{}, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}
	return Place{Address: best, Location: g[best]}, nil
}

// CampusGazetteer covers landmarks around the default service area.
func CampusGazetteer() Gazetteer {
	return Gazetteer{
		"Curzon Hall, Dhaka University":        {Lat: 23.7265, Lng: 90.4020},
		"TSC, Dhaka University":                {Lat: 23.7330, Lng: 90.3960},
		"Shahbagh, Dhaka":                      {Lat: 23.7380, Lng: 90.3958},
		"Nilkhet, Dhaka":                       {Lat: 23.7330, Lng: 90.3860},
		"Bangladesh University of Engineering": {Lat: 23.7265, Lng: 90.3925},
		"Dhanmondi Lake, Dhaka":                {Lat: 23.7465, Lng: 90.3760},
	}
}
