package routing

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/models"
)

// GoogleClient serves both directions and geocoding from the Google Maps APIs.
type GoogleClient struct {
	client *maps.Client
}

func NewGoogleClient(apiKey string) (*GoogleClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleClient{client: client}, nil
}

func travelMode(p Profile) maps.Mode {
	if p == Bicycling {
		return maps.TravelModeBicycling
	}
	return maps.TravelModeWalking
}

func latLng(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

func (g *GoogleClient) Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error) {
	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        travelMode(p),
	})
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}
	r := routes[0]
	points, err := r.OverviewPolyline.Decode()
	if err != nil {
		return Route{}, fmt.Errorf("decode polyline: %w", err)
	}
	path := make([]models.Coord, 0, len(points))
	for _, pt := range points {
		path = append(path, models.Coord{Lat: pt.Lat, Lng: pt.Lng})
	}
	out := Route{
		Profile: p,
		Path:    path,
		Bounds: geo.Bounds{
			NorthEast: models.Coord{Lat: r.Bounds.NorthEast.Lat, Lng: r.Bounds.NorthEast.Lng},
			SouthWest: models.Coord{Lat: r.Bounds.SouthWest.Lat, Lng: r.Bounds.SouthWest.Lng},
		},
	}
	for _, leg := range r.Legs {
		out.DistanceKm += float64(leg.Distance.Meters) / 1000
		out.Duration += leg.Duration
	}
	return out, nil
}

func (g *GoogleClient) Geocode(ctx context.Context, query string) (Place, error) {
	res, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return Place{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(res) == 0 {
		return Place{}, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}
	loc := res[0].Geometry.Location
	return Place{Address: res[0].FormattedAddress, Location: models.Coord{Lat: loc.Lat, Lng: loc.Lng}}, nil
}
