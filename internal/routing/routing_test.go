package routing

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

type countingRouter struct {
	calls int
	err   error
}

func (c *countingRouter) Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error) {
	c.calls++
	if c.err != nil {
		return Route{}, c.err
	}
	return Route{Profile: p, Path: []models.Coord{from, to}, DistanceKm: 1}, nil
}

func TestStraightLineDuration(t *testing.T) {
	s := StraightLine{WalkingKmh: 5, BicyclingKmh: 15}
	from := models.Coord{Lat: 0, Lng: 0}
	to := models.Coord{Lat: 0, Lng: 1}
	walk, err := s.Route(context.Background(), from, to, Walking)
	if err != nil {
		t.Fatal(err)
	}
	bike, _ := s.Route(context.Background(), from, to, Bicycling)
	if math.Abs(walk.Duration.Seconds()-3*bike.Duration.Seconds()) > 1 {
		t.Fatalf("walking should take 3x biking: walk=%s bike=%s", walk.Duration, bike.Duration)
	}
	if len(walk.Path) != 2 || walk.Bounds.NorthEast.Lng != 1 {
		t.Fatalf("unexpected route %+v", walk)
	}
}

func TestCachedRouterHitsOnce(t *testing.T) {
	next := &countingRouter{}
	r := Cached{Next: next, Cache: NewCache(time.Minute)}
	a, b := models.Coord{Lat: 1}, models.Coord{Lat: 2}
	for i := 0; i < 3; i++ {
		if _, err := r.Route(context.Background(), a, b, Walking); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}
	_, _ = r.Route(context.Background(), a, b, Bicycling)
	if next.calls != 2 {
		t.Fatalf("profiles must not share cache entries, got %d calls", next.calls)
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(-time.Second)
	c.Set(Walking, models.Coord{}, models.Coord{Lat: 1}, Route{DistanceKm: 3})
	if _, ok := c.Get(Walking, models.Coord{}, models.Coord{Lat: 1}); ok {
		t.Fatal("expired entry returned")
	}
}

func TestFallbackUsesSecondary(t *testing.T) {
	primary := &countingRouter{err: errors.New("down")}
	secondary := &countingRouter{}
	r := Fallback{Primary: primary, Secondary: secondary}
	if _, err := r.Route(context.Background(), models.Coord{}, models.Coord{Lat: 1}, Walking); err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestGazetteer(t *testing.T) {
	g := CampusGazetteer()
	p, err := g.Geocode(context.Background(), "shahbagh")
	if err != nil {
		t.Fatal(err)
	}
	if p.Address != "Shahbagh, Dhaka" {
		t.Fatalf("unexpected place %+v", p)
	}
	if _, err := g.Geocode(context.Background(), "atlantis"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.Geocode(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank query should not match, got %v", err)
	}
}

func TestOSRMClientParsesGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/bike/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":1500,"duration":360,"geometry":{"coordinates":[[90.39,23.73],[90.40,23.74]]}}]}`))
	}))
	defer srv.Close()

	r, err := NewOSRMClient(srv.URL).Route(context.Background(), models.Coord{Lat: 23.73, Lng: 90.39}, models.Coord{Lat: 23.74, Lng: 90.40}, Bicycling)
	if err != nil {
		t.Fatal(err)
	}
	if r.DistanceKm != 1.5 || r.Duration != 6*time.Minute {
		t.Fatalf("unexpected distance/duration %f %s", r.DistanceKm, r.Duration)
	}
	if len(r.Path) != 2 || r.Path[1] != (models.Coord{Lat: 23.74, Lng: 90.40}) {
		t.Fatalf("unexpected path %+v", r.Path)
	}
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()
	_, err := NewOSRMClient(srv.URL).Route(context.Background(), models.Coord{}, models.Coord{Lat: 1}, Walking)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}
