package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/example/ebike-ride/internal/models"
)

func TestHaversineZero(t *testing.T) {
	p := models.Coord{Lat: 23.734, Lng: 90.393}
	if d := HaversineKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	d := HaversineKm(models.Coord{Lat: 0, Lng: 0}, models.Coord{Lat: 1, Lng: 0})
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(d-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := models.Coord{Lat: 23.735, Lng: 90.394}
	b := models.Coord{Lat: 23.732, Lng: 90.395}
	if math.Abs(HaversineKm(a, b)-HaversineKm(b, a)) > 1e-12 {
		t.Fatal("haversine should be symmetric")
	}
}

func TestWalkTimeMinutes(t *testing.T) {
	if got := WalkTimeMinutes(5); got != 60 {
		t.Fatalf("5 km should take 60 min, got %f", got)
	}
	if got := WalkTimeMinutes(0.5); got != 6 {
		t.Fatalf("0.5 km should take 6 min, got %f", got)
	}
}

func TestTravelMinutesZeroSpeed(t *testing.T) {
	if got := TravelMinutes(3, 0); got != 0 {
		t.Fatalf("expected 0 for zero speed, got %f", got)
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]models.Coord{{Lat: 1, Lng: 5}, {Lat: -2, Lng: 7}, {Lat: 0, Lng: 4}})
	if b.NorthEast != (models.Coord{Lat: 1, Lng: 7}) || b.SouthWest != (models.Coord{Lat: -2, Lng: 4}) {
		t.Fatalf("unexpected bounds %+v", b)
	}
	if (BoundsOf(nil) != Bounds{}) {
		t.Fatal("empty path should give zero bounds")
	}
}

func TestLocators(t *testing.T) {
	ctx := context.Background()
	got, err := Fixed{Lat: 1, Lng: 2}.Locate(ctx)
	if err != nil || got != (models.Coord{Lat: 1, Lng: 2}) {
		t.Fatalf("fixed locator returned %+v, %v", got, err)
	}
	if _, err := (Unavailable{}).Locate(ctx); !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
}
