package history

import (
	"math"
	"testing"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

func TestNewRecordCopiesSettlement(t *testing.T) {
	start := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	s := models.RideSession{ID: "r", BikeModel: "CityGlide", StartedAt: start, ElapsedSeconds: 125, Cost: 12.5, DistanceKm: 0.3}
	r := NewRecord(s, "id-1", time.UTC)
	if r.ID != "id-1" || r.Cost != 12.5 || r.ElapsedSeconds != 125 || r.DistanceKm != 0.3 || r.BikeModel != "CityGlide" {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.Date != "Mar 5, 2024, 02:07 PM" {
		t.Fatalf("unexpected date %q", r.Date)
	}
}

func TestBookOrderAndRecent(t *testing.T) {
	b := NewBook()
	for _, id := range []string{"a", "b", "c", "d"} {
		b.Prepend(models.PastRideRecord{ID: id, DistanceKm: 1})
	}
	got := b.Recent(3)
	if len(got) != 3 || got[0].ID != "d" || got[2].ID != "b" {
		t.Fatalf("unexpected recent %+v", got)
	}
	got[0].ID = "mutated"
	if b.Records()[0].ID != "d" {
		t.Fatal("Recent must return a copy")
	}
	if len(b.Recent(10)) != 4 {
		t.Fatal("Recent should clamp to the book size")
	}
	b.Reset()
	if b.Len() != 0 {
		t.Fatal("expected empty book after reset")
	}
}

func TestStats(t *testing.T) {
	b := NewBook()
	b.Prepend(models.PastRideRecord{DistanceKm: 2, Cost: 10})
	b.Prepend(models.PastRideRecord{DistanceKm: 3, Cost: 5})
	s := b.Stats()
	if s.TotalRides != 2 || s.TotalDistanceKm != 5 || s.TotalSpent != 15 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.MoneySaved != 75 || math.Abs(s.CO2SavedKg-0.6) > 1e-9 {
		t.Fatalf("unexpected savings %+v", s)
	}
}
