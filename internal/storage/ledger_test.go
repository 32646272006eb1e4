package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

func TestMemoryStoreUpsertKeepsPayment(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	end := time.Unix(1700000000, 0)
	s := FromEvent(models.RideEvent{Type: models.RideEnded, RideID: "r1", Rider: "0171", BikeID: 2, Cost: 12.5, Elapsed: 125, At: end})
	if err := m.SaveRide(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkPaid(ctx, "r1", end.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveRide(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, ok := m.Get("r1")
	if !ok || !got.Paid || got.Cost != 12.5 || got.ElapsedSeconds != 125 {
		t.Fatalf("redelivery lost the payment: %+v", got)
	}
	if err := m.MarkPaid(ctx, "missing", end); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreByRider(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Unix(1700000000, 0)
	_ = m.SaveRide(ctx, Settlement{RideID: "a", Rider: "x", EndedAt: base})
	_ = m.SaveRide(ctx, Settlement{RideID: "b", Rider: "x", EndedAt: base.Add(time.Hour)})
	_ = m.SaveRide(ctx, Settlement{RideID: "c", Rider: "y", EndedAt: base})
	got := m.ByRider("x")
	if len(got) != 2 || got[0].RideID != "b" {
		t.Fatalf("unexpected rides %+v", got)
	}
}
