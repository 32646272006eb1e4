package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

var ErrNotFound = errors.New("ride not found")

// Settlement is the server-side record of a finished ride.
type Settlement struct {
	RideID         string    `json:"ride_id"`
	Rider          string    `json:"rider"`
	BikeID         int       `json:"bike_id"`
	BikeModel      string    `json:"bike_model"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Cost           float64   `json:"cost"`
	DistanceKm     float64   `json:"distance_km"`
	EndedAt        time.Time `json:"ended_at"`
	Paid           bool      `json:"paid"`
	PaidAt         time.Time `json:"paid_at,omitempty"`
}

// FromEvent builds a settlement from a ride.ended event.
func FromEvent(ev models.RideEvent) Settlement {
	return Settlement{
		RideID:         ev.RideID,
		Rider:          ev.Rider,
		BikeID:         ev.BikeID,
		BikeModel:      ev.BikeModel,
		ElapsedSeconds: ev.Elapsed,
		Cost:           ev.Cost,
		DistanceKm:     ev.DistanceKm,
		EndedAt:        ev.At,
	}
}

// Ledger persists settled rides. SaveRide is an upsert so redelivered events
// are harmless.
type Ledger interface {
	SaveRide(ctx context.Context, s Settlement) error
	MarkPaid(ctx context.Context, rideID string, at time.Time) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]Settlement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]Settlement)}
}

func (m *MemoryStore) SaveRide(_ context.Context, s Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.rides[s.RideID]; ok && prev.Paid {
		s.Paid, s.PaidAt = true, prev.PaidAt
	}
	m.rides[s.RideID] = s
	return nil
}

func (m *MemoryStore) MarkPaid(_ context.Context, rideID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rides[rideID]
	if !ok {
		return ErrNotFound
	}
	s.Paid, s.PaidAt = true, at
	m.rides[rideID] = s
	return nil
}

func (m *MemoryStore) Get(id string) (Settlement, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rides[id]
	return s, ok
}

// ByRider lists a rider's settlements, most recent first.
func (m *MemoryStore) ByRider(rider string) []Settlement {
	m.mu.RLock()
	out := make([]Settlement, 0)
	for _, s := range m.rides {
		if s.Rider == rider {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	return out
}
