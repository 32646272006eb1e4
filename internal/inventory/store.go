package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/models"
)

// Store is the fleet index the backend reads when a rider asks for bikes.
type Store interface {
	Nearby(ctx context.Context, center models.Coord, radiusKm float64, limit int) ([]models.Bike, error)
	Upsert(ctx context.Context, bikes ...models.Bike) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	bikes map[int]models.Bike
}

func NewMemoryStore(seed ...models.Bike) *MemoryStore {
	m := &MemoryStore{bikes: make(map[int]models.Bike)}
	for _, b := range seed {
		m.bikes[b.ID] = b
	}
	return m
}

func (m *MemoryStore) Upsert(_ context.Context, bikes ...models.Bike) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bikes {
		m.bikes[b.ID] = b
	}
	return nil
}

// Nearby scans the whole fleet; fine for a campus-sized inventory.
// A radius or limit <= 0 disables that bound. Results are ordered by id.
func (m *MemoryStore) Nearby(ctx context.Context, center models.Coord, radiusKm float64, limit int) ([]models.Bike, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.Bike, 0, len(m.bikes))
	for _, b := range m.bikes {
		if radiusKm > 0 && geo.HaversineKm(center, b.Location) > radiusKm {
			continue
		}
		out = append(out, b)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
