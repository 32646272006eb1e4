package history

import (
	"sync"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

// DateLayout is how a past ride's start is shown in the rider's history.
const DateLayout = "Jan 2, 2006, 03:04 PM"

const (
	SavedPerKm = 15.0 // currency saved versus a ride-hail trip
	CO2PerKm   = 0.12 // kg CO2 avoided
)

// NewRecord snapshots a finished session. The date is rendered in loc
// (time.Local when nil).
func NewRecord(s models.RideSession, id string, loc *time.Location) models.PastRideRecord {
	if loc == nil {
		loc = time.Local
	}
	return models.PastRideRecord{
		ID:             id,
		Date:           s.StartedAt.In(loc).Format(DateLayout),
		BikeModel:      s.BikeModel,
		StartedAt:      s.StartedAt,
		ElapsedSeconds: s.ElapsedSeconds,
		Cost:           s.Cost,
		DistanceKm:     s.DistanceKm,
	}
}

// Book is the rider's session-scoped ride history, most recent first.
type Book struct {
	mu      sync.RWMutex
	records []models.PastRideRecord
}

func NewBook() *Book { return &Book{} }

func (b *Book) Prepend(r models.PastRideRecord) {
	b.mu.Lock()
	b.records = append([]models.PastRideRecord{r}, b.records...)
	b.mu.Unlock()
}

// Records returns a copy of every record.
func (b *Book) Records() []models.PastRideRecord {
	return b.Recent(-1)
}

// Recent returns up to n records; n < 0 means all.
func (b *Book) Recent(n int) []models.PastRideRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 || n > len(b.records) {
		n = len(b.records)
	}
	out := make([]models.PastRideRecord, n)
	copy(out, b.records[:n])
	return out
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Book) Reset() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}

type Stats struct {
	TotalRides      int     `json:"total_rides"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalSpent      float64 `json:"total_spent"`
	MoneySaved      float64 `json:"money_saved"`
	CO2SavedKg      float64 `json:"co2_saved_kg"`
}

func (b *Book) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var s Stats
	for _, r := range b.records {
		s.TotalDistanceKm += r.DistanceKm
		s.TotalSpent += r.Cost
	}
	s.TotalRides = len(b.records)
	s.MoneySaved = s.TotalDistanceKm * SavedPerKm
	s.CO2SavedKg = s.TotalDistanceKm * CO2PerKm
	return s
}
