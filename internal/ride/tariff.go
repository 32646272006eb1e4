package ride

import (
	"time"

	"github.com/example/ebike-ride/internal/models"
)

// Tariff holds the accrual constants.
type Tariff struct {
	PauseRatePerMinute float64
	CruiseKmh          float64
	// The simulated motion signal repeats every Cycle and reports moving for
	// the first MovingWindow of each cycle.
	Cycle        time.Duration
	MovingWindow time.Duration
	IdleTimeout  time.Duration
	Tick         time.Duration
}

func DefaultTariff() Tariff {
	return Tariff{
		PauseRatePerMinute: 0.5,
		CruiseKmh:          15,
		Cycle:              60 * time.Second,
		MovingWindow:       25 * time.Second,
		IdleTimeout:        30 * time.Second,
		Tick:               time.Second,
	}
}

// Elapsed is the whole number of seconds from start to now, never negative.
func (t Tariff) Elapsed(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Moving is the synthetic motion signal at the given second of the ride.
func (t Tariff) Moving(second int) bool {
	cycle := int(t.Cycle / time.Second)
	if cycle <= 0 {
		return true
	}
	return second%cycle < int(t.MovingWindow/time.Second)
}

// CostPerSecond is what one second of riding adds to the bill.
func (t Tariff) CostPerSecond(ratePerMinute float64, paused bool) float64 {
	if paused {
		return t.PauseRatePerMinute / 60
	}
	return ratePerMinute / 60
}

// DistancePerSecond is what one second adds to the odometer.
func (t Tariff) DistancePerSecond(moving bool) float64 {
	if !moving {
		return 0
	}
	return t.CruiseKmh / 3600
}

// Apply adds the increments for every second in (last, elapsed] to s and
// returns the new last processed second. Late ticks catch up at the current
// pause rate so totals stay tied to wall-clock duration.
func (t Tariff) Apply(s *models.RideSession, last, elapsed int, paused bool) int {
	for sec := last + 1; sec <= elapsed; sec++ {
		s.Cost += t.CostPerSecond(s.RatePerMinute, paused)
		s.DistanceKm += t.DistancePerSecond(t.Moving(sec))
	}
	if elapsed > last {
		return elapsed
	}
	return last
}
