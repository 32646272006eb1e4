package backend

import (
	"math/rand"
	"sync"
)

// FailurePolicy decides whether a simulated call fails. Safe for concurrent use.
type FailurePolicy struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewFailurePolicy fails a call with probability rate using a generator seeded with seed.
func NewFailurePolicy(rate float64, seed int64) *FailurePolicy {
	return &FailurePolicy{rate: rate, rng: rand.New(rand.NewSource(seed))}
}

func Never() *FailurePolicy  { return &FailurePolicy{rate: 0} }
func Always() *FailurePolicy { return &FailurePolicy{rate: 1} }

// Fail draws once. Rates of 0 and 1 never touch the generator.
func (p *FailurePolicy) Fail() bool {
	if p == nil || p.rate <= 0 {
		return false
	}
	if p.rate >= 1 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.rate
}

func (p *FailurePolicy) Rate() float64 {
	if p == nil {
		return 0
	}
	return p.rate
}
