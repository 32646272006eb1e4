package ride

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a virtual-time Runner. Time only moves on Advance, Go
// runs its call synchronously and queues the continuation until Flush. It is
// used by tests and by simulations that replay a ride faster than real time.
type ManualScheduler struct {
	mu        sync.Mutex
	now       time.Time
	seq       int
	timers    []*manualTimer
	pending   []func()
	afterEach func()
}

type manualTimer struct {
	due       time.Time
	every     time.Duration
	seq       int
	fn        func()
	cancelled bool
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) Now() time.Time { return m.now }

func (m *ManualScheduler) add(d, every time.Duration, fn func()) Cancel {
	m.seq++
	t := &manualTimer{due: m.now.Add(d), every: every, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.cancelled = true }
}

func (m *ManualScheduler) Every(d time.Duration, fn func()) Cancel { return m.add(d, d, fn) }

func (m *ManualScheduler) After(d time.Duration, fn func()) Cancel { return m.add(d, 0, fn) }

func (m *ManualScheduler) Go(call func(ctx context.Context) func()) {
	if cont := call(context.Background()); cont != nil {
		m.pending = append(m.pending, cont)
	}
}

// Pending is the number of continuations waiting for Flush.
func (m *ManualScheduler) Pending() int { return len(m.pending) }

// Flush runs queued continuations, including any they enqueue.
func (m *ManualScheduler) Flush() {
	for len(m.pending) > 0 {
		fn := m.pending[0]
		m.pending = m.pending[1:]
		fn()
	}
}

// Drop discards queued continuations without running them.
func (m *ManualScheduler) Drop() { m.pending = nil }

// ActiveTimers counts timers that can still fire.
func (m *ManualScheduler) ActiveTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) next(until time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if !m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].due.Before(m.timers[j].due)
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	if len(m.timers) == 0 || m.timers[0].due.After(until) {
		return nil
	}
	return m.timers[0]
}

// Advance moves virtual time forward by d, firing due timers in due order.
// Timers due at the same instant fire in creation order. Continuations are
// flushed after each timer.
func (m *ManualScheduler) Advance(d time.Duration) {
	until := m.now.Add(d)
	for {
		t := m.next(until)
		if t == nil {
			break
		}
		m.now = t.due
		if t.every > 0 {
			t.due = t.due.Add(t.every)
		} else {
			t.cancelled = true
		}
		t.fn()
		m.Flush()
		if m.afterEach != nil {
			m.afterEach()
		}
	}
	m.now = until
}

// Do runs fn, then flushes continuations. Callers are serialised.
func (m *ManualScheduler) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	m.Flush()
	if m.afterEach != nil {
		m.afterEach()
	}
	return nil
}

func (m *ManualScheduler) AfterEach(fn func()) { m.afterEach = fn }
