package ride

import (
	"context"
	"time"
)

// Cancel stops a timer. After it returns the timer's callback never runs.
// Calling it more than once is fine.
type Cancel func()

// Scheduler owns every timer and asynchronous call of an Engine. All
// callbacks and continuations run serially with the engine's own methods.
type Scheduler interface {
	Now() time.Time
	Every(d time.Duration, fn func()) Cancel
	After(d time.Duration, fn func()) Cancel
	// Go runs call outside the engine and then runs the continuation it
	// returns (if any) back inside.
	Go(call func(ctx context.Context) func())
}

// Runner is a Scheduler that can also execute arbitrary work in sequence with
// engine callbacks. Service drives an Engine through one.
type Runner interface {
	Scheduler
	Do(ctx context.Context, fn func()) error
	// AfterEach registers fn to run after every unit of work.
	AfterEach(fn func())
}
