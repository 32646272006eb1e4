package ride

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrLoopClosed = errors.New("ride loop closed")

// Loop is the production Runner: a single goroutine executes every posted
// function, timer callback and async continuation in arrival order.
type Loop struct {
	events    chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	inflight  sync.WaitGroup
	afterEach func()
	log       *slog.Logger
}

func NewLoop(logger *slog.Logger, buffer int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		events: make(chan func(), buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.events:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("ride loop panic", "panic", r)
		}
	}()
	after := l.afterEach
	fn()
	if after != nil {
		after()
	}
}

func (l *Loop) post(fn func()) bool {
	select {
	case l.events <- fn:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Close stops the loop, cancels in-flight calls and waits for them to return.
func (l *Loop) Close() {
	l.cancel()
	<-l.done
	l.inflight.Wait()
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.post(func() { defer close(finished); fn() }) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrLoopClosed
	}
}

func (l *Loop) AfterEach(fn func()) {
	l.post(func() { l.afterEach = fn })
}

func (l *Loop) Every(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	stop := make(chan struct{})
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !l.post(func() {
					if !cancelled.Load() {
						fn()
					}
				}) {
					return
				}
			case <-stop:
				return
			case <-l.ctx.Done():
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		cancelled.Store(true)
		once.Do(func() { close(stop) })
	}
}

func (l *Loop) After(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

func (l *Loop) Go(call func(ctx context.Context) func()) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		if cont := call(l.ctx); cont != nil {
			l.post(cont)
		}
	}()
}
