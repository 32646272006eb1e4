package ride

import (
	"context"
	"errors"

	"github.com/example/ebike-ride/internal/history"
	"github.com/example/ebike-ride/internal/models"
)

// Service serialises callers onto an Engine's Runner. Every method returns
// the View as it stood right after the call.
type Service struct {
	run    Runner
	engine *Engine
}

// NewService builds the engine on run and registers onChange (may be nil) to
// receive a View after every unit of work.
func NewService(run Runner, deps Deps, onChange func(View)) (*Service, error) {
	deps.Scheduler = run
	eng, err := NewEngine(deps)
	if err != nil {
		return nil, err
	}
	if onChange != nil {
		run.AfterEach(func() { onChange(eng.View()) })
	}
	return &Service{run: run, engine: eng}, nil
}

func (s *Service) call(ctx context.Context, fn func() error) (View, error) {
	var (
		v     View
		opErr error
	)
	if err := s.run.Do(ctx, func() {
		opErr = fn()
		v = s.engine.View()
	}); err != nil {
		return View{}, err
	}
	return v, opErr
}

func (s *Service) View(ctx context.Context) (View, error) {
	return s.call(ctx, func() error { return nil })
}

func (s *Service) SendOTP(ctx context.Context, phone string) (View, error) {
	return s.call(ctx, func() error { return s.engine.SendOTP(phone) })
}

type verifyResult struct {
	token string
	err   error
}

// VerifyOTP waits for the backend verdict and returns the session token.
// If ctx ends first the login is undone: a pending check is abandoned and a
// login nobody received is logged out, so the rider can start over.
func (s *Service) VerifyOTP(ctx context.Context, code string) (string, View, error) {
	ch := make(chan verifyResult, 1)
	if _, err := s.call(ctx, func() error {
		return s.engine.VerifyOTP(code, func(token string, err error) { ch <- verifyResult{token, err} })
	}); err != nil {
		v, _ := s.View(ctx)
		return "", v, err
	}
	select {
	case <-ctx.Done():
		return "", View{}, s.abandonVerify(ctx, ch)
	default:
	}
	select {
	case r := <-ch:
		v, err := s.View(ctx)
		if r.err != nil {
			return "", v, r.err
		}
		return r.token, v, err
	case <-ctx.Done():
		return "", View{}, s.abandonVerify(ctx, ch)
	}
}

// abandonVerify runs on the scheduler regardless of ctx. Results are only
// delivered there, so ch is settled either way once it runs.
func (s *Service) abandonVerify(ctx context.Context, ch <-chan verifyResult) error {
	_ = s.run.Do(context.WithoutCancel(ctx), func() {
		select {
		case r := <-ch:
			if r.err == nil {
				s.engine.Logout()
			}
		default:
			s.engine.AbandonVerify()
		}
	})
	return ctx.Err()
}

func (s *Service) Logout(ctx context.Context) (View, error) {
	return s.call(ctx, func() error { s.engine.Logout(); return nil })
}

func (s *Service) RetryInventory(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.RetryInventory)
}

func (s *Service) SelectBike(ctx context.Context, id int) (View, error) {
	return s.call(ctx, func() error { return s.engine.SelectBike(id) })
}

func (s *Service) CloseBike(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.CloseBike)
}

func (s *Service) Unlock(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.Unlock)
}

func (s *Service) ScanSucceeded(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.ScanSucceeded)
}

func (s *Service) CancelScan(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.CancelScan)
}

func (s *Service) EndRide(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.EndRide)
}

func (s *Service) Pay(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.Pay)
}

func (s *Service) CloseSummary(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.CloseSummary)
}

func (s *Service) SetDestination(ctx context.Context, loc models.Coord, address string) (View, error) {
	return s.call(ctx, func() error { return s.engine.SetDestination(loc, address) })
}

func (s *Service) SearchDestination(ctx context.Context, query string) (View, error) {
	return s.call(ctx, func() error { return s.engine.SearchDestination(query) })
}

func (s *Service) ClearDestination(ctx context.Context) (View, error) {
	return s.call(ctx, s.engine.ClearDestination)
}

func (s *Service) SetNotifications(ctx context.Context, on bool) (View, error) {
	return s.call(ctx, func() error { s.engine.SetNotifications(on); return nil })
}

// History and Stats read the book directly; it has its own lock.
func (s *Service) History() []models.PastRideRecord { return s.engine.History().Records() }

func (s *Service) Stats() history.Stats { return s.engine.History().Stats() }

func (s *Service) Recent(n int) []models.PastRideRecord { return s.engine.History().Recent(n) }

// Rider returns the phone of the logged-in rider, or "" when logged out.
func (s *Service) Rider(ctx context.Context) (string, error) {
	var phone string
	err := s.run.Do(ctx, func() {
		if s.engine.State() != LoggedOut {
			phone = s.engine.Phone()
		}
	})
	return phone, err
}

// IsClientError reports whether err was caused by the request rather than the
// engine's machinery.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidTransition, ErrUnknownBike, ErrInvalidPhone, ErrInvalidCode, ErrOTPNotRequested,
		ErrBusy, ErrPaymentInProgress, ErrAlreadyPaid, ErrNoGeocoder, ErrEmptyQuery, ErrStale,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
