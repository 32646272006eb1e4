package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/payments"
)

var (
	ErrConnectivity = errors.New("could not reach the bike service, check your connection")
	ErrInvalidOTP   = auth.ErrInvalidOTP
	ErrRideStart    = errors.New("ride could not be started")
	ErrRideEnd      = errors.New("ride end was not recorded")
	ErrPayment      = errors.New("payment failed")
)

const (
	DefaultLatency = 800 * time.Millisecond
	DefaultOTP     = "123456"
)

// Options configures a Stub. Zero values pick the defaults above; nil
// failure policies never fail.
type Options struct {
	Latency       time.Duration
	DemoOTP       string
	Issuer        *auth.Issuer
	Store         inventory.Store
	RadiusKm      float64
	Limit         int
	FetchFailures *FailurePolicy
	StartFailures *FailurePolicy
	EndFailures   *FailurePolicy
	PayFailures   *FailurePolicy
	Gateway       payments.Gateway
	Currency      string
	Logger        *slog.Logger
	Now           func() time.Time
}

// Stub stands in for the rider backend. Every call sleeps for the configured
// latency (payment for twice that) before answering.
type Stub struct {
	latency  time.Duration
	otpHash  []byte
	issuer   *auth.Issuer
	store    inventory.Store
	radiusKm float64
	limit    int
	fetch    *FailurePolicy
	start    *FailurePolicy
	end      *FailurePolicy
	pay      *FailurePolicy
	gateway  payments.Gateway
	currency string
	log      *slog.Logger
	now      func() time.Time
}

func NewStub(opts Options) (*Stub, error) {
	if opts.Issuer == nil {
		return nil, errors.New("backend: token issuer is required")
	}
	if opts.Store == nil {
		opts.Store = inventory.NewMemoryStore(inventory.Catalog()...)
	}
	if opts.DemoOTP == "" {
		opts.DemoOTP = DefaultOTP
	}
	if opts.Latency < 0 {
		opts.Latency = 0
	}
	if opts.Currency == "" {
		opts.Currency = "bdt"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.DemoOTP), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo otp: %w", err)
	}
	return &Stub{
		latency:  opts.Latency,
		otpHash:  hash,
		issuer:   opts.Issuer,
		store:    opts.Store,
		radiusKm: opts.RadiusKm,
		limit:    opts.Limit,
		fetch:    opts.FetchFailures,
		start:    opts.StartFailures,
		end:      opts.EndFailures,
		pay:      opts.PayFailures,
		gateway:  opts.Gateway,
		currency: opts.Currency,
		log:      opts.Logger,
		now:      opts.Now,
	}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendOTP pretends to text a code to phone. It always succeeds.
func (s *Stub) SendOTP(ctx context.Context, phone string) error {
	if err := wait(ctx, s.latency); err != nil {
		return err
	}
	s.log.Info("otp sent", "phone", mask(phone))
	return nil
}

// VerifyOTP accepts only the demo code and returns a session token.
func (s *Stub) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	if err := wait(ctx, s.latency); err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword(s.otpHash, []byte(code)) != nil {
		return "", ErrInvalidOTP
	}
	tok, err := s.issuer.Issue(phone)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

func (s *Stub) FetchBikes(ctx context.Context, location models.Coord) ([]models.Bike, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	if s.fetch.Fail() {
		return nil, ErrConnectivity
	}
	bikes, err := s.store.Nearby(ctx, location, s.radiusKm, s.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return bikes, nil
}

func (s *Stub) StartRide(ctx context.Context, bikeID int) error {
	if err := wait(ctx, s.latency); err != nil {
		return err
	}
	if s.start.Fail() {
		return fmt.Errorf("%w: bike %d", ErrRideStart, bikeID)
	}
	return nil
}

func (s *Stub) EndRide(ctx context.Context, session models.RideSession) error {
	if err := wait(ctx, s.latency); err != nil {
		return err
	}
	if s.end.Fail() {
		return fmt.Errorf("%w: ride %s", ErrRideEnd, session.ID)
	}
	return nil
}

// ProcessPayment charges the session's settled cost. With a gateway wired the
// receipt carries the gateway's transaction id.
func (s *Stub) ProcessPayment(ctx context.Context, session models.RideSession) (models.Receipt, error) {
	if err := wait(ctx, 2*s.latency); err != nil {
		return models.Receipt{}, err
	}
	if s.pay.Fail() {
		return models.Receipt{}, ErrPayment
	}
	now := s.now()
	r := models.Receipt{
		TransactionID: fmt.Sprintf("txn_%d", now.UnixMilli()),
		AmountMinor:   payments.ToMinor(session.Cost),
		Currency:      s.currency,
		PaidAt:        now,
	}
	if s.gateway != nil {
		id, err := s.gateway.Charge(ctx, r.AmountMinor, r.Currency, session.ID)
		if err != nil {
			s.log.Error("gateway charge failed", "ride_id", session.ID, "error", err)
			return models.Receipt{}, fmt.Errorf("%w: %v", ErrPayment, err)
		}
		r.TransactionID = id
	}
	return r, nil
}

// mask keeps the last three digits of a phone number for logs.
func mask(phone string) string {
	out := []rune(phone)
	for i := 0; i < len(out)-3; i++ {
		if unicode.IsDigit(out[i]) {
			out[i] = '*'
		}
	}
	return string(out)
}
