package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/models"
)

type fakeGateway struct {
	amount int64
	ref    string
	err    error
}

func (f *fakeGateway) Charge(_ context.Context, amountMinor int64, _ string, ref string) (string, error) {
	f.amount, f.ref = amountMinor, ref
	if f.err != nil {
		return "", f.err
	}
	return "pi_test", nil
}

func newStub(t *testing.T, mutate func(*Options)) *Stub {
	t.Helper()
	issuer, err := auth.NewIssuer("test", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Latency: 0,
		Issuer:  issuer,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewStub(opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerifyOTP(t *testing.T) {
	s := newStub(t, nil)
	ctx := context.Background()
	tok, err := s.VerifyOTP(ctx, "1712345678", DefaultOTP)
	if err != nil || tok == "" {
		t.Fatalf("expected token, got %q, %v", tok, err)
	}
	if _, err := s.VerifyOTP(ctx, "1712345678", "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
	if ErrInvalidOTP.Error() != "invalid otp" {
		t.Fatalf("unexpected message %q", ErrInvalidOTP.Error())
	}
}

func TestFetchBikesFailurePolicy(t *testing.T) {
	ctx := context.Background()
	ok := newStub(t, func(o *Options) { o.FetchFailures = Never() })
	bikes, err := ok.FetchBikes(ctx, inventory.Center)
	if err != nil || len(bikes) != len(inventory.Catalog()) {
		t.Fatalf("expected full catalog, got %d bikes, %v", len(bikes), err)
	}
	bad := newStub(t, func(o *Options) { o.FetchFailures = Always() })
	if _, err := bad.FetchBikes(ctx, inventory.Center); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", err)
	}
}

func TestSeededPolicyIsDeterministic(t *testing.T) {
	a, b := NewFailurePolicy(0.1, 42), NewFailurePolicy(0.1, 42)
	fails := 0
	for i := 0; i < 1000; i++ {
		fa, fb := a.Fail(), b.Fail()
		if fa != fb {
			t.Fatalf("draw %d differs", i)
		}
		if fa {
			fails++
		}
	}
	if fails < 50 || fails > 150 {
		t.Fatalf("expected roughly 10%% failures, got %d/1000", fails)
	}
	var nilPolicy *FailurePolicy
	if nilPolicy.Fail() {
		t.Fatal("nil policy must never fail")
	}
}

func TestStartEndRide(t *testing.T) {
	ctx := context.Background()
	s := newStub(t, func(o *Options) {
		o.StartFailures = Always()
		o.EndFailures = Always()
	})
	if err := s.StartRide(ctx, 3); !errors.Is(err, ErrRideStart) {
		t.Fatalf("expected ErrRideStart, got %v", err)
	}
	if err := s.EndRide(ctx, models.RideSession{ID: "r1"}); !errors.Is(err, ErrRideEnd) {
		t.Fatalf("expected ErrRideEnd, got %v", err)
	}
	if err := newStub(t, nil).StartRide(ctx, 3); err != nil {
		t.Fatalf("default policy should succeed: %v", err)
	}
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()
	session := models.RideSession{ID: "r1", Cost: 12.5}

	r, err := newStub(t, nil).ProcessPayment(ctx, session)
	if err != nil {
		t.Fatal(err)
	}
	if r.TransactionID != "txn_1700000000000" || r.AmountMinor != 1250 {
		t.Fatalf("unexpected receipt %+v", r)
	}

	gw := &fakeGateway{}
	r, err = newStub(t, func(o *Options) { o.Gateway = gw }).ProcessPayment(ctx, session)
	if err != nil || r.TransactionID != "pi_test" || gw.amount != 1250 || gw.ref != "r1" {
		t.Fatalf("gateway not used: %+v %+v %v", r, gw, err)
	}

	failing := &fakeGateway{err: errors.New("card declined")}
	if _, err := newStub(t, func(o *Options) { o.Gateway = failing }).ProcessPayment(ctx, session); !errors.Is(err, ErrPayment) {
		t.Fatalf("expected ErrPayment, got %v", err)
	}
}

func TestLatencyHonoursContext(t *testing.T) {
	s := newStub(t, func(o *Options) { o.Latency = time.Hour })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendOTP(ctx, "1712345678"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMask(t *testing.T) {
	if got := mask("01712345678"); !strings.HasSuffix(got, "678") || strings.Count(got, "*") != 8 {
		t.Fatalf("unexpected mask %q", got)
	}
}
