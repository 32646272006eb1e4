package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Gateway charges a settled ride. amountMinor is in the currency's minor unit.
type Gateway interface {
	Charge(ctx context.Context, amountMinor int64, currency, reference string) (string, error)
}

// StripeGateway settles rides with a PaymentIntent hold followed by a capture.
type StripeGateway struct{}

// NewStripeGateway sets the package-level stripe key.
func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

// Charge holds then captures amountMinor. A failed capture releases the hold.
func (s *StripeGateway) Charge(ctx context.Context, amountMinor int64, currency, reference string) (string, error) {
	id, err := s.Hold(ctx, amountMinor, currency, reference)
	if err != nil {
		return "", fmt.Errorf("hold: %w", err)
	}
	if err := s.Capture(ctx, id); err != nil {
		_ = s.Cancel(ctx, id)
		return "", fmt.Errorf("capture %s: %w", id, err)
	}
	return id, nil
}

// Hold creates a PaymentIntent with capture_method=manual to hold funds.
func (s *StripeGateway) Hold(ctx context.Context, amount int64, currency, reference string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	if reference != "" {
		params.AddMetadata("ride_id", reference)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (s *StripeGateway) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeGateway) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}

// ToMinor converts a currency amount to minor units, rounding half away from zero.
func ToMinor(amount float64) int64 {
	if amount < 0 {
		return -int64(-amount*100 + 0.5)
	}
	return int64(amount*100 + 0.5)
}
