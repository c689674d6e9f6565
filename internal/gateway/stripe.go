package gateway

import (
	"context"
	"errors"
	"strconv"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/customer"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/paymentmethod"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/setupintent"
)

// StripeGateway implements PaymentGateway on top of stripe-go using
// PaymentIntents with capture_method=manual for holds.
type StripeGateway struct{}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

func (g *StripeGateway) EnsureCustomer(ctx context.Context, storedID string, id Identity) (string, error) {
	if storedID != "" {
		params := &stripe.CustomerParams{}
		params.Context = ctx
		c, err := customer.Get(storedID, params)
		if err == nil && !c.Deleted {
			return storedID, nil
		}
		var se *stripe.Error
		if err != nil && (!errors.As(err, &se) || se.Code != stripe.ErrorCodeResourceMissing) {
			return "", wrap("ensure_customer", err)
		}
		// Stored id is gone on the processor; fall through and recreate.
	}

	params := &stripe.CustomerParams{
		Name:  stripe.String(id.Name),
		Email: stripe.String(id.Email),
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", wrap("ensure_customer", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx
	it := paymentmethod.List(params)
	for it.Next() {
		return it.PaymentMethod().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", wrap("default_payment_method", err)
	}
	return "", ErrNoPaymentMethod
}

func (g *StripeGateway) Authorize(ctx context.Context, p AuthorizeParams) (*Hold, error) {
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(p.AmountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(p.CustomerID),
		PaymentMethod: stripe.String(p.PaymentMethodID),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", p.BookingID)
	params.AddMetadata("studio_id", strconv.FormatInt(p.StudioID, 10))
	params.AddMetadata("room_id", strconv.FormatInt(p.RoomID, 10))
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, wrap("authorize", err)
	}
	return &Hold{IntentID: pi.ID, Status: string(pi.Status)}, nil
}

func (g *StripeGateway) Capture(ctx context.Context, intentID, idempotencyKey string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	_, err := paymentintent.Capture(intentID, params)
	return wrap("capture", err)
}

func (g *StripeGateway) Release(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(intentID, params)
	return wrap("release", err)
}

func (g *StripeGateway) Refund(ctx context.Context, intentID, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	_, err := refund.New(params)
	return wrap("refund", err)
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	si, err := setupintent.New(params)
	if err != nil {
		return "", wrap("create_setup_intent", err)
	}
	return si.ClientSecret, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{Op: op, Code: string(se.Code), Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Op: op, Code: CodeInconclusive, Err: err}
	}
	return &Error{Op: op, Code: CodeNetwork, Err: err}
}
