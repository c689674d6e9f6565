package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPaymentMethod is returned when a customer has no chargeable payment
// method on file.
var ErrNoPaymentMethod = errors.New("no payment method on file")

const (
	// CodeInconclusive marks calls that timed out before the processor
	// answered. Safe to retry only when the call carried an idempotency key.
	CodeInconclusive = "inconclusive"
	CodeNetwork      = "network_error"
)

// Error is a processor failure carrying the machine-readable code the
// processor returned. Handlers must not leak it to clients verbatim.
type Error struct {
	Op   string
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s failed: code=%s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call with the same idempotency key
// is safe and potentially useful.
func (e *Error) Retryable() bool {
	return e.Code == CodeInconclusive || e.Code == CodeNetwork
}

// Identity is the minimal payer identity needed to provision a customer.
type Identity struct {
	Name  string
	Email string
}

// Hold is an authorized-but-not-captured reservation of funds.
type Hold struct {
	IntentID string
	Status   string
}

// AuthorizeParams describes a manual-capture hold. The correlation ids are
// attached as processor metadata so support tooling can reconcile.
type AuthorizeParams struct {
	CustomerID      string
	PaymentMethodID string
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
	BookingID       string
	StudioID        int64
	RoomID          int64
}

// PaymentGateway wraps the external payment processor. Implementations make
// outbound network calls only; callers persist results.
type PaymentGateway interface {
	// EnsureCustomer returns a usable customer id for the identity. If
	// storedID is no longer valid on the processor the customer is
	// recreated; the caller is responsible for persisting the replacement.
	EnsureCustomer(ctx context.Context, storedID string, id Identity) (string, error)
	// DefaultPaymentMethod fails with ErrNoPaymentMethod when none is on file.
	DefaultPaymentMethod(ctx context.Context, customerID string) (string, error)
	// Authorize opens a manual-capture, auto-confirmed hold.
	Authorize(ctx context.Context, p AuthorizeParams) (*Hold, error)
	Capture(ctx context.Context, intentID, idempotencyKey string) error
	Release(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID, idempotencyKey string) error
	// CreateSetupIntent starts the attach-a-payment-method flow and returns
	// the client secret the frontend completes it with.
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
}
