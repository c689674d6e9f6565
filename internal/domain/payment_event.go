package domain

import "time"

type PaymentAction string

const (
	ActionAuthorized    PaymentAction = "authorized"
	ActionCaptured      PaymentAction = "captured"
	ActionCaptureFailed PaymentAction = "capture_failed"
	ActionReleased      PaymentAction = "released"
	ActionReleaseFailed PaymentAction = "release_failed"
	ActionRefunded      PaymentAction = "refunded"
	ActionRefundFailed  PaymentAction = "refund_failed"
	// ActionReconcile marks records that need manual follow-up with the
	// processor (e.g. funds captured but the local transition was lost).
	ActionReconcile PaymentAction = "reconcile_needed"
)

// PaymentEvent is one append-only row of the financial audit trail. Events
// are never updated or deleted.
type PaymentEvent struct {
	ID          string        `json:"id"`
	BookingID   string        `json:"booking_id"`
	IntentID    string        `json:"intent_id,omitempty"`
	Action      PaymentAction `json:"action"`
	AmountCents int64         `json:"amount_cents,omitempty"`
	GatewayCode string        `json:"gateway_code,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
