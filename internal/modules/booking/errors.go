package booking

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrIdempotencyKey    = errors.New("idempotency key required")
	ErrUserNotFound      = errors.New("user not found")
	ErrStudioNotFound    = errors.New("studio not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotFound          = errors.New("booking not found")
	ErrNoPaymentMethod   = errors.New("no payment method on file")
	ErrSlotTaken         = errors.New("room is already booked for this time")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCaptureFailed     = errors.New("payment capture failed")
	ErrNotRefundable     = errors.New("payment has not been captured")
	ErrForbidden         = errors.New("forbidden")
)

// FieldError names the request field that failed validation.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func fieldErr(field string) error { return &FieldError{Field: field} }
