package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentReleased   PaymentStatus = "released"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Booking is the single authoritative record for a studio-time request,
// from intake through settlement. All money fields are integer minor units;
// TotalAmount = BaseAmount + PlatformFee must hold after every mutation.
type Booking struct {
	ID              string        `json:"id"`
	StudioID        int64         `json:"studioId" validate:"required"`
	RoomID          int64         `json:"roomId" validate:"required"`
	UserID          int64         `json:"userId" validate:"required"`
	Date            string        `json:"date" validate:"required"`      // YYYY-MM-DD
	StartTime       string        `json:"startTime" validate:"required"` // HH:MM
	EndTime         string        `json:"endTime" validate:"required"`
	DurationHours   float64       `json:"durationHours"`
	HourlyRate      int64         `json:"hourlyRate"`
	BaseAmount      int64         `json:"baseAmount"`
	PlatformFee     int64         `json:"platformFee"`
	TotalAmount     int64         `json:"totalAmount"`
	Message         string        `json:"message,omitempty"`
	Status          BookingStatus `json:"status"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus,omitempty"`
	IdempotencyKey  string        `json:"-"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
