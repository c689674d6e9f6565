package booking

import (
	"context"
	"time"

	"studiobook/internal/domain"
)

// BookingRepository is the authoritative booking store. Status transitions
// are guarded conditional updates so each one happens exactly once.
type BookingRepository interface {
	CreateIfSlotFree(ctx context.Context, b *domain.Booking) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	ListByStudio(ctx context.Context, studioID int64) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListActiveByRoomDate(ctx context.Context, roomID int64, date string) ([]domain.Booking, error)
	CountOverlapping(ctx context.Context, roomID int64, date, start, end string) (int64, error)
	UpdateStatusIfPending(ctx context.Context, id string, status domain.BookingStatus, payment domain.PaymentStatus) (bool, error)
	CancelIfConfirmed(ctx context.Context, id string, at time.Time) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

// UserDirectory is the read side of the external user service, plus the one
// write-back this service owns: the gateway customer id.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	SaveGatewayCustomerID(ctx context.Context, userID int64, customerID string) error
}

type StudioDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.Studio, error)
}

type RoomDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.Room, error)
}

// AuditRecorder appends to the financial event log. Recording must never
// fail the calling operation.
type AuditRecorder interface {
	Record(ctx context.Context, ev domain.PaymentEvent)
}

// EventLog is the read side of the financial event log.
type EventLog interface {
	ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentEvent, error)
}
