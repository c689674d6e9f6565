package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"studiobook/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	StudioID        int64      `gorm:"column:studio_id;index"`
	RoomID          int64      `gorm:"column:room_id;index"`
	UserID          int64      `gorm:"column:user_id;index"`
	Date            string     `gorm:"column:date"`
	StartTime       string     `gorm:"column:start_time"`
	EndTime         string     `gorm:"column:end_time"`
	DurationHours   float64    `gorm:"column:duration_hours"`
	HourlyRate      int64      `gorm:"column:hourly_rate"`
	BaseAmount      int64      `gorm:"column:base_amount"`
	PlatformFee     int64      `gorm:"column:platform_fee"`
	TotalAmount     int64      `gorm:"column:total_amount"`
	Message         *string    `gorm:"column:message"`
	Status          string     `gorm:"column:status;index"`
	PaymentIntentID string     `gorm:"column:payment_intent_id"`
	PaymentStatus   string     `gorm:"column:payment_status"`
	IdempotencyKey  string     `gorm:"column:idempotency_key;uniqueIndex:idx_bookings_idempotency_key"`
	CancelledAt     *time.Time `gorm:"column:cancelled_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

// Statuses that still occupy the room slot.
var activeStatuses = []string{string(domain.BookingPending), string(domain.BookingConfirmed)}

func toDomainBooking(m bookingModel) *domain.Booking {
	var message string
	if m.Message != nil {
		message = *m.Message
	}

	return &domain.Booking{
		ID:              m.ID,
		StudioID:        m.StudioID,
		RoomID:          m.RoomID,
		UserID:          m.UserID,
		Date:            m.Date,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		DurationHours:   m.DurationHours,
		HourlyRate:      m.HourlyRate,
		BaseAmount:      m.BaseAmount,
		PlatformFee:     m.PlatformFee,
		TotalAmount:     m.TotalAmount,
		Message:         message,
		Status:          domain.BookingStatus(m.Status),
		PaymentIntentID: m.PaymentIntentID,
		PaymentStatus:   domain.PaymentStatus(m.PaymentStatus),
		IdempotencyKey:  m.IdempotencyKey,
		CancelledAt:     m.CancelledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	var message *string
	if b.Message != "" {
		v := b.Message
		message = &v
	}

	return bookingModel{
		ID:              b.ID,
		StudioID:        b.StudioID,
		RoomID:          b.RoomID,
		UserID:          b.UserID,
		Date:            b.Date,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		DurationHours:   b.DurationHours,
		HourlyRate:      b.HourlyRate,
		BaseAmount:      b.BaseAmount,
		PlatformFee:     b.PlatformFee,
		TotalAmount:     b.TotalAmount,
		Message:         message,
		Status:          string(b.Status),
		PaymentIntentID: b.PaymentIntentID,
		PaymentStatus:   string(b.PaymentStatus),
		IdempotencyKey:  b.IdempotencyKey,
		CancelledAt:     b.CancelledAt,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*b = *toDomainBooking(m)
	return nil
}

// CreateIfSlotFree inserts the booking only when no active booking overlaps
// its window. The overlap check and the insert run in one transaction; on
// postgres they additionally run under a per-room advisory lock, so two
// concurrent intakes for intersecting windows serialize and exactly one
// lands. The partial unique index stays as a backstop for identical start
// slots. Returns false when the slot was taken.
func (r *BookingRepository) CreateIfSlotFree(ctx context.Context, b *domain.Booking) (bool, error) {
	m := toBookingModel(b)
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", m.RoomID).Error; err != nil {
				return err
			}
		}
		var cnt int64
		if err := tx.Model(&bookingModel{}).
			Where("room_id = ? AND date = ?", m.RoomID, m.Date).
			Where("status IN ?", activeStatuses).
			Where("start_time < ? AND end_time > ?", m.EndTime, m.StartTime).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return nil
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		*b = *toDomainBooking(m)
	}
	return created, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	var m bookingModel
	tx := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&m)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) ListByStudio(ctx context.Context, studioID int64) ([]domain.Booking, error) {
	return r.list(ctx, "studio_id = ?", studioID)
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *BookingRepository) list(ctx context.Context, query string, arg any) ([]domain.Booking, error) {
	var ms []bookingModel
	tx := r.db.WithContext(ctx).Where(query, arg).Order("created_at desc").Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.Booking, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// CountOverlapping counts active bookings for the room on the given date
// whose [start, end) window intersects the one passed in. Times are HH:MM
// strings, so lexicographic comparison matches chronological order.
func (r *BookingRepository) CountOverlapping(ctx context.Context, roomID int64, date, start, end string) (int64, error) {
	var cnt int64
	tx := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("room_id = ? AND date = ?", roomID, date).
		Where("status IN ?", activeStatuses).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&cnt)
	return cnt, tx.Error
}

// ListActiveByRoomDate returns pending and confirmed bookings for a room on
// a date, ordered by start time. Used by the availability read side.
func (r *BookingRepository) ListActiveByRoomDate(ctx context.Context, roomID int64, date string) ([]domain.Booking, error) {
	var ms []bookingModel
	tx := r.db.WithContext(ctx).
		Where("room_id = ? AND date = ?", roomID, date).
		Where("status IN ?", activeStatuses).
		Order("start_time asc").
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.Booking, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// UpdateStatusIfPending performs the guarded pending -> {confirmed,rejected}
// transition as a single conditional UPDATE. It returns false when the row
// was not pending anymore, which is how exactly-once transitions are
// enforced under concurrent operators.
func (r *BookingRepository) UpdateStatusIfPending(ctx context.Context, id string, status domain.BookingStatus, payment domain.PaymentStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingPending)).
		Updates(map[string]any{
			"status":         string(status),
			"payment_status": string(payment),
			"updated_at":     time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// CancelIfConfirmed flips confirmed -> cancelled and stamps cancelled_at,
// guarded the same way as UpdateStatusIfPending.
func (r *BookingRepository) CancelIfConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingConfirmed)).
		Updates(map[string]any{
			"status":       string(domain.BookingCancelled),
			"cancelled_at": at,
			"updated_at":   at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	tx := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_status": string(status),
			"updated_at":     time.Now().UTC(),
		})
	return tx.Error
}
