package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"studiobook/internal/domain"
)

type PaymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

type paymentEventModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	BookingID   string    `gorm:"column:booking_id;index"`
	IntentID    string    `gorm:"column:intent_id;index"`
	Action      string    `gorm:"column:action"`
	AmountCents int64     `gorm:"column:amount_cents"`
	GatewayCode string    `gorm:"column:gateway_code"`
	Detail      string    `gorm:"column:detail"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (paymentEventModel) TableName() string { return "payment_events" }

func (r *PaymentEventRepository) Create(ctx context.Context, ev *domain.PaymentEvent) error {
	m := paymentEventModel{
		ID:          ev.ID,
		BookingID:   ev.BookingID,
		IntentID:    ev.IntentID,
		Action:      string(ev.Action),
		AmountCents: ev.AmountCents,
		GatewayCode: ev.GatewayCode,
		Detail:      ev.Detail,
		CreatedAt:   ev.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *PaymentEventRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentEvent, error) {
	var ms []paymentEventModel
	tx := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at asc").Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.PaymentEvent, 0, len(ms))
	for _, m := range ms {
		out = append(out, domain.PaymentEvent{
			ID:          m.ID,
			BookingID:   m.BookingID,
			IntentID:    m.IntentID,
			Action:      domain.PaymentAction(m.Action),
			AmountCents: m.AmountCents,
			GatewayCode: m.GatewayCode,
			Detail:      m.Detail,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}
