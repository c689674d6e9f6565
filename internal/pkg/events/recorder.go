package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"studiobook/internal/domain"
)

// EventRepository persists audit rows; the table is append-only.
type EventRepository interface {
	Create(ctx context.Context, ev *domain.PaymentEvent) error
}

// Recorder writes every financial action (authorize, capture, release,
// refund and their failures) to the payment_events table and, when a kafka
// writer is configured, publishes the same event as JSON. Recording never
// fails the calling operation: persistence or publish errors are logged.
type Recorder struct {
	repo   EventRepository
	writer *kafka.Writer
	log    *logrus.Logger
}

func NewRecorder(repo EventRepository, brokers []string, topic string, log *logrus.Logger) *Recorder {
	r := &Recorder{repo: repo, log: log}
	if len(brokers) > 0 && topic != "" {
		r.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return r
}

func (r *Recorder) Record(ctx context.Context, ev domain.PaymentEvent) {
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now().UTC()

	if err := r.repo.Create(ctx, &ev); err != nil {
		r.log.WithFields(logrus.Fields{
			"booking_id": ev.BookingID,
			"intent_id":  ev.IntentID,
			"action":     ev.Action,
		}).WithError(err).Error("failed to persist payment event")
	}

	if r.writer == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.WithError(err).Error("failed to marshal payment event")
		return
	}
	if err := r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.BookingID),
		Value: payload,
	}); err != nil {
		r.log.WithFields(logrus.Fields{
			"booking_id": ev.BookingID,
			"action":     ev.Action,
		}).WithError(err).Error("failed to publish payment event")
	}
}

func (r *Recorder) Close() error {
	if r.writer != nil {
		return r.writer.Close()
	}
	return nil
}
