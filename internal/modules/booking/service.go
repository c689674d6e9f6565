package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"studiobook/internal/domain"
	"studiobook/internal/gateway"
	"studiobook/internal/pkg/fee"
	"studiobook/internal/pkg/idempotency"
	"studiobook/internal/pkg/validator"
)

const defaultGatewayTimeout = 10 * time.Second

type Deps struct {
	Bookings       BookingRepository
	Users          UserDirectory
	Studios        StudioDirectory
	Rooms          RoomDirectory
	Gateway        gateway.PaymentGateway
	Fees           *fee.Calculator
	Idempotency    idempotency.Store
	Audit          AuditRecorder
	Events         EventLog
	Log            *logrus.Logger
	GatewayTimeout time.Duration
}

type Service struct {
	bookings       BookingRepository
	users          UserDirectory
	studios        StudioDirectory
	rooms          RoomDirectory
	gateway        gateway.PaymentGateway
	fees           *fee.Calculator
	idem           idempotency.Store
	audit          AuditRecorder
	events         EventLog
	log            *logrus.Logger
	gatewayTimeout time.Duration
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.GatewayTimeout <= 0 {
		d.GatewayTimeout = defaultGatewayTimeout
	}
	return &Service{
		bookings:       d.Bookings,
		users:          d.Users,
		studios:        d.Studios,
		rooms:          d.Rooms,
		gateway:        d.Gateway,
		fees:           d.Fees,
		idem:           d.Idempotency,
		audit:          d.Audit,
		events:         d.Events,
		log:            d.Log,
		gatewayTimeout: d.GatewayTimeout,
	}
}

// CreateRequest runs the intake flow: validate, resolve requester and
// payment method, open the authorization hold, then persist the pending
// booking. Nothing is persisted if the hold cannot be opened; if persisting
// fails after the hold was opened, the hold is released.
func (s *Service) CreateRequest(ctx context.Context, req CreateRequestInput) (*domain.Booking, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrIdempotencyKey
	}
	if errs := validator.Validate(req); errs != nil {
		return nil, fieldErr(validator.FirstField(errs))
	}
	minutes, hours, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if id, ok, lerr := s.idem.Get(ctx, req.IdempotencyKey); lerr != nil {
		s.log.WithError(lerr).Warn("idempotency store lookup failed")
	} else if ok {
		if existing, gerr := s.bookings.GetByID(ctx, id); gerr == nil && existing != nil {
			return existing, nil
		}
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	studio, err := s.studios.FindByID(ctx, req.StudioID)
	if err != nil {
		return nil, err
	}
	if studio == nil {
		return nil, ErrStudioNotFound
	}
	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil || room.StudioID != req.StudioID {
		return nil, ErrRoomNotFound
	}

	taken, err := s.bookings.CountOverlapping(ctx, req.RoomID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrSlotTaken
	}

	breakdown, err := s.fees.TotalWithFee(room.HourlyRate * minutes / 60)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	pmID, err := s.defaultPaymentMethod(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &domain.Booking{
		ID:             uuid.NewString(),
		StudioID:       req.StudioID,
		RoomID:         req.RoomID,
		UserID:         req.UserID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		DurationHours:  hours,
		HourlyRate:     room.HourlyRate,
		BaseAmount:     breakdown.BaseAmount,
		PlatformFee:    breakdown.PlatformFee,
		TotalAmount:    breakdown.TotalAmount,
		Message:        req.Message,
		Status:         domain.BookingPending,
		PaymentStatus:  domain.PaymentAuthorized,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	hold, err := s.authorize(ctx, b, customerID, pmID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	b.PaymentIntentID = hold.IntentID

	created, err := s.bookings.CreateIfSlotFree(ctx, b)
	if err != nil {
		return s.recoverCreateFailure(ctx, b, req.IdempotencyKey, err)
	}
	if !created {
		// Another intake took an intersecting window between our early
		// overlap check and the insert.
		s.releaseOrphanedHold(ctx, b)
		return nil, ErrSlotTaken
	}

	s.audit.Record(ctx, domain.PaymentEvent{
		BookingID:   b.ID,
		IntentID:    b.PaymentIntentID,
		Action:      domain.ActionAuthorized,
		AmountCents: b.TotalAmount,
	})
	if err := s.idem.Set(ctx, req.IdempotencyKey, b.ID); err != nil {
		s.log.WithError(err).Warn("idempotency store write failed")
	}
	return b, nil
}

// Approve captures the hold and settles the request. Capture runs before
// the guarded transition so a confirmed booking is never persisted with an
// uncaptured payment; the capture call is idempotent per booking, so a
// racing approve replays it harmlessly and then loses the guarded update.
func (s *Service) Approve(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status != domain.BookingPending {
		return nil, ErrInvalidTransition
	}

	if err := s.retryGateway(ctx, func(gctx context.Context) error {
		return s.gateway.Capture(gctx, b.PaymentIntentID, "capture:"+b.ID)
	}); err != nil {
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionCaptureFailed,
			AmountCents: b.TotalAmount,
			GatewayCode: gatewayCode(err),
		})
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"intent_id":  b.PaymentIntentID,
		}).WithError(err).Error("payment capture failed, request stays pending")
		return nil, ErrCaptureFailed
	}

	ok, err := s.bookings.UpdateStatusIfPending(ctx, b.ID, domain.BookingConfirmed, domain.PaymentCaptured)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another operator settled the request between our load and the
		// guarded update. Funds are captured under this booking's intent;
		// flag it for manual reconciliation.
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionReconcile,
			AmountCents: b.TotalAmount,
			Detail:      "captured but the pending->confirmed transition was lost",
		})
		return nil, ErrInvalidTransition
	}

	s.audit.Record(ctx, domain.PaymentEvent{
		BookingID:   b.ID,
		IntentID:    b.PaymentIntentID,
		Action:      domain.ActionCaptured,
		AmountCents: b.TotalAmount,
	})
	return s.bookings.GetByID(ctx, b.ID)
}

// Reject flips the request to rejected and releases the hold. The rejection
// stands even when the release fails; the failure is recorded so the funds
// can be reconciled manually (the processor's authorization expiry is the
// fallback).
func (s *Service) Reject(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status != domain.BookingPending {
		return nil, ErrInvalidTransition
	}

	ok, err := s.bookings.UpdateStatusIfPending(ctx, b.ID, domain.BookingRejected, b.PaymentStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	if err := s.retryGateway(ctx, func(gctx context.Context) error {
		return s.gateway.Release(gctx, b.PaymentIntentID)
	}); err != nil {
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionReleaseFailed,
			AmountCents: b.TotalAmount,
			GatewayCode: gatewayCode(err),
		})
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"intent_id":  b.PaymentIntentID,
		}).WithError(err).Error("hold release failed, needs manual reconciliation")
	} else {
		if uerr := s.bookings.UpdatePaymentStatus(ctx, b.ID, domain.PaymentReleased); uerr != nil {
			s.log.WithError(uerr).Error("failed to record released payment status")
		}
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionReleased,
			AmountCents: b.TotalAmount,
		})
	}

	return s.bookings.GetByID(ctx, b.ID)
}

// Cancel soft-cancels a confirmed booking. It is a pure status change:
// captured funds stay captured until an explicit refund.
func (s *Service) Cancel(ctx context.Context, id string, actorID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if err := s.checkActor(ctx, b, actorID); err != nil {
		return nil, err
	}

	ok, err := s.bookings.CancelIfConfirmed(ctx, b.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.bookings.GetByID(ctx, b.ID)
}

// Refund returns captured funds. Separate from Cancel on purpose: whether a
// cancellation is refunded is an operator decision.
func (s *Service) Refund(ctx context.Context, id string, actorID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if err := s.checkActor(ctx, b, actorID); err != nil {
		return nil, err
	}
	if b.PaymentStatus != domain.PaymentCaptured {
		return nil, ErrNotRefundable
	}

	if err := s.retryGateway(ctx, func(gctx context.Context) error {
		return s.gateway.Refund(gctx, b.PaymentIntentID, "refund:"+b.ID)
	}); err != nil {
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionRefundFailed,
			AmountCents: b.TotalAmount,
			GatewayCode: gatewayCode(err),
		})
		return nil, err
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, b.ID, domain.PaymentRefunded); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, domain.PaymentEvent{
		BookingID:   b.ID,
		IntentID:    b.PaymentIntentID,
		Action:      domain.ActionRefunded,
		AmountCents: b.TotalAmount,
	})
	return s.bookings.GetByID(ctx, b.ID)
}

// PaymentEvents returns the financial audit trail of a booking, oldest
// first.
func (s *Service) PaymentEvents(ctx context.Context, id string) ([]domain.PaymentEvent, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return s.events.ListByBooking(ctx, b.ID)
}

func (s *Service) Availability(ctx context.Context, roomID int64, date string) (*AvailabilityResponse, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fieldErr("date")
	}
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	active, err := s.bookings.ListActiveByRoomDate(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	slots := make([]BusySlot, 0, len(active))
	for _, b := range active {
		slots = append(slots, BusySlot{
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    string(b.Status),
		})
	}
	return &AvailabilityResponse{RoomID: roomID, Date: date, BusySlots: slots}, nil
}

// checkActor allows the requester and the owner of the booking's studio;
// everyone else is rejected.
func (s *Service) checkActor(ctx context.Context, b *domain.Booking, actorID int64) error {
	if actorID == b.UserID {
		return nil
	}
	studio, err := s.studios.FindByID(ctx, b.StudioID)
	if err != nil {
		return err
	}
	if studio != nil && studio.OwnerID == actorID {
		return nil
	}
	return ErrForbidden
}

func (s *Service) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	customerID, err := s.gateway.EnsureCustomer(gctx, user.GatewayCustomerID, gateway.Identity{
		Name:  user.Name,
		Email: user.Email,
	})
	if err != nil {
		return "", err
	}
	if customerID != user.GatewayCustomerID {
		if serr := s.users.SaveGatewayCustomerID(ctx, user.ID, customerID); serr != nil {
			s.log.WithFields(logrus.Fields{"user_id": user.ID}).
				WithError(serr).Warn("failed to persist replacement gateway customer id")
		}
	}
	return customerID, nil
}

func (s *Service) defaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	pmID, err := s.gateway.DefaultPaymentMethod(gctx, customerID)
	if errors.Is(err, gateway.ErrNoPaymentMethod) {
		return "", ErrNoPaymentMethod
	}
	if err != nil {
		return "", err
	}
	return pmID, nil
}

func (s *Service) authorize(ctx context.Context, b *domain.Booking, customerID, pmID, idemKey string) (*gateway.Hold, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	return s.gateway.Authorize(gctx, gateway.AuthorizeParams{
		CustomerID:      customerID,
		PaymentMethodID: pmID,
		AmountCents:     b.TotalAmount,
		IdempotencyKey:  "auth:" + idemKey,
		BookingID:       b.ID,
		StudioID:        b.StudioID,
		RoomID:          b.RoomID,
	})
}

// recoverCreateFailure handles a store write that failed after the hold was
// already opened. A unique violation on the idempotency key means a racing
// replay won the insert: release our redundant hold and return the stored
// booking. A unique violation on the slot index is a lost double-booking
// race. Any other failure releases the hold so it does not outlive a
// request that was never recorded.
func (s *Service) recoverCreateFailure(ctx context.Context, b *domain.Booking, idemKey string, createErr error) (*domain.Booking, error) {
	s.releaseOrphanedHold(ctx, b)

	if isUniqueViolation(createErr) {
		if existing, err := s.bookings.GetByIdempotencyKey(ctx, idemKey); err == nil && existing != nil {
			return existing, nil
		}
		return nil, ErrSlotTaken
	}
	return nil, createErr
}

// isUniqueViolation matches unique-constraint errors from both drivers:
// pgconn code 23505 on postgres, the constraint message on sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Service) releaseOrphanedHold(ctx context.Context, b *domain.Booking) {
	err := s.retryGateway(ctx, func(gctx context.Context) error {
		return s.gateway.Release(gctx, b.PaymentIntentID)
	})
	if err != nil {
		s.audit.Record(ctx, domain.PaymentEvent{
			BookingID:   b.ID,
			IntentID:    b.PaymentIntentID,
			Action:      domain.ActionReleaseFailed,
			AmountCents: b.TotalAmount,
			GatewayCode: gatewayCode(err),
			Detail:      "orphaned hold after failed store write",
		})
	}
}

// retryGateway runs an idempotent gateway call with bounded backoff. Only
// inconclusive outcomes (timeouts, network failures) are retried; processor
// rejections are terminal.
func (s *Service) retryGateway(ctx context.Context, call func(ctx context.Context) error) error {
	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		err := call(gctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		var gwErr *gateway.Error
		if !errors.As(err, &gwErr) || !gwErr.Retryable() {
			return err
		}
	}
	return lastErr
}

func parseWindow(date, start, end string) (minutes int64, hours float64, err error) {
	if _, perr := time.Parse("2006-01-02", date); perr != nil {
		return 0, 0, fieldErr("date")
	}
	st, perr := time.Parse("15:04", start)
	if perr != nil {
		return 0, 0, fieldErr("startTime")
	}
	et, perr := time.Parse("15:04", end)
	if perr != nil {
		return 0, 0, fieldErr("endTime")
	}
	d := et.Sub(st)
	if d <= 0 {
		return 0, 0, fieldErr("endTime")
	}
	return int64(d.Minutes()), d.Hours(), nil
}

func gatewayCode(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ""
}
