package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"studiobook/internal/domain"
	"studiobook/internal/gateway"
	"studiobook/internal/pkg/fee"
	"studiobook/internal/pkg/idempotency"
)

// Mock repositories and gateway

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateIfSlotFree(ctx context.Context, b *domain.Booking) (bool, error) {
	args := m.Called(ctx, b)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByStudio(ctx context.Context, studioID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, studioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListActiveByRoomDate(ctx context.Context, roomID int64, date string) ([]domain.Booking, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CountOverlapping(ctx context.Context, roomID int64, date, start, end string) (int64, error) {
	args := m.Called(ctx, roomID, date, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatusIfPending(ctx context.Context, id string, status domain.BookingStatus, payment domain.PaymentStatus) (bool, error) {
	args := m.Called(ctx, id, status, payment)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) CancelIfConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserDirectory) SaveGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

type MockStudioDirectory struct {
	mock.Mock
}

func (m *MockStudioDirectory) FindByID(ctx context.Context, id int64) (*domain.Studio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Studio), args.Error(1)
}

type MockRoomDirectory struct {
	mock.Mock
}

func (m *MockRoomDirectory) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) EnsureCustomer(ctx context.Context, storedID string, id gateway.Identity) (string, error) {
	args := m.Called(ctx, storedID, id)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Authorize(ctx context.Context, p gateway.AuthorizeParams) (*gateway.Hold, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Hold), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, intentID, idempotencyKey string) error {
	args := m.Called(ctx, intentID, idempotencyKey)
	return args.Error(0)
}

func (m *MockGateway) Release(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func (m *MockGateway) Refund(ctx context.Context, intentID, idempotencyKey string) error {
	args := m.Called(ctx, intentID, idempotencyKey)
	return args.Error(0)
}

func (m *MockGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

type MockEventLog struct {
	mock.Mock
}

func (m *MockEventLog) ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentEvent, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentEvent), args.Error(1)
}

// recordingAudit captures events so tests can assert on the trail.
type recordingAudit struct {
	events []domain.PaymentEvent
}

func (r *recordingAudit) Record(_ context.Context, ev domain.PaymentEvent) {
	r.events = append(r.events, ev)
}

func (r *recordingAudit) actions() []domain.PaymentAction {
	out := make([]domain.PaymentAction, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

type testEnv struct {
	bookings *MockBookingRepository
	users    *MockUserDirectory
	studios  *MockStudioDirectory
	rooms    *MockRoomDirectory
	gw       *MockGateway
	audit    *recordingAudit
	events   *MockEventLog
	idem     idempotency.Store
	service  *Service
}

func newTestEnv() *testEnv {
	e := &testEnv{
		bookings: new(MockBookingRepository),
		users:    new(MockUserDirectory),
		studios:  new(MockStudioDirectory),
		rooms:    new(MockRoomDirectory),
		gw:       new(MockGateway),
		audit:    &recordingAudit{},
		events:   new(MockEventLog),
		idem:     idempotency.NewMemoryStore(time.Hour),
	}
	e.service = NewService(Deps{
		Bookings:       e.bookings,
		Users:          e.users,
		Studios:        e.studios,
		Rooms:          e.rooms,
		Gateway:        e.gw,
		Fees:           fee.NewCalculator(500, 0),
		Idempotency:    e.idem,
		Audit:          e.audit,
		Events:         e.events,
		GatewayTimeout: time.Second,
	})
	return e
}

func validCreateInput() CreateRequestInput {
	return CreateRequestInput{
		StudioID:       5,
		RoomID:         10,
		UserID:         42,
		Date:           "2026-09-15",
		StartTime:      "14:00",
		EndTime:        "16:00",
		Message:        "Vocal session",
		IdempotencyKey: "key-1",
	}
}

func (e *testEnv) stubDirectories() {
	e.users.On("FindByID", mock.Anything, int64(42)).
		Return(&domain.User{ID: 42, Name: "Mira Cole", Email: "mira@example.com", GatewayCustomerID: "cus_1"}, nil)
	e.studios.On("FindByID", mock.Anything, int64(5)).
		Return(&domain.Studio{ID: 5, OwnerID: 3, Name: "Northside Sound"}, nil)
	e.rooms.On("FindByID", mock.Anything, int64(10)).
		Return(&domain.Room{ID: 10, StudioID: 5, HourlyRate: 10000, IsActive: true}, nil)
}

func TestCreateRequest_Success(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()

	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	e.gw.On("Authorize", mock.Anything, mock.MatchedBy(func(p gateway.AuthorizeParams) bool {
		return p.AmountCents == 21000 && p.IdempotencyKey == "auth:key-1" && p.CustomerID == "cus_1"
	})).Return(&gateway.Hold{IntentID: "pi_1", Status: "requires_capture"}, nil)
	e.bookings.On("CreateIfSlotFree", mock.Anything, mock.Anything).Return(true, nil)

	b, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, domain.PaymentAuthorized, b.PaymentStatus)
	assert.Equal(t, "pi_1", b.PaymentIntentID)
	assert.Equal(t, int64(20000), b.BaseAmount)
	assert.Equal(t, int64(1000), b.PlatformFee)
	assert.Equal(t, int64(21000), b.TotalAmount)
	assert.Equal(t, 2.0, b.DurationHours)
	assert.Equal(t, []domain.PaymentAction{domain.ActionAuthorized}, e.audit.actions())

	// The key -> booking mapping is stored for replay detection.
	id, ok, _ := e.idem.Get(context.Background(), "key-1")
	assert.True(t, ok)
	assert.Equal(t, b.ID, id)
	e.bookings.AssertExpectations(t)
	e.gw.AssertExpectations(t)
}

func TestCreateRequest_MissingIdempotencyKey(t *testing.T) {
	e := newTestEnv()

	req := validCreateInput()
	req.IdempotencyKey = ""

	_, err := e.service.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, ErrIdempotencyKey)
}

func TestCreateRequest_EndBeforeStart(t *testing.T) {
	e := newTestEnv()

	req := validCreateInput()
	req.StartTime = "16:00"
	req.EndTime = "14:00"

	_, err := e.service.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	var fe *FieldError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, "endTime", fe.Field)
}

func TestCreateRequest_UserNotFound(t *testing.T) {
	e := newTestEnv()
	e.users.On("FindByID", mock.Anything, int64(42)).Return(nil, nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateRequest_RoomFromAnotherStudio(t *testing.T) {
	e := newTestEnv()
	e.users.On("FindByID", mock.Anything, int64(42)).
		Return(&domain.User{ID: 42}, nil)
	e.studios.On("FindByID", mock.Anything, int64(5)).
		Return(&domain.Studio{ID: 5}, nil)
	e.rooms.On("FindByID", mock.Anything, int64(10)).
		Return(&domain.Room{ID: 10, StudioID: 99, HourlyRate: 10000}, nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreateRequest_SlotTaken(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(1), nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.ErrorIs(t, err, ErrSlotTaken)
	e.gw.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
}

func TestCreateRequest_NoPaymentMethod(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("", gateway.ErrNoPaymentMethod)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.ErrorIs(t, err, ErrNoPaymentMethod)
	e.gw.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	e.bookings.AssertNotCalled(t, "CreateIfSlotFree", mock.Anything, mock.Anything)
}

func TestCreateRequest_AuthorizeFails_NothingPersisted(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	declined := &gateway.Error{Op: "authorize", Code: "card_declined", Err: errors.New("declined")}
	e.gw.On("Authorize", mock.Anything, mock.Anything).Return(nil, declined)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	var gwErr *gateway.Error
	assert.ErrorAs(t, err, &gwErr)
	e.bookings.AssertNotCalled(t, "CreateIfSlotFree", mock.Anything, mock.Anything)
}

func TestCreateRequest_CreateFails_HoldReleased(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	e.gw.On("Authorize", mock.Anything, mock.Anything).
		Return(&gateway.Hold{IntentID: "pi_1"}, nil)
	e.bookings.On("CreateIfSlotFree", mock.Anything, mock.Anything).Return(false, errors.New("disk full"))
	e.gw.On("Release", mock.Anything, "pi_1").Return(nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.Error(t, err)
	e.gw.AssertCalled(t, "Release", mock.Anything, "pi_1")
}

func TestCreateRequest_SlotStolenDuringAuthorize(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	e.gw.On("Authorize", mock.Anything, mock.Anything).
		Return(&gateway.Hold{IntentID: "pi_1"}, nil)
	// An intersecting window landed between the early overlap check and
	// the guarded insert.
	e.bookings.On("CreateIfSlotFree", mock.Anything, mock.Anything).Return(false, nil)
	e.gw.On("Release", mock.Anything, "pi_1").Return(nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.ErrorIs(t, err, ErrSlotTaken)
	e.gw.AssertCalled(t, "Release", mock.Anything, "pi_1")
}

func TestCreateRequest_SqliteDuplicateKeyReplay(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()
	existing := &domain.Booking{ID: "b-first", Status: domain.BookingPending, PaymentIntentID: "pi_first"}

	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	e.gw.On("Authorize", mock.Anything, mock.Anything).
		Return(&gateway.Hold{IntentID: "pi_2"}, nil)
	e.bookings.On("CreateIfSlotFree", mock.Anything, mock.Anything).
		Return(false, errors.New("constraint failed: UNIQUE constraint failed: bookings.idempotency_key (2067)"))
	e.gw.On("Release", mock.Anything, "pi_2").Return(nil)
	e.bookings.On("GetByIdempotencyKey", mock.Anything, "key-1").Return(existing, nil)

	b, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.NoError(t, err)
	assert.Equal(t, "b-first", b.ID)
	e.gw.AssertCalled(t, "Release", mock.Anything, "pi_2")
}

func TestCreateRequest_DuplicateKeyWithoutStoredBooking(t *testing.T) {
	e := newTestEnv()
	e.stubDirectories()

	e.bookings.On("CountOverlapping", mock.Anything, int64(10), "2026-09-15", "14:00", "16:00").
		Return(int64(0), nil)
	e.gw.On("EnsureCustomer", mock.Anything, "cus_1", mock.Anything).Return("cus_1", nil)
	e.gw.On("DefaultPaymentMethod", mock.Anything, "cus_1").Return("pm_1", nil)
	e.gw.On("Authorize", mock.Anything, mock.Anything).
		Return(&gateway.Hold{IntentID: "pi_1"}, nil)
	e.bookings.On("CreateIfSlotFree", mock.Anything, mock.Anything).
		Return(false, errors.New("constraint failed: UNIQUE constraint failed: bookings.room_id, bookings.date, bookings.start_time (2067)"))
	e.gw.On("Release", mock.Anything, "pi_1").Return(nil)
	e.bookings.On("GetByIdempotencyKey", mock.Anything, "key-1").Return(nil, nil)

	_, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreateRequest_Replay_DoesNotAuthorizeAgain(t *testing.T) {
	e := newTestEnv()
	existing := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentIntentID: "pi_1"}

	assert.NoError(t, e.idem.Set(context.Background(), "key-1", "b-1"))
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(existing, nil)

	b, err := e.service.CreateRequest(context.Background(), validCreateInput())

	assert.NoError(t, err)
	assert.Equal(t, "b-1", b.ID)
	e.gw.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	e.bookings.AssertNotCalled(t, "CreateIfSlotFree", mock.Anything, mock.Anything)
}

func TestApprove_CapturesThenConfirms(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentIntentID: "pi_1", TotalAmount: 21000}
	confirmed := &domain.Booking{ID: "b-1", Status: domain.BookingConfirmed, PaymentStatus: domain.PaymentCaptured, PaymentIntentID: "pi_1"}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil).Once()
	e.gw.On("Capture", mock.Anything, "pi_1", "capture:b-1").Return(nil)
	e.bookings.On("UpdateStatusIfPending", mock.Anything, "b-1", domain.BookingConfirmed, domain.PaymentCaptured).
		Return(true, nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(confirmed, nil).Once()

	b, err := e.service.Approve(context.Background(), "b-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.PaymentCaptured, b.PaymentStatus)
	assert.Equal(t, []domain.PaymentAction{domain.ActionCaptured}, e.audit.actions())
	e.bookings.AssertExpectations(t)
}

func TestApprove_CaptureFails_StaysPending(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentIntentID: "pi_1", TotalAmount: 21000}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil)
	e.gw.On("Capture", mock.Anything, "pi_1", "capture:b-1").
		Return(&gateway.Error{Op: "capture", Code: "card_declined", Err: errors.New("declined")})

	_, err := e.service.Approve(context.Background(), "b-1")

	assert.ErrorIs(t, err, ErrCaptureFailed)
	e.bookings.AssertNotCalled(t, "UpdateStatusIfPending", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []domain.PaymentAction{domain.ActionCaptureFailed}, e.audit.actions())
	assert.Equal(t, "card_declined", e.audit.events[0].GatewayCode)
}

func TestApprove_RetriesInconclusiveCapture(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentIntentID: "pi_1"}
	confirmed := &domain.Booking{ID: "b-1", Status: domain.BookingConfirmed, PaymentStatus: domain.PaymentCaptured}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil).Once()
	e.gw.On("Capture", mock.Anything, "pi_1", "capture:b-1").
		Return(&gateway.Error{Op: "capture", Code: gateway.CodeNetwork, Err: errors.New("conn reset")}).Once()
	e.gw.On("Capture", mock.Anything, "pi_1", "capture:b-1").Return(nil).Once()
	e.bookings.On("UpdateStatusIfPending", mock.Anything, "b-1", domain.BookingConfirmed, domain.PaymentCaptured).
		Return(true, nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(confirmed, nil).Once()

	b, err := e.service.Approve(context.Background(), "b-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	e.gw.AssertNumberOfCalls(t, "Capture", 2)
}

func TestApprove_NotPending(t *testing.T) {
	e := newTestEnv()
	e.bookings.On("GetByID", mock.Anything, "b-1").
		Return(&domain.Booking{ID: "b-1", Status: domain.BookingRejected}, nil)

	_, err := e.service.Approve(context.Background(), "b-1")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	e.gw.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_LostRace_FlagsReconciliation(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentIntentID: "pi_1", TotalAmount: 21000}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil)
	e.gw.On("Capture", mock.Anything, "pi_1", "capture:b-1").Return(nil)
	e.bookings.On("UpdateStatusIfPending", mock.Anything, "b-1", domain.BookingConfirmed, domain.PaymentCaptured).
		Return(false, nil)

	_, err := e.service.Approve(context.Background(), "b-1")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []domain.PaymentAction{domain.ActionReconcile}, e.audit.actions())
}

func TestReject_ReleasesHold(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentStatus: domain.PaymentAuthorized, PaymentIntentID: "pi_1"}
	rejected := &domain.Booking{ID: "b-1", Status: domain.BookingRejected, PaymentStatus: domain.PaymentReleased}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil).Once()
	e.bookings.On("UpdateStatusIfPending", mock.Anything, "b-1", domain.BookingRejected, domain.PaymentAuthorized).
		Return(true, nil)
	e.gw.On("Release", mock.Anything, "pi_1").Return(nil)
	e.bookings.On("UpdatePaymentStatus", mock.Anything, "b-1", domain.PaymentReleased).Return(nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(rejected, nil).Once()

	b, err := e.service.Reject(context.Background(), "b-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingRejected, b.Status)
	assert.Equal(t, []domain.PaymentAction{domain.ActionReleased}, e.audit.actions())
}

func TestReject_ReleaseFails_RejectionStands(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", Status: domain.BookingPending, PaymentStatus: domain.PaymentAuthorized, PaymentIntentID: "pi_1"}
	rejected := &domain.Booking{ID: "b-1", Status: domain.BookingRejected, PaymentStatus: domain.PaymentAuthorized}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil).Once()
	e.bookings.On("UpdateStatusIfPending", mock.Anything, "b-1", domain.BookingRejected, domain.PaymentAuthorized).
		Return(true, nil)
	e.gw.On("Release", mock.Anything, "pi_1").
		Return(&gateway.Error{Op: "release", Code: "processing_error", Err: errors.New("boom")})
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(rejected, nil).Once()

	b, err := e.service.Reject(context.Background(), "b-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingRejected, b.Status)
	e.bookings.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []domain.PaymentAction{domain.ActionReleaseFailed}, e.audit.actions())
}

func TestCancel_RequesterAllowed(t *testing.T) {
	e := newTestEnv()
	confirmed := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingConfirmed}
	cancelled := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingCancelled}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(confirmed, nil).Once()
	e.bookings.On("CancelIfConfirmed", mock.Anything, "b-1", mock.Anything).Return(true, nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(cancelled, nil).Once()

	b, err := e.service.Cancel(context.Background(), "b-1", 42)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
}

func TestCancel_StudioOwnerAllowed(t *testing.T) {
	e := newTestEnv()
	confirmed := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingConfirmed}
	cancelled := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingCancelled}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(confirmed, nil).Once()
	e.studios.On("FindByID", mock.Anything, int64(5)).Return(&domain.Studio{ID: 5, OwnerID: 3}, nil)
	e.bookings.On("CancelIfConfirmed", mock.Anything, "b-1", mock.Anything).Return(true, nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(cancelled, nil).Once()

	_, err := e.service.Cancel(context.Background(), "b-1", 3)
	assert.NoError(t, err)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	e := newTestEnv()
	confirmed := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingConfirmed}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(confirmed, nil)
	e.studios.On("FindByID", mock.Anything, int64(5)).Return(&domain.Studio{ID: 5, OwnerID: 3}, nil)

	_, err := e.service.Cancel(context.Background(), "b-1", 777)

	assert.ErrorIs(t, err, ErrForbidden)
	e.bookings.AssertNotCalled(t, "CancelIfConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_NotConfirmed(t *testing.T) {
	e := newTestEnv()
	pending := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingPending}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(pending, nil)
	e.bookings.On("CancelIfConfirmed", mock.Anything, "b-1", mock.Anything).Return(false, nil)

	_, err := e.service.Cancel(context.Background(), "b-1", 42)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRefund_RequiresCapturedPayment(t *testing.T) {
	e := newTestEnv()
	b := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingCancelled, PaymentStatus: domain.PaymentAuthorized}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(b, nil)

	_, err := e.service.Refund(context.Background(), "b-1", 42)

	assert.ErrorIs(t, err, ErrNotRefundable)
	e.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_Success(t *testing.T) {
	e := newTestEnv()
	captured := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingCancelled, PaymentStatus: domain.PaymentCaptured, PaymentIntentID: "pi_1", TotalAmount: 21000}
	refunded := &domain.Booking{ID: "b-1", UserID: 42, StudioID: 5, Status: domain.BookingCancelled, PaymentStatus: domain.PaymentRefunded}

	e.bookings.On("GetByID", mock.Anything, "b-1").Return(captured, nil).Once()
	e.gw.On("Refund", mock.Anything, "pi_1", "refund:b-1").Return(nil)
	e.bookings.On("UpdatePaymentStatus", mock.Anything, "b-1", domain.PaymentRefunded).Return(nil)
	e.bookings.On("GetByID", mock.Anything, "b-1").Return(refunded, nil).Once()

	b, err := e.service.Refund(context.Background(), "b-1", 42)

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, b.PaymentStatus)
	assert.Equal(t, []domain.PaymentAction{domain.ActionRefunded}, e.audit.actions())
}

func TestAvailability_ReturnsBusySlots(t *testing.T) {
	e := newTestEnv()
	e.rooms.On("FindByID", mock.Anything, int64(10)).
		Return(&domain.Room{ID: 10, StudioID: 5}, nil)
	e.bookings.On("ListActiveByRoomDate", mock.Anything, int64(10), "2026-09-15").
		Return([]domain.Booking{
			{StartTime: "10:00", EndTime: "12:00", Status: domain.BookingConfirmed},
			{StartTime: "14:00", EndTime: "16:00", Status: domain.BookingPending},
		}, nil)

	resp, err := e.service.Availability(context.Background(), 10, "2026-09-15")

	assert.NoError(t, err)
	assert.Len(t, resp.BusySlots, 2)
	assert.Equal(t, "confirmed", resp.BusySlots[0].Status)
}

func TestPaymentEvents_ReturnsTrail(t *testing.T) {
	e := newTestEnv()
	e.bookings.On("GetByID", mock.Anything, "b-1").
		Return(&domain.Booking{ID: "b-1"}, nil)
	e.events.On("ListByBooking", mock.Anything, "b-1").
		Return([]domain.PaymentEvent{
			{BookingID: "b-1", Action: domain.ActionAuthorized, AmountCents: 21000},
			{BookingID: "b-1", Action: domain.ActionCaptured, AmountCents: 21000},
		}, nil)

	events, err := e.service.PaymentEvents(context.Background(), "b-1")

	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.ActionAuthorized, events[0].Action)
	assert.Equal(t, domain.ActionCaptured, events[1].Action)
}

func TestPaymentEvents_UnknownBooking(t *testing.T) {
	e := newTestEnv()
	e.bookings.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	_, err := e.service.PaymentEvents(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	e.events.AssertNotCalled(t, "ListByBooking", mock.Anything, mock.Anything)
}

func TestAvailability_BadDate(t *testing.T) {
	e := newTestEnv()

	_, err := e.service.Availability(context.Background(), 10, "next tuesday")
	assert.ErrorIs(t, err, ErrValidation)
}
