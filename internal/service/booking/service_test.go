package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

type stubBookingRepo struct {
	repository.BookingRepository
	created   *model.Booking
	updated   *model.Booking
	existing  map[uuid.UUID]*model.Booking
	createErr error
}

func (s *stubBookingRepo) CreateConfirmed(_ context.Context, b *model.Booking) error {
	if s.createErr != nil {
		return s.createErr
	}
	b.ID = uuid.New()
	s.created = b
	return nil
}

func (s *stubBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	if b, ok := s.existing[id]; ok {
		return b, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubBookingRepo) Update(_ context.Context, b *model.Booking) error {
	s.updated = b
	return nil
}

type stubTypeRepo struct {
	repository.AppointmentTypeRepository
	apptType *model.AppointmentType
}

func (s *stubTypeRepo) Get(_ context.Context, id uuid.UUID) (*model.AppointmentType, error) {
	if s.apptType == nil || s.apptType.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.apptType, nil
}

type stubUserRepo struct {
	repository.UserRepository
	user *model.User
}

func (s *stubUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

type stubOutboxRepo struct {
	repository.OutboxRepository
	events []*model.OutboxEvent
}

func (s *stubOutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	s.events = append(s.events, e)
	return nil
}

type stubSlotChecker struct{ available bool }

func (s *stubSlotChecker) IsSlotAvailable(_ context.Context, _, _, _ uuid.UUID, _ time.Time) (bool, error) {
	return s.available, nil
}

var testMetrics = metrics.NewMetrics("booking_test")

type fixture struct {
	svc      *Service
	bookings *stubBookingRepo
	outbox   *stubOutboxRepo
	checker  *stubSlotChecker
	org      uuid.UUID
	user     *model.User
	at       *model.AppointmentType
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	org := uuid.New()
	user := &model.User{OrganizationID: org}
	user.ID = uuid.New()
	at := &model.AppointmentType{
		OrganizationID:   org,
		Name:             "Intro call",
		DurationMinutes:  30,
		BufferAfterMins:  10,
		Active:           true,
	}
	at.ID = uuid.New()

	f := &fixture{
		bookings: &stubBookingRepo{existing: map[uuid.UUID]*model.Booking{}},
		outbox:   &stubOutboxRepo{},
		checker:  &stubSlotChecker{available: true},
		org:      org,
		user:     user,
		at:       at,
		now:      time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(
		f.bookings,
		&stubTypeRepo{apptType: at},
		&stubUserRepo{user: user},
		f.outbox,
		f.checker,
		Config{MaxAdvance: 90 * 24 * time.Hour, MinNotice: time.Hour},
		testMetrics,
		logger.NewLogger(nil),
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) request() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		UserID:            f.user.ID,
		AppointmentTypeID: f.at.ID,
		StartTime:         time.Date(2026, time.September, 7, 13, 0, 0, 0, time.UTC),
		CustomerName:      "Ada Lovelace",
		CustomerEmail:     "ada@example.com",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	booking, err := f.svc.Create(context.Background(), f.org, f.request())
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 30, booking.DurationMinutes, "duration is snapshotted from the type")
	assert.Equal(t, 10, booking.BufferAfterMins)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventBookingCreated, f.outbox.events[0].EventType)
}

func TestCreateBookingSlotNotOffered(t *testing.T) {
	f := newFixture(t)
	f.checker.available = false
	_, err := f.svc.Create(context.Background(), f.org, f.request())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Empty(t, f.outbox.events)
}

func TestCreateBookingLosesRace(t *testing.T) {
	f := newFixture(t)
	f.bookings.createErr = repository.ErrSlotTaken
	_, err := f.svc.Create(context.Background(), f.org, f.request())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestCreateBookingNoticeWindow(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.StartTime = f.now.Add(30 * time.Minute)
	_, err := f.svc.Create(context.Background(), f.org, req)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code, "under minimum notice")

	req = f.request()
	req.StartTime = f.now.Add(100 * 24 * time.Hour)
	_, err = f.svc.Create(context.Background(), f.org, req)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code, "beyond maximum advance")
}

func TestCreateBookingWrongOrganization(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), uuid.New(), f.request())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	booking := &model.Booking{
		OrganizationID: f.org,
		Status:         model.BookingStatusConfirmed,
		StartTime:      time.Date(2026, time.September, 7, 13, 0, 0, 0, time.UTC),
	}
	booking.ID = uuid.New()
	f.bookings.existing[booking.ID] = booking

	cancelled, err := f.svc.Cancel(context.Background(), f.org, booking.ID, "customer no-show")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "customer no-show", *cancelled.CancelReason)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventBookingCancelled, f.outbox.events[0].EventType)

	_, err = f.svc.Cancel(context.Background(), f.org, booking.ID, "")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code, "double cancel")
}

func TestCompleteBooking(t *testing.T) {
	f := newFixture(t)
	booking := &model.Booking{OrganizationID: f.org, Status: model.BookingStatusConfirmed}
	booking.ID = uuid.New()
	f.bookings.existing[booking.ID] = booking

	done, err := f.svc.Complete(context.Background(), f.org, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	_, err = f.svc.Complete(context.Background(), f.org, booking.ID)
	assert.Error(t, err)
}
