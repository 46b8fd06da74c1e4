package availability

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

type stubOrgRepo struct {
	repository.OrganizationRepository
	org *model.Organization
}

func (s *stubOrgRepo) Get(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	if s.org == nil || s.org.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.org, nil
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

type stubAvailabilityRepo struct {
	repository.AvailabilityRepository
	weekly     []*model.WeeklyAvailability
	exceptions []*model.AvailabilityException
	blocked    []*model.BlockedDateRange
}

func (s *stubAvailabilityRepo) ListWeekly(_ context.Context, _ uuid.UUID) ([]*model.WeeklyAvailability, error) {
	return s.weekly, nil
}

func (s *stubAvailabilityRepo) ListExceptions(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]*model.AvailabilityException, error) {
	return s.exceptions, nil
}

func (s *stubAvailabilityRepo) ListBlockedRanges(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]*model.BlockedDateRange, error) {
	return s.blocked, nil
}

type stubBookingRepo struct {
	repository.BookingRepository
	bookings []*model.Booking
}

func (s *stubBookingRepo) ListBlocking(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]*model.Booking, error) {
	return s.bookings, nil
}

var testMetrics = metrics.NewMetrics("availability_test")

type fixture struct {
	svc  *Service
	org  *model.Organization
	user *model.User
	at   *model.AppointmentType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	org := &model.Organization{Timezone: "America/New_York"}
	org.ID = uuid.New()
	user := &model.User{OrganizationID: org.ID}
	user.ID = uuid.New()
	at := &model.AppointmentType{
		OrganizationID:  org.ID,
		DurationMinutes: 30,
		Active:          true,
	}
	at.ID = uuid.New()

	svc := NewService(
		&stubOrgRepo{org: org},
		&stubUserRepo{user: user},
		&stubTypeRepo{apptType: at},
		&stubAvailabilityRepo{
			weekly: []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "11:00")},
		},
		&stubBookingRepo{},
		testMetrics,
		logger.NewLogger(nil),
	)
	svc.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, org: org, user: user, at: at}
}

func (f *fixture) query() SlotQuery {
	return SlotQuery{
		OrganizationID:    f.org.ID,
		UserID:            f.user.ID,
		AppointmentTypeID: f.at.ID,
		Date:              "2026-09-07",
	}
}

func TestGetSlots(t *testing.T) {
	f := newFixture(t)
	slots, err := f.svc.GetSlots(context.Background(), f.query())
	require.NoError(t, err)
	require.Len(t, slots, 4)
	// 09:00 New York is 13:00 UTC in September.
	assert.Equal(t, time.Date(2026, time.September, 7, 13, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Empty(t, slots[0].LocalStart)
}

func TestGetSlotsCustomerTimezoneIsDisplayOnly(t *testing.T) {
	f := newFixture(t)
	q := f.query()
	q.CustomerTimezone = "Asia/Tokyo"
	slots, err := f.svc.GetSlots(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, time.Date(2026, time.September, 7, 13, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, "2026-09-07T22:00:00+09:00", slots[0].LocalStart)
}

func TestGetSlotsUnknownUser(t *testing.T) {
	f := newFixture(t)
	q := f.query()
	q.UserID = uuid.New()
	_, err := f.svc.GetSlots(context.Background(), q)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestGetSlotsInactiveType(t *testing.T) {
	f := newFixture(t)
	f.at.Active = false
	_, err := f.svc.GetSlots(context.Background(), f.query())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestGetSlotsBadDate(t *testing.T) {
	f := newFixture(t)
	q := f.query()
	q.Date = "07-09-2026"
	_, err := f.svc.GetSlots(context.Background(), q)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestIsSlotAvailable(t *testing.T) {
	f := newFixture(t)
	ok, err := f.svc.IsSlotAvailable(context.Background(), f.org.ID, f.user.ID, f.at.ID,
		time.Date(2026, time.September, 7, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)

	// Off-grid start times are not offered.
	ok, err = f.svc.IsSlotAvailable(context.Background(), f.org.ID, f.user.ID, f.at.ID,
		time.Date(2026, time.September, 7, 13, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceWeekRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReplaceWeek(context.Background(), f.user.ID, &model.ReplaceWeekRequest{
		Rules: []model.WeeklyRule{{Weekday: time.Monday, StartTime: "17:00", EndTime: "09:00", IsAvailable: true}},
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestCreateExceptionValidation(t *testing.T) {
	f := newFixture(t)
	ten := "10:00"

	_, err := f.svc.CreateException(context.Background(), f.user.ID, &model.CreateExceptionRequest{
		Date: "2026-09-07", Type: model.ExceptionUnavailable, StartTime: &ten,
	})
	assert.Error(t, err, "unavailable must not carry hours")

	_, err = f.svc.CreateException(context.Background(), f.user.ID, &model.CreateExceptionRequest{
		Date: "2026-09-07", Type: model.ExceptionCustomHours,
	})
	assert.Error(t, err, "custom hours require a window")
}
