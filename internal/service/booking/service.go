package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

// SlotChecker re-runs availability resolution for a proposed start time.
type SlotChecker interface {
	IsSlotAvailable(ctx context.Context, orgID, userID, typeID uuid.UUID, start time.Time) (bool, error)
}

// Config bounds how far out and how soon customers may book.
type Config struct {
	MaxAdvance time.Duration
	MinNotice  time.Duration
}

type Service struct {
	bookingRepo repository.BookingRepository
	typeRepo    repository.AppointmentTypeRepository
	userRepo    repository.UserRepository
	outboxRepo  repository.OutboxRepository
	slots       SlotChecker
	cfg         Config
	metrics     *metrics.Metrics
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(
	bookingRepo repository.BookingRepository,
	typeRepo repository.AppointmentTypeRepository,
	userRepo repository.UserRepository,
	outboxRepo repository.OutboxRepository,
	slots SlotChecker,
	cfg Config,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if cfg.MaxAdvance <= 0 {
		cfg.MaxAdvance = 90 * 24 * time.Hour
	}
	return &Service{
		bookingRepo: bookingRepo,
		typeRepo:    typeRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		slots:       slots,
		cfg:         cfg,
		metrics:     m,
		logger:      log,
		now:         time.Now,
	}
}

// Create books a slot for a customer. The start time must be one of the
// currently offered slots; the insert then re-checks for overlap inside its
// transaction, so two racing customers cannot both win the same slot.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	apptType, err := s.typeRepo.Get(ctx, req.AppointmentTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment type", err)
		}
		return nil, apperrors.Internal(err)
	}
	if apptType.OrganizationID != orgID || !apptType.Active {
		return nil, apperrors.NotFound("appointment type", nil)
	}
	user, err := s.userRepo.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if user.OrganizationID != orgID {
		return nil, apperrors.NotFound("user", nil)
	}

	start := req.StartTime.UTC()
	now := s.now()
	if !start.After(now.Add(s.cfg.MinNotice)) {
		return nil, apperrors.BadRequest("start time is too soon", nil)
	}
	if start.After(now.Add(s.cfg.MaxAdvance)) {
		return nil, apperrors.BadRequest("start time is too far in advance", nil)
	}

	available, err := s.slots.IsSlotAvailable(ctx, orgID, req.UserID, req.AppointmentTypeID, start)
	if err != nil {
		return nil, err
	}
	if !available {
		s.metrics.BookingConflicts.Inc()
		return nil, apperrors.Conflict("slot is not available", nil)
	}

	booking := &model.Booking{
		OrganizationID:    orgID,
		UserID:            req.UserID,
		AppointmentTypeID: apptType.ID,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		CustomerTimezone:  req.CustomerTimezone,
		StartTime:         start,
		DurationMinutes:   apptType.DurationMinutes,
		BufferBeforeMins:  apptType.BufferBeforeMins,
		BufferAfterMins:   apptType.BufferAfterMins,
		Status:            model.BookingStatusConfirmed,
		Notes:             req.Notes,
	}
	if err := s.bookingRepo.CreateConfirmed(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict("slot was just taken", err)
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.BookingsCreated.Inc()

	s.enqueueEvent(ctx, model.EventBookingCreated, booking, apptType.Name, "")
	return booking, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookingRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking", err)
		}
		return nil, apperrors.Internal(err)
	}
	if booking.OrganizationID != orgID {
		return nil, apperrors.NotFound("booking", nil)
	}
	return booking, nil
}

func (s *Service) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	bookings, err := s.bookingRepo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return bookings, nil
}

// Cancel moves a confirmed or pending booking to cancelled and queues the
// cancellation notifications. Cancelling twice is a conflict.
func (s *Service) Cancel(ctx context.Context, orgID, id uuid.UUID, reason string) (*model.Booking, error) {
	booking, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	switch booking.Status {
	case model.BookingStatusCancelled:
		return nil, apperrors.Conflict("booking is already cancelled", nil)
	case model.BookingStatusCompleted:
		return nil, apperrors.Conflict("completed bookings cannot be cancelled", nil)
	}
	booking.Status = model.BookingStatusCancelled
	if reason != "" {
		booking.CancelReason = &reason
	}
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.metrics.BookingsCancelled.Inc()

	s.enqueueEvent(ctx, model.EventBookingCancelled, booking, "", reason)
	return booking, nil
}

// Complete marks a confirmed booking as done.
func (s *Service) Complete(ctx context.Context, orgID, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot complete a %s booking", booking.Status), nil)
	}
	booking.Status = model.BookingStatusCompleted
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.enqueueEvent(ctx, model.EventBookingCompleted, booking, "", "")
	return booking, nil
}

// enqueueEvent writes a booking event to the outbox. Failures are logged,
// not surfaced: the booking itself already committed.
func (s *Service) enqueueEvent(ctx context.Context, eventType string, booking *model.Booking, typeName, cancelReason string) {
	payload, err := json.Marshal(model.BookingEventPayload{
		BookingID:        booking.ID,
		OrganizationID:   booking.OrganizationID,
		UserID:           booking.UserID,
		CustomerEmail:    booking.CustomerEmail,
		CustomerName:     booking.CustomerName,
		CustomerTimezone: booking.CustomerTimezone,
		StartTime:        booking.StartTime,
		EndTime:          booking.EndTime(),
		AppointmentType:  typeName,
		CancelReason:     cancelReason,
	})
	if err != nil {
		s.logger.Error(err, "marshal booking event", "booking_id", booking.ID.String())
		return
	}
	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		s.logger.Error(err, "enqueue booking event", "booking_id", booking.ID.String(), "event_type", eventType)
	}
}
