package worker

import (
	"context"
	"time"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/internal/service/notification"
	"github.com/slotwise/booking-api/pkg/logger"
)

// ReminderWorker emails customers ahead of their booking. Each tick scans
// one lead-offset window; consecutive windows don't overlap, so a booking is
// reminded at most once.
type ReminderWorker struct {
	bookingRepo  repository.BookingRepository
	typeRepo     repository.AppointmentTypeRepository
	notifier     *notification.Service
	lead         time.Duration
	scanInterval time.Duration
	logger       *logger.Logger
}

func NewReminderWorker(
	bookingRepo repository.BookingRepository,
	typeRepo repository.AppointmentTypeRepository,
	notifier *notification.Service,
	lead, scanInterval time.Duration,
	log *logger.Logger,
) *ReminderWorker {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	if scanInterval <= 0 {
		scanInterval = 5 * time.Minute
	}
	return &ReminderWorker{
		bookingRepo:  bookingRepo,
		typeRepo:     typeRepo,
		notifier:     notifier,
		lead:         lead,
		scanInterval: scanInterval,
		logger:       log,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", "lead", w.lead.String(), "interval", w.scanInterval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				w.logger.Error(err, "reminder scan failed")
			}
		}
	}
}

func (w *ReminderWorker) scan(ctx context.Context) error {
	from := time.Now().UTC().Add(w.lead)
	to := from.Add(w.scanInterval)

	bookings, err := w.bookingRepo.ListStartingBetween(ctx, from, to)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if b.Status != model.BookingStatusConfirmed {
			continue
		}
		typeName := ""
		if at, err := w.typeRepo.Get(ctx, b.AppointmentTypeID); err == nil {
			typeName = at.Name
		}
		payload := &model.BookingEventPayload{
			BookingID:        b.ID,
			OrganizationID:   b.OrganizationID,
			UserID:           b.UserID,
			CustomerEmail:    b.CustomerEmail,
			CustomerName:     b.CustomerName,
			CustomerTimezone: b.CustomerTimezone,
			StartTime:        b.StartTime,
			EndTime:          b.EndTime(),
			AppointmentType:  typeName,
		}
		if err := w.notifier.SendReminder(ctx, payload); err != nil {
			w.logger.Error(err, "send reminder", "booking_id", b.ID.String())
		}
	}
	return nil
}
