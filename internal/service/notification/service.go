package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

// Service turns booking events into customer emails, recording every
// delivery attempt.
type Service struct {
	notifRepo repository.NotificationRepository
	sender    email.Sender
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(notifRepo repository.NotificationRepository, sender email.Sender, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{notifRepo: notifRepo, sender: sender, metrics: m, logger: log}
}

// HandleBookingEvent dispatches one booking.* event from the broker.
func (s *Service) HandleBookingEvent(ctx context.Context, eventType string, raw []byte) error {
	var payload model.BookingEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}

	var notifType model.NotificationType
	var subject, body string
	switch eventType {
	case model.EventBookingCreated:
		notifType = model.NotificationBookingConfirmed
		subject, body = email.BookingConfirmed(&payload)
	case model.EventBookingCancelled:
		notifType = model.NotificationBookingCancelled
		subject, body = email.BookingCancelled(&payload)
	case model.EventBookingCompleted:
		// No customer email on completion.
		return nil
	default:
		s.logger.Debug("ignoring event", "event_type", eventType)
		return nil
	}
	return s.deliver(ctx, notifType, &payload, subject, body)
}

// SendReminder emails the upcoming-booking reminder.
func (s *Service) SendReminder(ctx context.Context, payload *model.BookingEventPayload) error {
	subject, body := email.BookingReminder(payload)
	return s.deliver(ctx, model.NotificationBookingReminder, payload, subject, body)
}

func (s *Service) deliver(ctx context.Context, notifType model.NotificationType, payload *model.BookingEventPayload, subject, body string) error {
	notif := &model.Notification{
		OrganizationID: payload.OrganizationID,
		BookingID:      &payload.BookingID,
		Type:           notifType,
		Recipient:      payload.CustomerEmail,
		Subject:        subject,
		Content:        body,
		Status:         model.NotificationStatusPending,
	}
	if err := s.notifRepo.Create(ctx, notif); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	if err := s.sender.Send(ctx, notif.Recipient, subject, body); err != nil {
		s.metrics.NotificationsFailed.WithLabelValues(string(notifType)).Inc()
		msg := err.Error()
		notif.Status = model.NotificationStatusFailed
		notif.LastError = &msg
		if updErr := s.notifRepo.Update(ctx, notif); updErr != nil {
			s.logger.Error(updErr, "mark notification failed", "notification_id", notif.ID.String())
		}
		return fmt.Errorf("send %s to %s: %w", notifType, notif.Recipient, err)
	}

	s.metrics.NotificationsSent.WithLabelValues(string(notifType)).Inc()
	now := time.Now()
	notif.Status = model.NotificationStatusSent
	notif.SentAt = &now
	if err := s.notifRepo.Update(ctx, notif); err != nil {
		s.logger.Error(err, "mark notification sent", "notification_id", notif.ID.String())
	}
	return nil
}
