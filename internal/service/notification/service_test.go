package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("notification_test")

type stubNotificationRepo struct {
	created []*model.Notification
	updated []*model.Notification
}

func (r *stubNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	n.ID = uuid.New()
	r.created = append(r.created, n)
	return nil
}

func (r *stubNotificationRepo) Update(_ context.Context, n *model.Notification) error {
	r.updated = append(r.updated, n)
	return nil
}

type stubSender struct {
	sent []string
	err  error
}

func (s *stubSender) Send(_ context.Context, to, _, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

func eventPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(model.BookingEventPayload{
		BookingID:       uuid.New(),
		OrganizationID:  uuid.New(),
		UserID:          uuid.New(),
		CustomerEmail:   "customer@example.com",
		CustomerName:    "Dana",
		StartTime:       time.Date(2026, 9, 7, 13, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 9, 7, 13, 30, 0, 0, time.UTC),
		AppointmentType: "Intro Call",
	})
	require.NoError(t, err)
	return raw
}

func TestHandleBookingEventSendsConfirmation(t *testing.T) {
	repo := &stubNotificationRepo{}
	sender := &stubSender{}
	svc := NewService(repo, sender, testMetrics, logger.NewLogger(nil))

	err := svc.HandleBookingEvent(context.Background(), model.EventBookingCreated, eventPayload(t))
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, model.NotificationBookingConfirmed, repo.created[0].Type)
	assert.Equal(t, []string{"customer@example.com"}, sender.sent)

	require.Len(t, repo.updated, 1)
	assert.Equal(t, model.NotificationStatusSent, repo.updated[0].Status)
	assert.NotNil(t, repo.updated[0].SentAt)
}

func TestHandleBookingEventCompletionIsSilent(t *testing.T) {
	repo := &stubNotificationRepo{}
	sender := &stubSender{}
	svc := NewService(repo, sender, testMetrics, logger.NewLogger(nil))

	err := svc.HandleBookingEvent(context.Background(), model.EventBookingCompleted, eventPayload(t))
	require.NoError(t, err)
	assert.Empty(t, repo.created)
	assert.Empty(t, sender.sent)
}

func TestHandleBookingEventMalformedPayload(t *testing.T) {
	svc := NewService(&stubNotificationRepo{}, &stubSender{}, testMetrics, logger.NewLogger(nil))

	err := svc.HandleBookingEvent(context.Background(), model.EventBookingCreated, []byte("{"))
	assert.Error(t, err)
}

func TestDeliverFailureRecordsLastError(t *testing.T) {
	repo := &stubNotificationRepo{}
	sender := &stubSender{err: errors.New("smtp down")}
	svc := NewService(repo, sender, testMetrics, logger.NewLogger(nil))

	err := svc.HandleBookingEvent(context.Background(), model.EventBookingCancelled, eventPayload(t))
	require.Error(t, err)

	require.Len(t, repo.updated, 1)
	assert.Equal(t, model.NotificationStatusFailed, repo.updated[0].Status)
	require.NotNil(t, repo.updated[0].LastError)
	assert.Contains(t, *repo.updated[0].LastError, "smtp down")
}

func TestSendReminder(t *testing.T) {
	repo := &stubNotificationRepo{}
	sender := &stubSender{}
	svc := NewService(repo, sender, testMetrics, logger.NewLogger(nil))

	var payload model.BookingEventPayload
	require.NoError(t, json.Unmarshal(eventPayload(t), &payload))

	require.NoError(t, svc.SendReminder(context.Background(), &payload))
	require.Len(t, repo.created, 1)
	assert.Equal(t, model.NotificationBookingReminder, repo.created[0].Type)
}
