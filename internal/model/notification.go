package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusSent     NotificationStatus = "sent"
	NotificationStatusFailed   NotificationStatus = "failed"
	NotificationStatusRetrying NotificationStatus = "retrying"
)

const (
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationBookingReminder  NotificationType = "booking_reminder"
	NotificationLoginCode        NotificationType = "login_code"
)

type NotificationType string

type Notification struct {
	Base
	OrganizationID uuid.UUID          `db:"organization_id" json:"organization_id"`
	BookingID      *uuid.UUID         `db:"booking_id" json:"booking_id,omitempty"`
	Type           NotificationType   `db:"type" json:"type"`
	Recipient      string             `db:"recipient" json:"recipient"`
	Subject        string             `db:"subject" json:"subject"`
	Content        string             `db:"content" json:"content"`
	Status         NotificationStatus `db:"status" json:"status"`
	RetryCount     int                `db:"retry_count" json:"retry_count"`
	LastError      *string            `db:"last_error" json:"last_error,omitempty"`
	SentAt         *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
	NextRetryAt    *time.Time         `db:"next_retry_at" json:"next_retry_at,omitempty"`
}
