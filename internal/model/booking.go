package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Booking occupies [StartTime, StartTime+Duration) in UTC. Duration and
// buffers are snapshotted from the appointment type at booking time so later
// edits to the type don't shift existing bookings.
type Booking struct {
	Base
	OrganizationID    uuid.UUID     `db:"organization_id" json:"organization_id"`
	UserID            uuid.UUID     `db:"user_id" json:"user_id"`
	AppointmentTypeID uuid.UUID     `db:"appointment_type_id" json:"appointment_type_id"`
	CustomerName      string        `db:"customer_name" json:"customer_name"`
	CustomerEmail     string        `db:"customer_email" json:"customer_email"`
	CustomerPhone     string        `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerTimezone  string        `db:"customer_timezone" json:"customer_timezone,omitempty"`
	StartTime         time.Time     `db:"start_time" json:"start_time"`
	DurationMinutes   int           `db:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMins  int           `db:"buffer_before_mins" json:"buffer_before_mins"`
	BufferAfterMins   int           `db:"buffer_after_mins" json:"buffer_after_mins"`
	Status            BookingStatus `db:"status" json:"status"`
	Notes             string        `db:"notes" json:"notes,omitempty"`
	CancelReason      *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CalendarEventID   *string       `db:"calendar_event_id" json:"-"`
}

// EndTime returns the exclusive end of the occupied interval.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// BlocksInterval returns the booking interval expanded by its buffers. No
// other booking may start inside it.
func (b *Booking) BlocksInterval() (time.Time, time.Time) {
	start := b.StartTime.Add(-time.Duration(b.BufferBeforeMins) * time.Minute)
	end := b.EndTime().Add(time.Duration(b.BufferAfterMins) * time.Minute)
	return start, end
}

type CreateBookingRequest struct {
	UserID            uuid.UUID `json:"user_id" binding:"required"`
	AppointmentTypeID uuid.UUID `json:"appointment_type_id" binding:"required"`
	StartTime         time.Time `json:"start_time" binding:"required"`
	CustomerName      string    `json:"customer_name" binding:"required,max=120"`
	CustomerEmail     string    `json:"customer_email" binding:"required,email"`
	CustomerPhone     string    `json:"customer_phone" binding:"omitempty,max=32"`
	CustomerTimezone  string    `json:"customer_timezone" binding:"omitempty,iana_tz"`
	Notes             string    `json:"notes" binding:"max=2000"`
}

type BookingFilters struct {
	OrganizationID    uuid.UUID
	UserID            uuid.UUID
	AppointmentTypeID uuid.UUID
	Status            BookingStatus
	StartDate         time.Time
	EndDate           time.Time
}
