package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentType defines what customers can book: slot length plus the
// padding required around each booking.
type AppointmentType struct {
	Base
	OrganizationID   uuid.UUID `db:"organization_id" json:"organization_id"`
	Name             string    `db:"name" json:"name"`
	Description      string    `db:"description" json:"description,omitempty"`
	DurationMinutes  int       `db:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMins int       `db:"buffer_before_mins" json:"buffer_before_mins"`
	BufferAfterMins  int       `db:"buffer_after_mins" json:"buffer_after_mins"`
	PriceCents       int64     `db:"price_cents" json:"price_cents"`
	Currency         string    `db:"currency" json:"currency"`
	Color            string    `db:"color" json:"color,omitempty"`
	Active           bool      `db:"active" json:"active"`
}

// Duration returns the slot length as a time.Duration.
func (t *AppointmentType) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// BufferBefore returns the lead padding as a time.Duration.
func (t *AppointmentType) BufferBefore() time.Duration {
	return time.Duration(t.BufferBeforeMins) * time.Minute
}

// BufferAfter returns the trailing padding as a time.Duration.
func (t *AppointmentType) BufferAfter() time.Duration {
	return time.Duration(t.BufferAfterMins) * time.Minute
}

type CreateAppointmentTypeRequest struct {
	Name             string `json:"name" binding:"required,max=120"`
	Description      string `json:"description" binding:"max=2000"`
	DurationMinutes  int    `json:"duration_minutes" binding:"required,min=5,max=480"`
	BufferBeforeMins int    `json:"buffer_before_mins" binding:"min=0,max=240"`
	BufferAfterMins  int    `json:"buffer_after_mins" binding:"min=0,max=240"`
	PriceCents       int64  `json:"price_cents" binding:"min=0"`
	Currency         string `json:"currency" binding:"omitempty,len=3,uppercase"`
	Color            string `json:"color" binding:"omitempty,hexcolor"`
}

type UpdateAppointmentTypeRequest struct {
	Name             *string `json:"name" binding:"omitempty,max=120"`
	Description      *string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes  *int    `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	BufferBeforeMins *int    `json:"buffer_before_mins" binding:"omitempty,min=0,max=240"`
	BufferAfterMins  *int    `json:"buffer_after_mins" binding:"omitempty,min=0,max=240"`
	PriceCents       *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Currency         *string `json:"currency" binding:"omitempty,len=3,uppercase"`
	Color            *string `json:"color" binding:"omitempty,hexcolor"`
	Active           *bool   `json:"active"`
}
