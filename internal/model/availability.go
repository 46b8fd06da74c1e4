package model

import (
	"time"

	"github.com/google/uuid"
)

type ExceptionType string

const (
	// ExceptionUnavailable closes the whole date.
	ExceptionUnavailable ExceptionType = "unavailable"
	// ExceptionCustomHours replaces the weekly pattern for the date.
	ExceptionCustomHours ExceptionType = "custom_hours"
	// ExceptionSpecialAvailability opens hours on a date that would
	// otherwise be closed. Resolved identically to custom hours.
	ExceptionSpecialAvailability ExceptionType = "special_availability"
)

// WeeklyAvailability is one recurring open window on a weekday, in the
// organization's local time. Multiple rows per weekday model split shifts.
type WeeklyAvailability struct {
	Base
	UserID      uuid.UUID    `db:"user_id" json:"user_id"`
	Weekday     time.Weekday `db:"weekday" json:"weekday"`
	StartTime   string       `db:"start_time" json:"start_time"` // "HH:MM"
	EndTime     string       `db:"end_time" json:"end_time"`     // "HH:MM"
	IsAvailable bool         `db:"is_available" json:"is_available"`
}

// AvailabilityException overrides the weekly pattern for a single calendar
// date. Date is stored date-only; Start/End apply to custom hours and
// special availability, in the organization's local time.
type AvailabilityException struct {
	Base
	UserID            uuid.UUID     `db:"user_id" json:"user_id"`
	Date              time.Time     `db:"date" json:"date"`
	Type              ExceptionType `db:"type" json:"type"`
	StartTime         *string       `db:"start_time" json:"start_time,omitempty"`
	EndTime           *string       `db:"end_time" json:"end_time,omitempty"`
	AppointmentTypeID *uuid.UUID    `db:"appointment_type_id" json:"appointment_type_id,omitempty"`
	Reason            string        `db:"reason" json:"reason,omitempty"`
}

// BlockedDateRange is an inclusive multi-day blackout, e.g. vacation.
type BlockedDateRange struct {
	Base
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
}

// Contains reports whether the range covers the given date (inclusive on
// both ends, date precision).
func (b *BlockedDateRange) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(b.StartDate.Truncate(24*time.Hour)) && !d.After(b.EndDate.Truncate(24*time.Hour))
}

// Slot is one bookable start time. Start/End are UTC instants; the Local
// fields repeat them in the timezone the customer asked for, display only.
type Slot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	LocalStart string    `json:"local_start,omitempty"`
	LocalEnd   string    `json:"local_end,omitempty"`
}

// WeeklyRule is one window in a "replace the week" save.
type WeeklyRule struct {
	Weekday     time.Weekday `json:"weekday" binding:"min=0,max=6"`
	StartTime   string       `json:"start_time" binding:"required,hhmm"`
	EndTime     string       `json:"end_time" binding:"required,hhmm"`
	IsAvailable bool         `json:"is_available"`
}

// ReplaceWeekRequest swaps the user's entire weekly pattern in one save.
type ReplaceWeekRequest struct {
	Rules []WeeklyRule `json:"rules" binding:"dive"`
}

type CreateExceptionRequest struct {
	Date              string        `json:"date" binding:"required,datetime=2006-01-02"`
	Type              ExceptionType `json:"type" binding:"required,oneof=unavailable custom_hours special_availability"`
	StartTime         *string       `json:"start_time" binding:"omitempty,hhmm"`
	EndTime           *string       `json:"end_time" binding:"omitempty,hhmm"`
	AppointmentTypeID *uuid.UUID    `json:"appointment_type_id"`
	Reason            string        `json:"reason" binding:"max=500"`
}

type CreateBlockedRangeRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" binding:"max=500"`
}
