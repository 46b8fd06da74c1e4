package email

import (
	"fmt"
	"time"

	"github.com/slotwise/booking-api/internal/model"
)

// Display format for booking times, rendered in the customer's timezone when
// one was captured at booking time.
const timeFormat = "Monday, January 2 2006 at 15:04 (MST)"

func localize(t time.Time, tz string) string {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return t.In(loc).Format(timeFormat)
		}
	}
	return t.UTC().Format(timeFormat)
}

// LoginCode renders the one-time login code email.
func LoginCode(code string, validFor time.Duration) (subject, body string) {
	subject = "Your login code"
	body = fmt.Sprintf(
		"<p>Your login code is:</p><h2>%s</h2><p>It expires in %d minutes. If you didn't request it, ignore this email.</p>",
		code, int(validFor.Minutes()))
	return subject, body
}

// BookingConfirmed renders the confirmation email for a new booking.
func BookingConfirmed(p *model.BookingEventPayload) (subject, body string) {
	subject = fmt.Sprintf("Booking confirmed: %s", p.AppointmentType)
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your <b>%s</b> is confirmed for <b>%s</b>.</p>",
		p.CustomerName, p.AppointmentType, localize(p.StartTime, p.CustomerTimezone))
	return subject, body
}

// BookingCancelled renders the cancellation email.
func BookingCancelled(p *model.BookingEventPayload) (subject, body string) {
	subject = "Your booking was cancelled"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your booking for <b>%s</b> has been cancelled.</p>",
		p.CustomerName, localize(p.StartTime, p.CustomerTimezone))
	if p.CancelReason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", p.CancelReason)
	}
	return subject, body
}

// BookingReminder renders the upcoming-booking reminder.
func BookingReminder(p *model.BookingEventPayload) (subject, body string) {
	subject = "Reminder: upcoming booking"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>This is a reminder of your booking on <b>%s</b>.</p>",
		p.CustomerName, localize(p.StartTime, p.CustomerTimezone))
	return subject, body
}
