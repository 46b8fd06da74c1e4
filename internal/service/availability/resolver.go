package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
)

// interval is half-open [start, end) in UTC.
type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) overlaps(other interval) bool {
	return iv.start.Before(other.end) && other.start.Before(iv.end)
}

// dayInput is everything slot resolution needs for a single calendar date.
// The date's year/month/day are interpreted in Location (the organization's
// timezone); all output instants are UTC.
type dayInput struct {
	year  int
	month time.Month
	day   int

	location    *time.Location
	defaultOpen bool

	weekly     []*model.WeeklyAvailability
	exceptions []*model.AvailabilityException
	blocked    []*model.BlockedDateRange
	bookings   []*model.Booking

	appointmentTypeID uuid.UUID
	duration          time.Duration

	now time.Time
}

// resolveDay computes the bookable start times for one date. Precedence, most
// specific first: custom-hours/special-availability exceptions replace the
// day outright, then blocked date ranges and unavailable exceptions close it,
// then the weekly pattern applies. A date with no weekly rows is closed
// unless the organization opted into default-open.
//
// Malformed stored windows are skipped, not fatal: a bad row falls out of the
// precedence chain and the rest of the day still resolves. The returned
// warnings describe every row that was skipped so the caller can log them.
func resolveDay(in dayInput) (slots []model.Slot, warnings []string, err error) {
	if in.duration <= 0 {
		return nil, nil, fmt.Errorf("non-positive slot duration %v", in.duration)
	}
	windows, warnings := openWindows(in)

	// Everything short of cancelled blocks, matching the overlap check the
	// booking insert runs: a booking marked completed early must not free a
	// slot here that the insert would then reject.
	busy := make([]interval, 0, len(in.bookings))
	for _, b := range in.bookings {
		if b.Status == model.BookingStatusCancelled {
			continue
		}
		start, end := b.BlocksInterval()
		busy = append(busy, interval{start: start.UTC(), end: end.UTC()})
	}

	for _, w := range windows {
		for t := w.start; !t.Add(in.duration).After(w.end); t = t.Add(in.duration) {
			cand := interval{start: t, end: t.Add(in.duration)}
			// Only starts strictly in the past are dropped; a slot
			// starting exactly now is still offered.
			if cand.start.Before(in.now) {
				continue
			}
			if overlapsAny(cand, busy) {
				continue
			}
			slots = append(slots, model.Slot{Start: cand.start, End: cand.end})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, warnings, nil
}

func overlapsAny(cand interval, busy []interval) bool {
	for _, b := range busy {
		if cand.overlaps(b) {
			return true
		}
	}
	return false
}

// openWindows applies the precedence rules and returns the date's open
// windows as merged UTC intervals, plus a warning per malformed row skipped.
func openWindows(in dayInput) ([]interval, []string) {
	var warnings []string
	scoped := scopedExceptions(in)

	// Custom hours and special availability replace everything else for
	// the date, including blocked ranges.
	var custom []interval
	for _, ex := range scoped {
		if ex.Type != model.ExceptionCustomHours && ex.Type != model.ExceptionSpecialAvailability {
			continue
		}
		if ex.StartTime == nil || ex.EndTime == nil {
			warnings = append(warnings, fmt.Sprintf("exception %s: %s without hours, ignored", ex.ID, ex.Type))
			continue
		}
		iv, err := localWindow(in, *ex.StartTime, *ex.EndTime)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("exception %s: %v, ignored", ex.ID, err))
			continue
		}
		custom = append(custom, iv)
	}
	if len(custom) > 0 {
		return mergeIntervals(custom), warnings
	}

	date := time.Date(in.year, in.month, in.day, 0, 0, 0, 0, time.UTC)
	for _, br := range in.blocked {
		if br.Contains(date) {
			return nil, warnings
		}
	}
	for _, ex := range scoped {
		if ex.Type == model.ExceptionUnavailable {
			return nil, warnings
		}
	}

	weekday := time.Date(in.year, in.month, in.day, 12, 0, 0, 0, in.location).Weekday()
	var open []interval
	matched := false
	for _, wa := range in.weekly {
		if wa.Weekday != weekday {
			continue
		}
		matched = true
		if !wa.IsAvailable {
			continue
		}
		iv, err := localWindow(in, wa.StartTime, wa.EndTime)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("weekly rule %s: %v, ignored", wa.ID, err))
			continue
		}
		open = append(open, iv)
	}
	if !matched && in.defaultOpen {
		start := time.Date(in.year, in.month, in.day, 0, 0, 0, 0, in.location)
		end := time.Date(in.year, in.month, in.day+1, 0, 0, 0, 0, in.location)
		open = append(open, interval{start: start.UTC(), end: end.UTC()})
	}
	return mergeIntervals(open), warnings
}

// scopedExceptions keeps the exceptions for this exact date and appointment
// type. The repository window can be wider than one day, so a row dated D+1
// must not close or rewrite D. An exception with no appointment type applies
// to all of them.
func scopedExceptions(in dayInput) []*model.AvailabilityException {
	out := make([]*model.AvailabilityException, 0, len(in.exceptions))
	for _, ex := range in.exceptions {
		y, m, d := ex.Date.Date()
		if y != in.year || m != in.month || d != in.day {
			continue
		}
		if ex.AppointmentTypeID != nil && *ex.AppointmentTypeID != in.appointmentTypeID {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// localWindow converts an "HH:MM"–"HH:MM" window on the input date from the
// organization's local time to a UTC interval. time.Date normalizes hour 24
// and DST gaps, so "24:00" ends at the next local midnight and windows
// spanning a spring-forward transition stay well ordered.
func localWindow(in dayInput, startHHMM, endHHMM string) (interval, error) {
	sh, sm, err := parseHHMM(startHHMM)
	if err != nil {
		return interval{}, err
	}
	eh, em, err := parseHHMM(endHHMM)
	if err != nil {
		return interval{}, err
	}
	start := time.Date(in.year, in.month, in.day, sh, sm, 0, 0, in.location)
	end := time.Date(in.year, in.month, in.day, eh, em, 0, 0, in.location)
	if !end.After(start) {
		return interval{}, fmt.Errorf("window %s-%s is empty or inverted", startHHMM, endHHMM)
	}
	return interval{start: start.UTC(), end: end.UTC()}, nil
}

// parseHHMM accepts "HH:MM", with "24:00" allowed as an end-of-day marker.
func parseHHMM(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("malformed time %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("malformed time %q", s)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, 0, fmt.Errorf("time %q out of range", s)
	}
	return hour, minute, nil
}

// mergeIntervals sorts and coalesces overlapping or touching intervals.
func mergeIntervals(ivs []interval) []interval {
	if len(ivs) < 2 {
		return ivs
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })
	out := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
