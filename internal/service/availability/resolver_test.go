package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
)

// 2026-09-07 is a Monday.
var testMonday = struct {
	year  int
	month time.Month
	day   int
}{2026, time.September, 7}

// mondayUTC is testMonday as the date-column value the repository scans.
var mondayUTC = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

func baseInput(t *testing.T, tz string) dayInput {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	return dayInput{
		year:              testMonday.year,
		month:             testMonday.month,
		day:               testMonday.day,
		location:          loc,
		appointmentTypeID: uuid.New(),
		duration:          30 * time.Minute,
		now:               time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func weeklyRule(weekday time.Weekday, start, end string) *model.WeeklyAvailability {
	w := &model.WeeklyAvailability{
		Weekday:     weekday,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
	w.ID = uuid.New()
	return w
}

func confirmedBooking(start time.Time, durationMins, bufBefore, bufAfter int) *model.Booking {
	b := &model.Booking{
		StartTime:        start,
		DurationMinutes:  durationMins,
		BufferBeforeMins: bufBefore,
		BufferAfterMins:  bufAfter,
		Status:           model.BookingStatusConfirmed,
	}
	b.ID = uuid.New()
	return b
}

func TestResolveDayWeeklyPattern(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}

	slots, warnings, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, slots, 16)
	assert.Equal(t, time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.September, 7, 16, 30, 0, 0, time.UTC), slots[15].Start)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].Start.After(slots[i-1].Start), "slots must be strictly ascending")
	}
	for _, s := range slots {
		assert.Equal(t, s.Start.Add(30*time.Minute), s.End)
	}
}

func TestResolveDayIsDeterministic(t *testing.T) {
	in := baseInput(t, "America/New_York")
	in.weekly = []*model.WeeklyAvailability{
		weeklyRule(time.Monday, "09:00", "12:00"),
		weeklyRule(time.Monday, "13:00", "17:00"),
	}
	in.bookings = []*model.Booking{
		confirmedBooking(time.Date(2026, time.September, 7, 14, 0, 0, 0, time.UTC), 30, 0, 10),
	}

	first, _, err := resolveDay(in)
	require.NoError(t, err)
	second, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveDayTimezoneConversion(t *testing.T) {
	in := baseInput(t, "America/New_York")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "10:00")}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	// September in New York is EDT, UTC-4.
	assert.Equal(t, time.Date(2026, time.September, 7, 13, 0, 0, 0, time.UTC), slots[0].Start)
}

func TestResolveDayDSTSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	in := baseInput(t, "Europe/Berlin")
	// Last Sunday of March 2026: clocks jump 02:00 -> 03:00 local.
	in.year, in.month, in.day = 2026, time.March, 29
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Sunday, "01:00", "05:00")}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	// The local window is only three real hours long.
	require.Len(t, slots, 6)
	assert.Equal(t, time.Date(2026, time.March, 29, 1, 0, 0, 0, loc).UTC(), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.March, 29, 0, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.March, 29, 2, 30, 0, 0, time.UTC), slots[5].Start)
}

func TestResolveDayUnavailableExceptionClosesDate(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.exceptions = []*model.AvailabilityException{
		{Date: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC), Type: model.ExceptionUnavailable},
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveDayCustomHoursReplaceWeekly(t *testing.T) {
	start, end := "14:00", "16:00"
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.exceptions = []*model.AvailabilityException{
		{Date: mondayUTC, Type: model.ExceptionCustomHours, StartTime: &start, EndTime: &end},
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, time.Date(2026, time.September, 7, 14, 0, 0, 0, time.UTC), slots[0].Start)
}

func TestResolveDayCustomHoursOverrideBlockedRange(t *testing.T) {
	start, end := "10:00", "11:00"
	in := baseInput(t, "UTC")
	in.blocked = []*model.BlockedDateRange{{
		StartDate: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
	}}
	in.exceptions = []*model.AvailabilityException{
		{Date: mondayUTC, Type: model.ExceptionSpecialAvailability, StartTime: &start, EndTime: &end},
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestResolveDayBlockedRangeClosesDate(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.blocked = []*model.BlockedDateRange{{
		StartDate: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
	}}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveDayBookingsWithBuffers(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "12:00")}
	// 10:00-10:30 plus a 10 minute trailing buffer blocks [10:00, 10:40).
	in.bookings = []*model.Booking{
		confirmedBooking(time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), 30, 0, 10),
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	starts := slotStarts(slots)
	assert.NotContains(t, starts, "10:00")
	assert.NotContains(t, starts, "10:30")
	assert.Equal(t, []string{"09:00", "09:30", "11:00", "11:30"}, starts)
}

func TestResolveDayBackToBackWithoutBuffers(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "12:00")}
	in.bookings = []*model.Booking{
		confirmedBooking(time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), 30, 0, 0),
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	// Half-open intervals: a booking ending at 10:30 does not block the
	// slot starting at 10:30.
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, slotStarts(slots))
}

func TestResolveDayCancelledBookingsDoNotBlock(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "10:00", "11:00")}
	cancelled := confirmedBooking(time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), 30, 0, 0)
	cancelled.Status = model.BookingStatusCancelled
	in.bookings = []*model.Booking{cancelled}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestResolveDayPastSlotsFiltered(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.now = time.Date(2026, time.September, 7, 12, 15, 0, 0, time.UTC)

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, time.Date(2026, time.September, 7, 12, 30, 0, 0, time.UTC), slots[0].Start)
}

func TestResolveDaySlotStartingNowIsOffered(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.now = time.Date(2026, time.September, 7, 12, 30, 0, 0, time.UTC)

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, in.now, slots[0].Start, "a slot starting exactly now is not in the past")
}

func TestResolveDayIgnoresRowsForOtherDates(t *testing.T) {
	start, end := "14:00", "15:00"
	tuesdayUTC := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "17:00")}
	in.exceptions = []*model.AvailabilityException{
		{Date: tuesdayUTC, Type: model.ExceptionUnavailable},
		{Date: tuesdayUTC, Type: model.ExceptionCustomHours, StartTime: &start, EndTime: &end},
	}

	slots, warnings, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, slots, 16, "Tuesday's exceptions must not close or rewrite Monday")
}

func TestResolveDayCompletedBookingStillBlocks(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "11:00")}
	completed := confirmedBooking(time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), 30, 0, 0)
	completed.Status = model.BookingStatusCompleted
	in.bookings = []*model.Booking{completed}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30"}, slotStarts(slots))
}

func TestResolveDayNoWeeklyRows(t *testing.T) {
	in := baseInput(t, "UTC")

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, slots, "days without rules are closed by default")

	in.defaultOpen = true
	slots, _, err = resolveDay(in)
	require.NoError(t, err)
	assert.Len(t, slots, 48, "default-open days offer the full day")
}

func TestResolveDayWeekdayMarkedUnavailable(t *testing.T) {
	in := baseInput(t, "UTC")
	in.defaultOpen = true
	off := weeklyRule(time.Monday, "09:00", "17:00")
	off.IsAvailable = false
	in.weekly = []*model.WeeklyAvailability{off}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, slots, "an explicit unavailable row beats default-open")
}

func TestResolveDayMalformedRowsSkipped(t *testing.T) {
	badStart, badEnd := "25:00", "26:00"
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{
		weeklyRule(time.Monday, "09:00", "10:00"),
		weeklyRule(time.Monday, "not-a-time", "17:00"),
	}
	in.exceptions = []*model.AvailabilityException{
		{Date: mondayUTC, Type: model.ExceptionCustomHours, StartTime: &badStart, EndTime: &badEnd},
		{Date: mondayUTC, Type: model.ExceptionCustomHours},
	}

	slots, warnings, err := resolveDay(in)
	require.NoError(t, err)
	// Malformed overrides fall out of the chain; the good weekly row wins.
	assert.Len(t, slots, 2)
	assert.Len(t, warnings, 3)
}

func TestResolveDayTypeScopedException(t *testing.T) {
	otherType := uuid.New()
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "10:00")}
	in.exceptions = []*model.AvailabilityException{
		{Date: mondayUTC, Type: model.ExceptionUnavailable, AppointmentTypeID: &otherType},
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	assert.Len(t, slots, 2, "exceptions scoped to another type are ignored")

	in.exceptions[0].AppointmentTypeID = &in.appointmentTypeID
	slots, _, err = resolveDay(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveDaySplitShiftsMerge(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{
		weeklyRule(time.Monday, "09:00", "11:00"),
		weeklyRule(time.Monday, "10:00", "12:00"),
	}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	// Overlapping shifts coalesce into 09:00-12:00.
	assert.Len(t, slots, 6)
}

func TestResolveDayShortTailNotOffered(t *testing.T) {
	in := baseInput(t, "UTC")
	in.weekly = []*model.WeeklyAvailability{weeklyRule(time.Monday, "09:00", "10:45")}

	slots, _, err := resolveDay(in)
	require.NoError(t, err)
	// 10:30 would run past the window end.
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slotStarts(slots))
}

func TestResolveDayRejectsNonPositiveDuration(t *testing.T) {
	in := baseInput(t, "UTC")
	in.duration = 0
	_, _, err := resolveDay(in)
	assert.Error(t, err)
}

func TestParseHHMM(t *testing.T) {
	for _, tc := range []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "00:00"},
		{in: "09:30", hour: 9, minute: 30},
		{in: "23:59", hour: 23, minute: 59},
		{in: "24:00", hour: 24},
		{in: "24:01", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	} {
		h, m, err := parseHHMM(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.hour, h, tc.in)
		assert.Equal(t, tc.minute, m, tc.in)
	}
}

func slotStarts(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.UTC().Format("15:04"))
	}
	return out
}
