package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

const (
	// How far the blocking-booking query reaches past the requested date,
	// to catch bookings on adjacent days whose buffers spill over.
	bookingFetchMargin = 24 * time.Hour

	lookupCacheTTL = time.Minute
)

// Service resolves bookable slots and manages the schedule data feeding that
// resolution: weekly patterns, date exceptions and blocked ranges.
type Service struct {
	orgRepo          repository.OrganizationRepository
	userRepo         repository.UserRepository
	typeRepo         repository.AppointmentTypeRepository
	availabilityRepo repository.AvailabilityRepository
	bookingRepo      repository.BookingRepository
	lookupCache      *cache.Cache
	metrics          *metrics.Metrics
	logger           *logger.Logger
	now              func() time.Time
}

func NewService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	typeRepo repository.AppointmentTypeRepository,
	availabilityRepo repository.AvailabilityRepository,
	bookingRepo repository.BookingRepository,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		orgRepo:          orgRepo,
		userRepo:         userRepo,
		typeRepo:         typeRepo,
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
		lookupCache:      cache.New(lookupCacheTTL, 5*time.Minute),
		metrics:          m,
		logger:           log,
		now:              time.Now,
	}
}

// SlotQuery identifies one slot-resolution request.
type SlotQuery struct {
	OrganizationID    uuid.UUID
	UserID            uuid.UUID
	AppointmentTypeID uuid.UUID
	Date              string // "2006-01-02", in the organization's timezone
	CustomerTimezone  string // display only, optional
}

// GetSlots resolves the bookable start times for one staff member, one
// appointment type and one date. Slots are returned in ascending UTC order;
// the customer timezone only affects the display fields.
func (s *Service) GetSlots(ctx context.Context, q SlotQuery) ([]model.Slot, error) {
	started := s.now()

	org, err := s.getOrganization(ctx, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.Get(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if user.OrganizationID != org.ID {
		return nil, apperrors.NotFound("user", nil)
	}
	apptType, err := s.getAppointmentType(ctx, q.AppointmentTypeID)
	if err != nil {
		return nil, err
	}
	if apptType.OrganizationID != org.ID || !apptType.Active {
		return nil, apperrors.NotFound("appointment type", nil)
	}

	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("organization %s timezone %q: %w", org.ID, org.Timezone, err))
	}
	date, err := time.ParseInLocation("2006-01-02", q.Date, loc)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date, expected YYYY-MM-DD", err)
	}

	in, err := s.loadDayInput(ctx, org, user.ID, apptType, date, loc)
	if err != nil {
		return nil, err
	}

	slots, warnings, err := resolveDay(in)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, w := range warnings {
		s.logger.Warn("skipped malformed availability row", "user_id", user.ID.String(), "detail", w)
	}

	if q.CustomerTimezone != "" {
		if custLoc, err := time.LoadLocation(q.CustomerTimezone); err == nil {
			for i := range slots {
				slots[i].LocalStart = slots[i].Start.In(custLoc).Format(time.RFC3339)
				slots[i].LocalEnd = slots[i].End.In(custLoc).Format(time.RFC3339)
			}
		}
	}

	s.metrics.SlotsComputed.Inc()
	s.metrics.SlotResolutionTime.Observe(s.now().Sub(started).Seconds())
	return slots, nil
}

// IsSlotAvailable re-runs resolution for the slot's date and reports whether
// the given start time is still one of the offered slots. Booking creation
// calls this before the transactional insert.
func (s *Service) IsSlotAvailable(ctx context.Context, orgID, userID, typeID uuid.UUID, start time.Time) (bool, error) {
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return false, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		return false, apperrors.Internal(fmt.Errorf("organization %s timezone %q: %w", org.ID, org.Timezone, err))
	}
	slots, err := s.GetSlots(ctx, SlotQuery{
		OrganizationID:    orgID,
		UserID:            userID,
		AppointmentTypeID: typeID,
		Date:              start.In(loc).Format("2006-01-02"),
	})
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.Start.Equal(start.UTC()) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) loadDayInput(ctx context.Context, org *model.Organization, userID uuid.UUID, apptType *model.AppointmentType, date time.Time, loc *time.Location) (dayInput, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)

	weekly, err := s.availabilityRepo.ListWeekly(ctx, userID)
	if err != nil {
		return dayInput{}, apperrors.Internal(err)
	}
	exceptions, err := s.availabilityRepo.ListExceptions(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return dayInput{}, apperrors.Internal(err)
	}
	blocked, err := s.availabilityRepo.ListBlockedRanges(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return dayInput{}, apperrors.Internal(err)
	}
	bookings, err := s.bookingRepo.ListBlocking(ctx, userID,
		dayStart.UTC().Add(-bookingFetchMargin), dayEnd.UTC().Add(bookingFetchMargin))
	if err != nil {
		return dayInput{}, apperrors.Internal(err)
	}

	return dayInput{
		year:              date.Year(),
		month:             date.Month(),
		day:               date.Day(),
		location:          loc,
		defaultOpen:       org.DefaultOpen,
		weekly:            weekly,
		exceptions:        exceptions,
		blocked:           blocked,
		bookings:          bookings,
		appointmentTypeID: apptType.ID,
		duration:          apptType.Duration(),
		now:               s.now(),
	}, nil
}

// ReplaceWeek swaps the user's whole weekly pattern in one save.
func (s *Service) ReplaceWeek(ctx context.Context, userID uuid.UUID, req *model.ReplaceWeekRequest) ([]*model.WeeklyAvailability, error) {
	rules := make([]*model.WeeklyAvailability, 0, len(req.Rules))
	for _, r := range req.Rules {
		if err := validateWindow(r.StartTime, r.EndTime); err != nil {
			return nil, apperrors.BadRequest(err.Error(), nil)
		}
		rules = append(rules, &model.WeeklyAvailability{
			UserID:      userID,
			Weekday:     r.Weekday,
			StartTime:   r.StartTime,
			EndTime:     r.EndTime,
			IsAvailable: r.IsAvailable,
		})
	}
	if err := s.availabilityRepo.ReplaceWeek(ctx, userID, rules); err != nil {
		return nil, apperrors.Internal(err)
	}
	return rules, nil
}

func (s *Service) ListWeekly(ctx context.Context, userID uuid.UUID) ([]*model.WeeklyAvailability, error) {
	rules, err := s.availabilityRepo.ListWeekly(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rules, nil
}

func (s *Service) CreateException(ctx context.Context, userID uuid.UUID, req *model.CreateExceptionRequest) (*model.AvailabilityException, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date, expected YYYY-MM-DD", err)
	}
	switch req.Type {
	case model.ExceptionUnavailable:
		if req.StartTime != nil || req.EndTime != nil {
			return nil, apperrors.BadRequest("unavailable exceptions do not take hours", nil)
		}
	case model.ExceptionCustomHours, model.ExceptionSpecialAvailability:
		if req.StartTime == nil || req.EndTime == nil {
			return nil, apperrors.BadRequest(fmt.Sprintf("%s exceptions require start_time and end_time", req.Type), nil)
		}
		if err := validateWindow(*req.StartTime, *req.EndTime); err != nil {
			return nil, apperrors.BadRequest(err.Error(), nil)
		}
	}
	exc := &model.AvailabilityException{
		UserID:            userID,
		Date:              date,
		Type:              req.Type,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		AppointmentTypeID: req.AppointmentTypeID,
		Reason:            req.Reason,
	}
	if err := s.availabilityRepo.CreateException(ctx, exc); err != nil {
		return nil, apperrors.Internal(err)
	}
	return exc, nil
}

func (s *Service) DeleteException(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.availabilityRepo.DeleteException(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("exception", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	excs, err := s.availabilityRepo.ListExceptions(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return excs, nil
}

func (s *Service) CreateBlockedRange(ctx context.Context, userID uuid.UUID, req *model.CreateBlockedRangeRequest) (*model.BlockedDateRange, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start_date, expected YYYY-MM-DD", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid end_date, expected YYYY-MM-DD", err)
	}
	if end.Before(start) {
		return nil, apperrors.BadRequest("end_date precedes start_date", nil)
	}
	blocked := &model.BlockedDateRange{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	}
	if err := s.availabilityRepo.CreateBlockedRange(ctx, blocked); err != nil {
		return nil, apperrors.Internal(err)
	}
	return blocked, nil
}

func (s *Service) DeleteBlockedRange(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.availabilityRepo.DeleteBlockedRange(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("blocked range", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) ListBlockedRanges(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.BlockedDateRange, error) {
	ranges, err := s.availabilityRepo.ListBlockedRanges(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return ranges, nil
}

func (s *Service) getOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	key := "org:" + id.String()
	if v, ok := s.lookupCache.Get(key); ok {
		return v.(*model.Organization), nil
	}
	org, err := s.orgRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, apperrors.Internal(err)
	}
	s.lookupCache.SetDefault(key, org)
	return org, nil
}

func (s *Service) getAppointmentType(ctx context.Context, id uuid.UUID) (*model.AppointmentType, error) {
	key := "type:" + id.String()
	if v, ok := s.lookupCache.Get(key); ok {
		return v.(*model.AppointmentType), nil
	}
	at, err := s.typeRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment type", err)
		}
		return nil, apperrors.Internal(err)
	}
	s.lookupCache.SetDefault(key, at)
	return at, nil
}

func validateWindow(start, end string) error {
	sh, sm, err := parseHHMM(start)
	if err != nil {
		return err
	}
	eh, em, err := parseHHMM(end)
	if err != nil {
		return err
	}
	if eh*60+em <= sh*60+sm {
		return fmt.Errorf("window %s-%s is empty or inverted", start, end)
	}
	return nil
}
