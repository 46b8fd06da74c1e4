package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
)

// Sentinel errors shared by all implementations. Services translate these
// into API errors; everything else is an infrastructure failure.
var (
	ErrNotFound               = errors.New("not found")
	ErrSlotTaken              = errors.New("slot already taken")
	ErrDuplicateProviderEvent = errors.New("duplicate provider event")
)

// All repository interfaces in one file
type (
	OrganizationRepository interface {
		Create(ctx context.Context, org *model.Organization) error
		Get(ctx context.Context, id uuid.UUID) (*model.Organization, error)
		GetBySlug(ctx context.Context, slug string) (*model.Organization, error)
		Update(ctx context.Context, org *model.Organization) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.OrganizationFilters) ([]*model.Organization, error)
		UpdatePlanTier(ctx context.Context, id uuid.UUID, tier model.PlanTier) error
		SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
		TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	AppointmentTypeRepository interface {
		Create(ctx context.Context, at *model.AppointmentType) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentType, error)
		Update(ctx context.Context, at *model.AppointmentType) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]*model.AppointmentType, error)
	}

	// AvailabilityRepository persists the three inputs of slot resolution:
	// weekly pattern, date exceptions and blocked ranges.
	AvailabilityRepository interface {
		ReplaceWeek(ctx context.Context, userID uuid.UUID, rules []*model.WeeklyAvailability) error
		ListWeekly(ctx context.Context, userID uuid.UUID) ([]*model.WeeklyAvailability, error)
		CreateException(ctx context.Context, exc *model.AvailabilityException) error
		DeleteException(ctx context.Context, userID, id uuid.UUID) error
		ListExceptions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error)
		CreateBlockedRange(ctx context.Context, blocked *model.BlockedDateRange) error
		DeleteBlockedRange(ctx context.Context, userID, id uuid.UUID) error
		ListBlockedRanges(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.BlockedDateRange, error)
	}

	BookingRepository interface {
		// CreateConfirmed inserts the booking inside a transaction that
		// re-checks for overlapping confirmed bookings, closing the
		// read-then-write race left by slot resolution. Returns
		// ErrSlotTaken on conflict.
		CreateConfirmed(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		Update(ctx context.Context, booking *model.Booking) error
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		// ListBlocking returns non-cancelled bookings whose buffered
		// interval intersects [from, to).
		ListBlocking(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.Booking, error)
		SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID *string) error
		ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	}

	SubscriptionRepository interface {
		Upsert(ctx context.Context, sub *model.Subscription) error
		GetByOrganization(ctx context.Context, organizationID uuid.UUID) (*model.Subscription, error)
		InsertProviderEvent(ctx context.Context, evt *model.ProviderEvent) error
	}

	CalendarRepository interface {
		Upsert(ctx context.Context, conn *model.CalendarConnection) error
		GetByUser(ctx context.Context, userID uuid.UUID) (*model.CalendarConnection, error)
		Delete(ctx context.Context, userID uuid.UUID) error
		TouchSynced(ctx context.Context, userID uuid.UUID, at time.Time) error
	}

	LoginCodeRepository interface {
		Create(ctx context.Context, code *model.LoginCode) error
		GetActive(ctx context.Context, userID uuid.UUID) (*model.LoginCode, error)
		IncrementAttempts(ctx context.Context, id uuid.UUID) error
		MarkUsed(ctx context.Context, id uuid.UUID) error
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Update(ctx context.Context, notification *model.Notification) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		BeginTx(ctx context.Context) (*sql.Tx, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
