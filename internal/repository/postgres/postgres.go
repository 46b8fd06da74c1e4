package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/slotwise/booking-api/internal/repository"
)

type organizationRepository struct {
	db *sqlx.DB
}

type userRepository struct {
	db *sqlx.DB
}

type appointmentTypeRepository struct {
	db *sqlx.DB
}

type availabilityRepository struct {
	db *sqlx.DB
}

type bookingRepository struct {
	db *sqlx.DB
}

type subscriptionRepository struct {
	db *sqlx.DB
}

type calendarRepository struct {
	db *sqlx.DB
}

type loginCodeRepository struct {
	db *sqlx.DB
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepository(db *sqlx.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewAppointmentTypeRepository(db *sqlx.DB) repository.AppointmentTypeRepository {
	return &appointmentTypeRepository{db: db}
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func NewSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func NewCalendarRepository(db *sqlx.DB) repository.CalendarRepository {
	return &calendarRepository{db: db}
}

func NewLoginCodeRepository(db *sqlx.DB) repository.LoginCodeRepository {
	return &loginCodeRepository{db: db}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}
