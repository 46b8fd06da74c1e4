package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
)

const bookingColumns = `
	id, organization_id, user_id, appointment_type_id,
	customer_name, customer_email, customer_phone, customer_timezone,
	start_time, duration_minutes, buffer_before_mins, buffer_after_mins,
	status, notes, cancel_reason, calendar_event_id,
	created_at, updated_at, deleted_at
`

// CreateConfirmed inserts the booking after re-checking for overlap inside
// the same transaction. The advisory lock on the user id serializes
// concurrent inserts for the same calendar, closing the read-then-write
// race left by slot resolution.
func (r *bookingRepository) CreateConfirmed(ctx context.Context, booking *model.Booking) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1::text))`, booking.UserID); err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		blockStart, blockEnd := booking.BlocksInterval()
		var conflict bool
		err := tx.GetContext(ctx, &conflict, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE user_id = $1
				AND status NOT IN ('cancelled')
				AND deleted_at IS NULL
				AND start_time - (buffer_before_mins * interval '1 minute') < $3
				AND start_time + ((duration_minutes + buffer_after_mins) * interval '1 minute') > $2
			)
		`, booking.UserID, blockStart, blockEnd)
		if err != nil {
			return fmt.Errorf("failed to check booking conflicts: %w", err)
		}
		if conflict {
			return repository.ErrSlotTaken
		}

		booking.ID = uuid.New()
		booking.CreatedAt = time.Now()
		booking.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, organization_id, user_id, appointment_type_id,
				customer_name, customer_email, customer_phone, customer_timezone,
				start_time, duration_minutes, buffer_before_mins, buffer_after_mins,
				status, notes, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			booking.ID,
			booking.OrganizationID,
			booking.UserID,
			booking.AppointmentTypeID,
			booking.CustomerName,
			booking.CustomerEmail,
			booking.CustomerPhone,
			booking.CustomerTimezone,
			booking.StartTime,
			booking.DurationMinutes,
			booking.BufferBeforeMins,
			booking.BufferAfterMins,
			booking.Status,
			booking.Notes,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND deleted_at IS NULL`

	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET start_time = $1, status = $2, notes = $3, cancel_reason = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`
	booking.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		booking.StartTime,
		booking.Status,
		booking.Notes,
		booking.CancelReason,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return checkAffected(result)
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE organization_id = $1 AND deleted_at IS NULL`
	args := []interface{}{filters.OrganizationID}
	argCount := 2

	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, filters.UserID)
		argCount++
	}

	if filters.AppointmentTypeID != uuid.Nil {
		query += fmt.Sprintf(" AND appointment_type_id = $%d", argCount)
		args = append(args, filters.AppointmentTypeID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY start_time ASC"

	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListBlocking returns non-cancelled bookings whose buffered interval
// intersects [from, to). The buffer expansion happens in SQL so a booking
// that starts outside the window but pads into it is still returned.
func (r *bookingRepository) ListBlocking(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		AND status NOT IN ('cancelled')
		AND deleted_at IS NULL
		AND start_time - (buffer_before_mins * interval '1 minute') < $3
		AND start_time + ((duration_minutes + buffer_after_mins) * interval '1 minute') > $2
		ORDER BY start_time ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocking bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID *string) error {
	query := `
		UPDATE bookings
		SET calendar_event_id = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, eventID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set calendar event id: %w", err)
	}
	return checkAffected(result)
}

func (r *bookingRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed'
		AND deleted_at IS NULL
		AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bookings: %w", err)
	}
	return bookings, nil
}
