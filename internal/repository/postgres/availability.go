package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotwise/booking-api/internal/model"
)

// ReplaceWeek deletes the user's entire weekly pattern and inserts the new
// rows in one transaction, per the "replace the week" save semantics.
func (r *availabilityRepository) ReplaceWeek(ctx context.Context, userID uuid.UUID, rules []*model.WeeklyAvailability) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM weekly_availability WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear weekly availability: %w", err)
		}

		query := `
			INSERT INTO weekly_availability (
				id, user_id, weekday, start_time, end_time, is_available,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		now := time.Now()
		for _, rule := range rules {
			rule.ID = uuid.New()
			rule.UserID = userID
			rule.CreatedAt = now
			rule.UpdatedAt = now

			if _, err := tx.ExecContext(ctx, query,
				rule.ID,
				rule.UserID,
				rule.Weekday,
				rule.StartTime,
				rule.EndTime,
				rule.IsAvailable,
				rule.CreatedAt,
				rule.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert weekly rule: %w", err)
			}
		}
		return nil
	})
}

func (r *availabilityRepository) ListWeekly(ctx context.Context, userID uuid.UUID) ([]*model.WeeklyAvailability, error) {
	query := `
		SELECT id, user_id, weekday, start_time, end_time, is_available,
			   created_at, updated_at, deleted_at
		FROM weekly_availability
		WHERE user_id = $1
		ORDER BY weekday ASC, start_time ASC
	`
	var rules []*model.WeeklyAvailability
	err := r.db.SelectContext(ctx, &rules, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly availability: %w", err)
	}
	return rules, nil
}

func (r *availabilityRepository) CreateException(ctx context.Context, exc *model.AvailabilityException) error {
	query := `
		INSERT INTO availability_exceptions (
			id, user_id, date, type, start_time, end_time,
			appointment_type_id, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	exc.ID = uuid.New()
	exc.CreatedAt = time.Now()
	exc.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		exc.ID,
		exc.UserID,
		exc.Date,
		exc.Type,
		exc.StartTime,
		exc.EndTime,
		exc.AppointmentTypeID,
		exc.Reason,
		exc.CreatedAt,
		exc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability exception: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteException(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		DELETE FROM availability_exceptions
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete availability exception: %w", err)
	}
	return checkAffected(result)
}

// ListExceptions returns the exceptions dated in [from, to). The bounds are
// cast to date so a local-midnight instant west of UTC is not promoted to a
// timestamptz that lands before the day it names.
func (r *availabilityRepository) ListExceptions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	query := `
		SELECT id, user_id, date, type, start_time, end_time,
			   appointment_type_id, reason, created_at, updated_at, deleted_at
		FROM availability_exceptions
		WHERE user_id = $1 AND date >= $2::date AND date < $3::date
		ORDER BY date ASC
	`
	var exceptions []*model.AvailabilityException
	err := r.db.SelectContext(ctx, &exceptions, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *availabilityRepository) CreateBlockedRange(ctx context.Context, blocked *model.BlockedDateRange) error {
	query := `
		INSERT INTO blocked_date_ranges (
			id, user_id, start_date, end_date, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	blocked.ID = uuid.New()
	blocked.CreatedAt = time.Now()
	blocked.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		blocked.ID,
		blocked.UserID,
		blocked.StartDate,
		blocked.EndDate,
		blocked.Reason,
		blocked.CreatedAt,
		blocked.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create blocked date range: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteBlockedRange(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		DELETE FROM blocked_date_ranges
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete blocked date range: %w", err)
	}
	return checkAffected(result)
}

// ListBlockedRanges returns the ranges intersecting [from, to), with the
// same date casts as ListExceptions.
func (r *availabilityRepository) ListBlockedRanges(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.BlockedDateRange, error) {
	query := `
		SELECT id, user_id, start_date, end_date, reason,
			   created_at, updated_at, deleted_at
		FROM blocked_date_ranges
		WHERE user_id = $1 AND start_date < $2::date AND end_date >= $3::date
		ORDER BY start_date ASC
	`
	var ranges []*model.BlockedDateRange
	err := r.db.SelectContext(ctx, &ranges, query, userID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked date ranges: %w", err)
	}
	return ranges, nil
}
