package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
)

func (r *appointmentTypeRepository) Create(ctx context.Context, at *model.AppointmentType) error {
	query := `
		INSERT INTO appointment_types (
			id, organization_id, name, description, duration_minutes,
			buffer_before_mins, buffer_after_mins, price_cents, currency,
			color, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	at.ID = uuid.New()
	at.CreatedAt = time.Now()
	at.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		at.ID,
		at.OrganizationID,
		at.Name,
		at.Description,
		at.DurationMinutes,
		at.BufferBeforeMins,
		at.BufferAfterMins,
		at.PriceCents,
		at.Currency,
		at.Color,
		at.Active,
		at.CreatedAt,
		at.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment type: %w", err)
	}
	return nil
}

func (r *appointmentTypeRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentType, error) {
	query := `
		SELECT id, organization_id, name, description, duration_minutes,
			   buffer_before_mins, buffer_after_mins, price_cents, currency,
			   color, active, created_at, updated_at, deleted_at
		FROM appointment_types
		WHERE id = $1 AND deleted_at IS NULL
	`
	var at model.AppointmentType
	err := r.db.GetContext(ctx, &at, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment type: %w", err)
	}
	return &at, nil
}

func (r *appointmentTypeRepository) Update(ctx context.Context, at *model.AppointmentType) error {
	query := `
		UPDATE appointment_types
		SET name = $1, description = $2, duration_minutes = $3,
			buffer_before_mins = $4, buffer_after_mins = $5, price_cents = $6,
			currency = $7, color = $8, active = $9, updated_at = $10
		WHERE id = $11 AND deleted_at IS NULL
	`
	at.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		at.Name,
		at.Description,
		at.DurationMinutes,
		at.BufferBeforeMins,
		at.BufferAfterMins,
		at.PriceCents,
		at.Currency,
		at.Color,
		at.Active,
		at.UpdatedAt,
		at.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment type: %w", err)
	}
	return checkAffected(result)
}

func (r *appointmentTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE appointment_types
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment type: %w", err)
	}
	return checkAffected(result)
}

func (r *appointmentTypeRepository) List(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]*model.AppointmentType, error) {
	query := `
		SELECT id, organization_id, name, description, duration_minutes,
			   buffer_before_mins, buffer_after_mins, price_cents, currency,
			   color, active, created_at, updated_at, deleted_at
		FROM appointment_types
		WHERE organization_id = $1 AND deleted_at IS NULL
	`
	args := []interface{}{organizationID}

	if activeOnly {
		query += " AND active = true"
	}

	query += " ORDER BY name ASC"

	var types []*model.AppointmentType
	err := r.db.SelectContext(ctx, &types, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment types: %w", err)
	}
	return types, nil
}
