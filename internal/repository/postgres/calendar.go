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

func (r *calendarRepository) Upsert(ctx context.Context, conn *model.CalendarConnection) error {
	query := `
		INSERT INTO calendar_connections (
			id, user_id, provider, calendar_id, access_token, refresh_token,
			token_expiry, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			calendar_id = EXCLUDED.calendar_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = EXCLUDED.updated_at
	`
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
		conn.CreatedAt = time.Now()
	}
	conn.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		conn.ID,
		conn.UserID,
		conn.Provider,
		conn.CalendarID,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiry,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar connection: %w", err)
	}
	return nil
}

func (r *calendarRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.CalendarConnection, error) {
	query := `
		SELECT id, user_id, provider, calendar_id, access_token, refresh_token,
			   token_expiry, last_synced_at, created_at, updated_at, deleted_at
		FROM calendar_connections
		WHERE user_id = $1
	`
	var conn model.CalendarConnection
	err := r.db.GetContext(ctx, &conn, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar connection: %w", err)
	}
	return &conn, nil
}

func (r *calendarRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_connections WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete calendar connection: %w", err)
	}
	return checkAffected(result)
}

func (r *calendarRepository) TouchSynced(ctx context.Context, userID uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE calendar_connections
		SET last_synced_at = $1, updated_at = $1
		WHERE user_id = $2
	`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to touch calendar sync time: %w", err)
	}
	return checkAffected(result)
}
