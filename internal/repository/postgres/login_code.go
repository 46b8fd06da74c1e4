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

func (r *loginCodeRepository) Create(ctx context.Context, code *model.LoginCode) error {
	// A new code supersedes any outstanding one for the user.
	query := `
		INSERT INTO login_codes (id, user_id, code_hash, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`
	code.ID = uuid.New()
	code.CreatedAt = time.Now()

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM login_codes WHERE user_id = $1 AND used_at IS NULL`, code.UserID); err != nil {
		return fmt.Errorf("failed to clear previous login codes: %w", err)
	}

	_, err := r.db.ExecContext(ctx, query,
		code.ID,
		code.UserID,
		code.CodeHash,
		code.ExpiresAt,
		code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login code: %w", err)
	}
	return nil
}

func (r *loginCodeRepository) GetActive(ctx context.Context, userID uuid.UUID) (*model.LoginCode, error) {
	query := `
		SELECT id, user_id, code_hash, attempts, expires_at, used_at, created_at
		FROM login_codes
		WHERE user_id = $1 AND used_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var code model.LoginCode
	err := r.db.GetContext(ctx, &code, query, userID, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login code: %w", err)
	}
	return &code, nil
}

func (r *loginCodeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE login_codes SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment login attempts: %w", err)
	}
	return checkAffected(result)
}

func (r *loginCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE login_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark login code used: %w", err)
	}
	return checkAffected(result)
}

func (r *loginCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM login_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login codes: %w", err)
	}
	return result.RowsAffected()
}
