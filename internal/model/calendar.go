package model

import (
	"time"

	"github.com/google/uuid"
)

// CalendarConnection stores a user's Google Calendar OAuth grant. One
// connection per user; reconnecting replaces the stored token.
type CalendarConnection struct {
	Base
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Provider     string     `db:"provider" json:"provider"`
	CalendarID   string     `db:"calendar_id" json:"calendar_id"`
	AccessToken  string     `db:"access_token" json:"-"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	TokenExpiry  time.Time  `db:"token_expiry" json:"-"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
}
