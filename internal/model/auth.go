package model

import (
	"time"

	"github.com/google/uuid"
)

// LoginCode is an emailed one-time code. CodeHash is a bcrypt hash; the
// plain code never touches the database.
type LoginCode struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CodeHash  string    `db:"code_hash" json:"-"`
	Attempts  int       `db:"attempts" json:"attempts"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type RequestCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}
