package model

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors the Stripe subscription for an organization. Stripe
// is the source of truth; rows here are updated from webhook events.
type Subscription struct {
	Base
	OrganizationID       uuid.UUID          `db:"organization_id" json:"organization_id"`
	PlanTier             PlanTier           `db:"plan_tier" json:"plan_tier"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	StripeCustomerID     string             `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID string             `db:"stripe_subscription_id" json:"-"`
	CurrentPeriodStart   *time.Time         `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `db:"current_period_end" json:"current_period_end,omitempty"`
}

// ProviderEvent records a received billing webhook for idempotent replay
// handling. (provider, provider_event_id) is unique.
type ProviderEvent struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Provider        string    `db:"provider" json:"provider"`
	ProviderEventID string    `db:"provider_event_id" json:"provider_event_id"`
	EventType       string    `db:"event_type" json:"event_type"`
	Payload         []byte    `db:"payload" json:"-"`
	ReceivedAt      time.Time `db:"received_at" json:"received_at"`
}

type CreateCheckoutRequest struct {
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}
