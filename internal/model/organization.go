package model

import (
	"github.com/google/uuid"
)

type PlanTier string

const (
	PlanTierFree PlanTier = "free"
	PlanTierPro  PlanTier = "pro"
)

type OrganizationStatus string

const (
	OrganizationStatusActive   OrganizationStatus = "active"
	OrganizationStatusInactive OrganizationStatus = "inactive"
)

// Organization is a tenant: one business with its own staff, appointment
// types and public booking page (keyed by slug).
type Organization struct {
	Base
	Name     string             `db:"name" json:"name"`
	Slug     string             `db:"slug" json:"slug"`
	Email    string             `db:"email" json:"email"`
	Phone    string             `db:"phone" json:"phone,omitempty"`
	Timezone string             `db:"timezone" json:"timezone"`
	// DefaultOpen controls what a weekday with no weekly availability rows
	// means: true = available all day, false = closed.
	DefaultOpen      bool               `db:"default_open" json:"default_open"`
	PlanTier         PlanTier           `db:"plan_tier" json:"plan_tier"`
	StripeCustomerID *string            `db:"stripe_customer_id" json:"-"`
	Status           OrganizationStatus `db:"status" json:"status"`
}

type CreateOrganizationRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Slug     string `json:"slug" binding:"required,min=3,max=60,lowercase,alphanum|containsany=-"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
	Timezone string `json:"timezone" binding:"required,iana_tz"`
}

type UpdateOrganizationRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=32"`
	Timezone    *string `json:"timezone" binding:"omitempty,iana_tz"`
	DefaultOpen *bool   `json:"default_open"`
}

type OrganizationFilters struct {
	Status   OrganizationStatus
	PlanTier PlanTier
	OwnerID  uuid.UUID
}
