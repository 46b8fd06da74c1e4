package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleMember UserRole = "member"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a staff member of an organization. Users own availability and are
// the bookable resource behind every appointment type.
type User struct {
	Base
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Email          string     `db:"email" json:"email"`
	Name           string     `db:"name" json:"name"`
	Role           UserRole   `db:"role" json:"role"`
	Status         UserStatus `db:"status" json:"status"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

type CreateUserRequest struct {
	Email string   `json:"email" binding:"required,email"`
	Name  string   `json:"name" binding:"required,max=120"`
	Role  UserRole `json:"role" binding:"required,oneof=owner member"`
}

type UpdateUserRequest struct {
	Name   *string     `json:"name" binding:"omitempty,max=120"`
	Role   *UserRole   `json:"role" binding:"omitempty,oneof=owner member"`
	Status *UserStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UserFilters struct {
	OrganizationID uuid.UUID
	Role           UserRole
	Status         UserStatus
}
