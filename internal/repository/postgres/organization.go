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

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	query := `
		INSERT INTO organizations (
			id, name, slug, email, phone, timezone, default_open,
			plan_tier, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	org.ID = uuid.New()
	org.CreatedAt = time.Now()
	org.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Slug,
		org.Email,
		org.Phone,
		org.Timezone,
		org.DefaultOpen,
		org.PlanTier,
		org.Status,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	query := `
		SELECT id, name, slug, email, phone, timezone, default_open,
			   plan_tier, stripe_customer_id, status, created_at, updated_at, deleted_at
		FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
	`
	var org model.Organization
	err := r.db.GetContext(ctx, &org, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	query := `
		SELECT id, name, slug, email, phone, timezone, default_open,
			   plan_tier, stripe_customer_id, status, created_at, updated_at, deleted_at
		FROM organizations
		WHERE slug = $1 AND deleted_at IS NULL
	`
	var org model.Organization
	err := r.db.GetContext(ctx, &org, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by slug: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, email = $2, phone = $3, timezone = $4,
			default_open = $5, status = $6, updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	org.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		org.Name,
		org.Email,
		org.Phone,
		org.Timezone,
		org.DefaultOpen,
		org.Status,
		org.UpdatedAt,
		org.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return checkAffected(result)
}

func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE organizations
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return checkAffected(result)
}

func (r *organizationRepository) List(ctx context.Context, filters *model.OrganizationFilters) ([]*model.Organization, error) {
	query := `
		SELECT id, name, slug, email, phone, timezone, default_open,
			   plan_tier, stripe_customer_id, status, created_at, updated_at, deleted_at
		FROM organizations
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters != nil && filters.PlanTier != "" {
		query += fmt.Sprintf(" AND plan_tier = $%d", argCount)
		args = append(args, filters.PlanTier)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var orgs []*model.Organization
	err := r.db.SelectContext(ctx, &orgs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) UpdatePlanTier(ctx context.Context, id uuid.UUID, tier model.PlanTier) error {
	query := `
		UPDATE organizations
		SET plan_tier = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, tier, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update plan tier: %w", err)
	}
	return checkAffected(result)
}

func (r *organizationRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `
		UPDATE organizations
		SET stripe_customer_id = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, customerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
