package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
)

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, organization_id, plan_tier, status, stripe_customer_id,
			stripe_subscription_id, current_period_start, current_period_end,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id) DO UPDATE SET
			plan_tier = EXCLUDED.plan_tier,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
	`
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.OrganizationID,
		sub.PlanTier,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByOrganization(ctx context.Context, organizationID uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT id, organization_id, plan_tier, status, stripe_customer_id,
			   stripe_subscription_id, current_period_start, current_period_end,
			   created_at, updated_at, deleted_at
		FROM subscriptions
		WHERE organization_id = $1
	`
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, query, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// InsertProviderEvent records a webhook delivery. A unique violation on
// (provider, provider_event_id) means a replay and maps to
// ErrDuplicateProviderEvent.
func (r *subscriptionRepository) InsertProviderEvent(ctx context.Context, evt *model.ProviderEvent) error {
	query := `
		INSERT INTO billing_provider_events (
			id, provider, provider_event_id, event_type, payload, received_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	evt.ID = uuid.New()
	evt.ReceivedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		evt.ID,
		evt.Provider,
		evt.ProviderEventID,
		evt.EventType,
		evt.Payload,
		evt.ReceivedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateProviderEvent
		}
		return fmt.Errorf("failed to insert provider event: %w", err)
	}
	return nil
}
