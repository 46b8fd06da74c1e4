package billing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/logger"
)

type stubOrgRepo struct {
	repository.OrganizationRepository
	tiers     map[uuid.UUID]model.PlanTier
	customers map[uuid.UUID]string
}

func (s *stubOrgRepo) UpdatePlanTier(_ context.Context, id uuid.UUID, tier model.PlanTier) error {
	s.tiers[id] = tier
	return nil
}

func (s *stubOrgRepo) SetStripeCustomerID(_ context.Context, id uuid.UUID, customerID string) error {
	s.customers[id] = customerID
	return nil
}

type stubSubRepo struct {
	repository.SubscriptionRepository
	seen    map[string]bool
	upserts []*model.Subscription
}

func (s *stubSubRepo) InsertProviderEvent(_ context.Context, evt *model.ProviderEvent) error {
	key := evt.Provider + ":" + evt.ProviderEventID
	if s.seen[key] {
		return repository.ErrDuplicateProviderEvent
	}
	s.seen[key] = true
	return nil
}

func (s *stubSubRepo) Upsert(_ context.Context, sub *model.Subscription) error {
	s.upserts = append(s.upserts, sub)
	return nil
}

func newTestService() (*Service, *stubOrgRepo, *stubSubRepo) {
	orgs := &stubOrgRepo{tiers: map[uuid.UUID]model.PlanTier{}, customers: map[uuid.UUID]string{}}
	subs := &stubSubRepo{seen: map[string]bool{}}
	svc := NewService(orgs, subs, Config{}, logger.NewLogger(nil))
	return svc, orgs, subs
}

func subscriptionEvent(t *testing.T, id string, eventType stripe.EventType, orgID uuid.UUID, status stripe.SubscriptionStatus) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":     "sub_123",
		"status": status,
		"metadata": map[string]string{
			"organization_id": orgID.String(),
			"tier":            "pro",
		},
		"current_period_start": 1757000000,
		"current_period_end":   1759600000,
	})
	require.NoError(t, err)
	return &stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventActivatesProPlan(t *testing.T) {
	svc, orgs, subs := newTestService()
	orgID := uuid.New()
	evt := subscriptionEvent(t, "evt_1", "customer.subscription.created", orgID, stripe.SubscriptionStatusActive)

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))

	assert.Equal(t, model.PlanTierPro, orgs.tiers[orgID])
	require.Len(t, subs.upserts, 1)
	assert.Equal(t, model.SubscriptionStatusActive, subs.upserts[0].Status)
}

func TestHandleEventIsIdempotent(t *testing.T) {
	svc, _, subs := newTestService()
	orgID := uuid.New()
	evt := subscriptionEvent(t, "evt_1", "customer.subscription.created", orgID, stripe.SubscriptionStatusActive)

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))
	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))
	assert.Len(t, subs.upserts, 1, "replayed events must not reapply")
}

func TestHandleEventDeletionDowngrades(t *testing.T) {
	svc, orgs, subs := newTestService()
	orgID := uuid.New()
	evt := subscriptionEvent(t, "evt_2", "customer.subscription.deleted", orgID, stripe.SubscriptionStatusCanceled)

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))

	assert.Equal(t, model.PlanTierFree, orgs.tiers[orgID])
	require.Len(t, subs.upserts, 1)
	assert.Equal(t, model.SubscriptionStatusCanceled, subs.upserts[0].Status)
}

func TestHandleEventMissingMetadataIsAcknowledged(t *testing.T) {
	svc, orgs, _ := newTestService()
	raw, _ := json.Marshal(map[string]interface{}{"id": "sub_999", "status": "active"})
	evt := &stripe.Event{ID: "evt_3", Type: "customer.subscription.updated", Data: &stripe.EventData{Raw: raw}}

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")),
		"events we cannot attribute are logged and acked, not retried forever")
	assert.Empty(t, orgs.tiers)
}

func TestHandleEventCheckoutStoresCustomer(t *testing.T) {
	svc, orgs, _ := newTestService()
	orgID := uuid.New()
	raw, err := json.Marshal(map[string]interface{}{
		"id":       "cs_123",
		"customer": map[string]string{"id": "cus_42"},
		"metadata": map[string]string{"organization_id": orgID.String()},
	})
	require.NoError(t, err)
	evt := &stripe.Event{ID: "evt_5", Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))
	assert.Equal(t, "cus_42", orgs.customers[orgID])
	assert.Empty(t, orgs.tiers, "tier changes come from subscription events")
}

func TestHandleEventCheckoutWithoutMetadataIsAcknowledged(t *testing.T) {
	svc, orgs, _ := newTestService()
	raw, _ := json.Marshal(map[string]interface{}{"id": "cs_456", "customer": map[string]string{"id": "cus_43"}})
	evt := &stripe.Event{ID: "evt_6", Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}

	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))
	assert.Empty(t, orgs.customers)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	svc, _, subs := newTestService()
	evt := &stripe.Event{ID: "evt_4", Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte("{}")}}
	require.NoError(t, svc.HandleEvent(context.Background(), evt, []byte("{}")))
	assert.Empty(t, subs.upserts)
}
