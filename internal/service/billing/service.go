package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

const provider = "stripe"

// Config holds the Stripe keys and the price backing the pro plan.
type Config struct {
	APIKey           string
	WebhookSecret    string
	WebhookTolerance time.Duration
	ProPriceID       string
}

// Service owns the Stripe integration: checkout and portal sessions plus
// webhook-driven subscription state. Stripe is the source of truth; local
// rows only mirror it.
type Service struct {
	orgRepo repository.OrganizationRepository
	subRepo repository.SubscriptionRepository
	cfg     Config
	logger  *logger.Logger
}

func NewService(orgRepo repository.OrganizationRepository, subRepo repository.SubscriptionRepository, cfg Config, log *logger.Logger) *Service {
	stripe.Key = cfg.APIKey
	return &Service{orgRepo: orgRepo, subRepo: subRepo, cfg: cfg, logger: log}
}

func (s *Service) WebhookSecret() string           { return s.cfg.WebhookSecret }
func (s *Service) WebhookTolerance() time.Duration { return s.cfg.WebhookTolerance }
func (s *Service) Configured() bool                { return s.cfg.APIKey != "" && s.cfg.ProPriceID != "" }

// CreateCheckout starts a Stripe checkout session upgrading the organization
// to the pro plan and returns the hosted payment URL.
func (s *Service) CreateCheckout(ctx context.Context, orgID uuid.UUID, req *model.CreateCheckoutRequest) (string, error) {
	if !s.Configured() {
		return "", apperrors.Internal(errors.New("stripe is not configured"))
	}
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, org)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.ProPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(org.ID.String()),
		Metadata: map[string]string{
			"organization_id": org.ID.String(),
			"tier":            string(model.PlanTierPro),
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"organization_id": org.ID.String(),
				"tier":            string(model.PlanTierPro),
			},
		},
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error(err, "create checkout session", "organization_id", org.ID.String())
		return "", apperrors.Internal(err)
	}
	return sess.URL, nil
}

// CreatePortal returns a Stripe billing portal URL where the organization
// manages its subscription.
func (s *Service) CreatePortal(ctx context.Context, orgID uuid.UUID, returnURL string) (string, error) {
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org.StripeCustomerID == nil {
		return "", apperrors.BadRequest("organization has no billing account yet", nil)
	}
	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  org.StripeCustomerID,
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		s.logger.Error(err, "create portal session", "organization_id", org.ID.String())
		return "", apperrors.Internal(err)
	}
	return sess.URL, nil
}

// HandleEvent applies a signature-verified Stripe event. Replayed events are
// detected through the provider event table and acknowledged without
// reapplying.
func (s *Service) HandleEvent(ctx context.Context, evt *stripe.Event, rawBody []byte) error {
	err := s.subRepo.InsertProviderEvent(ctx, &model.ProviderEvent{
		Provider:        provider,
		ProviderEventID: evt.ID,
		EventType:       string(evt.Type),
		Payload:         rawBody,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateProviderEvent) {
			s.logger.Info("duplicate stripe event ignored", "provider_event_id", evt.ID, "event_type", string(evt.Type))
			return nil
		}
		return apperrors.Internal(err)
	}

	switch evt.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return apperrors.BadRequest("invalid checkout session payload", err)
		}
		return s.applyCheckout(ctx, &sess)
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return apperrors.BadRequest("invalid subscription payload", err)
		}
		return s.applySubscription(ctx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return apperrors.BadRequest("invalid subscription payload", err)
		}
		return s.applyCancellation(ctx, &sub)
	default:
		s.logger.Debug("unhandled stripe event", "event_type", string(evt.Type))
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, sub *stripe.Subscription) error {
	orgID, err := organizationFromMetadata(sub)
	if err != nil {
		s.logger.Warn("stripe subscription without organization metadata", "subscription_id", sub.ID)
		return nil
	}

	tier := model.PlanTierFree
	status := model.SubscriptionStatusCanceled
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		tier = model.PlanTierPro
		status = model.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		// Keep entitlement during dunning, flag the state.
		tier = model.PlanTierPro
		status = model.SubscriptionStatusPastDue
	}

	periodStart := time.Unix(sub.CurrentPeriodStart, 0).UTC()
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	record := &model.Subscription{
		OrganizationID:       orgID,
		PlanTier:             tier,
		Status:               status,
		StripeSubscriptionID: sub.ID,
		CurrentPeriodStart:   &periodStart,
		CurrentPeriodEnd:     &periodEnd,
	}
	if sub.Customer != nil {
		record.StripeCustomerID = sub.Customer.ID
	}
	if err := s.subRepo.Upsert(ctx, record); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.orgRepo.UpdatePlanTier(ctx, orgID, tier); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info("subscription applied", "organization_id", orgID.String(), "tier", string(tier), "status", string(status))
	return nil
}

func (s *Service) applyCancellation(ctx context.Context, sub *stripe.Subscription) error {
	orgID, err := organizationFromMetadata(sub)
	if err != nil {
		s.logger.Warn("stripe subscription without organization metadata", "subscription_id", sub.ID)
		return nil
	}
	record := &model.Subscription{
		OrganizationID:       orgID,
		PlanTier:             model.PlanTierFree,
		Status:               model.SubscriptionStatusCanceled,
		StripeSubscriptionID: sub.ID,
	}
	if sub.Customer != nil {
		record.StripeCustomerID = sub.Customer.ID
	}
	if err := s.subRepo.Upsert(ctx, record); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.orgRepo.UpdatePlanTier(ctx, orgID, model.PlanTierFree); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info("subscription cancelled, downgraded to free", "organization_id", orgID.String())
	return nil
}

// GetSubscription returns the mirrored subscription, or a free-tier stand-in
// when the organization never subscribed.
func (s *Service) GetSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.Subscription{
				OrganizationID: orgID,
				PlanTier:       model.PlanTierFree,
				Status:         model.SubscriptionStatusCanceled,
			}, nil
		}
		return nil, apperrors.Internal(err)
	}
	return sub, nil
}

// ensureCustomer returns the organization's Stripe customer, creating one on
// first checkout.
func (s *Service) ensureCustomer(ctx context.Context, org *model.Organization) (string, error) {
	if org.StripeCustomerID != nil && *org.StripeCustomerID != "" {
		return *org.StripeCustomerID, nil
	}
	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(org.Email),
		Name:  stripe.String(org.Name),
		Metadata: map[string]string{
			"organization_id": org.ID.String(),
		},
	})
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if err := s.orgRepo.SetStripeCustomerID(ctx, org.ID, cust.ID); err != nil {
		return "", apperrors.Internal(err)
	}
	return cust.ID, nil
}

func (s *Service) getOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, err := s.orgRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, apperrors.Internal(err)
	}
	return org, nil
}

// applyCheckout pins the Stripe customer to the organization as soon as
// checkout finishes. The plan tier itself follows from the subscription
// events Stripe emits right after.
func (s *Service) applyCheckout(ctx context.Context, sess *stripe.CheckoutSession) error {
	raw, ok := sess.Metadata["organization_id"]
	if !ok {
		s.logger.Warn("stripe checkout session without organization metadata", "session_id", sess.ID)
		return nil
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn("stripe checkout session with malformed organization metadata", "session_id", sess.ID)
		return nil
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return nil
	}
	if err := s.orgRepo.SetStripeCustomerID(ctx, orgID, sess.Customer.ID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func organizationFromMetadata(sub *stripe.Subscription) (uuid.UUID, error) {
	raw, ok := sub.Metadata["organization_id"]
	if !ok {
		return uuid.Nil, fmt.Errorf("no organization_id metadata")
	}
	return uuid.Parse(raw)
}
