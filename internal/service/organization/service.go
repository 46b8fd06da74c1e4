package organization

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

// Service manages tenant organizations and their staff.
type Service struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewService(orgRepo repository.OrganizationRepository, userRepo repository.UserRepository, log *logger.Logger) *Service {
	return &Service{orgRepo: orgRepo, userRepo: userRepo, logger: log}
}

// Create provisions a new tenant together with its owner account.
func (s *Service) Create(ctx context.Context, req *model.CreateOrganizationRequest) (*model.Organization, error) {
	org := &model.Organization{
		Name:     req.Name,
		Slug:     strings.ToLower(req.Slug),
		Email:    req.Email,
		Phone:    req.Phone,
		Timezone: req.Timezone,
		PlanTier: model.PlanTierFree,
		Status:   model.OrganizationStatusActive,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("slug is already taken", err)
		}
		return nil, apperrors.Internal(err)
	}

	owner := &model.User{
		OrganizationID: org.ID,
		Email:          req.Email,
		Name:           req.Name,
		Role:           model.UserRoleOwner,
		Status:         model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, owner); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("organization created", "organization_id", org.ID.String(), "slug", org.Slug)
	return org, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, err := s.orgRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, apperrors.Internal(err)
	}
	return org, nil
}

// GetBySlug serves the public booking page lookup.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	org, err := s.orgRepo.GetBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, apperrors.Internal(err)
	}
	return org, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Email != nil {
		org.Email = *req.Email
	}
	if req.Phone != nil {
		org.Phone = *req.Phone
	}
	if req.Timezone != nil {
		org.Timezone = *req.Timezone
	}
	if req.DefaultOpen != nil {
		org.DefaultOpen = *req.DefaultOpen
	}
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, apperrors.Internal(err)
	}
	return org, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orgRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("organization", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
