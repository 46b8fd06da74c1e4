package appointmenttype

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

// Free-plan organizations are limited to a single appointment type.
const freePlanTypeLimit = 1

// Service manages the appointment types customers can book.
type Service struct {
	typeRepo repository.AppointmentTypeRepository
	orgRepo  repository.OrganizationRepository
	logger   *logger.Logger
}

func NewService(typeRepo repository.AppointmentTypeRepository, orgRepo repository.OrganizationRepository, log *logger.Logger) *Service {
	return &Service{typeRepo: typeRepo, orgRepo: orgRepo, logger: log}
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req *model.CreateAppointmentTypeRequest) (*model.AppointmentType, error) {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, apperrors.Internal(err)
	}
	if org.PlanTier == model.PlanTierFree {
		existing, err := s.typeRepo.List(ctx, orgID, false)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if len(existing) >= freePlanTypeLimit {
			return nil, apperrors.Forbidden("free plan allows one appointment type, upgrade to add more", nil)
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	at := &model.AppointmentType{
		OrganizationID:   orgID,
		Name:             req.Name,
		Description:      req.Description,
		DurationMinutes:  req.DurationMinutes,
		BufferBeforeMins: req.BufferBeforeMins,
		BufferAfterMins:  req.BufferAfterMins,
		PriceCents:       req.PriceCents,
		Currency:         currency,
		Color:            req.Color,
		Active:           true,
	}
	if err := s.typeRepo.Create(ctx, at); err != nil {
		return nil, apperrors.Internal(err)
	}
	return at, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.AppointmentType, error) {
	at, err := s.typeRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment type", err)
		}
		return nil, apperrors.Internal(err)
	}
	if at.OrganizationID != orgID {
		return nil, apperrors.NotFound("appointment type", nil)
	}
	return at, nil
}

func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, req *model.UpdateAppointmentTypeRequest) (*model.AppointmentType, error) {
	at, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		at.Name = *req.Name
	}
	if req.Description != nil {
		at.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		at.DurationMinutes = *req.DurationMinutes
	}
	if req.BufferBeforeMins != nil {
		at.BufferBeforeMins = *req.BufferBeforeMins
	}
	if req.BufferAfterMins != nil {
		at.BufferAfterMins = *req.BufferAfterMins
	}
	if req.PriceCents != nil {
		at.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		at.Currency = *req.Currency
	}
	if req.Color != nil {
		at.Color = *req.Color
	}
	if req.Active != nil {
		at.Active = *req.Active
	}
	if err := s.typeRepo.Update(ctx, at); err != nil {
		return nil, apperrors.Internal(err)
	}
	return at, nil
}

// Delete deactivates rather than removes: existing bookings keep their
// snapshot and history stays intact.
func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	at, err := s.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	at.Active = false
	if err := s.typeRepo.Update(ctx, at); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]*model.AppointmentType, error) {
	types, err := s.typeRepo.List(ctx, orgID, activeOnly)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return types, nil
}
