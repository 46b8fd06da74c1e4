package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

// Service manages an organization's staff members. All operations are scoped
// to the caller's organization.
type Service struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewService(userRepo repository.UserRepository, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, logger: log}
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req *model.CreateUserRequest) (*model.User, error) {
	user := &model.User{
		OrganizationID: orgID,
		Email:          req.Email,
		Name:           req.Name,
		Role:           req.Role,
		Status:         model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if user.OrganizationID != orgID {
		return nil, apperrors.NotFound("user", nil)
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, &model.UserFilters{OrganizationID: orgID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}
