package auth

import (
	"context"
	"errors"
	"time"

	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/auth"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/security"
)

const (
	codeDigits      = 6
	codeTTL         = 10 * time.Minute
	maxCodeAttempts = 5
)

// Service implements passwordless staff login: a six digit code is emailed
// to the address on file, then traded for a JWT pair.
type Service struct {
	userRepo repository.UserRepository
	codeRepo repository.LoginCodeRepository
	hasher   security.CodeHasher
	jwt      auth.JWTService
	sender   email.Sender
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	codeRepo repository.LoginCodeRepository,
	hasher security.CodeHasher,
	jwt auth.JWTService,
	sender email.Sender,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo: userRepo,
		codeRepo: codeRepo,
		hasher:   hasher,
		jwt:      jwt,
		sender:   sender,
		logger:   log,
		now:      time.Now,
	}
}

// RequestCode emails a fresh login code. It reports success for unknown
// addresses too, so the endpoint cannot be used to probe which emails exist.
func (s *Service) RequestCode(ctx context.Context, req *model.RequestCodeRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("login code requested for unknown email", "email", req.Email)
			return nil
		}
		return apperrors.Internal(err)
	}

	code, err := s.hasher.Generate(codeDigits)
	if err != nil {
		return apperrors.Internal(err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.codeRepo.Create(ctx, &model.LoginCode{
		UserID:    user.ID,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(codeTTL),
	}); err != nil {
		return apperrors.Internal(err)
	}

	subject, body := email.LoginCode(code, codeTTL)
	if err := s.sender.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Error(err, "send login code", "user_id", user.ID.String())
		return apperrors.Internal(err)
	}
	return nil
}

// VerifyCode checks the submitted code against the newest active one and
// issues tokens. Codes are single use and allow five attempts.
func (s *Service) VerifyCode(ctx context.Context, req *model.VerifyCodeRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(nil)
		}
		return nil, apperrors.Internal(err)
	}

	code, err := s.codeRepo.GetActive(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(nil)
		}
		return nil, apperrors.Internal(err)
	}
	if code.Attempts >= maxCodeAttempts || s.now().After(code.ExpiresAt) || code.UsedAt != nil {
		return nil, apperrors.Unauthorized(nil)
	}

	if err := s.hasher.Compare(code.CodeHash, req.Code); err != nil {
		if incErr := s.codeRepo.IncrementAttempts(ctx, code.ID); incErr != nil {
			s.logger.Error(incErr, "increment login code attempts", "code_id", code.ID.String())
		}
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.codeRepo.MarkUsed(ctx, code.ID); err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Error(err, "touch last login", "user_id", user.ID.String())
	}

	return s.issueTokens(user)
}

// Refresh trades a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, req *model.RefreshRequest) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateToken(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}
	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, user.OrganizationID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.OrganizationID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}
