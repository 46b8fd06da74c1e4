package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/auth"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/security"
)

type stubUserRepo struct {
	repository.UserRepository
	user       *model.User
	lastLogin  *time.Time
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) TouchLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubCodeRepo struct {
	repository.LoginCodeRepository
	code *model.LoginCode
}

func (s *stubCodeRepo) Create(_ context.Context, c *model.LoginCode) error {
	c.ID = uuid.New()
	s.code = c
	return nil
}

func (s *stubCodeRepo) GetActive(_ context.Context, userID uuid.UUID) (*model.LoginCode, error) {
	if s.code == nil || s.code.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return s.code, nil
}

func (s *stubCodeRepo) IncrementAttempts(_ context.Context, _ uuid.UUID) error {
	s.code.Attempts++
	return nil
}

func (s *stubCodeRepo) MarkUsed(_ context.Context, _ uuid.UUID) error {
	now := time.Now()
	s.code.UsedAt = &now
	return nil
}

type captureSender struct {
	to      string
	subject string
	body    string
}

func (c *captureSender) Send(_ context.Context, to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	return nil
}

func newTestService(t *testing.T) (*Service, *stubUserRepo, *stubCodeRepo, *captureSender) {
	t.Helper()
	user := &model.User{Email: "owner@example.com", Role: model.UserRoleOwner, OrganizationID: uuid.New()}
	user.ID = uuid.New()
	users := &stubUserRepo{user: user}
	codes := &stubCodeRepo{}
	sender := &captureSender{}
	svc := NewService(
		users,
		codes,
		security.NewCodeHasher(4), // min cost keeps the test fast
		auth.NewJWTService(auth.Config{
			Secret:        "test-secret",
			RefreshSecret: "test-refresh-secret",
			Expiry:        15 * time.Minute,
			RefreshExpiry: 720 * time.Hour,
		}),
		sender,
		logger.NewLogger(nil),
	)
	return svc, users, codes, sender
}

// requestedCode extracts the six digit code from the captured email body.
func requestedCode(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "<h2>")
	require.GreaterOrEqual(t, idx, 0, "no code in email body")
	return body[idx+len("<h2>") : idx+len("<h2>")+6]
}

func TestLoginFlow(t *testing.T) {
	svc, users, codes, sender := newTestService(t)

	err := svc.RequestCode(context.Background(), &model.RequestCodeRequest{Email: "owner@example.com"})
	require.NoError(t, err)
	require.NotNil(t, codes.code)
	assert.Equal(t, "owner@example.com", sender.to)
	assert.NotContains(t, codes.code.CodeHash, requestedCode(t, sender.body), "hash must not embed the code")

	tokens, err := svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
		Email: "owner@example.com",
		Code:  requestedCode(t, sender.body),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotNil(t, users.lastLogin)

	// codes are single use
	_, err = svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
		Email: "owner@example.com",
		Code:  requestedCode(t, sender.body),
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestRequestCodeUnknownEmailSucceeds(t *testing.T) {
	svc, _, codes, sender := newTestService(t)
	err := svc.RequestCode(context.Background(), &model.RequestCodeRequest{Email: "nobody@example.com"})
	require.NoError(t, err, "must not reveal which emails exist")
	assert.Nil(t, codes.code)
	assert.Empty(t, sender.to)
}

func TestVerifyCodeWrongCodeCountsAttempt(t *testing.T) {
	svc, _, codes, _ := newTestService(t)
	require.NoError(t, svc.RequestCode(context.Background(), &model.RequestCodeRequest{Email: "owner@example.com"}))

	for i := 0; i < maxCodeAttempts; i++ {
		_, err := svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
			Email: "owner@example.com",
			Code:  "000000",
		})
		assert.Error(t, err)
	}
	assert.Equal(t, maxCodeAttempts, codes.code.Attempts)

	// even the right code is refused once attempts are exhausted
	_, err := svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
		Email: "owner@example.com",
		Code:  "123456",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestVerifyCodeExpired(t *testing.T) {
	svc, _, codes, _ := newTestService(t)
	require.NoError(t, svc.RequestCode(context.Background(), &model.RequestCodeRequest{Email: "owner@example.com"}))
	codes.code.ExpiresAt = time.Now().Add(-time.Minute)

	_, err := svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
		Email: "owner@example.com",
		Code:  "123456",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestRefresh(t *testing.T) {
	svc, users, _, sender := newTestService(t)
	require.NoError(t, svc.RequestCode(context.Background(), &model.RequestCodeRequest{Email: "owner@example.com"}))
	tokens, err := svc.VerifyCode(context.Background(), &model.VerifyCodeRequest{
		Email: "owner@example.com",
		Code:  requestedCode(t, sender.body),
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), &model.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, users.user.ID, refreshed.User.ID)

	_, err = svc.Refresh(context.Background(), &model.RefreshRequest{RefreshToken: tokens.AccessToken})
	assert.Error(t, err, "access tokens must not refresh")
}
