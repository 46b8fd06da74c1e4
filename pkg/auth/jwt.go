package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carried by every token issued for a staff user.
type Claims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	TokenType      TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateAccessToken(userID, organizationID uuid.UUID, email, role string) (string, time.Time, error)
	GenerateRefreshToken(userID, organizationID uuid.UUID, email, role string) (string, error)
	ValidateToken(tokenString string, expected TokenType) (*Claims, error)
}

type Config struct {
	Secret        string
	RefreshSecret string
	Expiry        time.Duration
	RefreshExpiry time.Duration
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) JWTService {
	return &jwtService{cfg: cfg}
}

func (s *jwtService) GenerateAccessToken(userID, organizationID uuid.UUID, email, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.cfg.Expiry)
	token, err := s.generate(userID, organizationID, email, role, TokenTypeAccess, expiresAt, s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *jwtService) GenerateRefreshToken(userID, organizationID uuid.UUID, email, role string) (string, error) {
	return s.generate(userID, organizationID, email, role, TokenTypeRefresh, time.Now().Add(s.cfg.RefreshExpiry), s.cfg.RefreshSecret)
}

func (s *jwtService) generate(userID, organizationID uuid.UUID, email, role string, tokenType TokenType, expiresAt time.Time, secret string) (string, error) {
	claims := &Claims{
		UserID:         userID,
		OrganizationID: organizationID,
		Email:          email,
		Role:           role,
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(tokenString string, expected TokenType) (*Claims, error) {
	secret := s.cfg.Secret
	if expected == TokenTypeRefresh {
		secret = s.cfg.RefreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != expected {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}
