package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
)

// AdminRole is the role claim carried by admin console tokens.
const AdminRole = "admin"

// ErrInvalidCredentials indicates the admin password did not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues admin console tokens.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	password string
	secret   []byte
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(password, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

func (s *authService) Login(_ context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if s.password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) != 1 {
		s.logger.Warn().Msg("admin login rejected")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  AdminRole,
		"role": AdminRole,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info().Time("expires_at", expiresAt).Msg("admin login succeeded")
	return dto.LoginResponse{Token: signed, ExpiresAt: expiresAt}, nil
}
