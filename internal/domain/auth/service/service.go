// Package service coordinates account registration, login and token
// validation.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/google/uuid"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/auth/repository"
)

// RegisterParams contains the required data for user registration. An
// empty TenantID registers the user into a fresh tenant.
type RegisterParams struct {
	Email    string
	Password string
	TenantID uuid.UUID
}

// LoginParams represents the payload for a login attempt
type LoginParams struct {
	Email    string
	Password string
}

// AuthResult is produced after a successful registration or login
type AuthResult struct {
	User        *repository.User
	AccessToken string
}

// AuthService coordinates auth business logic
type AuthService struct {
	repo   repository.UserRepository
	tokens *TokenManager
	logger *slog.Logger
}

// NewAuthService constructs a new AuthService
func NewAuthService(repo repository.UserRepository, tokens *TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, logger: logger}
}

// Register creates a new user account and issues an access token
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", apperr.ErrValidation)
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, params.Email); err == nil {
		return nil, fmt.Errorf("%w: email is already registered", apperr.ErrValidation)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	tenantID := params.TenantID
	if tenantID == uuid.Nil {
		tenantID = uuid.New()
	}

	user := &repository.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        params.Email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.TenantID, user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("tenant_id", user.TenantID.String()),
	)
	return &AuthResult{User: user, AccessToken: token}, nil
}

// Login authenticates a user against stored credentials
func (s *AuthService) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, params.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if !ComparePassword(user.PasswordHash, params.Password) {
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.TenantID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

// ValidateAccessToken validates a bearer token and returns its claims
func (s *AuthService) ValidateAccessToken(_ context.Context, accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token required", apperr.ErrUnauthorized)
	}
	return s.tokens.ValidateAccessToken(accessToken)
}
