package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
)

// Claims carries the authenticated identity inside an access token
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates signed access tokens
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenManager creates a token manager signing with HMAC-SHA256
func NewTokenManager(secret []byte, accessTTL time.Duration) *TokenManager {
	if accessTTL == 0 {
		accessTTL = time.Hour
	}
	return &TokenManager{secret: secret, accessTTL: accessTTL}
}

// GenerateAccessToken issues a token carrying the user's tenant scope
func (m *TokenManager) GenerateAccessToken(userID, tenantID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID.String(),
		TenantID: tenantID.String(),
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and verifies a token, returning its claims
func (m *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token is not valid", apperr.ErrUnauthorized)
	}
	return claims, nil
}
