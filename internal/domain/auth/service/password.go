package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
)

const minPasswordLength = 8

// ValidatePassword enforces the minimum password policy
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, minPasswordLength)
	}
	return nil
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether the plaintext matches the stored hash
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
