// Package repository provides database operations for user accounts.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account scoped to a tenant
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
