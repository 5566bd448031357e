// Package repository provides database operations for stored documents.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document is a tenant-scoped financial document. Content holds the
// extracted plain text; the original upload lives in file storage under
// FileID.
type Document struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Name         string
	DocumentType string
	Content      string
	FileID       *uuid.UUID
	ContentType  string
	SizeBytes    int64
	UploadedAt   time.Time
	UpdatedAt    time.Time
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Document, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Document, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Document, error)
	Delete(ctx context.Context, id, tenantID uuid.UUID) error
}
