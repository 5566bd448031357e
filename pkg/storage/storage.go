// Package storage provides file storage for uploaded documents.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations. Files are
// scoped by tenant.
type Storage interface {
	// Upload stores a file and returns its metadata
	Upload(ctx context.Context, tenantID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Download retrieves a file by its ID
	Download(ctx context.Context, tenantID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, tenantID uuid.UUID, fileID uuid.UUID) error

	// GetInfo returns metadata for a file without downloading
	GetInfo(ctx context.Context, tenantID uuid.UUID, fileID uuid.UUID) (*FileInfo, error)
}
