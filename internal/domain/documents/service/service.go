// Package service provides business logic for document management.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/search"
	"github.com/findoc-labs/findoc-analyzer/pkg/storage"
)

// UploadRequest describes an incoming document upload
type UploadRequest struct {
	Name         string
	DocumentType string
	ContentType  string
	Content      string // plain text supplied directly, optional
	File         io.Reader
}

// Service provides document management business logic
type Service struct {
	repo    repository.DocumentRepository
	files   storage.Storage
	index   *search.Index
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewService creates a new documents service
func NewService(repo repository.DocumentRepository, files storage.Storage, index *search.Index, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		index:  index,
		logger: logger,
		tracer: otel.Tracer("documents"),
	}
}

// Upload stores a document's original file, captures its text content when
// the payload is textual, persists the record and indexes it for search.
func (s *Service) Upload(ctx context.Context, tenantID, userID uuid.UUID, req UploadRequest) (*repository.Document, error) {
	ctx, span := s.tracer.Start(ctx, "UploadDocument")
	defer span.End()

	if req.Name == "" {
		return nil, fmt.Errorf("%w: document name is required", apperr.ErrValidation)
	}
	if req.File == nil && req.Content == "" {
		return nil, fmt.Errorf("%w: document content is required", apperr.ErrValidation)
	}

	doc := &repository.Document{
		ID:           uuid.New(),
		TenantID:     tenantID,
		UserID:       userID,
		Name:         req.Name,
		DocumentType: req.DocumentType,
		ContentType:  req.ContentType,
		Content:      req.Content,
	}

	if req.File != nil {
		data, err := io.ReadAll(req.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}

		info, err := s.files.Upload(ctx, tenantID, req.Name, req.ContentType, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to store file: %w", err)
		}
		doc.FileID = &info.ID
		doc.SizeBytes = info.Size

		if doc.Content == "" && isTextual(req.ContentType, data) {
			doc.Content = string(data)
		}
	} else {
		doc.SizeBytes = int64(len(req.Content))
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("document create failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.index.IndexDocument(toIndexed(doc)); err != nil {
		// The record is persisted; a stale index heals on the next reindex.
		s.logger.Warn("document indexing failed",
			slog.String("document_id", doc.ID.String()),
			slog.Any("error", err),
		)
	}

	return doc, nil
}

// Get retrieves a document by ID scoped by tenant
func (s *Service) Get(ctx context.Context, id, tenantID uuid.UUID) (*repository.Document, error) {
	return s.repo.GetByID(ctx, id, tenantID)
}

// List returns paginated documents for a tenant
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*repository.Document, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, tenantID, limit, offset)
}

// Delete removes a document, its stored file and its search entry
func (s *Service) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "DeleteDocument")
	defer span.End()

	doc, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, tenantID); err != nil {
		return err
	}

	if doc.FileID != nil {
		if err := s.files.Delete(ctx, tenantID, *doc.FileID); err != nil {
			s.logger.Warn("stored file cleanup failed",
				slog.String("document_id", id.String()),
				slog.Any("error", err),
			)
		}
	}

	if err := s.index.DeleteDocument(id); err != nil {
		s.logger.Warn("search index cleanup failed",
			slog.String("document_id", id.String()),
			slog.Any("error", err),
		)
	}

	return nil
}

// DownloadFile streams the original uploaded file for a document
func (s *Service) DownloadFile(ctx context.Context, id, tenantID uuid.UUID) (io.ReadCloser, *storage.FileInfo, error) {
	doc, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if doc.FileID == nil {
		return nil, nil, fmt.Errorf("%w: document has no stored file", apperr.ErrValidation)
	}
	return s.files.Download(ctx, tenantID, *doc.FileID)
}

// Search runs a full-text query over a tenant's documents
func (s *Service) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]search.Hit, error) {
	_, span := s.tracer.Start(ctx, "SearchDocuments")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", apperr.ErrValidation)
	}
	return s.index.Search(tenantID, query, limit)
}

// Reindex rebuilds the search index from the database. Runs at startup
// and nightly via the scheduler.
func (s *Service) Reindex(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "ReindexDocuments")
	defer span.End()

	const batchSize = 500
	offset := 0
	total := 0

	for {
		docs, err := s.repo.ListAll(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to load documents for reindex: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		indexed := make([]search.IndexedDocument, len(docs))
		for i, doc := range docs {
			indexed[i] = toIndexed(doc)
		}
		if err := s.index.IndexBatch(indexed); err != nil {
			return err
		}

		total += len(docs)
		offset += batchSize
	}

	s.logger.Info("document reindex completed", slog.Int("documents", total))
	return nil
}

func toIndexed(doc *repository.Document) search.IndexedDocument {
	return search.IndexedDocument{
		ID:           doc.ID.String(),
		TenantID:     doc.TenantID.String(),
		Name:         doc.Name,
		DocumentType: doc.DocumentType,
		Content:      doc.Content,
	}
}

// isTextual reports whether the uploaded payload can be stored as plain
// text content directly.
func isTextual(contentType string, data []byte) bool {
	if strings.HasPrefix(contentType, "text/") || contentType == "application/json" {
		return true
	}
	return contentType == "" && utf8.Valid(data)
}
