// Package service provides business logic for extraction templates.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/templates/extractor"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/templates/repository"
)

// Document is the slice of a stored document the template engine needs.
// Everything except Content is carried through to the result untouched.
type Document struct {
	ID           uuid.UUID
	Name         string
	DocumentType string
	Content      string
}

// ExtractionResult combines a document with the fields a template
// extracted from it. It is ephemeral; callers own it.
type ExtractionResult struct {
	DocumentID    uuid.UUID      `json:"document_id"`
	DocumentName  string         `json:"document_name"`
	DocumentType  string         `json:"document_type"`
	ExtractedData map[string]any `json:"extracted_data"`
	TemplateID    uuid.UUID      `json:"template_id"`
	TemplateName  string         `json:"template_name"`
}

// Service provides template management and application logic
type Service struct {
	repo   repository.TemplateRepository
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new templates service
func NewService(repo repository.TemplateRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("templates"),
	}
}

// CreateTemplate validates and persists a new template
func (s *Service) CreateTemplate(ctx context.Context, tpl *repository.Template) (*repository.Template, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTemplate")
	defer span.End()

	if tpl.Name == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if tpl.DocumentType == "" {
		return nil, fmt.Errorf("%w: document type is required", apperr.ErrValidation)
	}
	if len(tpl.ExtractionRules) == 0 {
		return nil, fmt.Errorf("%w: extraction rules are required", apperr.ErrValidation)
	}

	tpl.ID = uuid.New()
	if err := s.repo.Create(ctx, tpl); err != nil {
		s.logger.Error("template create failed", slog.Any("error", err))
		return nil, err
	}
	return tpl, nil
}

// GetTemplate retrieves a template by ID scoped by tenant
func (s *Service) GetTemplate(ctx context.Context, id, tenantID uuid.UUID) (*repository.Template, error) {
	return s.repo.GetByID(ctx, id, tenantID)
}

// ListTemplates retrieves all templates for a tenant
func (s *Service) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]*repository.Template, error) {
	return s.repo.List(ctx, tenantID)
}

// UpdateTemplate merges the provided fields into an existing template
func (s *Service) UpdateTemplate(ctx context.Context, id, tenantID uuid.UUID, update repository.TemplateUpdate) (*repository.Template, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateTemplate")
	defer span.End()

	tpl, err := s.repo.Update(ctx, id, tenantID, update)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(ctx context.Context, id, tenantID uuid.UUID) error {
	return s.repo.Delete(ctx, id, tenantID)
}

// ApplyTemplate fetches the named template and runs its rules over the
// document's content. There is no partial-success mode: a missing template
// or invalid rule pattern aborts the whole call.
func (s *Service) ApplyTemplate(ctx context.Context, doc Document, templateID, tenantID uuid.UUID) (*ExtractionResult, error) {
	ctx, span := s.tracer.Start(ctx, "ApplyTemplate")
	defer span.End()

	tpl, err := s.repo.GetByID(ctx, templateID, tenantID)
	if err != nil {
		return nil, err
	}

	extracted, err := extractor.Extract(doc.Content, tpl.ExtractionRules)
	if err != nil {
		s.logger.Error("template apply failed",
			slog.String("template_id", templateID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	return &ExtractionResult{
		DocumentID:    doc.ID,
		DocumentName:  doc.Name,
		DocumentType:  doc.DocumentType,
		ExtractedData: extracted,
		TemplateID:    tpl.ID,
		TemplateName:  tpl.Name,
	}, nil
}
