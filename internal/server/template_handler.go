package server

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	docservice "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/service"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/templates/repository"
	tplservice "github.com/findoc-labs/findoc-analyzer/internal/domain/templates/service"
)

// TemplateHandler serves extraction template management and application
type TemplateHandler struct {
	templates *tplservice.Service
	documents *docservice.Service
	logger    *slog.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates *tplservice.Service, documents *docservice.Service, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, documents: documents, logger: logger}
}

type templateRequest struct {
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	DocumentType    string                      `json:"document_type"`
	ExtractionRules []repository.ExtractionRule `json:"extraction_rules"`
}

type templateUpdateRequest struct {
	Name            *string                     `json:"name"`
	Description     *string                     `json:"description"`
	DocumentType    *string                     `json:"document_type"`
	ExtractionRules []repository.ExtractionRule `json:"extraction_rules"`
}

type templateResponse struct {
	ID              string                      `json:"id"`
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	DocumentType    string                      `json:"document_type"`
	ExtractionRules []repository.ExtractionRule `json:"extraction_rules"`
	CreatedAt       string                      `json:"created_at"`
	UpdatedAt       string                      `json:"updated_at"`
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tpl, err := h.templates.CreateTemplate(r.Context(), &repository.Template{
		Name:            req.Name,
		Description:     req.Description,
		DocumentType:    req.DocumentType,
		ExtractionRules: req.ExtractionRules,
		UserID:          identity.UserID,
		TenantID:        identity.TenantID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(tpl))
}

// List handles GET /api/templates
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	templates, err := h.templates.ListTemplates(r.Context(), identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		resp = append(resp, toTemplateResponse(tpl))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/templates/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	tpl, err := h.templates.GetTemplate(r.Context(), id, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

// Update handles PUT /api/templates/{id}
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req templateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tpl, err := h.templates.UpdateTemplate(r.Context(), id, identity.TenantID, repository.TemplateUpdate{
		Name:            req.Name,
		Description:     req.Description,
		DocumentType:    req.DocumentType,
		ExtractionRules: req.ExtractionRules,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

// Delete handles DELETE /api/templates/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.templates.DeleteTemplate(r.Context(), id, identity.TenantID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type applyRequest struct {
	DocumentID string `json:"document_id"`
}

// Apply handles POST /api/templates/{id}/apply. The referenced document's
// stored text is run through the template's extraction rules.
func (h *TemplateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	templateID, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid document id", apperr.ErrValidation))
		return
	}

	doc, err := h.documents.Get(r.Context(), documentID, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.templates.ApplyTemplate(r.Context(), tplservice.Document{
		ID:           doc.ID,
		Name:         doc.Name,
		DocumentType: doc.DocumentType,
		Content:      doc.Content,
	}, templateID, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// encoding/json rejects NaN, so unparseable numbers serialize as null
	for field, value := range result.ExtractedData {
		if f, ok := value.(float64); ok && math.IsNaN(f) {
			result.ExtractedData[field] = nil
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", apperr.ErrValidation)
	}
	return id, nil
}

func toTemplateResponse(tpl *repository.Template) templateResponse {
	return templateResponse{
		ID:              tpl.ID.String(),
		Name:            tpl.Name,
		Description:     tpl.Description,
		DocumentType:    tpl.DocumentType,
		ExtractionRules: tpl.ExtractionRules,
		CreatedAt:       tpl.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       tpl.UpdatedAt.Format(time.RFC3339),
	}
}
