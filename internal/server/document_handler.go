package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
	docservice "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/service"
	qaservice "github.com/findoc-labs/findoc-analyzer/internal/domain/qa"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/securities"
)

// DocumentHandler serves document management, search, holdings and Q&A
type DocumentHandler struct {
	documents      *docservice.Service
	qa             *qaservice.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *docservice.Service, qa *qaservice.Service, maxUploadBytes int64, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents:      documents,
		qa:             qa,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type documentResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DocumentType string `json:"document_type"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	HasFile      bool   `json:"has_file"`
	UploadedAt   string `json:"uploaded_at"`
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// Upload handles POST /api/documents. Accepts multipart form uploads
// (field "file") or a JSON body with inline text content.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	req, err := h.parseUpload(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.documents.Upload(r.Context(), identity.TenantID, identity.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *DocumentHandler) parseUpload(r *http.Request) (docservice.UploadRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		var body struct {
			Name         string `json:"name"`
			DocumentType string `json:"document_type"`
			Content      string `json:"content"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return docservice.UploadRequest{}, err
		}
		return docservice.UploadRequest{
			Name:         body.Name,
			DocumentType: body.DocumentType,
			ContentType:  "text/plain",
			Content:      body.Content,
		}, nil
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return docservice.UploadRequest{}, fmt.Errorf("%w: file too large or invalid form", apperr.ErrValidation)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return docservice.UploadRequest{}, fmt.Errorf("%w: file is required", apperr.ErrValidation)
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	return docservice.UploadRequest{
		Name:         name,
		DocumentType: r.FormValue("document_type"),
		ContentType:  header.Header.Get("Content-Type"),
		File:         file,
	}, nil
}

// List handles GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	docs, total, err := h.documents.List(r.Context(), identity.TenantID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := documentListResponse{
		Documents: make([]documentResponse, 0, len(docs)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toDocumentResponse(doc))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), id, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// Delete handles DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.documents.Delete(r.Context(), id, identity.TenantID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download handles GET /api/documents/{id}/file
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	reader, info, err := h.documents.DownloadFile(r.Context(), id, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer reader.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("file download interrupted", slog.Any("error", err))
	}
}

type searchHit struct {
	DocumentID   string  `json:"document_id"`
	Name         string  `json:"name"`
	DocumentType string  `json:"document_type"`
	Score        float64 `json:"score"`
}

// Search handles GET /api/documents/search?q=
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := h.documents.Search(r.Context(), identity.TenantID, query, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		resp = append(resp, searchHit{
			DocumentID:   hit.DocumentID.String(),
			Name:         hit.Name,
			DocumentType: hit.DocumentType,
			Score:        hit.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Securities handles GET /api/documents/{id}/securities
func (h *DocumentHandler) Securities(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), id, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, securities.Scan(doc.Content))
}

// ExportSecurities handles GET /api/documents/{id}/securities/export?format=csv|xlsx
func (h *DocumentHandler) ExportSecurities(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), id, identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	portfolio := securities.Scan(doc.Content)

	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=securities.csv")
		err = securities.ExportCSV(w, portfolio)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=securities.xlsx")
		err = securities.ExportXLSX(w, portfolio)
	default:
		writeError(w, h.logger, fmt.Errorf("%w: unsupported export format %q", apperr.ErrValidation, format))
		return
	}
	if err != nil {
		h.logger.Error("securities export failed", slog.Any("error", err))
	}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/documents/{id}/ask
func (h *DocumentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	answer, err := h.qa.Ask(r.Context(), id, identity.TenantID, req.Question)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func toDocumentResponse(doc *repository.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID.String(),
		Name:         doc.Name,
		DocumentType: doc.DocumentType,
		ContentType:  doc.ContentType,
		SizeBytes:    doc.SizeBytes,
		HasFile:      doc.FileID != nil,
		UploadedAt:   doc.UploadedAt.Format(time.RFC3339),
	}
}
