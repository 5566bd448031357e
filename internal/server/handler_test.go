package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/repository"
	authservice "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/service"
	docrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/search"
	docservice "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/service"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/qa"
	tplrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/templates/repository"
	tplservice "github.com/findoc-labs/findoc-analyzer/internal/domain/templates/service"
	"github.com/findoc-labs/findoc-analyzer/pkg/storage"
)

type memUserRepository struct {
	users map[uuid.UUID]*authrepo.User
}

func (m *memUserRepository) Create(_ context.Context, user *authrepo.User) error {
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepository) GetByEmail(_ context.Context, email string) (*authrepo.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepository) GetByID(_ context.Context, id uuid.UUID) (*authrepo.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type memTemplateRepository struct {
	templates map[uuid.UUID]*tplrepo.Template
}

func (m *memTemplateRepository) Create(_ context.Context, tpl *tplrepo.Template) error {
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	m.templates[tpl.ID] = tpl
	return nil
}

func (m *memTemplateRepository) List(_ context.Context, tenantID uuid.UUID) ([]*tplrepo.Template, error) {
	var out []*tplrepo.Template
	for _, tpl := range m.templates {
		if tpl.TenantID == tenantID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (m *memTemplateRepository) GetByID(_ context.Context, id, tenantID uuid.UUID) (*tplrepo.Template, error) {
	tpl, ok := m.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return tpl, nil
}

func (m *memTemplateRepository) Update(_ context.Context, id, tenantID uuid.UUID, update tplrepo.TemplateUpdate) (*tplrepo.Template, error) {
	tpl, ok := m.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	if update.Name != nil {
		tpl.Name = *update.Name
	}
	if update.Description != nil {
		tpl.Description = *update.Description
	}
	if update.DocumentType != nil {
		tpl.DocumentType = *update.DocumentType
	}
	if update.ExtractionRules != nil {
		tpl.ExtractionRules = update.ExtractionRules
	}
	tpl.UpdatedAt = time.Now()
	return tpl, nil
}

func (m *memTemplateRepository) Delete(_ context.Context, id, tenantID uuid.UUID) error {
	tpl, ok := m.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.templates, id)
	return nil
}

type memDocumentRepository struct {
	docs map[uuid.UUID]*docrepo.Document
}

func (m *memDocumentRepository) Create(_ context.Context, doc *docrepo.Document) error {
	now := time.Now()
	doc.UploadedAt = now
	doc.UpdatedAt = now
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocumentRepository) GetByID(_ context.Context, id, tenantID uuid.UUID) (*docrepo.Document, error) {
	doc, ok := m.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

func (m *memDocumentRepository) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]*docrepo.Document, int, error) {
	var out []*docrepo.Document
	for _, doc := range m.docs {
		if doc.TenantID == tenantID {
			out = append(out, doc)
		}
	}
	return out, len(out), nil
}

func (m *memDocumentRepository) ListAll(_ context.Context, limit, offset int) ([]*docrepo.Document, error) {
	var out []*docrepo.Document
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	if offset >= len(out) {
		return nil, nil
	}
	if limit > 0 && offset+limit < len(out) {
		out = out[offset : offset+limit]
	} else {
		out = out[offset:]
	}
	return out, nil
}

func (m *memDocumentRepository) Delete(_ context.Context, id, tenantID uuid.UUID) error {
	doc, ok := m.docs[id]
	if !ok || doc.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.docs, id)
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	index, err := search.NewIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	authSvc := authservice.NewAuthService(
		&memUserRepository{users: make(map[uuid.UUID]*authrepo.User)},
		authservice.NewTokenManager([]byte("test-secret"), time.Hour),
		logger,
	)
	templatesSvc := tplservice.NewService(&memTemplateRepository{templates: make(map[uuid.UUID]*tplrepo.Template)}, logger)

	docRepo := &memDocumentRepository{docs: make(map[uuid.UUID]*docrepo.Document)}
	documentsSvc := docservice.NewService(docRepo, files, index, logger)
	qaSvc := qa.NewService(docRepo, qa.NewEngine(), logger)

	return NewRouter(RouterConfig{
		Auth:        NewAuthHandler(authSvc, logger),
		Templates:   NewTemplateHandler(templatesSvc, documentsSvc, logger),
		Documents:   NewDocumentHandler(documentsSvc, qaSvc, 10<<20, logger),
		AuthService: authSvc,
		Metrics:     NewMetrics(),
		Logger:      logger,
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func uploadDocument(t *testing.T, router http.Handler, token, name, content string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/documents", token, map[string]string{
		"name":          name,
		"document_type": "portfolio",
		"content":       content,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "analyst@example.com",
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("login succeeds", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "analyst@example.com",
			"password": "long-enough-password",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "analyst@example.com",
			"password": "wrong-password!",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("protected route requires token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTemplateCRUDAndApply(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/templates", token, map[string]any{
		"name":          "Invoice Fields",
		"document_type": "invoice",
		"extraction_rules": []map[string]string{
			{"field": "invoice_number", "pattern": `Invoice Number:\s*(\w+)`, "type": "string"},
			{"field": "amount", "pattern": `Amount Due:\s*([\d.]+)`, "type": "number"},
			{"field": "paid", "pattern": `Paid:\s*(\w+)`, "type": "boolean"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created templateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	t.Run("get round-trips", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got templateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, created.Name, got.Name)
		assert.Len(t, got.ExtractionRules, 3)
	})

	t.Run("validation failure is 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/templates", token, map[string]any{
			"name": "No Rules",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update merges fields", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/api/templates/"+created.ID, token, map[string]string{
			"description": "invoice header fields",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var got templateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "invoice header fields", got.Description)
		assert.Equal(t, created.Name, got.Name)
	})

	t.Run("apply extracts typed fields", func(t *testing.T) {
		docID := uploadDocument(t, router, token, "invoice-17.txt",
			"Invoice Number: INV0017\nAmount Due: 1250.75\nPaid: True\n")

		rec := doJSON(t, router, http.MethodPost, "/api/templates/"+created.ID+"/apply", token, map[string]string{
			"document_id": docID,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result struct {
			DocumentName  string         `json:"document_name"`
			TemplateName  string         `json:"template_name"`
			ExtractedData map[string]any `json:"extracted_data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "invoice-17.txt", result.DocumentName)
		assert.Equal(t, "Invoice Fields", result.TemplateName)
		assert.Equal(t, "INV0017", result.ExtractedData["invoice_number"])
		assert.Equal(t, 1250.75, result.ExtractedData["amount"])
		assert.Equal(t, true, result.ExtractedData["paid"])
	})

	t.Run("apply with unknown document is 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/templates/"+created.ID+"/apply", token, map[string]string{
			"document_id": uuid.New().String(),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete then get is 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/templates/"+created.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/templates/"+created.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	tokenA := registerUser(t, router)
	tokenB := registerUser(t, router)

	docID := uploadDocument(t, router, tokenA, "statement.txt", "APPLE INC ISIN: US0378331005\n")

	rec := doJSON(t, router, http.MethodGet, "/api/documents/"+docID, tokenA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/documents/"+docID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentSearchAndSecurities(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router)

	docID := uploadDocument(t, router, token, "q2-statement.txt",
		"PORTFOLIO STATEMENT\nAPPLE INC ISIN: US0378331005 Quantity: 100 Value: USD 17,500.00\n")

	t.Run("search finds the document", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/documents/search?q=apple", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var hits []searchHit
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
		require.NotEmpty(t, hits)
		assert.Equal(t, docID, hits[0].DocumentID)
	})

	t.Run("empty query is 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/documents/search?q=", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("securities scan", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/documents/"+docID+"/securities", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var portfolio struct {
			Securities []struct {
				ISIN string `json:"isin"`
			} `json:"securities"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &portfolio))
		require.Len(t, portfolio.Securities, 1)
		assert.Equal(t, "US0378331005", portfolio.Securities[0].ISIN)
	})

	t.Run("csv export", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/documents/"+docID+"/securities/export?format=csv", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "US0378331005")
	})

	t.Run("unknown export format is 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/documents/"+docID+"/securities/export?format=pdf", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ask about the document", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/documents/"+docID+"/ask", token, map[string]string{
			"question": "how many securities are there?",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var answer struct {
			Answer string `json:"answer"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
		assert.Equal(t, "The document lists 1 security.", answer.Answer)
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
