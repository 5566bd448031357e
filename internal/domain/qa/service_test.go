package qa

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
)

type fakeDocumentRepository struct {
	docs map[uuid.UUID]*repository.Document
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{docs: make(map[uuid.UUID]*repository.Document)}
}

func (f *fakeDocumentRepository) Create(_ context.Context, doc *repository.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepository) GetByID(_ context.Context, id, tenantID uuid.UUID) (*repository.Document, error) {
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

func (f *fakeDocumentRepository) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]*repository.Document, int, error) {
	var out []*repository.Document
	for _, doc := range f.docs {
		if doc.TenantID == tenantID {
			out = append(out, doc)
		}
	}
	return out, len(out), nil
}

func (f *fakeDocumentRepository) ListAll(_ context.Context, _, _ int) ([]*repository.Document, error) {
	var out []*repository.Document
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeDocumentRepository) Delete(_ context.Context, id, tenantID uuid.UUID) error {
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(f.docs, id)
	return nil
}

const statementText = `PORTFOLIO STATEMENT

APPLE INC ISIN: US0378331005 Quantity: 100 Value: USD 17,500.00
MICROSOFT CORP ISIN: US5949181045 Quantity: 50 Value: USD 21,000.50
`

func newTestService(t *testing.T) (*Service, *repository.Document) {
	t.Helper()

	repo := newFakeDocumentRepository()
	doc := &repository.Document{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Name:         "statement-q2.txt",
		DocumentType: "portfolio",
		Content:      statementText,
	}
	require.NoError(t, repo.Create(context.Background(), doc))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewService(repo, NewEngine(), logger)
	return svc, doc
}

func TestAskTotalValue(t *testing.T) {
	svc, doc := newTestService(t)

	answer, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "What is the total value?")
	require.NoError(t, err)

	assert.Equal(t, TopicTotalValue, answer.Topic)
	assert.Equal(t, "The total portfolio value is USD 38500.50.", answer.Answer)
}

func TestAskSecuritiesCount(t *testing.T) {
	svc, doc := newTestService(t)

	answer, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "How many securities are there?")
	require.NoError(t, err)

	assert.Equal(t, "The document lists 2 securities.", answer.Answer)
}

func TestAskListSecurities(t *testing.T) {
	svc, doc := newTestService(t)

	answer, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "Which securities does it hold?")
	require.NoError(t, err)

	assert.Contains(t, answer.Answer, "APPLE INC (US0378331005)")
	assert.Contains(t, answer.Answer, "MICROSOFT CORP (US5949181045)")
}

func TestAskDocumentType(t *testing.T) {
	svc, doc := newTestService(t)

	answer, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "What kind of document is this?")
	require.NoError(t, err)

	assert.Equal(t, "This is a portfolio document.", answer.Answer)
}

func TestAskUnknownTopicFallsBack(t *testing.T) {
	svc, doc := newTestService(t)

	answer, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "Who painted the ceiling?")
	require.NoError(t, err)

	assert.Equal(t, TopicUnknown, answer.Topic)
	assert.Equal(t, fallbackAnswer, answer.Answer)
}

func TestAskValidatesQuestion(t *testing.T) {
	svc, doc := newTestService(t)

	_, err := svc.Ask(context.Background(), doc.ID, doc.TenantID, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAskUnknownDocument(t *testing.T) {
	svc, doc := newTestService(t)

	_, err := svc.Ask(context.Background(), uuid.New(), doc.TenantID, "What is the total value?")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAskWrongTenant(t *testing.T) {
	svc, doc := newTestService(t)

	_, err := svc.Ask(context.Background(), doc.ID, uuid.New(), "What is the total value?")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
