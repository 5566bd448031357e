package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{
	"id", "tenant_id", "user_id", "name", "document_type", "content",
	"file_id", "content_type", "size_bytes", "uploaded_at", "updated_at",
}

func TestPostgresDocumentRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresDocumentRepository(mock)
	now := time.Now()

	doc := &Document{
		TenantID:     uuid.New(),
		UserID:       uuid.New(),
		Name:         "statement-q2.txt",
		DocumentType: "portfolio",
		Content:      "APPLE INC ISIN: US0378331005",
		ContentType:  "text/plain",
		SizeBytes:    28,
	}

	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), doc.TenantID, doc.UserID, doc.Name, doc.DocumentType,
			doc.Content, (*uuid.UUID)(nil), doc.ContentType, doc.SizeBytes).
		WillReturnRows(pgxmock.NewRows([]string{"uploaded_at", "updated_at"}).AddRow(now, now))

	err = repo.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, now, doc.UploadedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresDocumentRepository(mock)
	id := uuid.New()
	tenantID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM documents`).
			WithArgs(id, tenantID).
			WillReturnRows(pgxmock.NewRows(documentCols).
				AddRow(id, tenantID, userID, "statement-q2.txt", "portfolio", "text",
					(*uuid.UUID)(nil), "text/plain", int64(4), now, now))

		doc, err := repo.GetByID(context.Background(), id, tenantID)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, "statement-q2.txt", doc.Name)
		assert.Nil(t, doc.FileID)
	})

	t.Run("wrong tenant is not found", func(t *testing.T) {
		otherTenant := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM documents`).
			WithArgs(id, otherTenant).
			WillReturnRows(pgxmock.NewRows(documentCols))

		_, err := repo.GetByID(context.Background(), id, otherTenant)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresDocumentRepository(mock)
	tenantID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents`).
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT (.+) FROM documents`).
		WithArgs(tenantID, 50, 0).
		WillReturnRows(pgxmock.NewRows(documentCols).
			AddRow(uuid.New(), tenantID, userID, "b.txt", "", "", (*uuid.UUID)(nil), "", int64(0), now, now).
			AddRow(uuid.New(), tenantID, userID, "a.txt", "", "", (*uuid.UUID)(nil), "", int64(0), now.Add(-time.Hour), now))

	docs, total, err := repo.List(context.Background(), tenantID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, docs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresDocumentRepository(mock)
	id := uuid.New()
	tenantID := uuid.New()

	t.Run("deletes", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM documents`).
			WithArgs(id, tenantID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(context.Background(), id, tenantID))
	})

	t.Run("missing id is not found", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM documents`).
			WithArgs(id, tenantID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), id, tenantID), sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
