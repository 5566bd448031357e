package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository uses
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	pool PgxPool
}

// NewPostgresDocumentRepository creates a new PostgreSQL document repository
func NewPostgresDocumentRepository(pool PgxPool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

const documentColumns = `id, tenant_id, user_id, name, document_type, content, file_id, content_type, size_bytes, uploaded_at, updated_at`

// Create inserts a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (id, tenant_id, user_id, name, document_type, content, file_id, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING uploaded_at, updated_at`

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.UserID,
		doc.Name,
		doc.DocumentType,
		doc.Content,
		doc.FileID,
		doc.ContentType,
		doc.SizeBytes,
	).Scan(&doc.UploadedAt, &doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document scoped by tenant
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND tenant_id = $2`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// List returns paginated documents for a tenant, newest first
func (r *PostgresDocumentRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, total, nil
}

// ListAll returns documents across all tenants, used by the search
// reindexer.
func (r *PostgresDocumentRepository) ListAll(ctx context.Context, limit, offset int) ([]*Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		ORDER BY uploaded_at
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes a document scoped by tenant
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	doc := &Document{}
	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&doc.UserID,
		&doc.Name,
		&doc.DocumentType,
		&doc.Content,
		&doc.FileID,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
