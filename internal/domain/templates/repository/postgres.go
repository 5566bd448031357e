package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTemplateRepository implements TemplateRepository using PostgreSQL
type PostgresTemplateRepository struct {
	pool PgxPool
}

// NewPostgresTemplateRepository creates a new PostgreSQL template repository
func NewPostgresTemplateRepository(pool PgxPool) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{pool: pool}
}

// Create inserts a new template
func (r *PostgresTemplateRepository) Create(ctx context.Context, tpl *Template) error {
	query := `
		INSERT INTO templates (id, name, description, document_type, extraction_rules, user_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}

	rules, err := json.Marshal(tpl.ExtractionRules)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction rules: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Description,
		tpl.DocumentType,
		rules,
		tpl.UserID,
		tpl.TenantID,
	).Scan(&tpl.CreatedAt, &tpl.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// List retrieves all templates for a tenant. Order is not part of the
// contract; an empty result is a nil slice, not an error.
func (r *PostgresTemplateRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*Template, error) {
	query := `
		SELECT id, name, description, document_type, extraction_rules, user_id, tenant_id, created_at, updated_at
		FROM templates
		WHERE tenant_id = $1`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// GetByID retrieves a single template scoped by tenant. Tenant isolation is
// enforced by the compound filter, not a secondary check.
func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Template, error) {
	query := `
		SELECT id, name, description, document_type, extraction_rules, user_id, tenant_id, created_at, updated_at
		FROM templates
		WHERE id = $1 AND tenant_id = $2`

	row := r.pool.QueryRow(ctx, query, id, tenantID)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

// Update merges only the provided fields into the existing record and
// always refreshes updated_at.
func (r *PostgresTemplateRepository) Update(ctx context.Context, id, tenantID uuid.UUID, update TemplateUpdate) (*Template, error) {
	query := `
		UPDATE templates
		SET name = COALESCE($3, name),
			description = COALESCE($4, description),
			document_type = COALESCE($5, document_type),
			extraction_rules = COALESCE($6, extraction_rules),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, name, description, document_type, extraction_rules, user_id, tenant_id, created_at, updated_at`

	var rules []byte
	if update.ExtractionRules != nil {
		var err error
		rules, err = json.Marshal(update.ExtractionRules)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extraction rules: %w", err)
		}
	}

	row := r.pool.QueryRow(ctx, query, id, tenantID,
		update.Name,
		update.Description,
		update.DocumentType,
		rules,
	)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tpl, nil
}

// Delete removes a template scoped by tenant
func (r *PostgresTemplateRepository) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	query := `DELETE FROM templates WHERE id = $1 AND tenant_id = $2`
	result, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	tpl := &Template{}
	var rules []byte
	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.DocumentType,
		&rules,
		&tpl.UserID,
		&tpl.TenantID,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &tpl.ExtractionRules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extraction rules: %w", err)
		}
	}
	return tpl, nil
}
