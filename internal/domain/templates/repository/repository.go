// Package repository provides database operations for extraction templates.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FieldType declares how a matched capture group is coerced.
type FieldType string

const (
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeString  FieldType = "string"
)

// ExtractionRule maps a named field to a regex pattern and a target type.
// The pattern's first capture group is the extracted value.
type ExtractionRule struct {
	Field   string    `json:"field"`
	Pattern string    `json:"pattern"`
	Type    FieldType `json:"type"`
}

// Template is a named, tenant-scoped set of extraction rules tied to a
// document type.
type Template struct {
	ID              uuid.UUID
	Name            string
	Description     string
	DocumentType    string
	ExtractionRules []ExtractionRule
	UserID          uuid.UUID
	TenantID        uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TemplateUpdate carries a partial update; nil fields are left untouched.
type TemplateUpdate struct {
	Name            *string
	Description     *string
	DocumentType    *string
	ExtractionRules []ExtractionRule
}

// TemplateRepository defines the interface for template persistence.
// All operations are scoped by tenant; a template belonging to another
// tenant behaves as if it does not exist.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *Template) error
	List(ctx context.Context, tenantID uuid.UUID) ([]*Template, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Template, error)
	Update(ctx context.Context, id, tenantID uuid.UUID, update TemplateUpdate) (*Template, error)
	Delete(ctx context.Context, id, tenantID uuid.UUID) error
}
