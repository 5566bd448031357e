// Package search provides full-text search over stored documents using Bleve.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// IndexedDocument is the searchable projection of a stored document
type IndexedDocument struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Name         string `json:"name"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

// Hit is a search result with its relevance score
type Hit struct {
	DocumentID   uuid.UUID
	Name         string
	DocumentType string
	Score        float64
}

// Index wraps a Bleve index over document text, scoped per tenant at
// query time.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewIndex creates a search index. An empty path creates an in-memory
// index; otherwise the index is persisted at path.
func NewIndex(path string) (*Index, error) {
	var index bleve.Index
	var err error

	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &Index{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("tenant_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("document_type", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// IndexDocument adds or updates a single document
func (i *Index) IndexDocument(doc IndexedDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.index.Index(doc.ID, doc)
}

// IndexBatch indexes many documents in one batch
func (i *Index) IndexBatch(docs []IndexedDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// DeleteDocument removes a document from the index
func (i *Index) DeleteDocument(id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.index.Delete(id.String())
}

// Search runs a full-text query over a tenant's documents
func (i *Index) Search(tenantID uuid.UUID, query string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	tenantQuery := bleve.NewTermQuery(tenantID.String())
	tenantQuery.SetField("tenant_id")

	conjunction := bleve.NewConjunctionQuery(tenantQuery, matchQuery)

	searchRequest := bleve.NewSearchRequest(conjunction)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"name", "document_type"}

	searchResults, err := i.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		docID, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		h := Hit{DocumentID: docID, Score: hit.Score}
		if name, ok := hit.Fields["name"].(string); ok {
			h.Name = name
		}
		if docType, ok := hit.Fields["document_type"].(string); ok {
			h.DocumentType = docType
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count returns the number of indexed documents
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.index.DocCount()
}

// Close closes the underlying index
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.index != nil {
		return i.index.Close()
	}
	return nil
}
