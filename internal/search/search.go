// Package search provides keyword search over the records of an API set.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/apigraph/internal/apiset"
)

const (
	defaultLimit = 15
	maxLimit     = 100
	batchSize    = 1000
)

// Options narrow a search. A nil *Options uses the defaults.
type Options struct {
	Limit int    // 1..100, default 15
	Kind  string // exact record kind, e.g. "objc.class"
	Path  string // wildcard over the declaring file, e.g. "*/widget.h"
}

// Result is one matching record.
type Result struct {
	USR         string   `json:"usr"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Path        string   `json:"path"`
	Declaration string   `json:"declaration"`
	Score       float64  `json:"score"`
	Highlights  []string `json:"highlights,omitempty"`
}

// Index is an in-memory bleve index over records, members included.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex // Protects index during rebuilds
}

// New indexes every record of api.
func New(ctx context.Context, api *apiset.APISet) (*Index, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	if err := indexRecords(ctx, index, api.All()); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index records: %w", err)
	}
	return &Index{index: index}, nil
}

// buildMapping creates the index mapping for record documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	text := func(analyzer string, index bool) *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = analyzer
		m.Store = true
		m.Index = index
		return m
	}

	docText := text("standard", true)
	docText.IncludeTermVectors = true // phrase search and highlighting

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("usr", text("keyword", false))
	docMapping.AddFieldMappingsAt("name", text("standard", true))
	docMapping.AddFieldMappingsAt("kind", text("keyword", true))
	docMapping.AddFieldMappingsAt("path", text("keyword", true))
	docMapping.AddFieldMappingsAt("declaration", text("standard", true))
	docMapping.AddFieldMappingsAt("doc", docText)
	docMapping.AddFieldMappingsAt("parent", text("standard", true))

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexRecords(ctx context.Context, index bleve.Index, records []*apiset.Record) error {
	batch := index.NewBatch()
	for i, r := range records {
		if i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := batch.Index(r.USR, recordToDocument(r)); err != nil {
			return fmt.Errorf("failed to add record %s to batch: %w", r.USR, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

func recordToDocument(r *apiset.Record) map[string]any {
	return map[string]any{
		"usr":         r.USR,
		"name":        r.Name,
		"kind":        string(r.Kind),
		"path":        r.Location.File,
		"declaration": r.Declaration.String(),
		"doc":         r.Comment.String(),
		"parent":      r.Parent.Name,
	}
}

// Search runs a query. A bare word matches names exactly or by prefix, and
// documentation; anything else uses bleve query string syntax
// ("name:paint kind:method", "+doc:deprecated").
func (i *Index) Search(ctx context.Context, q string, opts *Options) ([]*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	queries := []query.Query{buildQuery(q)}
	if opts.Kind != "" {
		kq := bleve.NewTermQuery(opts.Kind)
		kq.SetField("kind")
		queries = append(queries, kq)
	}
	if opts.Path != "" {
		pq := bleve.NewWildcardQuery(opts.Path)
		pq.SetField("path")
		queries = append(queries, pq)
	}
	var final query.Query = queries[0]
	if len(queries) > 1 {
		final = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(final, limit, 0, false)
	style := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &style
	req.Highlight.Fields = []string{"doc"}
	req.Fields = []string{"usr", "name", "kind", "path", "declaration"}

	i.mu.RLock()
	defer i.mu.RUnlock()

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := &Result{
			USR:        hit.ID,
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		}
		r.Name, _ = hit.Fields["name"].(string)
		r.Kind, _ = hit.Fields["kind"].(string)
		r.Path, _ = hit.Fields["path"].(string)
		r.Declaration, _ = hit.Fields["declaration"].(string)
		results = append(results, r)
	}
	return results, nil
}

func buildQuery(q string) query.Query {
	q = strings.TrimSpace(q)
	if q == "" {
		return bleve.NewMatchAllQuery()
	}
	if strings.ContainsAny(q, ": +-\"*?~") {
		return bleve.NewQueryStringQuery(q)
	}

	exact := bleve.NewMatchQuery(q)
	exact.SetField("name")
	exact.SetBoost(3)

	prefix := bleve.NewPrefixQuery(strings.ToLower(q))
	prefix.SetField("name")
	prefix.SetBoost(2)

	doc := bleve.NewMatchQuery(q)
	doc.SetField("doc")

	return bleve.NewDisjunctionQuery(exact, prefix, doc)
}

// extractHighlights keeps at most three snippets per result.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Rebuild replaces the indexed records with those of api.
func (i *Index) Rebuild(ctx context.Context, api *apiset.APISet) error {
	fresh, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}
	if err := indexRecords(ctx, fresh, api.All()); err != nil {
		fresh.Close()
		return fmt.Errorf("failed to index records: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.mu.Unlock()
	return old.Close()
}

// Count returns the number of indexed records.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index != nil {
		return i.index.Close()
	}
	return nil
}
