// Package bleve implements the engine interface on an embedded bleve
// index. It is the zero-infrastructure backend: no external server, no
// schema setup, and a mem-only mode for tests. Grouping is assembled
// client-side since bleve has no native result grouping.
package bleve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/errors"
)

const (
	// maxLocalFileBytes bounds how much of a file body the local
	// backend indexes. Solr delegates extraction to Tika; locally we
	// only handle text content.
	maxLocalFileBytes = 512 * 1024

	// deleteBatchSize bounds each delete-by-query round trip.
	deleteBatchSize = 1000
)

// keywordFields are matched whole, never analyzed into terms.
var keywordFields = map[string]bool{
	document.FieldID:              true,
	document.FieldAreaID:          true,
	document.FieldType:            true,
	document.FieldContextID:       true,
	document.FieldGroupingID:      true,
	document.FieldFilename:        true,
	document.FieldFileContentHash: true,
	document.FieldModified:        true,
}

// Engine is the embedded backend.
type Engine struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	log    *slog.Logger
	closed bool
}

var _ engine.Engine = (*Engine)(nil)

// New opens or creates a local index at path. An empty path creates an
// in-memory index for testing.
func New(path string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	mapping := createIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeEngineServer, "failed to open local index", err)
	}

	return &Engine{index: idx, path: path, log: log}, nil
}

func createIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	for name := range keywordFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(name, fm)
	}
	for _, name := range []string{
		document.FieldTitle,
		document.FieldContent,
		document.FieldDescription1,
		document.FieldDescription2,
		document.FieldTmpContent,
	} {
		fm := bleve.NewTextFieldMapping()
		fm.Store = true
		docMapping.AddFieldMappingsAt(name, fm)
	}
	for _, name := range []string{document.FieldItemID, document.FieldContextID, document.FieldFileID, document.FieldOwner} {
		if name == document.FieldContextID {
			continue // indexed as keyword above
		}
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		docMapping.AddFieldMappingsAt(name, fm)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// normalize coerces fields that are term-filtered into strings so exact
// matching behaves like Solr's string fields.
func normalize(fields map[string]any) map[string]any {
	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		if keywordFields[k] {
			doc[k] = fmt.Sprint(v)
			continue
		}
		doc[k] = v
	}
	return doc
}

// AddDocument indexes one exported record. Writes are visible
// immediately; the autocommit window is a Solr concern.
func (e *Engine) AddDocument(ctx context.Context, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New(errors.ErrCodeEngineUnreachable, "local index is closed", nil)
	}

	id, _ := fields[document.FieldID].(string)
	if id == "" {
		return errors.New(errors.ErrCodeMalformedDocument, "record missing id", nil)
	}
	if err := e.index.Index(id, normalize(fields)); err != nil {
		return errors.New(errors.ErrCodeEngineServer, "failed to index record", err)
	}
	return nil
}

// AddFile indexes one exported file record, reading the file body as
// plain text into the content field.
func (e *Engine) AddFile(ctx context.Context, fields map[string]any, f document.File) error {
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	if f.Content != nil {
		data, err := io.ReadAll(io.LimitReader(f.Content, maxLocalFileBytes))
		if err != nil {
			return errors.New(errors.ErrCodeEngineServer,
				fmt.Sprintf("failed to read file %d", f.ID), err)
		}
		doc[document.FieldContent] = string(data)
	}
	return e.AddDocument(ctx, doc)
}

// DeleteByID removes the record's whole grouping family.
func (e *Engine) DeleteByID(ctx context.Context, id string) error {
	return e.deleteByTerm(ctx, document.FieldGroupingID, id)
}

// DeleteEntry removes exactly one record.
func (e *Engine) DeleteEntry(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New(errors.ErrCodeEngineUnreachable, "local index is closed", nil)
	}
	if err := e.index.Delete(id); err != nil {
		return errors.New(errors.ErrCodeEngineServer, "failed to delete record", err)
	}
	return nil
}

// DeleteArea removes every record of one area.
func (e *Engine) DeleteArea(ctx context.Context, areaID string) error {
	return e.deleteByTerm(ctx, document.FieldAreaID, areaID)
}

// DeleteAll empties the index.
func (e *Engine) DeleteAll(ctx context.Context) error {
	return e.deleteMatching(ctx, bleve.NewMatchAllQuery())
}

func (e *Engine) deleteByTerm(ctx context.Context, field, value string) error {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	return e.deleteMatching(ctx, tq)
}

func (e *Engine) deleteMatching(ctx context.Context, q query.Query) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New(errors.ErrCodeEngineUnreachable, "local index is closed", nil)
	}

	for {
		req := bleve.NewSearchRequestOptions(q, deleteBatchSize, 0, false)
		req.Fields = []string{} // only ids
		res, err := e.index.SearchInContext(ctx, req)
		if err != nil {
			return errors.New(errors.ErrCodeEngineServer, "delete query failed", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := e.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := e.index.Batch(batch); err != nil {
			return errors.New(errors.ErrCodeEngineServer, "delete batch failed", err)
		}
		if len(res.Hits) < deleteBatchSize {
			return nil
		}
	}
}

// Commit is a no-op: bleve writes are durable when Batch/Index return.
func (e *Engine) Commit(ctx context.Context) error { return nil }

// Optimize is a no-op: scorch compacts segments in the background.
func (e *Engine) Optimize(ctx context.Context) error { return nil }

// Ready reports whether the index is open and answering.
func (e *Engine) Ready(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.New(errors.ErrCodeEngineUnreachable, "local index is closed", nil)
	}
	if _, err := e.index.DocCount(); err != nil {
		return errors.New(errors.ErrCodeEngineServer, "local index unavailable", err)
	}
	return nil
}

// Close releases the index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.index.Close()
}

// buildQuery renders the structured query into a bleve conjunction.
func buildQuery(q *engine.Query) query.Query {
	var clauses []query.Query

	text := strings.TrimSpace(q.Text)
	if text == "" || text == "*" || text == "*:*" {
		clauses = append(clauses, bleve.NewMatchAllQuery())
	} else {
		clauses = append(clauses, bleve.NewMatchQuery(text))
	}

	for _, f := range q.TermFilters {
		if keywordFields[f.Field] {
			tq := bleve.NewTermQuery(f.Value)
			tq.SetField(f.Field)
			clauses = append(clauses, tq)
		} else {
			// Analyzed fields (title) get a phrase match instead of a
			// raw term lookup.
			mq := bleve.NewMatchPhraseQuery(f.Value)
			mq.SetField(f.Field)
			clauses = append(clauses, mq)
		}
	}

	for _, f := range q.OrFilters {
		or := bleve.NewDisjunctionQuery()
		for _, v := range f.Values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(f.Field)
			or.AddQuery(tq)
		}
		clauses = append(clauses, or)
	}

	for _, r := range q.Ranges {
		// The fixed timestamp format sorts lexicographically in
		// chronological order, so a term range works.
		var min, max string
		if r.From != "" && r.From != "*" {
			min = r.From
		}
		if r.To != "" && r.To != "*" {
			max = r.To
		}
		inclusive := true
		tr := bleve.NewTermRangeInclusiveQuery(min, max, &inclusive, &inclusive)
		tr.SetField(r.Field)
		clauses = append(clauses, tr)
	}

	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewConjunctionQuery(clauses...)
}
