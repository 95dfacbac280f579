// Package engine defines the abstraction over the external search
// service: a structured query representation each backend renders into
// its own syntax, the raw result shapes, and the Engine interface the
// rest of the core drives.
package engine

import (
	"context"
	"strconv"

	"github.com/lanternsearch/lantern/internal/document"
)

// TermFilter restricts a field to one exact value.
type TermFilter struct {
	Field string
	Value string
}

// OrFilter restricts a field to any of a set of values.
type OrFilter struct {
	Field  string
	Values []string
}

// RangeFilter restricts a field to an inclusive range. "*" marks an
// unbounded end.
type RangeFilter struct {
	Field string
	From  string
	To    string
}

// HighlightConfig enables fragment highlighting over a field set.
type HighlightConfig struct {
	Enabled  bool
	Fields   []string
	FragSize int
	Pre      string
	Post     string
}

// Query is the backend-neutral query representation produced by the
// query builder. Filters are structured, not pre-rendered strings, so
// each backend can apply its own escaping.
type Query struct {
	Text        string
	Fields      []string
	TermFilters []TermFilter
	OrFilters   []OrFilter
	Ranges      []RangeFilter
	RowLimit    int
	Highlight   HighlightConfig

	// GroupField and GroupLimit activate grouped results: at most
	// GroupLimit records per distinct GroupField value.
	GroupField string
	GroupLimit int
}

// RawDoc is one stored record as returned by the engine. Numeric fields
// may arrive as float64 (JSON) or int64 depending on the backend.
type RawDoc map[string]any

// ID returns the record id, or "" if absent.
func (d RawDoc) ID() string {
	s, _ := d[document.FieldID].(string)
	return s
}

// String returns the named field as a string, or "" if absent or not
// string-valued.
func (d RawDoc) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int64 returns the named field as an int64, tolerating the numeric
// types different backends produce.
func (d RawDoc) Int64(field string) int64 {
	switch v := d[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Group is one grouped-result bucket: every record sharing one grouping
// field value, capped at the query's per-group limit.
type Group struct {
	Value string
	Total int64
	Docs  []RawDoc
}

// Results is the raw engine response before assembly and access
// filtering. Flat queries fill Docs; grouped queries fill Groups.
// Highlighting maps record id to field to highlighted fragments.
type Results struct {
	Total        int64
	Docs         []RawDoc
	Groups       []Group
	Highlighting map[string]map[string][]string
}

// Fragments returns the highlight fragments for one field of one record.
func (r *Results) Fragments(id, field string) []string {
	if r.Highlighting == nil {
		return nil
	}
	return r.Highlighting[id][field]
}

// Engine is the connection to one search index. Implementations own the
// transport, serialize access if it is not inherently concurrency-safe,
// and bound every call with the context deadline.
type Engine interface {
	// AddDocument writes one exported record. Visibility may lag behind
	// by the autocommit window; Commit forces it.
	AddDocument(ctx context.Context, fields map[string]any) error

	// AddFile writes one exported file record together with the file
	// body for server-side text extraction.
	AddFile(ctx context.Context, fields map[string]any, f document.File) error

	// Execute runs a query and returns the raw results.
	Execute(ctx context.Context, q *Query) (*Results, error)

	// DeleteByID removes the record with the given id and every record
	// sharing its grouping id, so deleting a text document also removes
	// its indexed file children.
	DeleteByID(ctx context.Context, id string) error

	// DeleteEntry removes exactly one record, leaving grouped siblings
	// in place. Used by file reconciliation to drop detached files.
	DeleteEntry(ctx context.Context, id string) error

	// DeleteArea removes every record belonging to one area.
	DeleteArea(ctx context.Context, areaID string) error

	// DeleteAll empties the index.
	DeleteAll(ctx context.Context) error

	// Commit makes all pending writes visible.
	Commit(ctx context.Context) error

	// Optimize defragments the index.
	Optimize(ctx context.Context) error

	// Ready verifies the engine answers and its schema fits. Checked
	// before every query execution; the remote service may have been
	// restarted or reconfigured since the connection was opened.
	Ready(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
