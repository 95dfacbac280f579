// Package query translates a caller's search request into the
// backend-neutral engine query: highlight configuration, exact-match
// filters, time-range and context restrictions, and the result caps.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
)

const (
	// MaxResults caps how many documents any query can return. The
	// caller cannot request more.
	MaxResults = 100

	// FragSize is the highlight fragment size in characters.
	FragSize = 500

	// GroupLimit bounds matches per grouping id in file-grouped mode,
	// so one document with many indexed files cannot fan out the page.
	GroupLimit = 3

	// HighlightPre and HighlightPost delimit highlighted fragments.
	// Chosen not to collide with legitimate content; the merge step
	// replaces field values positionally and never parses these.
	HighlightPre  = "__"
	HighlightPost = "__"

	// contextCacheSize bounds the memoized context filter sets.
	contextCacheSize = 256
)

// HighlightFields is the fixed field set eligible for highlighting.
var HighlightFields = []string{
	document.FieldContent,
	document.FieldDescription1,
	document.FieldDescription2,
}

// resultFields is what every query asks the engine to return.
var resultFields = []string{
	document.FieldID,
	document.FieldAreaID,
	document.FieldItemID,
	document.FieldType,
	document.FieldTitle,
	document.FieldContent,
	document.FieldDescription1,
	document.FieldDescription2,
	document.FieldContextID,
	document.FieldOwner,
	document.FieldModified,
	document.FieldGroupingID,
	document.FieldFileID,
	document.FieldFilename,
}

// ContextMap describes which context ids the caller may see, per area.
// All short-circuits every context restriction: the caller is trusted
// to have full access.
type ContextMap struct {
	All    bool
	ByArea map[string][]int64
}

// AllContexts is the "no restriction" sentinel.
func AllContexts() *ContextMap {
	return &ContextMap{All: true}
}

// Request is one immutable search request.
type Request struct {
	Text      string
	Title     string
	AreaID    string
	TimeStart int64
	TimeEnd   int64
	Contexts  *ContextMap
}

// Builder produces engine queries. Context filter value sets are
// memoized: access maps are stable across a user's session while the
// transient title/time filters change per query.
type Builder struct {
	maxResults   int
	fileIndexing bool
	contexts     *lru.Cache[string, []string]
}

// NewBuilder creates a builder. fileIndexing selects grouped queries.
func NewBuilder(maxResults int, fileIndexing bool) *Builder {
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}
	cache, _ := lru.New[string, []string](contextCacheSize)
	return &Builder{
		maxResults:   maxResults,
		fileIndexing: fileIndexing,
		contexts:     cache,
	}
}

// MaxResults returns the effective result cap.
func (b *Builder) MaxResults() int {
	return b.maxResults
}

// FileIndexing reports whether queries run in file-grouped mode.
func (b *Builder) FileIndexing() bool {
	return b.fileIndexing
}

// Build translates the request into an engine query.
func (b *Builder) Build(req *Request) *engine.Query {
	q := &engine.Query{
		Text:     req.Text,
		Fields:   resultFields,
		RowLimit: b.maxResults,
		Highlight: engine.HighlightConfig{
			Enabled:  true,
			Fields:   HighlightFields,
			FragSize: FragSize,
			Pre:      HighlightPre,
			Post:     HighlightPost,
		},
	}

	if req.Title != "" {
		q.TermFilters = append(q.TermFilters, engine.TermFilter{
			Field: document.FieldTitle, Value: req.Title,
		})
	}
	if req.AreaID != "" {
		q.TermFilters = append(q.TermFilters, engine.TermFilter{
			Field: document.FieldAreaID, Value: req.AreaID,
		})
	}

	if req.TimeStart != 0 || req.TimeEnd != 0 {
		from, to := "*", "*"
		if req.TimeStart != 0 {
			from = document.FormatTimeForEngine(req.TimeStart)
		}
		if req.TimeEnd != 0 {
			to = document.FormatTimeForEngine(req.TimeEnd)
		}
		q.Ranges = append(q.Ranges, engine.RangeFilter{
			Field: document.FieldModified, From: from, To: to,
		})
	}

	if values := b.contextValues(req); values != nil {
		q.OrFilters = append(q.OrFilters, engine.OrFilter{
			Field: document.FieldContextID, Values: values,
		})
	}

	if b.fileIndexing {
		q.GroupField = document.FieldGroupingID
		q.GroupLimit = GroupLimit
	}
	return q
}

// contextValues resolves the context restriction for the request: nil
// for unrestricted access, otherwise the sorted unique context ids the
// query must be confined to. This filter is the visibility boundary;
// the per-result access recheck happens after the engine answers.
func (b *Builder) contextValues(req *Request) []string {
	ctxs := req.Contexts
	if ctxs == nil || ctxs.All {
		return nil
	}

	key := contextKey(req.AreaID, ctxs)
	if cached, ok := b.contexts.Get(key); ok {
		return cached
	}

	unique := make(map[int64]struct{})
	if req.AreaID != "" {
		for _, id := range ctxs.ByArea[req.AreaID] {
			unique[id] = struct{}{}
		}
	} else {
		for _, ids := range ctxs.ByArea {
			for _, id := range ids {
				unique[id] = struct{}{}
			}
		}
	}

	values := make([]string, 0, len(unique))
	for id := range unique {
		values = append(values, strconv.FormatInt(id, 10))
	}
	sort.Strings(values)

	// No accessible contexts still restricts; it must not fall open.
	if len(values) == 0 {
		values = []string{"-1"}
	}

	b.contexts.Add(key, values)
	return values
}

// contextKey hashes the area and context map into a stable cache key.
func contextKey(areaID string, ctxs *ContextMap) string {
	areas := make([]string, 0, len(ctxs.ByArea))
	for a := range ctxs.ByArea {
		areas = append(areas, a)
	}
	sort.Strings(areas)

	var sb strings.Builder
	sb.WriteString(areaID)
	for _, a := range areas {
		sb.WriteByte(0)
		sb.WriteString(a)
		for _, id := range ctxs.ByArea[a] {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatInt(id, 10))
		}
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
