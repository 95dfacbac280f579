package bleve

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/errors"
)

// Execute runs the query, maps highlights into the engine shape, and
// assembles groups client-side when grouping is requested.
func (e *Engine) Execute(ctx context.Context, q *engine.Query) (*engine.Results, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errors.New(errors.ErrCodeEngineUnreachable, "local index is closed", nil)
	}

	size := q.RowLimit
	if q.GroupField != "" && q.GroupLimit > 0 {
		// Over-fetch so per-group truncation still leaves RowLimit
		// distinct groups worth of records.
		size = q.RowLimit * q.GroupLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), size, 0, false)
	req.Fields = []string{"*"}
	if q.Highlight.Enabled {
		req.Highlight = bleve.NewHighlightWithStyle("html")
		req.Highlight.Fields = q.Highlight.Fields
	}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEngineServer, "query failed", err)
	}

	out := &engine.Results{
		Total:        int64(res.Total),
		Highlighting: make(map[string]map[string][]string),
	}

	docs := make([]engine.RawDoc, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw := engine.RawDoc{}
		for k, v := range hit.Fields {
			raw[k] = v
		}
		raw[document.FieldID] = hit.ID
		docs = append(docs, raw)

		if len(hit.Fragments) > 0 {
			fields := make(map[string][]string, len(hit.Fragments))
			for field, frags := range hit.Fragments {
				restyled := make([]string, len(frags))
				for i, frag := range frags {
					restyled[i] = restyleFragment(frag, q.Highlight.Pre, q.Highlight.Post)
				}
				fields[field] = restyled
			}
			out.Highlighting[hit.ID] = fields
		}
	}

	if q.GroupField == "" {
		out.Docs = docs
		return out, nil
	}

	out.Groups = groupDocs(docs, q.GroupField, q.GroupLimit, q.RowLimit)
	return out, nil
}

// restyleFragment swaps bleve's html highlight markers for the
// configured delimiters.
func restyleFragment(frag, pre, post string) string {
	frag = strings.ReplaceAll(frag, "<mark>", pre)
	frag = strings.ReplaceAll(frag, "</mark>", post)
	return frag
}

// groupDocs buckets ranked docs by the grouping field, preserving rank
// order of first appearance, capping each bucket at groupLimit and the
// bucket count at rowLimit.
func groupDocs(docs []engine.RawDoc, field string, groupLimit, rowLimit int) []engine.Group {
	if groupLimit <= 0 {
		groupLimit = 1
	}
	index := make(map[string]int)
	groups := make([]engine.Group, 0)

	for _, doc := range docs {
		value := doc.String(field)
		if value == "" {
			value = doc.ID()
		}
		i, seen := index[value]
		if !seen {
			if len(groups) >= rowLimit {
				continue
			}
			index[value] = len(groups)
			groups = append(groups, engine.Group{Value: value})
			i = len(groups) - 1
		}
		groups[i].Total++
		if len(groups[i].Docs) < groupLimit {
			groups[i].Docs = append(groups[i].Docs, doc)
		}
	}
	return groups
}
