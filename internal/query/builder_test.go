package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
)

func TestNewBuilder_CapsMaxResults(t *testing.T) {
	assert.Equal(t, MaxResults, NewBuilder(0, false).MaxResults())
	assert.Equal(t, MaxResults, NewBuilder(-5, false).MaxResults())
	assert.Equal(t, MaxResults, NewBuilder(MaxResults+1, false).MaxResults())
	assert.Equal(t, 20, NewBuilder(20, false).MaxResults())
}

func TestBuild_HighlightingAlwaysOn(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{Text: "assignment", Contexts: AllContexts()})

	require.True(t, q.Highlight.Enabled)
	assert.Equal(t, HighlightFields, q.Highlight.Fields)
	assert.Equal(t, FragSize, q.Highlight.FragSize)
	assert.Equal(t, HighlightPre, q.Highlight.Pre)
	assert.Equal(t, HighlightPost, q.Highlight.Post)
	assert.Equal(t, MaxResults, q.RowLimit)
	assert.Equal(t, "assignment", q.Text)
}

func TestBuild_NoOptionalFilters(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{Text: "x", Contexts: AllContexts()})

	assert.Empty(t, q.TermFilters)
	assert.Empty(t, q.OrFilters)
	assert.Empty(t, q.Ranges)
	assert.Empty(t, q.GroupField)
}

func TestBuild_TitleAndAreaFilters(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{
		Text:     "x",
		Title:    "Week 1",
		AreaID:   "forum-post",
		Contexts: AllContexts(),
	})

	require.Len(t, q.TermFilters, 2)
	assert.Equal(t, engine.TermFilter{Field: document.FieldTitle, Value: "Week 1"}, q.TermFilters[0])
	assert.Equal(t, engine.TermFilter{Field: document.FieldAreaID, Value: "forum-post"}, q.TermFilters[1])
}

func TestBuild_TimeRange(t *testing.T) {
	b := NewBuilder(MaxResults, false)

	q := b.Build(&Request{Text: "x", TimeStart: 1717027200, Contexts: AllContexts()})
	require.Len(t, q.Ranges, 1)
	assert.Equal(t, document.FieldModified, q.Ranges[0].Field)
	assert.Equal(t, "2024-05-30T00:00:00Z", q.Ranges[0].From)
	assert.Equal(t, "*", q.Ranges[0].To)

	q = b.Build(&Request{Text: "x", TimeEnd: 1717027200, Contexts: AllContexts()})
	require.Len(t, q.Ranges, 1)
	assert.Equal(t, "*", q.Ranges[0].From)
	assert.Equal(t, "2024-05-30T00:00:00Z", q.Ranges[0].To)

	q = b.Build(&Request{Text: "x", Contexts: AllContexts()})
	assert.Empty(t, q.Ranges)
}

func TestBuild_ContextFilterSortedUnique(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{
		Text:   "x",
		AreaID: "forum-post",
		Contexts: &ContextMap{ByArea: map[string][]int64{
			"forum-post": {30, 7, 30, 101},
		}},
	})

	require.Len(t, q.OrFilters, 1)
	assert.Equal(t, document.FieldContextID, q.OrFilters[0].Field)
	assert.Equal(t, []string{"101", "30", "7"}, q.OrFilters[0].Values)
}

func TestBuild_ContextFilterMergesAreasWithoutAreaFilter(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{
		Text: "x",
		Contexts: &ContextMap{ByArea: map[string][]int64{
			"forum-post": {7},
			"page":       {8, 7},
		}},
	})

	require.Len(t, q.OrFilters, 1)
	assert.Equal(t, []string{"7", "8"}, q.OrFilters[0].Values)
}

func TestBuild_EmptyContextsNeverFallOpen(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	q := b.Build(&Request{
		Text:     "x",
		AreaID:   "page",
		Contexts: &ContextMap{ByArea: map[string][]int64{"forum-post": {7}}},
	})

	// The caller has no contexts in the requested area. The query must
	// still carry a restricting filter.
	require.Len(t, q.OrFilters, 1)
	assert.Equal(t, []string{"-1"}, q.OrFilters[0].Values)
}

func TestBuild_AllContextsSkipsFilter(t *testing.T) {
	b := NewBuilder(MaxResults, false)

	q := b.Build(&Request{Text: "x", Contexts: AllContexts()})
	assert.Empty(t, q.OrFilters)

	q = b.Build(&Request{Text: "x"})
	assert.Empty(t, q.OrFilters)
}

func TestBuild_FileIndexingEnablesGrouping(t *testing.T) {
	b := NewBuilder(MaxResults, true)
	q := b.Build(&Request{Text: "x", Contexts: AllContexts()})

	assert.Equal(t, document.FieldGroupingID, q.GroupField)
	assert.Equal(t, GroupLimit, q.GroupLimit)
	assert.True(t, b.FileIndexing())
}

func TestContextValues_Memoized(t *testing.T) {
	b := NewBuilder(MaxResults, false)
	req := &Request{
		Text:   "x",
		AreaID: "forum-post",
		Contexts: &ContextMap{ByArea: map[string][]int64{
			"forum-post": {3, 1, 2},
		}},
	}

	first := b.contextValues(req)
	second := b.contextValues(req)
	assert.Equal(t, []string{"1", "2", "3"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.contexts.Len())
}
