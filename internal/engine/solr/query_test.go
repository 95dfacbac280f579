package solr

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternsearch/lantern/internal/engine"
)

func TestRenderParams_Filters(t *testing.T) {
	q := &engine.Query{
		Text:     "assignment",
		Fields:   []string{"id", "title"},
		RowLimit: 100,
		TermFilters: []engine.TermFilter{
			{Field: "areaid", Value: "forum-post"},
		},
		Ranges: []engine.RangeFilter{
			{Field: "modified", From: "2024-05-30T00:00:00Z", To: "*"},
		},
		OrFilters: []engine.OrFilter{
			{Field: "contextid", Values: []string{"7", "30"}},
		},
	}

	params := renderParams(q)

	assert.Equal(t, "assignment", params["q"])
	assert.Equal(t, 100, params["rows"])
	assert.Equal(t, "id,title", params["fl"])

	fq := params["fq"].([]string)
	require.Len(t, fq, 3)
	assert.Equal(t, "{!field cache=false f=areaid}forum-post", fq[0])
	assert.Equal(t, "{!cache=false}modified:[2024-05-30T00:00:00Z TO *]", fq[1])
	assert.Equal(t, "contextid:(7 OR 30)", fq[2])
}

func TestRenderParams_HighlightAndGrouping(t *testing.T) {
	q := &engine.Query{
		Text:     "x",
		RowLimit: 10,
		Highlight: engine.HighlightConfig{
			Enabled:  true,
			Fields:   []string{"content", "description1"},
			FragSize: 500,
			Pre:      "__",
			Post:     "__",
		},
		GroupField: "solr_filegroupingid",
		GroupLimit: 3,
	}

	params := renderParams(q)

	assert.Equal(t, "true", params["hl"])
	assert.Equal(t, "content,description1", params["hl.fl"])
	assert.Equal(t, 500, params["hl.fragsize"])
	assert.Equal(t, "__", params["hl.simple.pre"])
	assert.Equal(t, "__", params["hl.simple.post"])
	assert.Equal(t, "true", params["group"])
	assert.Equal(t, "solr_filegroupingid", params["group.field"])
	assert.Equal(t, 3, params["group.limit"])
}

func TestRenderParams_Minimal(t *testing.T) {
	params := renderParams(&engine.Query{Text: "x", RowLimit: 5})

	_, hasFq := params["fq"]
	_, hasHl := params["hl"]
	_, hasGroup := params["group"]
	assert.False(t, hasFq)
	assert.False(t, hasHl)
	assert.False(t, hasGroup)
}

func TestExecute_FlatResults(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{
			"responseHeader": {"status": 0, "QTime": 4},
			"response": {
				"numFound": 2,
				"docs": [
					{"id": "page-1", "title": "first"},
					{"id": "page-2", "title": "second"}
				]
			},
			"highlighting": {
				"page-1": {"content": ["__hit__ in text"]}
			}
		}`)
	})

	res, err := c.Execute(context.Background(), &engine.Query{Text: "hit", RowLimit: 100})
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Docs, 2)
	assert.Equal(t, "page-1", res.Docs[0].ID())
	assert.Equal(t, []string{"__hit__ in text"}, res.Fragments("page-1", "content"))
	assert.Empty(t, res.Groups)

	// The request body carries the params block.
	var body selectRequest
	require.NoError(t, json.Unmarshal((*seen)[0].Body, &body))
	assert.Equal(t, "hit", body.Params["q"])
	assert.Equal(t, "/solr/lantern/select", (*seen)[0].Path)
}

func TestExecute_GroupedResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{
			"responseHeader": {"status": 0},
			"grouped": {
				"solr_filegroupingid": {
					"matches": 5,
					"groups": [
						{
							"groupValue": "page-1",
							"doclist": {
								"numFound": 3,
								"docs": [
									{"id": "page-1"},
									{"id": "page-1-file2"}
								]
							}
						},
						{
							"groupValue": "page-9",
							"doclist": {"numFound": 1, "docs": [{"id": "page-9"}]}
						}
					]
				}
			}
		}`)
	})

	res, err := c.Execute(context.Background(), &engine.Query{
		Text:       "hit",
		RowLimit:   100,
		GroupField: "solr_filegroupingid",
		GroupLimit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.Total)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "page-1", res.Groups[0].Value)
	assert.Equal(t, int64(3), res.Groups[0].Total)
	require.Len(t, res.Groups[0].Docs, 2)
	assert.Equal(t, "page-1-file2", res.Groups[0].Docs[1].ID())
	assert.Equal(t, "page-9", res.Groups[1].Value)
}

func TestExecute_ServerRejection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		okJSON(w, `{"error":{"msg":"org.apache.solr.search.SyntaxError","code":400}}`)
	})

	_, err := c.Execute(context.Background(), &engine.Query{Text: "((", RowLimit: 10})
	require.Error(t, err)
}
