package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/lanternsearch/lantern/internal/engine"
)

// selectRequest is the JSON request API body: everything rides in the
// params block, mirroring the classic query parameters.
type selectRequest struct {
	Params map[string]any `json:"params"`
}

type selectResponse struct {
	ResponseHeader struct {
		Status int `json:"status"`
		QTime  int `json:"QTime"`
	} `json:"responseHeader"`
	Response struct {
		NumFound int64           `json:"numFound"`
		Docs     []engine.RawDoc `json:"docs"`
	} `json:"response"`
	Highlighting map[string]map[string][]string `json:"highlighting"`
	Grouped      map[string]groupedField        `json:"grouped"`
	Error        struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

type groupedField struct {
	Matches int64       `json:"matches"`
	Groups  []solrGroup `json:"groups"`
}

type solrGroup struct {
	GroupValue string `json:"groupValue"`
	DocList    struct {
		NumFound int64           `json:"numFound"`
		Docs     []engine.RawDoc `json:"docs"`
	} `json:"doclist"`
}

// Execute renders the structured query into Solr params, runs it, and
// normalizes the response.
func (c *Client) Execute(ctx context.Context, q *engine.Query) (*engine.Results, error) {
	body, err := json.Marshal(selectRequest{Params: renderParams(q)})
	if err != nil {
		return nil, err
	}

	var resp selectResponse
	if err := c.post(ctx, "/select", nil, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	res := &engine.Results{
		Total:        resp.Response.NumFound,
		Docs:         resp.Response.Docs,
		Highlighting: resp.Highlighting,
	}
	if q.GroupField != "" {
		gf, ok := resp.Grouped[q.GroupField]
		if !ok {
			return res, nil
		}
		res.Total = gf.Matches
		res.Groups = make([]engine.Group, 0, len(gf.Groups))
		for _, g := range gf.Groups {
			res.Groups = append(res.Groups, engine.Group{
				Value: g.GroupValue,
				Total: g.DocList.NumFound,
				Docs:  g.DocList.Docs,
			})
		}
	}
	return res, nil
}

// renderParams translates the backend-neutral query into Solr query
// parameters. Term and range filters ride as fq clauses; transient
// filters disable the Solr filter cache, context filters stay cacheable.
func renderParams(q *engine.Query) map[string]any {
	params := map[string]any{
		"q":    q.Text,
		"rows": q.RowLimit,
	}
	if len(q.Fields) > 0 {
		params["fl"] = strings.Join(q.Fields, ",")
	}

	var fq []string
	for _, f := range q.TermFilters {
		fq = append(fq, "{!field cache=false f="+f.Field+"}"+f.Value)
	}
	for _, r := range q.Ranges {
		fq = append(fq, "{!cache=false}"+r.Field+":["+r.From+" TO "+r.To+"]")
	}
	for _, f := range q.OrFilters {
		fq = append(fq, f.Field+":("+strings.Join(f.Values, " OR ")+")")
	}
	if len(fq) > 0 {
		params["fq"] = fq
	}

	if q.Highlight.Enabled {
		params["hl"] = "true"
		params["hl.fl"] = strings.Join(q.Highlight.Fields, ",")
		params["hl.fragsize"] = q.Highlight.FragSize
		params["hl.simple.pre"] = q.Highlight.Pre
		params["hl.simple.post"] = q.Highlight.Post
	}

	if q.GroupField != "" {
		params["group"] = "true"
		params["group.field"] = q.GroupField
		params["group.limit"] = q.GroupLimit
	}
	return params
}
