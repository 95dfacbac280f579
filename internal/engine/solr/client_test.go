package solr

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/errors"
)

// recordedRequest captures one request the fake Solr server saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// newTestClient starts a fake Solr server and returns a client pointed
// at it. respond decides what each request gets back.
func newTestClient(t *testing.T, respond func(w http.ResponseWriter, r *recordedRequest)) (*Client, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		}
		seen = append(seen, rec)
		respond(w, &rec)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := New(Config{Host: host, Port: port, Index: "lantern"}, nil)
	require.NoError(t, err)
	return c, &seen
}

func okJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, body)
}

func TestNew_RequiresHostAndIndex(t *testing.T) {
	_, err := New(Config{Index: "core"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.Code(err))

	_, err = New(Config{Host: "localhost"}, nil)
	require.Error(t, err)
}

func TestNew_AppliesDefaults(t *testing.T) {
	c, err := New(Config{Host: "search.example.org", Index: "lantern"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, c.cfg.Port)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, AutoCommitWithin, c.cfg.AutoCommitMS)
	assert.Equal(t, "http://search.example.org:8983/solr/lantern", c.base)
}

func TestNew_SecureScheme(t *testing.T) {
	c, err := New(Config{Host: "h", Index: "i", Secure: true, Port: 443}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://h:443/solr/i", c.base)
}

func TestAddDocument_PostsWithCommitWithin(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	err := c.AddDocument(context.Background(), map[string]any{
		document.FieldID:     "page-1",
		document.FieldAreaID: "page",
	})
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/solr/lantern/update", req.Path)
	assert.Equal(t, strconv.Itoa(AutoCommitWithin), req.Query.Get("commitWithin"))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "page-1", docs[0][document.FieldID])
}

func TestDeleteByID_GroupedDeleteThenCommit(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	require.NoError(t, c.DeleteByID(context.Background(), "page-1"))

	require.Len(t, *seen, 2)
	assert.Contains(t, string((*seen)[0].Body),
		`"query":"solr_filegroupingid:\"page-1\""`)
	assert.JSONEq(t, `{"commit":{}}`, string((*seen)[1].Body))
}

func TestDeleteEntry_ExactDelete(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	require.NoError(t, c.DeleteEntry(context.Background(), "page-1-file3"))

	require.Len(t, *seen, 1)
	assert.JSONEq(t, `{"delete":{"id":"page-1-file3"}}`, string((*seen)[0].Body))
}

func TestDeleteArea_ScopedQueryThenCommit(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	require.NoError(t, c.DeleteArea(context.Background(), "forum-post"))

	require.Len(t, *seen, 2)
	assert.Contains(t, string((*seen)[0].Body), `areaid:\"forum-post\"`)
}

func TestDeleteAll_MatchAllThenCommit(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	require.NoError(t, c.DeleteAll(context.Background()))

	require.Len(t, *seen, 2)
	assert.JSONEq(t, `{"delete":{"query":"*:*"}}`, string((*seen)[0].Body))
}

func TestOptimize_SingleSegment(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	require.NoError(t, c.Optimize(context.Background()))
	assert.JSONEq(t, `{"optimize":{"maxSegments":1}}`, string((*seen)[0].Body))
}

func TestReady_PingAndSchema(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		switch r.Path {
		case "/solr/lantern/admin/ping":
			okJSON(w, `{"status":"OK"}`)
		case "/solr/lantern/schema/fields":
			fields := make([]map[string]string, 0, len(requiredFields))
			for _, name := range requiredFields {
				fields = append(fields, map[string]string{"name": name})
			}
			data, _ := json.Marshal(map[string]any{"fields": fields})
			okJSON(w, string(data))
		default:
			http.NotFound(w, nil)
		}
	})

	require.NoError(t, c.Ready(context.Background()))
	require.Len(t, *seen, 2)
}

func TestReady_MissingSchemaField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		switch r.Path {
		case "/solr/lantern/admin/ping":
			okJSON(w, `{"status":"OK"}`)
		default:
			// Schema without the grouping field.
			okJSON(w, `{"fields":[{"name":"id"},{"name":"areaid"}]}`)
		}
	})

	err := c.Ready(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSchemaInvalid, errors.Code(err))
}

func TestServerError_FirstLineOnly(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		okJSON(w, `{"error":{"msg":"undefined field bogus\n\tat org.apache.solr.Something","code":400}}`)
	})

	err := c.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEngineServer, errors.Code(err))
	assert.Contains(t, err.Error(), "undefined field bogus")
	assert.NotContains(t, err.Error(), "org.apache.solr")
	assert.False(t, errors.IsRetryable(err))
}

func TestTransportError_Unreachable(t *testing.T) {
	// A client pointed at a closed port.
	broken, err := New(Config{Host: "127.0.0.1", Port: 1, Index: "lantern",
		Timeout: 500 * time.Millisecond}, nil)
	require.NoError(t, err)

	err = broken.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsEngineUnreachable(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestAddFile_LiteralParamsAndMultipart(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *recordedRequest) {
		okJSON(w, `{"responseHeader":{"status":0}}`)
	})

	fields := map[string]any{
		document.FieldID:         "page-1-file3",
		document.FieldType:       int(document.TypeFile),
		document.FieldGroupingID: "page-1",
	}
	f := document.File{
		ID:       3,
		Filename: "notes.pdf",
		MimeType: "application/pdf",
		Content:  strings.NewReader("%PDF-1.4 fake"),
	}

	require.NoError(t, c.AddFile(context.Background(), fields, f))

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "/solr/lantern/update/extract", req.Path)
	assert.Equal(t, "page-1-file3", req.Query.Get("literal.id"))
	assert.Equal(t, "page-1", req.Query.Get("literal.solr_filegroupingid"))
	assert.Equal(t, "notes.pdf", req.Query.Get("resource.name"))
	assert.Equal(t, "application/pdf", req.Query.Get("stream.type"))
	assert.Equal(t, strconv.Itoa(AutoCommitWithin), req.Query.Get("commitWithin"))
	assert.Contains(t, string(req.Body), "%PDF-1.4 fake")
}

func TestEscapeTerm(t *testing.T) {
	assert.Equal(t, `"plain"`, escapeTerm("plain"))
	assert.Equal(t, `"say \"hi\""`, escapeTerm(`say "hi"`))
	assert.Equal(t, `"a\\b"`, escapeTerm(`a\b`))
}
