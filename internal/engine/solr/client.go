// Package solr implements the engine interface against an Apache Solr
// server using its JSON HTTP API. One Client holds one cached HTTP
// connection pool per configuration; every call is bounded by the
// configured timeout and the caller's context.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/errors"
)

const (
	// DefaultPort is the standard Solr port.
	DefaultPort = 8983

	// DefaultTimeout bounds every engine call.
	DefaultTimeout = 30 * time.Second

	// AutoCommitWithin is the bounded visibility window for adds, in
	// milliseconds. Trades index visibility latency for throughput; an
	// explicit Commit forces immediate visibility.
	AutoCommitWithin = 15000
)

// Config holds the Solr connection settings.
type Config struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Index    string        `yaml:"index"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Secure   bool          `yaml:"secure"`
	Timeout  time.Duration `yaml:"timeout"`

	// AutoCommitMS overrides AutoCommitWithin when positive.
	AutoCommitMS int `yaml:"autocommit_ms"`
}

// Client is the Solr engine adapter.
type Client struct {
	cfg  Config
	base string
	http *http.Client
	log  *slog.Logger
}

// Compile-time interface check.
var _ engine.Engine = (*Client)(nil)

// New creates a Solr client for the configured core. The connection is
// lazy; nothing is contacted until the first call.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Host == "" || cfg.Index == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			"solr host and index name are required", nil)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AutoCommitMS == 0 {
		cfg.AutoCommitMS = AutoCommitWithin
	}
	if log == nil {
		log = slog.Default()
	}

	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s:%d/solr/%s", scheme, cfg.Host, cfg.Port, cfg.Index)

	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// AddDocument posts one record to /update with the autocommit window.
func (c *Client) AddDocument(ctx context.Context, fields map[string]any) error {
	params := url.Values{"commitWithin": {fmt.Sprint(c.cfg.AutoCommitMS)}}
	body, err := json.Marshal([]map[string]any{fields})
	if err != nil {
		return errors.New(errors.ErrCodeInternal, "marshal document", err)
	}
	if err := c.post(ctx, "/update", params, "application/json", bytes.NewReader(body), nil); err != nil {
		return err
	}
	c.log.Debug("solr_document_added", slog.Any("id", fields[document.FieldID]))
	return nil
}

// DeleteByID removes the record and everything sharing its grouping id,
// then commits. Implemented as a delete-by-query against the grouping
// field so a text document takes its file children with it.
func (c *Client) DeleteByID(ctx context.Context, id string) error {
	q := document.FieldGroupingID + ":" + escapeTerm(id)
	if err := c.deleteByQuery(ctx, q); err != nil {
		return err
	}
	return c.Commit(ctx)
}

// DeleteEntry removes exactly one record by id, leaving grouped
// siblings in place.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	body, _ := json.Marshal(map[string]any{"delete": map[string]string{"id": id}})
	return c.post(ctx, "/update", nil, "application/json", bytes.NewReader(body), nil)
}

// DeleteArea removes every record belonging to one area and commits.
func (c *Client) DeleteArea(ctx context.Context, areaID string) error {
	if err := c.deleteByQuery(ctx, document.FieldAreaID+":"+escapeTerm(areaID)); err != nil {
		return err
	}
	return c.Commit(ctx)
}

// DeleteAll empties the index and commits.
func (c *Client) DeleteAll(ctx context.Context) error {
	if err := c.deleteByQuery(ctx, "*:*"); err != nil {
		return err
	}
	return c.Commit(ctx)
}

func (c *Client) deleteByQuery(ctx context.Context, query string) error {
	body, _ := json.Marshal(map[string]any{"delete": map[string]string{"query": query}})
	return c.post(ctx, "/update", nil, "application/json", bytes.NewReader(body), nil)
}

// Commit makes all pending writes visible.
func (c *Client) Commit(ctx context.Context) error {
	body := []byte(`{"commit":{}}`)
	return c.post(ctx, "/update", nil, "application/json", bytes.NewReader(body), nil)
}

// Optimize defragments the index down to one segment.
func (c *Client) Optimize(ctx context.Context) error {
	body := []byte(`{"optimize":{"maxSegments":1}}`)
	return c.post(ctx, "/update", nil, "application/json", bytes.NewReader(body), nil)
}

// Ping checks that the server answers for this core.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/admin/ping", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "OK") {
		return errors.New(errors.ErrCodeEngineServer,
			fmt.Sprintf("ping returned status %q", resp.Status), nil)
	}
	return nil
}

// Ready verifies the server answers and the schema carries the fields
// this core writes. Re-run before every query execution: the remote
// service may have restarted or been reconfigured while idle.
func (c *Client) Ready(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	return c.validateSchema(ctx)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// post sends a request body and decodes the Solr envelope into out when
// out is non-nil.
func (c *Client) post(ctx context.Context, path string, params url.Values, contentType string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodPost, path, params, contentType, body, out)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, "", nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, contentType string, body io.Reader, out any) error {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.New(errors.ErrCodeInternal, "build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.New(errors.ErrCodeEngineServer,
				"undecodable engine response", err)
		}
	}
	return nil
}

// transportError maps client-side failures: these abort the remainder of
// an indexing batch and are retryable by the caller.
func transportError(ctx context.Context, err error) error {
	code := errors.ErrCodeEngineUnreachable
	if ctx.Err() == context.DeadlineExceeded {
		code = errors.ErrCodeEngineTimeout
	} else if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		code = errors.ErrCodeEngineTimeout
	}
	return errors.New(code, "engine unreachable", err)
}

// serverError maps a Solr rejection. Only the first line of the message
// is kept; the rest is a Java stack trace.
func serverError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Msg  string `json:"msg"`
			Code int    `json:"code"`
		} `json:"error"`
	}
	msg := fmt.Sprintf("engine returned HTTP %d", status)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Msg != "" {
		msg = firstLine(envelope.Error.Msg)
	}
	return errors.New(errors.ErrCodeEngineServer, msg, nil).
		WithDetail("status", fmt.Sprint(status))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// escapeTerm quotes a term value for use inside a Solr query expression.
func escapeTerm(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
