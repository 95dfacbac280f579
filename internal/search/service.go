// Package search is the query-side façade: it verifies engine
// readiness, builds the engine query, and assembles access-checked
// results in flat or file-grouped mode.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/lanternsearch/lantern/internal/area"
	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/errors"
	"github.com/lanternsearch/lantern/internal/query"
	"github.com/lanternsearch/lantern/internal/result"
)

// Service executes search requests end to end.
type Service struct {
	eng     engine.Engine
	builder *query.Builder
	asm     *result.Assembler
	log     *slog.Logger
}

// New creates a search service.
func New(eng engine.Engine, areas *area.Registry, builder *query.Builder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		eng:     eng,
		builder: builder,
		asm:     result.New(areas, eng, builder.MaxResults(), log),
		log:     log,
	}
}

// Search runs one query. Engine failures surface as the returned error
// with an empty result slice; they never panic through to the caller.
// Readiness is re-verified on every execution since the engine may have
// restarted or been reconfigured while the connection sat idle.
func (s *Service) Search(ctx context.Context, req *query.Request) ([]*document.Document, error) {
	if err := s.eng.Ready(ctx); err != nil {
		return nil, errors.New(errors.ErrCodeEngineNotReady, "engine is not ready", err)
	}

	start := time.Now()
	q := s.builder.Build(req)

	res, err := s.eng.Execute(ctx, q)
	if err != nil {
		s.log.Warn("query_failed",
			slog.String("text", req.Text),
			slog.String("error", err.Error()))
		return nil, err
	}

	var docs []*document.Document
	if s.builder.FileIndexing() {
		docs = s.asm.Grouped(ctx, res)
	} else {
		docs = s.asm.Flat(ctx, res)
	}

	s.log.Debug("query_completed",
		slog.Int64("total", res.Total),
		slog.Int("returned", len(docs)),
		slog.Duration("elapsed", time.Since(start)))
	return docs, nil
}
