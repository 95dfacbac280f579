// Package indexer drives indexing passes: it exports documents to the
// engine, keeps each document's indexed file records consistent with the
// files actually attached to it, and records per-area checkpoints so
// incremental passes can resume.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/lanternsearch/lantern/internal/area"
	"github.com/lanternsearch/lantern/internal/checkpoint"
	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/errors"
	"github.com/lanternsearch/lantern/internal/query"
)

// DefaultWorkers bounds how many areas index in parallel. Each area's
// pass is sequential; independent areas may overlap.
const DefaultWorkers = 2

// Options configures an Indexer.
type Options struct {
	// FileIndexing enables per-document file reconciliation.
	FileIndexing bool

	// Workers caps concurrent area passes (default DefaultWorkers).
	Workers int

	// LockPath is the cross-process pass lock file. Empty disables
	// locking (tests).
	LockPath string
}

// Stats summarizes one indexing pass.
type Stats struct {
	Areas     int
	Documents int
	Files     int
	Deletes   int
	Failures  int
}

func (s *Stats) add(o Stats) {
	s.Areas += o.Areas
	s.Documents += o.Documents
	s.Files += o.Files
	s.Deletes += o.Deletes
	s.Failures += o.Failures
}

// Indexer writes documents and their file records into the engine.
type Indexer struct {
	eng         engine.Engine
	areas       *area.Registry
	files       area.FileStore
	checkpoints *checkpoint.Store
	opts        Options
	log         *slog.Logger
}

// New creates an indexer. checkpoints may be nil when the caller drives
// its own cursor; files may be nil when file indexing is disabled.
func New(eng engine.Engine, areas *area.Registry, files area.FileStore, checkpoints *checkpoint.Store, opts Options, log *slog.Logger) *Indexer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		eng:         eng,
		areas:       areas,
		files:       files,
		checkpoints: checkpoints,
		opts:        opts,
		log:         log,
	}
}

// Add indexes one text document and reconciles its attached files when
// file indexing is enabled. Re-adding an unchanged document is a safe
// no-op at the content level: the engine overwrites by id and the file
// reconciliation skips unchanged files.
func (ix *Indexer) Add(ctx context.Context, d *document.Document) error {
	if d.Type != document.TypeText {
		return errors.New(errors.ErrCodeMalformedDocument,
			fmt.Sprintf("only text documents can be added directly, got type %d", d.Type), nil).
			WithDetail("id", d.ID)
	}

	rec, err := d.ExportForEngine()
	if err != nil {
		return err
	}
	if err := ix.eng.AddDocument(ctx, rec); err != nil {
		return err
	}

	if ix.opts.FileIndexing && ix.files != nil {
		return ix.ReconcileFiles(ctx, d)
	}
	return nil
}

// fileState is what the index currently knows about one file record.
type fileState struct {
	engineID    string
	fileID      int64
	modified    int64
	title       string
	contentHash string
}

// ReconcileFiles diffs the document's attached files against its
// indexed file records: unchanged files are skipped, detached records
// are deleted, and everything else is (re)indexed. Each file is an
// independent operation; one failure never rolls back or blocks its
// siblings. Only an unreachable engine aborts the remainder.
func (ix *Indexer) ReconcileFiles(ctx context.Context, d *document.Document) error {
	attached, err := ix.files.AttachedFiles(ctx, d)
	if err != nil {
		return errors.New(errors.ErrCodeProviderFailure,
			fmt.Sprintf("failed to list files for %s", d.ID), err)
	}

	working := make(map[int64]document.File, len(attached))
	for _, f := range attached {
		working[f.ID] = f
	}

	var failures int

	// A brand-new document has no prior index state to reconcile.
	if !d.New {
		states, err := ix.indexedFiles(ctx, d)
		if err != nil {
			return err
		}
		for _, st := range states {
			f, stillAttached := working[st.fileID]
			if stillAttached {
				if st.modified >= f.Modified &&
					st.title == f.Filename &&
					st.contentHash == f.ContentHash {
					// Unchanged: leave the index alone.
					ix.log.Debug("file_unchanged",
						slog.String("id", st.engineID))
					delete(working, st.fileID)
				}
				// Changed files stay in the working set and get
				// overwritten by the add below. No delete-then-add.
				continue
			}

			// No longer attached: drop the stale record now.
			ix.log.Debug("file_detached", slog.String("id", st.engineID))
			if err := ix.eng.DeleteEntry(ctx, st.engineID); err != nil {
				if errors.IsEngineUnreachable(err) {
					return err
				}
				failures++
				ix.log.Warn("file_delete_failed",
					slog.String("id", st.engineID),
					slog.String("error", err.Error()))
			}
		}
	}

	// Index the remaining new or changed files in a stable order.
	ids := make([]int64, 0, len(working))
	for id := range working {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		f := working[id]
		rec, err := d.ExportFileForEngine(f)
		if err != nil {
			failures++
			ix.log.Warn("file_export_failed",
				slog.String("docid", d.ID),
				slog.Int64("fileid", f.ID),
				slog.String("error", err.Error()))
			continue
		}
		ix.log.Debug("file_indexing", slog.Any("id", rec[document.FieldID]))
		if err := ix.eng.AddFile(ctx, rec, f); err != nil {
			if errors.IsEngineUnreachable(err) {
				return err
			}
			failures++
			ix.log.Warn("file_add_failed",
				slog.String("docid", d.ID),
				slog.Int64("fileid", f.ID),
				slog.String("error", err.Error()))
		}
	}

	if failures > 0 {
		ix.log.Warn("file_reconcile_partial",
			slog.String("docid", d.ID),
			slog.Int("failures", failures))
	}
	return nil
}

// indexedFiles queries the engine for the file records grouped under
// this document.
func (ix *Indexer) indexedFiles(ctx context.Context, d *document.Document) ([]fileState, error) {
	grouping := d.GroupingID
	if grouping == "" {
		grouping = d.ID
	}

	q := &engine.Query{
		Text: "*",
		Fields: []string{
			document.FieldID,
			document.FieldFileID,
			document.FieldModified,
			document.FieldTitle,
			document.FieldFileContentHash,
		},
		TermFilters: []engine.TermFilter{
			{Field: document.FieldGroupingID, Value: grouping},
			{Field: document.FieldType, Value: fmt.Sprint(int(document.TypeFile))},
		},
		RowLimit: query.MaxResults,
	}

	res, err := ix.eng.Execute(ctx, q)
	if err != nil {
		return nil, err
	}

	states := make([]fileState, 0, len(res.Docs))
	for _, raw := range res.Docs {
		modified, _ := document.ImportTimeFromEngine(raw.String(document.FieldModified))
		states = append(states, fileState{
			engineID:    raw.ID(),
			fileID:      raw.Int64(document.FieldFileID),
			modified:    modified,
			title:       raw.String(document.FieldTitle),
			contentHash: raw.String(document.FieldFileContentHash),
		})
	}
	return states, nil
}

// IndexArea runs one pass over a single area: every document modified
// at or after since. Malformed documents and server-side rejections are
// isolated per document; an unreachable engine aborts the pass. The
// pass ends with an explicit commit and a checkpoint update.
func (ix *Indexer) IndexArea(ctx context.Context, areaID string, since int64) (Stats, error) {
	provider, ok := ix.areas.Lookup(areaID)
	if !ok {
		return Stats{}, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("area %q is not registered", areaID), nil)
	}

	passStart := time.Now().Unix()
	stats := Stats{Areas: 1}

	ix.log.Info("area_pass_started",
		slog.String("areaid", areaID),
		slog.Int64("since", since))

	err := provider.EachDocument(ctx, since, func(d *document.Document) error {
		if err := ix.Add(ctx, d); err != nil {
			if errors.IsEngineUnreachable(err) {
				// No point continuing against a dead connection.
				return err
			}
			stats.Failures++
			ix.log.Warn("document_index_failed",
				slog.String("id", d.ID),
				slog.String("areaid", areaID),
				slog.String("error", err.Error()))
			return nil
		}
		stats.Documents++
		stats.Files += len(d.Files)
		return nil
	})
	if err != nil {
		return stats, err
	}

	// Force visibility at the end of the pass; adds only autocommit
	// within the bounded window.
	if err := ix.eng.Commit(ctx); err != nil {
		return stats, err
	}

	if ix.checkpoints != nil {
		if err := ix.checkpoints.Set(ctx, areaID, passStart); err != nil {
			ix.log.Warn("checkpoint_write_failed",
				slog.String("areaid", areaID),
				slog.String("error", err.Error()))
		}
	}

	ix.log.Info("area_pass_completed",
		slog.String("areaid", areaID),
		slog.Int("documents", stats.Documents),
		slog.Int("failures", stats.Failures))
	return stats, nil
}

// IndexAll runs passes over every registered area, at most Workers at a
// time. When since is negative, each area resumes from its checkpoint.
// A cross-process lock prevents overlapping passes on the same data
// directory.
func (ix *Indexer) IndexAll(ctx context.Context, since int64) (Stats, error) {
	unlock, err := ix.acquireLock()
	if err != nil {
		return Stats{}, err
	}
	defer unlock()

	var mu sync.Mutex
	var total Stats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)

	for _, areaID := range ix.areas.Areas() {
		g.Go(func() error {
			areaSince := since
			if areaSince < 0 {
				areaSince = 0
				if ix.checkpoints != nil {
					if ts, err := ix.checkpoints.Get(gctx, areaID); err == nil {
						areaSince = ts
					}
				}
			}

			stats, err := ix.IndexArea(gctx, areaID, areaSince)
			mu.Lock()
			total.add(stats)
			mu.Unlock()
			return err
		})
	}

	err = g.Wait()
	return total, err
}

// acquireLock takes the cross-process pass lock, failing fast when
// another pass holds it.
func (ix *Indexer) acquireLock() (func(), error) {
	if ix.opts.LockPath == "" {
		return func() {}, nil
	}

	lock := flock.New(ix.opts.LockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to acquire pass lock", err)
	}
	if !acquired {
		return nil, errors.New(errors.ErrCodeLockHeld,
			"another indexing pass is already running", nil).
			WithDetail("lock", ix.opts.LockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			ix.log.Warn("pass_lock_release_failed", slog.String("error", err.Error()))
		}
	}, nil
}
