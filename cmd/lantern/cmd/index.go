package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/checkpoint"
	"github.com/lanternsearch/lantern/internal/errors"
	"github.com/lanternsearch/lantern/internal/indexer"
	"github.com/lanternsearch/lantern/internal/output"
)

func newIndexCmd() *cobra.Command {
	var (
		areaID string
		since  string
		full   bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run an indexing pass over registered content areas",
		Long: `Index every registered content area into the engine.

By default each area resumes from its checkpoint (everything modified
since the last completed pass). Use --full to reindex from the
beginning, --since to pick an explicit cutoff, and --area to restrict
the pass to one area. --force deletes the area's existing records
before indexing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if full && since != "" {
				return fmt.Errorf("--full and --since are mutually exclusive")
			}
			if len(areas.Areas()) == 0 {
				return fmt.Errorf("no content areas registered")
			}

			cutoff := int64(-1) // resume from checkpoints
			if full {
				cutoff = 0
			}
			if since != "" {
				ts, err := parseSince(since)
				if err != nil {
					return err
				}
				cutoff = ts
			}

			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			// Wait out a transiently unreachable engine before the pass.
			if err := errors.Retry(ctx, errors.DefaultRetryConfig(), func() error {
				return eng.Ready(ctx)
			}); err != nil {
				return err
			}

			checkpoints, err := checkpoint.Open(cfg.CheckpointPath())
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			ix := indexer.New(eng, areas, fileStore, checkpoints, indexer.Options{
				FileIndexing: cfg.Search.FileIndexing,
				Workers:      cfg.Indexer.Workers,
				LockPath:     cfg.LockPath(),
			}, log)

			out := output.New(os.Stdout)

			if force {
				if areaID != "" {
					if err := eng.DeleteArea(ctx, areaID); err != nil {
						return err
					}
					if err := checkpoints.Delete(ctx, areaID); err != nil {
						return err
					}
				} else {
					if err := eng.DeleteAll(ctx); err != nil {
						return err
					}
					if err := checkpoints.DeleteAll(ctx); err != nil {
						return err
					}
				}
				out.Warning("existing index data cleared")
			}

			start := time.Now()
			var stats indexer.Stats
			if areaID != "" {
				areaSince := cutoff
				if areaSince < 0 {
					areaSince, _ = checkpoints.Get(ctx, areaID)
				}
				stats, err = ix.IndexArea(ctx, areaID, areaSince)
			} else {
				stats, err = ix.IndexAll(ctx, cutoff)
			}
			if err != nil {
				return err
			}

			out.Successf("indexed %d documents (%d files) across %d areas in %s",
				stats.Documents, stats.Files, stats.Areas, time.Since(start).Round(time.Millisecond))
			if stats.Failures > 0 {
				out.Warning(fmt.Sprintf("%d documents failed; see logs", stats.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&areaID, "area", "", "Restrict the pass to one area")
	cmd.Flags().StringVar(&since, "since", "", "Cutoff timestamp (epoch seconds or RFC3339)")
	cmd.Flags().BoolVar(&full, "full", false, "Reindex everything, ignoring checkpoints")
	cmd.Flags().BoolVar(&force, "force", false, "Delete existing records before indexing")

	return cmd
}

// parseSince accepts epoch seconds or an RFC3339 timestamp.
func parseSince(s string) (int64, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid --since value %q: use epoch seconds or RFC3339", s)
	}
	return t.Unix(), nil
}
