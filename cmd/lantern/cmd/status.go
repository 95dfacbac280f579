package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/checkpoint"
	"github.com/lanternsearch/lantern/internal/output"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check engine readiness and show indexing checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(os.Stdout)

			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out.Header(fmt.Sprintf("engine (%s)", cfg.Engine.Backend))
			if err := eng.Ready(ctx); err != nil {
				out.Errorf("not ready: %v", err)
				return err
			}
			out.Success("ready")

			checkpoints, err := checkpoint.Open(cfg.CheckpointPath())
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			all, err := checkpoints.All(ctx)
			if err != nil {
				return err
			}

			out.Header("areas")
			registered := areas.Areas()
			if len(registered) == 0 {
				out.Muted("no content areas registered")
			}
			for _, id := range registered {
				if ts, ok := all[id]; ok && ts > 0 {
					out.Printf("  %-24s last indexed %s\n", id,
						time.Unix(ts, 0).UTC().Format(time.RFC3339))
					delete(all, id)
				} else {
					out.Printf("  %-24s never indexed\n", id)
				}
			}

			// Checkpoints for areas that are no longer registered.
			stale := make([]string, 0, len(all))
			for id := range all {
				stale = append(stale, id)
			}
			sort.Strings(stale)
			for _, id := range stale {
				out.Muted(fmt.Sprintf("%s (unregistered, checkpoint %s)", id,
					time.Unix(all[id], 0).UTC().Format(time.RFC3339)))
			}
			return nil
		},
	}
}
