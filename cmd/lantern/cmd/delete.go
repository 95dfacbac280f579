package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/checkpoint"
	"github.com/lanternsearch/lantern/internal/output"
)

func newDeleteCmd() *cobra.Command {
	var (
		areaID string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete indexed records",
		Long: `Delete every record of one area (--area), or empty the whole
index (--all). The affected checkpoints are reset so the next pass
starts from the beginning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all == (areaID != "") {
				return fmt.Errorf("exactly one of --area or --all is required")
			}

			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			checkpoints, err := checkpoint.Open(cfg.CheckpointPath())
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			out := output.New(os.Stdout)
			if all {
				if err := eng.DeleteAll(ctx); err != nil {
					return err
				}
				if err := checkpoints.DeleteAll(ctx); err != nil {
					return err
				}
				out.Success("index emptied")
				return nil
			}

			if err := eng.DeleteArea(ctx, areaID); err != nil {
				return err
			}
			if err := checkpoints.Delete(ctx, areaID); err != nil {
				return err
			}
			out.Successf("deleted all records for area %s", areaID)
			return nil
		},
	}

	cmd.Flags().StringVar(&areaID, "area", "", "Delete one area's records")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every record")

	return cmd
}
