package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/output"
)

func newOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Defragment the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Optimize(cmd.Context()); err != nil {
				return err
			}
			output.New(os.Stdout).Success("optimize requested")
			return nil
		},
	}
}
