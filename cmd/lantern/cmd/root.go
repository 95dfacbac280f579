// Package cmd provides the CLI commands for Lantern.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/area"
	"github.com/lanternsearch/lantern/internal/config"
	"github.com/lanternsearch/lantern/internal/engine"
	blevengine "github.com/lanternsearch/lantern/internal/engine/bleve"
	"github.com/lanternsearch/lantern/internal/engine/solr"
	"github.com/lanternsearch/lantern/internal/logging"
	"github.com/lanternsearch/lantern/internal/output"
	"github.com/lanternsearch/lantern/pkg/version"
)

var (
	cfgPath   string
	debugMode bool

	cfg            *config.Config
	log            *slog.Logger
	loggingCleanup func()

	// areas holds the providers registered by the embedding
	// application. The stock binary ships with none; engine
	// maintenance commands work regardless.
	areas = area.NewRegistry()

	// fileStore resolves attached files during indexing passes.
	fileStore area.FileStore
)

// RegisterArea exposes provider registration to embedding applications
// that build their own binary around this command tree. Registration
// must happen before Execute.
func RegisterArea(p area.Provider) error {
	return areas.Register(p)
}

// SetFileStore installs the file store used for file indexing.
func SetFileStore(fs area.FileStore) {
	fileStore = fs
}

// NewRootCmd creates the root command for the lantern CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lantern",
		Short: "Pluggable full-text search indexing and query engine",
		Long: `Lantern indexes documents and their attached files into a search
engine (Apache Solr, or an embedded local index) and serves ranked,
highlighted, access-checked results.

Content areas are registered by the embedding application; the stock
binary provides the operational surface: indexing passes, queries,
index maintenance, and health checks.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}

			logCfg := logging.Config{
				Level:         cfg.Logging.Level,
				FilePath:      cfg.Logging.FilePath,
				WriteToStderr: false,
			}
			if debugMode {
				logCfg.Level = "debug"
				logCfg.WriteToStderr = true
			}
			log, loggingCleanup, err = logging.Setup(logCfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggingCleanup != nil {
				loggingCleanup()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newOptimizeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI. It returns an error on any unrecovered failure
// so main can exit non-zero.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		output.New(os.Stderr).Errorf("%v", err)
		return err
	}
	return nil
}

// buildEngine constructs the configured engine backend.
func buildEngine() (engine.Engine, error) {
	switch cfg.Engine.Backend {
	case config.BackendSolr:
		return solr.New(cfg.Engine.Solr, log)
	case config.BackendBleve:
		return blevengine.New(cfg.BlevePath(), log)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}
}
