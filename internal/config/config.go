// Package config loads and validates the Lantern configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lanternsearch/lantern/internal/engine/solr"
	"github.com/lanternsearch/lantern/internal/errors"
	"github.com/lanternsearch/lantern/internal/query"
)

// Backend selects the engine implementation.
type Backend string

const (
	BackendSolr  Backend = "solr"
	BackendBleve Backend = "bleve"
)

// Config is the complete Lantern configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Engine  EngineConfig  `yaml:"engine"`
	Search  SearchConfig  `yaml:"search"`
	Indexer IndexerConfig `yaml:"indexer"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects and configures the engine backend.
type EngineConfig struct {
	Backend Backend     `yaml:"backend"`
	Solr    solr.Config `yaml:"solr"`

	// BlevePath overrides the local index location (default:
	// <data_dir>/index.bleve).
	BlevePath string `yaml:"bleve_path"`
}

// SearchConfig configures query behavior.
type SearchConfig struct {
	// MaxResults caps returned documents per query (hard max 100).
	MaxResults int `yaml:"max_results"`

	// FileIndexing enables file indexing and grouped queries.
	FileIndexing bool `yaml:"file_indexing"`
}

// IndexerConfig configures indexing passes.
type IndexerConfig struct {
	// Workers caps concurrent area passes.
	Workers int `yaml:"workers"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Engine: EngineConfig{
			Backend: BackendBleve,
			Solr: solr.Config{
				Port:    solr.DefaultPort,
				Timeout: solr.DefaultTimeout,
			},
		},
		Search: SearchConfig{
			MaxResults:   query.MaxResults,
			FileIndexing: true,
		},
		Indexer: IndexerConfig{
			Workers: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lantern"
	}
	return filepath.Join(home, ".lantern")
}

// Load reads the config file at path, falling back to defaults when
// path is empty or the file does not exist. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeConfigNotFound,
					fmt.Sprintf("cannot read config %s", path), err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("cannot parse config %s", path), err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays LANTERN_* environment variables. Env wins over the
// file so deployments can point one config at several engines.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LANTERN_ENGINE"); v != "" {
		cfg.Engine.Backend = Backend(v)
	}
	if v := os.Getenv("LANTERN_SOLR_HOST"); v != "" {
		cfg.Engine.Solr.Host = v
	}
	if v := os.Getenv("LANTERN_SOLR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Solr.Port = port
		}
	}
	if v := os.Getenv("LANTERN_SOLR_INDEX"); v != "" {
		cfg.Engine.Solr.Index = v
	}
	if v := os.Getenv("LANTERN_SOLR_USERNAME"); v != "" {
		cfg.Engine.Solr.Username = v
	}
	if v := os.Getenv("LANTERN_SOLR_PASSWORD"); v != "" {
		cfg.Engine.Solr.Password = v
	}
	if v := os.Getenv("LANTERN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LANTERN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

// Validate rejects configurations the rest of the system cannot run on.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case BackendSolr:
		if c.Engine.Solr.Host == "" || c.Engine.Solr.Index == "" {
			return errors.New(errors.ErrCodeConfigInvalid,
				"solr backend requires engine.solr.host and engine.solr.index", nil)
		}
	case BackendBleve:
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown engine backend %q", c.Engine.Backend), nil)
	}

	if c.Search.MaxResults < 0 || c.Search.MaxResults > query.MaxResults {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.max_results must be between 1 and %d", query.MaxResults), nil)
	}
	if c.Engine.Solr.Timeout < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "engine.solr.timeout must be positive", nil)
	}
	return nil
}

// BlevePath resolves the local index location.
func (c *Config) BlevePath() string {
	if c.Engine.BlevePath != "" {
		return c.Engine.BlevePath
	}
	return filepath.Join(c.DataDir, "index.bleve")
}

// CheckpointPath resolves the checkpoint database location.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.DataDir, "checkpoints.db")
}

// LockPath resolves the indexing pass lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".pass.lock")
}

// SolrTimeout returns the engine call timeout with the default applied.
func (c *Config) SolrTimeout() time.Duration {
	if c.Engine.Solr.Timeout > 0 {
		return c.Engine.Solr.Timeout
	}
	return solr.DefaultTimeout
}
