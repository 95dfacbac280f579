package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternsearch/lantern/internal/errors"
	"github.com/lanternsearch/lantern/internal/query"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, BackendBleve, cfg.Engine.Backend)
	assert.Equal(t, 8983, cfg.Engine.Solr.Port)
	assert.Equal(t, 30*time.Second, cfg.Engine.Solr.Timeout)
	assert.Equal(t, query.MaxResults, cfg.Search.MaxResults)
	assert.True(t, cfg.Search.FileIndexing)
	assert.Equal(t, 2, cfg.Indexer.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendBleve, cfg.Engine.Backend)
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lantern.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/lantern
engine:
  backend: solr
  solr:
    host: search.example.org
    index: lantern
    username: indexer
search:
  max_results: 50
  file_indexing: false
indexer:
  workers: 4
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/lantern", cfg.DataDir)
	assert.Equal(t, BackendSolr, cfg.Engine.Backend)
	assert.Equal(t, "search.example.org", cfg.Engine.Solr.Host)
	assert.Equal(t, "lantern", cfg.Engine.Solr.Index)
	assert.Equal(t, "indexer", cfg.Engine.Solr.Username)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.False(t, cfg.Search.FileIndexing)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not: a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.Code(err))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lantern.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  backend: solr
  solr:
    host: from-file
    index: lantern
`), 0644))

	t.Setenv("LANTERN_SOLR_HOST", "from-env")
	t.Setenv("LANTERN_SOLR_PORT", "9999")
	t.Setenv("LANTERN_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Engine.Solr.Host)
	assert.Equal(t, 9999, cfg.Engine.Solr.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate_SolrRequiresHostAndIndex(t *testing.T) {
	cfg := NewConfig()
	cfg.Engine.Backend = BackendSolr

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.Code(err))

	cfg.Engine.Solr.Host = "h"
	cfg.Engine.Solr.Index = "i"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := NewConfig()
	cfg.Engine.Backend = "elasticsearch"
	assert.Error(t, cfg.Validate())
}

func TestValidate_MaxResultsBounds(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.MaxResults = query.MaxResults + 1
	assert.Error(t, cfg.Validate())

	cfg.Search.MaxResults = query.MaxResults
	assert.NoError(t, cfg.Validate())
}

func TestPathHelpers(t *testing.T) {
	cfg := NewConfig()
	cfg.DataDir = "/data/lantern"

	assert.Equal(t, filepath.Join("/data/lantern", "index.bleve"), cfg.BlevePath())
	assert.Equal(t, filepath.Join("/data/lantern", "checkpoints.db"), cfg.CheckpointPath())
	assert.Equal(t, filepath.Join("/data/lantern", ".pass.lock"), cfg.LockPath())

	cfg.Engine.BlevePath = "/elsewhere/idx"
	assert.Equal(t, "/elsewhere/idx", cfg.BlevePath())
}

func TestSolrTimeout_DefaultApplied(t *testing.T) {
	cfg := NewConfig()
	cfg.Engine.Solr.Timeout = 0
	assert.Equal(t, 30*time.Second, cfg.SolrTimeout())

	cfg.Engine.Solr.Timeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, cfg.SolrTimeout())
}
