package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAppliedWithoutConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Pagination.MaxFirst)
	assert.Equal(t, 20, cfg.Pagination.DefaultFirst)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Sibling.Users.Timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: "postgres://localhost/ugc"
pagination:
  max_first: 50
query:
  max_depth: 6
  max_complexity: 200
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/ugc", cfg.Database.URL)
	assert.Equal(t, 50, cfg.Pagination.MaxFirst)
	assert.Equal(t, 6, cfg.Query.MaxDepth)
	assert.Equal(t, 200, cfg.Query.MaxComplexity)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20, cfg.Pagination.DefaultFirst)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
`), 0o644))

	t.Setenv("UGC_SERVER_ADDR", ":7070")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}
