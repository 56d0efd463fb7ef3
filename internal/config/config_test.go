package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letwinventory/harnessgraph/internal/graph"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "harnessgraph.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, graph.ParentsIndexed, cfg.ParentIndex)
	assert.Equal(t, 64, cfg.CascadeMaxDepth)
	assert.Equal(t, 8, cfg.SubDataConcurrency)
	assert.Empty(t, cfg.File)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  path: /tmp/file.db
log:
  format: json
graph:
  parent_index: scan
cascade:
  max_depth: 10
`), 0o644))
	t.Setenv("HARNESSGRAPH_DB_PATH", "/tmp/env.db")
	t.Setenv("HARNESSGRAPH_ACTOR", "alice")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.DBPath, "env overrides file")
	assert.Equal(t, "alice", cfg.Actor)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, graph.ParentsScan, cfg.ParentIndex)
	assert.Equal(t, 10, cfg.CascadeMaxDepth)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  parent_index: guess\nsubdata:\n  concurrency: 0\n"), 0o644))

	_, err := Load(NewViper(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.parent_index")
	assert.Contains(t, err.Error(), "subdata.concurrency")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
