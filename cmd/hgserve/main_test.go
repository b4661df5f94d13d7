package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vanderheijden86/herbgraph/internal/kgstore"
	"github.com/vanderheijden86/herbgraph/pkg/config"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("HG_SERVER_ADDR", "")
	return dir
}

func TestImportCommand(t *testing.T) {
	dir := isolateConfig(t)
	tsv := filepath.Join(dir, "triples.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("s\tp\to\n人参\t属于科\t五加科\n人参\t功效\t补气\n"), 0o644))
	db := filepath.Join(dir, "kg.db")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"import", "--db", db, tsv}, &out))
	assert.Contains(t, out.String(), "Imported 2 triples")

	store, err := kgstore.Open(db)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"import", "--db", db, "--replace", tsv}, &out))
	n, err = store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "--replace drops the previous import")
}

func TestImportRequiresFile(t *testing.T) {
	isolateConfig(t)
	err := run(context.Background(), []string{"import"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "hgserve "))
}

func TestNewGeneratorWithoutKey(t *testing.T) {
	cfg := config.DefaultConfig().Server.LLM
	cfg.APIKeyEnv = "HG_TEST_MISSING_KEY"
	t.Setenv("HG_TEST_MISSING_KEY", "")
	assert.Nil(t, newGenerator(cfg, zap.NewNop()))

	t.Setenv("HG_TEST_MISSING_KEY", "sk-test")
	gen := newGenerator(cfg, zap.NewNop())
	require.NotNil(t, gen)
	assert.Equal(t, "deepseek-chat", gen.Model())
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := isolateConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{
		"--db", filepath.Join(dir, "kg.db"),
		"--addr", "127.0.0.1:0",
		"--no-watch",
		"--taxonomy", filepath.Join(dir, "missing.json"),
		"--names", filepath.Join(dir, "missing.csv"),
	}, &bytes.Buffer{})
	assert.NoError(t, err)
}
