package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesYAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_url: postgres://yaml\nscrape_concurrency: 3\n"), 0o644))

	t.Setenv("SCRAPE_CONCURRENCY", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://yaml", cfg.DatabaseURL)
	require.Equal(t, 9, cfg.ScrapeConcurrency)
}

func TestLoadWithMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "progress.json", cfg.LedgerPath)
	require.Equal(t, ":8080", cfg.APIAddr)
}
