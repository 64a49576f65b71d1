package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Database string            `json:"database"`
	Workers  int               `json:"workers"`
	Limits   map[string]string `json:"limits"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		database: "mtg.db",
		workers: 4,
		limits: {get_deck: "10/m"},
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{workers: 8}`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "mtg.db", cfg.Database)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "10/m", cfg.Limits["get_deck"])
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestMerge(t *testing.T) {
	base := testConfig{Database: "a.db", Limits: map[string]string{"x": "1/s"}}
	merged, err := Merge(base, []byte(`{limits: {y: "2/s"}}`))
	require.NoError(t, err)
	require.Equal(t, "a.db", merged.Database)
	require.Equal(t, map[string]string{"x": "1/s", "y": "2/s"}, merged.Limits)
}
