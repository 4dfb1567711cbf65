package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Name        string  `json:"name"`
	Attempts    int     `json:"attempts" validate:"gte=0"`
	Probability float64 `json:"probability" validate:"gte=0,lte=1"`
}

func TestReadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.json5")

	require.NoError(t, os.WriteFile(name, []byte(`{
		// comments and trailing commas are allowed
		name: "base",
		attempts: 5,
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.json5"), []byte(`{probability: 0.25}`), 0600))

	cfg, err := ReadConfig(name, sampleConfig{Attempts: 3})
	require.NoError(t, err)
	require.Equal(t, sampleConfig{Name: "base", Attempts: 5, Probability: 0.25}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	defaults := sampleConfig{Name: "default"}
	cfg, err := ReadConfig(filepath.Join(t.TempDir(), "none.json5"), defaults)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, defaults, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "app.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{probability: 2}`), 0600))

	_, err := ReadConfig(name, sampleConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Probability")
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.local.json5"), LocalPath(filepath.Join("a", "b.json5")))
}
