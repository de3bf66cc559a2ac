package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesRecognizedOptions(t *testing.T) {
	path := writeTemp(t, `
steps:
  low: 0
  high: 10
grid:
  size: 30
  low: [0, 0]
  high: [300, 300]
  patch: Patch
randSeed: 42
workers: 4
favorBigDecimal: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Steps.Low)
	assert.Equal(t, 10, cfg.Steps.High)
	assert.Equal(t, 30.0, cfg.Grid.Size)
	assert.Equal(t, "Patch", cfg.Grid.Patch)
	assert.Equal(t, int64(42), cfg.RandSeed)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.FavorBigDecimal)
}

func TestValidateRejectsInvertedStepRange(t *testing.T) {
	path := writeTemp(t, `
steps: {low: 10, high: 2}
grid: {size: 30, patch: Patch}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CompileTimeError")
}

func TestValidateRequiresPatchType(t *testing.T) {
	path := writeTemp(t, `
steps: {low: 0, high: 1}
grid: {size: 30}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid.patch")
}

func TestWorkersDefaultsWhenUnsetOrNonPositive(t *testing.T) {
	path := writeTemp(t, `
steps: {low: 0, high: 1}
grid: {size: 30, patch: Patch}
workers: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Greater(t, cfg.Workers, 0)
}
