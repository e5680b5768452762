// Package manifest_test contains tests for the manifest package.
package manifest_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timqwees/qwees/internal/core/manifest"
)

func TestEmit_WritesBothManifests(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	written, err := manifest.Emit(dir, "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, manifest.PackageJSONName),
		filepath.Join(dir, manifest.ComposerJSONName),
	}, written)

	raw, err := os.ReadFile(filepath.Join(dir, manifest.PackageJSONName))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "}\n"), "file should end with a newline")
	assert.Contains(t, string(raw), "\n  \"name\": \"qweescore\"", "two-space indentation expected")

	var pkg manifest.PackageJSON
	require.NoError(t, json.Unmarshal(raw, &pkg))
	assert.Equal(t, "2.0.0", pkg.Version)
	assert.Equal(t, "./app/Config/CLI/qwees", pkg.Bin["qwees"])
	assert.Equal(t, "./app/Config/CLI/run", pkg.Bin["run"])

	raw, err = os.ReadFile(filepath.Join(dir, manifest.ComposerJSONName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"php": ">=7.4"`, "comparison operators must not be HTML-escaped")
	var composer map[string]any
	require.NoError(t, json.Unmarshal(raw, &composer))
	assert.Equal(t, "timqwees/qweescore", composer["name"])
	assert.Equal(t, "2.0.0", composer["version"])
	autoload := composer["autoload"].(map[string]any)["psr-4"].(map[string]any)
	assert.Equal(t, "app/", autoload[`App\`])
	assert.Equal(t, map[string]any{}, composer["scripts"], "scripts should be an empty object, not null")
}

func TestEmit_OverwritesExisting(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.PackageJSONName), []byte("old"), 0644))

	_, err := manifest.Emit(dir, "2.1.0")
	require.NoError(t, err)

	var pkg manifest.PackageJSON
	raw, err := os.ReadFile(filepath.Join(dir, manifest.PackageJSONName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &pkg))
	assert.Equal(t, "2.1.0", pkg.Version)
}

func TestEmit_MissingDirectory(t *testing.T) {
	t.Parallel()
	written, err := manifest.Emit(filepath.Join(t.TempDir(), "missing"), "2.0.0")
	require.Error(t, err)
	assert.Empty(t, written)
	assert.Contains(t, err.Error(), "failed to write")
}
