package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NotFoundReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	content := `
[release]
ref = "v2.1.0"
sha256 = "sha256:abc"

[install]
skip = true
`
	path := filepath.Join(tempDir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "v2.1.0", cfg.Release.Ref)
	assert.Equal(t, "sha256:abc", cfg.Release.SHA256)
	assert.Equal(t, "timqwees", cfg.Release.Owner, "unset keys should keep their defaults")
	assert.Equal(t, "QweesCore", cfg.Release.ProjectID)
	assert.True(t, cfg.Install.Skip)
	assert.Equal(t, DefaultInstallScript, cfg.Install.Script)
}

func TestLoad_InvalidFormat(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[release\nref = 1"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[release]\nref_kind = \"branches\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "release.ref_kind")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty owner", mutate: func(c *Config) { c.Release.Owner = " " }, wantErr: "release.owner"},
		{name: "empty ref", mutate: func(c *Config) { c.Release.Ref = "" }, wantErr: "release.ref"},
		{name: "empty project id", mutate: func(c *Config) { c.Release.ProjectID = "" }, wantErr: "release.project_id"},
		{name: "archive name with slash", mutate: func(c *Config) { c.Release.ArchiveName = "a/b.zip" }, wantErr: "release.archive_name"},
		{name: "heads ref kind", mutate: func(c *Config) { c.Release.RefKind = RefKindHeads }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRelease_ArchiveURL(t *testing.T) {
	t.Parallel()
	r := Default().Release
	assert.Equal(t, "https://github.com/timqwees/QweesCore/archive/refs/tags/v2.0.0.zip", r.ArchiveURL())

	r.BaseURL = "http://127.0.0.1:8080/"
	r.RefKind = RefKindHeads
	r.Ref = "main"
	assert.Equal(t, "http://127.0.0.1:8080/timqwees/QweesCore/archive/refs/heads/main.zip", r.ArchiveURL())
}

func TestRelease_VersionAndExpectedRoot(t *testing.T) {
	t.Parallel()
	tests := []struct {
		refKind, ref string
		version      string
	}{
		{RefKindTags, "v2.0.0", "2.0.0"},
		{RefKindTags, "2.1.3", "2.1.3"},
		{RefKindTags, "v3.0.0-rc.1", "3.0.0-rc.1"},
		{RefKindTags, "nightly", "nightly"},
		{RefKindTags, "v2.0", "v2.0"},
		{RefKindHeads, "main", "main"},
		{RefKindHeads, "v1.0.0", "v1.0.0"},
	}
	for _, tt := range tests {
		r := Default().Release
		r.RefKind = tt.refKind
		r.Ref = tt.ref
		assert.Equal(t, tt.version, r.Version(), "ref %s/%s", tt.refKind, tt.ref)
		assert.Equal(t, "QweesCore-"+tt.version, r.ExpectedRoot())
	}
}

func TestRelease_WantsLatest(t *testing.T) {
	t.Parallel()
	r := Default().Release
	assert.False(t, r.WantsLatest())

	r.Ref = RefLatest
	assert.True(t, r.WantsLatest())

	r.RefKind = RefKindHeads
	assert.False(t, r.WantsLatest(), "a branch named latest is taken verbatim")
}
