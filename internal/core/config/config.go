package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// ConfigFileName is the optional settings file looked up in the working directory.
const ConfigFileName = "qwees.toml"

const (
	RefKindTags  = "tags"
	RefKindHeads = "heads"
)

// RefLatest as a tag ref is replaced by the newest published release tag
// before anything is downloaded.
const RefLatest = "latest"

// DefaultInstallScript installs the PHP dependencies and marks the two CLI
// entry points executable. Failures of composer are tolerated.
const DefaultInstallScript = `(composer install || composer update) && composer require vlucas/phpdotenv phpmailer/phpmailer || true
chmod +x ./app/Config/CLI/qwees && chmod +x ./app/Config/CLI/run && npm link`

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the structure of qwees.toml.
type Config struct {
	Release Release `toml:"release"`
	Install Install `toml:"install"`
}

// Release describes where the project archive comes from and how its
// wrapper folder is named.
type Release struct {
	BaseURL     string `toml:"base_url"`
	Owner       string `toml:"owner"`
	Repo        string `toml:"repo"`
	RefKind     string `toml:"ref_kind"` // "tags" or "heads"
	Ref         string `toml:"ref"`
	ProjectID   string `toml:"project_id"`
	ArchiveName string `toml:"archive_name"`
	SHA256      string `toml:"sha256,omitempty"`
	// ChecksumURL points at a checksums file ("<hex>  <file>" per line, or a
	// bare digest) used when SHA256 is not set.
	ChecksumURL string `toml:"checksum_url,omitempty"`
	// APIURL is the GitHub REST endpoint used to resolve RefLatest.
	APIURL string `toml:"api_url"`
}

// Install holds settings for the dependency installation step.
type Install struct {
	Script string `toml:"script"`
	Skip   bool   `toml:"skip"`
}

// Default returns the built-in configuration for the QweesCore v2.0.0 release.
func Default() *Config {
	return &Config{
		Release: Release{
			BaseURL:     "https://github.com",
			Owner:       "timqwees",
			Repo:        "QweesCore",
			RefKind:     RefKindTags,
			Ref:         "v2.0.0",
			ProjectID:   "QweesCore",
			ArchiveName: "qwees.zip",
			APIURL:      "https://api.github.com",
		},
		Install: Install{
			Script: DefaultInstallScript,
		},
	}
}

// Load reads the TOML file at path on top of the defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the release coordinates are usable.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) validate() error {
	r := c.Release
	switch {
	case strings.TrimSpace(r.BaseURL) == "":
		return errors.New("release.base_url must not be empty")
	case strings.TrimSpace(r.Owner) == "":
		return errors.New("release.owner must not be empty")
	case strings.TrimSpace(r.Repo) == "":
		return errors.New("release.repo must not be empty")
	case strings.TrimSpace(r.Ref) == "":
		return errors.New("release.ref must not be empty")
	case strings.TrimSpace(r.ProjectID) == "":
		return errors.New("release.project_id must not be empty")
	case strings.ContainsAny(r.ArchiveName, `/\`) || r.ArchiveName == "":
		return fmt.Errorf("release.archive_name %q must be a plain file name", r.ArchiveName)
	}
	if r.RefKind != RefKindTags && r.RefKind != RefKindHeads {
		return fmt.Errorf("release.ref_kind must be %q or %q, got %q", RefKindTags, RefKindHeads, r.RefKind)
	}
	return nil
}

// WantsLatest reports whether the ref still has to be resolved to a tag.
func (r Release) WantsLatest() bool {
	return r.RefKind == RefKindTags && r.Ref == RefLatest
}

// ArchiveURL returns the GitHub-style archive URL, e.g.
// https://github.com/timqwees/QweesCore/archive/refs/tags/v2.0.0.zip
func (r Release) ArchiveURL() string {
	return fmt.Sprintf("%s/%s/%s/archive/refs/%s/%s.zip",
		strings.TrimSuffix(r.BaseURL, "/"), r.Owner, r.Repo, r.RefKind, r.Ref)
}

// Version is the ref as it appears in the archive's wrapper folder. GitHub
// drops the leading "v" of semver tags; branch names and other tags are kept
// verbatim.
func (r Release) Version() string {
	if r.RefKind == RefKindTags {
		trimmed := strings.TrimPrefix(r.Ref, "v")
		if _, err := semver.StrictNewVersion(trimmed); err == nil {
			return trimmed
		}
	}
	return r.Ref
}

// ExpectedRoot is the name of the folder the archive is expected to wrap
// its content in.
func (r Release) ExpectedRoot() string {
	return r.ProjectID + "-" + r.Version()
}
