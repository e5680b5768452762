// Package manifest writes the package.json and composer.json descriptors of a
// freshly installed QweesCore project.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PackageJSONName  = "package.json"
	ComposerJSONName = "composer.json"
)

// PackageJSON is the npm descriptor. It exposes the framework's two CLI
// entry points as binaries.
type PackageJSON struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords"`
	Homepage    string            `json:"homepage"`
	Bugs        Bugs              `json:"bugs"`
	Repository  Repository        `json:"repository"`
	License     string            `json:"license"`
	Author      string            `json:"author"`
	Type        string            `json:"type"`
	Main        string            `json:"main"`
	Bin         map[string]string `json:"bin"`
	Scripts     map[string]string `json:"scripts"`
	// Dependencies records the PHP runtime requirement for tooling that reads it.
	Dependencies map[string]string `json:"dependencies"`
}

type Bugs struct {
	URL string `json:"url"`
}

type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ComposerJSON is the composer descriptor.
type ComposerJSON struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        string            `json:"type"`
	Version     string            `json:"version"`
	License     string            `json:"license"`
	Require     map[string]string `json:"require"`
	Autoload    Autoload          `json:"autoload"`
	Scripts     map[string]string `json:"scripts"`
}

type Autoload struct {
	PSR4 map[string]string `json:"psr-4"`
}

const description = "Qwees_CorePro is a modern PHP framework: easy to learn, fully webroot-independent, rich in features, with constant updates."

// NewPackageJSON returns the npm descriptor for version.
func NewPackageJSON(version string) *PackageJSON {
	return &PackageJSON{
		Name:        "qweescore",
		Version:     version,
		Description: description,
		Keywords:    []string{"qweescore", "qwees", "php", "framework"},
		Homepage:    "https://github.com/timqwees/QweesCore#readme",
		Bugs:        Bugs{URL: "https://github.com/timqwees/QweesCore/issues"},
		Repository:  Repository{Type: "git", URL: "git+https://github.com/timqwees/QweesCore.git"},
		License:     "MIT",
		Author:      "timqwees",
		Type:        "commonjs",
		Main:        "index.php",
		Bin: map[string]string{
			"qwees": "./app/Config/CLI/qwees",
			"run":   "./app/Config/CLI/run",
		},
		Scripts:      map[string]string{"qwees:start": "php -S localhost:8000"},
		Dependencies: map[string]string{"php": "^8.0.0"},
	}
}

// NewComposerJSON returns the composer descriptor for version.
func NewComposerJSON(version string) *ComposerJSON {
	return &ComposerJSON{
		Name:        "timqwees/qweescore",
		Description: description,
		Type:        "project",
		Version:     version,
		License:     "GPL-3.0-or-later",
		Require: map[string]string{
			"php":                 ">=7.4",
			"ext-pdo":             "*",
			"ext-json":            "*",
			"phpmailer/phpmailer": "^6.10",
			"vlucas/phpdotenv":    "^5.6",
		},
		Autoload: Autoload{PSR4: map[string]string{
			`App\`:     "app/",
			`Setting\`: "setting/",
		}},
		Scripts: map[string]string{},
	}
}

// Emit writes package.json and composer.json into dir, replacing any existing
// files, and returns the paths written.
func Emit(dir, version string) ([]string, error) {
	docs := []struct {
		name string
		v    any
	}{
		{PackageJSONName, NewPackageJSON(version)},
		{ComposerJSONName, NewComposerJSON(version)},
	}

	var written []string
	for _, d := range docs {
		path := filepath.Join(dir, d.name)
		if err := writeJSON(path, d.v); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
