// Package installer runs the install pipeline: resolve the target, fetch the
// release archive, extract it, flatten its wrapper folder, write the
// manifests and run the dependency script.
//
// Stages run strictly in order. Failures up to and including extraction abort
// the run and are returned; nothing already written is cleaned up. Problems
// after extraction are recorded in the Report and never abort the run.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/charmbracelet/log"

	"github.com/timqwees/qwees/internal/console"
	"github.com/timqwees/qwees/internal/core/config"
	"github.com/timqwees/qwees/internal/core/downloader"
	"github.com/timqwees/qwees/internal/core/extractor"
	"github.com/timqwees/qwees/internal/core/layout"
	"github.com/timqwees/qwees/internal/core/manifest"
	"github.com/timqwees/qwees/internal/core/postinstall"
	"github.com/timqwees/qwees/internal/core/source"
	"github.com/timqwees/qwees/internal/core/target"
)

// ErrFilesystem is returned for local filesystem failures outside extraction,
// such as creating the destination.
var ErrFilesystem = errors.New("filesystem error")

// Options configures one installation.
type Options struct {
	Config  *config.Config
	WorkDir string
	Name    string

	HTTPClient *http.Client
	Printer    *console.Printer
	Logger     *log.Logger
	// Animate draws moving progress bars; leave false when output is not a terminal.
	Animate bool
}

// Report is what an installation did. Fields are filled as stages complete,
// so a report returned alongside an error shows how far the run got.
type Report struct {
	Request *target.Request
	// Ref is the tag "latest" was resolved to, empty otherwise.
	Ref        string
	Archive    *downloader.Archive
	Extraction *extractor.Result

	Layout    *layout.Outcome
	LayoutErr error

	Manifests   []string
	ManifestErr error

	DependenciesSkipped bool
	DependencyErr       error
}

type run struct {
	opts    Options
	cfg     *config.Config
	printer *console.Printer
	logger  *log.Logger
	report  *Report
}

// Install runs the whole pipeline. The report is never nil.
func Install(ctx context.Context, opts Options) (*Report, error) {
	r := &run{opts: opts, cfg: opts.Config, printer: opts.Printer, logger: opts.Logger, report: &Report{}}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.printer == nil {
		r.printer = &console.Printer{}
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}

	if err := r.cfg.Validate(); err != nil {
		return r.report, err
	}
	req, err := target.Resolve(opts.WorkDir, opts.Name)
	if err != nil {
		return r.report, err
	}
	r.report.Request = req
	r.logger.Debug("resolved destination", "name", req.Name, "dest", req.Destination)

	if r.cfg.Release.WantsLatest() {
		if err := r.resolveLatest(ctx); err != nil {
			return r.report, err
		}
	}

	r.printer.Logo()
	r.printer.Info("Making: %s", console.Accent(req.Name))

	if err := r.stage("📁 Creating project folder...", "✅ Folder created!", func() error {
		if err := target.Create(req); err != nil {
			if errors.Is(err, target.ErrAlreadyExists) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrFilesystem, err)
		}
		return nil
	}); err != nil {
		return r.report, err
	}

	if err := r.stage("⌛️ Downloading...", "✅ Downloaded!", func() error {
		return r.fetch(ctx, req.Destination)
	}); err != nil {
		return r.report, err
	}

	if err := r.stage("📦 Extracting...", "✅ Extracted!", func() error {
		res, err := extractor.Extract(r.report.Archive, req.Destination)
		if err != nil {
			return err
		}
		r.report.Extraction = res
		r.logger.Debug("extracted archive", "files", res.Files, "dirs", res.Dirs())
		return nil
	}); err != nil {
		return r.report, err
	}

	r.normalize(req.Destination)
	r.emitManifests(req.Destination)
	r.installDependencies(ctx, req.Destination)

	return r.report, nil
}

// stage runs fn inside a progress bar that is stopped on every way out of
// fn, including a panic.
func (r *run) stage(text, done string, fn func() error) error {
	bar := console.StartBar(r.printer.Stdout(), text, r.opts.Animate)
	defer bar.Stop(text+" aborted", false)

	if err := fn(); err != nil {
		bar.Stop(fmt.Sprintf("%s %s", Label(err), err), false)
		return err
	}
	bar.Stop(done, true)
	return nil
}

// resolveLatest pins the "latest" ref to a concrete tag on a copy of the
// configuration.
func (r *run) resolveLatest(ctx context.Context) error {
	cfg := *r.cfg
	api := &source.API{BaseURL: cfg.Release.APIURL, Client: r.opts.HTTPClient}
	tag, err := api.LatestReleaseTag(ctx, cfg.Release.Owner, cfg.Release.Repo)
	if err != nil {
		return err
	}
	r.logger.Debug("resolved latest release", "tag", tag)
	cfg.Release.Ref = tag
	r.cfg = &cfg
	r.report.Ref = tag
	return nil
}

func (r *run) fetch(ctx context.Context, dest string) error {
	rel := r.cfg.Release
	url := rel.ArchiveURL()
	r.logger.Debug("downloading archive", "url", url)

	f := &downloader.Fetcher{Client: r.opts.HTTPClient}
	archive, err := f.Fetch(ctx, url, dest, rel.ArchiveName)
	if err != nil {
		return err
	}
	r.report.Archive = archive
	r.logger.Debug("downloaded archive", "path", archive.Path, "size", archive.Size, "digest", archive.Digest)

	expected := rel.SHA256
	if expected == "" && rel.ChecksumURL != "" {
		body, err := f.Bytes(ctx, rel.ChecksumURL)
		if err != nil {
			return err
		}
		if expected, err = downloader.ParseChecksum(body, path.Base(url)); err != nil {
			return err
		}
	}
	if expected == "" {
		r.logger.Debug("archive digest not verified", "digest", archive.Digest)
		return nil
	}
	return downloader.VerifyDigest(archive, expected)
}

func (r *run) normalize(dest string) {
	rel := r.cfg.Release
	n := &layout.Normalizer{ProjectID: rel.ProjectID, Version: rel.Version()}

	bar := console.StartBar(r.printer.Stdout(), "🔄 Moving files...", r.opts.Animate)
	defer bar.Stop("🔄 Moving files aborted", false)

	out, err := n.Normalize(dest)
	r.report.Layout, r.report.LayoutErr = out, err

	switch out.State {
	case layout.Done:
		r.logger.Debug("flattened wrapper", "candidate", out.Candidate, "match", out.Match, "moved", len(out.Moved))
		bar.Stop("✅ Files moved!", true)
	case layout.PartialFailure:
		r.logger.Warn("wrapper only partly flattened", "candidate", out.Candidate, "moved", out.Moved, "err", err)
		bar.Warn(fmt.Sprintf("⚠️ %s %v", LabelPartialMoveFailure, err))
	default:
		if err != nil {
			r.logger.Warn("could not scan destination", "dest", dest, "err", err)
		}
		bar.Warn(fmt.Sprintf("⚠️ %s No subdirectory found", LabelNoSubdirectory))
	}
}

func (r *run) emitManifests(dest string) {
	written, err := manifest.Emit(dest, r.cfg.Release.Version())
	r.report.Manifests, r.report.ManifestErr = written, err
	if err != nil {
		r.printer.Crash(LabelManifestNotWritten, "Failed to create package.json/composer.json: %v", err)
		return
	}
	r.logger.Debug("wrote manifests", "files", written)
}

func (r *run) installDependencies(ctx context.Context, dest string) {
	if r.cfg.Install.Skip || r.cfg.Install.Script == "" {
		r.report.DependenciesSkipped = true
		r.printer.Info("Skipping dependency installation")
		return
	}

	bar := console.StartBar(r.printer.Stdout(), "🚀 Installing Composer dependencies...", r.opts.Animate)
	defer bar.Stop("🚀 Dependency installation aborted", false)

	runner := &postinstall.Runner{
		Script: r.cfg.Install.Script,
		Stdout: r.printer.Stdout(),
		Stderr: r.printer.Stderr(),
	}
	err := runner.Run(ctx, dest)
	r.report.DependencyErr = err
	if err != nil {
		r.logger.Warn("dependency script failed", "dest", dest, "err", err)
		bar.Warn(fmt.Sprintf("⚠️ %s %v", LabelDependenciesNotInstalled, err))
		return
	}
	bar.Stop("✅ Command succeeded!", true)
}
