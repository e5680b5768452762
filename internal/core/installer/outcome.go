package installer

import (
	"errors"

	"github.com/timqwees/qwees/internal/core/config"
	"github.com/timqwees/qwees/internal/core/downloader"
	"github.com/timqwees/qwees/internal/core/extractor"
	"github.com/timqwees/qwees/internal/core/layout"
	"github.com/timqwees/qwees/internal/core/postinstall"
	"github.com/timqwees/qwees/internal/core/source"
	"github.com/timqwees/qwees/internal/core/target"
)

// Outcome labels. They are printed with every failure or warning so that
// scripts can match on them.
const (
	LabelInvalidArgument          = "INVALID_ARGUMENT"
	LabelAlreadyExists            = "ALREADY_EXISTS"
	LabelNetworkError             = "NETWORK_ERROR"
	LabelWriteError               = "WRITE_ERROR"
	LabelIntegrityError           = "INTEGRITY_ERROR"
	LabelCorruptArchive           = "CORRUPT_ARCHIVE"
	LabelFilesystemError          = "FILESYSTEM_ERROR"
	LabelPartialMoveFailure       = "PARTIAL_MOVE_FAILURE"
	LabelNoSubdirectory           = "NO_SUBDIRECTORY"
	LabelManifestNotWritten       = "MANIFEST_NOT_WRITTEN"
	LabelDependenciesNotInstalled = "DEPENDENCIES_NOT_INSTALLED"
	LabelDependenciesSkipped      = "DEPENDENCIES_SKIPPED"
	LabelUnhandledFailure         = "UNHANDLED_FAILURE"
)

// Label classifies err into one of the outcome labels.
func Label(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, target.ErrInvalidArgument), errors.Is(err, config.ErrInvalid), errors.Is(err, source.ErrInvalidSource):
		return LabelInvalidArgument
	case errors.Is(err, target.ErrAlreadyExists):
		return LabelAlreadyExists
	case errors.Is(err, downloader.ErrNetwork):
		return LabelNetworkError
	case errors.Is(err, downloader.ErrWrite):
		return LabelWriteError
	case errors.Is(err, downloader.ErrIntegrity):
		return LabelIntegrityError
	case errors.Is(err, extractor.ErrCorruptArchive):
		return LabelCorruptArchive
	case errors.Is(err, layout.ErrPartialMove):
		return LabelPartialMoveFailure
	case errors.Is(err, extractor.ErrFilesystem), errors.Is(err, ErrFilesystem), errors.Is(err, layout.ErrScan):
		return LabelFilesystemError
	case errors.Is(err, postinstall.ErrDependenciesNotInstalled):
		return LabelDependenciesNotInstalled
	default:
		return LabelUnhandledFailure
	}
}

// Outcomes lists the labels of every non-fatal problem in the report, in
// pipeline order. An empty list means a clean install.
func (r *Report) Outcomes() []string {
	var labels []string
	if r.Layout != nil {
		switch r.Layout.State {
		case layout.Skipped:
			labels = append(labels, LabelNoSubdirectory)
		case layout.PartialFailure:
			labels = append(labels, LabelPartialMoveFailure)
		}
	}
	if r.ManifestErr != nil {
		labels = append(labels, LabelManifestNotWritten)
	}
	switch {
	case r.DependenciesSkipped:
		labels = append(labels, LabelDependenciesSkipped)
	case r.DependencyErr != nil:
		labels = append(labels, LabelDependenciesNotInstalled)
	}
	return labels
}
