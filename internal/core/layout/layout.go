// Package layout flattens the wrapper folder that release archives put
// around their content.
//
// A GitHub tag archive of QweesCore v2.0.0 extracts to
// <dest>/QweesCore-2.0.0/...; Normalize moves everything inside that folder
// up into <dest> and removes the folder. The wrapper is looked up by its exact
// expected name first and then by "<ProjectID>-" prefix, taking the
// lexicographically first directory. Nothing in this package is fatal for an
// installation: when no wrapper is found the destination is left untouched,
// and when some entries cannot be moved the rest are still moved and the
// failures are reported in a *PartialMoveError.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrPartialMove matches a *PartialMoveError with errors.Is.
	ErrPartialMove = errors.New("partial move failure")
	// ErrScan is returned when the destination could not be listed.
	ErrScan = errors.New("failed to scan destination")
)

// State is the terminal state of a normalization.
type State int

const (
	// Skipped means no wrapper folder was found; the destination is unchanged.
	Skipped State = iota
	// Done means the wrapper was flattened and removed.
	Done
	// PartialFailure means at least one entry could not be moved.
	PartialFailure
)

func (s State) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Done:
		return "done"
	case PartialFailure:
		return "partial-failure"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Match tells how the wrapper folder was identified.
type Match string

const (
	MatchNone   Match = ""
	MatchExact  Match = "exact"
	MatchPrefix Match = "prefix"
)

// Outcome reports what Normalize did.
type Outcome struct {
	State     State
	Candidate string // wrapper folder name, empty when Skipped
	Match     Match
	Moved     []string
	Failed    []MoveFailure
}

// MoveFailure is one entry that could not be moved.
type MoveFailure struct {
	Name string
	Err  error
}

// PartialMoveError lists which entries of the wrapper were moved and which
// were not. RemoveErr is set when every entry moved but the wrapper itself
// could not be removed.
type PartialMoveError struct {
	Candidate string
	Moved     []string
	Failed    []MoveFailure
	RemoveErr error
}

func (e *PartialMoveError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("moved all %d entries out of %s but could not remove it: %v", len(e.Moved), e.Candidate, e.RemoveErr)
	}
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("failed to move %d of %d entries out of %s: %s",
		len(e.Failed), len(e.Failed)+len(e.Moved), e.Candidate, strings.Join(names, ", "))
}

func (e *PartialMoveError) Is(target error) bool {
	return target == ErrPartialMove
}

// Unwrap exposes the individual move errors.
func (e *PartialMoveError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	if e.RemoveErr != nil {
		errs = append(errs, e.RemoveErr)
	}
	return errs
}

// Normalizer locates and flattens the wrapper folder. The filesystem
// functions default to their os package counterparts.
type Normalizer struct {
	ProjectID string
	Version   string

	Rename    func(oldpath, newpath string) error
	RemoveAll func(path string) error
	Remove    func(path string) error
}

// ExpectedRoot is the wrapper name derived from the project id and version.
func (n *Normalizer) ExpectedRoot() string {
	return n.ProjectID + "-" + n.Version
}

func (n *Normalizer) rename(oldpath, newpath string) error {
	if n.Rename != nil {
		return n.Rename(oldpath, newpath)
	}
	return os.Rename(oldpath, newpath)
}

func (n *Normalizer) removeAll(path string) error {
	if n.RemoveAll != nil {
		return n.RemoveAll(path)
	}
	return os.RemoveAll(path)
}

func (n *Normalizer) remove(path string) error {
	if n.Remove != nil {
		return n.Remove(path)
	}
	return os.Remove(path)
}

// FindCandidate returns the wrapper folder name under dest and how it was
// matched. It returns MatchNone and no error when there is none.
func (n *Normalizer) FindCandidate(dest string) (string, Match, error) {
	expected := n.ExpectedRoot()
	if info, err := os.Lstat(filepath.Join(dest, expected)); err == nil && info.IsDir() {
		return expected, MatchExact, nil
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", MatchNone, fmt.Errorf("%w %s: %w", ErrScan, dest, err)
	}
	// Explicit ordering: the first match by byte-wise name order wins,
	// whatever order the filesystem returns entries in.
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	prefix := n.ProjectID + "-"
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return e.Name(), MatchPrefix, nil
		}
	}
	return "", MatchNone, nil
}

// Normalize flattens the wrapper folder of dest into dest. The returned
// outcome is never nil. The error is nil for Done and Skipped, a
// *PartialMoveError for PartialFailure, and wraps ErrScan when dest could not
// be listed (the outcome is then Skipped).
func (n *Normalizer) Normalize(dest string) (*Outcome, error) {
	candidate, match, err := n.FindCandidate(dest)
	if err != nil {
		return &Outcome{State: Skipped}, err
	}
	if match == MatchNone {
		return &Outcome{State: Skipped}, nil
	}

	out := &Outcome{Candidate: candidate, Match: match}
	src := filepath.Join(dest, candidate)

	children, err := os.ReadDir(src)
	if err != nil {
		out.State = PartialFailure
		out.Failed = []MoveFailure{{Name: ".", Err: err}}
		return out, &PartialMoveError{Candidate: candidate, Failed: out.Failed}
	}

	// A child carrying the wrapper's own name would land on the wrapper;
	// move the wrapper aside first.
	for _, c := range children {
		if c.Name() == candidate {
			staging, err := n.stage(dest, candidate)
			if err != nil {
				out.State = PartialFailure
				out.Failed = []MoveFailure{{Name: candidate, Err: err}}
				return out, &PartialMoveError{Candidate: candidate, Failed: out.Failed}
			}
			src = staging
			break
		}
	}

	for _, c := range children {
		name := c.Name()
		if err := n.move(filepath.Join(src, name), filepath.Join(dest, name)); err != nil {
			out.Failed = append(out.Failed, MoveFailure{Name: name, Err: err})
			continue
		}
		out.Moved = append(out.Moved, name)
	}

	if len(out.Failed) > 0 {
		out.State = PartialFailure
		return out, &PartialMoveError{Candidate: candidate, Moved: out.Moved, Failed: out.Failed}
	}

	if err := n.remove(src); err != nil {
		out.State = PartialFailure
		return out, &PartialMoveError{Candidate: candidate, Moved: out.Moved, RemoveErr: err}
	}
	out.State = Done
	return out, nil
}

// move puts src at dst, replacing whatever is at dst.
func (n *Normalizer) move(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := n.removeAll(dst); err != nil {
			return fmt.Errorf("failed to replace %s: %w", dst, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if err := n.rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s: %w", filepath.Base(src), err)
	}
	return nil
}

func (n *Normalizer) stage(dest, candidate string) (string, error) {
	for i := 0; i < 100; i++ {
		staging := filepath.Join(dest, fmt.Sprintf(".%s.flatten-%d", candidate, i))
		if _, err := os.Lstat(staging); errors.Is(err, os.ErrNotExist) {
			if err := n.rename(filepath.Join(dest, candidate), staging); err != nil {
				return "", fmt.Errorf("failed to move %s aside: %w", candidate, err)
			}
			return staging, nil
		}
	}
	return "", fmt.Errorf("no free staging name for %s", candidate)
}
