// Package target resolves and creates the directory a project is installed into.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidArgument is returned when no usable project name was given.
	ErrInvalidArgument = errors.New("invalid project name")
	// ErrAlreadyExists is returned when the destination path is already taken.
	ErrAlreadyExists = errors.New("destination already exists")
)

// Request is a resolved installation target.
type Request struct {
	Name        string
	Destination string // absolute, strictly inside the working directory
}

// Resolve validates name and computes its destination under cwd.
// It has no side effects.
func Resolve(cwd, name string) (*Request, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: a project name is required", ErrInvalidArgument)
	}
	if filepath.IsAbs(name) {
		return nil, fmt.Errorf("%w: %q must be relative to the working directory", ErrInvalidArgument, name)
	}

	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory %s: %w", cwd, err)
	}
	dest := filepath.Join(absCwd, name)

	rel, err := filepath.Rel(absCwd, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %q does not name a directory inside %s", ErrInvalidArgument, name, absCwd)
	}

	if _, err := os.Lstat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", dest, err)
	}

	return &Request{Name: name, Destination: dest}, nil
}

// Create makes the destination directory. The leaf is created with a
// non-recursive mkdir so that two installs racing for the same name cannot
// both succeed.
func Create(req *Request) error {
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", req.Destination, err)
	}
	if err := os.Mkdir(req.Destination, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, req.Destination)
		}
		return fmt.Errorf("failed to create %s: %w", req.Destination, err)
	}
	return nil
}
