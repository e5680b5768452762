// Package extractor unpacks downloaded zip archives into a project directory.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/timqwees/qwees/internal/core/downloader"
)

var (
	// ErrCorruptArchive is returned when the archive or one of its entries
	// cannot be read, or an entry would land outside the destination.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrFilesystem is returned when an entry cannot be written to disk.
	ErrFilesystem = errors.New("filesystem error")
)

// Entry is a top-level item of the destination after extraction.
type Entry struct {
	Name  string
	IsDir bool
}

// Result describes the destination right after extraction.
type Result struct {
	Root    string
	Entries []Entry // sorted by name
	Files   int     // regular files and symlinks written
}

// Dirs returns the names of the top-level directories.
func (r *Result) Dirs() []string {
	var dirs []string
	for _, e := range r.Entries {
		if e.IsDir {
			dirs = append(dirs, e.Name)
		}
	}
	return dirs
}

// Extract unpacks every entry of the archive into dest, keeping the archive's
// relative paths, and removes the archive file once done. On failure the
// archive and anything already written stay where they are.
func Extract(archive *downloader.Archive, dest string) (*Result, error) {
	x, err := newExtraction(archive, dest)
	if err != nil {
		return nil, err
	}

	r, err := zip.OpenReader(archive.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrCorruptArchive, archive.Path, err)
	}

	files := 0
	for _, f := range r.File {
		written, err := x.entry(f)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		if written {
			files++
		}
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to close %s: %w", ErrFilesystem, archive.Path, err)
	}

	if err := os.Remove(archive.Path); err != nil {
		return nil, fmt.Errorf("%w: failed to remove %s: %w", ErrFilesystem, archive.Path, err)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %w", ErrFilesystem, dest, err)
	}
	result := &Result{Root: dest, Files: files}
	for _, e := range entries {
		result.Entries = append(result.Entries, Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return result, nil
}

// safeJoin resolves an archive entry name under dest, rejecting names that
// are absolute or climb out of it.
func safeJoin(dest, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: entry %q has an absolute path", ErrCorruptArchive, name)
	}
	path := filepath.Join(dest, clean)
	rel, err := filepath.Rel(dest, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes the destination", ErrCorruptArchive, name)
	}
	return path, nil
}

// extraction holds the on-disk locations every entry is checked against.
type extraction struct {
	dest    string
	root    string // dest with symlinks resolved
	archive string // archive path with symlinks resolved
}

func newExtraction(archive *downloader.Archive, dest string) (*extraction, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve %s: %w", ErrFilesystem, dest, err)
	}
	root, err := resolvePath(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve %s: %w", ErrFilesystem, dest, err)
	}
	archiveAbs, err := filepath.Abs(archive.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve %s: %w", ErrFilesystem, archive.Path, err)
	}
	archivePath, err := resolvePath(archiveAbs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve %s: %w", ErrFilesystem, archive.Path, err)
	}
	return &extraction{dest: abs, root: root, archive: archivePath}, nil
}

// locate returns where name lands on disk once links already extracted are
// followed. It fails unless that place is inside the destination and is not
// the archive itself.
func (x *extraction) locate(name string) (string, error) {
	path, err := safeJoin(x.dest, name)
	if err != nil {
		return "", err
	}
	loc, err := x.resolve(name, path)
	if err != nil {
		return "", err
	}
	if loc == x.archive {
		return "", fmt.Errorf("%w: entry %q would overwrite the archive being extracted", ErrCorruptArchive, name)
	}
	return loc, nil
}

func (x *extraction) resolve(name, path string) (string, error) {
	loc, err := resolvePath(path)
	if errors.Is(err, errLinkLoop) {
		return "", fmt.Errorf("%w: entry %q: %w", ErrCorruptArchive, name, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve %s: %w", ErrFilesystem, path, err)
	}
	if !within(x.root, loc) {
		return "", fmt.Errorf("%w: entry %q resolves outside the destination", ErrCorruptArchive, name)
	}
	return loc, nil
}

func (x *extraction) entry(f *zip.File) (bool, error) {
	mode := f.Mode()
	if mode&os.ModeSymlink != 0 {
		return x.symlink(f)
	}

	path, err := x.locate(f.Name)
	if err != nil {
		return false, err
	}

	if mode.IsDir() || strings.HasSuffix(f.Name, "/") {
		if err := os.MkdirAll(path, 0755); err != nil {
			return false, fmt.Errorf("%w: failed to create directory %s: %w", ErrFilesystem, path, err)
		}
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("%w: failed to create directory %s: %w", ErrFilesystem, filepath.Dir(path), err)
	}

	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("%w: failed to open entry %s: %w", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create %s: %w", ErrFilesystem, path, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, rc); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return false, fmt.Errorf("%w: failed to write %s: %w", ErrFilesystem, path, err)
		}
		return false, fmt.Errorf("%w: failed to read entry %s: %w", ErrCorruptArchive, f.Name, err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("%w: failed to close %s: %w", ErrFilesystem, path, err)
	}
	return true, nil
}

// symlink recreates a link entry. The link's parent and the place the link
// points to, both evaluated against what is on disk, must be inside the
// destination.
func (x *extraction) symlink(f *zip.File) (bool, error) {
	path, err := safeJoin(x.dest, f.Name)
	if err != nil {
		return false, err
	}
	dir, err := x.resolve(f.Name, filepath.Dir(path))
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("%w: failed to create directory %s: %w", ErrFilesystem, dir, err)
	}

	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("%w: failed to open entry %s: %w", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()
	target, err := io.ReadAll(rc)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read link %s: %w", ErrCorruptArchive, f.Name, err)
	}

	linkTarget := string(target)
	if filepath.IsAbs(linkTarget) {
		return false, fmt.Errorf("%w: link %q points to absolute path %q", ErrCorruptArchive, f.Name, linkTarget)
	}
	// Joined by hand: filepath.Join would fold ".." before links are followed.
	if _, err := x.resolve(f.Name, dir+string(filepath.Separator)+linkTarget); err != nil {
		return false, err
	}

	link := filepath.Join(dir, filepath.Base(path))
	if link == x.archive {
		return false, fmt.Errorf("%w: entry %q would overwrite the archive being extracted", ErrCorruptArchive, f.Name)
	}
	if err := os.Symlink(linkTarget, link); err != nil {
		return false, fmt.Errorf("%w: failed to create link %s: %w", ErrFilesystem, link, err)
	}
	return true, nil
}

const maxLinkHops = 255

var errLinkLoop = errors.New("too many levels of symbolic links")

// resolvePath follows every symlink on the existing part of the absolute
// path p and returns the location it names on disk. Components from the
// first missing one on are appended as they are.
func resolvePath(p string) (string, error) {
	vol := filepath.VolumeName(p)
	resolved := vol + string(filepath.Separator)
	pending := splitPath(p[len(vol):])
	hops := 0
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		switch c {
		case ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, c)
		fi, err := os.Lstat(next)
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Join(append([]string{next}, pending...)...), nil
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&fs.ModeSymlink == 0 {
			resolved = next
			continue
		}

		if hops++; hops > maxLinkHops {
			return "", errLinkLoop
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			vol := filepath.VolumeName(target)
			resolved = vol + string(filepath.Separator)
			target = target[len(vol):]
		}
		pending = append(splitPath(target), pending...)
	}
	return resolved, nil
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || os.IsPathSeparator(uint8(r))
	})
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
