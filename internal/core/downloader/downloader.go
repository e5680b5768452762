// Package downloader provides functionality to download files from URLs.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/timqwees/qwees/internal/core/hasher"
)

var (
	// ErrNetwork covers transport failures and non-200 responses.
	ErrNetwork = errors.New("network error")
	// ErrWrite covers failures persisting the downloaded body.
	ErrWrite = errors.New("write error")
	// ErrIntegrity is returned when a downloaded archive does not match its expected digest.
	ErrIntegrity = errors.New("integrity check failed")
)

// Archive is a downloaded archive file. It is owned by whoever extracts it.
type Archive struct {
	Path   string
	URL    string
	Size   int64
	Digest string // "sha256:<hex>"
}

// Fetcher performs single-attempt GET downloads.
type Fetcher struct {
	Client *http.Client
}

func (f *Fetcher) client() *http.Client {
	if f == nil || f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GET request to %s: %v", ErrNetwork, url, err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to perform GET request to %s: %w", ErrNetwork, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: failed to download from %s: received status code %d", ErrNetwork, url, resp.StatusCode)
	}
	return resp, nil
}

// Fetch downloads url into dir/name and returns the resulting archive.
// There is no retry; a partially written file is left in place on failure.
func (f *Fetcher) Fetch(ctx context.Context, url, dir, name string) (*Archive, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	path := filepath.Join(dir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", ErrWrite, path, err)
	}
	defer func() { _ = out.Close() }()

	digest := hasher.New()
	size, err := io.Copy(io.MultiWriter(out, digest), resp.Body)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%w: failed to write %s: %w", ErrWrite, path, err)
		}
		return nil, fmt.Errorf("%w: failed to read response body from %s: %w", ErrNetwork, url, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to close %s: %w", ErrWrite, path, err)
	}

	return &Archive{Path: path, URL: url, Size: size, Digest: digest.String()}, nil
}

// VerifyDigest compares the archive digest with expected. An empty expected
// digest disables the check.
func VerifyDigest(a *Archive, expected string) error {
	if expected == "" {
		return nil
	}
	if !hasher.Equal(a.Digest, expected) {
		return fmt.Errorf("%w: %s has digest %s, expected %s", ErrIntegrity, filepath.Base(a.Path), a.Digest, expected)
	}
	return nil
}

// ParseChecksum extracts the digest for name from a checksums file. Each line
// is "<hex>  <file>"; a file holding a single bare digest applies to any name.
func ParseChecksum(body []byte, name string) (string, error) {
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) == 1 {
		if fields := strings.Fields(lines[0]); len(fields) == 1 {
			return fields[0], nil
		}
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 2 && strings.TrimPrefix(fields[1], "*") == name {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("%w: no checksum found for %s", ErrIntegrity, name)
}

// Bytes fetches the content from the given URL into memory. It returns an
// error if the download fails or if the HTTP status code is not 200 OK.
func (f *Fetcher) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body from %s: %w", ErrNetwork, url, err)
	}
	return body, nil
}
