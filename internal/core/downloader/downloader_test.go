// Package downloader_test contains tests for the downloader package.
package downloader_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timqwees/qwees/internal/core/downloader"
	"github.com/timqwees/qwees/internal/core/hasher"
)

func TestBytes_Success(t *testing.T) {
	t.Parallel()
	expectedContent := "Hello, Qwees!"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(expectedContent))
		assert.NoError(t, err, "Failed to write response in mock server")
	}))
	defer server.Close()

	content, err := (&downloader.Fetcher{}).Bytes(context.Background(), server.URL)
	require.NoError(t, err, "Bytes returned an unexpected error")
	assert.Equal(t, []byte(expectedContent), content, "Downloaded content does not match expected content")
}

func TestBytes_HTTPErrorNotFound(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := (&downloader.Fetcher{}).Bytes(context.Background(), server.URL)
	require.Error(t, err, "Bytes should have returned an error for 404")
	assert.ErrorIs(t, err, downloader.ErrNetwork)
	assert.Contains(t, err.Error(), "failed to download from", "Error message mismatch")
	assert.Contains(t, err.Error(), "received status code 404", "Error message mismatch for status code")
}

func TestFetcher_BytesUsesClient(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("abc  qwees.zip\n"))
	}))
	defer server.Close()

	var used atomic.Bool
	client := server.Client()
	base := client.Transport
	client.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		used.Store(true)
		return base.RoundTrip(req)
	})

	f := &downloader.Fetcher{Client: client}
	content, err := f.Bytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "abc  qwees.zip\n", string(content))
	assert.True(t, used.Load(), "the configured client serves the request")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return fn(req) }

func TestFetch_Success(t *testing.T) {
	t.Parallel()
	payload := []byte("PK fake zip payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/timqwees/QweesCore/archive/refs/tags/v2.0.0.zip", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := &downloader.Fetcher{Client: server.Client()}
	url := server.URL + "/timqwees/QweesCore/archive/refs/tags/v2.0.0.zip"

	archive, err := f.Fetch(context.Background(), url, dir, "qwees.zip")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "qwees.zip"), archive.Path)
	assert.Equal(t, url, archive.URL)
	assert.EqualValues(t, len(payload), archive.Size)
	expected := hasher.New()
	_, err = expected.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), archive.Digest)

	onDisk, err := os.ReadFile(archive.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)
}

func TestFetch_HTTPErrorInternalServer(t *testing.T) {
	t.Parallel()
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	_, err := (&downloader.Fetcher{}).Fetch(context.Background(), server.URL, dir, "qwees.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrNetwork)
	assert.Contains(t, err.Error(), "received status code 500")
	assert.EqualValues(t, 1, requests.Load(), "Fetch must not retry")

	_, statErr := os.Stat(filepath.Join(dir, "qwees.zip"))
	assert.True(t, os.IsNotExist(statErr), "no archive file should be created for a failed response")
}

func TestFetch_NetworkError_InvalidURL(t *testing.T) {
	t.Parallel()
	invalidURL := "http://invalid-url-that-should-not-exist-for-testing.localdomain"

	_, err := (&downloader.Fetcher{}).Fetch(context.Background(), invalidURL, t.TempDir(), "qwees.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrNetwork)
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to perform GET request to %s", invalidURL))
}

func TestFetch_WriteError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	missingDir := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := (&downloader.Fetcher{}).Fetch(context.Background(), server.URL, missingDir, "qwees.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrWrite)
}

func TestFetch_ReadBodyError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("webserver doesn't support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("failed to hijack connection: %v", err)
			return
		}
		// Promise 100 bytes, deliver a few, then hang up.
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\npartial data"))
		_ = conn.Close()
	}))
	defer server.Close()

	_, err := (&downloader.Fetcher{}).Fetch(context.Background(), server.URL, t.TempDir(), "qwees.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrNetwork)
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to read response body from %s", server.URL))
}

func TestFetch_ContextCanceled(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&downloader.Fetcher{}).Fetch(ctx, server.URL, t.TempDir(), "qwees.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyDigest(t *testing.T) {
	t.Parallel()
	a := &downloader.Archive{Path: "/tmp/qwees.zip", Digest: "sha256:abcdef"}

	assert.NoError(t, downloader.VerifyDigest(a, ""), "empty expectation disables the check")
	assert.NoError(t, downloader.VerifyDigest(a, "ABCDEF"))

	err := downloader.VerifyDigest(a, "sha256:123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, downloader.ErrIntegrity)
	assert.Contains(t, err.Error(), "qwees.zip")
}

func TestParseChecksum(t *testing.T) {
	t.Parallel()

	sum, err := downloader.ParseChecksum([]byte("abc123\n"), "v2.0.0.zip")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sum, "a bare digest applies to any file")

	listing := []byte("111  other.zip\n222  v2.0.0.zip\n333 *v2.1.0.zip\n")
	sum, err = downloader.ParseChecksum(listing, "v2.0.0.zip")
	require.NoError(t, err)
	assert.Equal(t, "222", sum)

	sum, err = downloader.ParseChecksum(listing, "v2.1.0.zip")
	require.NoError(t, err)
	assert.Equal(t, "333", sum, "binary-mode marker should be ignored")

	_, err = downloader.ParseChecksum(listing, "missing.zip")
	assert.ErrorIs(t, err, downloader.ErrIntegrity)
}
