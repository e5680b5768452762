// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// ZipEntry is one entry of a fixture archive. A name ending in "/" is a
// directory; a non-empty Link makes the entry a symlink.
type ZipEntry struct {
	Name string
	Body string
	Mode fs.FileMode
	Link string
}

// ZipBytes builds an in-memory zip archive from entries, in order.
func ZipBytes(tb testing.TB, entries ...ZipEntry) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		switch {
		case e.Link != "":
			hdr.SetMode(fs.ModeSymlink | 0777)
		case e.Mode != 0:
			hdr.SetMode(e.Mode)
		case len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/':
			hdr.SetMode(fs.ModeDir | 0755)
		default:
			hdr.SetMode(0644)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(tb, err, "failed to add %s to fixture zip", e.Name)
		body := e.Body
		if e.Link != "" {
			body = e.Link
		}
		if body != "" {
			_, err = w.Write([]byte(body))
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a fixture archive to path.
func WriteZip(tb testing.TB, path string, entries ...ZipEntry) {
	tb.Helper()
	require.NoError(tb, os.WriteFile(path, ZipBytes(tb, entries...), 0644))
}

// ReleaseEntries returns a wrapper directory named root holding n files,
// laid out the way a GitHub tag archive is.
func ReleaseEntries(root string, n int) []ZipEntry {
	entries := []ZipEntry{{Name: root + "/"}}
	for i := 1; i <= n; i++ {
		entries = append(entries, ZipEntry{
			Name: fmt.Sprintf("%s/file%02d.txt", root, i),
			Body: fmt.Sprintf("content %d", i),
		})
	}
	return entries
}

// Tree returns every path under root (relative, slash separated) mapped to
// the file content, or "<dir>" for directories.
func Tree(tb testing.TB, root string) map[string]string {
	tb.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			tree[rel] = "<dir>"
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	require.NoError(tb, err)
	return tree
}

// Names returns the sorted names of the direct children of dir.
func Names(tb testing.TB, dir string) []string {
	tb.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(tb, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
