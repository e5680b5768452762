package target_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timqwees/qwees/internal/core/target"
)

func TestResolve_Success(t *testing.T) {
	t.Parallel()
	cwd := t.TempDir()

	for _, name := range []string{"demo", "nested/demo", "  spaced  ", "with-dash_1"} {
		req, err := target.Resolve(cwd, name)
		require.NoError(t, err, "name %q", name)
		assert.Equal(t, strings.TrimSpace(name), req.Name)
		assert.True(t, filepath.IsAbs(req.Destination))
		assert.True(t, strings.HasPrefix(req.Destination, cwd+string(filepath.Separator)),
			"destination %s should be inside %s", req.Destination, cwd)
		_, statErr := os.Stat(req.Destination)
		assert.True(t, os.IsNotExist(statErr), "Resolve must not create anything")
	}
}

func TestResolve_InvalidArgument(t *testing.T) {
	t.Parallel()
	cwd := t.TempDir()

	for _, name := range []string{"", "   ", ".", "..", "../escape", "a/../../b", "/abs/path"} {
		_, err := target.Resolve(cwd, name)
		require.Error(t, err, "name %q", name)
		assert.ErrorIs(t, err, target.ErrInvalidArgument, "name %q", name)
	}
}

func TestResolve_AlreadyExists(t *testing.T) {
	t.Parallel()
	cwd := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(cwd, "dir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "file"), []byte("x"), 0644))

	before, err := os.ReadDir(cwd)
	require.NoError(t, err)

	for _, name := range []string{"dir", "file"} {
		_, err := target.Resolve(cwd, name)
		assert.ErrorIs(t, err, target.ErrAlreadyExists, "name %q", name)
	}

	after, err := os.ReadDir(cwd)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "Resolve must not mutate the filesystem")
}

func TestCreate(t *testing.T) {
	t.Parallel()
	cwd := t.TempDir()

	req, err := target.Resolve(cwd, "parent/demo")
	require.NoError(t, err)
	require.NoError(t, target.Create(req))

	info, err := os.Stat(req.Destination)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Second resolve of the same name now fails, and so does a racing Create.
	_, err = target.Resolve(cwd, "parent/demo")
	assert.ErrorIs(t, err, target.ErrAlreadyExists)
	assert.ErrorIs(t, target.Create(req), target.ErrAlreadyExists)
}
