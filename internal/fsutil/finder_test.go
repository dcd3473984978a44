package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a/main.HCL", "a/notes.md", ".git/config.hcl", "c/d/e.hcl"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := FindFiles(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a/main.HCL"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "c/d/e.hcl"),
	}, files)

	files, err = FindFiles(root, ".md", ".txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a/notes.md")}, files)

	_, err = FindFiles(filepath.Join(root, "missing"), ".hcl")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Panics(t, func() { _, _ = FindFiles(root) })
}
