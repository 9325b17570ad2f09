package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/archivum/index"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanIsDeterministicLexicographicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "c")

	entries, err := Scan(root, Options{})
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "sub", "sub/c.txt"}, paths)
}

func TestScanOmitsRootAndAppliesExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "x")
	writeFile(t, filepath.Join(root, "skip.log"), "x")

	entries, err := Scan(root, Options{Excludes: []string{"*.log"}})
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotEqual(t, "", e.Path)
		assert.NotEqual(t, "skip.log", e.Path)
	}
}

func TestScanRecordsSymlinkTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.txt"), "x")
	require.NoError(t, os.Symlink("real.txt", filepath.Join(root, "link.txt")))

	entries, err := Scan(root, Options{})
	require.NoError(t, err)

	found := false
	for _, e := range entries {
		if e.Path == "link.txt" {
			found = true
			assert.Equal(t, index.TypeSymlink, e.Type)
			assert.Equal(t, "real.txt", e.SymlinkTarget)
		}
	}
	assert.True(t, found)
}
