package repairer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/packer"
)

func TestRunRebuildsIndexWithoutChecksums(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))

	entries := []index.IndexEntry{{Path: "a.txt", Type: index.TypeFile, Size: 5}}
	opts := packer.Options{Algorithm: compression.None}
	packer.Assign(entries, opts)
	archiveDir := t.TempDir()
	require.NoError(t, packer.Emit(entries, src, archiveDir, opts))

	idx, err := Run(Options{ArchiveDir: archiveDir, Algorithm: compression.None})
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "a.txt", idx.Entries[0].Path)
	assert.Equal(t, "", idx.Entries[0].SHA256)
	assert.Contains(t, idx.Header.Notes, "checksums not available")
}

func TestRunErrorsWithNoPartFiles(t *testing.T) {
	_, err := Run(Options{ArchiveDir: t.TempDir(), Algorithm: compression.None})
	assert.Error(t, err)
}
