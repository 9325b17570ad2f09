package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := &ArchivumIndex{Header: NewHeader("zstd", 6)}
	idx.Entries = append(idx.Entries, IndexEntry{Path: "a.txt", Type: TypeFile, Size: 10, TarPart: 0})
	idx.Recount()

	path := filepath.Join(dir, "index.arc.json")
	require.NoError(t, Write(path, idx))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Header.TotalFiles, loaded.Header.TotalFiles)
	assert.Equal(t, "a.txt", loaded.Entries[0].Path)
}

func TestReadRejectsTamperedSeal(t *testing.T) {
	dir := t.TempDir()
	idx := &ArchivumIndex{Header: NewHeader("zstd", 6)}
	idx.Entries = append(idx.Entries, IndexEntry{Path: "a.txt", Type: TypeFile, Size: 10})
	idx.Recount()

	path := filepath.Join(dir, "index.arc.json")
	require.NoError(t, Write(path, idx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = append(data, ' ')
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Read(path)
	assert.Error(t, err)
}

func TestReadToleratesMissingSeal(t *testing.T) {
	dir := t.TempDir()
	idx := &ArchivumIndex{Header: NewHeader("none", 0)}
	idx.Recount()
	path := filepath.Join(dir, "index.arc.json")
	require.NoError(t, Write(path, idx))
	require.NoError(t, os.Remove(path+".b3"))

	_, err := Read(path)
	assert.NoError(t, err)
}

func TestRecountComputesTotalParts(t *testing.T) {
	idx := &ArchivumIndex{Header: NewHeader("none", 0)}
	idx.Entries = []IndexEntry{
		{Path: "a", Type: TypeFile, TarPart: 0},
		{Path: "b", Type: TypeFile, TarPart: 2},
		{Path: "c", Type: TypeFile, TarPart: 1, DedupOf: "a"},
	}
	idx.Recount()
	assert.Equal(t, uint32(3), idx.Header.TotalParts)
}

func TestRecountZeroPartsWithNoFiles(t *testing.T) {
	idx := &ArchivumIndex{Header: NewHeader("none", 0)}
	idx.Entries = []IndexEntry{{Path: "d", Type: TypeDirectory}}
	idx.Recount()
	assert.Equal(t, uint32(0), idx.Header.TotalParts)
}
