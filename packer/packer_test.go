package packer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/index"
)

func tarParts(entries []index.IndexEntry) []uint32 {
	parts := make([]uint32, len(entries))
	for i, e := range entries {
		parts[i] = e.TarPart
	}
	return parts
}

func TestAssignSplitsBySizeBudget(t *testing.T) {
	entries := []index.IndexEntry{
		{Path: "a", Type: index.TypeFile, Size: 2000},
		{Path: "b", Type: index.TypeFile, Size: 0},
		{Path: "c", Type: index.TypeFile, Size: 0},
		{Path: "d", Type: index.TypeFile, Size: 0},
	}
	Assign(entries, Options{SplitBytes: 3000})
	assert.Equal(t, []uint32{0, 1, 1, 1}, tarParts(entries))
}

func TestAssignSplitsByFileCount(t *testing.T) {
	entries := []index.IndexEntry{
		{Path: "a", Type: index.TypeFile, Size: 10},
		{Path: "b", Type: index.TypeFile, Size: 10},
		{Path: "c", Type: index.TypeFile, Size: 10},
		{Path: "d", Type: index.TypeFile, Size: 10},
	}
	Assign(entries, Options{SplitFiles: 2})
	assert.Equal(t, []uint32{0, 0, 1, 1}, tarParts(entries))
}

func TestAssignIsPureGivenSameInputs(t *testing.T) {
	base := []index.IndexEntry{
		{Path: "a", Type: index.TypeFile, Size: 1000},
		{Path: "b", Type: index.TypeFile, Size: 1000},
	}
	a := append([]index.IndexEntry(nil), base...)
	b := append([]index.IndexEntry(nil), base...)
	Assign(a, Options{SplitBytes: 1200})
	Assign(b, Options{SplitBytes: 1200})
	assert.Equal(t, tarParts(a), tarParts(b))
}

func TestAssignSkipsDedupAndNonBaseZeroEntries(t *testing.T) {
	entries := []index.IndexEntry{
		{Path: "a", Type: index.TypeFile, Size: 10},
		{Path: "b", Type: index.TypeFile, Size: 10, DedupOf: "a"},
		{Path: "c", Type: index.TypeFile, Size: 10, TarBase: 1},
		{Path: "dir", Type: index.TypeDirectory},
	}
	Assign(entries, Options{SplitFiles: 1})
	assert.Equal(t, uint32(0), entries[0].TarPart)
	assert.Equal(t, uint32(0), entries[1].TarPart) // untouched, defaults zero value
	assert.Equal(t, uint32(0), entries[2].TarPart) // untouched
}

func TestEmitWritesReadableTarParts(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("world"), 0o644))

	entries := []index.IndexEntry{
		{Path: "a.txt", Type: index.TypeFile, Size: 5},
		{Path: "b.txt", Type: index.TypeFile, Size: 5},
	}
	opts := Options{Algorithm: compression.Zstd, Level: 3}
	Assign(entries, opts)

	out := t.TempDir()
	require.NoError(t, Emit(entries, src, out, opts))

	info, err := os.Stat(filepath.Join(out, index.PartFileName(0, compression.Zstd.Extension())))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
