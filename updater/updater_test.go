package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/digest"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/packer"
)

func buildBaseArchive(t *testing.T) (string, string, *index.ArchivumIndex) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "stable.txt"), []byte("stable"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "old.txt"), []byte("original"), 0o644))

	idx := &index.ArchivumIndex{Header: index.NewHeader("none", 0)}
	idx.Entries = []index.IndexEntry{
		{Path: "stable.txt", Type: index.TypeFile, Size: 6},
		{Path: "old.txt", Type: index.TypeFile, Size: 8},
	}
	for i := range idx.Entries {
		info, err := os.Stat(filepath.Join(src, idx.Entries[i].Path))
		require.NoError(t, err)
		mtime := info.ModTime().Unix()
		idx.Entries[i].ModTimeUnix = &mtime
	}
	require.NoError(t, digest.Run(idx, src, 1, nil))

	opts := packer.Options{Algorithm: compression.None}
	packer.Assign(idx.Entries, opts)
	archiveDir := t.TempDir()
	require.NoError(t, packer.Emit(idx.Entries, src, archiveDir, opts))
	idx.Recount()
	return archiveDir, src, idx
}

func TestRunCarriesUnchangedForwardWithTarBaseOne(t *testing.T) {
	archiveDir, src, oldIdx := buildBaseArchive(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "old.txt"), []byte("changed!"), 0o644))

	output := t.TempDir()
	newIdx, err := Run(Options{
		OldIndexDir: archiveDir, OldIndex: oldIdx, SourceRoot: src, OutputDir: output,
		Algorithm: compression.None, Threads: 1,
	})
	require.NoError(t, err)

	byPath := make(map[string]index.IndexEntry)
	for _, e := range newIdx.Entries {
		byPath[e.Path] = e
	}
	assert.Equal(t, uint32(1), byPath["stable.txt"].TarBase)
	assert.Equal(t, uint32(0), byPath["old.txt"].TarBase)
	require.Len(t, newIdx.Header.PartBases, 2)
	assert.Equal(t, "", newIdx.Header.PartBases[0])
}
