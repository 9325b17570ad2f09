package verify

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

func buildVerifiableArchive(t *testing.T) (string, *index.ArchivumIndex) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))

	idx := &index.ArchivumIndex{Header: index.NewHeader("none", 0)}
	idx.Entries = []index.IndexEntry{{Path: "a.txt", Type: index.TypeFile, Size: 5}}
	require.NoError(t, digest.Run(idx, src, 1, nil))

	opts := packer.Options{Algorithm: compression.None}
	packer.Assign(idx.Entries, opts)
	archiveDir := t.TempDir()
	require.NoError(t, packer.Emit(idx.Entries, src, archiveDir, opts))
	idx.Recount()
	return archiveDir, idx
}

func TestRunReportsOKForIntactArchive(t *testing.T) {
	archiveDir, idx := buildVerifiableArchive(t)
	tally, err := Run(idx, Options{ArchiveDir: archiveDir, Algorithm: compression.None})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.OK)
	assert.Empty(t, tally.Corrupt)
	assert.Empty(t, tally.Missing)
}

func TestRunDetectsMissingPart(t *testing.T) {
	archiveDir, idx := buildVerifiableArchive(t)
	require.NoError(t, os.Remove(filepath.Join(archiveDir, index.PartFileName(0, compression.None.Extension()))))

	_, err := Run(idx, Options{ArchiveDir: archiveDir, Algorithm: compression.None})
	assert.Error(t, err)
}

func TestRunDetectsCorruptPayload(t *testing.T) {
	archiveDir, idx := buildVerifiableArchive(t)
	partPath := filepath.Join(archiveDir, index.PartFileName(0, compression.None.Extension()))
	data, err := os.ReadFile(partPath)
	require.NoError(t, err)
	// Flip only the payload bytes (after the 512-byte tar header block) so
	// the tar stream still parses and the mismatch surfaces as a checksum
	// failure rather than a format error.
	for i := 512; i < len(data) && i < 512+5; i++ {
		data[i] ^= 0xFF
	}
	require.NoError(t, os.WriteFile(partPath, data, 0o644))

	tally, err := Run(idx, Options{ArchiveDir: archiveDir, Algorithm: compression.None, ContinueOnError: true})
	require.NoError(t, err)
	assert.NotEmpty(t, tally.Corrupt)
}

func TestRunReportsNoDigestForLegacyArchive(t *testing.T) {
	archiveDir, idx := buildVerifiableArchive(t)
	idx.Entries[0].SHA256 = ""

	tally, err := Run(idx, Options{ArchiveDir: archiveDir, Algorithm: compression.None})
	require.NoError(t, err)
	assert.True(t, tally.NoDigest)
}
