package pruner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/archivum/index"
)

func writeArchiveDir(t *testing.T, root, name string, createdAt int64) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	idx := &index.ArchivumIndex{Header: index.NewHeader("none", 0)}
	idx.Header.CreatedAtUnix = createdAt
	require.NoError(t, index.Write(filepath.Join(dir, "index.arc.json"), idx))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.part000.tar"), []byte("x"), 0o644))
	return dir
}

func TestRunKeepsNewestAndDeletesAgedRemainder(t *testing.T) {
	root := t.TempDir()
	now := int64(1_700_000_000)
	writeArchiveDir(t, root, "oldest", now-10*86400)
	writeArchiveDir(t, root, "middle", now-5*86400)
	writeArchiveDir(t, root, "newest", now)

	res, err := Run(Options{Root: root, KeepLast: 1, MaxAgeDays: 0})
	require.NoError(t, err)
	assert.Len(t, res.Kept, 1)
	assert.Len(t, res.Deleted, 2)

	_, err = os.Stat(filepath.Join(root, "newest"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "oldest"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunDryRunDoesNotDelete(t *testing.T) {
	root := t.TempDir()
	writeArchiveDir(t, root, "only", 1_000_000)

	res, err := Run(Options{Root: root, KeepLast: 0, MaxAgeDays: 0, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 1)
	_, err = os.Stat(filepath.Join(root, "only"))
	assert.NoError(t, err)
}
