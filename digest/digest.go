// Package digest implements the digest engine: a parallel work-list SHA-256
// pass over an index's File entries, followed by a deterministic
// single-threaded whole-file dedup pass.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/logging"
)

const chunkSize = 128 * 1024

// workItem is one File entry awaiting a digest.
type workItem struct {
	entryIndex int
	absPath    string
}

// result is a completed digest, delivered out of order by worker threads.
type result struct {
	entryIndex int
	hexDigest  string
	err        error
}

// Run streams every non-dedup File entry under root through SHA-256 using
// workers goroutines, writes the resulting digests back into idx.Entries,
// then performs the deterministic dedup pass. Partial per-file failures are
// logged and counted rather than aborting the batch, unless every item
// fails.
func Run(idx *index.ArchivumIndex, root string, workers int, log *logging.Logger) error {
	if workers < 1 {
		workers = 1
	}

	var work []workItem
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if e.Type != index.TypeFile || e.IsDedup() {
			continue
		}
		work = append(work, workItem{entryIndex: i, absPath: filepath.Join(root, filepath.FromSlash(e.Path))})
	}
	if len(work) == 0 {
		dedupePass(idx)
		return nil
	}

	jobs := make(chan workItem)
	results := make(chan result)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				hexDigest, err := hashFile(item.absPath)
				results <- result{entryIndex: item.entryIndex, hexDigest: hexDigest, err: err}
			}
		}()
	}

	go func() {
		for _, item := range work {
			jobs <- item
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var failures int
	for r := range results {
		if r.err != nil {
			failures++
			if log != nil {
				log.WithError(r.err).Warn("failed to digest file", zap.String("path", idx.Entries[r.entryIndex].Path))
			}
			continue
		}
		idx.Entries[r.entryIndex].SHA256 = r.hexDigest
	}

	if failures == len(work) {
		return errors.New(errors.IOError, "digest.run", root, "all digest operations failed", nil)
	}

	dedupePass(idx)
	return nil
}

// hashFile streams a file's content through SHA-256 in chunkSize blocks,
// returning the lowercase hex digest of the payload bytes (never the
// tar-framed bytes).
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader is the streaming hash primitive the verifier also uses to
// recompute a digest from a tar-extracted stream.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// dedupePass walks entries in index order, the first occurrence of a
// digest becomes the content origin and later occurrences get dedup_of
// set to that origin's path. Size is left untouched for reporting but the
// part packer excludes dedup entries from byte accounting.
func dedupePass(idx *index.ArchivumIndex) {
	firstPath := make(map[string]string)
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if e.Type != index.TypeFile || e.SHA256 == "" || e.IsDedup() {
			continue
		}
		if origin, ok := firstPath[e.SHA256]; ok {
			e.DedupOf = origin
		} else {
			firstPath[e.SHA256] = e.Path
		}
	}
}
