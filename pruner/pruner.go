// Package pruner removes aged-out archive directories beneath a backup
// root, keeping a minimum number of the most recent archives regardless
// of age.
package pruner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// Options configures a prune run.
type Options struct {
	Root        string
	KeepLast    int
	MaxAgeDays  int
	DryRun      bool
}

// candidate is one archive directory found under Root.
type candidate struct {
	dir       string
	createdAt int64
}

// Result reports what Run did or would do.
type Result struct {
	Kept    []string
	Deleted []string
}

// Run treats each immediate subdirectory of opts.Root containing
// index.arc.json as an archive, orders them by creation time ascending,
// preserves the newest opts.KeepLast, and deletes any remaining archive
// whose age in days is at least opts.MaxAgeDays (MaxAgeDays=0 deletes all
// of the remainder).
func Run(opts Options) (*Result, error) {
	candidates, err := discover(opts.Root)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].createdAt < candidates[j].createdAt })

	res := &Result{}
	keepFrom := len(candidates) - opts.KeepLast
	if keepFrom < 0 {
		keepFrom = 0
	}

	now := time.Now().Unix()
	for i, c := range candidates {
		if i >= keepFrom {
			res.Kept = append(res.Kept, c.dir)
			continue
		}
		ageDays := (now - c.createdAt) / 86400
		if int64(opts.MaxAgeDays) == 0 || ageDays >= int64(opts.MaxAgeDays) {
			if !opts.DryRun {
				if err := deleteArchive(c.dir); err != nil {
					return res, err
				}
			}
			res.Deleted = append(res.Deleted, c.dir)
		} else {
			res.Kept = append(res.Kept, c.dir)
		}
	}
	return res, nil
}

func discover(root string) ([]candidate, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, archivumErrors.New(archivumErrors.IOError, "pruner.run", root, "failed to read backup root", err)
	}
	var out []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		indexPath := filepath.Join(dir, "index.arc.json")
		if _, err := os.Stat(indexPath); err != nil {
			continue
		}
		idx, err := index.Read(indexPath)
		if err != nil {
			continue
		}
		out = append(out, candidate{dir: dir, createdAt: idx.Header.CreatedAtUnix})
	}
	return out, nil
}

// deleteArchive removes every data.part* file, the index, and its seal,
// then removes the directory itself if it becomes empty.
func deleteArchive(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return archivumErrors.New(archivumErrors.IOError, "pruner.run", dir, "failed to read archive directory", err)
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "data.part") || name == "index.arc.json" || name == "index.arc.json.b3" {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return archivumErrors.New(archivumErrors.IOError, "pruner.run", filepath.Join(dir, name), "failed to delete archive file", err)
			}
		}
	}
	remaining, err := os.ReadDir(dir)
	if err == nil && len(remaining) == 0 {
		_ = os.Remove(dir)
	}
	return nil
}
