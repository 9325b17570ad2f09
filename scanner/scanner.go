// Package scanner walks a source tree into the deterministic, ordered
// list of ScanEntry records the index build stage consumes.
package scanner

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// ScanEntry is the transient record the scanner emits for one path under
// the source root, before any digest or dedup information exists.
type ScanEntry struct {
	Path          string
	Type          index.EntryType
	Size          int64
	ModTimeUnix   *int64
	Mode          *uint32
	SymlinkTarget string
}

// Options configures a Scan.
type Options struct {
	// Excludes is a set of doublestar glob patterns matched against the
	// root-relative, slash-normalized path. A matching path and
	// everything under it (for directories) is omitted.
	Excludes []string
}

// Scan walks root in deterministic lexicographic pre-order, skipping
// symlink targets (never followed) and omitting the empty root path
// itself. An unreadable root is an IOError; unreadable children are
// skipped silently, matching the teacher's best-effort directory walk.
func Scan(root string, opts Options) ([]ScanEntry, error) {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return nil, errors.New(errors.IOError, "scanner.scan", root, "unreadable root", err)
	}
	if !rootInfo.IsDir() {
		return nil, errors.New(errors.InputError, "scanner.scan", root, "root is not a directory", nil)
	}

	var entries []ScanEntry
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if path == root {
			if walkErr != nil {
				return walkErr
			}
			return nil
		}
		if walkErr != nil {
			// Unreadable child: skip silently, continue the walk.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchExclude(rel, opts.Excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		entry := ScanEntry{Path: rel}
		mtime := info.ModTime().Unix()
		entry.ModTimeUnix = &mtime
		mode := uint32(info.Mode().Perm())
		entry.Mode = &mode

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			entry.Type = index.TypeSymlink
			target, err := os.Readlink(path)
			if err == nil {
				entry.SymlinkTarget = target
			}
		case info.IsDir():
			entry.Type = index.TypeDirectory
		default:
			entry.Type = index.TypeFile
			entry.Size = info.Size()
		}

		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.IOError, "scanner.scan", root, "walk failed", err)
	}

	return entries, nil
}

func matchExclude(relPath string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}
