// Package differ compares an archived index against a live source tree,
// classifying every file into one of four disjoint sets.
package differ

import (
	"os"
	"path/filepath"

	"github.com/ankit-chaubey/archivum/digest"
	"github.com/ankit-chaubey/archivum/index"
)

// Change is one file's classification in a diff report.
type Change struct {
	Path   string
	Reason string
}

// Report is the four disjoint sets a diff produces.
type Report struct {
	Added     []Change
	Removed   []Change
	Modified  []Change
	Unchanged []Change
}

// Options configures a diff run.
type Options struct {
	SourceRoot string
	Strict     bool // re-hash on size+mtime match, moving mismatches to Modified
}

// Run classifies every file entry in idx against live files under
// opts.SourceRoot. A base comparison of size or mtime differing is enough
// to call a file modified; strict mode additionally re-hashes size+mtime
// matches and reclassifies a checksum mismatch as modified.
func Run(idx *index.ArchivumIndex, opts Options) (*Report, error) {
	r := &Report{}

	indexed := make(map[string]*index.IndexEntry)
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if e.Type == index.TypeFile {
			indexed[e.Path] = e
		}
	}

	live := make(map[string]os.FileInfo)
	err := filepath.WalkDir(opts.SourceRoot, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || path == opts.SourceRoot || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(opts.SourceRoot, path)
		if err != nil {
			return nil
		}
		live[filepath.ToSlash(rel)] = info
		return nil
	})
	if err != nil {
		return nil, err
	}

	for relPath, info := range live {
		e, ok := indexed[relPath]
		if !ok {
			r.Added = append(r.Added, Change{Path: relPath, Reason: "not present in archive"})
			continue
		}
		classifyExisting(relPath, e, info, opts, r)
	}

	for relPath := range indexed {
		if _, ok := live[relPath]; !ok {
			r.Removed = append(r.Removed, Change{Path: relPath, Reason: "missing from source tree"})
		}
	}

	return r, nil
}

func classifyExisting(relPath string, e *index.IndexEntry, info os.FileInfo, opts Options, r *Report) {
	sizeDiffers := info.Size() != e.Size
	mtimeDiffers := e.ModTimeUnix == nil || info.ModTime().Unix() != *e.ModTimeUnix

	if sizeDiffers || mtimeDiffers {
		r.Modified = append(r.Modified, Change{Path: relPath, Reason: "size or mtime differs"})
		return
	}

	if opts.Strict && e.SHA256 != "" {
		absPath := filepath.Join(opts.SourceRoot, filepath.FromSlash(relPath))
		f, err := os.Open(absPath)
		if err == nil {
			defer f.Close()
			sum, err := digest.HashReader(f)
			if err == nil && sum != e.SHA256 {
				r.Modified = append(r.Modified, Change{Path: relPath, Reason: "checksum mismatch"})
				return
			}
		}
	}

	r.Unchanged = append(r.Unchanged, Change{Path: relPath})
}
