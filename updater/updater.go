// Package updater builds an incremental index: unchanged files carry
// forward by reference into the prior archive (tar_base=1), while new and
// changed files are scanned, digested, and packed fresh into an output
// directory.
package updater

import (
	"path/filepath"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/differ"
	"github.com/ankit-chaubey/archivum/digest"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/packer"
	"github.com/ankit-chaubey/archivum/scanner"
)

// Options configures an update run.
type Options struct {
	OldIndexDir string
	OldIndex    *index.ArchivumIndex
	SourceRoot  string
	OutputDir   string
	Algorithm   compression.Algorithm
	Level       int
	SplitBytes  int64
	SplitFiles  int
	Threads     int
	Excludes    []string
	Strict      bool
}

// Run classifies the source tree against the old index via differ rules,
// carries unchanged files forward with tar_base=1, packs new/changed files
// into a fresh delta archive, and returns the merged index; it is sealed
// when written with index.Write.
func Run(opts Options) (*index.ArchivumIndex, error) {
	report, err := differ.Run(opts.OldIndex, differ.Options{SourceRoot: opts.SourceRoot, Strict: opts.Strict})
	if err != nil {
		return nil, err
	}

	changedOrNew := make(map[string]bool)
	for _, c := range report.Added {
		changedOrNew[c.Path] = true
	}
	for _, c := range report.Modified {
		changedOrNew[c.Path] = true
	}

	oldByPath := make(map[string]index.IndexEntry)
	for _, e := range opts.OldIndex.Entries {
		oldByPath[e.Path] = e
	}

	newIdx := &index.ArchivumIndex{
		Header: index.NewHeader(string(opts.Algorithm), opts.Level),
	}
	newIdx.Header.PartBases = []string{"", relBase(opts.OutputDir, opts.OldIndexDir)}

	// Directories and symlinks carry forward from the old index as-is.
	for _, e := range opts.OldIndex.Entries {
		if e.Type != index.TypeFile {
			newIdx.Entries = append(newIdx.Entries, e)
		}
	}

	// Unchanged files reference the old archive's parts directly.
	for _, c := range report.Unchanged {
		old := oldByPath[c.Path]
		old.TarBase = 1
		newIdx.Entries = append(newIdx.Entries, old)
	}

	// Scan the changed/new set fresh so mtime/mode/size reflect the
	// current source tree, then digest and pack them into the delta.
	scanned, err := scanner.Scan(opts.SourceRoot, scanner.Options{Excludes: opts.Excludes})
	if err != nil {
		return nil, err
	}
	deltaStart := len(newIdx.Entries)
	for _, se := range scanned {
		if se.Type != index.TypeFile || !changedOrNew[se.Path] {
			continue
		}
		newIdx.Entries = append(newIdx.Entries, index.IndexEntry{
			Path:          se.Path,
			Type:          se.Type,
			Size:          se.Size,
			ModTimeUnix:   se.ModTimeUnix,
			Mode:          se.Mode,
			SymlinkTarget: se.SymlinkTarget,
		})
	}

	if err := digest.Run(&index.ArchivumIndex{Header: newIdx.Header, Entries: newIdx.Entries[deltaStart:]}, opts.SourceRoot, opts.Threads, nil); err != nil {
		return nil, err
	}

	deltaEntries := newIdx.Entries[deltaStart:]
	packer.Assign(deltaEntries, packer.Options{
		Algorithm:  opts.Algorithm,
		Level:      opts.Level,
		SplitBytes: opts.SplitBytes,
		SplitFiles: opts.SplitFiles,
	})
	if err := packer.Emit(deltaEntries, opts.SourceRoot, opts.OutputDir, packer.Options{
		Algorithm:  opts.Algorithm,
		Level:      opts.Level,
		SplitBytes: opts.SplitBytes,
		SplitFiles: opts.SplitFiles,
	}); err != nil {
		return nil, err
	}

	newIdx.Recount()
	// total_parts must count only the new delta parts, not the inherited
	// base-1 parts; Recount already restricts to tar_base==0 entries.
	if newIdx.Header.TotalParts == 0 && len(deltaEntries) > 0 {
		return nil, archivumErrors.New(archivumErrors.FormatError, "updater.run", opts.OutputDir, "delta produced files but no parts", nil)
	}
	return newIdx, nil
}

func relBase(from, to string) string {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return to
	}
	return filepath.ToSlash(rel)
}
