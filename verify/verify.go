// Package verify implements the verifier: a structural pass confirming
// every declared part exists, followed by a checksum pass recomputing and
// comparing each File entry's digest against its tar payload.
package verify

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/digest"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// Options configures a verify run.
type Options struct {
	ArchiveDir      string
	Algorithm       compression.Algorithm
	ContinueOnError bool
}

// Tally is the outcome of a verify run.
type Tally struct {
	OK       int
	Corrupt  []string
	Missing  []string
	NoDigest bool // legacy archive: no entries carried digests
}

// Run performs the structural then checksum passes over idx.
func Run(idx *index.ArchivumIndex, opts Options) (*Tally, error) {
	t := &Tally{}

	if err := checkStructure(idx, opts, t); err != nil {
		return t, err
	}
	if len(t.Missing) > 0 && !opts.ContinueOnError {
		return t, archivumErrors.New(archivumErrors.IntegrityError, "verify.run", opts.ArchiveDir, "missing part file(s)", nil)
	}

	hasDigests := false
	for _, e := range idx.Entries {
		if e.Type == index.TypeFile && !e.IsDedup() && e.SHA256 != "" {
			hasDigests = true
			break
		}
	}
	if !hasDigests {
		t.NoDigest = true
		return t, nil
	}

	if err := checkChecksums(idx, opts, t); err != nil {
		return t, err
	}
	if len(t.Corrupt) > 0 && !opts.ContinueOnError {
		return t, archivumErrors.New(archivumErrors.IntegrityError, "verify.run", opts.ArchiveDir, "checksum mismatch", nil)
	}
	return t, nil
}

func checkStructure(idx *index.ArchivumIndex, opts Options, t *Tally) error {
	ext := opts.Algorithm.Extension()
	for p := uint32(0); p < idx.Header.TotalParts; p++ {
		path := filepath.Join(opts.ArchiveDir, index.PartFileName(p, ext))
		if _, err := os.Stat(path); err != nil {
			t.Missing = append(t.Missing, path)
			if !opts.ContinueOnError {
				return nil
			}
		}
	}
	return nil
}

func checkChecksums(idx *index.ArchivumIndex, opts Options, t *Tally) error {
	type key struct {
		base, part uint32
	}
	groups := make(map[key][]*index.IndexEntry)
	var keys []key
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if e.Type != index.TypeFile || e.IsDedup() || e.SHA256 == "" {
			continue
		}
		k := key{e.TarBase, e.TarPart}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].base != keys[j].base {
			return keys[i].base < keys[j].base
		}
		return keys[i].part < keys[j].part
	})

	for _, k := range keys {
		if err := checkPart(idx, opts, k.base, k.part, groups[k], t); err != nil {
			return err
		}
		if len(t.Corrupt) > 0 && !opts.ContinueOnError {
			return nil
		}
	}
	return nil
}

func checkPart(idx *index.ArchivumIndex, opts Options, base, part uint32, wanted []*index.IndexEntry, t *Tally) error {
	if int(base) >= len(idx.Header.PartBases) {
		return archivumErrors.New(archivumErrors.FormatError, "verify.run", "", "tar_base index out of range", nil)
	}
	byName := make(map[string]*index.IndexEntry)
	for _, e := range wanted {
		byName[e.Path] = e
	}

	baseDir := filepath.Join(opts.ArchiveDir, filepath.FromSlash(idx.Header.PartBases[base]))
	partPath := filepath.Join(baseDir, index.PartFileName(part, opts.Algorithm.Extension()))

	f, err := os.Open(partPath)
	if err != nil {
		t.Missing = append(t.Missing, partPath)
		return nil
	}
	defer f.Close()

	cr, err := opts.Algorithm.WrapReader(f)
	if err != nil {
		return archivumErrors.New(archivumErrors.FormatError, "verify.run", partPath, "failed to open compressed reader", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	seen := make(map[string]bool)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archivumErrors.New(archivumErrors.FormatError, "verify.run", partPath, "malformed tar stream", err)
		}
		e, ok := byName[header.Name]
		if !ok {
			continue
		}
		seen[header.Name] = true
		sum, err := digest.HashReader(tr)
		if err != nil {
			return archivumErrors.New(archivumErrors.IOError, "verify.run", header.Name, "failed to hash tar payload", err)
		}
		if sum != e.SHA256 {
			t.Corrupt = append(t.Corrupt, e.Path)
			if !opts.ContinueOnError {
				return nil
			}
			continue
		}
		t.OK++
	}
	for name := range byName {
		if !seen[name] {
			t.Corrupt = append(t.Corrupt, name)
		}
	}
	return nil
}
