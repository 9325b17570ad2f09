// Package repairer rebuilds an index from an archive's part files alone,
// for the case where the original index was lost or corrupted beyond
// recovery. Checksums are not available after a repair.
package repairer

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ankit-chaubey/archivum/compression"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// Options configures a repair run.
type Options struct {
	ArchiveDir string
	Algorithm  compression.Algorithm
}

// Run enumerates data.part{NNN}{ext} files under opts.ArchiveDir in
// numeric order and records an IndexEntry for every regular file,
// directory, and symlink it finds. Other tar entry kinds are skipped and
// counted. sha256 is left absent on every entry.
func Run(opts Options) (*index.ArchivumIndex, error) {
	ext := opts.Algorithm.Extension()
	parts, err := discoverParts(opts.ArchiveDir, ext)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, archivumErrors.New(archivumErrors.InputError, "repairer.run", opts.ArchiveDir, "no part files found", nil)
	}

	idx := &index.ArchivumIndex{Header: index.NewHeader(string(opts.Algorithm), 0)}
	seenDirs := make(map[string]bool)
	var skipped int

	for _, p := range parts {
		if err := repairPart(idx, opts, p, seenDirs, &skipped); err != nil {
			return nil, err
		}
	}

	notes := "Repaired index — checksums not available"
	if skipped > 0 {
		notes += fmt.Sprintf(" (skipped %d non-regular, non-directory, non-symlink tar entries)", skipped)
	}
	idx.Header.Notes = notes
	idx.Recount()
	return idx, nil
}

type partFile struct {
	ordinal int
	path    string
}

func discoverParts(dir, ext string) ([]partFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, archivumErrors.New(archivumErrors.IOError, "repairer.run", dir, "failed to read archive directory", err)
	}
	var parts []partFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "data.part") || !strings.HasSuffix(name, ext) {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, "data.part"), ext)
		ordinal := 0
		if _, err := fmtSscan(numPart, &ordinal); err != nil {
			continue
		}
		parts = append(parts, partFile{ordinal: ordinal, path: filepath.Join(dir, name)})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ordinal < parts[j].ordinal })
	return parts, nil
}

func fmtSscan(s string, out *int) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, archivumErrors.New(archivumErrors.FormatError, "repairer.run", s, "non-numeric part ordinal", nil)
		}
		n = n*10 + int(r-'0')
	}
	*out = n
	return 1, nil
}

func repairPart(idx *index.ArchivumIndex, opts Options, p partFile, seenDirs map[string]bool, skipped *int) error {
	f, err := os.Open(p.path)
	if err != nil {
		return archivumErrors.New(archivumErrors.IOError, "repairer.run", p.path, "failed to open part file", err)
	}
	defer f.Close()

	cr, err := opts.Algorithm.WrapReader(f)
	if err != nil {
		return archivumErrors.New(archivumErrors.FormatError, "repairer.run", p.path, "failed to open compressed reader", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archivumErrors.New(archivumErrors.FormatError, "repairer.run", p.path, "malformed tar stream", err)
		}

		mode := uint32(header.Mode)
		mtime := header.ModTime.Unix()

		switch header.Typeflag {
		case tar.TypeReg, tar.TypeRegA:
			idx.Entries = append(idx.Entries, index.IndexEntry{
				Path:        header.Name,
				Type:        index.TypeFile,
				Size:        header.Size,
				ModTimeUnix: &mtime,
				Mode:        &mode,
				TarPart:     uint32(p.ordinal),
			})
		case tar.TypeDir:
			if !seenDirs[header.Name] {
				seenDirs[header.Name] = true
				idx.Entries = append(idx.Entries, index.IndexEntry{
					Path:        strings.TrimSuffix(header.Name, "/"),
					Type:        index.TypeDirectory,
					ModTimeUnix: &mtime,
					Mode:        &mode,
				})
			}
		case tar.TypeSymlink:
			idx.Entries = append(idx.Entries, index.IndexEntry{
				Path:          header.Name,
				Type:          index.TypeSymlink,
				SymlinkTarget: header.Linkname,
				ModTimeUnix:   &mtime,
				Mode:          &mode,
			})
		default:
			*skipped++
		}
	}
	return nil
}
