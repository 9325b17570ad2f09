// Package merger combines two or more sealed indices into a single fresh
// archive, keeping the first writer on duplicate paths and repacking
// every surviving entry's content into new parts.
package merger

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ankit-chaubey/archivum/compression"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// Input is one source archive to merge.
type Input struct {
	Dir   string
	Index *index.ArchivumIndex
}

// Options configures a merge run.
type Options struct {
	Inputs     []Input
	OutputDir  string
	Algorithm  compression.Algorithm
	Level      int
	SplitBytes int64
}

// Run iterates opts.Inputs in order, drops dedup entries, carries
// directories and symlinks over as-is, dedupes by path with
// first-writer-wins, and repacks every kept File entry's
// content (read fully into memory, bounded by its own size) into fresh
// parts under opts.OutputDir.
func Run(opts Options) (*index.ArchivumIndex, error) {
	if len(opts.Inputs) < 2 {
		return nil, archivumErrors.New(archivumErrors.InputError, "merger.run", "", "merge requires at least two input archives", nil)
	}

	newIdx := &index.ArchivumIndex{Header: index.NewHeader(string(opts.Algorithm), opts.Level)}
	newIdx.Header.PartBases = []string{""}

	seen := make(map[string]bool)
	discarded := 0

	var currentPart uint32
	var currentBytes int64
	var tw *tar.Writer
	var cw io.WriteCloser
	var f *os.File

	closePart := func() error {
		if tw == nil {
			return nil
		}
		if err := tw.Close(); err != nil {
			return err
		}
		if err := cw.Close(); err != nil {
			return err
		}
		return f.Close()
	}
	openPart := func() error {
		ext := opts.Algorithm.Extension()
		partPath := filepath.Join(opts.OutputDir, index.PartFileName(currentPart, ext))
		var err error
		f, err = os.Create(partPath)
		if err != nil {
			return archivumErrors.New(archivumErrors.IOError, "merger.run", partPath, "failed to create part file", err)
		}
		cw, err = opts.Algorithm.WrapWriter(f, opts.Level)
		if err != nil {
			return archivumErrors.New(archivumErrors.IOError, "merger.run", partPath, "failed to open compressed writer", err)
		}
		tw = tar.NewWriter(cw)
		return nil
	}

	if err := openPart(); err != nil {
		return nil, err
	}

	for _, in := range opts.Inputs {
		for _, e := range in.Index.Entries {
			if e.Type != index.TypeFile || e.IsDedup() {
				if e.Type != index.TypeFile {
					// Directories and symlinks merge in as-is, first writer wins.
					if e.Type == index.TypeDirectory || e.Type == index.TypeSymlink {
						if !seen[e.Path] {
							seen[e.Path] = true
							newIdx.Entries = append(newIdx.Entries, e)
						} else {
							discarded++
						}
					}
				}
				continue
			}
			if seen[e.Path] {
				discarded++
				continue
			}
			seen[e.Path] = true

			data, mode, mtime, err := readEntryPayload(in, &e, opts.Algorithm)
			if err != nil {
				return nil, err
			}

			overhead := int64(512) + (int64(len(data))+511)/512*512
			if opts.SplitBytes > 0 && currentBytes > 0 && currentBytes+overhead > opts.SplitBytes {
				if err := closePart(); err != nil {
					return nil, err
				}
				currentPart++
				currentBytes = 0
				if err := openPart(); err != nil {
					return nil, err
				}
			}

			header := &tar.Header{Name: e.Path, Typeflag: tar.TypeReg, Size: int64(len(data)), Mode: int64(mode), ModTime: mtime}
			if err := tw.WriteHeader(header); err != nil {
				return nil, archivumErrors.New(archivumErrors.IOError, "merger.run", e.Path, "failed to write tar header", err)
			}
			if _, err := tw.Write(data); err != nil {
				return nil, archivumErrors.New(archivumErrors.IOError, "merger.run", e.Path, "failed to write tar payload", err)
			}
			currentBytes += overhead

			ne := e
			ne.TarBase = 0
			ne.TarPart = currentPart
			newIdx.Entries = append(newIdx.Entries, ne)
		}
	}

	if err := closePart(); err != nil {
		return nil, err
	}

	newIdx.Header.Notes = fmt.Sprintf("merged %d archives, %d duplicate path(s) discarded", len(opts.Inputs), discarded)
	newIdx.Recount()
	return newIdx, nil
}

func readEntryPayload(in Input, e *index.IndexEntry, alg compression.Algorithm) ([]byte, uint32, time.Time, error) {
	base := in.Dir
	if int(e.TarBase) < len(in.Index.Header.PartBases) {
		base = filepath.Join(in.Dir, filepath.FromSlash(in.Index.Header.PartBases[e.TarBase]))
	}
	partPath := filepath.Join(base, index.PartFileName(e.TarPart, alg.Extension()))

	f, err := os.Open(partPath)
	if err != nil {
		return nil, 0, time.Time{}, archivumErrors.New(archivumErrors.IOError, "merger.run", partPath, "missing source part", err)
	}
	defer f.Close()

	cr, err := alg.WrapReader(f)
	if err != nil {
		return nil, 0, time.Time{}, archivumErrors.New(archivumErrors.FormatError, "merger.run", partPath, "failed to open compressed reader", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, time.Time{}, archivumErrors.New(archivumErrors.FormatError, "merger.run", partPath, "malformed tar stream", err)
		}
		if header.Name != e.Path {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, 0, time.Time{}, archivumErrors.New(archivumErrors.IOError, "merger.run", e.Path, "failed to read tar payload", err)
		}
		return data, uint32(header.Mode), header.ModTime, nil
	}
	return nil, 0, time.Time{}, archivumErrors.New(archivumErrors.FormatError, "merger.run", e.Path, "entry not found in declared part", nil)
}
