// Package packer implements the part packer: assigning File entries to
// numbered, size- and count-budgeted parts, then emitting each part as a
// compressed tar file.
package packer

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
)

// tarEntryOverhead approximates a tar entry's on-disk footprint: one
// 512-byte header block plus the content rounded up to 512-byte blocks.
func tarEntryOverhead(size int64) int64 {
	blocks := (size + 511) / 512
	return 512 + blocks*512
}

// Options configures a pack run.
type Options struct {
	Algorithm   compression.Algorithm
	Level       int
	SplitBytes  int64 // 0 disables the byte-count rotation trigger
	SplitFiles  int   // 0 disables the file-count rotation trigger
}

// Assign runs Part Packer pass A: walks base-0, non-dedup File entries in
// index order and assigns each a tar_part ordinal, rotating whenever the
// running byte or file budget for the current part would overflow. Part
// assignment is a pure function of (entries, split_bytes, split_files).
func Assign(entries []index.IndexEntry, opts Options) {
	var currentPart uint32
	var currentBytes int64
	var currentFiles int

	for i := range entries {
		e := &entries[i]
		if e.Type != index.TypeFile || e.IsDedup() || e.TarBase != 0 {
			continue
		}

		overhead := tarEntryOverhead(e.Size)
		overflow := opts.SplitBytes > 0 && currentBytes > 0 && currentBytes+overhead > opts.SplitBytes
		fileCapHit := opts.SplitFiles > 0 && currentFiles >= opts.SplitFiles

		if currentFiles > 0 && (overflow || fileCapHit) {
			currentPart++
			currentBytes = 0
			currentFiles = 0
		}

		e.TarPart = currentPart
		currentBytes += overhead
		currentFiles++
	}
}

// Emit runs Part Packer pass B: for every part ordinal produced by Assign,
// opens data.part{NNN}{ext} under outputDir, wraps it with the configured
// compression algorithm, and tar-appends each matching File entry reading
// its payload from sourceRoot. Directories, symlinks, and dedup entries are
// never written to a tar part.
func Emit(entries []index.IndexEntry, sourceRoot, outputDir string, opts Options) error {
	byPart := make(map[uint32][]*index.IndexEntry)
	var maxPart uint32
	haveFiles := false

	for i := range entries {
		e := &entries[i]
		if e.Type != index.TypeFile || e.IsDedup() || e.TarBase != 0 {
			continue
		}
		byPart[e.TarPart] = append(byPart[e.TarPart], e)
		if e.TarPart > maxPart {
			maxPart = e.TarPart
		}
		haveFiles = true
	}
	if !haveFiles {
		return nil
	}

	ext := opts.Algorithm.Extension()
	for p := uint32(0); p <= maxPart; p++ {
		partEntries, ok := byPart[p]
		if !ok {
			continue
		}
		if err := emitPart(partEntries, sourceRoot, outputDir, p, ext, opts); err != nil {
			return err
		}
	}
	return nil
}

func emitPart(entries []*index.IndexEntry, sourceRoot, outputDir string, part uint32, ext string, opts Options) error {
	partPath := filepath.Join(outputDir, index.PartFileName(part, ext))
	f, err := os.Create(partPath)
	if err != nil {
		return errors.New(errors.IOError, "packer.emit", partPath, "failed to create part file", err)
	}
	defer f.Close()

	cw, err := opts.Algorithm.WrapWriter(f, opts.Level)
	if err != nil {
		return errors.New(errors.IOError, "packer.emit", partPath, "failed to open compressed writer", err)
	}

	tw := tar.NewWriter(cw)
	for _, e := range entries {
		if err := appendFile(tw, sourceRoot, e); err != nil {
			tw.Close()
			cw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		cw.Close()
		return errors.New(errors.IOError, "packer.emit", partPath, "failed to finalize tar stream", err)
	}
	if err := cw.Close(); err != nil {
		return errors.New(errors.IOError, "packer.emit", partPath, "failed to finalize compressed part", err)
	}
	return nil
}

func appendFile(tw *tar.Writer, sourceRoot string, e *index.IndexEntry) error {
	absPath := filepath.Join(sourceRoot, filepath.FromSlash(e.Path))
	f, err := os.Open(absPath)
	if err != nil {
		return errors.New(errors.IOError, "packer.emit", absPath, "failed to open source file", err)
	}
	defer f.Close()

	header := &tar.Header{
		Name:     e.Path,
		Typeflag: tar.TypeReg,
		Size:     e.Size,
		Mode:     0o644,
	}
	if e.Mode != nil {
		header.Mode = int64(*e.Mode)
	}
	if e.ModTimeUnix != nil {
		header.ModTime = unixToTime(*e.ModTimeUnix)
	}

	if err := tw.WriteHeader(header); err != nil {
		return errors.New(errors.IOError, "packer.emit", e.Path, "failed to write tar header", err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return errors.New(errors.IOError, "packer.emit", e.Path, "failed to write tar payload", err)
	}
	return nil
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
