// Package compression implements the archive's compression adapter: a
// closed algorithm set dispatched through two capability functions,
// WrapWriter and WrapReader, so every other component treats compression
// as an opaque byte-stream transform.
package compression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm is the closed set of part-level compression codecs.
type Algorithm string

const (
	None  Algorithm = "none"
	Gzip  Algorithm = "gzip"
	Bzip2 Algorithm = "bzip2"
	Lz4   Algorithm = "lz4"
	Zstd  Algorithm = "zstd"
)

// Parse resolves an algorithm tag or one of its short aliases (gz, bz2,
// zst, raw). An unrecognized tag is an InputError at the caller.
func Parse(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "none", "raw", "":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "bzip2", "bz2":
		return Bzip2, nil
	case "lz4":
		return Lz4, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm %q", s)
	}
}

// Extension returns the part-file suffix for the algorithm, e.g. ".tar.zst".
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".tar.gz"
	case Bzip2:
		return ".tar.bz2"
	case Lz4:
		return ".tar.lz4"
	case Zstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// ClampLevel clamps level into the range meaningful for the algorithm.
// Only Zstd honors a level; it is still stored in the index header for
// algorithms that ignore it, to avoid schema drift across versions.
func (a Algorithm) ClampLevel(level int) int {
	if a != Zstd {
		return level
	}
	if level < 1 {
		return 1
	}
	if level > 22 {
		return 22
	}
	return level
}

// flushWriteCloser adapts an io.Writer with no Close method (the
// bufio.Writer used for None) into an io.WriteCloser whose Close flushes.
type flushWriteCloser struct {
	w     io.Writer
	flush func() error
}

func (f *flushWriteCloser) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *flushWriteCloser) Close() error                { return f.flush() }

// WrapWriter returns a byte sink over w that finalizes the compressed
// stream when Close is called. Finalization on Close is mandatory:
// dropping the writer without closing it produces an unreadable part.
func (a Algorithm) WrapWriter(w io.Writer, level int) (io.WriteCloser, error) {
	level = a.ClampLevel(level)
	switch a {
	case None:
		bw := bufio.NewWriter(w)
		return &flushWriteCloser{w: bw, flush: bw.Flush}, nil
	case Gzip:
		gzLevel := gzip.DefaultCompression
		return gzip.NewWriterLevel(w, gzLevel)
	case Bzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	case Lz4:
		lw := lz4.NewWriter(w)
		return lw, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", a)
	}
}

// WrapReader returns a byte source over r that transparently decodes the
// stream written by the matching WrapWriter.
func (a Algorithm) WrapReader(r io.Reader) (io.ReadCloser, error) {
	switch a {
	case None:
		return io.NopCloser(bufio.NewReader(r)), nil
	case Gzip:
		return gzip.NewReader(r)
	case Bzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, err
		}
		return br, nil
	case Lz4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", a)
	}
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
