// Package extractor implements the safe extractor: a five-pass restore
// that writes directories, then symlinks, then tar-part file content, then
// resolves deduplicated files, all through pathfinder.SafeJoin so no
// entry or symlink target can escape the destination root.
package extractor

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ankit-chaubey/archivum/compression"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/logging"
	"github.com/ankit-chaubey/archivum/pathfinder"
)

// Options configures an extraction or restore run.
type Options struct {
	ArchiveDir         string // directory containing the index and part files
	DestRoot           string
	Algorithm          compression.Algorithm
	Includes           []string // empty means "everything"
	RestorePermissions bool
	ContinueOnError    bool
	Log                *logging.Logger
}

// Result tallies what each pass did, surfaced to the CLI's summary report.
type Result struct {
	DirsCreated     int
	SymlinksWritten int
	FilesWritten    int
	DedupFilesCopied int
	Notices         []string
}

func matchesFilter(path string, includes []string) bool {
	if len(includes) == 0 {
		return true
	}
	for _, pat := range includes {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}
	return false
}

// Extract runs the five-pass restore of idx into opts.DestRoot.
func Extract(idx *index.ArchivumIndex, opts Options) (*Result, error) {
	res := &Result{}

	// Pass 1: directories.
	var dirs []index.IndexEntry
	for _, e := range idx.Entries {
		if e.Type == index.TypeDirectory && matchesFilter(e.Path, opts.Includes) {
			dirs = append(dirs, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	for _, e := range dirs {
		target, err := pathfinder.SafeJoin(opts.DestRoot, e.Path)
		if err != nil {
			return res, archivumErrors.New(archivumErrors.SecurityError, "extractor.extract", e.Path, "unsafe directory path", err)
		}
		mode := os.FileMode(0o755)
		if opts.RestorePermissions && e.Mode != nil {
			mode = os.FileMode(*e.Mode)
		}
		if err := os.MkdirAll(target, mode); err != nil {
			if !opts.ContinueOnError {
				return res, archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to create directory", err)
			}
			res.Notices = append(res.Notices, "skipped directory "+e.Path+": "+err.Error())
			continue
		}
		res.DirsCreated++
	}

	// Pass 2: symlinks. A link whose target would resolve outside the
	// destination is skipped with a notice. Anything already present at the
	// link's path is removed and replaced; there is no option to keep it.
	// Platforms without symlink support are not detected up front: a failed
	// os.Symlink is fatal unless ContinueOnError is set.
	for _, e := range idx.Entries {
		if e.Type != index.TypeSymlink || !matchesFilter(e.Path, opts.Includes) {
			continue
		}
		target, err := pathfinder.SafeJoin(opts.DestRoot, e.Path)
		if err != nil {
			return res, archivumErrors.New(archivumErrors.SecurityError, "extractor.extract", e.Path, "unsafe symlink path", err)
		}
		if _, err := pathfinder.SafeJoin(filepath.Dir(target), e.SymlinkTarget); err != nil {
			res.Notices = append(res.Notices, "skipped symlink "+e.Path+": unsafe link target "+e.SymlinkTarget)
			continue
		}
		_ = os.Remove(target)
		if err := os.Symlink(e.SymlinkTarget, target); err != nil {
			if !opts.ContinueOnError {
				return res, archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to create symlink", err)
			}
			res.Notices = append(res.Notices, "skipped symlink "+e.Path+": "+err.Error())
			continue
		}
		res.SymlinksWritten++
	}

	// Pass 3: File entries grouped by (tar_base, tar_part), one
	// decompressed reader per part.
	onDisk := make(map[string]string)
	groups := make(map[[2]uint32][]*index.IndexEntry)
	var groupKeys [][2]uint32
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if e.Type != index.TypeFile || e.IsDedup() || !matchesFilter(e.Path, opts.Includes) {
			continue
		}
		if _, err := pathfinder.SafeJoin(opts.DestRoot, e.Path); err != nil {
			return res, archivumErrors.New(archivumErrors.SecurityError, "extractor.extract", e.Path, "unsafe file path", err)
		}
		key := [2]uint32{e.TarBase, e.TarPart}
		if _, ok := groups[key]; !ok {
			groupKeys = append(groupKeys, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Slice(groupKeys, func(i, j int) bool {
		if groupKeys[i][0] != groupKeys[j][0] {
			return groupKeys[i][0] < groupKeys[j][0]
		}
		return groupKeys[i][1] < groupKeys[j][1]
	})

	for _, key := range groupKeys {
		base, part := key[0], key[1]
		wanted := make(map[string]*index.IndexEntry)
		for _, e := range groups[key] {
			wanted[e.Path] = e
		}
		if err := extractFromPart(idx, opts, base, part, wanted, onDisk, res); err != nil {
			if !opts.ContinueOnError {
				return res, err
			}
			res.Notices = append(res.Notices, err.Error())
		}
	}

	// Pass 4 is reserved (non-POSIX metadata such as ACLs/xattrs; not a
	// goal here). Pass 5: resolve deduplicated files from pass 3's map.
	for _, e := range idx.Entries {
		if e.Type != index.TypeFile || !e.IsDedup() || !matchesFilter(e.Path, opts.Includes) {
			continue
		}
		originPath, ok := onDisk[e.DedupOf]
		if !ok {
			res.Notices = append(res.Notices, "dedup origin "+e.DedupOf+" was filtered out, skipping "+e.Path)
			continue
		}
		target, err := pathfinder.SafeJoin(opts.DestRoot, e.Path)
		if err != nil {
			return res, archivumErrors.New(archivumErrors.SecurityError, "extractor.extract", e.Path, "unsafe dedup target path", err)
		}
		if err := copyFile(originPath, target); err != nil {
			if !opts.ContinueOnError {
				return res, archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to copy dedup file", err)
			}
			res.Notices = append(res.Notices, "skipped dedup file "+e.Path+": "+err.Error())
			continue
		}
		res.DedupFilesCopied++
	}

	return res, nil
}

func extractFromPart(idx *index.ArchivumIndex, opts Options, base, part uint32, wanted map[string]*index.IndexEntry, onDisk map[string]string, res *Result) error {
	if int(base) >= len(idx.Header.PartBases) {
		return archivumErrors.New(archivumErrors.FormatError, "extractor.extract", "", "tar_base index out of range", nil)
	}
	baseDir := filepath.Join(opts.ArchiveDir, filepath.FromSlash(idx.Header.PartBases[base]))
	partPath := filepath.Join(baseDir, index.PartFileName(part, opts.Algorithm.Extension()))

	f, err := os.Open(partPath)
	if err != nil {
		return archivumErrors.New(archivumErrors.IOError, "extractor.extract", partPath, "missing part file", err)
	}
	defer f.Close()

	cr, err := opts.Algorithm.WrapReader(f)
	if err != nil {
		return archivumErrors.New(archivumErrors.FormatError, "extractor.extract", partPath, "failed to open compressed reader", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archivumErrors.New(archivumErrors.FormatError, "extractor.extract", partPath, "malformed tar stream", err)
		}
		e, ok := wanted[header.Name]
		if !ok {
			continue
		}
		target, err := pathfinder.SafeJoin(opts.DestRoot, e.Path)
		if err != nil {
			return archivumErrors.New(archivumErrors.SecurityError, "extractor.extract", e.Path, "unsafe file path", err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to create parent directory", err)
		}
		mode := os.FileMode(0o644)
		if opts.RestorePermissions && e.Mode != nil {
			mode = os.FileMode(*e.Mode)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
		if err != nil {
			return archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to create destination file", err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return archivumErrors.New(archivumErrors.IOError, "extractor.extract", e.Path, "failed to write file content", err)
		}
		out.Close()
		onDisk[e.Path] = target
		res.FilesWritten++
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
