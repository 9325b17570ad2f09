// Package index defines the archive's persisted data model: the
// IndexHeader/IndexEntry/ArchivumIndex types, the build lifecycle state
// machine, and the BLAKE3 seal that makes a written index tamper-evident.
package index

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lukechampine/blake3"

	"github.com/ankit-chaubey/archivum/errors"
)

// SchemaVersion is the current on-disk IndexHeader schema version.
const SchemaVersion = 3

// EntryType is the closed set of entry kinds a scan or index can record.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
	TypeSymlink   EntryType = "symlink"
)

// IndexEntry is one persisted record in an ArchivumIndex.
type IndexEntry struct {
	Path           string    `json:"path"`
	Type           EntryType `json:"type"`
	Size           int64     `json:"size"`
	ModTimeUnix    *int64    `json:"mtime,omitempty"`
	Mode           *uint32   `json:"mode,omitempty"`
	SHA256         string    `json:"sha256,omitempty"`
	TarPart        uint32    `json:"tar_part"`
	SymlinkTarget  string    `json:"symlink_target,omitempty"`
	TarBase        uint32    `json:"tar_base,omitempty"`
	DedupOf        string    `json:"dedup_of,omitempty"`
}

// IsDedup reports whether this entry's content is stored under another
// entry's path rather than in its own tar record.
func (e *IndexEntry) IsDedup() bool { return e.DedupOf != "" }

// IndexHeader carries archive-wide metadata independent of any one entry.
type IndexHeader struct {
	SchemaVersion      int      `json:"schema_version"`
	CreatedAtUnix      int64    `json:"created_at_unix"`
	CreatedAtUTC       string   `json:"created_at_utc"`
	TotalFiles         int64    `json:"total_files"`
	TotalDirs          int64    `json:"total_dirs"`
	TotalSymlinks      int64    `json:"total_symlinks"`
	TotalBytes         int64    `json:"total_bytes"`
	TotalParts         uint32   `json:"total_parts"`
	Compression        string   `json:"compression"`
	CompressionLevel   int      `json:"compression_level"`
	Notes              string   `json:"notes,omitempty"`
	PartBases          []string `json:"part_bases"`
}

// ArchivumIndex is the full persisted index: header plus every entry.
type ArchivumIndex struct {
	Header  IndexHeader  `json:"header"`
	Entries []IndexEntry `json:"entries"`
}

// NewHeader returns a header with part_bases seeded to its single
// required element: index 0, the index's own directory.
func NewHeader(compression string, level int) IndexHeader {
	now := time.Now().UTC()
	return IndexHeader{
		SchemaVersion:    SchemaVersion,
		CreatedAtUnix:    now.Unix(),
		CreatedAtUTC:     now.Format(time.RFC3339),
		Compression:      compression,
		CompressionLevel: level,
		PartBases:        []string{""},
	}
}

// Recount recomputes the header's cumulative counters and total_parts from
// the current entry set. total_parts is 1+max(tar_part) over base-0 File
// entries with no dedup_of, or 0 if there are none.
func (idx *ArchivumIndex) Recount() {
	var files, dirs, symlinks, bytesTotal int64
	var maxPart uint32
	haveBase0File := false

	for _, e := range idx.Entries {
		switch e.Type {
		case TypeFile:
			files++
			bytesTotal += e.Size
			if e.TarBase == 0 && !e.IsDedup() {
				haveBase0File = true
				if e.TarPart > maxPart {
					maxPart = e.TarPart
				}
			}
		case TypeDirectory:
			dirs++
		case TypeSymlink:
			symlinks++
		}
	}

	idx.Header.TotalFiles = files
	idx.Header.TotalDirs = dirs
	idx.Header.TotalSymlinks = symlinks
	idx.Header.TotalBytes = bytesTotal
	if haveBase0File {
		idx.Header.TotalParts = maxPart + 1
	} else {
		idx.Header.TotalParts = 0
	}
}

// Marshal renders the index as pretty-printed JSON, the format every
// reader and the seal both operate on byte-for-byte.
func (idx *ArchivumIndex) Marshal() ([]byte, error) {
	return json.MarshalIndent(idx, "", "  ")
}

// Seal returns the lowercase hex BLAKE3 digest of the index's marshaled
// bytes, written to the <index>.b3 sidecar file.
func Seal(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Write marshals idx, writes it to path, and writes the matching seal file
// at path+".b3". An index is never written without its seal.
func Write(path string, idx *ArchivumIndex) error {
	data, err := idx.Marshal()
	if err != nil {
		return errors.New(errors.FormatError, "index.write", path, "failed to marshal index", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.IOError, "index.write", path, "failed to write index file", err)
	}
	sealPath := path + ".b3"
	if err := os.WriteFile(sealPath, []byte(Seal(data)), 0o644); err != nil {
		return errors.New(errors.IOError, "index.write", sealPath, "failed to write seal file", err)
	}
	return nil
}

// Read loads the index at path and verifies its seal when present. A
// missing seal file is tolerated for forward compatibility with repaired
// archives; a present-but-mismatched seal is always fatal.
func Read(path string) (*ArchivumIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IOError, "index.read", path, "failed to read index file", err)
	}

	sealPath := path + ".b3"
	if sealData, err := os.ReadFile(sealPath); err == nil {
		want := string(sealData)
		got := Seal(data)
		if want != got {
			return nil, errors.New(errors.IntegrityError, "index.read", path,
				fmt.Sprintf("seal mismatch: expected %s, got %s", want, got), nil)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.New(errors.IOError, "index.read", sealPath, "failed to read seal file", err)
	}

	var idx ArchivumIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.New(errors.FormatError, "index.read", path, "malformed index JSON", err)
	}
	if idx.Header.SchemaVersion > SchemaVersion {
		return nil, errors.New(errors.FormatError, "index.read", path,
			fmt.Sprintf("unsupported schema version %d", idx.Header.SchemaVersion), nil)
	}
	if len(idx.Header.PartBases) == 0 || idx.Header.PartBases[0] != "" {
		return nil, errors.New(errors.FormatError, "index.read", path, "part_bases must be non-empty with part_bases[0] == \"\"", nil)
	}

	return &idx, nil
}

// PartFileName returns the part file name for ordinal p and extension ext,
// e.g. "data.part003.tar.zst".
func PartFileName(p uint32, ext string) string {
	return fmt.Sprintf("data.part%03d%s", p, ext)
}
