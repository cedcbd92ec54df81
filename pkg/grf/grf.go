// Package grf reads Ragnarok Online GRF archives (version 0x200), the
// packed data files that RSM models are usually shipped in.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/dawn-toolbox/pkg/encoding"
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
	ErrNotFound           = errors.New("file not found in GRF")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

const (
	grfMagic      = "Master of Magic"
	headerSize    = 46
	entrySize     = 17
	versionZlib   = 0x200
	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04
)

// Archive is an opened GRF archive. Reads use ReadAt, so an Archive may be
// shared between goroutines.
type Archive struct {
	path    string
	file    *os.File
	header  Header
	entries map[string]*Entry
}

// Header is the fixed 46-byte GRF file header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry is one file in the archive table.
type Entry struct {
	Name             string // normalized, UTF-8
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		path:    path,
		file:    file,
		entries: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	if err := archive.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table of %s: %w", path, err)
	}

	return archive, nil
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	var raw [headerSize]byte
	if _, err := a.file.ReadAt(raw[:], 0); err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &a.header); err != nil {
		return err
	}

	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != versionZlib {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.file.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressed := make([]byte, compressedSize)
	if _, err := a.file.ReadAt(compressed, tableOffset+8); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	table, err := inflate(compressed, uncompressedSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d", ErrCorruptTable, a.header.FileCount)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7

	offset := 0
	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 || offset+nameEnd+1+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d runs past the table", ErrCorruptTable, i)
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		rec := table[offset : offset+entrySize]
		entry := &Entry{
			Name:             encoding.NormalizeGRFPath(name),
			CompressedSize:   binary.LittleEndian.Uint32(rec[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		}
		offset += entrySize

		if entry.Flags&flagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}

	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for name := range a.entries {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Glob returns the sorted paths matching a path.Match pattern, compared
// after normalization.
func (a *Archive) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizeGRFPath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	var matches []string
	for _, name := range a.List() {
		if ok, _ := path.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[encoding.NormalizeGRFPath(name)]
	return ok
}

// Read returns the uncompressed contents of a file.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.entries[encoding.NormalizeGRFPath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}

	data := make([]byte, entry.CompressedSize)
	if _, err := a.file.ReadAt(data, int64(entry.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return data, nil
	}

	result, err := inflate(data, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return result, nil
}

func inflate(data []byte, size uint32) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Set searches several archives in order; earlier archives win.
type Set []*Archive

// OpenSet opens every path. On failure the archives already opened are closed.
func OpenSet(paths []string) (Set, error) {
	set := make(Set, 0, len(paths))
	for _, p := range paths {
		a, err := Open(p)
		if err != nil {
			set.Close()
			return nil, err
		}
		set = append(set, a)
	}
	return set, nil
}

// Read returns the file from the first archive that contains it.
func (s Set) Read(name string) ([]byte, error) {
	for _, a := range s {
		if a.Contains(name) {
			return a.Read(name)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close closes every archive and returns the first error.
func (s Set) Close() error {
	var first error
	for _, a := range s {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// IsArchivePath reports whether name looks like a path inside an archive
// ("data\model\..." or "data/model/...") rather than a file on disk.
func IsArchivePath(name string) bool {
	return strings.HasPrefix(encoding.NormalizeGRFPath(name), "data/")
}
