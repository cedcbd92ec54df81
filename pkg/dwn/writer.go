package dwn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// ErrIO wraps failures writing a scene to its destination.
var ErrIO = errors.New("scene write failed")

const (
	// Magic is the 8-byte tag opening every file. It is not NUL-terminated.
	Magic = "DWNSCENE"
	// Version is the only format version this package writes and reads.
	Version uint32 = 1
	// Extension is the conventional file extension.
	Extension = ".dwn"

	// HeaderSize is the byte length of the file header.
	HeaderSize = 16
	// ChunkHeaderSize is the byte length of a chunk's tag and length.
	ChunkHeaderSize = 8
)

// AppendHeader appends the file header for a body of bodyLen bytes.
func AppendHeader(dst []byte, bodyLen uint32) []byte {
	dst = append(dst, Magic...)
	dst = binary.LittleEndian.AppendUint32(dst, Version)
	return binary.LittleEndian.AppendUint32(dst, bodyLen)
}

// AppendChunk appends one framed chunk: 4-byte tag, u32 payload length and
// the payload itself.
func AppendChunk(dst []byte, tag string, payload []byte) ([]byte, error) {
	if len(tag) != 4 {
		return dst, fmt.Errorf("chunk tag %q must be 4 bytes", tag)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: chunk %s payload of %d bytes", ErrOverflow, tag, len(payload))
	}
	dst = append(dst, tag...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// EncodeBody returns every chunk of s framed in file order.
func EncodeBody(s *Scene) ([]byte, error) {
	var body []byte
	for _, enc := range ChunkEncoders {
		payload, err := enc.Encode(s)
		if err != nil {
			return nil, fmt.Errorf("encoding %s chunk: %w", enc.Tag, err)
		}
		if body, err = AppendChunk(body, enc.Tag, payload); err != nil {
			return nil, err
		}
	}
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: file body of %d bytes", ErrOverflow, len(body))
	}
	return body, nil
}

// Encode returns the complete file for s: header followed by the body.
func Encode(s *Scene) ([]byte, error) {
	body, err := EncodeBody(s)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(body))
	out = AppendHeader(out, uint32(len(body)))
	return append(out, body...), nil
}

// Write streams the header and then the body of s to w. Nothing is written
// if encoding fails.
func Write(w io.Writer, s *Scene) (int64, error) {
	body, err := EncodeBody(s)
	if err != nil {
		return 0, err
	}

	header := AppendHeader(make([]byte, 0, HeaderSize), uint32(len(body)))
	n, err := w.Write(header)
	written := int64(n)
	if err != nil {
		return written, fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	n, err = w.Write(body)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("%w: writing body: %v", ErrIO, err)
	}
	return written, nil
}

// WriteFile encodes s and replaces path with it atomically: the file is
// written to a temporary sibling, synced and renamed over path, so a failed
// export never leaves a truncated file behind.
func WriteFile(path string, s *Scene) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := Write(tmp, s)
	if err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	committed = true
	return n, nil
}

// WriteFileDirect writes s straight to path without the temporary file.
// A failed write part way through can leave a truncated file at path.
func WriteFileDirect(path string, s *Scene) (int64, error) {
	data, err := Encode(s)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return int64(len(data)), nil
}
