package dwn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// Parse errors.
var (
	ErrInvalidMagic       = errors.New("invalid scene magic: expected 'DWNSCENE'")
	ErrUnsupportedVersion = errors.New("unsupported scene version")
	ErrTruncatedData      = errors.New("truncated scene data")
	ErrMissingChunk       = errors.New("missing scene chunk")
	ErrMalformedChunk     = errors.New("malformed scene chunk")
)

// Header is the fixed-size file header.
type Header struct {
	Version   uint32
	ByteCount uint32 // Length of everything after the header
}

// String returns a short description of the header.
func (h Header) String() string {
	return fmt.Sprintf("%s v%d, %d bytes", Magic, h.Version, h.ByteCount)
}

// Chunk is one framed section of a file.
type Chunk struct {
	Tag     string
	Offset  int // Offset of the chunk's tag from the start of the file
	Payload []byte
}

// File is a parsed but not yet decoded scene file.
type File struct {
	Header Header
	Chunks []Chunk
}

// Chunk returns the first chunk with the given tag.
func (f *File) Chunk(tag string) (Chunk, bool) {
	for _, c := range f.Chunks {
		if c.Tag == tag {
			return c, true
		}
	}
	return Chunk{}, false
}

// byteReader reads little-endian fields from a slice, failing with
// ErrTruncatedData instead of reading past the end.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) expect(n int, what string) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: reading %s at byte %d", ErrTruncatedData, what, r.pos)
	}
	return nil
}

func (r *byteReader) bytes(n int, what string) ([]byte, error) {
	if err := r.expect(n, what); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) u8(what string) (uint8, error) {
	b, err := r.bytes(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u16(what string) (uint16, error) {
	b, err := r.bytes(2, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u32(what string) (uint32, error) {
	b, err := r.bytes(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) f32s(dst []float32, what string) error {
	b, err := r.bytes(4*len(dst), what)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

// ParseHeader validates and returns the file header.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d byte header", ErrTruncatedData, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return Header{}, ErrInvalidMagic
	}

	h := Header{
		Version:   binary.LittleEndian.Uint32(data[8:]),
		ByteCount: binary.LittleEndian.Uint32(data[12:]),
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if uint64(h.ByteCount) > uint64(len(data)-HeaderSize) {
		return h, fmt.Errorf("%w: header declares %d bytes, %d present",
			ErrTruncatedData, h.ByteCount, len(data)-HeaderSize)
	}
	return h, nil
}

// Parse splits a file into its header and framed chunks. Bytes beyond the
// length declared in the header are ignored.
func Parse(data []byte) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	f := &File{Header: h}
	r := &byteReader{data: data[:HeaderSize+int(h.ByteCount)], pos: HeaderSize}
	for r.remaining() > 0 {
		offset := r.pos
		tag, err := r.bytes(4, "chunk tag")
		if err != nil {
			return nil, err
		}
		length, err := r.u32("chunk length")
		if err != nil {
			return nil, err
		}
		payload, err := r.bytes(int(length), "chunk "+string(tag))
		if err != nil {
			return nil, err
		}
		f.Chunks = append(f.Chunks, Chunk{Tag: string(tag), Offset: offset, Payload: payload})
	}
	return f, nil
}

// ParseFile parses a scene file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Decode parses data and rebuilds every scene table from its chunks.
// Unknown chunks are skipped. The result is validated, so every index in it
// is in range.
func Decode(data []byte) (*Scene, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Scene()
}

// DecodeFile decodes a scene file from disk.
func DecodeFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Scene decodes the file's chunks into a Scene.
func (f *File) Scene() (*Scene, error) {
	s := NewScene()
	decoders := []struct {
		tag    string
		decode func(*Scene, []byte) error
	}{
		{TagAccessors, decodeAccessors},
		{TagMeshes, decodeMeshes},
		{TagObjects, decodeObjects},
		{TagTransformNodes, decodeTransformNodes},
		{TagVertexLayouts, decodeVertexLayouts},
		{TagBuffers, decodeBuffers},
	}
	for _, d := range decoders {
		c, ok := f.Chunk(d.tag)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChunk, d.tag)
		}
		if err := d.decode(s, c.Payload); err != nil {
			return nil, fmt.Errorf("decoding %s chunk: %w", d.tag, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// makeTable returns nil for empty tables so decoded scenes compare equal to
// built ones.
func makeTable[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, n)
}

func fixedRecords(payload []byte, size int) (int, error) {
	if len(payload)%size != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte record",
			ErrMalformedChunk, len(payload), size)
	}
	return len(payload) / size, nil
}

func expectConsumed(r *byteReader) error {
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedChunk, r.remaining())
	}
	return nil
}

func decodeAccessors(s *Scene, payload []byte) error {
	n, err := fixedRecords(payload, AccessorRecordSize)
	if err != nil {
		return err
	}
	s.Accessors = makeTable[Accessor](n)
	for i := range s.Accessors {
		rec := payload[i*AccessorRecordSize:]
		s.Accessors[i] = Accessor{
			ByteCount:      binary.LittleEndian.Uint32(rec[0:]),
			ByteIndex:      binary.LittleEndian.Uint32(rec[4:]),
			ByteStride:     binary.LittleEndian.Uint16(rec[8:]),
			Buffer:         int(binary.LittleEndian.Uint16(rec[10:])),
			ComponentCount: rec[12],
			ComponentType:  ComponentType(rec[13]),
		}
	}
	return nil
}

func decodeMeshes(s *Scene, payload []byte) error {
	n, err := fixedRecords(payload, MeshRecordSize)
	if err != nil {
		return err
	}
	s.Meshes = makeTable[Mesh](n)
	for i := range s.Meshes {
		rec := payload[i*MeshRecordSize:]
		// rec[2:4] is the material slot, unused.
		s.Meshes[i] = Mesh{
			IndexAccessor: int(binary.LittleEndian.Uint16(rec[0:])),
			VertexLayout:  int(binary.LittleEndian.Uint16(rec[4:])),
		}
	}
	return nil
}

func decodeObjects(s *Scene, payload []byte) error {
	n, err := fixedRecords(payload, ObjectRecordSize)
	if err != nil {
		return err
	}
	s.Objects = makeTable[Object](n)
	for i := range s.Objects {
		rec := payload[i*ObjectRecordSize:]
		s.Objects[i] = Object{
			Mesh: int(binary.LittleEndian.Uint16(rec[0:])),
			Type: ObjectType(rec[2]),
		}
	}
	return nil
}

func decodeTransformNodes(s *Scene, payload []byte) error {
	r := &byteReader{data: payload}
	count, err := r.u16("node count")
	if err != nil {
		return err
	}

	s.TransformNodes = makeTable[TransformNode](int(count))
	for i := range s.TransformNodes {
		var f [10]float32
		if err := r.f32s(f[:], fmt.Sprintf("node %d transform", i)); err != nil {
			return err
		}
		node := &s.TransformNodes[i]
		node.Transform.Orientation.W = f[0]
		node.Transform.Orientation.X = f[1]
		node.Transform.Orientation.Y = f[2]
		node.Transform.Orientation.Z = f[3]
		node.Transform.Position.X = f[4]
		node.Transform.Position.Y = f[5]
		node.Transform.Position.Z = f[6]
		node.Transform.Scale.X = f[7]
		node.Transform.Scale.Y = f[8]
		node.Transform.Scale.Z = f[9]

		obj, err := r.u16("node object")
		if err != nil {
			return err
		}
		node.Object = int(obj)

		childCount, err := r.u16("node child count")
		if err != nil {
			return err
		}
		node.Children = makeTable[int](int(childCount))
		for j := range node.Children {
			c, err := r.u16("node child")
			if err != nil {
				return err
			}
			node.Children[j] = int(c)
		}
	}
	return expectConsumed(r)
}

func decodeVertexLayouts(s *Scene, payload []byte) error {
	r := &byteReader{data: payload}
	count, err := r.u16("layout count")
	if err != nil {
		return err
	}

	s.VertexLayouts = makeTable[VertexLayout](int(count))
	for i := range s.VertexLayouts {
		attrCount, err := r.u16("attribute count")
		if err != nil {
			return err
		}
		attrs := makeTable[VertexAttribute](int(attrCount))
		for j := range attrs {
			acc, err := r.u16("attribute accessor")
			if err != nil {
				return err
			}
			typ, err := r.u8("attribute type")
			if err != nil {
				return err
			}
			attrs[j] = VertexAttribute{Accessor: int(acc), Type: VertexAttributeType(typ)}
		}
		s.VertexLayouts[i].Attributes = attrs
	}
	return expectConsumed(r)
}

func decodeBuffers(s *Scene, payload []byte) error {
	r := &byteReader{data: payload}
	count, err := r.u16("buffer count")
	if err != nil {
		return err
	}

	s.Buffers = makeTable[Buffer](int(count))
	for i := range s.Buffers {
		length, err := r.u32("buffer length")
		if err != nil {
			return err
		}
		if uint64(length) > uint64(r.remaining()) {
			return fmt.Errorf("%w: buffer %d declares %d bytes, %d left",
				ErrTruncatedData, i, length, r.remaining())
		}
		b, err := r.bytes(int(length), "buffer data")
		if err != nil {
			return err
		}
		buf := make(Buffer, length)
		copy(buf, b)
		s.Buffers[i] = buf
	}
	return expectConsumed(r)
}
