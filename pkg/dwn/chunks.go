package dwn

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Chunk tags, in file order.
const (
	TagAccessors      = "ACCE"
	TagMeshes         = "MESH"
	TagObjects        = "OBJE"
	TagTransformNodes = "TRAN"
	TagVertexLayouts  = "VERT"
	TagBuffers        = "BUFF"
)

// Fixed record sizes of the chunks whose record count is implied by the
// payload length.
const (
	AccessorRecordSize = 14
	MeshRecordSize     = 6
	ObjectRecordSize   = 3
)

// ChunkEncoder serializes one table of a finished scene.
type ChunkEncoder struct {
	Tag    string
	Encode func(*Scene) ([]byte, error)
}

// ChunkEncoders lists every chunk in the order it appears in a file.
var ChunkEncoders = []ChunkEncoder{
	{TagAccessors, EncodeAccessors},
	{TagMeshes, EncodeMeshes},
	{TagObjects, EncodeObjects},
	{TagTransformNodes, EncodeTransformNodes},
	{TagVertexLayouts, EncodeVertexLayouts},
	{TagBuffers, EncodeBuffers},
}

// chunkWriter appends little-endian fields and keeps the first range error.
type chunkWriter struct {
	buf []byte
	err error
}

func (w *chunkWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *chunkWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *chunkWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *chunkWriter) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// count writes n as a u16 record or element count.
func (w *chunkWriter) count(what string, n int) {
	if n > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: %d %s exceed a u16 count", ErrOverflow, n, what))
		return
	}
	w.u16(uint16(n))
}

// ref writes a u16 index into a table of the given length.
func (w *chunkWriter) ref(what string, index, length int) {
	if index < 0 || index >= length {
		w.fail(fmt.Errorf("%w: %s %d of %d", ErrDanglingReference, what, index, length))
		return
	}
	if index > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: %s index %d exceeds u16", ErrOverflow, what, index))
		return
	}
	w.u16(uint16(index))
}

func (w *chunkWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *chunkWriter) result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// EncodeAccessors writes one 14-byte record per accessor:
// byte_count u32, byte_index u32, byte_stride u16, buffer_index u16,
// component_count u8, component_type u8.
func EncodeAccessors(s *Scene) ([]byte, error) {
	w := &chunkWriter{buf: make([]byte, 0, len(s.Accessors)*AccessorRecordSize)}
	for _, a := range s.Accessors {
		w.u32(a.ByteCount)
		w.u32(a.ByteIndex)
		w.u16(a.ByteStride)
		w.ref("buffer", a.Buffer, len(s.Buffers))
		w.u8(a.ComponentCount)
		w.u8(uint8(a.ComponentType))
	}
	return w.result()
}

// EncodeMeshes writes one 6-byte record per mesh: index accessor u16,
// material u16 (always 0) and vertex layout u16.
func EncodeMeshes(s *Scene) ([]byte, error) {
	w := &chunkWriter{buf: make([]byte, 0, len(s.Meshes)*MeshRecordSize)}
	for _, m := range s.Meshes {
		w.ref("index accessor", m.IndexAccessor, len(s.Accessors))
		w.u16(0) // no material table yet
		w.ref("vertex layout", m.VertexLayout, len(s.VertexLayouts))
	}
	return w.result()
}

// EncodeObjects writes one 3-byte record per object: mesh index u16 and
// object type u8.
func EncodeObjects(s *Scene) ([]byte, error) {
	w := &chunkWriter{buf: make([]byte, 0, len(s.Objects)*ObjectRecordSize)}
	for _, o := range s.Objects {
		switch o.Type {
		case ObjectMesh:
			w.ref("mesh", o.Mesh, len(s.Meshes))
		default:
			w.fail(fmt.Errorf("%w: %s", ErrUnsupportedObject, o.Type))
		}
		w.u8(uint8(o.Type))
	}
	return w.result()
}

// EncodeTransformNodes writes a u16 node count followed by, per node, the
// orientation (w, x, y, z), position and scale as f32, the object index,
// the child count and the child indices.
func EncodeTransformNodes(s *Scene) ([]byte, error) {
	w := &chunkWriter{}
	w.count("transform nodes", len(s.TransformNodes))
	for _, n := range s.TransformNodes {
		t := n.Transform
		w.f32(t.Orientation.W)
		w.f32(t.Orientation.X)
		w.f32(t.Orientation.Y)
		w.f32(t.Orientation.Z)
		w.f32(t.Position.X)
		w.f32(t.Position.Y)
		w.f32(t.Position.Z)
		w.f32(t.Scale.X)
		w.f32(t.Scale.Y)
		w.f32(t.Scale.Z)
		w.ref("object", n.Object, len(s.Objects))
		w.count("children", len(n.Children))
		for _, c := range n.Children {
			w.ref("child node", c, len(s.TransformNodes))
		}
	}
	return w.result()
}

// EncodeVertexLayouts writes a u16 layout count followed by, per layout, the
// attribute count and (accessor u16, attribute type u8) pairs in order.
func EncodeVertexLayouts(s *Scene) ([]byte, error) {
	w := &chunkWriter{}
	w.count("vertex layouts", len(s.VertexLayouts))
	for _, l := range s.VertexLayouts {
		w.count("attributes", len(l.Attributes))
		for _, attr := range l.Attributes {
			w.ref("attribute accessor", attr.Accessor, len(s.Accessors))
			w.u8(uint8(attr.Type))
		}
	}
	return w.result()
}

// EncodeBuffers writes a u16 buffer count followed by, per buffer, its u32
// length and raw bytes.
func EncodeBuffers(s *Scene) ([]byte, error) {
	size := 2
	for _, b := range s.Buffers {
		size += 4 + len(b)
	}

	w := &chunkWriter{buf: make([]byte, 0, size)}
	w.count("buffers", len(s.Buffers))
	for i, b := range s.Buffers {
		if uint64(len(b)) > math.MaxUint32 {
			w.fail(fmt.Errorf("%w: buffer %d is %d bytes", ErrOverflow, i, len(b)))
			break
		}
		w.u32(uint32(len(b)))
		w.buf = append(w.buf, b...)
	}
	return w.result()
}
