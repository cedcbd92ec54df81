package formats

import (
	"encoding/binary"
	"math"

	"github.com/Faultbox/dawn-toolbox/pkg/encoding"
)

// binReader walks little-endian data. The first short read sets err and
// every later call returns zero values, so parsers check err once per record.
type binReader struct {
	data []byte
	off  int
	err  error
	eof  error
}

func newBinReader(data []byte, eof error) *binReader {
	return &binReader{data: data, eof: eof}
}

func (r *binReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = r.eof
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *binReader) skip(n int) { r.take(n) }

func (r *binReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *binReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *binReader) i32() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *binReader) f32() float32 {
	if b := r.take(4); b != nil {
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *binReader) f32s(dst []float32) {
	for i := range dst {
		dst[i] = r.f32()
	}
}

func (r *binReader) vec3() [3]float32 {
	var v [3]float32
	r.f32s(v[:])
	return v
}

// name reads a fixed-size, NUL-padded EUC-KR string as UTF-8.
func (r *binReader) name(size int) string {
	return encoding.FixedStringToUTF8(r.take(size))
}

// count reads an int32 element count and checks that count records of at
// least recordSize bytes can still follow.
func (r *binReader) count(recordSize int) int {
	n := r.i32()
	if r.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(recordSize) > int64(r.remaining()) {
		r.err = r.eof
		return 0
	}
	return int(n)
}

func (r *binReader) remaining() int {
	return len(r.data) - r.off
}
