package dwn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentType_Metadata(t *testing.T) {
	tests := []struct {
		kind    ComponentType
		size    int
		integer bool
		signed  bool
		name    string
	}{
		{ComponentInvalid, 0, false, false, "Invalid"},
		{ComponentFloat32, 4, false, true, "Float32"},
		{ComponentInt8, 1, true, true, "Int8"},
		{ComponentInt16, 2, true, true, "Int16"},
		{ComponentInt32, 4, true, true, "Int32"},
		{ComponentUint8, 1, true, false, "Uint8"},
		{ComponentUint16, 2, true, false, "Uint16"},
		{ComponentUint32, 4, true, false, "Uint32"},
		{ComponentType(99), 0, false, false, "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.size, tt.kind.Size())
			assert.Equal(t, tt.integer, tt.kind.IsInteger())
			assert.Equal(t, tt.signed, tt.kind.IsSigned())
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.size > 0, tt.kind.Valid())
		})
	}
}

func TestPack_Integers(t *testing.T) {
	tests := []struct {
		name   string
		kind   ComponentType
		values []int
		want   []byte
	}{
		{"int8 negative", ComponentInt8, []int{-1, 5}, []byte{0xff, 0x05}},
		{"int16 little endian", ComponentInt16, []int{-1, 300}, []byte{0xff, 0xff, 0x2c, 0x01}},
		{"int32", ComponentInt32, []int{-2}, []byte{0xfe, 0xff, 0xff, 0xff}},
		{"uint16", ComponentUint16, []int{0, 1, 65535}, []byte{0, 0, 1, 0, 0xff, 0xff}},
		{"uint32", ComponentUint32, []int{0x01020304}, []byte{4, 3, 2, 1}},
		{"uint8 saturates high and low", ComponentUint8, []int{300, -5}, []byte{0xff, 0x00}},
		{"int8 saturates", ComponentInt8, []int{200, -200}, []byte{0x7f, 0x80}},
		{"uint16 saturates", ComponentUint16, []int{70000}, []byte{0xff, 0xff}},
		{"empty", ComponentUint16, nil, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pack(tt.values, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPack_FloatsIntoIntegers(t *testing.T) {
	got, err := Pack([]float64{2.9, -2.9, math.NaN(), math.Inf(1)}, ComponentInt16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0xfe, 0xff, 0x00, 0x00, 0xff, 0x7f}, got)
}

func TestPack_Float32(t *testing.T) {
	got, err := Pack([]float32{1, -2}, ComponentFloat32)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xc0}, got)
}

func TestPack_InvalidKind(t *testing.T) {
	_, err := Pack([]int{1}, ComponentInvalid)
	assert.ErrorIs(t, err, ErrInvalidComponentType)

	_, err = PackStrict([]int{1}, ComponentType(42))
	assert.ErrorIs(t, err, ErrInvalidComponentType)
}

func TestPackStrict_Overflow(t *testing.T) {
	got, err := PackStrict([]uint32{65535}, ComponentUint16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, got)

	_, err = PackStrict([]uint32{0, 65536}, ComponentUint16)
	require.ErrorIs(t, err, ErrOverflow)
	assert.Contains(t, err.Error(), "index 1")

	_, err = PackStrict([]int{-1}, ComponentUint8)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = PackStrict([]float32{float32(math.NaN())}, ComponentFloat32)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPackNormalizedByte(t *testing.T) {
	tests := []struct {
		name   string
		values []float32
		want   []byte
	}{
		{"boundaries", []float32{0.0, 1.0, 0.5}, []byte{0, 255, 127}},
		{"clamps out of range", []float32{1.5, -0.25, 1.0001}, []byte{255, 0, 255}},
		{"nan", []float32{float32(math.NaN())}, []byte{0}},
		{"floor not round", []float32{0.999}, []byte{254}},
		{"empty", nil, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackNormalizedByte(tt.values))
		})
	}
}
