// Package dwn implements the Dawn scene file format (.dwn): a versioned,
// little-endian binary container of accessor, mesh, object, transform,
// vertex layout and buffer tables that reference each other by index.
package dwn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Codec errors.
var (
	ErrInvalidComponentType = errors.New("invalid component type")
	ErrOverflow             = errors.New("value out of range for fixed-width field")
)

// ComponentType is the scalar kind of each component in an accessor.
type ComponentType uint8

const (
	ComponentInvalid ComponentType = 0
	ComponentFloat32 ComponentType = 1
	ComponentInt8    ComponentType = 2
	ComponentInt16   ComponentType = 3
	ComponentInt32   ComponentType = 4
	ComponentUint8   ComponentType = 5
	ComponentUint16  ComponentType = 6
	ComponentUint32  ComponentType = 7
)

type componentInfo struct {
	name     string
	size     int
	integer  bool
	signed   bool
	min, max float64
}

// componentTable is indexed by ComponentType.
var componentTable = [...]componentInfo{
	ComponentInvalid: {name: "Invalid"},
	ComponentFloat32: {name: "Float32", size: 4, signed: true, min: -math.MaxFloat32, max: math.MaxFloat32},
	ComponentInt8:    {name: "Int8", size: 1, integer: true, signed: true, min: math.MinInt8, max: math.MaxInt8},
	ComponentInt16:   {name: "Int16", size: 2, integer: true, signed: true, min: math.MinInt16, max: math.MaxInt16},
	ComponentInt32:   {name: "Int32", size: 4, integer: true, signed: true, min: math.MinInt32, max: math.MaxInt32},
	ComponentUint8:   {name: "Uint8", size: 1, integer: true, max: math.MaxUint8},
	ComponentUint16:  {name: "Uint16", size: 2, integer: true, max: math.MaxUint16},
	ComponentUint32:  {name: "Uint32", size: 4, integer: true, max: math.MaxUint32},
}

func (c ComponentType) info() componentInfo {
	if int(c) >= len(componentTable) {
		return componentTable[ComponentInvalid]
	}
	return componentTable[c]
}

// Size returns the byte width of one component, or 0 for invalid kinds.
func (c ComponentType) Size() int { return c.info().size }

// IsInteger reports whether the kind is an integer type.
func (c ComponentType) IsInteger() bool { return c.info().integer }

// IsSigned reports whether the kind can hold negative values.
func (c ComponentType) IsSigned() bool { return c.info().signed }

// Valid reports whether c is one of the defined component kinds.
func (c ComponentType) Valid() bool { return c.info().size > 0 }

// String returns a human-readable component type name.
func (c ComponentType) String() string {
	if !c.Valid() && c != ComponentInvalid {
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
	return c.info().name
}

// Number is any Go numeric type that can be packed into components.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Pack encodes values as consecutive little-endian components of kind.
//
// Integer kinds saturate: values below or above the representable range
// are clamped to the nearest bound, fractional values truncate toward zero
// and NaN packs as 0. Float32 packs as IEEE-754 single precision.
func Pack[T Number](values []T, kind ComponentType) ([]byte, error) {
	return pack(values, kind, false)
}

// PackStrict is Pack without saturation: any value that does not fit kind
// returns ErrOverflow.
func PackStrict[T Number](values []T, kind ComponentType) ([]byte, error) {
	return pack(values, kind, true)
}

func pack[T Number](values []T, kind ComponentType, strict bool) ([]byte, error) {
	info := kind.info()
	if info.size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidComponentType, kind)
	}

	out := make([]byte, 0, len(values)*info.size)
	for i, v := range values {
		f := float64(v)
		if strict && !(f >= info.min && f <= info.max) {
			return nil, fmt.Errorf("%w: %v at index %d does not fit %s", ErrOverflow, v, i, kind)
		}

		if !info.integer {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
			continue
		}

		n := saturate(f, info)
		switch info.size {
		case 1:
			out = append(out, byte(n))
		case 2:
			out = binary.LittleEndian.AppendUint16(out, uint16(n))
		case 4:
			out = binary.LittleEndian.AppendUint32(out, uint32(n))
		}
	}
	return out, nil
}

func saturate(f float64, info componentInfo) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f <= info.min:
		return int64(info.min)
	case f >= info.max:
		return int64(info.max)
	}
	return int64(f)
}

// PackNormalizedByte encodes each value in [0, 1] as floor(255 * v), one
// unsigned byte per value. Out-of-range input clamps to [0, 255] and NaN
// packs as 0.
func PackNormalizedByte(values []float32) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		f := math32.Floor(255 * v)
		switch {
		case math32.IsNaN(f) || f <= 0:
			out[i] = 0
		case f >= 255:
			out[i] = 255
		default:
			out[i] = byte(f)
		}
	}
	return out
}
