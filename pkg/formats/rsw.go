package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSW format errors.
var (
	ErrInvalidRSWMagic       = errors.New("invalid RSW magic: expected 'GRSW'")
	ErrUnsupportedRSWVersion = errors.New("unsupported RSW version")
	ErrTruncatedRSWData      = errors.New("truncated RSW data")
	ErrUnknownObjectType     = errors.New("unknown RSW object type")
)

const (
	rswMagic        = "GRSW"
	rswFileNameSize = 40
	rswLongNameSize = 80
)

// RSWVersion represents the RSW file version.
type RSWVersion struct {
	Major       uint8
	Minor       uint8
	BuildNumber uint32 // v2.2+ (uint8 for v2.2-2.4, uint32 for v2.5+)
}

// String returns the version as "Major.Minor" or "Major.Minor.Build".
func (v RSWVersion) String() string {
	if v.BuildNumber > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.BuildNumber)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSWVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSWObjectType represents the type of object placed in a world.
type RSWObjectType int32

const (
	RSWObjectModel  RSWObjectType = 1
	RSWObjectLight  RSWObjectType = 2
	RSWObjectSound  RSWObjectType = 3
	RSWObjectEffect RSWObjectType = 4
)

// String returns a human-readable object type name.
func (t RSWObjectType) String() string {
	switch t {
	case RSWObjectModel:
		return "Model"
	case RSWObjectLight:
		return "Light"
	case RSWObjectSound:
		return "Sound"
	case RSWObjectEffect:
		return "Effect"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// RSWWater contains water settings (v1.3 to v2.5).
type RSWWater struct {
	Level      float32
	Type       int32
	WaveHeight float32
	WaveSpeed  float32
	WavePitch  float32
	AnimSpeed  int32
}

// RSWLight contains global lighting settings.
type RSWLight struct {
	Longitude int32
	Latitude  int32
	Diffuse   [3]float32
	Ambient   [3]float32
	Opacity   float32 // v1.7+
}

// RSWModel is one placed instance of an RSM model.
type RSWModel struct {
	Name      string
	AnimType  int32
	AnimSpeed float32
	BlockType int32
	ModelName string // RSM path relative to data\model\
	NodeName  string
	Position  [3]float32
	Rotation  [3]float32 // Degrees, applied Y then X then Z
	Scale     [3]float32
}

// RSWObject is one world object. Only model instances keep their data;
// lights, sounds and effects are read past and recorded by type and name.
type RSWObject struct {
	Type  RSWObjectType
	Name  string
	Model *RSWModel // Set if Type == RSWObjectModel
}

// RSW represents a parsed Resource World file.
type RSW struct {
	Version RSWVersion
	IniFile string
	GndFile string
	GatFile string // v1.4+
	SrcFile string // v1.4+
	Water   RSWWater
	Light   RSWLight
	Objects []RSWObject
}

// Models returns the model instances in file order.
func (r *RSW) Models() []*RSWModel {
	var models []*RSWModel
	for _, obj := range r.Objects {
		if obj.Model != nil {
			models = append(models, obj.Model)
		}
	}
	return models
}

// CountByType returns the count of objects for each type.
func (r *RSW) CountByType() map[RSWObjectType]int {
	counts := make(map[RSWObjectType]int)
	for _, obj := range r.Objects {
		counts[obj.Type]++
	}
	return counts
}

// ParseRSW parses an RSW file from raw bytes. Versions 1.x to 2.6 are
// supported; data after the object list is ignored.
func ParseRSW(data []byte) (*RSW, error) {
	r := newBinReader(data, ErrTruncatedRSWData)
	magic := r.take(4)
	if r.err != nil {
		return nil, r.err
	}
	if string(magic) != rswMagic {
		return nil, ErrInvalidRSWMagic
	}

	rsw := &RSW{Version: RSWVersion{Major: r.u8(), Minor: r.u8()}}
	if r.err != nil {
		return nil, r.err
	}
	v := rsw.Version
	if v.Major < 1 || v.AtLeast(2, 7) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSWVersion, v)
	}

	switch {
	case v.AtLeast(2, 5):
		rsw.Version.BuildNumber = uint32(r.i32())
		r.skip(1) // render flags
	case v.AtLeast(2, 2):
		rsw.Version.BuildNumber = uint32(r.u8())
	}

	rsw.IniFile = r.name(rswFileNameSize)
	rsw.GndFile = r.name(rswFileNameSize)
	if v.AtLeast(1, 4) {
		rsw.GatFile = r.name(rswFileNameSize)
		rsw.SrcFile = r.name(rswFileNameSize)
	}

	// Water moved into GND in v2.6.
	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		w := &rsw.Water
		w.Level = r.f32()
		w.Type = r.i32()
		w.WaveHeight = r.f32()
		w.WaveSpeed = r.f32()
		w.WavePitch = r.f32()
		w.AnimSpeed = r.i32()
	}

	if v.AtLeast(1, 5) {
		l := &rsw.Light
		l.Longitude = r.i32()
		l.Latitude = r.i32()
		l.Diffuse = r.vec3()
		l.Ambient = r.vec3()
	}
	if v.AtLeast(1, 7) {
		rsw.Light.Opacity = r.f32()
	}
	if v.AtLeast(1, 6) {
		r.skip(16) // ground bounds
	}

	// Every object is at least a type tag and a name.
	n := r.count(4 + rswFileNameSize)
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading header", r.err)
	}

	rsw.Objects = make([]RSWObject, n)
	for i := range rsw.Objects {
		if err := parseRSWObject(r, rsw.Version, &rsw.Objects[i]); err != nil {
			return nil, fmt.Errorf("parsing object %d: %w", i, err)
		}
	}
	return rsw, nil
}

func parseRSWObject(r *binReader, v RSWVersion, obj *RSWObject) error {
	obj.Type = RSWObjectType(r.i32())

	switch obj.Type {
	case RSWObjectModel:
		m := &RSWModel{}
		m.Name = r.name(rswFileNameSize)
		m.AnimType = r.i32()
		m.AnimSpeed = r.f32()
		m.BlockType = r.i32()
		if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
			r.skip(1)
		}
		m.ModelName = r.name(rswLongNameSize)
		m.NodeName = r.name(rswLongNameSize)
		m.Position = r.vec3()
		m.Rotation = r.vec3()
		m.Scale = r.vec3()
		obj.Model = m
		obj.Name = m.Name

	case RSWObjectLight:
		obj.Name = r.name(rswLongNameSize)
		r.skip(7 * 4) // position, colour, range

	case RSWObjectSound:
		obj.Name = r.name(rswLongNameSize)
		r.skip(rswLongNameSize) // wave file
		r.skip(7 * 4)           // position, volume, width, height, range
		if v.AtLeast(2, 0) {
			r.skip(4) // cycle
		}

	case RSWObjectEffect:
		obj.Name = r.name(rswLongNameSize)
		r.skip(9 * 4) // position, id, delay, params

	default:
		if r.err != nil {
			return r.err
		}
		return fmt.Errorf("%w: %d", ErrUnknownObjectType, obj.Type)
	}
	return r.err
}

// ParseRSWFile parses an RSW file from disk.
func ParseRSWFile(path string) (*RSW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSW file: %w", err)
	}
	return ParseRSW(data)
}
