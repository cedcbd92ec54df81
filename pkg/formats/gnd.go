package formats

import (
	"errors"
	"fmt"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDDimensions  = errors.New("invalid GND dimensions")
)

const (
	gndMagic       = "GRGN"
	gndMaxSize     = 1024
	gndSurfaceSize = 40
	gndTileSize    = 28
)

// GNDVersion represents the GND file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDSurface is a textured quad face shared by tiles.
type GNDSurface struct {
	U          [4]float32
	V          [4]float32
	TextureID  int16 // -1 = no texture
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// RGBA returns the surface colour as RGBA components in [0, 1].
func (s *GNDSurface) RGBA() [4]float32 {
	return [4]float32{
		float32(s.Color[2]) / 255,
		float32(s.Color[1]) / 255,
		float32(s.Color[0]) / 255,
		float32(s.Color[3]) / 255,
	}
}

// GNDTile is one cell of the ground grid.
type GNDTile struct {
	Altitude     [4]float32 // Corner heights: bottom-left, bottom-right, top-left, top-right
	TopSurface   int32      // -1 = none
	FrontSurface int32      // Wall towards the tile at y+1, -1 = none
	RightSurface int32      // Wall towards the tile at x+1, -1 = none
}

// GND represents a parsed Ground file. Lightmap pixels are skipped.
type GND struct {
	Version        GNDVersion
	Width          uint32
	Height         uint32
	Zoom           float32 // Tile edge length in world units
	Textures       []string
	LightmapCount  int
	LightmapWidth  uint32
	LightmapHeight uint32
	Surfaces       []GNDSurface
	Tiles          []GNDTile
}

// Tile returns the tile at the given coordinates, or nil when out of bounds.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// Surface returns the surface with the given id, or nil for -1 and ids out
// of range.
func (g *GND) Surface(id int32) *GNDSurface {
	if id < 0 || int(id) >= len(g.Surfaces) {
		return nil
	}
	return &g.Surfaces[id]
}

// AltitudeRange returns the minimum and maximum corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// ParseGND parses a GND file from raw bytes. Versions 1.5 to 1.9 are
// supported; data after the tiles is ignored.
func ParseGND(data []byte) (*GND, error) {
	r := newBinReader(data, ErrTruncatedGNDData)
	magic := r.take(4)
	version := GNDVersion{Major: r.u8(), Minor: r.u8()}
	if r.err != nil {
		return nil, r.err
	}
	if string(magic) != gndMagic {
		return nil, ErrInvalidGNDMagic
	}
	if version.Major != 1 || version.Minor < 5 || version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, version)
	}

	gnd := &GND{
		Version: version,
		Width:   uint32(r.i32()),
		Height:  uint32(r.i32()),
		Zoom:    r.f32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	if gnd.Width == 0 || gnd.Height == 0 || gnd.Width > gndMaxSize || gnd.Height > gndMaxSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDDimensions, gnd.Width, gnd.Height)
	}

	textureCount := r.i32()
	nameLen := int(r.i32())
	if r.err == nil && (textureCount < 0 || nameLen < 0 || int64(textureCount)*int64(max(nameLen, 1)) > int64(r.remaining())) {
		return nil, fmt.Errorf("%w: reading textures", ErrTruncatedGNDData)
	}
	gnd.Textures = make([]string, textureCount)
	for i := range gnd.Textures {
		gnd.Textures[i] = r.name(nameLen)
	}

	lightmaps := r.i32()
	gnd.LightmapWidth = uint32(r.i32())
	gnd.LightmapHeight = uint32(r.i32())
	cells := int64(r.i32())
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading lightmaps", r.err)
	}
	// Each pixel is one brightness byte and three colour bytes.
	size := int64(gnd.LightmapWidth) * int64(gnd.LightmapHeight) * cells * 4
	if lightmaps < 0 || size < 0 || int64(lightmaps)*size > int64(r.remaining()) {
		return nil, fmt.Errorf("%w: reading lightmaps", ErrTruncatedGNDData)
	}
	gnd.LightmapCount = int(lightmaps)
	r.skip(int(int64(lightmaps) * size))

	gnd.Surfaces = make([]GNDSurface, r.count(gndSurfaceSize))
	for i := range gnd.Surfaces {
		s := &gnd.Surfaces[i]
		r.f32s(s.U[:])
		r.f32s(s.V[:])
		s.TextureID = int16(r.u16())
		s.LightmapID = int16(r.u16())
		copy(s.Color[:], r.take(4))
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading surfaces", r.err)
	}

	tiles := int(gnd.Width * gnd.Height)
	if tiles*gndTileSize > r.remaining() {
		return nil, fmt.Errorf("%w: reading tiles", ErrTruncatedGNDData)
	}
	gnd.Tiles = make([]GNDTile, tiles)
	for i := range gnd.Tiles {
		t := &gnd.Tiles[i]
		r.f32s(t.Altitude[:])
		t.TopSurface = r.i32()
		t.FrontSurface = r.i32()
		t.RightSurface = r.i32()
	}
	return gnd, r.err
}

// ParseGNDFile parses a GND file from disk.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}
