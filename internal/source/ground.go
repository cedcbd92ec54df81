package source

import (
	gomath "math"

	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/math"
)

// GroundName is the name of the object holding a world's ground mesh.
const GroundName = "ground"

// wallEpsilon is the height difference below which no wall is emitted
// between neighbouring tiles.
const wallEpsilon = 0.001

// FromGND turns the ground of a world into one mesh object, or nil when the
// ground has no surfaces. Tile (x, y) spans [x, x+1] by [y, y+1] tiles of
// Zoom units on the XZ plane with altitudes on Y. Walls are emitted where a
// tile names a front or right surface and its edge heights differ from the
// neighbour's. Every quad takes its surface colour.
func FromGND(gnd *formats.GND) *host.Object {
	m := &host.Mesh{Colors: &host.ColorLayer{Name: "surface"}}
	size := gnd.Zoom

	quad := func(surface *formats.GNDSurface, corners [4][3]float32) {
		start := len(m.Loops)
		color := surface.RGBA()
		for _, c := range corners {
			m.Loops = append(m.Loops, host.Loop{Vertex: len(m.Vertices)})
			m.Vertices = append(m.Vertices, c)
			m.Colors.Data = append(m.Colors.Data, color)
		}
		m.Polygons = append(m.Polygons, host.Polygon{LoopStart: start, LoopTotal: 4})
	}

	for y := 0; y < int(gnd.Height); y++ {
		for x := 0; x < int(gnd.Width); x++ {
			tile := gnd.Tile(x, y)
			x0, x1 := float32(x)*size, float32(x+1)*size
			z0, z1 := float32(y)*size, float32(y+1)*size
			h := tile.Altitude

			if s := gnd.Surface(tile.TopSurface); s != nil {
				quad(s, [4][3]float32{
					{x0, h[0], z1},
					{x1, h[1], z1},
					{x1, h[3], z0},
					{x0, h[2], z0},
				})
			}

			if next := gnd.Tile(x, y+1); next != nil && differs(h[0], next.Altitude[2], h[1], next.Altitude[3]) {
				if s := gnd.Surface(tile.FrontSurface); s != nil {
					quad(s, [4][3]float32{
						{x0, h[0], z1},
						{x0, next.Altitude[2], z1},
						{x1, next.Altitude[3], z1},
						{x1, h[1], z1},
					})
				}
			}

			if next := gnd.Tile(x+1, y); next != nil && differs(h[1], next.Altitude[0], h[3], next.Altitude[2]) {
				if s := gnd.Surface(tile.RightSurface); s != nil {
					quad(s, [4][3]float32{
						{x1, h[1], z1},
						{x1, next.Altitude[0], z1},
						{x1, next.Altitude[2], z0},
						{x1, h[3], z0},
					})
				}
			}
		}
	}

	if len(m.Polygons) == 0 {
		return nil
	}
	return &host.Object{
		Name:     GroundName,
		Type:     host.TypeMesh,
		Matrix:   math.Identity(),
		Selected: true,
		Mesh:     m,
	}
}

func differs(a0, b0, a1, b1 float32) bool {
	return gomath.Abs(float64(a0-b0)) > wallEpsilon || gomath.Abs(float64(a1-b1)) > wallEpsilon
}
