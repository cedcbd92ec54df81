// Package host models the scene a content tool hands to the exporter:
// objects with parent links and local matrices, polygon/loop meshes and
// the mesh-editing operations the exporter asks the tool to perform.
package host

import (
	"fmt"

	"github.com/Faultbox/dawn-toolbox/pkg/math"
)

// ObjectType discriminates host objects. Only TypeMesh objects are exported.
type ObjectType string

const (
	TypeMesh   ObjectType = "MESH"
	TypeEmpty  ObjectType = "EMPTY"
	TypeCamera ObjectType = "CAMERA"
	TypeLight  ObjectType = "LIGHT"
)

// Object is one node of the host scene. Parent links are by pointer
// identity and may point at objects outside the exported set.
type Object struct {
	Name     string
	Type     ObjectType
	Parent   *Object
	Matrix   math.Mat4 // Parent-local transform
	Selected bool
	Mesh     *Mesh // Set for TypeMesh objects
}

// Polygon is a run of consecutive loops in Mesh.Loops.
type Polygon struct {
	LoopStart int
	LoopTotal int
}

// Loop is one polygon corner: the vertex it uses and its split normal.
type Loop struct {
	Vertex int
	Normal [3]float32
}

// ColorLayer holds one RGBA colour per loop, components in [0, 1].
type ColorLayer struct {
	Name string
	Data [][4]float32
}

// Mesh is a polygon mesh where corners are stored as loops, so a vertex
// shared by several polygons has one loop per polygon.
type Mesh struct {
	Vertices [][3]float32
	Polygons []Polygon
	Loops    []Loop
	Colors   *ColorLayer // Active vertex colour layer, nil when absent
	Smooth   bool        // Split normals average adjacent faces when set
}

// Document is an ordered set of host objects.
type Document struct {
	Objects []*Object
}

// Selected returns the selected objects in document order.
func (d *Document) Selected() []*Object {
	var out []*Object
	for _, obj := range d.Objects {
		if obj.Selected {
			out = append(out, obj)
		}
	}
	return out
}

// Find returns the first object with the given name, or nil.
func (d *Document) Find(name string) *Object {
	for _, obj := range d.Objects {
		if obj.Name == name {
			return obj
		}
	}
	return nil
}

// IsTriangulated reports whether every polygon has exactly three loops.
func (m *Mesh) IsTriangulated() bool {
	for _, p := range m.Polygons {
		if p.LoopTotal != 3 {
			return false
		}
	}
	return true
}

// Check verifies that polygons, loops and colours are consistent.
func (m *Mesh) Check() error {
	for i, p := range m.Polygons {
		if p.LoopTotal < 3 || p.LoopStart < 0 || p.LoopStart+p.LoopTotal > len(m.Loops) {
			return fmt.Errorf("polygon %d spans loops [%d, %d) of %d", i, p.LoopStart, p.LoopStart+p.LoopTotal, len(m.Loops))
		}
	}
	for i, l := range m.Loops {
		if l.Vertex < 0 || l.Vertex >= len(m.Vertices) {
			return fmt.Errorf("loop %d references vertex %d of %d", i, l.Vertex, len(m.Vertices))
		}
	}
	if m.Colors != nil && len(m.Colors.Data) != len(m.Loops) {
		return fmt.Errorf("colour layer %q has %d entries for %d loops", m.Colors.Name, len(m.Colors.Data), len(m.Loops))
	}
	return nil
}

// MeshEditor is the host's mesh-editing service.
//
// Both operations edit the mesh in place. The changes belong to the host
// document: they are visible to everything else holding the mesh and are
// not undone when the export finishes or fails.
type MeshEditor interface {
	// Triangulate splits every polygon into triangles. Calling it on an
	// already triangulated mesh leaves the mesh unchanged.
	Triangulate(m *Mesh) error
	// ComputeSplitNormals fills Loop.Normal for every loop.
	ComputeSplitNormals(m *Mesh) error
}
