package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/math"
	"github.com/Faultbox/dawn-toolbox/pkg/scenegraph"
)

func identity3() [9]float32 { return [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1} }

func triangleNode(name, parent string) formats.RSMNode {
	return formats.RSMNode{
		Name:     name,
		Parent:   parent,
		Matrix:   identity3(),
		Scale:    [3]float32{1, 1, 1},
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		TexCoords: []formats.RSMTexCoord{
			{Color: [4]uint8{255, 0, 0, 255}},
			{Color: [4]uint8{0, 0, 255, 0}},
		},
		Faces: []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 1, 0}}},
	}
}

func TestFromRSM_Hierarchy(t *testing.T) {
	rsm := &formats.RSM{
		Version: formats.RSMVersion{Major: 1, Minor: 5},
		Nodes: []formats.RSMNode{
			triangleNode("child", "root"),
			triangleNode("root", "root"),
			triangleNode("orphan", "missing"),
			triangleNode("grandchild", "child"),
		},
	}

	doc := FromRSM(rsm, false)
	require.Len(t, doc.Objects, 4)

	child, root, orphan, grandchild := doc.Objects[0], doc.Objects[1], doc.Objects[2], doc.Objects[3]
	assert.Same(t, root, child.Parent)
	assert.Nil(t, root.Parent, "self-parented node is a root")
	assert.Nil(t, orphan.Parent, "unknown parent makes a root")
	assert.Same(t, child, grandchild.Parent)

	for _, obj := range doc.Objects {
		assert.Equal(t, host.TypeMesh, obj.Type)
		assert.True(t, obj.Selected)
	}
}

func TestFromRSM_ParentCycle(t *testing.T) {
	rsm := &formats.RSM{
		Version: formats.RSMVersion{Major: 1, Minor: 4},
		Nodes:   []formats.RSMNode{triangleNode("a", "b"), triangleNode("b", "a")},
	}

	doc := FromRSM(rsm, false)
	a, b := doc.Objects[0], doc.Objects[1]
	assert.Same(t, b, a.Parent)
	assert.Nil(t, b.Parent, "the link closing the cycle is dropped")
}

func TestFromRSM_Mesh(t *testing.T) {
	node := triangleNode("root", "")
	node.Offset = [3]float32{0, 0, 5}
	// Swap X and Y.
	node.Matrix = [9]float32{0, 1, 0, 1, 0, 0, 0, 0, 1}

	rsm := &formats.RSM{Version: formats.RSMVersion{Major: 1, Minor: 2}, Nodes: []formats.RSMNode{node}}
	m := FromRSM(rsm, false).Objects[0].Mesh

	assert.Equal(t, [][3]float32{{0, 0, 5}, {0, 1, 5}, {1, 0, 5}}, m.Vertices)
	assert.Equal(t, []host.Polygon{{LoopStart: 0, LoopTotal: 3}}, m.Polygons)
	assert.Equal(t, []host.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}}, m.Loops)
	assert.False(t, m.Smooth)

	require.NotNil(t, m.Colors)
	assert.Equal(t, [][4]float32{{1, 0, 0, 1}, {0, 0, 1, 0}, {1, 0, 0, 1}}, m.Colors.Data)
	require.NoError(t, m.Check())
}

func TestFromRSM_ColorsByVersion(t *testing.T) {
	tests := []struct {
		name       string
		version    formats.RSMVersion
		wantColors bool
	}{
		{"v1.1 has no colours", formats.RSMVersion{Major: 1, Minor: 1}, false},
		{"v1.2 has colours", formats.RSMVersion{Major: 1, Minor: 2}, true},
		{"v1.5 has colours", formats.RSMVersion{Major: 1, Minor: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsm := &formats.RSM{Version: tt.version, Nodes: []formats.RSMNode{triangleNode("n", "")}}
			m := FromRSM(rsm, false).Objects[0].Mesh
			assert.Equal(t, tt.wantColors, m.Colors != nil)
		})
	}
}

func TestFromRSM_Smooth(t *testing.T) {
	rsm := &formats.RSM{Version: formats.RSMVersion{Major: 1, Minor: 4}, Nodes: []formats.RSMNode{triangleNode("n", "")}}

	assert.False(t, FromRSM(rsm, false).Objects[0].Mesh.Smooth)
	assert.True(t, FromRSM(rsm, true).Objects[0].Mesh.Smooth)

	rsm.Shading = formats.RSMShadingSmooth
	assert.True(t, FromRSM(rsm, false).Objects[0].Mesh.Smooth)
}

func TestFromRSM_Matrix(t *testing.T) {
	axisAngle := triangleNode("axis", "")
	axisAngle.Position = [3]float32{1, 2, 3}
	axisAngle.RotAxis = [3]float32{0, 0, 2}
	axisAngle.RotAngle = 0.5
	axisAngle.Scale = [3]float32{2, 2, 2}

	keyed := triangleNode("keyed", "")
	keyed.RotAngle = 0.5
	keyed.RotAxis = [3]float32{1, 0, 0}
	keyed.RotKeys = []formats.RSMRotKeyframe{{Quaternion: [4]float32{0, 0, 1, 0}}}

	rsm := &formats.RSM{Version: formats.RSMVersion{Major: 1, Minor: 5}, Nodes: []formats.RSMNode{axisAngle, keyed}}
	doc := FromRSM(rsm, false)

	position, rotation, scale := doc.Objects[0].Matrix.Decompose()
	assert.InDelta(t, 1, position.X, 1e-5)
	assert.InDelta(t, 3, position.Z, 1e-5)
	assert.InDelta(t, 2, scale.Y, 1e-5)
	assert.True(t, rotation.SameRotation(math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.5), 1e-5))

	_, rotation, _ = doc.Objects[1].Matrix.Decompose()
	assert.True(t, rotation.SameRotation(math.Quat{Z: 1}, 1e-5), "first rotation key wins over axis-angle")
}

func TestFromRSM_Builds(t *testing.T) {
	rsm := &formats.RSM{
		Version: formats.RSMVersion{Major: 1, Minor: 5},
		Nodes:   []formats.RSMNode{triangleNode("root", ""), triangleNode("child", "root")},
	}
	doc := FromRSM(rsm, false)

	s, err := scenegraph.Build(doc.Objects, host.Editor{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Roots())
	assert.Equal(t, []int{1}, s.TransformNodes[0].Children)
	assert.Len(t, s.VertexLayouts[0].Attributes, 3)
}
