package source

import (
	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/math"
)

// ParseRSM parses an RSM model and converts it with FromRSM.
func ParseRSM(data []byte, smooth bool) (*host.Document, error) {
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}
	return FromRSM(rsm, smooth), nil
}

// FromRSM turns every node of a model into a selected mesh object, in node
// order. Node vertices are baked through the node's offset and 3x3 matrix;
// the object matrix holds the node's position, rotation and scale, so
// parents carry the hierarchy exactly as the model does. Animation keys
// other than the first rotation key are not represented.
func FromRSM(rsm *formats.RSM, smooth bool) *host.Document {
	doc := &host.Document{Objects: make([]*host.Object, len(rsm.Nodes))}
	byName := make(map[string]*host.Object, len(rsm.Nodes))

	smooth = smooth || rsm.Shading == formats.RSMShadingSmooth
	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		obj := &host.Object{
			Name:     node.Name,
			Type:     host.TypeMesh,
			Matrix:   nodeMatrix(node),
			Selected: true,
			Mesh:     nodeMesh(node, rsm.Version, smooth),
		}
		doc.Objects[i] = obj
		if _, dup := byName[node.Name]; !dup {
			byName[node.Name] = obj
		}
	}

	for i, node := range rsm.Nodes {
		if node.Parent == "" || node.Parent == node.Name {
			continue
		}
		if parent, ok := byName[node.Parent]; ok && !isAncestor(doc.Objects[i], parent) {
			doc.Objects[i].Parent = parent
		}
	}
	return doc
}

// isAncestor reports whether obj is o or one of o's ancestors. Linking a
// node under one of its descendants would close a cycle; such a node stays
// a root.
func isAncestor(obj, o *host.Object) bool {
	for ; o != nil; o = o.Parent {
		if o == obj {
			return true
		}
	}
	return false
}

// nodeMatrix is the node's local transform: T(position) * R * S, where R is
// the first rotation key if there is one and the axis-angle otherwise.
func nodeMatrix(node *formats.RSMNode) math.Mat4 {
	rotation := math.QuatIdentity()
	if len(node.RotKeys) > 0 {
		q := node.RotKeys[0].Quaternion
		rotation = math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}.Normalize()
	} else if node.RotAngle != 0 {
		rotation = math.QuatFromAxisAngle(math.V3(node.RotAxis), node.RotAngle)
	}
	return math.Compose(math.V3(node.Position), rotation, math.V3(node.Scale))
}

func nodeMesh(node *formats.RSMNode, version formats.RSMVersion, smooth bool) *host.Mesh {
	bake := math.Translate(node.Offset[0], node.Offset[1], node.Offset[2]).
		Mul(math.FromMat3x3(node.Matrix))

	m := &host.Mesh{
		Vertices: make([][3]float32, len(node.Vertices)),
		Polygons: make([]host.Polygon, len(node.Faces)),
		Loops:    make([]host.Loop, 0, 3*len(node.Faces)),
		Smooth:   smooth,
	}
	for i, v := range node.Vertices {
		m.Vertices[i] = bake.TransformPoint(v)
	}

	withColors := version.HasVertexColors() && len(node.TexCoords) > 0
	if withColors {
		m.Colors = &host.ColorLayer{Name: "Col", Data: make([][4]float32, 0, 3*len(node.Faces))}
	}

	for i, face := range node.Faces {
		m.Polygons[i] = host.Polygon{LoopStart: len(m.Loops), LoopTotal: 3}
		for j := 0; j < 3; j++ {
			m.Loops = append(m.Loops, host.Loop{Vertex: int(face.VertexIDs[j])})
			if withColors {
				m.Colors.Data = append(m.Colors.Data, cornerColor(node, face.TexCoordIDs[j]))
			}
		}
	}
	return m
}

// cornerColor is the texture coordinate's colour as 0-1 floats; missing
// coordinates are opaque white.
func cornerColor(node *formats.RSMNode, texCoord uint16) [4]float32 {
	if int(texCoord) >= len(node.TexCoords) {
		return [4]float32{1, 1, 1, 1}
	}
	c := node.TexCoords[texCoord].Color
	return [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
}
