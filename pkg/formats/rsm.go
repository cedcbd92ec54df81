package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
)

const (
	rsmMagic      = "GRSM"
	rsmNameSize   = 40
	rsmHeaderSize = 14 // magic, version, animation length, shading
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// HasVertexColors reports whether texture coordinates carry an RGBA colour.
func (v RSMVersion) HasVertexColors() bool {
	return v.AtLeast(1, 2)
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate and, from v1.2, a vertex colour.
type RSMTexCoord struct {
	Color [4]uint8 // RGBA; opaque white before v1.2
	U, V  float32
}

// RSMFace is one triangle of a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position key (before v1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation key; Quaternion is X, Y, Z, W.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key (v1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Vertices are in node space;
// Matrix and Offset move them into the space of the node's transform.
type RSMNode struct {
	Name       string
	Parent     string // empty, or equal to Name, for the root
	TextureIDs []int32

	Matrix   [9]float32 // 3x3, column-major
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed model file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32 // 0-1, v1.4+
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// ParseRSM parses RSM data. Versions 1.1 through 1.5 are supported.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < rsmHeaderSize {
		return nil, ErrTruncatedRSMData
	}
	r := newBinReader(data, ErrTruncatedRSMData)

	if string(r.take(4)) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: r.u8(), Minor: r.u8()}}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = r.i32()
	rsm.Shading = RSMShadingType(r.i32())

	rsm.Alpha = 1.0
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(r.u8()) / 255.0
	}

	r.skip(16) // reserved

	rsm.Textures = make([]string, r.count(rsmNameSize))
	for i := range rsm.Textures {
		rsm.Textures[i] = r.name(rsmNameSize)
	}

	rsm.RootNode = r.name(rsmNameSize)

	nodeCount := r.count(2 * rsmNameSize)
	if r.err != nil {
		return nil, r.err
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(r, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
	}

	// Volume boxes are optional; some exporters end the file after the nodes.
	if r.remaining() >= 4 {
		boxSize := 36
		if rsm.Version.AtLeast(1, 3) {
			boxSize += 4
		}
		rsm.VolumeBoxes = make([]RSMVolumeBox, r.count(boxSize))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			box.Size = r.vec3()
			box.Position = r.vec3()
			box.Rotation = r.vec3()
			if rsm.Version.AtLeast(1, 3) {
				box.Flag = r.i32()
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", r.err)
		}
	}

	return rsm, nil
}

func parseRSMNode(r *binReader, version RSMVersion, node *RSMNode) error {
	node.Name = r.name(rsmNameSize)
	node.Parent = r.name(rsmNameSize)

	if n := r.count(4); n > 0 {
		node.TextureIDs = make([]int32, n)
		for i := range node.TextureIDs {
			node.TextureIDs[i] = r.i32()
		}
	}

	r.f32s(node.Matrix[:])
	node.Offset = r.vec3()
	node.Position = r.vec3()
	node.RotAngle = r.f32()
	node.RotAxis = r.vec3()
	node.Scale = r.vec3()

	if n := r.count(12); n > 0 {
		node.Vertices = make([][3]float32, n)
		for i := range node.Vertices {
			node.Vertices[i] = r.vec3()
		}
	}

	texCoordSize := 8
	if version.HasVertexColors() {
		texCoordSize += 4
	}
	if n := r.count(texCoordSize); n > 0 {
		node.TexCoords = make([]RSMTexCoord, n)
		for i := range node.TexCoords {
			tc := &node.TexCoords[i]
			tc.Color = [4]uint8{255, 255, 255, 255}
			if version.HasVertexColors() {
				copy(tc.Color[:], r.take(4))
			}
			tc.U = r.f32()
			tc.V = r.f32()
		}
	}

	faceSize := 20
	if version.AtLeast(1, 2) {
		faceSize += 4
	}
	if n := r.count(faceSize); n > 0 {
		node.Faces = make([]RSMFace, n)
		for i := range node.Faces {
			face := &node.Faces[i]
			for j := range face.VertexIDs {
				face.VertexIDs[j] = r.u16()
			}
			for j := range face.TexCoordIDs {
				face.TexCoordIDs[j] = r.u16()
			}
			face.TextureID = r.u16()
			r.skip(2) // padding
			face.TwoSide = r.i32()
			if version.AtLeast(1, 2) {
				face.SmoothGroup = r.i32()
			}
		}
	}

	if !version.AtLeast(1, 5) {
		if n := r.count(16); n > 0 {
			node.PosKeys = make([]RSMPosKeyframe, n)
			for i := range node.PosKeys {
				node.PosKeys[i].Frame = r.i32()
				node.PosKeys[i].Position = r.vec3()
			}
		}
	}

	if n := r.count(20); n > 0 {
		node.RotKeys = make([]RSMRotKeyframe, n)
		for i := range node.RotKeys {
			node.RotKeys[i].Frame = r.i32()
			r.f32s(node.RotKeys[i].Quaternion[:])
		}
	}

	if version.AtLeast(1, 5) {
		if n := r.count(16); n > 0 {
			node.ScaleKeys = make([]RSMScaleKeyframe, n)
			for i := range node.ScaleKeys {
				node.ScaleKeys[i].Frame = r.i32()
				node.ScaleKeys[i].Scale = r.vec3()
			}
		}
	}

	if r.err != nil {
		return fmt.Errorf("node %q: %w", node.Name, r.err)
	}
	return validateRSMNode(node)
}

// validateRSMNode checks that faces only reference existing vertices and
// texture coordinates.
func validateRSMNode(node *RSMNode) error {
	for i, face := range node.Faces {
		for _, v := range face.VertexIDs {
			if int(v) >= len(node.Vertices) {
				return fmt.Errorf("node %q face %d: vertex %d of %d", node.Name, i, v, len(node.Vertices))
			}
		}
		for _, tc := range face.TexCoordIDs {
			if int(tc) >= len(node.TexCoords) && len(node.TexCoords) > 0 {
				return fmt.Errorf("node %q face %d: texture coordinate %d of %d", node.Name, i, tc, len(node.TexCoords))
			}
		}
	}
	return nil
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns the first node called name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// HasAnimation returns true if any node has keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
