package dwn

import (
	"errors"
	"fmt"
	"math"

	dmath "github.com/Faultbox/dawn-toolbox/pkg/math"
)

// Scene table errors.
var (
	ErrInvalidAccessor   = errors.New("invalid accessor")
	ErrDanglingReference = errors.New("reference out of range")
	ErrUnsupportedObject = errors.New("unsupported object type")
)

// VertexAttributeType is the semantic meaning of a vertex attribute.
type VertexAttributeType uint8

const (
	AttributeInvalid  VertexAttributeType = 0
	AttributeNormal   VertexAttributeType = 1
	AttributePosition VertexAttributeType = 2
	AttributeTexCoord VertexAttributeType = 3
	AttributeColor    VertexAttributeType = 4
)

// String returns a human-readable attribute type name.
func (t VertexAttributeType) String() string {
	switch t {
	case AttributeInvalid:
		return "Invalid"
	case AttributeNormal:
		return "Normal"
	case AttributePosition:
		return "Position"
	case AttributeTexCoord:
		return "TexCoord"
	case AttributeColor:
		return "Color"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ObjectType tags the variant held by an Object.
type ObjectType uint8

const (
	ObjectInvalid ObjectType = 0
	ObjectMesh    ObjectType = 1
)

// String returns a human-readable object type name.
func (t ObjectType) String() string {
	switch t {
	case ObjectInvalid:
		return "Invalid"
	case ObjectMesh:
		return "Mesh"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Buffer is a raw packed byte blob. Each accessor owns exactly one.
type Buffer []byte

// Accessor describes how to read typed components out of one Buffer.
type Accessor struct {
	Buffer         int    // Index into Scene.Buffers
	ByteCount      uint32 // Total bytes in the buffer
	ByteIndex      uint32 // Offset of the first record, always 0
	ByteStride     uint16 // Bytes per record: component size * component count
	ComponentCount uint8
	ComponentType  ComponentType
}

// Count returns the number of records the accessor describes.
func (a Accessor) Count() int {
	if a.ByteStride == 0 {
		return 0
	}
	return int(a.ByteCount) / int(a.ByteStride)
}

// VertexAttribute binds an accessor to a vertex semantic.
type VertexAttribute struct {
	Accessor int // Index into Scene.Accessors
	Type     VertexAttributeType
}

// VertexLayout is the ordered attribute list of a mesh.
type VertexLayout struct {
	Attributes []VertexAttribute
}

// Mesh pairs an index accessor with a vertex layout.
type Mesh struct {
	IndexAccessor int // Index into Scene.Accessors
	VertexLayout  int // Index into Scene.VertexLayouts
}

// Object is a tagged union; Mesh is only meaningful when Type is ObjectMesh.
type Object struct {
	Type ObjectType
	Mesh int // Index into Scene.Meshes
}

// Transform is a parent-local orientation, position and scale.
type Transform struct {
	Orientation dmath.Quat
	Position    dmath.Vec3
	Scale       dmath.Vec3
}

// IdentityTransform returns a transform with no rotation, no offset and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Orientation: dmath.QuatIdentity(),
		Scale:       dmath.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// TransformNode places one object in the transform forest.
type TransformNode struct {
	Transform Transform
	Object    int   // Index into Scene.Objects
	Children  []int // Indices into Scene.TransformNodes
}

// Scene owns every table written to a .dwn file. Each table is append-only
// and an entity's position in its table is the index used wherever it is
// referenced, so tables must not be reordered or filtered after building.
type Scene struct {
	Accessors      []Accessor
	Buffers        []Buffer
	Meshes         []Mesh
	Objects        []Object
	TransformNodes []TransformNode
	VertexLayouts  []VertexLayout
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddAccessor packs values as kind and appends one new Buffer and one new
// Accessor over it, returning the accessor index. Packing is strict: a value
// that does not fit kind fails with ErrOverflow instead of saturating.
func AddAccessor[T Number](s *Scene, values []T, componentCount int, kind ComponentType) (int, error) {
	packed, err := PackStrict(values, kind)
	if err != nil {
		return 0, err
	}
	return s.AddPackedAccessor(packed, componentCount, kind)
}

// AddPackedAccessor appends already packed bytes as a new Buffer with its
// Accessor, returning the accessor index.
func (s *Scene) AddPackedAccessor(packed []byte, componentCount int, kind ComponentType) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidComponentType, kind)
	}
	if componentCount < 1 || componentCount > math.MaxUint8 {
		return 0, fmt.Errorf("%w: component count %d", ErrOverflow, componentCount)
	}
	if uint64(len(packed)) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: buffer of %d bytes", ErrOverflow, len(packed))
	}

	stride := kind.Size() * componentCount
	if len(packed)%stride != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte records",
			ErrInvalidAccessor, len(packed), stride)
	}

	s.Buffers = append(s.Buffers, Buffer(packed))
	s.Accessors = append(s.Accessors, Accessor{
		Buffer:         len(s.Buffers) - 1,
		ByteCount:      uint32(len(packed)),
		ByteIndex:      0,
		ByteStride:     uint16(stride),
		ComponentCount: uint8(componentCount),
		ComponentType:  kind,
	})
	return len(s.Accessors) - 1, nil
}

// AddVertexLayout appends a layout and returns its index.
func (s *Scene) AddVertexLayout(layout VertexLayout) int {
	s.VertexLayouts = append(s.VertexLayouts, layout)
	return len(s.VertexLayouts) - 1
}

// AddMesh appends a mesh and returns its index.
func (s *Scene) AddMesh(mesh Mesh) int {
	s.Meshes = append(s.Meshes, mesh)
	return len(s.Meshes) - 1
}

// AddObject appends an object and returns its index.
func (s *Scene) AddObject(obj Object) int {
	s.Objects = append(s.Objects, obj)
	return len(s.Objects) - 1
}

// AddTransformNode appends a node and returns its index.
func (s *Scene) AddTransformNode(node TransformNode) int {
	s.TransformNodes = append(s.TransformNodes, node)
	return len(s.TransformNodes) - 1
}

// Roots returns the indices of transform nodes that are nobody's child,
// in table order.
func (s *Scene) Roots() []int {
	isChild := make([]bool, len(s.TransformNodes))
	for _, node := range s.TransformNodes {
		for _, c := range node.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}

	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// Validate checks that every cross-reference points inside its table and
// that every accessor matches its buffer.
func (s *Scene) Validate() error {
	for i, a := range s.Accessors {
		if err := checkRef("accessor", i, "buffer", a.Buffer, len(s.Buffers)); err != nil {
			return err
		}
		if !a.ComponentType.Valid() {
			return fmt.Errorf("%w: accessor %d: %s", ErrInvalidComponentType, i, a.ComponentType)
		}
		if uint64(a.ByteIndex)+uint64(a.ByteCount) > uint64(len(s.Buffers[a.Buffer])) {
			return fmt.Errorf("%w: accessor %d reads past the end of buffer %d", ErrInvalidAccessor, i, a.Buffer)
		}
	}
	for i, m := range s.Meshes {
		if err := checkRef("mesh", i, "accessor", m.IndexAccessor, len(s.Accessors)); err != nil {
			return err
		}
		if err := checkRef("mesh", i, "vertex layout", m.VertexLayout, len(s.VertexLayouts)); err != nil {
			return err
		}
	}
	for i, o := range s.Objects {
		if o.Type != ObjectMesh {
			return fmt.Errorf("%w: object %d: %s", ErrUnsupportedObject, i, o.Type)
		}
		if err := checkRef("object", i, "mesh", o.Mesh, len(s.Meshes)); err != nil {
			return err
		}
	}
	for i, n := range s.TransformNodes {
		if err := checkRef("transform node", i, "object", n.Object, len(s.Objects)); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := checkRef("transform node", i, "child", c, len(s.TransformNodes)); err != nil {
				return err
			}
		}
	}
	for i, l := range s.VertexLayouts {
		for _, attr := range l.Attributes {
			if err := checkRef("vertex layout", i, "accessor", attr.Accessor, len(s.Accessors)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRef(owner string, ownerIndex int, target string, ref, length int) error {
	if ref < 0 || ref >= length {
		return fmt.Errorf("%w: %s %d references %s %d of %d", ErrDanglingReference, owner, ownerIndex, target, ref, length)
	}
	return nil
}
