package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/math"
)

// ErrInvalidDescription is returned for scene descriptions that parse but
// do not describe a consistent scene.
var ErrInvalidDescription = errors.New("invalid scene description")

// Description is a hand-written scene: a flat object list whose hierarchy
// is given by parent names.
type Description struct {
	Objects []ObjectDescription `yaml:"objects" toml:"objects"`
}

// ObjectDescription describes one host object. Omitted transforms default
// to identity.
type ObjectDescription struct {
	Name     string           `yaml:"name" toml:"name"`
	Type     string           `yaml:"type,omitempty" toml:"type,omitempty"`
	Parent   string           `yaml:"parent,omitempty" toml:"parent,omitempty"`
	Selected bool             `yaml:"selected,omitempty" toml:"selected,omitempty"`
	Position []float32        `yaml:"position,omitempty" toml:"position,omitempty"`
	Rotation []float32        `yaml:"rotation,omitempty" toml:"rotation,omitempty"` // w, x, y, z
	Scale    []float32        `yaml:"scale,omitempty" toml:"scale,omitempty"`
	Mesh     *MeshDescription `yaml:"mesh,omitempty" toml:"mesh,omitempty"`
}

// MeshDescription is polygon geometry. Polygons list vertex indices and may
// have any number of corners; Colors, when present, has one RGBA entry per
// polygon corner in polygon order.
type MeshDescription struct {
	Smooth   bool         `yaml:"smooth,omitempty" toml:"smooth,omitempty"`
	Vertices [][3]float32 `yaml:"vertices" toml:"vertices"`
	Polygons [][]int      `yaml:"polygons" toml:"polygons"`
	Colors   [][4]float32 `yaml:"colors,omitempty" toml:"colors,omitempty"`
}

// ParseYAML decodes a YAML scene description into a host document.
func ParseYAML(data []byte) (*host.Document, error) {
	var d Description
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML scene description: %w", err)
	}
	return d.Document()
}

// ParseTOML decodes a TOML scene description into a host document.
func ParseTOML(data []byte) (*host.Document, error) {
	var d Description
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing TOML scene description: %w", err)
	}
	return d.Document()
}

// Document builds the host document, resolving parents by name.
func (d *Description) Document() (*host.Document, error) {
	doc := &host.Document{Objects: make([]*host.Object, len(d.Objects))}
	byName := make(map[string]*host.Object, len(d.Objects))

	for i := range d.Objects {
		od := &d.Objects[i]
		obj, err := od.object()
		if err != nil {
			return nil, fmt.Errorf("%w: object %d (%q): %v", ErrInvalidDescription, i, od.Name, err)
		}
		if _, dup := byName[obj.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate object name %q", ErrInvalidDescription, obj.Name)
		}
		byName[obj.Name] = obj
		doc.Objects[i] = obj
	}

	for i, od := range d.Objects {
		if od.Parent == "" {
			continue
		}
		parent, ok := byName[od.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: object %q has unknown parent %q", ErrInvalidDescription, od.Name, od.Parent)
		}
		if isAncestor(doc.Objects[i], parent) {
			return nil, fmt.Errorf("%w: parenting %q to %q makes a cycle", ErrInvalidDescription, od.Name, od.Parent)
		}
		doc.Objects[i].Parent = parent
	}
	return doc, nil
}

func (od *ObjectDescription) object() (*host.Object, error) {
	if od.Name == "" {
		return nil, errors.New("missing name")
	}

	typ, err := objectType(od.Type, od.Mesh != nil)
	if err != nil {
		return nil, err
	}

	position, err := vec3(od.Position, math.Vec3{}, "position")
	if err != nil {
		return nil, err
	}
	scale, err := vec3(od.Scale, math.Vec3{X: 1, Y: 1, Z: 1}, "scale")
	if err != nil {
		return nil, err
	}
	rotation, err := quat(od.Rotation)
	if err != nil {
		return nil, err
	}

	obj := &host.Object{
		Name:     od.Name,
		Type:     typ,
		Matrix:   math.Compose(position, rotation, scale),
		Selected: od.Selected,
	}

	if typ == host.TypeMesh {
		if od.Mesh == nil {
			return nil, errors.New("mesh object without mesh data")
		}
		obj.Mesh, err = od.Mesh.mesh()
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func objectType(name string, hasMesh bool) (host.ObjectType, error) {
	if name == "" {
		if hasMesh {
			return host.TypeMesh, nil
		}
		return host.TypeEmpty, nil
	}
	switch t := host.ObjectType(strings.ToUpper(name)); t {
	case host.TypeMesh, host.TypeEmpty, host.TypeCamera, host.TypeLight:
		return t, nil
	default:
		return "", fmt.Errorf("unknown object type %q", name)
	}
}

func vec3(v []float32, def math.Vec3, what string) (math.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return math.Vec3{}, fmt.Errorf("%s has %d components, want 3", what, len(v))
	}
}

func quat(v []float32) (math.Quat, error) {
	switch len(v) {
	case 0:
		return math.QuatIdentity(), nil
	case 4:
		q := math.Quat{W: v[0], X: v[1], Y: v[2], Z: v[3]}
		if q.Dot(q) == 0 {
			return math.Quat{}, errors.New("rotation is a zero quaternion")
		}
		return q.Normalize(), nil
	default:
		return math.Quat{}, fmt.Errorf("rotation has %d components, want 4 (w, x, y, z)", len(v))
	}
}

func (md *MeshDescription) mesh() (*host.Mesh, error) {
	m := &host.Mesh{
		Vertices: md.Vertices,
		Polygons: make([]host.Polygon, len(md.Polygons)),
		Smooth:   md.Smooth,
	}

	for i, poly := range md.Polygons {
		if len(poly) < 3 {
			return nil, fmt.Errorf("polygon %d has %d corners", i, len(poly))
		}
		m.Polygons[i] = host.Polygon{LoopStart: len(m.Loops), LoopTotal: len(poly)}
		for _, v := range poly {
			if v < 0 || v >= len(md.Vertices) {
				return nil, fmt.Errorf("polygon %d references vertex %d of %d", i, v, len(md.Vertices))
			}
			m.Loops = append(m.Loops, host.Loop{Vertex: v})
		}
	}

	if md.Colors != nil {
		if len(md.Colors) != len(m.Loops) {
			return nil, fmt.Errorf("%d colours for %d polygon corners", len(md.Colors), len(m.Loops))
		}
		m.Colors = &host.ColorLayer{Name: "Col", Data: md.Colors}
	}
	return m, nil
}
