// Package scenegraph flattens host objects into the tables of a dwn.Scene.
//
// Building runs in two passes. The build pass visits mesh objects in host
// order and appends their accessors, layout, mesh, object and transform
// node. The link pass then fills in each node's children, which can only be
// resolved once every node exists.
package scenegraph

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/dawn-toolbox/pkg/dwn"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
)

// Builder errors.
var (
	ErrNoMeshObjects = errors.New("no mesh objects to export")
	ErrHostData      = errors.New("host mesh data missing or inconsistent")
)

// Option configures a build.
type Option func(*options)

type options struct {
	colors bool
	log    *zap.Logger
}

// WithColors controls whether active vertex colour layers are exported.
// Colours are exported by default.
func WithColors(enabled bool) Option {
	return func(o *options) { o.colors = enabled }
}

// WithLogger sets the logger used for per-object debug output.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// handle is the stable integer assigned to an exported object at scan time.
// It is the object's position in the filtered mesh list and, because nodes
// are appended in that order, also its transform node index.
type handle = int

// graph is the scan result: the exported objects and their links, by handle.
type graph struct {
	objects  []*host.Object
	parent   []handle   // -1 for roots
	children [][]handle // in host order
}

// scan keeps mesh objects in host order and resolves parent links to
// handles. A parent outside the exported set makes the object a root.
func scan(objects []*host.Object) *graph {
	g := &graph{}
	ids := make(map[*host.Object]handle)
	for _, obj := range objects {
		if obj == nil || obj.Type != host.TypeMesh {
			continue
		}
		if _, dup := ids[obj]; dup {
			continue
		}
		ids[obj] = len(g.objects)
		g.objects = append(g.objects, obj)
	}

	g.parent = make([]handle, len(g.objects))
	g.children = make([][]handle, len(g.objects))
	for h, obj := range g.objects {
		p, ok := ids[obj.Parent]
		if obj.Parent == nil || !ok {
			g.parent[h] = -1
			continue
		}
		g.parent[h] = p
		g.children[p] = append(g.children[p], h)
	}
	return g
}

// Build converts host objects into a new scene. Objects that are not meshes
// are skipped. Every mesh is triangulated and given split normals through
// editor first; those edits change the host document and are kept after
// Build returns, whether or not it succeeds.
//
// An input without mesh objects returns an empty scene and ErrNoMeshObjects;
// the empty scene is still valid to encode.
func Build(objects []*host.Object, editor host.MeshEditor, opts ...Option) (*dwn.Scene, error) {
	o := options{colors: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	g := scan(objects)
	scene := dwn.NewScene()
	if len(g.objects) == 0 {
		return scene, ErrNoMeshObjects
	}

	for h, obj := range g.objects {
		node, err := addObject(scene, obj, editor, o)
		if err != nil {
			return nil, fmt.Errorf("building %q: %w", obj.Name, err)
		}
		if node != h {
			return nil, fmt.Errorf("transform node %d built for handle %d", node, h)
		}
	}

	link(scene, g)

	o.log.Debug("scene built",
		zap.Int("objects", len(scene.Objects)),
		zap.Int("accessors", len(scene.Accessors)),
		zap.Int("roots", len(scene.Roots())))
	return scene, nil
}

// link is the second pass: node children in host order.
func link(scene *dwn.Scene, g *graph) {
	for h := range scene.TransformNodes {
		for _, c := range g.children[h] {
			scene.TransformNodes[h].Children = append(scene.TransformNodes[h].Children, c)
		}
	}
}

// addObject runs the build pass for one mesh object and returns the index of
// its transform node.
func addObject(scene *dwn.Scene, obj *host.Object, editor host.MeshEditor, o options) (int, error) {
	if obj.Mesh == nil {
		return 0, fmt.Errorf("%w: mesh object has no mesh", ErrHostData)
	}

	mesh, err := addMesh(scene, obj.Mesh, editor, o)
	if err != nil {
		return 0, err
	}
	object := scene.AddObject(dwn.Object{Type: dwn.ObjectMesh, Mesh: mesh})

	position, orientation, scale := obj.Matrix.Decompose()
	node := scene.AddTransformNode(dwn.TransformNode{
		Transform: dwn.Transform{
			Orientation: orientation,
			Position:    position,
			Scale:       scale,
		},
		Object: object,
	})

	o.log.Debug("object added",
		zap.String("name", obj.Name),
		zap.Int("node", node),
		zap.Int("mesh", mesh),
		zap.Int("loops", len(obj.Mesh.Loops)))
	return node, nil
}

// addMesh prepares m through the editor and appends its accessors, vertex
// layout and mesh. One vertex is emitted per loop; vertices are not welded.
func addMesh(scene *dwn.Scene, m *host.Mesh, editor host.MeshEditor, o options) (int, error) {
	if err := m.Check(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHostData, err)
	}
	if err := editor.Triangulate(m); err != nil {
		return 0, fmt.Errorf("triangulating: %w", err)
	}
	if err := editor.ComputeSplitNormals(m); err != nil {
		return 0, fmt.Errorf("computing split normals: %w", err)
	}
	if err := m.Check(); err != nil {
		return 0, fmt.Errorf("%w: after mesh edits: %v", ErrHostData, err)
	}

	// corners lists loops in polygon order; vertex i of the output is
	// corners[i], so the index buffer is 0..len(corners)-1.
	var corners []int
	for _, p := range m.Polygons {
		for l := p.LoopStart; l < p.LoopStart+p.LoopTotal; l++ {
			corners = append(corners, l)
		}
	}
	indices := make([]int, len(corners))
	for i := range indices {
		indices[i] = i
	}

	positions := make([]float32, 0, 3*len(corners))
	normals := make([]float32, 0, 3*len(corners))
	for _, l := range corners {
		loop := m.Loops[l]
		v := m.Vertices[loop.Vertex]
		positions = append(positions, v[0], v[1], v[2])
		normals = append(normals, loop.Normal[0], loop.Normal[1], loop.Normal[2])
	}

	indexAccessor, err := dwn.AddAccessor(scene, indices, 1, dwn.ComponentUint16)
	if err != nil {
		return 0, fmt.Errorf("index accessor: %w", err)
	}
	positionAccessor, err := dwn.AddAccessor(scene, positions, 3, dwn.ComponentFloat32)
	if err != nil {
		return 0, fmt.Errorf("%w: positions: %v", ErrHostData, err)
	}
	normalAccessor, err := dwn.AddAccessor(scene, normals, 3, dwn.ComponentFloat32)
	if err != nil {
		return 0, fmt.Errorf("%w: normals: %v", ErrHostData, err)
	}

	attrs := []dwn.VertexAttribute{
		{Accessor: positionAccessor, Type: dwn.AttributePosition},
		{Accessor: normalAccessor, Type: dwn.AttributeNormal},
	}

	if o.colors && m.Colors != nil {
		rgba := make([]float32, 0, 4*len(corners))
		for _, l := range corners {
			c := m.Colors.Data[l]
			rgba = append(rgba, c[0], c[1], c[2], c[3])
		}
		colorAccessor, err := scene.AddPackedAccessor(dwn.PackNormalizedByte(rgba), 4, dwn.ComponentUint8)
		if err != nil {
			return 0, fmt.Errorf("colour accessor: %w", err)
		}
		attrs = append(attrs, dwn.VertexAttribute{Accessor: colorAccessor, Type: dwn.AttributeColor})
	}

	layout := scene.AddVertexLayout(dwn.VertexLayout{Attributes: attrs})
	return scene.AddMesh(dwn.Mesh{IndexAccessor: indexAccessor, VertexLayout: layout}), nil
}
