package host

import "github.com/Faultbox/dawn-toolbox/pkg/math"

// Editor is a MeshEditor for meshes that live only in memory. It fan
// triangulates polygons and computes flat or smooth split normals.
type Editor struct{}

// Triangulate replaces each polygon of more than three loops with a fan of
// triangles around its first loop. Colours follow their loops.
func (Editor) Triangulate(m *Mesh) error {
	if m.IsTriangulated() {
		return nil
	}
	if err := m.Check(); err != nil {
		return err
	}

	var (
		polygons []Polygon
		loops    []Loop
		colors   [][4]float32
	)
	corner := func(i int) {
		loops = append(loops, m.Loops[i])
		if m.Colors != nil {
			colors = append(colors, m.Colors.Data[i])
		}
	}

	for _, p := range m.Polygons {
		first := p.LoopStart
		for i := 1; i+1 < p.LoopTotal; i++ {
			polygons = append(polygons, Polygon{LoopStart: len(loops), LoopTotal: 3})
			corner(first)
			corner(first + i)
			corner(first + i + 1)
		}
	}

	m.Polygons = polygons
	m.Loops = loops
	if m.Colors != nil {
		m.Colors.Data = colors
	}
	return nil
}

// ComputeSplitNormals sets every loop normal to its polygon's normal, or to
// the area-weighted average over the vertex's polygons when m.Smooth is set.
func (Editor) ComputeSplitNormals(m *Mesh) error {
	if err := m.Check(); err != nil {
		return err
	}

	faceNormals := make([]math.Vec3, len(m.Polygons))
	for i, p := range m.Polygons {
		faceNormals[i] = polygonNormal(m, p)
	}

	if !m.Smooth {
		for i, p := range m.Polygons {
			n := faceNormals[i].Normalize().Array()
			for l := p.LoopStart; l < p.LoopStart+p.LoopTotal; l++ {
				m.Loops[l].Normal = n
			}
		}
		return nil
	}

	vertexNormals := make([]math.Vec3, len(m.Vertices))
	for i, p := range m.Polygons {
		for l := p.LoopStart; l < p.LoopStart+p.LoopTotal; l++ {
			v := m.Loops[l].Vertex
			vertexNormals[v] = vertexNormals[v].Add(faceNormals[i])
		}
	}
	for i := range m.Loops {
		m.Loops[i].Normal = vertexNormals[m.Loops[i].Vertex].Normalize().Array()
	}
	return nil
}

// polygonNormal returns the unnormalized Newell normal of p, whose length is
// twice the polygon's area.
func polygonNormal(m *Mesh, p Polygon) math.Vec3 {
	var n math.Vec3
	for i := 0; i < p.LoopTotal; i++ {
		cur := math.V3(m.Vertices[m.Loops[p.LoopStart+i].Vertex])
		next := math.V3(m.Vertices[m.Loops[p.LoopStart+(i+1)%p.LoopTotal].Vertex])
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}
