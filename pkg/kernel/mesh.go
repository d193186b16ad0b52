package kernel

import "github.com/chazu/michelangelo/pkg/csg"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // "solid" or "leaf/<index>"
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned box of the vertices. ok is false for an
// empty mesh.
func (m *Mesh) Bounds() (min, max csg.Vec3, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		v := csg.Vec3{X: m.Vertices[i], Y: m.Vertices[i+1], Z: m.Vertices[i+2]}
		if i == 0 {
			min, max = v, v
			continue
		}
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max, true
}
