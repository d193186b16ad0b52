// Package sdfx implements the kernel.Kernel interface using the marching
// cubes renderer of the github.com/deadsy/sdfx CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chazu/michelangelo/pkg/kernel"
	"github.com/chewxy/math32"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest axis of the bounding box.
const DefaultMeshCells = 200

// boundsMargin pads the sampled region so a surface lying on the bounding
// box is still crossed by the grid.
const boundsMargin = 0.02

// field adapts a kernel.SDF to sdf.SDF3.
type field struct {
	f  kernel.SDF
	bb sdf.Box3
}

func (s *field) Evaluate(p v3.Vec) float64 {
	return float64(s.f.Eval(csg.Vec3{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}))
}

func (s *field) BoundingBox() sdf.Box3 {
	return s.bb
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// Cells is the number of marching cubes cells along the longest axis.
	// Zero means DefaultMeshCells.
	Cells int
}

// New returns a new SdfxKernel with the default resolution.
func New() *SdfxKernel {
	return &SdfxKernel{Cells: DefaultMeshCells}
}

// wrap builds the sdf.SDF3 for f, padding its bounds by boundsMargin of the
// longest extent.
func wrap(f kernel.SDF) (sdf.SDF3, error) {
	min, max, ok := f.Bounds()
	if !ok {
		return nil, kernel.ErrEmptySolid
	}
	if !min.IsFinite() || !max.IsFinite() {
		return nil, fmt.Errorf("sdfx: bounds %v..%v are not finite", min, max)
	}
	size := max.Sub(min)
	pad := math32.Max(size.X, math32.Max(size.Y, size.Z)) * boundsMargin
	if pad <= 0 {
		return nil, kernel.ErrEmptySolid
	}
	lo := min.Sub(csg.Vec3{X: pad, Y: pad, Z: pad})
	hi := max.Add(csg.Vec3{X: pad, Y: pad, Z: pad})
	bb := sdf.Box3{
		Min: v3.Vec{X: float64(lo.X), Y: float64(lo.Y), Z: float64(lo.Z)},
		Max: v3.Vec{X: float64(hi.X), Y: float64(hi.Y), Z: float64(hi.Z)},
	}
	return &field{f: f, bb: bb}, nil
}

// ToMesh converts a field to a triangle mesh using marching cubes. Each
// triangle gets its own three vertices carrying the face normal.
func (k *SdfxKernel) ToMesh(f kernel.SDF) (*kernel.Mesh, error) {
	sdf3, err := wrap(f)
	if err != nil {
		return nil, err
	}

	cells := k.Cells
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
