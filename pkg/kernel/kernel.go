// Package kernel defines the meshing kernel interface. A kernel turns a
// signed distance field into a triangle mesh; implementations (sdfx) sit
// behind this interface so the rest of the system does not depend on a
// particular surface extractor.
package kernel

import (
	"errors"

	"github.com/chazu/michelangelo/pkg/csg"
)

// ErrEmptySolid is returned when a field has no bounds to sample.
var ErrEmptySolid = errors.New("empty solid")

// SDF is a signed distance field with a conservative bounding box.
// Eval must be safe for concurrent use.
type SDF interface {
	Eval(p csg.Vec3) float32
	// Bounds returns a box containing the zero set, or ok == false when
	// the field is empty.
	Bounds() (min, max csg.Vec3, ok bool)
}

// Compile-time interface check.
var _ SDF = (*csg.Flat)(nil)

// Kernel is the meshing kernel interface.
type Kernel interface {
	ToMesh(f SDF) (*Mesh, error)
}
