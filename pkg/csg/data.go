package csg

import "fmt"

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// PrimitiveKind distinguishes between primitive shapes.
type PrimitiveKind int

const (
	PrimNone   PrimitiveKind = iota // empty payload, never valid in a tree
	PrimSphere                      // params: center x, y, z, radius
	PrimBox                         // params: center x, y, z, size (no distance function yet)
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimNone:
		return "none"
	case PrimSphere:
		return "sphere"
	case PrimBox:
		return "box"
	default:
		return fmt.Sprintf("PrimitiveKind(%d)", int(k))
	}
}

// MaxParams is the capacity of a primitive's parameter buffer.
const MaxParams = 4

// Primitive is the payload of a leaf node.
type Primitive struct {
	Kind   PrimitiveKind      `json:"kind"`
	Params [MaxParams]float32 `json:"params"`
}

func (Primitive) nodeData() {}

// Sphere returns a sphere primitive.
func Sphere(center Vec3, radius float32) Primitive {
	return Primitive{
		Kind:   PrimSphere,
		Params: [MaxParams]float32{center.X, center.Y, center.Z, radius},
	}
}

// Box returns a box primitive. Boxes can be placed in a tree but cannot be
// evaluated; see EvalPrimitive.
func Box(center Vec3, size float32) Primitive {
	return Primitive{
		Kind:   PrimBox,
		Params: [MaxParams]float32{center.X, center.Y, center.Z, size},
	}
}

// Center returns the first three parameters as a point.
func (p Primitive) Center() Vec3 {
	return Vec3{p.Params[0], p.Params[1], p.Params[2]}
}

// Radius returns the sphere radius (the fourth parameter).
func (p Primitive) Radius() float32 {
	return p.Params[3]
}

func (p Primitive) String() string {
	return fmt.Sprintf("%s(%g %g %g %g)", p.Kind, p.Params[0], p.Params[1], p.Params[2], p.Params[3])
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Operation is the payload of an internal node. Blend in [0, 1] selects a soft
// union, Blend in [-1, 0) a soft subtraction of the right child from the left
// with strength |Blend|. Softness is the smoothing radius; 0 is a hard boolean.
type Operation struct {
	Blend    float32 `json:"blend"`
	Softness float32 `json:"softness"`
}

func (Operation) nodeData() {}

// Union returns a full soft union.
func Union(softness float32) Operation {
	return Operation{Blend: 1, Softness: softness}
}

// Subtract returns a full soft subtraction.
func Subtract(softness float32) Operation {
	return Operation{Blend: -1, Softness: softness}
}

// IsSubtraction reports whether the operation subtracts its right operand.
func (op Operation) IsSubtraction() bool {
	return op.Blend < 0
}

// Validate checks that blend and softness are finite and in range.
func (op Operation) Validate() error {
	if !isFinite(op.Blend) || op.Blend < -1 || op.Blend > 1 {
		return fmt.Errorf("%w: blend %g outside [-1, 1]", ErrInvalidOperation, op.Blend)
	}
	if !isFinite(op.Softness) || op.Softness < 0 {
		return fmt.Errorf("%w: softness %g must be finite and >= 0", ErrInvalidOperation, op.Softness)
	}
	return nil
}

func (op Operation) String() string {
	name := "union"
	if op.IsSubtraction() {
		name = "subtract"
	}
	return fmt.Sprintf("%s(blend=%g softness=%g)", name, op.Blend, op.Softness)
}
