package csg

import (
	"fmt"

	"github.com/chewxy/math32"
)

// unsupportedDistance is returned alongside ErrUnsupportedPrimitive.
var unsupportedDistance = math32.Inf(1)

// EvalPrimitive returns the signed distance from p to prim. Only spheres have a
// distance function; boxes are declared but unimplemented and, like PrimNone,
// yield ErrUnsupportedPrimitive with a +Inf distance.
func EvalPrimitive(p Vec3, prim Primitive) (float32, error) {
	switch prim.Kind {
	case PrimSphere:
		return sphereDistance(p, prim), nil
	default:
		return unsupportedDistance, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, prim.Kind)
	}
}

func sphereDistance(p Vec3, prim Primitive) float32 {
	return p.Sub(prim.Center()).Length() - prim.Radius()
}
