package csg

import "github.com/chewxy/math32"

// Smin is a quadratic smooth minimum with support radius k. For k == 0 it is
// exactly min(a, b).
func Smin(a, b, k float32) float32 {
	if k == 0 {
		return math32.Min(a, b)
	}
	h := math32.Max(k-math32.Abs(a-b), 0) / k
	return math32.Min(a, b) - h*h*k*0.25
}

// Smax is the smooth maximum matching Smin.
func Smax(a, b, k float32) float32 {
	if k == 0 {
		return math32.Max(a, b)
	}
	h := math32.Max(k-math32.Abs(a-b), 0) / k
	return math32.Max(a, b) + h*h*k*0.25
}

// Lerp interpolates linearly from a (t = 0) to b (t = 1). Both endpoints are
// reproduced exactly.
func Lerp(a, b, t float32) float32 {
	return a*(1-t) + b*t
}

// EvalOperation combines the distances of the left (f) and right (g) operand.
// At blend 0 the result is f; at blend 1 it is the soft union and at blend -1
// the soft subtraction of g from f.
func EvalOperation(f, g float32, op Operation) float32 {
	if op.Blend >= 0 {
		return Lerp(f, Smin(f, g, op.Softness), op.Blend)
	}
	return Lerp(f, Smax(f, -g, op.Softness), -op.Blend)
}
