package csg

import (
	"fmt"

	"github.com/chewxy/math32"
)

// ---------------------------------------------------------------------------
// Geometric validation (warnings only)
// ---------------------------------------------------------------------------

// validateGeometry runs the geometric checks. It assumes the structural
// checks passed, so every child reference is in range and the arena is
// acyclic.
func validateGeometry(t *Tree) []ValidationError {
	var warnings []ValidationError
	warnings = append(warnings, validatePositiveSizes(t)...)
	warnings = append(warnings, validateDuplicateOperands(t)...)
	warnings = append(warnings, validateSubtractionReach(t)...)
	return warnings
}

// validatePositiveSizes warns about leaves whose size is not positive. Such
// a leaf is an empty solid and contributes nothing to a union.
func validatePositiveSizes(t *Tree) []ValidationError {
	var warnings []ValidationError
	for i, n := range t.nodes {
		p, ok := n.Data.(Primitive)
		if !ok {
			continue
		}
		if size := p.Radius(); size <= 0 {
			warnings = append(warnings, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("%s size is %.4f, must be positive to enclose any volume", p.Kind, size),
				Severity: SeverityWarning,
			})
		}
	}
	return warnings
}

// validateDuplicateOperands warns when both children of an operation are
// leaves holding the same primitive.
func validateDuplicateOperands(t *Tree) []ValidationError {
	var warnings []ValidationError
	for i, n := range t.nodes {
		if n.IsLeaf() {
			continue
		}
		a, b := t.nodes[n.Children[0]], t.nodes[n.Children[1]]
		if !a.IsLeaf() || !b.IsLeaf() {
			continue
		}
		if a.Data == b.Data {
			warnings = append(warnings, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("both operands are %v", a.Data),
				Severity: SeverityWarning,
			})
		}
	}
	return warnings
}

// validateSubtractionReach warns when the carving operand of a subtraction
// lies entirely outside the bounds of what it carves from. The smooth
// maximum raises a distance by at most a quarter of the softness, so the
// carving bounds are padded by that much before the overlap test.
func validateSubtractionReach(t *Tree) []ValidationError {
	var warnings []ValidationError
	for i, n := range t.nodes {
		op, ok := n.Data.(Operation)
		if !ok || !op.IsSubtraction() || n.IsLeaf() {
			continue
		}
		aLo, aHi := t.bounds(n.Children[0])
		bLo, bHi := t.bounds(n.Children[1])
		pad := op.Softness * 0.25
		ext := Vec3{pad, pad, pad}
		bLo, bHi = bLo.Sub(ext), bHi.Add(ext)
		if boxesOverlap(aLo, aHi, bLo, bHi) {
			continue
		}
		warnings = append(warnings, ValidationError{
			Index:    i,
			Message:  fmt.Sprintf("subtracted node %d does not reach node %d; the edit has no effect", n.Children[1], n.Children[0]),
			Severity: SeverityWarning,
		})
	}
	return warnings
}

// bounds returns the conservative box of the subtree rooted at i, using the
// same rules as Flat.Bounds.
func (t *Tree) bounds(i int) (lo, hi Vec3) {
	n := t.nodes[i]
	switch data := n.Data.(type) {
	case Primitive:
		r := math32.Max(data.Radius(), 0)
		ext := Vec3{r, r, r}
		c := data.Center()
		return c.Sub(ext), c.Add(ext)
	case Operation:
		aLo, aHi := t.bounds(n.Children[0])
		if data.Blend <= 0 {
			return aLo, aHi
		}
		bLo, bHi := t.bounds(n.Children[1])
		pad := data.Softness * 0.25
		ext := Vec3{pad, pad, pad}
		return aLo.Min(bLo).Sub(ext), aHi.Max(bHi).Add(ext)
	}
	return Vec3{}, Vec3{}
}

func boxesOverlap(aLo, aHi, bLo, bHi Vec3) bool {
	return aLo.X <= bHi.X && bLo.X <= aHi.X &&
		aLo.Y <= bHi.Y && bLo.Y <= aHi.Y &&
		aLo.Z <= bHi.Z && bLo.Z <= aHi.Z
}
