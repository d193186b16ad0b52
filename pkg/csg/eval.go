package csg

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Eval returns the signed distance of the whole tree at p. An empty tree
// contains nothing, so every point is infinitely far outside it.
func (t *Tree) Eval(p Vec3) (float32, error) {
	if len(t.nodes) == 0 {
		return math32.Inf(1), nil
	}
	return t.EvalNode(p, t.root)
}

// EvalNode evaluates the subtree rooted at node i by structural recursion.
// It never mutates the tree, so concurrent readers are safe as long as no
// edit runs at the same time.
func (t *Tree) EvalNode(p Vec3, i int) (float32, error) {
	if i < 0 || i >= len(t.nodes) {
		return 0, fmt.Errorf("eval: %w: index %d out of range", ErrMalformedTree, i)
	}
	n := &t.nodes[i]
	switch data := n.Data.(type) {
	case Primitive:
		d, err := EvalPrimitive(p, data)
		if err != nil {
			return d, fmt.Errorf("eval node %d: %w", i, err)
		}
		return d, nil
	case Operation:
		f, err := t.EvalNode(p, n.Children[0])
		if err != nil {
			return f, err
		}
		g, err := t.EvalNode(p, n.Children[1])
		if err != nil {
			return g, err
		}
		return EvalOperation(f, g, data), nil
	default:
		return 0, fmt.Errorf("eval: %w: node %d has payload %T", ErrMalformedTree, i, n.Data)
	}
}
