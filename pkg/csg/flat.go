package csg

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
)

// Flat is an immutable, topologically sorted snapshot of a Tree: the children
// of every node sit at strictly smaller indices and the root is the last
// node. It is safe for concurrent use by any number of readers.
type Flat struct {
	nodes   []Node
	mapping []int // source tree index -> flat index, NoIndex if unreachable
	scratch sync.Pool
}

// Linearize bakes t into a Flat by a post-order walk from the root. Children
// are always emitted before their parent. The walk rejects leaves the flat
// evaluator cannot compute (ErrUnsupportedPrimitive) and any arena that is not
// a binary tree (ErrMalformedTree), so Flat.Eval never fails. The tree is not
// modified; rerun Linearize after every edit.
func Linearize(t *Tree) (*Flat, error) {
	f := &Flat{mapping: make([]int, len(t.nodes))}
	for i := range f.mapping {
		f.mapping[i] = NoIndex
	}
	if len(t.nodes) == 0 {
		f.initScratch()
		return f, nil
	}
	if t.root < 0 || t.root >= len(t.nodes) {
		return nil, fmt.Errorf("linearize: %w: root %d out of range", ErrMalformedTree, t.root)
	}

	f.nodes = make([]Node, 0, len(t.nodes))
	entered := make([]bool, len(t.nodes))
	if _, err := f.visit(t, t.root, entered); err != nil {
		return nil, fmt.Errorf("linearize: %w", err)
	}
	f.initScratch()
	return f, nil
}

// visit emits the subtree rooted at source index i and returns the flat index
// assigned to i.
func (f *Flat) visit(t *Tree, i int, entered []bool) (int, error) {
	if i < 0 || i >= len(t.nodes) {
		return NoIndex, fmt.Errorf("%w: child index %d out of range", ErrMalformedTree, i)
	}
	if entered[i] {
		return NoIndex, fmt.Errorf("%w: node %d reached twice", ErrMalformedTree, i)
	}
	entered[i] = true

	n := t.nodes[i]
	switch data := n.Data.(type) {
	case Primitive:
		if !n.IsLeaf() {
			return NoIndex, fmt.Errorf("%w: primitive node %d has children", ErrMalformedTree, i)
		}
		if data.Kind != PrimSphere {
			return NoIndex, fmt.Errorf("node %d: %w: %s", i, ErrUnsupportedPrimitive, data.Kind)
		}
		idx := len(f.nodes)
		f.nodes = append(f.nodes, Node{Parent: NoIndex, Children: leafChildren, Data: data})
		f.mapping[i] = idx
		return idx, nil

	case Operation:
		a, err := f.visit(t, n.Children[0], entered)
		if err != nil {
			return NoIndex, err
		}
		b, err := f.visit(t, n.Children[1], entered)
		if err != nil {
			return NoIndex, err
		}
		idx := len(f.nodes)
		f.nodes = append(f.nodes, Node{Parent: NoIndex, Children: [2]int{a, b}, Data: data})
		f.nodes[a].Parent = idx
		f.nodes[b].Parent = idx
		f.mapping[i] = idx
		return idx, nil

	default:
		return NoIndex, fmt.Errorf("%w: node %d has payload %T", ErrMalformedTree, i, n.Data)
	}
}

func (f *Flat) initScratch() {
	n := len(f.nodes)
	f.scratch.New = func() any {
		buf := make([]float32, n)
		return &buf
	}
}

// Len returns the number of nodes.
func (f *Flat) Len() int {
	return len(f.nodes)
}

// Root returns the index of the root (always the last node), or NoIndex.
func (f *Flat) Root() int {
	return len(f.nodes) - 1
}

// Node returns the node at flat index i.
func (f *Flat) Node(i int) (Node, bool) {
	if i < 0 || i >= len(f.nodes) {
		return Node{}, false
	}
	return f.nodes[i], true
}

// Nodes returns a copy of the sorted node array.
func (f *Flat) Nodes() []Node {
	out := make([]Node, len(f.nodes))
	copy(out, f.nodes)
	return out
}

// Index maps an index of the source tree to its flat index. Nodes that were
// not reachable from the root map to NoIndex.
func (f *Flat) Index(source int) int {
	if source < 0 || source >= len(f.mapping) {
		return NoIndex
	}
	return f.mapping[source]
}

// Eval returns the signed distance at p. Each call borrows a scratch buffer
// from a pool, so Eval may be called from many goroutines at once.
func (f *Flat) Eval(p Vec3) float32 {
	if len(f.nodes) == 0 {
		return math32.Inf(1)
	}
	buf := f.scratch.Get().(*[]float32)
	d := f.evalInto(p, *buf)
	f.scratch.Put(buf)
	return d
}

// EvalMany writes the distance of each point into dist, which must be at least
// as long as points.
func (f *Flat) EvalMany(points []Vec3, dist []float32) {
	if len(f.nodes) == 0 {
		for i := range points {
			dist[i] = math32.Inf(1)
		}
		return
	}
	buf := f.scratch.Get().(*[]float32)
	for i, p := range points {
		dist[i] = f.evalInto(p, *buf)
	}
	f.scratch.Put(buf)
}

// evalInto walks the nodes in ascending order. values must hold one slot per
// node; children are always computed before their parent reads them.
func (f *Flat) evalInto(p Vec3, values []float32) float32 {
	for i := range f.nodes {
		n := &f.nodes[i]
		switch data := n.Data.(type) {
		case Primitive:
			values[i] = sphereDistance(p, data)
		case Operation:
			values[i] = EvalOperation(values[n.Children[0]], values[n.Children[1]], data)
		}
	}
	return values[len(f.nodes)-1]
}

// Evaluator evaluates a Flat with a private scratch buffer. It must be used by
// one goroutine at a time; give each worker its own.
type Evaluator struct {
	flat   *Flat
	values []float32
}

// NewEvaluator returns an Evaluator bound to f.
func (f *Flat) NewEvaluator() *Evaluator {
	return &Evaluator{flat: f, values: make([]float32, len(f.nodes))}
}

// Eval returns the signed distance at p.
func (e *Evaluator) Eval(p Vec3) float32 {
	if len(e.values) == 0 {
		return math32.Inf(1)
	}
	return e.flat.evalInto(p, e.values)
}

// Bounds returns a conservative axis-aligned box outside of which the distance
// is positive. Unions grow the box by a quarter of their softness, the most a
// smooth minimum can lower a distance; subtractions never grow their left
// operand. ok is false for an empty Flat.
func (f *Flat) Bounds() (min, max Vec3, ok bool) {
	if len(f.nodes) == 0 {
		return Vec3{}, Vec3{}, false
	}
	lo := make([]Vec3, len(f.nodes))
	hi := make([]Vec3, len(f.nodes))
	for i := range f.nodes {
		n := &f.nodes[i]
		switch data := n.Data.(type) {
		case Primitive:
			r := math32.Max(data.Radius(), 0)
			c := data.Center()
			ext := Vec3{r, r, r}
			lo[i], hi[i] = c.Sub(ext), c.Add(ext)
		case Operation:
			a, b := n.Children[0], n.Children[1]
			if data.Blend <= 0 {
				lo[i], hi[i] = lo[a], hi[a]
				continue
			}
			pad := data.Softness * 0.25
			ext := Vec3{pad, pad, pad}
			lo[i] = lo[a].Min(lo[b]).Sub(ext)
			hi[i] = hi[a].Max(hi[b]).Add(ext)
		}
	}
	last := len(f.nodes) - 1
	return lo[last], hi[last], true
}

// Subtree returns the Flat of the subtree rooted at flat index i. In post
// order a subtree occupies a contiguous run ending at its root, starting at
// its leftmost leaf.
func (f *Flat) Subtree(i int) (*Flat, error) {
	if i < 0 || i >= len(f.nodes) {
		return nil, fmt.Errorf("subtree: %w: index %d out of range", ErrMalformedTree, i)
	}
	start := i
	for !f.nodes[start].IsLeaf() {
		start = f.nodes[start].Children[0]
	}

	sub := &Flat{
		nodes:   make([]Node, 0, i-start+1),
		mapping: make([]int, len(f.mapping)),
	}
	for _, n := range f.nodes[start : i+1] {
		if !n.IsLeaf() {
			n.Children = [2]int{n.Children[0] - start, n.Children[1] - start}
		}
		n.Parent -= start
		sub.nodes = append(sub.nodes, n)
	}
	sub.nodes[len(sub.nodes)-1].Parent = NoIndex
	for src, idx := range f.mapping {
		if idx >= start && idx <= i {
			sub.mapping[src] = idx - start
		} else {
			sub.mapping[src] = NoIndex
		}
	}
	sub.initScratch()
	return sub, nil
}
