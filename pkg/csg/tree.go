package csg

import "fmt"

// Tree is the node arena together with the index of its root. Nodes are only
// ever appended; an index returned by an edit stays valid for the lifetime of
// the tree. A Tree is not safe for concurrent mutation: edit from a single
// goroutine and hand readers a Flat snapshot.
type Tree struct {
	nodes []Node
	root  int
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{root: NoIndex}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool {
	return len(t.nodes) == 0
}

// Root returns the root index, or NoIndex for an empty tree.
func (t *Tree) Root() int {
	return t.root
}

// Node returns the node at index i.
func (t *Tree) Node(i int) (Node, bool) {
	if i < 0 || i >= len(t.nodes) {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Nodes returns a copy of the arena.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Clone returns an independent copy of t.
func (t *Tree) Clone() *Tree {
	return &Tree{nodes: t.Nodes(), root: t.root}
}

// AddEdit combines prim into the tree at attachAt using op and returns the
// index of the new leaf holding prim.
//
//   - Empty tree: prim becomes the root; op and attachAt are ignored.
//   - attachAt == Root(): the current root is wrapped by a new root holding op,
//     with the old root as left child and the new leaf as right child. The
//     leaf is appended first, at Len(), and the new root after it. Indices
//     saved by tools that append the root before the leaf must be remapped.
//   - Any other leaf: the leaf is promoted in place to an operation node whose
//     children are a copy of its old primitive and the new leaf.
//
// Internal non-root nodes and out-of-range indices are rejected with an
// *AttachError. On any error the tree is left unchanged.
func (t *Tree) AddEdit(attachAt int, op Operation, prim Primitive) (int, error) {
	if prim.Kind != PrimSphere && prim.Kind != PrimBox {
		return NoIndex, fmt.Errorf("add edit: %w: %s", ErrUnsupportedPrimitive, prim.Kind)
	}

	if len(t.nodes) == 0 {
		t.nodes = append(t.nodes, newLeaf(NoIndex, prim))
		t.root = 0
		return 0, nil
	}

	if err := op.Validate(); err != nil {
		return NoIndex, fmt.Errorf("add edit: %w", err)
	}

	if attachAt == t.root {
		oldRoot := t.root
		leaf := len(t.nodes)
		root := leaf + 1
		t.nodes = append(t.nodes,
			newLeaf(root, prim),
			Node{Parent: NoIndex, Children: [2]int{oldRoot, leaf}, Data: op},
		)
		t.nodes[oldRoot].Parent = root
		t.root = root
		return leaf, nil
	}

	if attachAt < 0 || attachAt >= len(t.nodes) {
		return NoIndex, &AttachError{Index: attachAt, Reason: fmt.Sprintf("is out of range [0, %d)", len(t.nodes))}
	}
	target := t.nodes[attachAt]
	if !target.IsLeaf() {
		return NoIndex, &AttachError{Index: attachAt, Reason: "is an internal node"}
	}
	old, ok := target.Data.(Primitive)
	if !ok {
		return NoIndex, fmt.Errorf("add edit: %w: leaf %d holds %T", ErrMalformedTree, attachAt, target.Data)
	}

	a := len(t.nodes)
	b := a + 1
	t.nodes = append(t.nodes, newLeaf(attachAt, old), newLeaf(attachAt, prim))
	t.nodes[attachAt].Children = [2]int{a, b}
	t.nodes[attachAt].Data = op
	return b, nil
}

// AddSphere unions a sphere into the tree at attachAt.
func (t *Tree) AddSphere(attachAt int, softness float32, center Vec3, radius float32) (int, error) {
	return t.AddEdit(attachAt, Union(softness), Sphere(center, radius))
}

// SubtractSphere carves a sphere out of the tree at attachAt.
func (t *Tree) SubtractSphere(attachAt int, softness float32, center Vec3, radius float32) (int, error) {
	return t.AddEdit(attachAt, Subtract(softness), Sphere(center, radius))
}

// SetPrimitive replaces the primitive of leaf i in place. The structure of the
// tree does not change.
func (t *Tree) SetPrimitive(i int, p Primitive) error {
	if i < 0 || i >= len(t.nodes) {
		return fmt.Errorf("set primitive: %w: index %d out of range", ErrMalformedTree, i)
	}
	if !t.nodes[i].IsLeaf() {
		return fmt.Errorf("set primitive: %w: node %d is an operation", ErrKindMismatch, i)
	}
	if p.Kind != PrimSphere && p.Kind != PrimBox {
		return fmt.Errorf("set primitive: %w: %s", ErrUnsupportedPrimitive, p.Kind)
	}
	t.nodes[i].Data = p
	return nil
}

// SetOperation replaces the operation of internal node i in place.
func (t *Tree) SetOperation(i int, op Operation) error {
	if i < 0 || i >= len(t.nodes) {
		return fmt.Errorf("set operation: %w: index %d out of range", ErrMalformedTree, i)
	}
	if t.nodes[i].IsLeaf() {
		return fmt.Errorf("set operation: %w: node %d is a primitive", ErrKindMismatch, i)
	}
	if err := op.Validate(); err != nil {
		return fmt.Errorf("set operation: %w", err)
	}
	t.nodes[i].Data = op
	return nil
}
