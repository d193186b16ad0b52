package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/michelangelo/pkg/csg"
)

// Format writes t as records that rebuild a tree of the same shape and
// payloads when parsed. Arena indices of the rebuilt tree may differ from t;
// the records refer to the indices of the rebuilt tree, which Format tracks
// by replaying every edit it emits.
func Format(t *csg.Tree) (string, error) {
	if t.Empty() {
		return "", nil
	}
	w := &writer{src: t, dst: csg.New()}
	first, err := w.leftmost(t.Root())
	if err != nil {
		return "", err
	}
	slot, err := w.emit(csg.NoIndex, csg.Operation{Blend: 1}, first)
	if err != nil {
		return "", err
	}
	if err := w.realize(slot, t.Root()); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

type writer struct {
	src *csg.Tree
	dst *csg.Tree
	b   strings.Builder
}

// realize grows the leaf at dst index slot, which already holds the leftmost
// primitive of src node n, into a copy of n's subtree.
func (w *writer) realize(slot, n int) error {
	node, ok := w.src.Node(n)
	if !ok {
		return fmt.Errorf("format: %w: node %d out of range", csg.ErrMalformedTree, n)
	}
	switch data := node.Data.(type) {
	case csg.Primitive:
		return nil
	case csg.Operation:
		right, err := w.leftmost(node.Children[1])
		if err != nil {
			return err
		}
		attach := slot
		if slot == w.dst.Root() {
			attach = csg.NoIndex
		}
		leaf, err := w.emit(attach, data, right)
		if err != nil {
			return err
		}
		// Wrapping the root keeps the old slot as the left child; promoting a
		// leaf moves its primitive into a fresh copy just before the new leaf.
		left := slot
		if attach != csg.NoIndex {
			left = leaf - 1
		}
		if err := w.realize(left, node.Children[0]); err != nil {
			return err
		}
		return w.realize(leaf, node.Children[1])
	default:
		return fmt.Errorf("format: %w: node %d has payload %T", csg.ErrMalformedTree, n, node.Data)
	}
}

// leftmost returns the primitive of the first leaf of n's subtree.
func (w *writer) leftmost(n int) (csg.Primitive, error) {
	for depth := 0; depth <= w.src.Len(); depth++ {
		node, ok := w.src.Node(n)
		if !ok {
			return csg.Primitive{}, fmt.Errorf("format: %w: node %d out of range", csg.ErrMalformedTree, n)
		}
		if p, ok := node.Data.(csg.Primitive); ok {
			return p, nil
		}
		n = node.Children[0]
	}
	return csg.Primitive{}, fmt.Errorf("format: %w: cycle below node %d", csg.ErrMalformedTree, n)
}

// emit writes one record and applies it to the replay tree. An attach of
// NoIndex is written as -1 and replayed at the current root, as Parse does.
func (w *writer) emit(attach int, op csg.Operation, p csg.Primitive) (int, error) {
	at := attach
	if at == csg.NoIndex {
		at = w.dst.Root()
	}
	idx, err := w.dst.AddEdit(at, op, p)
	if err != nil {
		return csg.NoIndex, fmt.Errorf("format: %w", err)
	}
	fields := []string{
		strconv.Itoa(attach),
		formatFloat(op.Blend),
		formatFloat(op.Softness),
		p.Kind.String(),
	}
	for _, v := range p.Params {
		fields = append(fields, formatFloat(v))
	}
	w.b.WriteString(strings.Join(fields, " "))
	w.b.WriteByte('\n')
	return idx, nil
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
