// Package tessellate turns a linearized CSG tree into triangle meshes using a
// meshing kernel. By default the whole solid becomes one mesh; per-leaf mode
// meshes every primitive on its own so a viewer can highlight a selection.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chazu/michelangelo/pkg/kernel"
)

// SolidName is the name of the mesh of the whole tree.
const SolidName = "solid"

// Options controls what Tessellate produces.
type Options struct {
	// PerLeaf meshes each primitive separately, named "leaf/<flat index>".
	PerLeaf bool
}

// LeafName returns the mesh name of the leaf at flat index i.
func LeafName(i int) string {
	return fmt.Sprintf("leaf/%d", i)
}

// Tessellate meshes f with k. The tessellator is read-only and never
// mutates f. A field with nothing to sample yields no mesh rather than an
// error.
func Tessellate(f *csg.Flat, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if f == nil || f.Len() == 0 {
		return nil, nil
	}
	if !opts.PerLeaf {
		m, err := mesh(k, f, SolidName)
		if err != nil || m == nil {
			return nil, err
		}
		return []*kernel.Mesh{m}, nil
	}

	var meshes []*kernel.Mesh
	for i, n := range f.Nodes() {
		if !n.IsLeaf() {
			continue
		}
		leaf, err := f.Subtree(i)
		if err != nil {
			return nil, fmt.Errorf("tessellate: leaf %d: %w", i, err)
		}
		m, err := mesh(k, leaf, LeafName(i))
		if err != nil {
			return nil, err
		}
		if m != nil {
			meshes = append(meshes, m)
		}
	}
	return meshes, nil
}

// mesh runs the kernel and names the result. It returns nil, nil when the
// field is empty.
func mesh(k kernel.Kernel, f kernel.SDF, name string) (*kernel.Mesh, error) {
	m, err := k.ToMesh(f)
	if errors.Is(err, kernel.ErrEmptySolid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", name, err)
	}
	m.Name = name
	return m, nil
}
