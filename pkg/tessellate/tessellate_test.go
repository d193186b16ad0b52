package tessellate_test

import (
	"errors"
	"testing"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chazu/michelangelo/pkg/kernel"
	"github.com/chazu/michelangelo/pkg/kernel/sdfx"
	"github.com/chazu/michelangelo/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel to keep the tests fast.
func newKernel() kernel.Kernel {
	return &sdfx.SdfxKernel{Cells: 32}
}

// build applies edits in order and linearizes the result.
func build(t *testing.T, edits ...func(*csg.Tree) error) *csg.Flat {
	t.Helper()
	tr := csg.New()
	for i, edit := range edits {
		if err := edit(tr); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}
	f, err := csg.Linearize(tr)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func union(at int, c csg.Vec3, r float32) func(*csg.Tree) error {
	return func(tr *csg.Tree) error {
		if at == csg.NoIndex {
			at = tr.Root()
		}
		_, err := tr.AddSphere(at, 0, c, r)
		return err
	}
}

func subtract(at int, c csg.Vec3, r float32) func(*csg.Tree) error {
	return func(tr *csg.Tree) error {
		_, err := tr.SubtractSphere(at, 0, c, r)
		return err
	}
}

func TestSingleSphere(t *testing.T) {
	f := build(t, union(csg.NoIndex, csg.Vec3{}, 1))

	meshes, err := tessellate.Tessellate(f, newKernel(), tessellate.Options{})
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.Name != tessellate.SolidName {
		t.Errorf("expected Name %q, got %q", tessellate.SolidName, m.Name)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
}

func TestPerLeaf(t *testing.T) {
	f := build(t,
		union(csg.NoIndex, csg.Vec3{}, 1),
		union(csg.NoIndex, csg.Vec3{X: 1.5}, 1),
		subtract(1, csg.Vec3{X: 1.5, Y: 0.8}, 0.4),
	)

	meshes, err := tessellate.Tessellate(f, newKernel(), tessellate.Options{PerLeaf: true})
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}

	var want []string
	for i, n := range f.Nodes() {
		if n.IsLeaf() {
			want = append(want, tessellate.LeafName(i))
		}
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(want))
	}
	if len(meshes) != len(want) {
		t.Fatalf("expected %d meshes, got %d", len(want), len(meshes))
	}
	for i, m := range meshes {
		if m.Name != want[i] {
			t.Errorf("mesh %d: expected Name %q, got %q", i, want[i], m.Name)
		}
		if m.IsEmpty() {
			t.Errorf("mesh %s is empty", m.Name)
		}
	}

	// A leaf is meshed on its own: the subtracted sphere is whole.
	hole := meshes[2]
	min, max, _ := hole.Bounds()
	if size := max.Sub(min); size.X < 0.7 || size.Y < 0.7 {
		t.Errorf("subtracted leaf mesh extent %v, want ~0.8", size)
	}
}

func TestSubtractionShrinksSolid(t *testing.T) {
	k := newKernel()
	whole := build(t, union(csg.NoIndex, csg.Vec3{}, 1))
	carved := build(t,
		union(csg.NoIndex, csg.Vec3{}, 1),
		subtract(0, csg.Vec3{Z: 1}, 0.8),
	)

	a, err := tessellate.Tessellate(whole, k, tessellate.Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := tessellate.Tessellate(carved, k, tessellate.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, maxA, _ := a[0].Bounds()
	_, maxB, _ := b[0].Bounds()
	if maxB.Z >= maxA.Z-0.2 {
		t.Errorf("carved top at z=%f, whole top at z=%f; expected the cut to lower it", maxB.Z, maxA.Z)
	}
}

func TestEmptyFlat(t *testing.T) {
	f := build(t)
	meshes, err := tessellate.Tessellate(f, newKernel(), tessellate.Options{})
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(meshes))
	}

	meshes, err = tessellate.Tessellate(nil, newKernel(), tessellate.Options{PerLeaf: true})
	if err != nil || meshes != nil {
		t.Errorf("Tessellate(nil) = %v, %v", meshes, err)
	}
}

func TestZeroRadiusLeafSkipped(t *testing.T) {
	f := build(t,
		union(csg.NoIndex, csg.Vec3{}, 1),
		union(csg.NoIndex, csg.Vec3{X: 3}, 0),
	)
	meshes, err := tessellate.Tessellate(f, newKernel(), tessellate.Options{PerLeaf: true})
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	if meshes[0].Name != tessellate.LeafName(0) {
		t.Errorf("expected the unit sphere leaf, got %q", meshes[0].Name)
	}
}

// failingKernel returns an error for every field.
type failingKernel struct{}

var errKernel = errors.New("kernel failure")

func (failingKernel) ToMesh(kernel.SDF) (*kernel.Mesh, error) { return nil, errKernel }

func TestKernelErrorPropagates(t *testing.T) {
	f := build(t, union(csg.NoIndex, csg.Vec3{}, 1))
	_, err := tessellate.Tessellate(f, failingKernel{}, tessellate.Options{})
	if !errors.Is(err, errKernel) {
		t.Fatalf("error = %v, want wrapped errKernel", err)
	}
}
