package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func coarseConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coarse.yaml")
	body := "mesh:\n  cells: 16\nrender:\n  width: 8\n  height: 6\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEvalCommand(t *testing.T) {
	out, err := run(t, "eval", "examples/two_spheres.csg", "0", "0", "0")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if strings.TrimSpace(out) != "-1" {
		t.Errorf("eval printed %q, want -1", out)
	}

	if _, err := run(t, "eval", "examples/two_spheres.csg", "0", "zero", "0"); err == nil {
		t.Error("expected an error for a bad coordinate")
	}
	if _, err := run(t, "eval", "examples/two_spheres.csg"); err == nil {
		t.Error("expected an error for missing coordinates")
	}
}

func TestMeshCommand(t *testing.T) {
	out, err := run(t, "--config", coarseConfig(t), "mesh", "--per-leaf", "examples/carved.zy")
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	var meshes []MeshData
	if err := json.Unmarshal([]byte(out), &meshes); err != nil {
		t.Fatalf("output is not mesh JSON: %v", err)
	}
	// carved.zy has four leaves after its edits.
	if len(meshes) != 4 {
		t.Errorf("expected 4 leaf meshes, got %d", len(meshes))
	}
}

func TestRenderCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if _, err := run(t, "--config", coarseConfig(t), "render", "examples/two_spheres.csg", "-o", path); err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("image is %v, want 8x6", b)
	}
}

func TestBadConfigFlag(t *testing.T) {
	if _, err := run(t, "--config", "does-not-exist.yaml", "eval", "examples/two_spheres.csg", "0", "0", "0"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
