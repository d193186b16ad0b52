package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chazu/michelangelo/pkg/engine"
	"github.com/chazu/michelangelo/pkg/kernel"
	"github.com/chazu/michelangelo/pkg/kernel/sdfx"
	"github.com/chazu/michelangelo/pkg/raymarch"
	"github.com/chazu/michelangelo/pkg/scene"
	"github.com/chazu/michelangelo/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to leaves.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// ErrNoScene is returned by queries made before any scene loaded.
var ErrNoScene = errors.New("no scene loaded")

// App is the editor backend. It keeps the last scene that evaluated cleanly
// so slider edits can be applied to it.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	cfg    Config

	mu    sync.Mutex
	scene *scene.Scene
}

// MeshData is the JSON-serializable mesh format sent to a viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// NodeInfo describes one tree node for an inspector. Values holds x, y, z,
// radius for a leaf and blend, softness for an operation.
type NodeInfo struct {
	Index     int       `json:"index"`
	FlatIndex int       `json:"flatIndex"`
	Parent    int       `json:"parent"`
	Children  []int     `json:"children,omitempty"`
	Kind      string    `json:"kind"`
	Values    []float32 `json:"values"`
}

// EvalResult is the full result of an evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Nodes    []NodeInfo      `json:"nodes"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(cfg Config) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: &sdfx.SdfxKernel{Cells: cfg.Mesh.Cells},
		cfg:    cfg,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
		Nodes:    []NodeInfo{},
	}
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	s, errs := a.evalLisp(source)
	return a.finish(s, errs)
}

// EvaluateScene takes source in the line format and returns mesh data +
// errors.
func (a *App) EvaluateScene(source string) EvalResult {
	s, errs := a.evalScene("scene", source)
	return a.finish(s, errs)
}

// UpdateNode overwrites the payload of tree node index in the current scene
// and re-meshes. values are x, y, z, radius for a leaf and blend, softness
// for an operation. A rejected update leaves the scene unchanged.
func (a *App) UpdateNode(index int, values []float32) EvalResult {
	s, err := a.updateScene(index, values)
	if err != nil {
		log.Printf("UpdateNode %d: %v", index, err)
		return a.finish(nil, []EvalErrorData{{Message: err.Error()}})
	}
	return a.report(s)
}

// updateScene edits a clone of the current tree and installs the result. The
// lock is held from read to install so concurrent updates all land.
func (a *App) updateScene(index int, values []float32) (*scene.Scene, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		return nil, ErrNoScene
	}
	t := a.scene.Tree.Clone()
	if err := update(t, index, values); err != nil {
		return nil, err
	}
	s, err := scene.Bake(t)
	if err != nil {
		return nil, err
	}
	a.scene = s
	return s, nil
}

func update(t *csg.Tree, index int, values []float32) error {
	n, ok := t.Node(index)
	if !ok {
		return fmt.Errorf("update node: %w: index %d out of range", csg.ErrMalformedTree, index)
	}
	switch data := n.Data.(type) {
	case csg.Primitive:
		if len(values) != csg.MaxParams {
			return fmt.Errorf("update node %d: want %d values for a leaf, got %d", index, csg.MaxParams, len(values))
		}
		p := csg.Primitive{Kind: data.Kind}
		copy(p.Params[:], values)
		return t.SetPrimitive(index, p)
	case csg.Operation:
		if len(values) != 2 {
			return fmt.Errorf("update node %d: want 2 values for an operation, got %d", index, len(values))
		}
		return t.SetOperation(index, csg.Operation{Blend: values[0], Softness: values[1]})
	default:
		return fmt.Errorf("update node %d: %w: payload %T", index, csg.ErrMalformedTree, n.Data)
	}
}

// Open loads a scene file without meshing it. The format follows the
// extension: .zy and .lisp are Lisp scripts, anything else is the line
// format.
func (a *App) Open(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s *scene.Scene
	var errs []EvalErrorData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zy", ".lisp":
		s, errs = a.evalLisp(string(src))
	default:
		s, errs = a.evalScene(path, string(src))
	}
	if len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = engine.EvalError{Line: e.Line, Col: e.Col, Message: e.Message}
		}
		return fmt.Errorf("%s: %w", path, errors.Join(joined...))
	}
	a.setScene(s)
	return nil
}

// Scene returns the current scene, or nil.
func (a *App) Scene() *scene.Scene {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scene
}

// Distance evaluates the current scene at p.
func (a *App) Distance(p csg.Vec3) (float32, error) {
	s := a.Scene()
	if s == nil {
		return 0, ErrNoScene
	}
	return s.Flat.Eval(p), nil
}

// Meshes tessellates the current scene.
func (a *App) Meshes() ([]MeshData, error) {
	s := a.Scene()
	if s == nil {
		return nil, ErrNoScene
	}
	return a.meshes(s)
}

func (a *App) meshes(s *scene.Scene) ([]MeshData, error) {
	meshes, err := tessellate.Tessellate(s.Flat, a.kernel, tessellate.Options{PerLeaf: a.cfg.Mesh.PerLeaf})
	if err != nil {
		return nil, err
	}
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return out, nil
}

// Preview renders the current scene with the configured camera.
func (a *App) Preview(ctx context.Context) (*image.RGBA, error) {
	s := a.Scene()
	if s == nil {
		return nil, ErrNoScene
	}
	return raymarch.Render(ctx, s.Flat, a.cfg.Render.Params())
}

func (a *App) setScene(s *scene.Scene) {
	a.mu.Lock()
	a.scene = s
	a.mu.Unlock()
}

func (a *App) evalLisp(source string) (*scene.Scene, []EvalErrorData) {
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		return nil, []EvalErrorData{{Message: err.Error()}}
	}
	if len(evalErrs) > 0 {
		out := make([]EvalErrorData, len(evalErrs))
		for i, e := range evalErrs {
			out[i] = EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
		}
		return nil, out
	}
	return s, nil
}

func (a *App) evalScene(name, source string) (*scene.Scene, []EvalErrorData) {
	s, err := scene.ParseString(name, source)
	if err == nil {
		return s, nil
	}
	var se *scene.ScriptError
	if errors.As(err, &se) {
		msg := se.Msg
		if se.Field != "" {
			msg = se.Field + ": " + msg
		}
		return nil, []EvalErrorData{{Line: se.Line, Message: msg}}
	}
	return nil, []EvalErrorData{{Message: err.Error()}}
}

// finish stores a good scene and fills in meshes, warnings and nodes.
func (a *App) finish(s *scene.Scene, errs []EvalErrorData) EvalResult {
	result := newResult()
	if len(errs) > 0 || s == nil {
		result.Errors = append(result.Errors, errs...)
		return result
	}
	a.setScene(s)
	return a.report(s)
}

// report validates and meshes s, which is already the current scene.
func (a *App) report(s *scene.Scene) EvalResult {
	result := newResult()
	for _, v := range csg.Validate(s.Tree) {
		if v.Severity == csg.SeverityWarning {
			result.Warnings = append(result.Warnings, EvalErrorData{Message: v.Error()})
		}
	}
	result.Nodes = nodeInfo(s)

	meshes, err := a.meshes(s)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}
	result.Meshes = append(result.Meshes, meshes...)
	return result
}

func nodeInfo(s *scene.Scene) []NodeInfo {
	nodes := s.Tree.Nodes()
	out := make([]NodeInfo, 0, len(nodes))
	for i, n := range nodes {
		info := NodeInfo{
			Index:     i,
			FlatIndex: s.Flat.Index(i),
			Parent:    n.Parent,
		}
		switch data := n.Data.(type) {
		case csg.Primitive:
			info.Kind = data.Kind.String()
			info.Values = append([]float32(nil), data.Params[:]...)
		case csg.Operation:
			info.Kind = "union"
			if data.IsSubtraction() {
				info.Kind = "subtract"
			}
			info.Children = []int{n.Children[0], n.Children[1]}
			info.Values = []float32{data.Blend, data.Softness}
		}
		out = append(out, info)
	}
	return out
}
