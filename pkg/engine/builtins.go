package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/michelangelo/pkg/csg"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: add-sphere -> add_sphere
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a csg.Vec3.
type sexpVec3 struct {
	vec csg.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPrimitive wraps a csg.Primitive returned from `sphere` or `box`.
type sexpPrimitive struct {
	prim csg.Primitive
}

func (p *sexpPrimitive) SexpString(ps *zygo.PrintState) string {
	return "(" + p.prim.String() + ")"
}
func (p *sexpPrimitive) Type() *zygo.RegisteredType { return nil }

// sexpOperation wraps a csg.Operation returned from `op`.
type sexpOperation struct {
	op csg.Operation
}

func (o *sexpOperation) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(op :blend %g :softness %g)", o.op.Blend, o.op.Softness)
}
func (o *sexpOperation) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// float returns keyword key as a float32, or def when it is absent.
func (a kwArgs) float(key string, def float32) (float32, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat32(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

// toInt extracts an integer node index.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (csg.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return csg.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toPrimitive(s zygo.Sexp) (csg.Primitive, error) {
	if p, ok := s.(*sexpPrimitive); ok {
		return p.prim, nil
	}
	return csg.Primitive{}, fmt.Errorf("expected primitive, got %T (%s)", s, s.SexpString(nil))
}

func toOperation(s zygo.Sexp) (csg.Operation, error) {
	if o, ok := s.(*sexpOperation); ok {
		return o.op, nil
	}
	return csg.Operation{}, fmt.Errorf("expected op, got %T (%s)", s, s.SexpString(nil))
}

// shape reads a center and a size either as four positional numbers
// (x y z size) or as :center and the given size keyword.
func shape(pa kwArgs, sizeKey string) (csg.Vec3, float32, error) {
	if len(pa.positional) > 0 {
		if len(pa.positional) != 4 {
			return csg.Vec3{}, 0, fmt.Errorf("expected x y z %s, got %d arguments", sizeKey, len(pa.positional))
		}
		var f [4]float32
		for i, arg := range pa.positional {
			v, err := toFloat32(arg)
			if err != nil {
				return csg.Vec3{}, 0, fmt.Errorf("argument %d: %w", i+1, err)
			}
			f[i] = v
		}
		return csg.Vec3{X: f[0], Y: f[1], Z: f[2]}, f[3], nil
	}

	var center csg.Vec3
	if v, ok := pa.kw["center"]; ok {
		c, err := toVec3(v)
		if err != nil {
			return csg.Vec3{}, 0, fmt.Errorf("center: %w", err)
		}
		center = c
	}
	size, err := pa.float(sizeKey, 1)
	if err != nil {
		return csg.Vec3{}, 0, err
	}
	return center, size, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// Every edit builtin appends to t and returns the new leaf index.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, t *csg.Tree) {
	// attach resolves a parent argument; -1 names the current root.
	attach := func(s zygo.Sexp) (int, error) {
		i, err := toInt(s)
		if err != nil {
			return 0, err
		}
		if i == -1 {
			return t.Root(), nil
		}
		return i, nil
	}
	index := func(i int) zygo.Sexp { return &zygo.SexpInt{Val: int64(i)} }

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var f [3]float32
		for i, axis := range []string{"x", "y", "z"} {
			v, err := toFloat32(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			f[i] = v
		}
		return &sexpVec3{vec: csg.Vec3{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere :center (vec3 0 0 0) :radius 1) or (sphere 0 0 0 1)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c, r, err := shape(parseArgs(args), "radius")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpPrimitive{prim: csg.Sphere(c, r)}, nil
	})

	// -----------------------------------------------------------------------
	// (box :center (vec3 0 0 0) :size 1) or (box 0 0 0 1)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c, s, err := shape(parseArgs(args), "size")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpPrimitive{prim: csg.Box(c, s)}, nil
	})

	// -----------------------------------------------------------------------
	// (op :blend -1 :softness 0.2)
	// -----------------------------------------------------------------------
	env.AddFunction("op", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		blend, err := pa.float("blend", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("op: %w", err)
		}
		softness, err := pa.float("softness", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("op: %w", err)
		}
		op := csg.Operation{Blend: blend, Softness: softness}
		if err := op.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("op: %w", err)
		}
		return &sexpOperation{op: op}, nil
	})

	// -----------------------------------------------------------------------
	// (root)
	// -----------------------------------------------------------------------
	env.AddFunction("root", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("root takes no arguments, got %d", len(args))
		}
		return index(t.Root()), nil
	})

	// -----------------------------------------------------------------------
	// (add-edit -1 (op :blend 1) (sphere 0 0 0 1))
	// -----------------------------------------------------------------------
	env.AddFunction("add_edit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("add-edit requires parent, op and primitive, got %d arguments", len(args))
		}
		parent, err := attach(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-edit: parent: %w", err)
		}
		op, err := toOperation(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-edit: %w", err)
		}
		prim, err := toPrimitive(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-edit: %w", err)
		}
		leaf, err := t.AddEdit(parent, op, prim)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-edit: %w", err)
		}
		return index(leaf), nil
	})

	// -----------------------------------------------------------------------
	// (add-sphere -1 :softness 0.2 :center (vec3 1 0 0) :radius 0.5)
	// (subtract-sphere 3 :softness 0.1 :center (vec3 1 0 0) :radius 0.2)
	// -----------------------------------------------------------------------
	sphereEdit := func(label string, edit func(parent int, softness float32, center csg.Vec3, radius float32) (int, error)) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a parent index", label)
			}
			parent, err := attach(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: parent: %w", label, err)
			}
			pa.positional = nil
			center, radius, err := shape(pa, "radius")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			softness, err := pa.float("softness", 0)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			leaf, err := edit(parent, softness, center, radius)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			return index(leaf), nil
		}
	}
	env.AddFunction("add_sphere", sphereEdit("add-sphere", t.AddSphere))
	env.AddFunction("subtract_sphere", sphereEdit("subtract-sphere", t.SubtractSphere))
}
