// Package scene reads and writes the line-oriented scene format:
//
//	# parent blend softness primitive p0 p1 p2 p3
//	-1 1 0   sphere 0 0 0 1
//	-1 1 0.2 sphere 1.5 0 0 1
//	 1 -1 0  sphere 1.5 0.5 0 0.4
//
// Each record is one AddEdit call against the tree built so far. A parent of
// -1 attaches at the current root. Text after '#' is ignored. Parsing stops at
// the first malformed record, and the finished tree is linearized before it is
// returned.
package scene

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/michelangelo/pkg/csg"
)

// ErrMalformedScript is wrapped by every syntax error.
var ErrMalformedScript = errors.New("malformed script")

// ScriptError reports a rejected record with its position.
type ScriptError struct {
	Name  string // source name, e.g. the file path
	Line  int    // 1-based
	Field string // which field was bad, empty for whole-record problems
	Msg   string
	Err   error // ErrMalformedScript or the csg error of a rejected edit
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString(e.Name)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d: ", e.Line)
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Scene is a parsed tree together with its linearized form.
type Scene struct {
	Tree *csg.Tree
	Flat *csg.Flat
}

// Bake linearizes the tree into a Scene.
func Bake(t *csg.Tree) (*Scene, error) {
	f, err := csg.Linearize(t)
	if err != nil {
		return nil, err
	}
	return &Scene{Tree: t, Flat: f}, nil
}

// primitiveNames maps record names to kinds. "cube" is the historical name
// of the box primitive.
var primitiveNames = map[string]csg.PrimitiveKind{
	"sphere": csg.PrimSphere,
	"box":    csg.PrimBox,
	"cube":   csg.PrimBox,
}

// MaxLineLength is the longest record Parse accepts, in bytes.
const MaxLineLength = 1 << 20

var paramFields = [csg.MaxParams]string{"p0", "p1", "p2", "p3"}

// Parse reads records from r. name is used in error messages only.
func Parse(name string, r io.Reader) (*Scene, error) {
	t := csg.New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), MaxLineLength)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := parseRecord(t, fields); err != nil {
			err.Name = name
			err.Line = line
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &ScriptError{
				Name: name,
				Line: line + 1,
				Msg:  fmt.Sprintf("line longer than %d bytes", MaxLineLength),
				Err:  ErrMalformedScript,
			}
		}
		return nil, fmt.Errorf("scene %s: read: %w", name, err)
	}

	s, err := Bake(t)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}
	return s, nil
}

// ParseString parses a scene held in memory.
func ParseString(name, src string) (*Scene, error) {
	return Parse(name, strings.NewReader(src))
}

// Load parses the scene file at path.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

func parseRecord(t *csg.Tree, fields []string) *ScriptError {
	const minFields = 4 + csg.MaxParams
	if len(fields) < minFields {
		return malformed("", fmt.Sprintf("expected %d fields, got %d", minFields, len(fields)))
	}
	if len(fields) > minFields {
		return malformed("", fmt.Sprintf("unexpected trailing field %q", fields[minFields]))
	}

	parent, err := strconv.Atoi(fields[0])
	if err != nil {
		return malformed("parent", fmt.Sprintf("expected integer, got %q", fields[0]))
	}
	if parent == -1 {
		parent = t.Root()
	}

	var op csg.Operation
	if op.Blend, err = parseFloat(fields[1]); err != nil {
		return malformed("blend", err.Error())
	}
	if op.Softness, err = parseFloat(fields[2]); err != nil {
		return malformed("softness", err.Error())
	}

	kind, ok := primitiveNames[fields[3]]
	if !ok {
		return malformed("primitive", fmt.Sprintf("unknown primitive %q", fields[3]))
	}
	prim := csg.Primitive{Kind: kind}
	for i := range prim.Params {
		if prim.Params[i], err = parseFloat(fields[4+i]); err != nil {
			return malformed(paramFields[i], err.Error())
		}
	}

	if _, err := t.AddEdit(parent, op, prim); err != nil {
		return &ScriptError{Msg: err.Error(), Err: err}
	}
	return nil
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected finite number, got %q", s)
	}
	return float32(f), nil
}

func malformed(field, msg string) *ScriptError {
	return &ScriptError{Field: field, Msg: msg, Err: ErrMalformedScript}
}
