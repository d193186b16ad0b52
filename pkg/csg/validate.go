package csg

import "fmt"

// ValidationSeverity indicates whether a validation finding prevents baking
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks linearization
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Index    int                // which node has the problem (NoIndex if tree-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Index == NoIndex {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %d: %s", e.Severity, e.Index, e.Message)
}

// Validate runs all structural checks on t and returns every finding. When
// the structure is sound it also runs the geometric checks, which only ever
// warn. A tree with no error-severity findings can be linearized. Trees built
// only through AddEdit never produce errors other than for box leaves.
// This function is read-only.
func Validate(t *Tree) []ValidationError {
	if len(t.nodes) == 0 {
		if t.root != NoIndex {
			return []ValidationError{{
				Index:    NoIndex,
				Message:  fmt.Sprintf("empty tree has root %d", t.root),
				Severity: SeverityError,
			}}
		}
		return nil
	}

	var errs []ValidationError
	errs = append(errs, validateRoot(t)...)
	errs = append(errs, validateArity(t)...)
	errs = append(errs, validatePayloads(t)...)
	errs = append(errs, validateCycles(t)...)
	errs = append(errs, validateReachability(t)...)
	errs = append(errs, validateParents(t)...)
	if !HasErrors(errs) {
		errs = append(errs, validateGeometry(t)...)
	}
	return errs
}

// HasErrors reports whether errs holds at least one error-severity finding.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (t *Tree) inRange(i int) bool {
	return i >= 0 && i < len(t.nodes)
}

func validateRoot(t *Tree) []ValidationError {
	if t.inRange(t.root) {
		return nil
	}
	return []ValidationError{{
		Index:    NoIndex,
		Message:  fmt.Sprintf("root %d out of range [0, %d)", t.root, len(t.nodes)),
		Severity: SeverityError,
	}}
}

// validateArity checks that every node has either no children or two
// in-range children.
func validateArity(t *Tree) []ValidationError {
	var errs []ValidationError
	for i, n := range t.nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Children[0] == NoIndex || n.Children[1] == NoIndex {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("exactly one child missing: children %v", n.Children),
				Severity: SeverityError,
			})
			continue
		}
		for _, c := range n.Children {
			if !t.inRange(c) {
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  fmt.Sprintf("child reference %d does not exist", c),
					Severity: SeverityError,
				})
			}
		}
		if n.Children[0] == n.Children[1] {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("both children reference node %d", n.Children[0]),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validatePayloads checks that leaves hold evaluable primitives and internal
// nodes hold in-range operations.
func validatePayloads(t *Tree) []ValidationError {
	var errs []ValidationError
	for i, n := range t.nodes {
		switch d := n.Data.(type) {
		case Primitive:
			if !n.IsLeaf() {
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  "primitive payload on an internal node",
					Severity: SeverityError,
				})
			}
			if d.Kind != PrimSphere {
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  fmt.Sprintf("primitive %s has no distance function", d.Kind),
					Severity: SeverityError,
				})
			}
		case Operation:
			if n.IsLeaf() {
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  "operation payload on a leaf",
					Severity: SeverityError,
				})
			}
			if err := d.Validate(); err != nil {
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  err.Error(),
					Severity: SeverityError,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("unknown payload %T", n.Data),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateCycles checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// A gray node met again closes a cycle.
func validateCycles(t *Tree) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(t.nodes))
	var errs []ValidationError

	var visit func(i int) bool // returns true if cycle found
	visit = func(i int) bool {
		switch color[i] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("cycle detected: node %d is part of a cycle", i),
				Severity: SeverityError,
			})
			return true
		}

		color[i] = gray
		n := t.nodes[i]
		if !n.IsLeaf() {
			for _, c := range n.Children {
				// Dangling references are reported by validateArity.
				if t.inRange(c) && visit(c) {
					return true
				}
			}
		}
		color[i] = black
		return false
	}

	for i := range t.nodes {
		if color[i] == white && visit(i) {
			break
		}
	}
	return errs
}

// validateReachability reports nodes reached by more than one parent (the
// arena must form a tree, not a DAG) and warns about orphans.
func validateReachability(t *Tree) []ValidationError {
	if !t.inRange(t.root) {
		return nil
	}

	var errs []ValidationError
	seen := make([]bool, len(t.nodes))
	seen[t.root] = true
	queue := []int{t.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := t.nodes[cur]
		if n.IsLeaf() {
			continue
		}
		for _, c := range n.Children {
			if !t.inRange(c) {
				continue
			}
			if seen[c] {
				errs = append(errs, ValidationError{
					Index:    c,
					Message:  fmt.Sprintf("node is shared: reached again from node %d", cur),
					Severity: SeverityError,
				})
				continue
			}
			seen[c] = true
			queue = append(queue, c)
		}
	}

	for i, ok := range seen {
		if !ok {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  "node is not reachable from the root (orphan)",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateParents warns when a back-reference disagrees with the children
// links. Parents are advisory, so this never blocks.
func validateParents(t *Tree) []ValidationError {
	var errs []ValidationError
	if t.inRange(t.root) && t.nodes[t.root].Parent != NoIndex {
		errs = append(errs, ValidationError{
			Index:    t.root,
			Message:  fmt.Sprintf("root has parent %d", t.nodes[t.root].Parent),
			Severity: SeverityWarning,
		})
	}
	for i, n := range t.nodes {
		if n.IsLeaf() {
			continue
		}
		for _, c := range n.Children {
			if t.inRange(c) && t.nodes[c].Parent != i {
				errs = append(errs, ValidationError{
					Index:    c,
					Message:  fmt.Sprintf("parent is %d, but node %d lists it as a child", t.nodes[c].Parent, i),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}
