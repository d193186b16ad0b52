// Package csg holds the smooth constructive-solid-geometry tree for michelangelo.
// Primitives are combined by soft union and soft subtraction into a single
// signed distance function. Nodes live in an append-only arena and refer to
// each other by index; Linearize bakes the arena into a topologically sorted
// Flat form for stack-free evaluation on the render path.
package csg
