package csg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAttachPoint is returned when an edit targets a node that is
	// neither a leaf nor the root, or an index outside the arena.
	ErrInvalidAttachPoint = errors.New("invalid attach point")

	// ErrUnsupportedPrimitive is returned when a primitive without a distance
	// function (box, none) would have to be evaluated.
	ErrUnsupportedPrimitive = errors.New("unsupported primitive")

	// ErrInvalidOperation is returned for blend/softness values out of range.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrKindMismatch is returned when a payload edit would turn a leaf into
	// an operation or the reverse without changing the children.
	ErrKindMismatch = errors.New("payload does not match node kind")

	// ErrMalformedTree is returned when the arena does not form a binary tree
	// rooted at the root index.
	ErrMalformedTree = errors.New("malformed tree")
)

// AttachError describes a rejected AddEdit call.
type AttachError struct {
	Index  int
	Reason string
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("%v: node %d %s", ErrInvalidAttachPoint, e.Index, e.Reason)
}

func (e *AttachError) Unwrap() error { return ErrInvalidAttachPoint }
