package csg

// NoIndex marks a missing child or parent.
const NoIndex = -1

// leafChildren is the children pair of every leaf node.
var leafChildren = [2]int{NoIndex, NoIndex}

// Node is a single slot of the arena. Data is a Primitive for leaves and an
// Operation for internal nodes.
type Node struct {
	Parent   int      `json:"parent"`
	Children [2]int   `json:"children"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Children == leafChildren
}

func newLeaf(parent int, p Primitive) Node {
	return Node{Parent: parent, Children: leafChildren, Data: p}
}
