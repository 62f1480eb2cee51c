package client

// Node is the rendered representation of one entity — the client-side
// stand-in for a DOM subtree. Columns render as children of the board node,
// cards as children of their column node; child order is authoritative
// render order.
type Node struct {
	Kind string
	ID   int64

	parent   *Node
	children []*Node
}

// ChildIDs returns the ids of the node's children in render order.
func (n *Node) ChildIDs() []int64 {
	ids := make([]int64, len(n.children))
	for i, c := range n.children {
		ids[i] = c.ID
	}
	return ids
}

// detach removes the node from its current parent, if any.
func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}
