package schema

import (
	"fmt"

	"github.com/reoring/skemac"
)

// Graph is the arena owning every node of one logical schema. Nodes refer to
// each other by ID only, so sharing and cycles are plain lookups.
type Graph struct {
	nodes []*Node // index == ID; nodes[0] is unused
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: []*Node{nil}}
}

// Add creates a node and assigns the next identity.
func (g *Graph) Add(kind Kind, opts any, children ...ID) *Node {
	n := &Node{
		id:       ID(len(g.nodes)),
		kind:     kind,
		opts:     opts,
		children: append([]ID(nil), children...),
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Node returns the node with the given identity or nil.
func (g *Graph) Node(id ID) *Node {
	if id == 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) - 1 }

// Nodes returns every node in identity order.
func (g *Graph) Nodes() []*Node { return g.nodes[1:] }

// Owns reports whether n was created by g.
func (g *Graph) Owns(n *Node) bool {
	return n != nil && g.Node(n.id) == n
}

// Child returns the i-th child of n or nil.
func (g *Graph) Child(n *Node, i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return g.Node(n.children[i])
}

// Sole returns the only child of a wrapper node. It fails with
// ErrUnsupportedConstruct when the wrapper does not have exactly one child.
func (g *Graph) Sole(n *Node) (*Node, error) {
	if len(n.children) != 1 {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.id), Kind: n.kind.String(),
			Detail: fmt.Sprintf("wrapper has %d children, want 1", len(n.children))}
	}
	c := g.Node(n.children[0])
	if c == nil {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.id), Kind: n.kind.String(), Detail: "dangling child"}
	}
	return c, nil
}

// Load finalizes the subgraph reachable from root: lazy ref targets are
// resolved, unnamed nodes reached through an object property receive that
// property as their hint, OnLoad hooks fire once per node, and nodes are
// frozen. Loading an already loaded subgraph is a no-op.
//
// Hints are part of the frozen shape: a node keeps the hint of the walk that
// loaded it, and later walks from other roots never assign or change it.
// Derived names are therefore a function of construction order and the
// order in which roots are first loaded.
func (g *Graph) Load(root *Node) error {
	if !g.Owns(root) {
		return &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: "root does not belong to graph"}
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.loaded {
			continue
		}
		if err := g.loadOne(n); err != nil {
			return err
		}
		// push in reverse so children are visited in declaration order
		for i := len(n.children) - 1; i >= 0; i-- {
			if c := g.Node(n.children[i]); c != nil && !c.loaded {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

func (g *Graph) loadOne(n *Node) error {
	if n.lazy != nil && len(n.children) == 0 {
		t := n.lazy()
		if !g.Owns(t) {
			return &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.id), Kind: n.kind.String(), Detail: "lazy target not in graph"}
		}
		n.children = []ID{t.id}
	}
	for _, h := range n.onLoad {
		if err := h(g, n); err != nil {
			return fmt.Errorf("onLoad %s: %w", n, err)
		}
	}
	if n.kind == KindObject {
		keys := n.ObjectOptions().Keys
		for i, cid := range n.children {
			if i < len(keys) {
				g.hintChain(g.Node(cid), keys[i])
			}
		}
	}
	n.loaded = true
	return nil
}

// hintChain defaults the hint of n and of every wrapper below it, stopping
// after the first non-commutative node or at the first frozen one.
func (g *Graph) hintChain(n *Node, key string) {
	seen := map[ID]bool{}
	for n != nil && !seen[n.id] {
		seen[n.id] = true
		if n.loaded {
			return
		}
		if n.hint == "" {
			n.hint = key
		}
		if !n.kind.Commutative() || len(n.children) != 1 {
			return
		}
		n = g.Node(n.children[0])
	}
}

// Export fires the OnExport hooks of n for x, in attachment order.
func (g *Graph) Export(n *Node, x *Export) error {
	for _, h := range n.onExport {
		if err := h(g, n, x); err != nil {
			return fmt.Errorf("onExport %s: %w", n, err)
		}
	}
	return nil
}

// Generate fires OnGenerate hooks of n. It is called every time a synthetic
// value is constructed for n.
func (g *Graph) Generate(n *Node) error {
	for _, h := range n.onGenerate {
		if err := h(g, n); err != nil {
			return fmt.Errorf("onGenerate %s: %w", n, err)
		}
	}
	return nil
}
