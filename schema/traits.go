package schema

// Chain walks the unbroken run of commutative wrappers starting at n and
// returns the wrappers in order plus the first non-commutative node. Ref
// wrappers are followed. end is nil when the chain is broken (a wrapper
// without a child) or loops back on itself.
func (g *Graph) Chain(n *Node) (wrappers []*Node, end *Node) {
	seen := map[ID]bool{}
	for n != nil {
		if !n.kind.Commutative() {
			return wrappers, n
		}
		if seen[n.id] || len(n.children) != 1 {
			return wrappers, nil
		}
		seen[n.id] = true
		wrappers = append(wrappers, n)
		n = g.Node(n.children[0])
	}
	return wrappers, nil
}

// LocalChain is Chain stopped at the first ref wrapper: end is either that ref
// node or the first non-commutative node. Backends that emit references use it
// so a ref target's own wrappers are rendered with the target.
func (g *Graph) LocalChain(n *Node) (wrappers []*Node, end *Node) {
	for n != nil {
		if !n.kind.Commutative() || n.kind == KindRef {
			return wrappers, n
		}
		if len(n.children) != 1 {
			return wrappers, nil
		}
		wrappers = append(wrappers, n)
		n = g.Node(n.children[0])
	}
	return wrappers, nil
}

// Unwrap returns the first non-commutative node reached from n, or nil.
func (g *Graph) Unwrap(n *Node) *Node {
	_, end := g.Chain(n)
	return end
}

// IsUltimatelyNullable reports whether any wrapper in the chain from n is
// nullable, regardless of composition order and depth.
func (g *Graph) IsUltimatelyNullable(n *Node) bool {
	return g.chainHas(n, KindNullable)
}

// IsUltimatelyOptional reports whether any wrapper in the chain from n is
// optional, regardless of composition order and depth.
func (g *Graph) IsUltimatelyOptional(n *Node) bool {
	return g.chainHas(n, KindOptional)
}

func (g *Graph) chainHas(n *Node, k Kind) bool {
	ws, _ := g.Chain(n)
	for _, w := range ws {
		if w.kind == k {
			return true
		}
	}
	return false
}

// LocalHas reports whether the local chain (stopping at refs) contains k.
func (g *Graph) LocalHas(n *Node, k Kind) bool {
	ws, _ := g.LocalChain(n)
	for _, w := range ws {
		if w.kind == k {
			return true
		}
	}
	return false
}
