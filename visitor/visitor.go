// Package visitor implements the closed-kind dispatch shared by every backend.
//
// A backend supplies a Table mapping each schema.Kind to a handler. The table
// is total over non-commutative kinds; optional, nullable and ref wrappers fall
// through to the Default entry, which by default renders the sole child and
// returns its result unchanged.
package visitor

import (
	"fmt"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/schema"
)

// Handler renders one node. c is the accumulator owned by one rendering pass.
type Handler[C, R any] func(n *schema.Node, c C) (R, error)

// Table is a per-backend dispatch table.
type Table[C, R any] struct {
	graph    *schema.Graph
	handlers [schema.KindCount]Handler[C, R]
	fallback Handler[C, R]
}

// New returns an empty table over g.
func New[C, R any](g *schema.Graph) *Table[C, R] {
	return &Table[C, R]{graph: g}
}

// Graph returns the graph the table dispatches over.
func (t *Table[C, R]) Graph() *schema.Graph { return t.graph }

// On registers h for k and returns the table for chaining.
func (t *Table[C, R]) On(k schema.Kind, h Handler[C, R]) *Table[C, R] {
	t.handlers[k] = h
	return t
}

// Default replaces the entry used for kinds without a handler.
func (t *Table[C, R]) Default(h Handler[C, R]) *Table[C, R] {
	t.fallback = h
	return t
}

// Render dispatches n. Kinds without a handler reach the default entry; with
// no default, commutative wrappers render their sole child and other kinds fail
// with ErrUnhandledNodeKind. Render never mutates node shape.
func (t *Table[C, R]) Render(n *schema.Node, c C) (R, error) {
	var zero R
	if n == nil {
		return zero, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: "nil node"}
	}
	if n.Kind() < schema.KindCount {
		if h := t.handlers[n.Kind()]; h != nil {
			return h(n, c)
		}
	}
	if t.fallback != nil {
		return t.fallback(n, c)
	}
	return t.Passthrough(n, c)
}

// Passthrough is the stock default: it renders the sole child of a
// commutative wrapper and fails for anything else.
func (t *Table[C, R]) Passthrough(n *schema.Node, c C) (R, error) {
	var zero R
	if !n.Commutative() {
		return zero, &skemac.Error{Err: skemac.ErrUnhandledNodeKind, Node: uint32(n.ID()), Kind: n.Kind().String()}
	}
	child, err := t.graph.Sole(n)
	if err != nil {
		return zero, err
	}
	return t.Render(child, c)
}

// RenderChildren renders every child of n in order.
func (t *Table[C, R]) RenderChildren(n *schema.Node, c C) ([]R, error) {
	out := make([]R, 0, len(n.Children()))
	for i, id := range n.Children() {
		child := t.graph.Node(id)
		if child == nil {
			return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
				Detail: fmt.Sprintf("dangling child %d", i)}
		}
		r, err := t.Render(child, c)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Missing lists non-commutative kinds with no handler. A complete backend
// returns an empty slice; tests use it to audit totality.
func (t *Table[C, R]) Missing() []schema.Kind {
	var out []schema.Kind
	for _, k := range schema.Kinds() {
		if !k.Commutative() && t.handlers[k] == nil {
			out = append(out, k)
		}
	}
	return out
}

// CheckTotal fails with ErrUnhandledNodeKind naming the first kind Missing
// reports.
func (t *Table[C, R]) CheckTotal() error {
	if m := t.Missing(); len(m) > 0 {
		return &skemac.Error{Err: skemac.ErrUnhandledNodeKind, Kind: m[0].String(),
			Detail: fmt.Sprintf("%d kinds without handler", len(m))}
	}
	return nil
}
