package dsl

import (
	"github.com/reoring/skemac/schema"
)

// Array returns an array of item.
func (b *Builder) Array(item *schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindArray, schema.ArrayOptions{}, []*schema.Node{item}, opts)
}

// Tuple returns a fixed-length positional array.
func (b *Builder) Tuple(items []*schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindTuple, schema.TupleOptions{}, items, opts)
}

// TupleRest returns a positional array whose items past len(items) match rest.
func (b *Builder) TupleRest(items []*schema.Node, rest *schema.Node, opts ...Option) *schema.Node {
	all := append(append([]*schema.Node(nil), items...), rest)
	return b.add(schema.KindTuple, schema.TupleOptions{Rest: true}, all, opts)
}

// Record returns an object with arbitrary string keys and uniform values.
func (b *Builder) Record(value *schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindRecord, schema.RecordOptions{}, []*schema.Node{value}, opts)
}

// MinItems sets the minimum array length.
func MinItems(v int) Option {
	return func(n *schema.Node) { update(n, func(o *schema.ArrayOptions) { o.MinItems = &v }) }
}

// MaxItems sets the maximum array length.
func MaxItems(v int) Option {
	return func(n *schema.Node) { update(n, func(o *schema.ArrayOptions) { o.MaxItems = &v }) }
}

// UniqueItems requires array items to be distinct.
func UniqueItems() Option {
	return func(n *schema.Node) { update(n, func(o *schema.ArrayOptions) { o.Unique = true }) }
}

// KeyPattern constrains record keys.
func KeyPattern(p string) Option {
	return func(n *schema.Node) { update(n, func(o *schema.RecordOptions) { o.KeyPattern = p }) }
}
