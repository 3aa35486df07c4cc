package dsl

import (
	"github.com/reoring/skemac/schema"
)

// ObjectBuilder collects ordered properties before creating an object node.
type ObjectBuilder struct {
	b       *Builder
	keys    []string
	nodes   []*schema.Node
	index   map[string]int
	unknown schema.UnknownPolicy
}

// Object starts an object with the passthrough unknown-key policy.
func (b *Builder) Object() *ObjectBuilder {
	return &ObjectBuilder{b: b, index: map[string]int{}}
}

// Field declares a property. Redeclaring a key replaces its node in place.
func (o *ObjectBuilder) Field(key string, n *schema.Node) *ObjectBuilder {
	if i, ok := o.index[key]; ok {
		o.nodes[i] = n
		return o
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.nodes = append(o.nodes, n)
	return o
}

// Optional declares a property wrapped in an optional node.
func (o *ObjectBuilder) Optional(key string, n *schema.Node) *ObjectBuilder {
	return o.Field(key, o.b.Optional(n))
}

// Strict rejects keys outside the declared properties.
func (o *ObjectBuilder) Strict() *ObjectBuilder { o.unknown = schema.UnknownStrict; return o }

// Strip accepts and drops keys outside the declared properties.
func (o *ObjectBuilder) Strip() *ObjectBuilder { o.unknown = schema.UnknownStrip; return o }

// Passthrough accepts and keeps keys outside the declared properties.
func (o *ObjectBuilder) Passthrough() *ObjectBuilder {
	o.unknown = schema.UnknownPassthrough
	return o
}

// Build creates the object node.
func (o *ObjectBuilder) Build(opts ...Option) *schema.Node {
	keys := append([]string(nil), o.keys...)
	return o.b.add(schema.KindObject, schema.ObjectOptions{Keys: keys, Unknown: o.unknown}, o.nodes, opts)
}
