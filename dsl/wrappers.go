package dsl

import (
	"github.com/reoring/skemac/schema"
)

// Optional marks n as possibly absent.
func (b *Builder) Optional(n *schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindOptional, nil, []*schema.Node{n}, opts)
}

// Nullable marks n as accepting null.
func (b *Builder) Nullable(n *schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindNullable, nil, []*schema.Node{n}, opts)
}

// Ref returns a shared reference to target. The target keeps its owner; every
// ref to the same target renders as one reused definition.
func (b *Builder) Ref(target *schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindRef, nil, []*schema.Node{target}, opts)
}

// Lazy returns a reference whose target is produced on Load. It allows a
// definition to refer to itself before it has been built.
func (b *Builder) Lazy(fn func() *schema.Node, opts ...Option) *schema.Node {
	n := b.add(schema.KindRef, nil, nil, nil)
	n.SetLazy(fn)
	return Apply(n, opts...)
}

// Validator marks n as a standalone compiled validator.
func (b *Builder) Validator(n *schema.Node, vo schema.ValidatorOptions, opts ...Option) *schema.Node {
	return b.add(schema.KindValidator, vo, []*schema.Node{n}, opts)
}

// Custom embeds a raw schema fragment.
func (b *Builder) Custom(fragment map[string]any, opts ...Option) *schema.Node {
	return b.add(schema.KindCustom, schema.CustomOptions{Schema: fragment}, nil, opts)
}

// Remote embeds a document resolved by a fetcher at render time.
func (b *Builder) Remote(uri string, opts ...Option) *schema.Node {
	return b.add(schema.KindCustom, schema.CustomOptions{Remote: uri}, nil, opts)
}
