package dsl

import (
	"github.com/reoring/skemac/schema"
)

// Union returns a node matching any of the variants.
func (b *Builder) Union(variants []*schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindUnion, schema.UnionOptions{}, variants, opts)
}

// DiscriminatedUnion returns a union whose branch is selected by the constant
// value of property.
func (b *Builder) DiscriminatedUnion(property string, variants []*schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindUnion, schema.UnionOptions{Discriminator: property}, variants, opts)
}

// Intersection returns a node matching all parts.
func (b *Builder) Intersection(parts []*schema.Node, opts ...Option) *schema.Node {
	return b.add(schema.KindIntersection, nil, parts, opts)
}

// Enum returns a node matching one of values.
func (b *Builder) Enum(values []any, opts ...Option) *schema.Node {
	return b.add(schema.KindEnum, schema.EnumOptions{Values: append([]any(nil), values...)}, nil, opts)
}

// Const returns a node matching exactly v.
func (b *Builder) Const(v any, opts ...Option) *schema.Node {
	return b.add(schema.KindConst, schema.ConstOptions{Value: v}, nil, opts)
}
