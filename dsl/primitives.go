package dsl

import (
	"github.com/reoring/skemac/schema"
)

// String returns a string node.
func (b *Builder) String(opts ...Option) *schema.Node {
	return b.add(schema.KindString, schema.StringOptions{}, nil, opts)
}

// Number returns a number node.
func (b *Builder) Number(opts ...Option) *schema.Node {
	return b.add(schema.KindNumber, schema.NumberOptions{}, nil, opts)
}

// Integer returns an integer node.
func (b *Builder) Integer(opts ...Option) *schema.Node {
	return b.add(schema.KindInteger, schema.NumberOptions{}, nil, opts)
}

// Boolean returns a boolean node.
func (b *Builder) Boolean(opts ...Option) *schema.Node {
	return b.add(schema.KindBoolean, nil, nil, opts)
}

// Null returns a node accepting only null.
func (b *Builder) Null(opts ...Option) *schema.Node {
	return b.add(schema.KindNull, nil, nil, opts)
}

// Unknown returns a node accepting any value.
func (b *Builder) Unknown(opts ...Option) *schema.Node {
	return b.add(schema.KindUnknown, nil, nil, opts)
}

// MinLength sets the minimum string length.
func MinLength(v int) Option {
	return func(n *schema.Node) { update(n, func(o *schema.StringOptions) { o.MinLength = &v }) }
}

// MaxLength sets the maximum string length.
func MaxLength(v int) Option {
	return func(n *schema.Node) { update(n, func(o *schema.StringOptions) { o.MaxLength = &v }) }
}

// Pattern sets the regular expression a string must match.
func Pattern(p string) Option {
	return func(n *schema.Node) { update(n, func(o *schema.StringOptions) { o.Pattern = p }) }
}

// Format sets the string format (date-time, email, uuid, ...).
func Format(f string) Option {
	return func(n *schema.Node) { update(n, func(o *schema.StringOptions) { o.Format = f }) }
}

// Minimum sets the inclusive lower bound of a number or integer.
func Minimum(v float64) Option {
	return func(n *schema.Node) { update(n, func(o *schema.NumberOptions) { o.Minimum = &v }) }
}

// Maximum sets the inclusive upper bound of a number or integer.
func Maximum(v float64) Option {
	return func(n *schema.Node) { update(n, func(o *schema.NumberOptions) { o.Maximum = &v }) }
}

// ExclusiveMinimum sets the exclusive lower bound.
func ExclusiveMinimum(v float64) Option {
	return func(n *schema.Node) { update(n, func(o *schema.NumberOptions) { o.ExclusiveMinimum = &v }) }
}

// ExclusiveMaximum sets the exclusive upper bound.
func ExclusiveMaximum(v float64) Option {
	return func(n *schema.Node) { update(n, func(o *schema.NumberOptions) { o.ExclusiveMaximum = &v }) }
}

// MultipleOf requires the value to be a multiple of v.
func MultipleOf(v float64) Option {
	return func(n *schema.Node) { update(n, func(o *schema.NumberOptions) { o.MultipleOf = &v }) }
}
