package dsl

import (
	"github.com/reoring/skemac/schema"
)

// Builder adds nodes to one graph.
type Builder struct {
	g *schema.Graph
}

// New returns a builder over a fresh graph.
func New() *Builder { return &Builder{g: schema.New()} }

// On returns a builder adding nodes to g.
func On(g *schema.Graph) *Builder { return &Builder{g: g} }

// Graph returns the underlying graph.
func (b *Builder) Graph() *schema.Graph { return b.g }

// Option configures a node at construction.
type Option func(n *schema.Node)

func (b *Builder) add(kind schema.Kind, opts any, children []*schema.Node, options []Option) *schema.Node {
	ids := make([]schema.ID, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID())
	}
	n := b.g.Add(kind, opts, ids...)
	Apply(n, options...)
	return n
}

// Apply runs options against an existing, not yet loaded node.
func Apply(n *schema.Node, options ...Option) *schema.Node {
	for _, o := range options {
		if o != nil {
			o(n)
		}
	}
	return n
}

// Named sets the human name, which takes precedence in symbol naming.
func Named(name string) Option { return func(n *schema.Node) { n.SetName(name) } }

// Title sets the title annotation.
func Title(s string) Option {
	return func(n *schema.Node) { n.UpdateMeta(func(m *schema.Meta) { m.Title = s }) }
}

// Describe sets the description annotation.
func Describe(s string) Option {
	return func(n *schema.Node) { n.UpdateMeta(func(m *schema.Meta) { m.Description = s }) }
}

// Default sets the default value (nil is a valid default).
func Default(v any) Option {
	return func(n *schema.Node) {
		n.UpdateMeta(func(m *schema.Meta) { m.Default = v; m.HasDefault = true })
	}
}

// ReadOnly marks the node read-only.
func ReadOnly() Option {
	return func(n *schema.Node) { n.UpdateMeta(func(m *schema.Meta) { m.ReadOnly = true }) }
}

// Deprecated marks the node deprecated.
func Deprecated() Option {
	return func(n *schema.Node) { n.UpdateMeta(func(m *schema.Meta) { m.Deprecated = true }) }
}

// Examples appends example values.
func Examples(vs ...any) Option {
	return func(n *schema.Node) {
		n.UpdateMeta(func(m *schema.Meta) { m.Examples = append(m.Examples, vs...) })
	}
}

// Extension sets a verbatim annotation rendered in every dialect.
func Extension(key string, v any) Option {
	return func(n *schema.Node) {
		n.UpdateMeta(func(m *schema.Meta) {
			if m.Extensions == nil {
				m.Extensions = map[string]any{}
			}
			m.Extensions[key] = v
		})
	}
}

// OpenAPI sets an annotation rendered only in the OpenAPI dialect.
func OpenAPI(key string, v any) Option {
	return func(n *schema.Node) {
		n.UpdateMeta(func(m *schema.Meta) {
			if m.OpenAPI == nil {
				m.OpenAPI = map[string]any{}
			}
			m.OpenAPI[key] = v
		})
	}
}

// Rule attaches a CEL predicate over `self`.
func Rule(expr, message string) Option {
	return func(n *schema.Node) {
		n.UpdateMeta(func(m *schema.Meta) {
			m.Rules = append(m.Rules, schema.Rule{Expr: expr, Message: message})
		})
	}
}

// OnLoad attaches a load hook.
func OnLoad(h schema.Hook) Option { return func(n *schema.Node) { n.OnLoad(h) } }

// OnExport attaches an export hook.
func OnExport(h schema.ExportHook) Option { return func(n *schema.Node) { n.OnExport(h) } }

// OnGenerate attaches a synthetic-generation hook.
func OnGenerate(h schema.Hook) Option { return func(n *schema.Node) { n.OnGenerate(h) } }

// update rewrites the typed options of n when they are of type T. A kind
// option applied to the wrong kind is a no-op.
func update[T any](n *schema.Node, fn func(*T)) {
	cur, ok := n.Options().(T)
	if !ok {
		return
	}
	fn(&cur)
	n.SetOptions(cur)
}
