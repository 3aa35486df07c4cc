package jsonschema

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/goccy/go-json"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/schema"
	"github.com/reoring/skemac/visitor"
)

// Target is the attribute-bag and registry target of this backend.
const Target schema.Target = "jsonschema"

// Options control one rendering pass.
type Options struct {
	Dialect skemac.Dialect
	// SchemaURI emits $schema on the root (plain dialect only).
	SchemaURI bool
	// Strict renders every object with additionalProperties false.
	Strict bool
	// Fetcher resolves remote custom nodes.
	Fetcher fetch.Fetcher
	// Path is the document path definitions are declared under.
	Path string
}

// Document is a rendered schema whose definition names and $ref pointers are
// still placeholders.
type Document struct {
	Root *Schema
	// Discriminator reports that a discriminated union was rendered; the
	// validator compiler must be built with discriminator support.
	Discriminator bool
	// Definitions lists definition nodes in first-rendered order.
	Definitions []schema.ID
}

// Template marshals the document. The result still carries placeholders.
func (d *Document) Template() ([]byte, error) { return json.Marshal(d.Root) }

type state struct {
	ctx   context.Context
	opts  Options
	g     *schema.Graph
	reg   *registry.Registry
	table *visitor.Table[*state, *Schema]

	// self holds the nodes rendered as the document root itself; refs to
	// them point at "#". hoist is rendered into definitions instead because
	// a nullable wrapper at the root widens it.
	self  map[schema.ID]bool
	hoist *schema.Node

	defs          map[schema.ID]*Schema
	order         []schema.ID
	discriminator bool
}

// Render renders root, declaring every definition in reg under opts.Path.
// The graph must have been loaded from root.
func Render(ctx context.Context, g *schema.Graph, root *schema.Node, reg *registry.Registry, opts Options) (*Document, error) {
	st := &state{
		ctx:   ctx,
		opts:  opts,
		g:     g,
		reg:   reg,
		table: newTable(g),
		defs:  map[schema.ID]*Schema{},
	}
	st.self, st.hoist = rootIdentity(g, root)
	s, err := st.render(root)
	if err != nil {
		return nil, err
	}
	if len(st.defs) > 0 {
		if s.Ref != "" {
			s = &Schema{AllOf: []*Schema{s}}
		}
		s.Definitions = make(map[string]*Schema, len(st.defs))
		for _, id := range st.order {
			s.Definitions[reg.Reference(id, registry.AttrSymbol)] = st.defs[id]
		}
	}
	if opts.SchemaURI && opts.Dialect == skemac.DialectJSONSchema {
		s.SchemaURI = DraftURI
	}
	return &Document{Root: s, Discriminator: st.discriminator, Definitions: st.order}, nil
}

// RenderJSON renders n with a fresh registry and returns the resolved
// document.
func RenderJSON(ctx context.Context, g *schema.Graph, n *schema.Node, opts Options) ([]byte, *Document, error) {
	if err := g.Load(n); err != nil {
		return nil, nil, err
	}
	reg := registry.New(g, Target)
	doc, err := Render(ctx, g, n, reg, opts)
	if err != nil {
		return nil, nil, err
	}
	tpl, err := doc.Template()
	if err != nil {
		return nil, nil, err
	}
	out, _, err := reg.Resolve(string(tpl))
	if err != nil {
		return nil, nil, err
	}
	return []byte(out), doc, nil
}

func newTable(g *schema.Graph) *visitor.Table[*state, *Schema] {
	t := visitor.New[*state, *Schema](g)
	t.On(schema.KindString, stringNode)
	t.On(schema.KindNumber, numberNode)
	t.On(schema.KindInteger, numberNode)
	t.On(schema.KindBoolean, func(*schema.Node, *state) (*Schema, error) { return &Schema{Type: "boolean"}, nil })
	t.On(schema.KindNull, nullNode)
	t.On(schema.KindUnknown, func(*schema.Node, *state) (*Schema, error) { return &Schema{}, nil })
	t.On(schema.KindObject, objectNode)
	t.On(schema.KindArray, arrayNode)
	t.On(schema.KindTuple, tupleNode)
	t.On(schema.KindRecord, recordNode)
	t.On(schema.KindUnion, unionNode)
	t.On(schema.KindIntersection, intersectionNode)
	t.On(schema.KindEnum, enumNode)
	t.On(schema.KindConst, constNode)
	t.On(schema.KindRef, refNode)
	t.On(schema.KindValidator, validatorNode)
	t.On(schema.KindCustom, customNode)
	t.Default(func(n *schema.Node, st *state) (*Schema, error) {
		if n.Commutative() {
			return t.Passthrough(n, st)
		}
		return nil, unsupported(n, "no rendering")
	})
	return t
}

func unsupported(n *schema.Node, detail string) error {
	return &skemac.Error{Err: skemac.ErrUnsupportedSchemaConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: detail}
}

func (st *state) openapi() bool { return st.opts.Dialect == skemac.DialectOpenAPI }

// render renders n with its local wrapper chain: nullability is read from
// every wrapper up to the first ref, and annotations of each chain node are
// applied to the result.
func (st *state) render(n *schema.Node) (*Schema, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}
	wrappers, end := st.g.LocalChain(n)
	if end == nil {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: "wrapper without child"}
	}
	var s *Schema
	var err error
	if st.hoist != nil && end == st.hoist {
		st.hoist = nil
		s, err = st.define(end)
	} else {
		s, err = st.table.Render(end, st)
	}
	if err != nil {
		return nil, err
	}
	nullable := false
	for _, w := range wrappers {
		if w.Kind() == schema.KindNullable {
			nullable = true
		}
	}
	if nullable {
		s = st.nullable(s)
	}
	for _, w := range wrappers {
		st.meta(s, w)
	}
	st.meta(s, end)
	return s, nil
}

func (st *state) children(n *schema.Node) ([]*Schema, error) {
	out := make([]*Schema, 0, len(n.Children()))
	for _, id := range n.Children() {
		c := st.g.Node(id)
		if c == nil {
			return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: "dangling child"}
		}
		s, err := st.render(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (st *state) sole(n *schema.Node) (*Schema, error) {
	c, err := st.g.Sole(n)
	if err != nil {
		return nil, err
	}
	return st.render(c)
}

func stringNode(n *schema.Node, st *state) (*Schema, error) {
	o := n.StringOptions()
	return &Schema{Type: "string", MinLength: o.MinLength, MaxLength: o.MaxLength, Pattern: o.Pattern, Format: o.Format}, nil
}

func numberNode(n *schema.Node, st *state) (*Schema, error) {
	o := n.NumberOptions()
	s := &Schema{Type: "number", Minimum: o.Minimum, Maximum: o.Maximum, MultipleOf: o.MultipleOf}
	if n.Kind() == schema.KindInteger {
		s.Type = "integer"
	}
	if st.openapi() {
		// 3.0 exclusive bounds are flags on minimum/maximum
		if o.ExclusiveMinimum != nil {
			s.Minimum, s.ExclusiveMinimum = o.ExclusiveMinimum, true
		}
		if o.ExclusiveMaximum != nil {
			s.Maximum, s.ExclusiveMaximum = o.ExclusiveMaximum, true
		}
		return s, nil
	}
	if o.ExclusiveMinimum != nil {
		s.ExclusiveMinimum = *o.ExclusiveMinimum
	}
	if o.ExclusiveMaximum != nil {
		s.ExclusiveMaximum = *o.ExclusiveMaximum
	}
	return s, nil
}

func nullNode(_ *schema.Node, st *state) (*Schema, error) {
	if st.openapi() {
		return nullWorkaround(), nil
	}
	return &Schema{Type: "null"}, nil
}

// nullWorkaround describes a bare null in OpenAPI 3.0, which has no null type.
func nullWorkaround() *Schema {
	return &Schema{Type: "string", Enum: []any{nil}, Nullable: true}
}

func objectNode(n *schema.Node, st *state) (*Schema, error) {
	o := n.ObjectOptions()
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	required := []string{}
	for i, id := range n.Children() {
		if i >= len(o.Keys) {
			return nil, unsupported(n, "property without key")
		}
		key := o.Keys[i]
		c := st.g.Node(id)
		if c == nil {
			return nil, unsupported(n, "dangling property "+key)
		}
		ps, err := st.render(c)
		if err != nil {
			return nil, err
		}
		s.Properties[key] = ps
		if !st.g.IsUltimatelyOptional(c) {
			required = append(required, key)
		}
	}
	sort.Strings(required)
	if len(required) > 0 {
		s.Required = required
	}
	s.AdditionalProperties = Allow(!(st.opts.Strict || o.Unknown == schema.UnknownStrict))
	return s, nil
}

func arrayNode(n *schema.Node, st *state) (*Schema, error) {
	item, err := st.sole(n)
	if err != nil {
		return nil, err
	}
	o := n.ArrayOptions()
	return &Schema{Type: "array", Items: &Items{Single: item}, MinItems: o.MinItems, MaxItems: o.MaxItems, UniqueItems: o.Unique}, nil
}

func tupleNode(n *schema.Node, st *state) (*Schema, error) {
	items, err := st.children(n)
	if err != nil {
		return nil, err
	}
	var rest *Schema
	fixed := n.Children()
	if n.TupleOptions().Rest {
		if len(items) == 0 {
			return nil, unsupported(n, "tuple rest without element")
		}
		rest, items = items[len(items)-1], items[:len(items)-1]
		fixed = fixed[:len(fixed)-1]
	}
	minItems := 0
	for i, id := range fixed {
		if !st.g.IsUltimatelyOptional(st.g.Node(id)) {
			minItems = i + 1
		}
	}
	s := &Schema{Type: "array"}
	if minItems > 0 {
		s.MinItems = &minItems
	}
	if rest == nil {
		maxItems := len(items)
		s.MaxItems = &maxItems
	}
	if st.openapi() {
		// 3.0 has no positional items
		s.Items = &Items{Single: &Schema{AnyOf: append(items, restOrNone(rest)...)}}
		return s, nil
	}
	s.Items = &Items{Tuple: items}
	if rest != nil {
		s.AdditionalItems = Sub(rest)
	} else {
		s.AdditionalItems = Allow(false)
	}
	return s, nil
}

func restOrNone(rest *Schema) []*Schema {
	if rest == nil {
		return nil
	}
	return []*Schema{rest}
}

func recordNode(n *schema.Node, st *state) (*Schema, error) {
	value, err := st.sole(n)
	if err != nil {
		return nil, err
	}
	s := &Schema{Type: "object", AdditionalProperties: Sub(value)}
	if p := n.RecordOptions().KeyPattern; p != "" {
		if st.openapi() {
			s.Extra = map[string]any{"x-key-pattern": p}
		} else {
			s.PropertyNames = &Schema{Pattern: p}
		}
	}
	return s, nil
}

func unionNode(n *schema.Node, st *state) (*Schema, error) {
	variants, err := st.children(n)
	if err != nil {
		return nil, err
	}
	prop := n.UnionOptions().Discriminator
	if prop == "" {
		return &Schema{AnyOf: variants}, nil
	}
	st.discriminator = true
	d := &Discriminator{PropertyName: prop}
	for i, id := range n.Children() {
		v := st.g.Node(id)
		tag, ok := st.discriminatorValue(v, prop)
		if !ok {
			return nil, unsupported(n, fmt.Sprintf("variant %d has no constant %q property", i, prop))
		}
		if st.openapi() && variants[i].Ref != "" {
			if d.Mapping == nil {
				d.Mapping = map[string]string{}
			}
			d.Mapping[tag] = variants[i].Ref
		}
	}
	return &Schema{OneOf: variants, Discriminator: d}, nil
}

// discriminatorValue finds the constant value of prop in variant v.
func (st *state) discriminatorValue(v *schema.Node, prop string) (string, bool) {
	obj := st.g.Unwrap(v)
	if obj == nil || obj.Kind() != schema.KindObject {
		return "", false
	}
	for i, key := range obj.ObjectOptions().Keys {
		if key != prop || i >= len(obj.Children()) {
			continue
		}
		c := st.g.Unwrap(st.g.Node(obj.Children()[i]))
		if c == nil {
			return "", false
		}
		switch c.Kind() {
		case schema.KindConst:
			return fmt.Sprint(c.ConstOptions().Value), true
		case schema.KindEnum:
			if vs := c.EnumOptions().Values; len(vs) == 1 {
				return fmt.Sprint(vs[0]), true
			}
		}
	}
	return "", false
}

func intersectionNode(n *schema.Node, st *state) (*Schema, error) {
	parts, err := st.children(n)
	if err != nil {
		return nil, err
	}
	return &Schema{AllOf: parts}, nil
}

func enumNode(n *schema.Node, st *state) (*Schema, error) {
	values := append([]any(nil), n.EnumOptions().Values...)
	if len(values) == 0 {
		return nil, unsupported(n, "empty enum")
	}
	if st.openapi() && onlyNull(values) {
		return nullWorkaround(), nil
	}
	s := &Schema{Enum: values}
	if t := literalType(values); t != "" {
		s.Type = t
	}
	if slices.Contains(values, any(nil)) {
		if st.openapi() {
			s.Nullable = true
		} else {
			s.Type = widen(s.Type)
		}
	}
	return s, nil
}

func constNode(n *schema.Node, st *state) (*Schema, error) {
	v := n.ConstOptions().Value
	if !st.openapi() {
		return &Schema{Const: Lit(v)}, nil
	}
	if v == nil {
		return nullWorkaround(), nil
	}
	s := &Schema{Enum: []any{v}}
	if t := literalType(s.Enum); t != "" {
		s.Type = t
	}
	return s, nil
}

// refNode emits a pointer to the shared definition of the target. The slot
// is reserved before the target renders so a cycle back to it terminates.
func refNode(n *schema.Node, st *state) (*Schema, error) {
	target, err := st.g.Sole(n)
	if err != nil {
		return nil, err
	}
	if st.self[target.ID()] {
		return &Schema{Ref: "#"}, nil
	}
	return st.define(target)
}

// define renders target into the definitions map once and returns a pointer
// to it. The slot is reserved before recursing so cycles end at the pointer.
func (st *state) define(target *schema.Node) (*Schema, error) {
	id := target.ID()
	if _, ok := st.defs[id]; !ok {
		slot := &Schema{}
		st.defs[id] = slot
		st.order = append(st.order, id)
		st.reg.Declare(id, st.opts.Path, "", false)
		body, err := st.render(target)
		if err != nil {
			return nil, err
		}
		*slot = *body
	}
	return &Schema{Ref: "#/definitions/" + st.reg.Reference(id, registry.AttrRef)}, nil
}

// rootIdentity follows optional and validator wrappers from root: every node
// on that path renders exactly as the document root. Past a nullable wrapper
// the document accepts null, so a node referenced from inside is returned as
// hoist and rendered as a definition.
func rootIdentity(g *schema.Graph, root *schema.Node) (map[schema.ID]bool, *schema.Node) {
	self := map[schema.ID]bool{root.ID(): true}
	widened := false
	n := root
	for {
		switch n.Kind() {
		case schema.KindOptional, schema.KindValidator:
		case schema.KindNullable:
			widened = true
		default:
			if widened && n.Kind() != schema.KindRef && referenced(g, root, n.ID()) {
				return self, n
			}
			return self, nil
		}
		if len(n.Children()) != 1 || g.Node(n.Children()[0]) == nil {
			return self, nil
		}
		n = g.Node(n.Children()[0])
		if !widened {
			self[n.ID()] = true
		}
	}
}

// referenced reports whether a ref node reachable from root targets id.
func referenced(g *schema.Graph, root *schema.Node, id schema.ID) bool {
	seen := map[schema.ID]bool{}
	stack := []*schema.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true
		if n.Kind() == schema.KindRef && len(n.Children()) == 1 && n.Children()[0] == id {
			return true
		}
		for _, c := range n.Children() {
			stack = append(stack, g.Node(c))
		}
	}
	return false
}

func validatorNode(n *schema.Node, st *state) (*Schema, error) {
	return st.sole(n)
}

func customNode(n *schema.Node, st *state) (*Schema, error) {
	o := n.CustomOptions()
	switch {
	case o.Schema != nil:
		s, err := FromMap(o.Schema)
		if err != nil {
			return nil, &skemac.Error{Err: skemac.ErrUnsupportedSchemaConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Cause: err}
		}
		return s, nil
	case o.Remote != "":
		if st.opts.Fetcher == nil {
			return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: "no fetcher for " + o.Remote}
		}
		doc, err := st.opts.Fetcher.Fetch(st.ctx, o.Remote)
		if err != nil {
			return nil, err
		}
		s, err := Decode(doc)
		if err != nil {
			return nil, &skemac.Error{Err: skemac.ErrFetch, Node: uint32(n.ID()), Detail: o.Remote, Cause: err}
		}
		s.SchemaURI = ""
		return s, nil
	}
	return nil, unsupported(n, "custom node without schema")
}

// meta applies annotations of n to s.
func (st *state) meta(s *Schema, n *schema.Node) {
	m := n.Meta()
	if m.IsZero() {
		return
	}
	if m.Title != "" {
		s.Title = m.Title
	}
	if m.Description != "" {
		s.Description = m.Description
	}
	if m.HasDefault {
		s.Default = Lit(m.Default)
	}
	s.ReadOnly = s.ReadOnly || m.ReadOnly
	s.Deprecated = s.Deprecated || m.Deprecated
	if len(m.Examples) > 0 {
		if st.openapi() {
			// 3.0 has a single example
			s.Extra = setExtra(s.Extra, "example", m.Examples[0])
		} else {
			s.Examples = append(s.Examples, m.Examples...)
		}
	}
	for k, v := range m.Extensions {
		s.Extra = setExtra(s.Extra, k, v)
	}
	if st.openapi() {
		for k, v := range m.OpenAPI {
			s.Extra = setExtra(s.Extra, k, v)
		}
	}
	for _, r := range m.Rules {
		s.Rules = append(s.Rules, Rule{Rule: r.Expr, Message: r.Message})
	}
}

func setExtra(m map[string]any, k string, v any) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	m[k] = v
	return m
}
