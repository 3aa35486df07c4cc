// Package sample builds a deterministic, minimal valid value for a schema
// node. It is the synthetic-data backend: every constructed value fires the
// node's OnGenerate hooks, and tests feed the values back through compiled
// validators.
package sample

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/schema"
	"github.com/reoring/skemac/visitor"
)

// Target is the attribute namespace of this backend.
const Target schema.Target = "sample"

// DefaultMaxDepth bounds how often one ref target may be re-entered while
// building a single value.
const DefaultMaxDepth = 2

// errTooDeep is recovered by nullable wrappers, which then produce null.
var errTooDeep = errors.New("recursion limit reached")

// Options configure a Generator.
type Options struct {
	MaxDepth int
	// UseDefaults prefers a node's default value, then its first example,
	// over a synthesized one.
	UseDefaults bool
}

// Generator produces values for nodes of one graph.
type Generator struct {
	g     *schema.Graph
	opts  Options
	table *visitor.Table[*state, any]
}

type state struct {
	active map[schema.ID]int
}

// New returns a generator over g.
func New(g *schema.Graph, opts Options) *Generator {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	gen := &Generator{g: g, opts: opts}
	t := visitor.New[*state, any](g)
	t.On(schema.KindString, gen.stringValue).
		On(schema.KindNumber, gen.numberValue).
		On(schema.KindInteger, gen.numberValue).
		On(schema.KindBoolean, func(*schema.Node, *state) (any, error) { return false, nil }).
		On(schema.KindNull, func(*schema.Node, *state) (any, error) { return nil, nil }).
		On(schema.KindUnknown, func(*schema.Node, *state) (any, error) { return nil, nil }).
		On(schema.KindObject, gen.objectValue).
		On(schema.KindArray, gen.arrayValue).
		On(schema.KindTuple, gen.tupleValue).
		On(schema.KindRecord, func(*schema.Node, *state) (any, error) { return map[string]any{}, nil }).
		On(schema.KindUnion, gen.unionValue).
		On(schema.KindIntersection, gen.intersectionValue).
		On(schema.KindEnum, gen.enumValue).
		On(schema.KindConst, func(n *schema.Node, _ *state) (any, error) { return n.ConstOptions().Value, nil }).
		On(schema.KindNullable, gen.nullableValue).
		On(schema.KindRef, gen.refValue).
		On(schema.KindValidator, gen.soleValue).
		On(schema.KindCustom, gen.customValue)
	gen.table = t
	return gen
}

// Generate returns a value for n using default options.
func Generate(g *schema.Graph, n *schema.Node) (any, error) {
	return New(g, Options{}).Value(n)
}

// JSON returns the generated value encoded as indented JSON.
func JSON(g *schema.Graph, n *schema.Node, opts Options) ([]byte, error) {
	v, err := New(g, opts).Value(n)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// Value loads n and builds its value.
func (gen *Generator) Value(n *schema.Node) (any, error) {
	if err := gen.g.Load(n); err != nil {
		return nil, err
	}
	v, err := gen.render(n, &state{active: map[schema.ID]int{}})
	if errors.Is(err, errTooDeep) {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
			Detail: "recursive schema has no finite value"}
	}
	return v, err
}

func (gen *Generator) render(n *schema.Node, st *state) (any, error) {
	if gen.opts.UseDefaults && n != nil {
		m := n.Meta()
		switch {
		case m.HasDefault:
			return m.Default, gen.g.Generate(n)
		case len(m.Examples) > 0:
			return m.Examples[0], gen.g.Generate(n)
		}
	}
	v, err := gen.table.Render(n, st)
	if err != nil {
		return nil, err
	}
	if err := gen.g.Generate(n); err != nil {
		return nil, err
	}
	return v, nil
}

func (gen *Generator) child(n *schema.Node, i int, st *state) (any, error) {
	c := gen.g.Child(n, i)
	if c == nil {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
			Detail: fmt.Sprintf("missing child %d", i)}
	}
	return gen.render(c, st)
}

func (gen *Generator) soleValue(n *schema.Node, st *state) (any, error) {
	c, err := gen.g.Sole(n)
	if err != nil {
		return nil, err
	}
	return gen.render(c, st)
}

func (gen *Generator) nullableValue(n *schema.Node, st *state) (any, error) {
	v, err := gen.soleValue(n, st)
	if errors.Is(err, errTooDeep) {
		return nil, nil
	}
	return v, err
}

func (gen *Generator) refValue(n *schema.Node, st *state) (any, error) {
	c, err := gen.g.Sole(n)
	if err != nil {
		return nil, err
	}
	if st.active[c.ID()] >= gen.opts.MaxDepth {
		return nil, errTooDeep
	}
	st.active[c.ID()]++
	defer func() { st.active[c.ID()]-- }()
	return gen.render(c, st)
}

var formatSamples = map[string]string{
	"date-time": "1970-01-01T00:00:00Z",
	"date":      "1970-01-01",
	"time":      "00:00:00Z",
	"email":     "user@example.com",
	"hostname":  "example.com",
	"ipv4":      "127.0.0.1",
	"ipv6":      "::1",
	"uri":       "https://example.com",
	"uuid":      "00000000-0000-4000-8000-000000000000",
	"regex":     ".*",
}

func (gen *Generator) stringValue(n *schema.Node, _ *state) (any, error) {
	o := n.StringOptions()
	s, ok := formatSamples[o.Format]
	if !ok {
		s = ""
	}
	if o.MinLength != nil && len([]rune(s)) < *o.MinLength {
		s += strings.Repeat("a", *o.MinLength-len([]rune(s)))
	}
	if o.Pattern == "" {
		return s, nil
	}
	re, err := regexp.Compile(o.Pattern)
	if err != nil {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Cause: err}
	}
	for _, cand := range patternCandidates(s, o) {
		if re.MatchString(cand) {
			return cand, nil
		}
	}
	return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
		Detail: fmt.Sprintf("no sample matches pattern %q", o.Pattern)}
}

// patternCandidates lists strings tried against a pattern, all within the
// length bounds.
func patternCandidates(base string, o schema.StringOptions) []string {
	seeds := []string{base, "a", "A", "0", "a0", "aaaa", "0000", "a-a", "a_a", "a.a", "AAAA"}
	var out []string
	for _, s := range seeds {
		n := len([]rune(s))
		if o.MinLength != nil && n < *o.MinLength {
			s += strings.Repeat(s[len(s)-1:], *o.MinLength-n)
			n = *o.MinLength
		}
		if o.MaxLength != nil && n > *o.MaxLength {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (gen *Generator) numberValue(n *schema.Node, _ *state) (any, error) {
	o := n.NumberOptions()
	integer := n.Kind() == schema.KindInteger
	step := 1.0
	if o.MultipleOf != nil {
		step = *o.MultipleOf
	} else if !integer {
		step = 0.5
	}
	v := 0.0
	lo, loEx := lower(o)
	if lo != nil && (v < *lo || v == *lo && loEx) {
		v = *lo
		if loEx {
			v += step
		}
	}
	if o.MultipleOf != nil || integer {
		v = math.Ceil(v/step) * step
	}
	if integer {
		v = math.Ceil(v)
	}
	hi, hiEx := upper(o)
	if hi != nil && (v > *hi || v == *hi && hiEx) {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
			Detail: "numeric bounds leave no sample value"}
	}
	return v, nil
}

func lower(o schema.NumberOptions) (*float64, bool) {
	switch {
	case o.ExclusiveMinimum != nil && (o.Minimum == nil || *o.ExclusiveMinimum >= *o.Minimum):
		return o.ExclusiveMinimum, true
	case o.Minimum != nil:
		return o.Minimum, false
	}
	return nil, false
}

func upper(o schema.NumberOptions) (*float64, bool) {
	switch {
	case o.ExclusiveMaximum != nil && (o.Maximum == nil || *o.ExclusiveMaximum <= *o.Maximum):
		return o.ExclusiveMaximum, true
	case o.Maximum != nil:
		return o.Maximum, false
	}
	return nil, false
}

func (gen *Generator) objectValue(n *schema.Node, st *state) (any, error) {
	keys := n.ObjectOptions().Keys
	out := make(map[string]any, len(keys))
	for i, key := range keys {
		c := gen.g.Child(n, i)
		if c == nil || gen.g.IsUltimatelyOptional(c) {
			continue
		}
		v, err := gen.render(c, st)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (gen *Generator) arrayValue(n *schema.Node, st *state) (any, error) {
	o := n.ArrayOptions()
	count := 0
	if o.MinItems != nil {
		count = *o.MinItems
	}
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := gen.child(n, 0, st)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if o.Unique && count > 1 {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(),
			Detail: "cannot synthesize distinct items"}
	}
	return out, nil
}

func (gen *Generator) tupleValue(n *schema.Node, st *state) (any, error) {
	fixed := n.Children()
	if n.TupleOptions().Rest && len(fixed) > 0 {
		fixed = fixed[:len(fixed)-1]
	}
	// trailing optional elements are left out
	end := 0
	for i, id := range fixed {
		if !gen.g.IsUltimatelyOptional(gen.g.Node(id)) {
			end = i + 1
		}
	}
	out := make([]any, 0, end)
	for i := 0; i < end; i++ {
		v, err := gen.child(n, i, st)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (gen *Generator) unionValue(n *schema.Node, st *state) (any, error) {
	var errs []error
	for i := range n.Children() {
		v, err := gen.child(n, i, st)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: "empty union"}
	}
	return nil, errors.Join(errs...)
}

func (gen *Generator) intersectionValue(n *schema.Node, st *state) (any, error) {
	var merged map[string]any
	var first any
	for i := range n.Children() {
		v, err := gen.child(n, i, st)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = v
		}
		m, ok := v.(map[string]any)
		if !ok {
			return first, nil
		}
		if merged == nil {
			merged = map[string]any{}
		}
		maps.Copy(merged, m)
	}
	if merged == nil {
		return first, nil
	}
	return merged, nil
}

func (gen *Generator) enumValue(n *schema.Node, _ *state) (any, error) {
	vs := n.EnumOptions().Values
	if len(vs) == 0 {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Node: uint32(n.ID()), Kind: n.Kind().String(), Detail: "empty enum"}
	}
	return vs[0], nil
}

func (gen *Generator) customValue(n *schema.Node, _ *state) (any, error) {
	m := n.Meta()
	switch {
	case m.HasDefault:
		return m.Default, nil
	case len(m.Examples) > 0:
		return m.Examples[0], nil
	}
	return nil, nil
}
