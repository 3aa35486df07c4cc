package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/formats"
	"github.com/reoring/skemac/internal/ir"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/rules"
)

// lowerer turns a schema document into IR. Definitions are addressed by a
// canonical key so that template documents, whose definition keys and $ref
// targets are different placeholders for the same node, still link up.
type lowerer struct {
	doc     *jsonschema.Schema
	openapi bool
	opts    jsonschema.CompileOptions
	index   map[string]string // canonical key -> definition name
	formats map[string]bool
}

// Lower converts a decoded document into a program.
func Lower(doc *jsonschema.Schema, opts jsonschema.CompileOptions) (*ir.Program, error) {
	l := &lowerer{
		doc:     doc,
		openapi: opts.Dialect == skemac.DialectOpenAPI,
		opts:    opts,
		index:   map[string]string{},
		formats: map[string]bool{},
	}
	prog := &ir.Program{Defs: map[string]ir.Schema{}}
	var names []string
	for _, defs := range []map[string]*jsonschema.Schema{doc.Definitions, doc.Defs} {
		for name := range defs {
			if _, dup := l.index[canon(name)]; dup {
				continue
			}
			l.index[canon(name)] = name
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		def, _ := doc.Definition(name)
		s, err := l.lower(def)
		if err != nil {
			return nil, err
		}
		prog.Defs[name] = s
	}
	prog.Order = names
	root, err := l.lower(doc)
	if err != nil {
		return nil, err
	}
	prog.Root = root
	prog.Title = l.title(doc)
	return prog, nil
}

// UsedFormats returns the format checks a program performs, sorted.
func UsedFormats(prog *ir.Program) []string {
	seen := map[string]bool{}
	prog.WalkProgram(func(s ir.Schema) {
		if p, ok := s.(*ir.Primitive); ok && p.Format != "" {
			seen[p.Format] = true
		}
	})
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func canon(name string) string {
	if id, _, ok := registry.ParsePlaceholder(name); ok {
		return "#" + id.String()
	}
	return name
}

func (l *lowerer) title(doc *jsonschema.Schema) string {
	if doc.Title != "" {
		return doc.Title
	}
	ref := doc.Ref
	if ref == "" && len(doc.AllOf) == 1 {
		ref = doc.AllOf[0].Ref
	}
	if name, ok := strings.CutPrefix(ref, "#/definitions/"); ok {
		return unescape(name)
	}
	if name, ok := strings.CutPrefix(ref, "#/$defs/"); ok {
		return unescape(name)
	}
	return ""
}

func unescape(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}

func unsupported(detail string) error {
	return &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: detail}
}

func (l *lowerer) ref(ref string) (ir.Schema, error) {
	if ref == "#" {
		return &ir.Ref{}, nil
	}
	var tok string
	switch {
	case strings.HasPrefix(ref, "#/definitions/"):
		tok = strings.TrimPrefix(ref, "#/definitions/")
	case strings.HasPrefix(ref, "#/$defs/"):
		tok = strings.TrimPrefix(ref, "#/$defs/")
	default:
		return nil, unsupported("$ref " + ref + " is not local")
	}
	name, ok := l.index[canon(unescape(tok))]
	if !ok {
		return nil, &skemac.Error{Err: skemac.ErrReferenceNotFound, Detail: "$ref " + ref}
	}
	return &ir.Ref{Name: name}, nil
}

func (l *lowerer) lower(s *jsonschema.Schema) (ir.Schema, error) {
	if s == nil {
		return &ir.Any{}, nil
	}
	var out ir.Schema
	nullable := l.openapi && s.Nullable
	if s.Ref != "" {
		r, err := l.ref(s.Ref)
		if err != nil {
			return nil, err
		}
		out = r
	} else {
		var parts []ir.Schema
		types := l.types(s)
		var typed []ir.Schema
		for _, t := range types {
			if t == ir.TypeNull && len(types) > 1 {
				nullable = true
				continue
			}
			node, err := l.typed(t, s)
			if err != nil {
				return nil, err
			}
			typed = append(typed, node)
		}
		values := s.Enum
		if s.Const != nil {
			values = []any{s.Const.Value}
		}
		switch {
		case len(values) > 0 && conforms(types, values):
			parts = append(parts, &ir.Enum{Values: values})
		case len(values) > 0:
			parts = append(parts, anyOf(typed), &ir.Enum{Values: values})
		case len(typed) > 0:
			parts = append(parts, anyOf(typed))
		}
		if len(s.AnyOf) > 0 {
			vs, err := l.lowerAll(s.AnyOf)
			if err != nil {
				return nil, err
			}
			parts = append(parts, &ir.AnyOf{Variants: vs})
		}
		if len(s.OneOf) > 0 {
			u, err := l.oneOf(s)
			if err != nil {
				return nil, err
			}
			parts = append(parts, u)
		}
		for _, sub := range s.AllOf {
			node, err := l.lower(sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, node)
		}
		switch len(parts) {
		case 0:
			out = &ir.Any{}
		case 1:
			out = parts[0]
		default:
			out = &ir.AllOf{Parts: parts}
		}
	}
	base := out.Common()
	if nullable {
		base.Nullable = true
	}
	for _, r := range s.Rules {
		if _, err := rules.Compile(r.Rule); err != nil {
			return nil, unsupported(err.Error())
		}
		base.Rules = append(base.Rules, ir.Rule{Expr: r.Rule, Message: r.Message})
	}
	return out, nil
}

func anyOf(vs []ir.Schema) ir.Schema {
	if len(vs) == 1 {
		return vs[0]
	}
	return &ir.AnyOf{Variants: vs}
}

func (l *lowerer) lowerAll(ss []*jsonschema.Schema) ([]ir.Schema, error) {
	out := make([]ir.Schema, 0, len(ss))
	for _, s := range ss {
		node, err := l.lower(s)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// types returns the declared types, or the single type implied by the
// keywords present when none is declared.
func (l *lowerer) types(s *jsonschema.Schema) []string {
	if ts := s.Types(); len(ts) > 0 {
		return ts
	}
	switch {
	case s.Properties != nil || len(s.Required) > 0 || s.AdditionalProperties != nil || s.PropertyNames != nil:
		return []string{ir.TypeObject}
	case s.Items != nil || s.MinItems != nil || s.MaxItems != nil || s.UniqueItems:
		return []string{ir.TypeArray}
	case s.MinLength != nil || s.MaxLength != nil || s.Pattern != "" || s.Format != "":
		return []string{ir.TypeString}
	case s.Minimum != nil || s.Maximum != nil || s.MultipleOf != nil || s.ExclusiveMinimum != nil || s.ExclusiveMaximum != nil:
		return []string{ir.TypeNumber}
	}
	return nil
}

// conforms reports whether every enum value already satisfies the declared
// types, in which case the enum alone is an exact check.
func conforms(types []string, values []any) bool {
	if len(types) == 0 {
		return true
	}
	for _, v := range values {
		t := TypeName(v)
		if t == "number" {
			if f, _ := Num(v); f == float64(int64(f)) && slices.Contains(types, ir.TypeInteger) {
				continue
			}
		}
		if !slices.Contains(types, t) {
			return false
		}
	}
	return true
}

func (l *lowerer) typed(t string, s *jsonschema.Schema) (ir.Schema, error) {
	switch t {
	case ir.TypeString:
		p := &ir.Primitive{Name: ir.TypeString, MinLength: s.MinLength, MaxLength: s.MaxLength, Pattern: s.Pattern}
		if s.Pattern != "" {
			if _, err := regexp.Compile(s.Pattern); err != nil {
				return nil, unsupported(fmt.Sprintf("pattern %q: %v", s.Pattern, err))
			}
		}
		if _, known := formats.Lookup(s.Format); known && l.opts.Formats {
			p.Format = s.Format
		}
		return p, nil
	case ir.TypeNumber, ir.TypeInteger:
		p := &ir.Primitive{Name: t, Min: s.Minimum, Max: s.Maximum, MultipleOf: s.MultipleOf}
		switch ex := s.ExclusiveMinimum.(type) {
		case bool:
			p.ExMin = ex && p.Min != nil
		case float64:
			if p.Min == nil || ex >= *p.Min {
				p.Min, p.ExMin = &ex, true
			}
		}
		switch ex := s.ExclusiveMaximum.(type) {
		case bool:
			p.ExMax = ex && p.Max != nil
		case float64:
			if p.Max == nil || ex <= *p.Max {
				p.Max, p.ExMax = &ex, true
			}
		}
		if p.MultipleOf != nil && *p.MultipleOf <= 0 {
			return nil, unsupported("multipleOf must be positive")
		}
		return p, nil
	case ir.TypeBoolean, ir.TypeNull:
		return &ir.Primitive{Name: t}, nil
	case ir.TypeObject:
		return l.object(s)
	case ir.TypeArray:
		return l.array(s)
	}
	return nil, unsupported("type " + t)
}

func (l *lowerer) object(s *jsonschema.Schema) (ir.Schema, error) {
	o := &ir.Object{Required: map[string]struct{}{}}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		node, err := l.lower(s.Properties[k])
		if err != nil {
			return nil, err
		}
		o.Fields = append(o.Fields, ir.Field{Name: k, Schema: node})
	}
	for _, k := range s.Required {
		o.Required[k] = struct{}{}
	}
	if ap := s.AdditionalProperties; ap != nil {
		switch {
		case ap.Schema != nil:
			node, err := l.lower(ap.Schema)
			if err != nil {
				return nil, err
			}
			o.UnknownPolicy, o.Additional = ir.UnknownSchema, node
		case !ap.Bool:
			o.UnknownPolicy = ir.UnknownStrict
		}
	}
	if s.PropertyNames != nil && s.PropertyNames.Pattern != "" {
		o.KeyPattern = s.PropertyNames.Pattern
	} else if kp, ok := s.Extra["x-key-pattern"].(string); ok {
		o.KeyPattern = kp
	}
	if o.KeyPattern != "" {
		if _, err := regexp.Compile(o.KeyPattern); err != nil {
			return nil, unsupported(fmt.Sprintf("key pattern %q: %v", o.KeyPattern, err))
		}
	}
	return o, nil
}

func (l *lowerer) array(s *jsonschema.Schema) (ir.Schema, error) {
	if s.Items != nil && s.Items.Tuple != nil {
		items, err := l.lowerAll(s.Items.Tuple)
		if err != nil {
			return nil, err
		}
		t := &ir.Tuple{Items: items, MaxItems: s.MaxItems, Unique: s.UniqueItems}
		if s.MinItems != nil {
			t.MinItems = *s.MinItems
		}
		if ai := s.AdditionalItems; ai != nil {
			switch {
			case ai.Schema != nil:
				if t.Rest, err = l.lower(ai.Schema); err != nil {
					return nil, err
				}
			case !ai.Bool:
				t.Closed = true
			}
		}
		if t.Closed && t.MaxItems != nil && *t.MaxItems >= len(items) {
			t.MaxItems = nil
		}
		return t, nil
	}
	a := &ir.Array{MinItems: s.MinItems, MaxItems: s.MaxItems, Unique: s.UniqueItems}
	if s.Items != nil && s.Items.Single != nil {
		item, err := l.lower(s.Items.Single)
		if err != nil {
			return nil, err
		}
		a.Item = item
	}
	return a, nil
}

func (l *lowerer) oneOf(s *jsonschema.Schema) (ir.Schema, error) {
	vs, err := l.lowerAll(s.OneOf)
	if err != nil {
		return nil, err
	}
	u := &ir.OneOf{Variants: vs}
	d := s.Discriminator
	if d == nil || d.PropertyName == "" || !l.opts.Discriminator {
		return u, nil
	}
	mapping := map[string]int{}
	for i, v := range s.OneOf {
		tag, ok := l.tag(v, d)
		if !ok {
			return u, nil
		}
		mapping[tag] = i
	}
	u.Discriminator, u.Mapping = d.PropertyName, mapping
	return u, nil
}

// tag finds the discriminator value selecting variant v, from the explicit
// mapping first and then from a constant property.
func (l *lowerer) tag(v *jsonschema.Schema, d *jsonschema.Discriminator) (string, bool) {
	if v.Ref != "" {
		for tag, ref := range d.Mapping {
			if canonRef(ref) == canonRef(v.Ref) {
				return tag, true
			}
		}
	}
	for i := 0; i < 8; i++ {
		if v.Ref == "" {
			break
		}
		next, ok := l.resolve(v.Ref)
		if !ok {
			return "", false
		}
		v = next
	}
	prop, ok := v.Properties[d.PropertyName]
	if !ok {
		return "", false
	}
	switch {
	case prop.Const != nil:
		return fmt.Sprint(prop.Const.Value), true
	case len(prop.Enum) == 1:
		return fmt.Sprint(prop.Enum[0]), true
	}
	return "", false
}

func canonRef(ref string) string {
	i := strings.LastIndexByte(ref, '/')
	return ref[:i+1] + canon(unescape(ref[i+1:]))
}

func (l *lowerer) resolve(ref string) (*jsonschema.Schema, bool) {
	if ref == "#" {
		return l.doc, true
	}
	i := strings.LastIndexByte(ref, '/')
	name, ok := l.index[canon(unescape(ref[i+1:]))]
	if !ok {
		return nil, false
	}
	return l.doc.Definition(name)
}
