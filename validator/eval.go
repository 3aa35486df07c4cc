package validator

import (
	"regexp"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/formats"
	"github.com/reoring/skemac/internal/ir"
	"github.com/reoring/skemac/rules"
)

// builder turns a program into nested closures. Refs go through slots so
// recursive definitions are built once.
type builder struct {
	prog   *ir.Program
	coerce bool
	slots  map[string]*Check
	rules  rules.Cache
}

// Build returns the check for the program root.
func Build(prog *ir.Program, coerce bool) (Check, error) {
	b := &builder{prog: prog, coerce: coerce, slots: map[string]*Check{"": new(Check)}}
	for _, name := range prog.Order {
		b.slots[name] = new(Check)
	}
	for _, name := range prog.Order {
		c, err := b.build(prog.Defs[name])
		if err != nil {
			return nil, err
		}
		*b.slots[name] = c
	}
	root, err := b.build(prog.Root)
	if err != nil {
		return nil, err
	}
	*b.slots[""] = root
	return root, nil
}

func (b *builder) build(s ir.Schema) (Check, error) {
	body, err := b.body(s)
	if err != nil {
		return nil, err
	}
	base := s.Common()
	var preds []Predicate
	for _, r := range base.Rules {
		prg, err := b.rules.Get(r.Expr)
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{Program: prg, Message: r.Message})
	}
	nullable := base.Nullable
	if !nullable && len(preds) == 0 {
		return body, nil
	}
	return func(v any, p skemac.Pointer, iss *skemac.Issues) {
		if nullable && v == nil {
			return
		}
		if len(preds) > 0 {
			defer Rules(v, p, iss, len(*iss), preds...)
		}
		body(v, p, iss)
	}, nil
}

func (b *builder) buildAll(ss []ir.Schema) ([]Check, error) {
	out := make([]Check, 0, len(ss))
	for _, s := range ss {
		c, err := b.build(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *builder) body(s ir.Schema) (Check, error) {
	switch n := s.(type) {
	case *ir.Primitive:
		return b.primitive(n)
	case *ir.Array:
		return b.array(n)
	case *ir.Tuple:
		return b.tuple(n)
	case *ir.Object:
		return b.object(n)
	case *ir.OneOf:
		return b.oneOf(n)
	case *ir.AnyOf:
		vs, err := b.buildAll(n.Variants)
		if err != nil {
			return nil, err
		}
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { AnyOf(v, p, iss, vs...) }, nil
	case *ir.AllOf:
		parts, err := b.buildAll(n.Parts)
		if err != nil {
			return nil, err
		}
		return func(v any, p skemac.Pointer, iss *skemac.Issues) {
			for _, c := range parts {
				c(v, p, iss)
			}
		}, nil
	case *ir.Enum:
		values := n.Values
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { Enum(v, p, iss, values...) }, nil
	case *ir.Ref:
		slot, ok := b.slots[n.Name]
		if !ok {
			return nil, &skemac.Error{Err: skemac.ErrReferenceNotFound, Detail: "definition " + n.Name}
		}
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { (*slot)(v, p, iss) }, nil
	case *ir.Any:
		return func(any, skemac.Pointer, *skemac.Issues) {}, nil
	}
	return nil, unsupported("ir node " + s.Kind().String())
}

func (b *builder) primitive(n *ir.Primitive) (Check, error) {
	coerce := b.coerce
	switch n.Name {
	case ir.TypeString:
		var re *regexp.Regexp
		if n.Pattern != "" {
			var err error
			if re, err = regexp.Compile(n.Pattern); err != nil {
				return nil, unsupported(err.Error())
			}
		}
		var check formats.Checker
		if n.Format != "" {
			check, _ = formats.Lookup(n.Format)
		}
		return func(v any, p skemac.Pointer, iss *skemac.Issues) {
			s, ok := String(v, p, iss)
			if !ok {
				return
			}
			if n.MinLength != nil {
				MinLength(s, p, iss, *n.MinLength)
			}
			if n.MaxLength != nil {
				MaxLength(s, p, iss, *n.MaxLength)
			}
			if re != nil {
				Pattern(s, p, iss, re)
			}
			if check != nil {
				Format(s, p, iss, n.Format, check)
			}
		}, nil
	case ir.TypeNumber, ir.TypeInteger:
		assert := Number
		if n.Name == ir.TypeInteger {
			assert = Integer
		}
		return func(v any, p skemac.Pointer, iss *skemac.Issues) {
			f, ok := assert(v, p, iss, coerce)
			if !ok {
				return
			}
			if n.Min != nil {
				Minimum(f, p, iss, *n.Min, n.ExMin)
			}
			if n.Max != nil {
				Maximum(f, p, iss, *n.Max, n.ExMax)
			}
			if n.MultipleOf != nil {
				MultipleOf(f, p, iss, *n.MultipleOf)
			}
		}, nil
	case ir.TypeBoolean:
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { Boolean(v, p, iss, coerce) }, nil
	case ir.TypeNull:
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { Null(v, p, iss) }, nil
	}
	return nil, unsupported("primitive " + n.Name)
}

func (b *builder) array(n *ir.Array) (Check, error) {
	var item Check
	if n.Item != nil {
		var err error
		if item, err = b.build(n.Item); err != nil {
			return nil, err
		}
	}
	return func(v any, p skemac.Pointer, iss *skemac.Issues) {
		a, ok := Array(v, p, iss)
		if !ok {
			return
		}
		if n.MinItems != nil {
			MinItems(a, p, iss, *n.MinItems)
		}
		if n.MaxItems != nil {
			MaxItems(a, p, iss, *n.MaxItems)
		}
		if n.Unique {
			Unique(a, p, iss)
		}
		if item != nil {
			Items(a, p, iss, item)
		}
	}, nil
}

func (b *builder) tuple(n *ir.Tuple) (Check, error) {
	items, err := b.buildAll(n.Items)
	if err != nil {
		return nil, err
	}
	var rest Check
	if n.Rest != nil {
		if rest, err = b.build(n.Rest); err != nil {
			return nil, err
		}
	}
	return func(v any, p skemac.Pointer, iss *skemac.Issues) {
		a, ok := Array(v, p, iss)
		if !ok {
			return
		}
		if n.MaxItems != nil {
			MaxItems(a, p, iss, *n.MaxItems)
		}
		if n.Unique {
			Unique(a, p, iss)
		}
		Tuple(a, p, iss, n.MinItems, n.Closed, rest, items...)
	}, nil
}

func (b *builder) object(n *ir.Object) (Check, error) {
	fields := make([]Check, len(n.Fields))
	known := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		c, err := b.build(f.Schema)
		if err != nil {
			return nil, err
		}
		fields[i], known[i] = c, f.Name
	}
	required := n.RequiredKeys()
	var additional Check
	if n.UnknownPolicy == ir.UnknownSchema && n.Additional != nil {
		var err error
		if additional, err = b.build(n.Additional); err != nil {
			return nil, err
		}
	}
	var keyRE *regexp.Regexp
	if n.KeyPattern != "" {
		var err error
		if keyRE, err = regexp.Compile(n.KeyPattern); err != nil {
			return nil, unsupported(err.Error())
		}
	}
	return func(v any, p skemac.Pointer, iss *skemac.Issues) {
		m, ok := Object(v, p, iss)
		if !ok {
			return
		}
		Required(m, p, iss, required...)
		for i, c := range fields {
			Field(m, p, iss, known[i], c)
		}
		switch {
		case n.UnknownPolicy == ir.UnknownStrict:
			Unknown(m, p, iss, known...)
		case additional != nil:
			Additional(m, p, iss, additional, known...)
		}
		if keyRE != nil {
			KeyPattern(m, p, iss, keyRE)
		}
	}, nil
}

func (b *builder) oneOf(n *ir.OneOf) (Check, error) {
	vs, err := b.buildAll(n.Variants)
	if err != nil {
		return nil, err
	}
	if n.Discriminator == "" {
		return func(v any, p skemac.Pointer, iss *skemac.Issues) { OneOf(v, p, iss, vs...) }, nil
	}
	byTag := make(map[string]Check, len(n.Mapping))
	for tag, i := range n.Mapping {
		byTag[tag] = vs[i]
	}
	prop := n.Discriminator
	return func(v any, p skemac.Pointer, iss *skemac.Issues) { Tagged(v, p, iss, prop, byTag) }, nil
}
