// Package ir defines the intermediate representation shared by the validator
// evaluator and the validator source generator. This package is internal and
// not part of the public API.
package ir

import "slices"

// NodeKind identifies an IR node type.
type NodeKind int

const (
	NodePrimitive NodeKind = iota
	NodeArray
	NodeObject
	NodeOneOf
	NodeAnyOf
	NodeAllOf
	NodeEnum
	NodeTuple
	NodeRef
	NodeAny
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeArray:
		return "array"
	case NodeObject:
		return "object"
	case NodeOneOf:
		return "oneOf"
	case NodeAnyOf:
		return "anyOf"
	case NodeAllOf:
		return "allOf"
	case NodeEnum:
		return "enum"
	case NodeTuple:
		return "tuple"
	case NodeRef:
		return "ref"
	case NodeAny:
		return "any"
	}
	return "unknown"
}

// Schema is the root IR node interface.
type Schema interface {
	Kind() NodeKind
	Common() *Base
}

// Rule is a CEL predicate over `self`.
type Rule struct {
	Expr    string
	Message string
}

// Base holds what every node may carry. Nullable nodes accept null before
// any other check runs; rules run after the node's own checks pass.
type Base struct {
	Nullable bool
	Rules    []Rule
}

func (b *Base) Common() *Base { return b }

// JSON type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Primitive represents string/boolean/number/integer/null.
type Primitive struct {
	Base
	Name string // One of the scalar type names.

	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	Min        *float64
	Max        *float64
	ExMin      bool // Min is exclusive.
	ExMax      bool // Max is exclusive.
	MultipleOf *float64
}

func (p *Primitive) Kind() NodeKind { return NodePrimitive }

// Array represents an array of uniform items.
type Array struct {
	Base
	Item     Schema // nil accepts any item.
	MinItems *int
	MaxItems *int
	Unique   bool
}

func (a *Array) Kind() NodeKind { return NodeArray }

// Tuple represents a positional array. Items past the fixed prefix are
// checked against Rest, or rejected when Closed.
type Tuple struct {
	Base
	Items    []Schema
	MinItems int
	MaxItems *int
	Rest     Schema
	Closed   bool
	Unique   bool
}

func (t *Tuple) Kind() NodeKind { return NodeTuple }

// Unknown key policies.
const (
	UnknownAllow = iota
	UnknownStrict
	UnknownSchema // Check unknown keys against Object.Additional.
)

// Object represents an object with fields and policies.
type Object struct {
	Base
	Fields        []Field
	Required      map[string]struct{}
	UnknownPolicy int
	Additional    Schema
	KeyPattern    string
}

func (o *Object) Kind() NodeKind { return NodeObject }

// RequiredKeys returns the required keys in field order, followed by
// required keys without a field in sorted order.
func (o *Object) RequiredKeys() []string {
	out := make([]string, 0, len(o.Required))
	seen := map[string]bool{}
	for _, f := range o.Fields {
		if _, ok := o.Required[f.Name]; ok {
			out = append(out, f.Name)
			seen[f.Name] = true
		}
	}
	var rest []string
	for k := range o.Required {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// Field maps a JSON name to a Schema.
type Field struct {
	Name   string
	Schema Schema
}

// OneOf represents an exclusive union. With a Discriminator, Mapping selects
// the variant index from the discriminator value.
type OneOf struct {
	Base
	Discriminator string
	Mapping       map[string]int
	Variants      []Schema
}

func (u *OneOf) Kind() NodeKind { return NodeOneOf }

// Tags returns the discriminator values in sorted order.
func (u *OneOf) Tags() []string {
	out := make([]string, 0, len(u.Mapping))
	for k := range u.Mapping {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// AnyOf represents an inclusive union.
type AnyOf struct {
	Base
	Variants []Schema
}

func (u *AnyOf) Kind() NodeKind { return NodeAnyOf }

// AllOf represents an intersection.
type AllOf struct {
	Base
	Parts []Schema
}

func (a *AllOf) Kind() NodeKind { return NodeAllOf }

// Enum accepts one of Values, compared as JSON.
type Enum struct {
	Base
	Values []any
}

func (e *Enum) Kind() NodeKind { return NodeEnum }

// Ref points at a definition; the empty name is the program root.
type Ref struct {
	Base
	Name string
}

func (r *Ref) Kind() NodeKind { return NodeRef }

// Any accepts every value.
type Any struct{ Base }

func (a *Any) Kind() NodeKind { return NodeAny }

// Program is a lowered document.
type Program struct {
	Root  Schema
	Defs  map[string]Schema
	Order []string // Definition names in sorted order.
	// Title names the document root in generated comments.
	Title string
}

// Walk calls fn for every node reachable from s without following refs.
func Walk(s Schema, fn func(Schema)) {
	if s == nil {
		return
	}
	fn(s)
	switch n := s.(type) {
	case *Array:
		Walk(n.Item, fn)
	case *Tuple:
		for _, it := range n.Items {
			Walk(it, fn)
		}
		Walk(n.Rest, fn)
	case *Object:
		for _, f := range n.Fields {
			Walk(f.Schema, fn)
		}
		Walk(n.Additional, fn)
	case *OneOf:
		for _, v := range n.Variants {
			Walk(v, fn)
		}
	case *AnyOf:
		for _, v := range n.Variants {
			Walk(v, fn)
		}
	case *AllOf:
		for _, p := range n.Parts {
			Walk(p, fn)
		}
	}
}

// WalkProgram walks the root and every definition in order.
func (p *Program) WalkProgram(fn func(Schema)) {
	Walk(p.Root, fn)
	for _, name := range p.Order {
		Walk(p.Defs[name], fn)
	}
}
