package schema

import (
	"github.com/reoring/skemac"
)

// StringOptions configures a string node.
type StringOptions struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string // date-time, email, uuid, ... (see formats package)
}

// NumberOptions configures number and integer nodes.
type NumberOptions struct {
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64
}

// UnknownPolicy controls how keys outside the declared properties are handled.
type UnknownPolicy int

const (
	UnknownPassthrough UnknownPolicy = iota // Accept and keep unknown keys.
	UnknownStrict                           // Reject unknown keys.
	UnknownStrip                            // Accept then drop unknown keys.
)

// ObjectOptions configures an object node. Keys is parallel to the node's
// children: Keys[i] names Children[i].
type ObjectOptions struct {
	Keys    []string
	Unknown UnknownPolicy
}

// ArrayOptions configures an array node.
type ArrayOptions struct {
	MinItems *int
	MaxItems *int
	Unique   bool
}

// TupleOptions configures a tuple node. When Rest is true the last child
// describes any items beyond the fixed positions.
type TupleOptions struct {
	Rest bool
}

// RecordOptions configures a record node (string keys, uniform values).
type RecordOptions struct {
	KeyPattern string
}

// UnionOptions configures a union node.
type UnionOptions struct {
	// Discriminator names the property whose constant value selects the branch.
	Discriminator string
}

// EnumOptions configures an enum node.
type EnumOptions struct {
	Values []any
}

// ConstOptions configures a const node.
type ConstOptions struct {
	Value any
}

// ValidatorOptions configures a validator wrapper node.
type ValidatorOptions struct {
	Mode    skemac.ValidatorMode
	Assert  bool // Source mode also emits a Must function that panics on issues.
	Coerce  bool // Accept string encodings of numbers and booleans.
	Formats bool // Check string formats.
}

// CustomOptions configures an opaque node rendered from a raw fragment or a
// remote document.
type CustomOptions struct {
	Schema map[string]any
	Remote string
}
