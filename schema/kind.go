package schema

// Kind is the closed set of node kinds.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindNull
	KindUnknown
	KindObject
	KindArray
	KindTuple
	KindRecord
	KindUnion
	KindIntersection
	KindEnum
	KindConst
	KindOptional
	KindNullable
	KindRef
	KindValidator
	KindCustom

	// KindCount is the number of kinds; tables indexed by Kind use it as length.
	KindCount
)

var kindNames = [KindCount]string{
	KindString:       "string",
	KindNumber:       "number",
	KindInteger:      "integer",
	KindBoolean:      "boolean",
	KindNull:         "null",
	KindUnknown:      "unknown",
	KindObject:       "object",
	KindArray:        "array",
	KindTuple:        "tuple",
	KindRecord:       "record",
	KindUnion:        "union",
	KindIntersection: "intersection",
	KindEnum:         "enum",
	KindConst:        "const",
	KindOptional:     "optional",
	KindNullable:     "nullable",
	KindRef:          "ref",
	KindValidator:    "validator",
	KindCustom:       "custom",
}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return "invalid"
}

// Commutative reports whether k is a structurally transparent wrapper around
// exactly one child. optional, nullable and ref compose in any order.
func (k Kind) Commutative() bool {
	return k == KindOptional || k == KindNullable || k == KindRef
}

// Primitive reports whether k has no children.
func (k Kind) Primitive() bool {
	return k <= KindUnknown
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, KindCount)
	for k := Kind(0); k < KindCount; k++ {
		out = append(out, k)
	}
	return out
}
