package jsonschema

import (
	"slices"
)

// nullable widens s to accept null in the current dialect.
func (st *state) nullable(s *Schema) *Schema {
	if st.openapi() {
		return openapiNullable(s)
	}
	return plainNullable(s)
}

// plainNullable has no keyword to use: it widens the type set, adds a null
// member to enums and a null branch to unions, and wraps anything else.
func plainNullable(s *Schema) *Schema {
	switch {
	case s.Ref != "":
		return &Schema{AnyOf: []*Schema{s, {Type: "null"}}}
	case s.Const != nil:
		if s.Const.Value == nil {
			return s
		}
		s.Enum, s.Const = []any{s.Const.Value, nil}, nil
		return s
	case s.Enum != nil:
		if !slices.Contains(s.Enum, any(nil)) {
			s.Enum = append(s.Enum, nil)
		}
		s.Type = widen(s.Type)
		return s
	case s.AnyOf != nil && s.Type == nil:
		if !hasNullBranch(s.AnyOf) {
			s.AnyOf = append(s.AnyOf, &Schema{Type: "null"})
		}
		return s
	case s.OneOf != nil && s.Type == nil:
		if !hasNullBranch(s.OneOf) {
			s.OneOf = append(s.OneOf, &Schema{Type: "null"})
		}
		return s
	case s.Type != nil:
		s.Type = widen(s.Type)
		return s
	case s.AllOf != nil:
		return &Schema{AnyOf: []*Schema{s, {Type: "null"}}}
	}
	// an untyped schema already accepts null
	return s
}

func widen(t any) any {
	switch v := t.(type) {
	case nil:
		return nil
	case string:
		if v == "null" {
			return v
		}
		return []string{v, "null"}
	case []string:
		if slices.Contains(v, "null") {
			return v
		}
		return append(slices.Clone(v), "null")
	}
	return t
}

func hasNullBranch(list []*Schema) bool {
	for _, b := range list {
		if slices.Contains(b.Types(), "null") && len(b.Types()) == 1 && b.Ref == "" {
			return true
		}
	}
	return false
}

// openapiNullable sets the sibling flag. $ref siblings are ignored in 3.0, so
// a reference is wrapped first.
func openapiNullable(s *Schema) *Schema {
	if s.Ref != "" {
		return &Schema{AllOf: []*Schema{s}, Nullable: true}
	}
	s.Nullable = true
	return s
}

func onlyNull(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return len(values) > 0
}

// literalType returns the JSON type shared by every value, or "".
func literalType(values []any) string {
	t := ""
	for _, v := range values {
		var vt string
		switch x := v.(type) {
		case nil:
			continue
		case string:
			vt = "string"
		case bool:
			vt = "boolean"
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			vt = "integer"
		case float32:
			vt = numberType(float64(x))
		case float64:
			vt = numberType(x)
		default:
			return ""
		}
		switch {
		case t == "":
			t = vt
		case t == vt:
		case (t == "integer" && vt == "number") || (t == "number" && vt == "integer"):
			t = "number"
		default:
			return ""
		}
	}
	return t
}

func numberType(f float64) string {
	if f == float64(int64(f)) {
		return "integer"
	}
	return "number"
}
