package schema

// Rule is a custom predicate attached to a node, written as a CEL expression
// over the variable `self`.
type Rule struct {
	Expr    string
	Message string
}

// Meta carries cross-cutting annotations. It does not affect dispatch.
type Meta struct {
	Title       string
	Description string
	Default     any
	HasDefault  bool
	ReadOnly    bool
	Deprecated  bool
	Examples    []any
	// Extensions render verbatim in every dialect; keys should start with "x-".
	Extensions map[string]any
	// OpenAPI annotations render only in the API-description dialect.
	OpenAPI map[string]any
	Rules   []Rule
}

// IsZero reports whether no annotation is set.
func (m *Meta) IsZero() bool {
	return m.Title == "" && m.Description == "" && !m.HasDefault && !m.ReadOnly && !m.Deprecated &&
		len(m.Examples) == 0 && len(m.Extensions) == 0 && len(m.OpenAPI) == 0 && len(m.Rules) == 0
}
