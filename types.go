package skemac

// Dialect selects the JSON Schema flavour produced by the jsonschema backend.
type Dialect int

const (
	// DialectJSONSchema is the plain-validation dialect (draft-07). It has no
	// nullable keyword, so null is expressed through type arrays and branches.
	DialectJSONSchema Dialect = iota
	// DialectOpenAPI is the OpenAPI 3.0 schema object dialect.
	DialectOpenAPI
)

func (d Dialect) String() string {
	switch d {
	case DialectOpenAPI:
		return "openapi"
	default:
		return "jsonschema"
	}
}

// ParseDialect maps a config/CLI name to a Dialect. Unknown names yield false.
func ParseDialect(s string) (Dialect, bool) {
	switch s {
	case "", "jsonschema", "json-schema", "draft-07":
		return DialectJSONSchema, true
	case "openapi", "openapi3", "oas3":
		return DialectOpenAPI, true
	}
	return DialectJSONSchema, false
}

// ValidatorMode decides how a validator node is compiled.
type ValidatorMode int

const (
	ModeSource    ValidatorMode = iota // Emit standalone source text.
	ModePredicate                      // Build an in-process callable predicate.
)

func (m ValidatorMode) String() string {
	if m == ModePredicate {
		return "predicate"
	}
	return "source"
}
