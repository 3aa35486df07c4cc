package jsonschema

import (
	"bytes"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// DraftURI is the $schema value of the plain-validation dialect.
const DraftURI = "http://json-schema.org/draft-07/schema#"

// Schema is a JSON Schema document or subschema. It covers draft-07 and the
// OpenAPI 3.0 schema object; keys it does not model are kept in Extra.
type Schema struct {
	// Core
	SchemaURI   string   `json:"$schema,omitempty"`
	Ref         string   `json:"$ref,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        any      `json:"type,omitempty"` // string or []string
	Format      string   `json:"format,omitempty"`
	Default     *Literal `json:"default,omitempty"`
	Examples    []any    `json:"examples,omitempty"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty"`
	Nullable    bool     `json:"nullable,omitempty"` // OpenAPI only

	// Values
	Enum  []any    `json:"enum,omitempty"`
	Const *Literal `json:"const,omitempty"`

	// String
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Number. Exclusive bounds are numbers in draft-07 and booleans in OpenAPI.
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum any      `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum any      `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *BoolOrSchema      `json:"additionalProperties,omitempty"`
	PropertyNames        *Schema            `json:"propertyNames,omitempty"`

	// Array
	Items           *Items        `json:"items,omitempty"`
	AdditionalItems *BoolOrSchema `json:"additionalItems,omitempty"`
	MinItems        *int          `json:"minItems,omitempty"`
	MaxItems        *int          `json:"maxItems,omitempty"`
	UniqueItems     bool          `json:"uniqueItems,omitempty"`

	// Composition
	AnyOf         []*Schema      `json:"anyOf,omitempty"`
	OneOf         []*Schema      `json:"oneOf,omitempty"`
	AllOf         []*Schema      `json:"allOf,omitempty"`
	Discriminator *Discriminator `json:"discriminator,omitempty"`

	Definitions map[string]*Schema `json:"definitions,omitempty"`
	Defs        map[string]*Schema `json:"$defs,omitempty"`

	// Rules are CEL predicates over `self`.
	Rules []Rule `json:"x-rules,omitempty"`

	// Extra holds keywords not modelled above (extensions, dialect
	// annotations, raw fragment keys). They are merged on marshal.
	Extra map[string]any `json:"-"`
}

// Rule is one CEL predicate.
type Rule struct {
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// Discriminator is the OpenAPI discriminator object.
type Discriminator struct {
	PropertyName string            `json:"propertyName"`
	Mapping      map[string]string `json:"mapping,omitempty"`
}

// Literal wraps a JSON value so that null can be told apart from absent.
type Literal struct{ Value any }

// Lit returns a literal holding v.
func Lit(v any) *Literal { return &Literal{Value: v} }

func (l *Literal) MarshalJSON() ([]byte, error) { return json.Marshal(l.Value) }

func (l *Literal) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &l.Value) }

// BoolOrSchema is a keyword accepting either a boolean or a subschema.
type BoolOrSchema struct {
	Bool   bool
	Schema *Schema
}

// Allow returns a boolean form.
func Allow(b bool) *BoolOrSchema { return &BoolOrSchema{Bool: b} }

// Sub returns a schema form.
func Sub(s *Schema) *BoolOrSchema { return &BoolOrSchema{Schema: s} }

func (b *BoolOrSchema) MarshalJSON() ([]byte, error) {
	if b.Schema != nil {
		return json.Marshal(b.Schema)
	}
	return json.Marshal(b.Bool)
}

func (b *BoolOrSchema) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		b.Schema = &Schema{}
		return json.Unmarshal(data, b.Schema)
	}
	return json.Unmarshal(data, &b.Bool)
}

// Items is either one schema for every item or a positional list.
type Items struct {
	Single *Schema
	Tuple  []*Schema
}

func (it *Items) MarshalJSON() ([]byte, error) {
	if it.Tuple != nil {
		return json.Marshal(it.Tuple)
	}
	if it.Single == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(it.Single)
}

func (it *Items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &it.Tuple)
	}
	it.Single = &Schema{}
	return json.Unmarshal(data, it.Single)
}

type plain Schema

func (s *Schema) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal((*plain)(s))
	if err != nil || len(s.Extra) == 0 {
		return b, err
	}
	m := map[string]any{}
	for k, v := range s.Extra {
		m[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		m[k] = v
	}
	return json.Marshal(m)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, raw := range all {
		if knownKeys[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if s.Extra == nil {
			s.Extra = map[string]any{}
		}
		s.Extra[k] = v
	}
	return nil
}

var knownKeys = func() map[string]bool {
	out := map[string]bool{}
	t := reflect.TypeOf(plain{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = true
		}
	}
	return out
}()

// Decode parses a document.
func Decode(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromMap converts a raw fragment into a Schema.
func FromMap(m map[string]any) (*Schema, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Types returns the type keyword as a list.
func (s *Schema) Types() []string {
	switch t := s.Type.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Definition looks up a local definition by name in definitions or $defs.
func (s *Schema) Definition(name string) (*Schema, bool) {
	if d, ok := s.Definitions[name]; ok {
		return d, true
	}
	d, ok := s.Defs[name]
	return d, ok
}
