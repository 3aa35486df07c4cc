package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/rules"
	"github.com/reoring/skemac/schema"
)

// unsupportedKeys have no node equivalent. A subtree using one is embedded
// verbatim when it holds no $ref.
var unsupportedKeys = []string{
	"not", "if", "then", "else", "dependencies", "dependentRequired", "dependentSchemas",
	"minProperties", "maxProperties", "unevaluatedProperties", "unevaluatedItems",
	"contentMediaType", "contentEncoding",
}

// handledExtensions are consumed by the importer and never become extensions.
var handledExtensions = map[string]bool{
	"x-rules":                              true,
	"x-key-pattern":                        true,
	"x-kubernetes-preserve-unknown-fields": true,
	"x-kubernetes-int-or-string":           true,
	"x-kubernetes-embedded-resource":       true,
	"x-kubernetes-list-type":               true,
	"x-kubernetes-list-map-keys":           true,
	"x-kubernetes-validations":             true,
}

// node converts the schema value v found at pointer at.
func (im *importer) node(doc *document, v any, at string) (*schema.Node, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return im.b.Unknown(), nil
		}
		return im.b.Custom(map[string]any{"not": map[string]any{}}), nil
	case map[string]any:
		return im.object(doc, t, at)
	default:
		return nil, fmt.Errorf("importer: %s: schema must be an object or boolean, got %T", orRoot(at), v)
	}
}

func (im *importer) object(doc *document, m map[string]any, at string) (*schema.Node, error) {
	nullable, _ := m["nullable"].(bool)
	if raw, ok := m["$ref"].(string); ok {
		n, err := im.ref(doc, raw, at)
		if err != nil {
			return nil, err
		}
		if nullable {
			n = im.b.Nullable(n)
		}
		return n, nil
	}
	if keys := im.unsupported(m); len(keys) > 0 {
		if !hasRef(m) {
			return im.b.Custom(m), nil
		}
		im.d.warnf("%s: ignoring %s (subtree holds references)", orRoot(at), strings.Join(keys, ", "))
	}
	types := typeList(m)
	if i := indexOf(types, "null"); i >= 0 && (len(types) > 1 || hasComposite(m)) {
		nullable = true
		types = append(types[:i:i], types[i+1:]...)
	}
	opts := im.meta(m, at)
	base, err := im.typed(doc, m, types, at)
	if err != nil {
		return nil, err
	}
	comp, err := im.composite(doc, m, at)
	if err != nil {
		return nil, err
	}
	var n *schema.Node
	switch {
	case base != nil && comp != nil:
		n = im.b.Intersection([]*schema.Node{base, comp}, opts...)
	case comp != nil:
		n = dsl.Apply(comp, opts...)
	case base != nil:
		n = dsl.Apply(base, opts...)
	default:
		n = im.b.Unknown(opts...)
	}
	if nullable {
		n = im.b.Nullable(n)
	}
	return n, nil
}

func (im *importer) unsupported(m map[string]any) []string {
	var keys []string
	for _, k := range unsupportedKeys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	if pp, ok := m["patternProperties"].(map[string]any); ok {
		_, props := m["properties"]
		if props || len(pp) > 1 {
			keys = append(keys, "patternProperties")
		}
	}
	if pn, ok := m["propertyNames"].(map[string]any); ok {
		if _, pat := pn["pattern"]; !pat || len(pn) > 1 {
			keys = append(keys, "propertyNames")
		}
	}
	if ap, ok := m["additionalProperties"].(map[string]any); ok && len(ap) > 0 {
		if _, props := m["properties"]; props {
			keys = append(keys, "additionalProperties")
		}
	}
	if c, ok := m["contains"]; ok {
		if _, ok := containsPredicate(c); !ok {
			keys = append(keys, "contains")
		}
	}
	return keys
}

// typed builds the node for the declared (or inferred) types. It returns nil
// when the schema only combines subschemas.
func (im *importer) typed(doc *document, m map[string]any, types []string, at string) (*schema.Node, error) {
	if b, _ := m["x-kubernetes-int-or-string"].(bool); b {
		return im.b.Union([]*schema.Node{im.b.Integer(), im.b.String()}), nil
	}
	if vs, ok := m["enum"].([]any); ok {
		return im.b.Enum(vs), nil
	}
	if c, ok := m["const"]; ok {
		return im.b.Const(c), nil
	}
	if len(types) == 0 {
		types = inferTypes(m)
	}
	switch len(types) {
	case 0:
		return nil, nil
	case 1:
		return im.single(doc, m, types[0], at)
	}
	variants := make([]*schema.Node, 0, len(types))
	for _, t := range types {
		n, err := im.single(doc, m, t, at)
		if err != nil {
			return nil, err
		}
		variants = append(variants, n)
	}
	return im.b.Union(variants), nil
}

func (im *importer) single(doc *document, m map[string]any, t, at string) (*schema.Node, error) {
	switch t {
	case "string":
		return im.b.String(stringOptions(m)...), nil
	case "number":
		return im.b.Number(numberOptions(m)...), nil
	case "integer":
		return im.b.Integer(numberOptions(m)...), nil
	case "boolean":
		return im.b.Boolean(), nil
	case "null":
		return im.b.Null(), nil
	case "object":
		return im.objectType(doc, m, at)
	case "array":
		return im.arrayType(doc, m, at)
	}
	return nil, fmt.Errorf("importer: %s: unknown type %q", orRoot(at), t)
}

func stringOptions(m map[string]any) []dsl.Option {
	var opts []dsl.Option
	if n, ok := count(m["minLength"]); ok {
		opts = append(opts, dsl.MinLength(n))
	}
	if n, ok := count(m["maxLength"]); ok {
		opts = append(opts, dsl.MaxLength(n))
	}
	if p, ok := m["pattern"].(string); ok {
		opts = append(opts, dsl.Pattern(p))
	}
	if f, ok := m["format"].(string); ok {
		opts = append(opts, dsl.Format(f))
	}
	return opts
}

// numberOptions accepts both exclusive bound forms: the boolean modifier of
// OpenAPI 3.0 and the numeric bound of later drafts.
func numberOptions(m map[string]any) []dsl.Option {
	var opts []dsl.Option
	exMin, _ := m["exclusiveMinimum"].(bool)
	exMax, _ := m["exclusiveMaximum"].(bool)
	if v, ok := num(m["minimum"]); ok {
		if exMin {
			opts = append(opts, dsl.ExclusiveMinimum(v))
		} else {
			opts = append(opts, dsl.Minimum(v))
		}
	}
	if v, ok := num(m["maximum"]); ok {
		if exMax {
			opts = append(opts, dsl.ExclusiveMaximum(v))
		} else {
			opts = append(opts, dsl.Maximum(v))
		}
	}
	if v, ok := num(m["exclusiveMinimum"]); ok {
		opts = append(opts, dsl.ExclusiveMinimum(v))
	}
	if v, ok := num(m["exclusiveMaximum"]); ok {
		opts = append(opts, dsl.ExclusiveMaximum(v))
	}
	if v, ok := num(m["multipleOf"]); ok && v > 0 {
		opts = append(opts, dsl.MultipleOf(v))
	}
	return opts
}

func (im *importer) objectType(doc *document, m map[string]any, at string) (*schema.Node, error) {
	props, _ := m["properties"].(map[string]any)
	if len(props) == 0 {
		if rec, err := im.record(doc, m, at); rec != nil || err != nil {
			return rec, err
		}
	}
	required := map[string]bool{}
	for _, r := range stringList(m["required"]) {
		required[r] = true
	}
	embedded := im.embeddedKeys(m)
	for _, k := range embedded {
		required[k] = true
	}
	ob := im.b.Object()
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		c, err := im.node(doc, props[k], at+"/properties/"+Escape(k))
		if err != nil {
			return nil, err
		}
		if required[k] {
			ob.Field(k, c)
		} else {
			ob.Optional(k, c)
		}
	}
	for _, k := range stringList(m["required"]) {
		if _, ok := props[k]; !ok {
			ob.Field(k, im.b.Unknown())
		}
	}
	for _, k := range embedded {
		if _, ok := props[k]; !ok {
			ob.Field(k, im.b.String(dsl.MinLength(1)))
		}
	}
	switch im.unknownPolicy(m, at) {
	case UnknownStrict:
		ob.Strict()
	case UnknownPrune:
		ob.Strip()
	default:
		ob.Passthrough()
	}
	return ob.Build(), nil
}

// record maps a property-less object with additionalProperties or a single
// patternProperties entry to a record. It returns nil when neither is set.
func (im *importer) record(doc *document, m map[string]any, at string) (*schema.Node, error) {
	var pattern string
	if pn, ok := m["propertyNames"].(map[string]any); ok {
		pattern, _ = pn["pattern"].(string)
	}
	if pattern == "" {
		pattern, _ = m["x-key-pattern"].(string)
	}
	var value any
	var where string
	if pp, ok := m["patternProperties"].(map[string]any); ok && len(pp) == 1 {
		for k, v := range pp {
			pattern, value, where = k, v, at+"/patternProperties/"+Escape(k)
		}
	} else if ap, ok := m["additionalProperties"]; ok {
		if b, isBool := ap.(bool); isBool && !b {
			return nil, nil
		}
		value, where = ap, at+"/additionalProperties"
	} else {
		return nil, nil
	}
	vn, err := im.node(doc, value, where)
	if err != nil {
		return nil, err
	}
	var opts []dsl.Option
	if pattern != "" {
		opts = append(opts, dsl.KeyPattern(pattern))
	}
	return im.b.Record(vn, opts...), nil
}

// unknownPolicy applies the handling of undeclared keys: the document's
// explicit markers first, then the configured behavior.
func (im *importer) unknownPolicy(m map[string]any, at string) UnknownBehavior {
	if ap, ok := m["additionalProperties"].(bool); ok && !ap {
		return UnknownStrict
	}
	if p, _ := m["x-kubernetes-preserve-unknown-fields"].(bool); p {
		if im.opts.Unknown == UnknownStrict {
			im.d.warnf("%s: preserve-unknown-fields overrides strict unknown handling", orRoot(at))
		}
		return UnknownPreserve
	}
	switch im.opts.Unknown {
	case UnknownDefault:
		if im.crd {
			return UnknownPrune
		}
		return UnknownPreserve
	default:
		return im.opts.Unknown
	}
}

func (im *importer) arrayType(doc *document, m map[string]any, at string) (*schema.Node, error) {
	var opts []dsl.Option
	if n, ok := count(m["minItems"]); ok {
		opts = append(opts, dsl.MinItems(n))
	}
	if n, ok := count(m["maxItems"]); ok {
		opts = append(opts, dsl.MaxItems(n))
	}
	if u, _ := m["uniqueItems"].(bool); u {
		opts = append(opts, dsl.UniqueItems())
	}
	opts = append(opts, im.listRules(m, at)...)
	var (
		prefix []any
		key    string
	)
	if p, ok := m["prefixItems"].([]any); ok {
		prefix, key = p, "prefixItems"
	} else if p, ok := m["items"].([]any); ok {
		prefix, key = p, "items"
	}
	if key != "" {
		return im.tuple(doc, m, prefix, key, at, opts)
	}
	var item *schema.Node
	if it, ok := m["items"]; ok {
		var err error
		if item, err = im.node(doc, it, at+"/items"); err != nil {
			return nil, err
		}
	} else {
		item = im.b.Unknown()
	}
	return im.b.Array(item, opts...), nil
}

// tuple maps positional items. Positions past minItems are optional; the rest
// comes from additionalItems (draft-07) or items (2020-12 with prefixItems).
func (im *importer) tuple(doc *document, m map[string]any, prefix []any, key, at string, opts []dsl.Option) (*schema.Node, error) {
	minItems, _ := count(m["minItems"])
	items := make([]*schema.Node, 0, len(prefix))
	for i, p := range prefix {
		n, err := im.node(doc, p, fmt.Sprintf("%s/%s/%d", at, key, i))
		if err != nil {
			return nil, err
		}
		if i >= minItems {
			n = im.b.Optional(n)
		}
		items = append(items, n)
	}
	restKey := "additionalItems"
	if key == "prefixItems" {
		restKey = "items"
	}
	rest, ok := m[restKey]
	if b, isBool := rest.(bool); isBool && !b {
		return im.b.Tuple(items, opts...), nil
	}
	if !ok {
		rest = true
	}
	rn, err := im.node(doc, rest, at+"/"+restKey)
	if err != nil {
		return nil, err
	}
	return im.b.TupleRest(items, rn, opts...), nil
}

// composite builds anyOf, oneOf and allOf. Several keywords on one schema
// intersect.
func (im *importer) composite(doc *document, m map[string]any, at string) (*schema.Node, error) {
	var parts []*schema.Node
	for _, key := range []string{"anyOf", "oneOf", "allOf"} {
		list, ok := m[key].([]any)
		if !ok {
			continue
		}
		nodes := make([]*schema.Node, 0, len(list))
		for i, v := range list {
			n, err := im.node(doc, v, fmt.Sprintf("%s/%s/%d", at, key, i))
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		switch key {
		case "anyOf":
			parts = append(parts, im.b.Union(nodes))
		case "oneOf":
			parts = append(parts, im.oneOf(doc, m, list, nodes, at))
		case "allOf":
			if len(nodes) == 1 {
				parts = append(parts, nodes[0])
				continue
			}
			parts = append(parts, im.b.Intersection(nodes))
		}
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	return im.b.Intersection(parts), nil
}

// oneOf keeps a declared discriminator when every variant pins the property
// to a constant; otherwise the union is plain.
func (im *importer) oneOf(doc *document, m map[string]any, list []any, nodes []*schema.Node, at string) *schema.Node {
	prop := discriminatorProperty(m)
	if prop == "" {
		return im.b.Union(nodes)
	}
	for i, v := range list {
		if !im.pinsProperty(doc, v, prop, 0) {
			im.d.warnf("%s/oneOf/%d: variant does not pin discriminator %q; importing a plain union", orRoot(at), i, prop)
			return im.b.Union(nodes)
		}
	}
	return im.b.DiscriminatedUnion(prop, nodes)
}

func discriminatorProperty(m map[string]any) string {
	switch d := m["discriminator"].(type) {
	case map[string]any:
		s, _ := d["propertyName"].(string)
		return s
	case string:
		return d
	}
	return ""
}

// pinsProperty reports whether the variant schema v requires prop with a
// single constant value, following local references.
func (im *importer) pinsProperty(doc *document, v any, prop string, depth int) bool {
	m, _ := v.(map[string]any)
	if m == nil || depth > 8 {
		return false
	}
	if raw, ok := m["$ref"].(string); ok {
		target, frag, err := im.locate(doc, raw)
		if err != nil {
			return false
		}
		tv, ok := lookup(target.root, frag)
		return ok && im.pinsProperty(target, tv, prop, depth+1)
	}
	if all, ok := m["allOf"].([]any); ok {
		for _, part := range all {
			if im.pinsProperty(doc, part, prop, depth+1) {
				return true
			}
		}
	}
	p, _ := lookup(m, "/properties/"+Escape(prop))
	pm, _ := p.(map[string]any)
	if pm == nil {
		return false
	}
	if _, ok := pm["const"]; ok {
		return true
	}
	vs, _ := pm["enum"].([]any)
	return len(vs) == 1
}

// meta converts annotations, rules and extensions into node options.
func (im *importer) meta(m map[string]any, at string) []dsl.Option {
	var opts []dsl.Option
	if s, ok := m["title"].(string); ok {
		opts = append(opts, dsl.Title(s))
	}
	if s, ok := m["description"].(string); ok {
		opts = append(opts, dsl.Describe(s))
	}
	if v, ok := m["default"]; ok {
		opts = append(opts, dsl.Default(v))
	}
	if b, _ := m["readOnly"].(bool); b {
		opts = append(opts, dsl.ReadOnly())
	}
	if b, _ := m["deprecated"].(bool); b {
		opts = append(opts, dsl.Deprecated())
	}
	if vs, ok := m["examples"].([]any); ok {
		opts = append(opts, dsl.Examples(vs...))
	}
	if v, ok := m["example"]; ok {
		opts = append(opts, dsl.Examples(v))
	}
	opts = append(opts, im.rules(m["x-rules"], "x-rules", at)...)
	if im.opts.EnableCEL {
		opts = append(opts, im.rules(m["x-kubernetes-validations"], "x-kubernetes-validations", at)...)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, "x-") && !handledExtensions[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, dsl.Extension(k, m[k]))
	}
	return opts
}

// rules accepts a list of expressions or of {rule|expr, message} objects.
// Expressions that fail to compile are dropped with a warning.
func (im *importer) rules(v any, key, at string) []dsl.Option {
	list, _ := v.([]any)
	var opts []dsl.Option
	for i, item := range list {
		var expr, msg string
		switch t := item.(type) {
		case string:
			expr = t
		case map[string]any:
			expr, _ = t["rule"].(string)
			if expr == "" {
				expr, _ = t["expr"].(string)
			}
			msg, _ = t["message"].(string)
		}
		if expr == "" {
			im.d.warnf("%s/%s/%d: empty rule", orRoot(at), key, i)
			continue
		}
		if _, err := rules.Compile(expr); err != nil {
			im.d.warnf("%s/%s/%d: dropping rule: %v", orRoot(at), key, i, err)
			continue
		}
		opts = append(opts, dsl.Rule(expr, msg))
	}
	return opts
}

func typeList(m map[string]any) []string {
	switch t := m["type"].(type) {
	case string:
		return []string{t}
	case []any:
		return stringList(t)
	}
	return nil
}

// inferTypes guesses the type of an untyped schema from its keywords.
func inferTypes(m map[string]any) []string {
	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := m[k]; ok {
				return true
			}
		}
		return false
	}
	switch {
	case has("properties", "required", "additionalProperties", "patternProperties", "propertyNames", "x-kubernetes-preserve-unknown-fields"):
		return []string{"object"}
	case has("items", "prefixItems", "minItems", "maxItems", "uniqueItems"):
		return []string{"array"}
	case has("minLength", "maxLength", "pattern", "format"):
		return []string{"string"}
	case has("minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf"):
		return []string{"number"}
	}
	return nil
}

func hasComposite(m map[string]any) bool {
	for _, k := range []string{"anyOf", "oneOf", "allOf"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, it := range list {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func count(v any) (int, bool) {
	f, ok := num(v)
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}

func orRoot(at string) string {
	if at == "" {
		return "#"
	}
	return "#" + at
}
