package importer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/skemac/dsl"
)

// listRules maps x-kubernetes-list-type and contains to array options. Set
// lists become unique items; map lists and contains become CEL rules.
func (im *importer) listRules(m map[string]any, at string) []dsl.Option {
	var opts []dsl.Option
	switch lt, _ := m["x-kubernetes-list-type"].(string); lt {
	case "set":
		opts = append(opts, dsl.UniqueItems())
	case "map":
		keys := stringList(m["x-kubernetes-list-map-keys"])
		if len(keys) == 0 {
			im.d.warnf("%s: list-type map without list-map-keys", orRoot(at))
			break
		}
		opts = append(opts, dsl.Rule(mapKeysRule(keys), "duplicate entries for list-map-keys "+strings.Join(keys, ", ")))
	case "", "atomic":
	default:
		im.d.warnf("%s: unknown list-type %q", orRoot(at), lt)
	}
	if c, ok := m["contains"]; ok {
		if pred, ok := containsPredicate(c); ok {
			opts = append(opts, containsRules(pred, m)...)
		}
	}
	return opts
}

// mapKeysRule requires the composite key of every element to be unique.
func mapKeysRule(keys []string) string {
	eq := make([]string, len(keys))
	for i, k := range keys {
		q := strconv.Quote(k)
		eq[i] = fmt.Sprintf("y[%s] == x[%s]", q, q)
	}
	return fmt.Sprintf("self.all(x, self.exists_one(y, %s))", strings.Join(eq, " && "))
}

func containsRules(pred string, m map[string]any) []dsl.Option {
	minC, hasMin := count(m["minContains"])
	maxC, hasMax := count(m["maxContains"])
	if !hasMin {
		minC = 1
	}
	var opts []dsl.Option
	switch {
	case minC == 1 && !hasMax:
		return []dsl.Option{dsl.Rule(fmt.Sprintf("self.exists(x, %s)", pred), "must contain a matching element")}
	case minC > 0:
		opts = append(opts, dsl.Rule(fmt.Sprintf("self.filter(x, %s).size() >= %d", pred, minC),
			fmt.Sprintf("must contain at least %d matching elements", minC)))
	}
	if hasMax {
		opts = append(opts, dsl.Rule(fmt.Sprintf("self.filter(x, %s).size() <= %d", pred, maxC),
			fmt.Sprintf("must contain at most %d matching elements", maxC)))
	}
	return opts
}

// containsPredicate renders a contains subschema as a CEL predicate over x.
// Only type, required, const and enum are understood.
func containsPredicate(v any) (string, bool) {
	m, _ := v.(map[string]any)
	if m == nil {
		return "", false
	}
	var terms []string
	for k := range m {
		switch k {
		case "type", "required", "const", "enum", "title", "description":
		default:
			return "", false
		}
	}
	if t, ok := m["type"]; ok {
		s, _ := t.(string)
		term, ok := typeTerm(s)
		if !ok {
			return "", false
		}
		terms = append(terms, term)
	}
	req := stringList(m["required"])
	sort.Strings(req)
	if len(req) > 0 && m["type"] != "object" {
		terms = append(terms, "type(x) == map")
	}
	for _, k := range req {
		terms = append(terms, strconv.Quote(k)+" in x")
	}
	if c, ok := m["const"]; ok {
		lit, ok := celLiteral(c)
		if !ok {
			return "", false
		}
		terms = append(terms, "x == "+lit)
	}
	if vs, ok := m["enum"].([]any); ok {
		lits := make([]string, len(vs))
		for i, e := range vs {
			lit, ok := celLiteral(e)
			if !ok {
				return "", false
			}
			lits[i] = lit
		}
		terms = append(terms, "x in ["+strings.Join(lits, ", ")+"]")
	}
	if len(terms) == 0 {
		return "true", true
	}
	return strings.Join(terms, " && "), true
}

func typeTerm(t string) (string, bool) {
	switch t {
	case "string":
		return "type(x) == string", true
	case "boolean":
		return "type(x) == bool", true
	case "number":
		return "type(x) in [int, uint, double]", true
	case "object":
		return "type(x) == map", true
	case "array":
		return "type(x) == list", true
	case "null":
		return "x == null", true
	}
	return "", false
}

func celLiteral(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "null", true
	case bool:
		return strconv.FormatBool(t), true
	case string:
		return strconv.Quote(t), true
	}
	f, ok := num(v)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, true
}

// embeddedKeys lists the keys an x-kubernetes-embedded-resource object must
// carry when embedded checks are enabled.
func (im *importer) embeddedKeys(m map[string]any) []string {
	if !im.opts.EnableEmbeddedChecks {
		return nil
	}
	if b, _ := m["x-kubernetes-embedded-resource"].(bool); !b {
		return nil
	}
	return []string{"apiVersion", "kind"}
}
