// Package gen renders a lowered validator program as Go source. Runtime
// dependencies are written as require("<import path>").Name loads; the caller
// rewrites them into imports once the text is final.
package gen

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/reoring/skemac/formats"
	"github.com/reoring/skemac/internal/ir"
	"github.com/reoring/skemac/rules"
)

// Import paths loaded by generated code.
const (
	SkemacPath    = "github.com/reoring/skemac"
	ValidatorPath = "github.com/reoring/skemac/validator"
)

// Options name and configure the generated file.
type Options struct {
	Package  string
	FuncName string
	Coerce   bool
	// Assert adds Must<FuncName>, which panics on failure and returns its
	// argument otherwise.
	Assert bool
}

func load(path, name string) string { return `require("` + path + `").` + name }

func sk(name string) string { return load(SkemacPath, name) }

func vl(name string) string { return load(ValidatorPath, name) }

// generator accumulates package-level values and one function per node.
type generator struct {
	prog  *ir.Program
	opts  Options
	ids   map[ir.Schema]int
	defs  map[string]int // definition name -> id of its root node
	vars  bytes.Buffer
	funcs bytes.Buffer
	nvars int
}

// Render returns the source of a file validating prog.
func Render(prog *ir.Program, opts Options) (string, error) {
	if opts.Package == "" {
		opts.Package = "validator"
	}
	if opts.FuncName == "" {
		opts.FuncName = "Validate"
	}
	g := &generator{prog: prog, opts: opts, ids: map[ir.Schema]int{}, defs: map[string]int{}}
	prog.WalkProgram(func(s ir.Schema) {
		if _, seen := g.ids[s]; !seen {
			g.ids[s] = len(g.ids)
		}
	})
	for _, name := range prog.Order {
		g.defs[name] = g.ids[prog.Defs[name]]
	}
	g.defs[""] = g.ids[prog.Root]

	nodes := make([]ir.Schema, len(g.ids))
	for s, id := range g.ids {
		nodes[id] = s
	}
	defOf := map[int]string{}
	for _, name := range prog.Order {
		defOf[g.defs[name]] = name
	}
	for id, s := range nodes {
		if err := g.function(id, s, defOf); err != nil {
			return "", err
		}
	}

	var out bytes.Buffer
	out.WriteString("// Code generated by skemac. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", opts.Package)
	subject := prog.Title
	if subject == "" {
		subject = "a value"
	}
	fmt.Fprintf(&out, "// %s checks %s.\n", opts.FuncName, subject)
	fmt.Fprintf(&out, "func %s(v any) error {\n", opts.FuncName)
	fmt.Fprintf(&out, "\tvar iss %s\n", sk("Issues"))
	fmt.Fprintf(&out, "\tv%d(v, %s(), &iss)\n", g.defs[""], sk("Root"))
	fmt.Fprintf(&out, "\treturn %s(iss)\n}\n", sk("AsError"))
	if opts.Assert {
		fmt.Fprintf(&out, "\n// Must%[1]s is %[1]s that panics on failure.\n", opts.FuncName)
		fmt.Fprintf(&out, "func Must%s(v any) any {\n", opts.FuncName)
		fmt.Fprintf(&out, "\tif err := %s(v); err != nil {\n\t\tpanic(err)\n\t}\n\treturn v\n}\n", opts.FuncName)
	}
	if g.vars.Len() > 0 {
		out.WriteString("\nvar (\n")
		out.Write(g.vars.Bytes())
		out.WriteString(")\n")
	}
	out.Write(g.funcs.Bytes())
	return out.String(), nil
}

func (g *generator) newVar(prefix, expr string) string {
	name := fmt.Sprintf("%s%d", prefix, g.nvars)
	g.nvars++
	fmt.Fprintf(&g.vars, "\t%s = %s\n", name, expr)
	return name
}

func (g *generator) fn(s ir.Schema) string { return fmt.Sprintf("v%d", g.ids[s]) }

func (g *generator) fns(ss []ir.Schema) string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = g.fn(s)
	}
	return strings.Join(names, ", ")
}

func (g *generator) function(id int, s ir.Schema, defOf map[int]string) error {
	w := &g.funcs
	w.WriteString("\n")
	if name, ok := defOf[id]; ok {
		fmt.Fprintf(w, "// v%d validates #/definitions/%s.\n", id, name)
	}
	fmt.Fprintf(w, "func v%d(v any, p %s, iss *%s) {\n", id, sk("Pointer"), sk("Issues"))
	base := s.Common()
	if base.Nullable {
		w.WriteString("\tif v == nil {\n\t\treturn\n\t}\n")
	}
	if len(base.Rules) > 0 {
		preds := make([]string, len(base.Rules))
		for i, r := range base.Rules {
			if _, err := rules.Compile(r.Expr); err != nil {
				return err
			}
			preds[i] = g.newVar("rule", fmt.Sprintf("%s{Program: %s(%s), Message: %s}",
				vl("Predicate"), load(rules.ImportPath, "MustCompile"), strconv.Quote(r.Expr), strconv.Quote(r.Message)))
		}
		fmt.Fprintf(w, "\tdefer %s(v, p, iss, len(*iss), %s)\n", vl("Rules"), strings.Join(preds, ", "))
	}
	if err := g.body(w, s); err != nil {
		return err
	}
	w.WriteString("}\n")
	return nil
}

func (g *generator) body(w *bytes.Buffer, s ir.Schema) error {
	switch n := s.(type) {
	case *ir.Primitive:
		return g.primitive(w, n)
	case *ir.Array:
		g.array(w, n)
	case *ir.Tuple:
		g.tuple(w, n)
	case *ir.Object:
		g.object(w, n)
	case *ir.OneOf:
		g.oneOf(w, n)
	case *ir.AnyOf:
		fmt.Fprintf(w, "\t%s(v, p, iss, %s)\n", vl("AnyOf"), g.fns(n.Variants))
	case *ir.AllOf:
		for _, part := range n.Parts {
			fmt.Fprintf(w, "\t%s(v, p, iss)\n", g.fn(part))
		}
	case *ir.Enum:
		lits := make([]string, len(n.Values))
		for i, v := range n.Values {
			lit, err := literal(v)
			if err != nil {
				return err
			}
			lits[i] = lit
		}
		name := g.newVar("enum", "[]any{"+strings.Join(lits, ", ")+"}")
		fmt.Fprintf(w, "\t%s(v, p, iss, %s...)\n", vl("Enum"), name)
	case *ir.Ref:
		id, ok := g.defs[n.Name]
		if !ok {
			return fmt.Errorf("gen: unknown definition %q", n.Name)
		}
		fmt.Fprintf(w, "\tv%d(v, p, iss)\n", id)
	case *ir.Any:
	default:
		return fmt.Errorf("gen: unsupported node %s", s.Kind())
	}
	return nil
}

func (g *generator) primitive(w *bytes.Buffer, n *ir.Primitive) error {
	coerce := strconv.FormatBool(g.opts.Coerce)
	switch n.Name {
	case ir.TypeString:
		if n.MinLength == nil && n.MaxLength == nil && n.Pattern == "" && n.Format == "" {
			fmt.Fprintf(w, "\t%s(v, p, iss)\n", vl("String"))
			return nil
		}
		fmt.Fprintf(w, "\ts, ok := %s(v, p, iss)\n\tif !ok {\n\t\treturn\n\t}\n", vl("String"))
		if n.MinLength != nil {
			fmt.Fprintf(w, "\t%s(s, p, iss, %d)\n", vl("MinLength"), *n.MinLength)
		}
		if n.MaxLength != nil {
			fmt.Fprintf(w, "\t%s(s, p, iss, %d)\n", vl("MaxLength"), *n.MaxLength)
		}
		if n.Pattern != "" {
			re := g.newVar("re", load("regexp", "MustCompile")+"("+strconv.Quote(n.Pattern)+")")
			fmt.Fprintf(w, "\t%s(s, p, iss, %s)\n", vl("Pattern"), re)
		}
		if n.Format != "" {
			name, ok := formats.FuncName(n.Format)
			if !ok {
				return fmt.Errorf("gen: unknown format %q", n.Format)
			}
			fmt.Fprintf(w, "\t%s(s, p, iss, %s, %s)\n", vl("Format"), strconv.Quote(n.Format), load(formats.ImportPath, name))
		}
	case ir.TypeNumber, ir.TypeInteger:
		assert := vl("Number")
		if n.Name == ir.TypeInteger {
			assert = vl("Integer")
		}
		if n.Min == nil && n.Max == nil && n.MultipleOf == nil {
			fmt.Fprintf(w, "\t%s(v, p, iss, %s)\n", assert, coerce)
			return nil
		}
		fmt.Fprintf(w, "\tf, ok := %s(v, p, iss, %s)\n\tif !ok {\n\t\treturn\n\t}\n", assert, coerce)
		if n.Min != nil {
			fmt.Fprintf(w, "\t%s(f, p, iss, %s, %t)\n", vl("Minimum"), float(*n.Min), n.ExMin)
		}
		if n.Max != nil {
			fmt.Fprintf(w, "\t%s(f, p, iss, %s, %t)\n", vl("Maximum"), float(*n.Max), n.ExMax)
		}
		if n.MultipleOf != nil {
			fmt.Fprintf(w, "\t%s(f, p, iss, %s)\n", vl("MultipleOf"), float(*n.MultipleOf))
		}
	case ir.TypeBoolean:
		fmt.Fprintf(w, "\t%s(v, p, iss, %s)\n", vl("Boolean"), coerce)
	case ir.TypeNull:
		fmt.Fprintf(w, "\t%s(v, p, iss)\n", vl("Null"))
	default:
		return fmt.Errorf("gen: unsupported primitive %q", n.Name)
	}
	return nil
}

func (g *generator) array(w *bytes.Buffer, n *ir.Array) {
	if n.MinItems == nil && n.MaxItems == nil && !n.Unique && n.Item == nil {
		fmt.Fprintf(w, "\t%s(v, p, iss)\n", vl("Array"))
		return
	}
	fmt.Fprintf(w, "\ta, ok := %s(v, p, iss)\n\tif !ok {\n\t\treturn\n\t}\n", vl("Array"))
	if n.MinItems != nil {
		fmt.Fprintf(w, "\t%s(a, p, iss, %d)\n", vl("MinItems"), *n.MinItems)
	}
	if n.MaxItems != nil {
		fmt.Fprintf(w, "\t%s(a, p, iss, %d)\n", vl("MaxItems"), *n.MaxItems)
	}
	if n.Unique {
		fmt.Fprintf(w, "\t%s(a, p, iss)\n", vl("Unique"))
	}
	if n.Item != nil {
		fmt.Fprintf(w, "\t%s(a, p, iss, %s)\n", vl("Items"), g.fn(n.Item))
	}
}

func (g *generator) tuple(w *bytes.Buffer, n *ir.Tuple) {
	fmt.Fprintf(w, "\ta, ok := %s(v, p, iss)\n\tif !ok {\n\t\treturn\n\t}\n", vl("Array"))
	if n.MaxItems != nil {
		fmt.Fprintf(w, "\t%s(a, p, iss, %d)\n", vl("MaxItems"), *n.MaxItems)
	}
	if n.Unique {
		fmt.Fprintf(w, "\t%s(a, p, iss)\n", vl("Unique"))
	}
	rest := "nil"
	if n.Rest != nil {
		rest = g.fn(n.Rest)
	}
	args := ""
	if len(n.Items) > 0 {
		args = ", " + g.fns(n.Items)
	}
	fmt.Fprintf(w, "\t%s(a, p, iss, %d, %t, %s%s)\n", vl("Tuple"), n.MinItems, n.Closed, rest, args)
}

func (g *generator) object(w *bytes.Buffer, n *ir.Object) {
	bare := len(n.Required) == 0 && len(n.Fields) == 0 && n.KeyPattern == "" &&
		(n.UnknownPolicy == ir.UnknownAllow || n.UnknownPolicy == ir.UnknownSchema && n.Additional == nil)
	if bare {
		fmt.Fprintf(w, "\t%s(v, p, iss)\n", vl("Object"))
		return
	}
	fmt.Fprintf(w, "\tm, ok := %s(v, p, iss)\n\tif !ok {\n\t\treturn\n\t}\n", vl("Object"))
	if req := n.RequiredKeys(); len(req) > 0 {
		fmt.Fprintf(w, "\t%s(m, p, iss, %s)\n", vl("Required"), quoteAll(req))
	}
	known := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		known[i] = f.Name
		fmt.Fprintf(w, "\t%s(m, p, iss, %s, %s)\n", vl("Field"), strconv.Quote(f.Name), g.fn(f.Schema))
	}
	tail := ""
	if len(known) > 0 {
		tail = ", " + quoteAll(known)
	}
	switch {
	case n.UnknownPolicy == ir.UnknownStrict:
		fmt.Fprintf(w, "\t%s(m, p, iss%s)\n", vl("Unknown"), tail)
	case n.UnknownPolicy == ir.UnknownSchema && n.Additional != nil:
		fmt.Fprintf(w, "\t%s(m, p, iss, %s%s)\n", vl("Additional"), g.fn(n.Additional), tail)
	}
	if n.KeyPattern != "" {
		re := g.newVar("re", load("regexp", "MustCompile")+"("+strconv.Quote(n.KeyPattern)+")")
		fmt.Fprintf(w, "\t%s(m, p, iss, %s)\n", vl("KeyPattern"), re)
	}
}

func (g *generator) oneOf(w *bytes.Buffer, n *ir.OneOf) {
	if n.Discriminator == "" {
		fmt.Fprintf(w, "\t%s(v, p, iss, %s)\n", vl("OneOf"), g.fns(n.Variants))
		return
	}
	entries := make([]string, 0, len(n.Mapping))
	for _, tag := range n.Tags() {
		entries = append(entries, strconv.Quote(tag)+": "+g.fn(n.Variants[n.Mapping[tag]]))
	}
	// Built per call: a package-level map of these functions would form an
	// initialization cycle for recursive unions.
	fmt.Fprintf(w, "\t%s(v, p, iss, %s, map[string]%s{%s})\n",
		vl("Tagged"), strconv.Quote(n.Discriminator), vl("Check"), strings.Join(entries, ", "))
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return strings.Join(q, ", ")
}

func float(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// literal renders a decoded JSON value as a Go expression of the same
// dynamic type.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "nil", nil
	case bool:
		return strconv.FormatBool(x), nil
	case string:
		return strconv.Quote(x), nil
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return "", fmt.Errorf("gen: non-finite number %v", x)
		}
		return "float64(" + strconv.FormatFloat(x, 'g', -1, 64) + ")", nil
	case int:
		return "float64(" + strconv.Itoa(x) + ")", nil
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			lit, err := literal(e)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			lit, err := literal(x[k])
			if err != nil {
				return "", err
			}
			parts[i] = strconv.Quote(k) + ": " + lit
		}
		return "map[string]any{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("gen: unsupported literal %T", v)
}
