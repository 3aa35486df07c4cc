package jsonschema

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/schema"
)

// CompileOptions configure a validator compiler.
type CompileOptions struct {
	Dialect skemac.Dialect
	Mode    skemac.ValidatorMode
	Coerce  bool
	Formats bool
	Assert  bool
	// Discriminator enables discriminated one-of support. It cannot be
	// inferred from the document alone.
	Discriminator bool
	// Package and FuncName name the generated source (Source mode).
	Package  string
	FuncName string
}

// Compiled is the result of compiling one document.
type Compiled struct {
	// Predicate is set in Predicate mode. It returns skemac.Issues on failure.
	Predicate func(v any) error
	// Source is set in Source mode. Runtime dependencies appear as
	// require("<import path>").Name loads; see RewriteDynamicLoads.
	Source string
	// UsedFormats lists the string formats the validator checks.
	UsedFormats []string
}

// Compiler turns a finished schema document into a validator.
type Compiler interface {
	Compile(ctx context.Context, doc []byte, opts CompileOptions) (*Compiled, error)
}

var loadRE = regexp.MustCompile(`require\("([^"]+)"\)\.([A-Za-z_][A-Za-z0-9_]*)`)

// RewriteDynamicLoads replaces every require("path").Name load in src with a
// selector on a statically imported package. Loads from the same path share
// one import; aliases are derived from the last path element and suffixed on
// conflict. The import block is placed after the package clause. It returns
// the rewritten source and the imported paths in sorted order.
func RewriteDynamicLoads(src string) (string, []string, error) {
	matches := loadRE.FindAllStringSubmatch(src, -1)
	if len(matches) == 0 {
		return src, nil, nil
	}
	var paths []string
	seen := map[string]bool{}
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			paths = append(paths, m[1])
		}
	}
	sort.Strings(paths)

	alias := map[string]string{}
	used := map[string]bool{}
	for _, p := range paths {
		base := importName(p)
		a := base
		for i := 2; used[a]; i++ {
			a = base + strconv.Itoa(i)
		}
		used[a] = true
		alias[p] = a
	}

	body := loadRE.ReplaceAllStringFunc(src, func(load string) string {
		m := loadRE.FindStringSubmatch(load)
		return alias[m[1]] + "." + m[2]
	})

	var imports strings.Builder
	imports.WriteString("import (\n")
	for _, p := range paths {
		fmt.Fprintf(&imports, "\t%s %q\n", alias[p], p)
	}
	imports.WriteString(")\n")

	idx := packageClauseEnd(body)
	if idx < 0 {
		return "", nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: "generated source has no package clause"}
	}
	out := body[:idx] + "\n" + imports.String() + body[idx:]
	return out, paths, nil
}

func importName(p string) string {
	base := p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		base = p[i+1:]
	}
	var b strings.Builder
	for _, r := range base {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9' && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "dep"
	}
	return b.String()
}

// packageClauseEnd returns the offset just past the package clause line.
func packageClauseEnd(src string) int {
	off := 0
	for _, line := range strings.SplitAfter(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			return off + len(line)
		}
		off += len(line)
	}
	return -1
}

// CompileValidator renders n with a fresh registry and compiles it into a
// predicate. Settings of a validator wrapper found on n's chain override
// opts.
func CompileValidator(ctx context.Context, g *schema.Graph, n *schema.Node, c Compiler, ropts Options, copts CompileOptions) (func(v any) error, error) {
	if c == nil {
		return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Detail: "no validator compiler"}
	}
	if err := g.Load(n); err != nil {
		return nil, err
	}
	if vn := ValidatorOf(g, n); vn != nil {
		vo := vn.ValidatorOptions()
		copts.Assert, copts.Coerce, copts.Formats = vo.Assert, vo.Coerce, vo.Formats
	}
	doc, rendered, err := RenderJSON(ctx, g, n, ropts)
	if err != nil {
		return nil, err
	}
	copts.Dialect = ropts.Dialect
	copts.Mode = skemac.ModePredicate
	copts.Discriminator = copts.Discriminator || rendered.Discriminator
	out, err := c.Compile(ctx, doc, copts)
	if err != nil {
		return nil, err
	}
	if out.Predicate == nil {
		return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Detail: "compiler returned no predicate"}
	}
	return out.Predicate, nil
}

// ValidatorOf returns the validator wrapper reached from n through
// commutative wrappers, or nil.
func ValidatorOf(g *schema.Graph, n *schema.Node) *schema.Node {
	if end := g.Unwrap(n); end != nil && end.Kind() == schema.KindValidator {
		return end
	}
	return nil
}
