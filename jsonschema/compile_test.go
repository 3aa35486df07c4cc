package jsonschema_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/emit"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/schema"
)

func TestRewriteDynamicLoads(t *testing.T) {
	src := `// Code generated.

package v

func Validate(v any) error {
	iss := require("github.com/reoring/skemac").Issues{}
	if !require("github.com/reoring/skemac/formats").Email(s) || !require("github.com/reoring/skemac/formats").UUID(s) {
		return require("github.com/reoring/skemac").AsError(iss)
	}
	_ = require("example.com/other/formats").X
	return nil
}
`
	out, deps, err := jsonschema.RewriteDynamicLoads(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/other/formats", "github.com/reoring/skemac", "github.com/reoring/skemac/formats"}, deps)
	assert.NotContains(t, out, "require(")
	assert.Contains(t, out, "package v\n\nimport (\n\tformats \"example.com/other/formats\"\n\tskemac \"github.com/reoring/skemac\"\n\tformats2 \"github.com/reoring/skemac/formats\"\n)\n")
	assert.Contains(t, out, "iss := skemac.Issues{}")
	assert.Contains(t, out, "!formats2.Email(s) || !formats2.UUID(s)")
	assert.Contains(t, out, "_ = formats.X")
	assert.Equal(t, 1, strings.Count(out, "import ("))
}

func TestRewriteDynamicLoads_NoLoads(t *testing.T) {
	out, deps, err := jsonschema.RewriteDynamicLoads("package x\n")
	require.NoError(t, err)
	assert.Equal(t, "package x\n", out)
	assert.Empty(t, deps)

	_, _, err = jsonschema.RewriteDynamicLoads(`x := require("a").B`)
	assert.Error(t, err)
}

var refToken = regexp.MustCompile(`\{\{\d+:ref\}\}`)

type fakeCompiler struct {
	got []jsonschema.CompileOptions
	doc []byte
}

func (f *fakeCompiler) Compile(_ context.Context, doc []byte, opts jsonschema.CompileOptions) (*jsonschema.Compiled, error) {
	f.got = append(f.got, opts)
	f.doc = doc
	if opts.Mode == skemac.ModePredicate {
		return &jsonschema.Compiled{Predicate: func(v any) error {
			if v == nil {
				return skemac.Issues{{Path: "/", Code: skemac.CodeInvalidType}}
			}
			return nil
		}}, nil
	}
	tok := refToken.FindString(string(doc))
	src := "package " + opts.Package + "\n\n// " + opts.FuncName + " checks " + tok + ".\nfunc " + opts.FuncName +
		"(v any) error { return require(\"github.com/reoring/skemac\").AsError(nil) }\n"
	return &jsonschema.Compiled{Source: src}, nil
}

func TestBackend_Pipeline(t *testing.T) {
	b := dsl.New()
	item := b.Object().Field("sku", b.String()).Build(dsl.Named("Item"))
	order := b.Validator(
		b.Object().Field("items", b.Array(b.Ref(item))).Field("note", b.Optional(b.String())).Build(dsl.Named("Order")),
		schema.ValidatorOptions{Mode: skemac.ModeSource, Coerce: true},
	)
	plain := b.Ref(item)

	comp := &fakeCompiler{}
	backend := &jsonschema.Backend{Dir: "gen", Pretty: true, SchemaURI: true, Compiler: comp, Validators: true}
	w := emit.NewMemWriter()
	res, err := emit.New(backend,
		emit.WithWriter(w),
		emit.WithFormatter(emit.SourceFormatter{}),
		emit.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	).Run(context.Background(), b.Graph(), []emit.Input{{
		Path:    "api/shop.go",
		Exports: []emit.Export{{Name: "Order", Node: order}, {Name: "ItemRef", Node: plain}},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"gen/api/item_ref.schema.json",
		"gen/api/order.schema.json",
		"gen/api/order_validator/validator.go",
	}, w.Paths())

	doc := decode(t, string(w.Files["gen/api/order.schema.json"]))
	assert.Equal(t, jsonschema.DraftURI, doc["$schema"])
	assert.Contains(t, doc["definitions"], "Item")
	assert.NotContains(t, string(w.Files["gen/api/order.schema.json"]), "{{")

	// the ref export wraps its pointer so definitions are not ignored
	ref := decode(t, string(w.Files["gen/api/item_ref.schema.json"]))
	assert.Equal(t, []any{map[string]any{"$ref": "#/definitions/Item"}}, ref["allOf"])

	src := string(w.Files["gen/api/order_validator/validator.go"])
	assert.Contains(t, src, "package ordervalidator")
	assert.Contains(t, src, "skemac \"github.com/reoring/skemac\"")
	assert.Contains(t, src, "return skemac.AsError(nil)")
	assert.Contains(t, src, "// Validate checks Item.")
	assert.NotContains(t, src, "{{")

	require.Len(t, comp.got, 1)
	assert.Equal(t, skemac.ModeSource, comp.got[0].Mode)
	assert.True(t, comp.got[0].Coerce)
	assert.Equal(t, "Validate", comp.got[0].FuncName)

	vf := res.File("gen/api/order_validator/validator.go")
	require.NotNil(t, vf)
	assert.Equal(t, "gen/api/order_validator", vf.Clean)
	assert.Equal(t, emit.DepValue, vf.Deps["github.com/reoring/skemac"])
	assert.Equal(t, emit.DepType, vf.Deps["gen/api/order.schema.json"])
}

func TestBackend_MissingCompiler(t *testing.T) {
	b := dsl.New()
	v := b.Validator(b.String(), schema.ValidatorOptions{Mode: skemac.ModeSource})
	backend := &jsonschema.Backend{Validators: true}
	_, err := emit.New(backend, emit.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))).
		Run(context.Background(), b.Graph(), []emit.Input{{Path: "a.go", Exports: []emit.Export{{Name: "V", Node: v}}}})
	assert.True(t, errors.Is(err, skemac.ErrMissingDependency))
}

func TestBackend_ExportHookRelocates(t *testing.T) {
	b := dsl.New()
	n := b.String(dsl.OnExport(func(g *schema.Graph, n *schema.Node, x *schema.Export) error {
		def, _ := x.Attr(jsonschema.AttrPath)
		assert.Equal(t, "s.schema.json", def)
		x.SetAttr(jsonschema.AttrPath, "custom/name.json")
		return nil
	}))
	res, err := emit.New(&jsonschema.Backend{}, emit.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))).
		Run(context.Background(), b.Graph(), []emit.Input{{Path: "a.go", Exports: []emit.Export{{Name: "S", Node: n}}}})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "custom/name.json", res.Files[0].Path)
}

func TestBackend_RunsDoNotShareExportPaths(t *testing.T) {
	b := dsl.New()
	user := b.Object().Field("id", b.String()).Build(dsl.Named("User"))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	in := []emit.Input{{Path: "user.go", Exports: []emit.Export{{Name: "User", Node: user}}}}

	for _, dir := range []string{"one", "two"} {
		w := emit.NewMemWriter()
		_, err := emit.New(&jsonschema.Backend{Dir: dir}, emit.WithWriter(w), emit.WithLogger(logger)).
			Run(context.Background(), b.Graph(), in)
		require.NoError(t, err)
		assert.Equal(t, []string{dir + "/user.schema.json"}, w.Paths())
	}
}

func TestBackend_NodeExportedTwice(t *testing.T) {
	b := dsl.New()
	n := b.Object().Field("id", b.String()).Build()
	w := emit.NewMemWriter()
	res, err := emit.New(&jsonschema.Backend{}, emit.WithWriter(w), emit.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))).
		Run(context.Background(), b.Graph(), []emit.Input{{
			Path:    "a.go",
			Exports: []emit.Export{{Name: "Alpha", Node: n}, {Name: "Beta", Node: n}},
		}})
	require.NoError(t, err)
	paths := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"alpha.schema.json", "beta.schema.json"}, paths)
	assert.Equal(t, []string{"alpha.schema.json", "beta.schema.json"}, w.Paths())
}

func TestCompileValidator(t *testing.T) {
	b := dsl.New()
	n := b.Validator(b.DiscriminatedUnion("t", []*schema.Node{
		b.Object().Field("t", b.Const("a")).Build(),
	}), schema.ValidatorOptions{Mode: skemac.ModePredicate, Formats: true})
	comp := &fakeCompiler{}
	pred, err := jsonschema.CompileValidator(context.Background(), b.Graph(), n, comp, jsonschema.Options{}, jsonschema.CompileOptions{})
	require.NoError(t, err)
	assert.NoError(t, pred(map[string]any{}))
	assert.Error(t, pred(nil))
	require.Len(t, comp.got, 1)
	assert.True(t, comp.got[0].Discriminator)
	assert.True(t, comp.got[0].Formats)
	assert.Equal(t, skemac.ModePredicate, comp.got[0].Mode)

	_, err = jsonschema.CompileValidator(context.Background(), b.Graph(), n, nil, jsonschema.Options{}, jsonschema.CompileOptions{})
	assert.True(t, errors.Is(err, skemac.ErrMissingDependency))
}
