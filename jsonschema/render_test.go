package jsonschema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/schema"
)

var openapi = jsonschema.Options{Dialect: skemac.DialectOpenAPI}

func render(t *testing.T, b *dsl.Builder, n *schema.Node, opts jsonschema.Options) string {
	t.Helper()
	out, _, err := jsonschema.RenderJSON(context.Background(), b.Graph(), n, opts)
	require.NoError(t, err)
	return string(out)
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestRender_Primitives(t *testing.T) {
	b := dsl.New()
	cases := []struct {
		name string
		node *schema.Node
		want string
	}{
		{"string", b.String(dsl.MinLength(1), dsl.MaxLength(3), dsl.Pattern("^a"), dsl.Format("email")),
			`{"type":"string","minLength":1,"maxLength":3,"pattern":"^a","format":"email"}`},
		{"integer", b.Integer(dsl.Minimum(1), dsl.MultipleOf(2)), `{"type":"integer","minimum":1,"multipleOf":2}`},
		{"boolean", b.Boolean(), `{"type":"boolean"}`},
		{"null", b.Null(), `{"type":"null"}`},
		{"unknown", b.Unknown(), `{}`},
		{"array", b.Array(b.String(), dsl.MinItems(1), dsl.UniqueItems()),
			`{"type":"array","items":{"type":"string"},"minItems":1,"uniqueItems":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, render(t, b, tc.node, jsonschema.Options{}))
		})
	}
}

func TestRender_ObjectScenario(t *testing.T) {
	b := dsl.New()
	obj := b.Object().
		Field("foo", b.String()).
		Field("bar", b.String(dsl.Describe("x"))).
		Build()
	got := decode(t, render(t, b, obj, jsonschema.Options{}))

	assert.Equal(t, []any{"bar", "foo"}, got["required"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "x", props["bar"].(map[string]any)["description"])
	assert.Equal(t, true, got["additionalProperties"])
}

func TestRender_ObjectStrictness(t *testing.T) {
	b := dsl.New()
	strict := b.Object().Field("a", b.String()).Strict().Build()
	loose := b.Object().Field("a", b.String()).Build()

	assert.Equal(t, false, decode(t, render(t, b, strict, jsonschema.Options{}))["additionalProperties"])
	assert.Equal(t, false, decode(t, render(t, b, loose, jsonschema.Options{Strict: true}))["additionalProperties"])
}

func TestRender_NullableUnification(t *testing.T) {
	b := dsl.New()
	obj := b.Object().
		Field("a", b.Optional(b.Nullable(b.String()))).
		Field("b", b.Nullable(b.Optional(b.String()))).
		Field("c", b.Nullable(b.String())).
		Field("d", b.Optional(b.Optional(b.Nullable(b.Nullable(b.String()))))).
		Build()
	got := decode(t, render(t, b, obj, jsonschema.Options{}))
	props := got["properties"].(map[string]any)
	want := map[string]any{"type": []any{"string", "null"}}
	for _, k := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, props[k], k)
	}
	assert.Equal(t, []any{"c"}, got["required"])
}

func TestRender_NullablePlainDialect(t *testing.T) {
	b := dsl.New()
	r := b.String(dsl.Named("R"))
	cases := []struct {
		name string
		node *schema.Node
		want string
	}{
		{"enum", b.Nullable(b.Enum([]any{"a", "b"})), `{"type":["string","null"],"enum":["a","b",null]}`},
		{"const", b.Nullable(b.Const("a")), `{"enum":["a",null]}`},
		{"union", b.Nullable(b.Union([]*schema.Node{b.String(), b.Integer()})),
			`{"anyOf":[{"type":"string"},{"type":"integer"},{"type":"null"}]}`},
		{"ref", b.Array(b.Nullable(b.Ref(r))),
			`{"type":"array","items":{"anyOf":[{"$ref":"#/definitions/R"},{"type":"null"}]},"definitions":{"R":{"type":"string"}}}`},
		{"unknown", b.Nullable(b.Unknown()), `{}`},
		{"null", b.Nullable(b.Null()), `{"type":"null"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, render(t, b, tc.node, jsonschema.Options{}))
		})
	}
}

func TestRender_NullableOpenAPI(t *testing.T) {
	b := dsl.New()
	r := b.String(dsl.Named("R"))
	cases := []struct {
		name string
		node *schema.Node
		want string
	}{
		{"string", b.Optional(b.Nullable(b.String())), `{"type":"string","nullable":true}`},
		{"enum", b.Nullable(b.Enum([]any{"a"})), `{"type":"string","enum":["a"],"nullable":true}`},
		{"null const", b.Const(nil), `{"type":"string","enum":[null],"nullable":true}`},
		{"null enum", b.Enum([]any{nil}), `{"type":"string","enum":[null],"nullable":true}`},
		{"null", b.Null(), `{"type":"string","enum":[null],"nullable":true}`},
		{"ref", b.Array(b.Nullable(b.Ref(r))),
			`{"type":"array","items":{"allOf":[{"$ref":"#/definitions/R"}],"nullable":true},"definitions":{"R":{"type":"string"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, render(t, b, tc.node, openapi))
		})
	}
}

func TestRender_ConstAndNumbersPerDialect(t *testing.T) {
	b := dsl.New()
	c := b.Const("on")
	assert.JSONEq(t, `{"const":"on"}`, render(t, b, c, jsonschema.Options{}))
	assert.JSONEq(t, `{"type":"string","enum":["on"]}`, render(t, b, c, openapi))

	n := b.Number(dsl.ExclusiveMinimum(0), dsl.Maximum(10))
	assert.JSONEq(t, `{"type":"number","exclusiveMinimum":0,"maximum":10}`, render(t, b, n, jsonschema.Options{}))
	assert.JSONEq(t, `{"type":"number","minimum":0,"exclusiveMinimum":true,"maximum":10}`, render(t, b, n, openapi))
}

func TestRender_Tuple(t *testing.T) {
	b := dsl.New()
	tup := b.Tuple([]*schema.Node{b.String(), b.Optional(b.Integer())})
	assert.JSONEq(t,
		`{"type":"array","items":[{"type":"string"},{"type":"integer"}],"additionalItems":false,"minItems":1,"maxItems":2}`,
		render(t, b, tup, jsonschema.Options{}))
	assert.JSONEq(t,
		`{"type":"array","items":{"anyOf":[{"type":"string"},{"type":"integer"}]},"minItems":1,"maxItems":2}`,
		render(t, b, tup, openapi))

	rest := b.TupleRest([]*schema.Node{b.String()}, b.Boolean())
	assert.JSONEq(t,
		`{"type":"array","items":[{"type":"string"}],"additionalItems":{"type":"boolean"},"minItems":1}`,
		render(t, b, rest, jsonschema.Options{}))
}

func TestRender_RecordIntersection(t *testing.T) {
	b := dsl.New()
	rec := b.Record(b.Integer(), dsl.KeyPattern("^[a-z]+$"))
	assert.JSONEq(t,
		`{"type":"object","additionalProperties":{"type":"integer"},"propertyNames":{"pattern":"^[a-z]+$"}}`,
		render(t, b, rec, jsonschema.Options{}))

	both := b.Intersection([]*schema.Node{
		b.Object().Field("a", b.String()).Build(),
		b.Object().Field("b", b.String()).Build(),
	})
	got := decode(t, render(t, b, both, jsonschema.Options{}))
	assert.Len(t, got["allOf"], 2)
}

func TestRender_SharedRefScenario(t *testing.T) {
	b := dsl.New()
	r := b.Object().Field("id", b.String()).Build(dsl.Named("R"))
	u := b.Union([]*schema.Node{b.Ref(r), b.Record(b.Ref(r))})
	assert.JSONEq(t, `{
		"anyOf": [
			{"$ref": "#/definitions/R"},
			{"type": "object", "additionalProperties": {"$ref": "#/definitions/R"}}
		],
		"definitions": {
			"R": {"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"], "additionalProperties": true}
		}
	}`, render(t, b, u, jsonschema.Options{}))
}

func TestRender_CycleSafety(t *testing.T) {
	b := dsl.New()
	var tree *schema.Node
	tree = b.Object().
		Field("value", b.Number()).
		Field("children", b.Array(b.Lazy(func() *schema.Node { return tree }))).
		Field("parent", b.Optional(b.Lazy(func() *schema.Node { return tree }))).
		Build(dsl.Named("Tree"))
	root := b.Object().Field("left", b.Ref(tree)).Field("right", b.Ref(tree)).Build()

	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"left": {"$ref": "#/definitions/Tree"},
			"right": {"$ref": "#/definitions/Tree"}
		},
		"required": ["left", "right"],
		"additionalProperties": true,
		"definitions": {
			"Tree": {
				"type": "object",
				"properties": {
					"value": {"type": "number"},
					"children": {"type": "array", "items": {"$ref": "#/definitions/Tree"}},
					"parent": {"$ref": "#/definitions/Tree"}
				},
				"required": ["children", "value"],
				"additionalProperties": true
			}
		}
	}`, render(t, b, root, jsonschema.Options{}))
}

func TestRender_RootSelfReference(t *testing.T) {
	b := dsl.New()
	var node *schema.Node
	node = b.Object().Field("next", b.Nullable(b.Lazy(func() *schema.Node { return node }))).Build(dsl.Named("List"))
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"next": {"anyOf": [{"$ref": "#"}, {"type": "null"}]}},
		"required": ["next"],
		"additionalProperties": true
	}`, render(t, b, node, jsonschema.Options{}))
}

func TestRender_WrappedRootSelfReference(t *testing.T) {
	list := func() (*dsl.Builder, *schema.Node) {
		b := dsl.New()
		var node *schema.Node
		node = b.Object().Optional("next", b.Lazy(func() *schema.Node { return node })).Build(dsl.Named("List"))
		return b, node
	}

	b, node := list()
	v := b.Validator(node, schema.ValidatorOptions{Mode: skemac.ModePredicate})
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"next": {"$ref": "#"}},
		"additionalProperties": true
	}`, render(t, b, v, jsonschema.Options{}))

	b, node = list()
	opt := b.Optional(b.Validator(node, schema.ValidatorOptions{}))
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"next": {"$ref": "#"}},
		"additionalProperties": true
	}`, render(t, b, opt, jsonschema.Options{}))

	// a nullable root accepts null, so the recursive body moves to definitions
	b, node = list()
	assert.JSONEq(t, `{
		"anyOf": [{"$ref": "#/definitions/List"}, {"type": "null"}],
		"definitions": {
			"List": {
				"type": "object",
				"properties": {"next": {"$ref": "#/definitions/List"}},
				"additionalProperties": true
			}
		}
	}`, render(t, b, b.Nullable(node), jsonschema.Options{}))
}

func TestRender_LinkedSymbolIsPointerSafe(t *testing.T) {
	b := dsl.New()
	item := b.String(dsl.Named("Item"))
	root := b.Object().Field("a", b.Ref(item)).Build()
	g := b.Graph()
	require.NoError(t, g.Load(root))

	reg := registry.New(g, jsonschema.Target)
	reg.Link(item.ID(), "pkg/Item~v1")
	doc, err := jsonschema.Render(context.Background(), g, root, reg, jsonschema.Options{})
	require.NoError(t, err)
	tpl, err := doc.Template()
	require.NoError(t, err)
	out, _, err := reg.Resolve(string(tpl))
	require.NoError(t, err)

	got := decode(t, out)
	assert.Contains(t, got["definitions"], "pkgItemV1")
	props := got["properties"].(map[string]any)
	assert.Equal(t, "#/definitions/pkgItemV1", props["a"].(map[string]any)["$ref"])
}

func TestRender_CollisionSuffixing(t *testing.T) {
	b := dsl.New()
	first := b.String(dsl.Named("Item"))
	second := b.Integer(dsl.Named("Item"))
	obj := b.Object().Field("a", b.Ref(first)).Field("b", b.Ref(second)).Build()
	got := decode(t, render(t, b, obj, jsonschema.Options{}))
	defs := got["definitions"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, defs["Item"])
	assert.Equal(t, map[string]any{"type": "integer"}, defs["Item0"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "#/definitions/Item0", props["b"].(map[string]any)["$ref"])
}

func TestRender_HintNaming(t *testing.T) {
	b := dsl.New()
	addr := b.Object().Field("city", b.String()).Build()
	obj := b.Object().Field("address", b.Ref(addr)).Build()
	got := decode(t, render(t, b, obj, jsonschema.Options{}))
	assert.Contains(t, got["definitions"], "address")
}

func TestRender_Idempotent(t *testing.T) {
	build := func() string {
		b := dsl.New()
		r := b.String(dsl.Named("R"))
		s := b.Integer(dsl.Named("R"))
		obj := b.Object().
			Field("z", b.Ref(r)).
			Field("y", b.Array(b.Ref(s))).
			Field("x", b.Union([]*schema.Node{b.Ref(r), b.Null()})).
			Build()
		return render(t, b, obj, jsonschema.Options{SchemaURI: true})
	}
	assert.Equal(t, build(), build())
}

func TestRender_DiscriminatedUnion(t *testing.T) {
	b := dsl.New()
	cat := b.Object().Field("kind", b.Const("cat")).Field("lives", b.Integer()).Build(dsl.Named("Cat"))
	dog := b.Object().Field("kind", b.Const("dog")).Build(dsl.Named("Dog"))
	u := b.DiscriminatedUnion("kind", []*schema.Node{b.Ref(cat), b.Ref(dog)})

	out, doc, err := jsonschema.RenderJSON(context.Background(), b.Graph(), u, jsonschema.Options{})
	require.NoError(t, err)
	assert.True(t, doc.Discriminator)
	got := decode(t, string(out))
	assert.Len(t, got["oneOf"], 2)
	assert.Equal(t, map[string]any{"propertyName": "kind"}, got["discriminator"])

	got = decode(t, render(t, b, u, openapi))
	assert.Equal(t, map[string]any{
		"propertyName": "kind",
		"mapping":      map[string]any{"cat": "#/definitions/Cat", "dog": "#/definitions/Dog"},
	}, got["discriminator"])
}

func TestRender_DiscriminatorWithoutTag(t *testing.T) {
	b := dsl.New()
	u := b.DiscriminatedUnion("kind", []*schema.Node{b.Object().Field("x", b.String()).Build()})
	_, _, err := jsonschema.RenderJSON(context.Background(), b.Graph(), u, jsonschema.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedSchemaConstruct))
}

func TestRender_Meta(t *testing.T) {
	b := dsl.New()
	n := b.Optional(b.String(
		dsl.Title("Name"),
		dsl.Default(nil),
		dsl.Examples("ann"),
		dsl.Extension("x-order", 1),
		dsl.OpenAPI("x-go-type", "string"),
		dsl.Rule("size(self) > 1", "too short"),
		dsl.Deprecated(),
	), dsl.Describe("outer"))

	assert.JSONEq(t, `{
		"type": "string", "title": "Name", "description": "outer", "default": null,
		"examples": ["ann"], "deprecated": true, "x-order": 1,
		"x-rules": [{"rule": "size(self) > 1", "message": "too short"}]
	}`, render(t, b, n, jsonschema.Options{}))
	assert.JSONEq(t, `{
		"type": "string", "title": "Name", "description": "outer", "default": null,
		"example": "ann", "deprecated": true, "x-order": 1, "x-go-type": "string",
		"x-rules": [{"rule": "size(self) > 1", "message": "too short"}]
	}`, render(t, b, n, openapi))
}

func TestRender_SchemaURI(t *testing.T) {
	b := dsl.New()
	n := b.String()
	got := decode(t, render(t, b, n, jsonschema.Options{SchemaURI: true}))
	assert.Equal(t, jsonschema.DraftURI, got["$schema"])
	got = decode(t, render(t, b, n, jsonschema.Options{SchemaURI: true, Dialect: skemac.DialectOpenAPI}))
	assert.NotContains(t, got, "$schema")
}

func TestRender_Custom(t *testing.T) {
	b := dsl.New()
	raw := b.Custom(map[string]any{"type": "string", "contentEncoding": "base64"})
	assert.JSONEq(t, `{"type":"string","contentEncoding":"base64"}`, render(t, b, raw, jsonschema.Options{}))

	remote := b.Remote("mem://point")
	f := fetch.Map{"mem://point": []byte(`{"$schema":"x","type":"object","required":["x"]}`)}
	assert.JSONEq(t, `{"type":"object","required":["x"]}`, render(t, b, remote, jsonschema.Options{Fetcher: f}))

	_, _, err := jsonschema.RenderJSON(context.Background(), b.Graph(), remote, jsonschema.Options{})
	assert.True(t, errors.Is(err, skemac.ErrMissingDependency))

	_, _, err = jsonschema.RenderJSON(context.Background(), b.Graph(), remote, jsonschema.Options{Fetcher: fetch.Map{}})
	assert.True(t, errors.Is(err, skemac.ErrFetch))

	empty := b.Graph().Add(schema.KindCustom, schema.CustomOptions{})
	_, _, err = jsonschema.RenderJSON(context.Background(), b.Graph(), empty, jsonschema.Options{})
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedSchemaConstruct))
	assert.Equal(t, skemac.CategoryStructural, skemac.CategoryOf(err))
}

func TestRender_BareWrapper(t *testing.T) {
	g := schema.New()
	bare := g.Add(schema.KindOptional, nil)
	_, _, err := jsonschema.RenderJSON(context.Background(), g, bare, jsonschema.Options{})
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedConstruct))
}

func TestRender_ValidatorWrapperIsTransparent(t *testing.T) {
	b := dsl.New()
	v := b.Validator(b.Integer(), schema.ValidatorOptions{})
	assert.JSONEq(t, `{"type":"integer"}`, render(t, b, v, jsonschema.Options{}))
}
