package sample_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/sample"
	"github.com/reoring/skemac/schema"
	"github.com/reoring/skemac/validator"
)

func TestGenerate_Primitives(t *testing.T) {
	b := dsl.New()
	cases := []struct {
		name string
		node *schema.Node
		want any
	}{
		{"string", b.String(), ""},
		{"min length", b.String(dsl.MinLength(3)), "aaa"},
		{"format", b.String(dsl.Format("email")), "user@example.com"},
		{"pattern", b.String(dsl.Pattern("^[0-9]+$")), "0"},
		{"pattern and length", b.String(dsl.Pattern("^[A-Z]+$"), dsl.MinLength(2)), "AA"},
		{"number", b.Number(), 0.0},
		{"exclusive", b.Number(dsl.ExclusiveMinimum(0)), 0.5},
		{"integer", b.Integer(dsl.Minimum(1.5)), 2.0},
		{"multiple", b.Integer(dsl.Minimum(1), dsl.MultipleOf(3)), 3.0},
		{"boolean", b.Boolean(), false},
		{"null", b.Null(), nil},
		{"enum", b.Enum([]any{"x", "y"}), "x"},
		{"const", b.Const(float64(7)), float64(7)},
		{"nullable", b.Nullable(b.String(dsl.MinLength(1))), "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sample.Generate(b.Graph(), tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerate_Unsatisfiable(t *testing.T) {
	b := dsl.New()
	for name, n := range map[string]*schema.Node{
		"bounds":  b.Integer(dsl.Minimum(1.2), dsl.Maximum(1.5)),
		"pattern": b.String(dsl.Pattern("^zz$")),
		"enum":    b.Enum(nil),
		"unique":  b.Array(b.Boolean(), dsl.MinItems(2), dsl.UniqueItems()),
	} {
		_, err := sample.Generate(b.Graph(), n)
		assert.ErrorIs(t, err, skemac.ErrUnsupportedConstruct, name)
	}
}

func TestGenerate_Composites(t *testing.T) {
	b := dsl.New()
	n := b.Object().
		Field("id", b.String(dsl.Format("uuid"))).
		Optional("note", b.String()).
		Field("tags", b.Array(b.String(), dsl.MinItems(2))).
		Field("pair", b.Tuple([]*schema.Node{b.Boolean(), b.Integer(), b.Optional(b.String())})).
		Field("labels", b.Record(b.String())).
		Field("either", b.Union([]*schema.Node{b.String(dsl.Pattern("^zz$")), b.Integer()})).
		Field("both", b.Intersection([]*schema.Node{
			b.Object().Field("a", b.Boolean()).Build(),
			b.Object().Field("b", b.Null()).Build(),
		})).
		Build()
	got, err := sample.Generate(b.Graph(), n)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":     "00000000-0000-4000-8000-000000000000",
		"tags":   []any{"", ""},
		"pair":   []any{false, 0.0},
		"labels": map[string]any{},
		"either": 0.0,
		"both":   map[string]any{"a": false, "b": nil},
	}, got)
}

func TestGenerate_Recursion(t *testing.T) {
	b := dsl.New()
	var list *schema.Node
	list = b.Object().
		Field("v", b.Integer()).
		Field("next", b.Nullable(b.Lazy(func() *schema.Node { return list }))).
		Build(dsl.Named("List"))
	got, err := sample.Generate(b.Graph(), list)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 0.0, "next": map[string]any{
		"v": 0.0, "next": map[string]any{"v": 0.0, "next": nil},
	}}, got)

	var loop *schema.Node
	loop = b.Object().Field("self", b.Lazy(func() *schema.Node { return loop })).Build()
	_, err = sample.Generate(b.Graph(), loop)
	assert.ErrorIs(t, err, skemac.ErrUnsupportedConstruct)
}

func TestGenerate_DefaultsAndHooks(t *testing.T) {
	b := dsl.New()
	calls := 0
	hook := dsl.OnGenerate(func(*schema.Graph, *schema.Node) error { calls++; return nil })
	n := b.Object().
		Field("a", b.String(dsl.Default("dflt"), hook)).
		Field("b", b.Integer(dsl.Examples(float64(42)), hook)).
		Field("c", b.Custom(map[string]any{"type": "object"}, dsl.Examples(map[string]any{"k": "v"}))).
		Build()
	got, err := sample.New(b.Graph(), sample.Options{UseDefaults: true}).Value(n)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "dflt", "b": float64(42), "c": map[string]any{"k": "v"}}, got)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	failing := b.String(dsl.OnGenerate(func(*schema.Graph, *schema.Node) error { return boom }))
	_, err = sample.Generate(b.Graph(), failing)
	assert.ErrorIs(t, err, boom)
}

func TestJSON(t *testing.T) {
	b := dsl.New()
	out, err := sample.JSON(b.Graph(), b.Object().Field("a", b.Boolean()).Build(), sample.Options{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": false}`, string(out))
}

// Generated samples satisfy the validators compiled from the same schema.
func TestRoundTrip(t *testing.T) {
	b := dsl.New()
	cat := b.Object().Field("kind", b.Const("cat")).Field("lives", b.Integer(dsl.Minimum(1))).Build(dsl.Named("Cat"))
	dog := b.Object().Field("kind", b.Const("dog")).Build(dsl.Named("Dog"))
	var tree *schema.Node
	tree = b.Object().
		Field("pet", b.DiscriminatedUnion("kind", []*schema.Node{b.Ref(cat), b.Ref(dog)})).
		Field("email", b.Nullable(b.String(dsl.Format("email")))).
		Field("when", b.String(dsl.Format("date-time"))).
		Field("score", b.Number(dsl.ExclusiveMinimum(0), dsl.MultipleOf(0.25))).
		Field("kids", b.Array(b.Lazy(func() *schema.Node { return tree }), dsl.MaxItems(4))).
		Field("pair", b.TupleRest([]*schema.Node{b.String(dsl.MinLength(2))}, b.Integer())).
		Build(dsl.Named("Tree"), dsl.Rule("size(self.kids) < 5", ""))

	v, err := sample.Generate(b.Graph(), tree)
	require.NoError(t, err)
	for _, d := range []skemac.Dialect{skemac.DialectJSONSchema, skemac.DialectOpenAPI} {
		pred, err := jsonschema.CompileValidator(context.Background(), b.Graph(), tree, validator.New(nil),
			jsonschema.Options{Dialect: d}, jsonschema.CompileOptions{Formats: true})
		require.NoError(t, err)
		assert.NoError(t, pred(v), d.String())
	}
}
