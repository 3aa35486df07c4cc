package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/schema"
)

const target schema.Target = "test"

func TestPlaceholder(t *testing.T) {
	tok := registry.Placeholder(42, registry.AttrSymbol)
	assert.Equal(t, "{{42:symbol}}", tok)
	id, attr, ok := registry.ParsePlaceholder(tok)
	require.True(t, ok)
	assert.Equal(t, schema.ID(42), id)
	assert.Equal(t, "symbol", attr)

	_, _, ok = registry.ParsePlaceholder("x{{1:symbol}}")
	assert.False(t, ok)
	assert.True(t, registry.HasPlaceholders("a {{1:ref}} b"))
	assert.False(t, registry.HasPlaceholders("a {{x:ref}} b"))
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"User":         "User",
		"user-profile": "userProfile",
		"a.b c":        "aBC",
		"9lives":       "_9lives",
		"$$":           "",
		"snake_case":   "snake_case",
	}
	for in, want := range cases {
		assert.Equal(t, want, registry.Sanitize(in), in)
	}
}

func TestNaming_Precedence(t *testing.T) {
	b := dsl.New()
	named := b.String(dsl.Named("Email"))
	hinted := b.String()
	obj := b.Object().Field("address", hinted).Build()
	bare := b.Integer()
	require.NoError(t, b.Graph().Load(obj))

	r := registry.New(b.Graph(), target)
	r.Declare(named.ID(), "a", "ignored", false)
	r.Declare(hinted.ID(), "a", "", false)
	r.Declare(bare.ID(), "a", "", false)
	r.Finalize()

	sym := func(n *schema.Node) string {
		v, ok := r.Lookup(n.ID(), registry.AttrSymbol)
		require.True(t, ok)
		return v
	}
	assert.Equal(t, "Email", sym(named))
	assert.Equal(t, "address", sym(hinted))
	assert.Equal(t, "Schema3", sym(bare))
}

func TestFinalize_CollisionSuffixing(t *testing.T) {
	b := dsl.New()
	n1 := b.String(dsl.Named("Name"))
	n2 := b.String(dsl.Named("Name"))
	n3 := b.String(dsl.Named("Name"))
	other := b.String(dsl.Named("Name"))

	r := registry.New(b.Graph(), target)
	r.Declare(n1.ID(), "a.go", "", false)
	r.Declare(n2.ID(), "a.go", "", false)
	r.Declare(other.ID(), "b.go", "", false)
	r.Declare(n3.ID(), "a.go", "", false)
	r.Finalize()

	for n, want := range map[*schema.Node]string{n1: "Name", n2: "Name0", n3: "Name1", other: "Name"} {
		got, _ := r.Lookup(n.ID(), registry.AttrSymbol)
		assert.Equal(t, want, got, n.String())
	}
	assert.Equal(t, []string{"Name", "Name0", "Name1"}, r.Symbols("a.go"))

	unique, _ := r.Lookup(n2.ID(), registry.AttrUnique)
	assert.Equal(t, "a.go#Name0", unique)
	ref, _ := r.Lookup(n3.ID(), registry.AttrRef)
	assert.Equal(t, "Name1", ref)
}

func TestFinalize_SuffixSkipsTakenNames(t *testing.T) {
	b := dsl.New()
	a := b.String(dsl.Named("Pet"))
	c := b.String(dsl.Named("Pet"))
	taken := b.String(dsl.Named("Pet0"))

	r := registry.New(b.Graph(), target)
	r.Declare(a.ID(), "f", "", false)
	r.Declare(c.ID(), "f", "", false)
	r.Declare(taken.ID(), "f", "", false)
	r.Finalize()

	got, _ := r.Lookup(c.ID(), registry.AttrSymbol)
	assert.Equal(t, "Pet1", got)
	got, _ = r.Lookup(taken.ID(), registry.AttrSymbol)
	assert.Equal(t, "Pet0", got)
}

func TestFinalize_Deterministic(t *testing.T) {
	build := func() string {
		b := dsl.New()
		var ids []schema.ID
		for i := 0; i < 5; i++ {
			ids = append(ids, b.String(dsl.Named("T")).ID())
		}
		r := registry.New(b.Graph(), target)
		text := ""
		for i, id := range ids {
			r.Declare(id, []string{"x", "y"}[i%2], "", false)
			text += r.Reference(id, registry.AttrUnique) + "\n"
		}
		out, _, err := r.Resolve(text)
		require.NoError(t, err)
		return out
	}
	first := build()
	assert.Equal(t, first, build())
	assert.Equal(t, "x#T\ny#T\nx#T0\ny#T0\nx#T1\n", first)
}

func TestDeclare_ExplicitPromotion(t *testing.T) {
	b := dsl.New()
	n := b.String()
	r := registry.New(b.Graph(), target)

	assert.True(t, r.Declare(n.ID(), "inline.json", "inner", false))
	assert.False(t, r.Declare(n.ID(), "other.json", "again", false))
	owner, _ := r.Owner(n.ID())
	assert.Equal(t, "inline.json", owner)

	assert.True(t, r.Declare(n.ID(), "export.json", "Exported", true))
	assert.False(t, r.Declare(n.ID(), "late.json", "Late", true))
	r.Finalize()
	file, _ := r.Lookup(n.ID(), registry.AttrFile)
	sym, _ := r.Lookup(n.ID(), registry.AttrSymbol)
	assert.Equal(t, "export.json", file)
	assert.Equal(t, "Exported", sym)
}

func TestResolve_NestedAndMissing(t *testing.T) {
	b := dsl.New()
	user := b.String(dsl.Named("User"))
	alias := b.String(dsl.Named("Alias"))
	r := registry.New(b.Graph(), target)
	r.Declare(user.ID(), "f", "", false)
	r.Declare(alias.ID(), "f", "", false)
	r.Link(alias.ID(), registry.Placeholder(user.ID(), registry.AttrSymbol)+"Alias")

	out, resolved, err := r.Resolve("type " + r.Reference(alias.ID(), registry.AttrSymbol) + " = " + r.Reference(user.ID(), registry.AttrRef))
	require.NoError(t, err)
	assert.Equal(t, "type UserAlias = User", out)
	assert.Equal(t, "User", resolved["{{1:ref}}"])

	_, _, err = r.Resolve("x " + registry.Placeholder(99, registry.AttrSymbol))
	require.Error(t, err)
	assert.True(t, errors.Is(err, skemac.ErrReferenceNotFound))
	var e *skemac.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, uint32(99), e.Node)
	assert.Equal(t, "symbol", e.Attr)
}

func TestResolve_DepthLimit(t *testing.T) {
	b := dsl.New()
	var nodes []*schema.Node
	for i := 0; i < 5; i++ {
		nodes = append(nodes, b.String())
	}
	r := registry.New(b.Graph(), target)
	for i, n := range nodes {
		r.Declare(n.ID(), "f", "", false)
		if i+1 < len(nodes) {
			r.Link(n.ID(), registry.Placeholder(nodes[i+1].ID(), registry.AttrSymbol))
		}
	}
	_, _, err := r.Resolve(registry.Placeholder(nodes[0].ID(), registry.AttrSymbol))
	assert.True(t, errors.Is(err, skemac.ErrReferenceNotFound))

	_, _, err = r.Resolve(registry.Placeholder(nodes[2].ID(), registry.AttrSymbol))
	assert.NoError(t, err)
}

func TestMarkDiscard(t *testing.T) {
	b := dsl.New()
	keep := b.String(dsl.Named("Keep"))
	drop := b.String(dsl.Named("Drop"))
	r := registry.New(b.Graph(), target)
	r.Declare(keep.ID(), "ok.json", "", false)
	mark := r.Mark()
	r.Declare(drop.ID(), "bad.json", "", false)
	r.Declare(keep.ID(), "bad.json", "Keep", true)
	r.Link(keep.ID(), "Forced")
	r.Discard(mark)

	assert.False(t, r.Declared(drop.ID()))
	owner, _ := r.Owner(keep.ID())
	assert.Equal(t, "ok.json", owner)
	r.Finalize()
	sym, _ := r.Lookup(keep.ID(), registry.AttrSymbol)
	assert.Equal(t, "Keep", sym)
}

func TestLink_SanitizesLiteralParts(t *testing.T) {
	b := dsl.New()
	user := b.String(dsl.Named("User"))
	odd := b.String(dsl.Named("Odd"))
	versioned := b.String()
	ignored := b.String(dsl.Named("Kept"))
	r := registry.New(b.Graph(), target)
	for _, n := range []*schema.Node{user, odd, versioned, ignored} {
		r.Declare(n.ID(), "f", "", false)
	}
	r.Link(odd.ID(), "a/b~c")
	r.Link(versioned.ID(), registry.Placeholder(user.ID(), registry.AttrSymbol)+"/v2")
	r.Link(ignored.ID(), "~/")

	out, _, err := r.Resolve(r.Reference(odd.ID(), registry.AttrRef) + " " +
		r.Reference(versioned.ID(), registry.AttrRef) + " " + r.Reference(ignored.ID(), registry.AttrRef))
	require.NoError(t, err)
	assert.Equal(t, "aBC Userv2 Kept", out)
}

func TestOptions(t *testing.T) {
	b := dsl.New()
	n := b.String()
	r := registry.New(b.Graph(), target,
		registry.WithFallback(func(pos int) string { return "Anon" }),
		registry.WithDerive(registry.AttrRef, func(symbol, file string) string { return "#/definitions/" + symbol }),
	)
	r.Declare(n.ID(), "f", "", false)
	out, _, err := r.Resolve(r.Reference(n.ID(), registry.AttrRef))
	require.NoError(t, err)
	assert.Equal(t, "#/definitions/Anon", out)
}
