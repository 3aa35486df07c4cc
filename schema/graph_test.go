package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/schema"
)

func TestGraph_IdentityIsSequentialAndStable(t *testing.T) {
	build := func() []schema.ID {
		g := schema.New()
		s := g.Add(schema.KindString, nil)
		o := g.Add(schema.KindObject, schema.ObjectOptions{Keys: []string{"a"}}, s.ID())
		r := g.Add(schema.KindRef, nil, o.ID())
		return []schema.ID{s.ID(), o.ID(), r.ID()}
	}
	first, second := build(), build()
	assert.Equal(t, []schema.ID{1, 2, 3}, first)
	assert.Equal(t, first, second)
}

func TestGraph_NodeLookup(t *testing.T) {
	g := schema.New()
	s := g.Add(schema.KindString, nil)
	assert.Same(t, s, g.Node(s.ID()))
	assert.Nil(t, g.Node(0))
	assert.Nil(t, g.Node(99))
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Owns(s))
	assert.False(t, schema.New().Owns(s))
}

func TestTraits_CommutativeChainInAnyOrder(t *testing.T) {
	g := schema.New()
	str := g.Add(schema.KindString, nil)
	optNull := g.Add(schema.KindOptional, nil, g.Add(schema.KindNullable, nil, str.ID()).ID())
	nullOpt := g.Add(schema.KindNullable, nil, g.Add(schema.KindOptional, nil, str.ID()).ID())
	deep := g.Add(schema.KindRef, nil, g.Add(schema.KindOptional, nil, g.Add(schema.KindRef, nil, nullOpt.ID()).ID()).ID())

	for _, n := range []*schema.Node{optNull, nullOpt, deep} {
		assert.True(t, g.IsUltimatelyNullable(n), n.String())
		assert.True(t, g.IsUltimatelyOptional(n), n.String())
		assert.Same(t, str, g.Unwrap(n))
	}
	assert.False(t, g.IsUltimatelyNullable(str))

	// the chain stops at the first non-commutative node
	arr := g.Add(schema.KindArray, nil, g.Add(schema.KindNullable, nil, str.ID()).ID())
	assert.False(t, g.IsUltimatelyNullable(g.Add(schema.KindOptional, nil, arr.ID())))
}

func TestTraits_LocalChainStopsAtRef(t *testing.T) {
	g := schema.New()
	str := g.Add(schema.KindString, nil)
	target := g.Add(schema.KindNullable, nil, str.ID())
	ref := g.Add(schema.KindRef, nil, target.ID())
	opt := g.Add(schema.KindOptional, nil, ref.ID())

	ws, end := g.LocalChain(opt)
	assert.Len(t, ws, 1)
	assert.Same(t, ref, end)
	assert.False(t, g.LocalHas(opt, schema.KindNullable))
	assert.True(t, g.IsUltimatelyNullable(opt))
}

func TestTraits_RefCycleOfWrappersTerminates(t *testing.T) {
	g := schema.New()
	a := g.Add(schema.KindRef, nil)
	b := g.Add(schema.KindRef, nil, a.ID())
	a.SetLazy(func() *schema.Node { return b })
	require.NoError(t, g.Load(a))
	assert.Nil(t, g.Unwrap(a))
}

func TestLoad_HooksFireOnceAndFreeze(t *testing.T) {
	g := schema.New()
	str := g.Add(schema.KindString, nil)
	calls := 0
	str.OnLoad(func(_ *schema.Graph, _ *schema.Node) error { calls++; return nil })
	obj := g.Add(schema.KindObject, schema.ObjectOptions{Keys: []string{"a", "b"}}, str.ID(), str.ID())

	require.NoError(t, g.Load(obj))
	require.NoError(t, g.Load(obj))
	assert.Equal(t, 1, calls)
	assert.True(t, str.Loaded())
	assert.Panics(t, func() { str.SetName("x") })
}

func TestLoad_LazyAndHints(t *testing.T) {
	g := schema.New()
	var node *schema.Node
	lazy := g.Add(schema.KindRef, nil).SetLazy(func() *schema.Node { return node })
	opt := g.Add(schema.KindOptional, nil, lazy.ID())
	node = g.Add(schema.KindObject, schema.ObjectOptions{Keys: []string{"child"}}, opt.ID())
	node.SetName("Tree")

	require.NoError(t, g.Load(node))
	assert.Equal(t, []schema.ID{node.ID()}, lazy.Children())
	assert.Equal(t, "child", opt.Hint())
	assert.Equal(t, "child", lazy.Hint())
	// named node reached again through the cycle keeps its name; hint is only a fallback
	assert.Equal(t, "Tree", node.Name())
}

func TestLoad_HintsFixedByFirstLoad(t *testing.T) {
	g := schema.New()
	item := g.Add(schema.KindString, nil)
	list := g.Add(schema.KindArray, schema.ArrayOptions{}, item.ID())
	byKey := g.Add(schema.KindObject, schema.ObjectOptions{Keys: []string{"item"}}, item.ID())

	require.NoError(t, g.Load(list))
	require.NoError(t, g.Load(byKey))
	assert.Equal(t, "", item.Hint())

	// the reverse order assigns the hint on first load
	g = schema.New()
	item = g.Add(schema.KindString, nil)
	list = g.Add(schema.KindArray, schema.ArrayOptions{}, item.ID())
	byKey = g.Add(schema.KindObject, schema.ObjectOptions{Keys: []string{"item"}}, item.ID())
	require.NoError(t, g.Load(byKey))
	require.NoError(t, g.Load(list))
	assert.Equal(t, "item", item.Hint())
}

func TestLoad_LazyOutsideGraphFails(t *testing.T) {
	g := schema.New()
	other := schema.New().Add(schema.KindString, nil)
	r := g.Add(schema.KindRef, nil).SetLazy(func() *schema.Node { return other })
	err := g.Load(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedConstruct))
}

func TestExportAndGenerateHooks(t *testing.T) {
	g := schema.New()
	n := g.Add(schema.KindString, nil)
	var seen []string
	gens := 0
	n.OnExport(func(_ *schema.Graph, n *schema.Node, x *schema.Export) error {
		seen = append(seen, string(x.Target)+":"+x.Name)
		if x.Target == "decl" {
			x.SetAttr("path", "decl/"+n.ID().String())
		}
		return nil
	})
	n.OnGenerate(func(*schema.Graph, *schema.Node) error { gens++; return nil })

	first := schema.NewExport("jsonschema", "A", map[string]string{"path": "a.json"})
	second := schema.NewExport("jsonschema", "B", map[string]string{"path": "b.json"})
	decl := schema.NewExport("decl", "A", nil)
	require.NoError(t, g.Export(n, first))
	require.NoError(t, g.Export(n, second))
	require.NoError(t, g.Export(n, decl))
	require.NoError(t, g.Generate(n))
	require.NoError(t, g.Generate(n))

	assert.Equal(t, []string{"jsonschema:A", "jsonschema:B", "decl:A"}, seen)
	assert.Equal(t, 2, gens)

	// every export keeps its own attributes
	p, _ := first.Attr("path")
	assert.Equal(t, "a.json", p)
	p, _ = second.Attr("path")
	assert.Equal(t, "b.json", p)
	p, _ = decl.Attr("path")
	assert.Equal(t, "decl/1", p)
	_, ok := schema.NewExport("decl", "A", nil).Attr("path")
	assert.False(t, ok)
}

func TestSole(t *testing.T) {
	g := schema.New()
	bare := g.Add(schema.KindOptional, nil)
	_, err := g.Sole(bare)
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedConstruct))
}

func TestKind(t *testing.T) {
	assert.Len(t, schema.Kinds(), int(schema.KindCount))
	for _, k := range schema.Kinds() {
		assert.NotEqual(t, "invalid", k.String())
	}
	assert.True(t, schema.KindRef.Commutative())
	assert.False(t, schema.KindValidator.Commutative())
	assert.True(t, schema.KindUnknown.Primitive())
	assert.False(t, schema.KindObject.Primitive())
}
