package visitor_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/schema"
	"github.com/reoring/skemac/visitor"
)

type trace struct{ seen []schema.Kind }

func newTable(g *schema.Graph) *visitor.Table[*trace, string] {
	t := visitor.New[*trace, string](g)
	t.On(schema.KindString, func(n *schema.Node, c *trace) (string, error) {
		c.seen = append(c.seen, n.Kind())
		return "string", nil
	})
	t.On(schema.KindArray, func(n *schema.Node, c *trace) (string, error) {
		c.seen = append(c.seen, n.Kind())
		items, err := t.RenderChildren(n, c)
		if err != nil {
			return "", err
		}
		return "array<" + strings.Join(items, ",") + ">", nil
	})
	return t
}

func TestRender_WrappersPassThrough(t *testing.T) {
	b := dsl.New()
	n := b.Optional(b.Nullable(b.Ref(b.Array(b.Optional(b.String())))))
	tbl := newTable(b.Graph())
	c := &trace{}
	got, err := tbl.Render(n, c)
	require.NoError(t, err)
	assert.Equal(t, "array<string>", got)
	assert.Equal(t, []schema.Kind{schema.KindArray, schema.KindString}, c.seen)
}

func TestRender_UnhandledKind(t *testing.T) {
	b := dsl.New()
	tbl := newTable(b.Graph())
	_, err := tbl.Render(b.Optional(b.Boolean()), &trace{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, skemac.ErrUnhandledNodeKind))
	var e *skemac.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "boolean", e.Kind)
}

func TestRender_BareWrapper(t *testing.T) {
	g := schema.New()
	bare := g.Add(schema.KindNullable, nil)
	tbl := newTable(g)
	_, err := tbl.Render(bare, &trace{})
	assert.True(t, errors.Is(err, skemac.ErrUnsupportedConstruct))
}

func TestRender_CustomDefault(t *testing.T) {
	b := dsl.New()
	tbl := newTable(b.Graph())
	tbl.Default(func(n *schema.Node, c *trace) (string, error) {
		if n.Commutative() {
			return tbl.Passthrough(n, c)
		}
		return "other:" + n.Kind().String(), nil
	})
	got, err := tbl.Render(b.Nullable(b.Integer()), &trace{})
	require.NoError(t, err)
	assert.Equal(t, "other:integer", got)
}

func TestMissing(t *testing.T) {
	g := schema.New()
	tbl := newTable(g)
	missing := tbl.Missing()
	assert.NotContains(t, missing, schema.KindString)
	assert.NotContains(t, missing, schema.KindRef)
	assert.Contains(t, missing, schema.KindCustom)
	assert.Len(t, missing, int(schema.KindCount)-2-3)
}

func TestRender_DoesNotMutateShape(t *testing.T) {
	b := dsl.New()
	arr := b.Array(b.String())
	before := append([]schema.ID(nil), arr.Children()...)
	_, err := newTable(b.Graph()).Render(arr, &trace{})
	require.NoError(t, err)
	assert.Equal(t, before, arr.Children())
}

func TestCheckTotal(t *testing.T) {
	g := schema.New()
	tbl := visitor.New[struct{}, int](g)
	err := tbl.CheckTotal()
	require.Error(t, err)
	assert.True(t, errors.Is(err, skemac.ErrUnhandledNodeKind))
	for _, k := range schema.Kinds() {
		if !k.Commutative() {
			tbl.On(k, func(*schema.Node, struct{}) (int, error) { return 0, nil })
		}
	}
	assert.NoError(t, tbl.CheckTotal())
}
