package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemac/rules"
)

func TestEval(t *testing.T) {
	cases := []struct {
		expr string
		self any
		want bool
	}{
		{"self > 0", float64(3), true},
		{"self > 0", float64(-1), false},
		{"size(self) >= 2", "ab", true},
		{"self.min <= self.max", map[string]any{"min": float64(1), "max": float64(5)}, true},
		{"self.min <= self.max", map[string]any{"min": float64(9), "max": float64(5)}, false},
		{"self.all(x, x != '')", []any{"a", "b"}, true},
		{"!has(self.b) || self.a == 'x'", map[string]any{"a": "y"}, true},
		{"self == null", nil, true},
	}
	for _, tc := range cases {
		p, err := rules.Compile(tc.expr)
		require.NoError(t, err, tc.expr)
		got, err := p.Eval(tc.self)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := rules.Compile("self >")
	assert.Error(t, err)
	_, err = rules.Compile("1 + 2")
	assert.ErrorContains(t, err, "not bool")
	assert.Panics(t, func() { rules.MustCompile("(") })
}

func TestEvalError(t *testing.T) {
	p := rules.MustCompile("self.missing > 1")
	_, err := p.Eval(map[string]any{})
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	var c rules.Cache
	a, err := c.Get("self")
	require.NoError(t, err)
	b, err := c.Get("self")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "self", a.Expr())
}
