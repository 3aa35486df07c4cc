// Package rules compiles and evaluates custom predicates attached to schema
// nodes. A rule is a CEL expression over the variable `self` that must yield
// a boolean.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// ImportPath is the path generated code loads rules from.
const ImportPath = "github.com/reoring/skemac/rules"

// Var is the name the validated value is bound to.
const Var = "self"

var env = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(Var, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
})

// Program is a compiled rule.
type Program struct {
	expr string
	prg  cel.Program
}

// Expr returns the source expression.
func (p *Program) Expr() string { return p.expr }

// Compile parses and checks expr. Expressions whose static type is not bool
// (or dyn) are rejected.
func Compile(expr string) (*Program, error) {
	e, err := env()
	if err != nil {
		return nil, err
	}
	ast, iss := e.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("rule %q: %w", expr, iss.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(types.BoolType) && !t.IsExactType(types.DynType) {
		return nil, fmt.Errorf("rule %q: result type %s is not bool", expr, t)
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// MustCompile is Compile that panics on error. Generated validators use it
// for expressions checked at generation time.
func MustCompile(expr string) *Program {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Eval runs the rule against a decoded JSON value.
func (p *Program) Eval(self any) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{Var: self})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q: result %v is not bool", p.expr, out.Value())
	}
	return b, nil
}

// Cache memoizes compiled programs by expression.
type Cache struct {
	mu   sync.Mutex
	prgs map[string]*Program
}

// Get returns the compiled program for expr.
func (c *Cache) Get(expr string) (*Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.prgs[expr]; ok {
		return p, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	if c.prgs == nil {
		c.prgs = map[string]*Program{}
	}
	c.prgs[expr] = p
	return p, nil
}
