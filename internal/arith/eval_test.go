package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/ast"
)

// memVars is a minimal Vars backed by a plain map, standing in for
// internal/env.Session in these evaluator-only tests.
type memVars struct {
	scalars map[string]int64
}

func newMemVars() *memVars { return &memVars{scalars: map[string]int64{}} }

func (m *memVars) GetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error)) (int64, error) {
	return m.scalars[name], nil
}

func (m *memVars) SetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error), value int64) error {
	m.scalars[name] = value
	return nil
}

func evalSrc(t *testing.T, src string, vars *memVars) int64 {
	t.Helper()
	expr, err := Parse(src)
	require.NoError(t, err)
	v, err := Eval(expr, vars)
	require.NoError(t, err)
	return v
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"addition", "1 + 2", 3},
		{"precedence", "2 + 3 * 4", 14},
		{"parens", "(2 + 3) * 4", 20},
		{"unary minus", "-5 + 10", 5},
		{"logical not", "!0", 1},
		{"bitwise not", "~0", -1},
		{"ternary true", "1 ? 10 : 20", 10},
		{"ternary false", "0 ? 10 : 20", 20},
		{"comparison", "5 > 3", 1},
		{"modulo", "10 % 3", 1},
		{"shift left", "1 << 4", 16},
		{"bitwise and", "6 & 3", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalSrc(t, tt.src, newMemVars()))
		})
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	expr, err := Parse("1 / 0")
	require.NoError(t, err)
	_, err = Eval(expr, newMemVars())
	require.Error(t, err)
	var arithErr *Error
	require.ErrorAs(t, err, &arithErr)
}

func TestEvalVariableAssignment(t *testing.T) {
	vars := newMemVars()
	vars.scalars["x"] = 5
	got := evalSrc(t, "x = x + 1", vars)
	assert.Equal(t, int64(6), got)
	assert.Equal(t, int64(6), vars.scalars["x"])
}

func TestEvalPreIncrement(t *testing.T) {
	vars := newMemVars()
	vars.scalars["x"] = 1
	got := evalSrc(t, "++x", vars)
	assert.Equal(t, int64(2), got)
	assert.Equal(t, int64(2), vars.scalars["x"])
}

func TestEvalRecursionLimit(t *testing.T) {
	// A deeply nested expression should trip MaxDepth rather than
	// overflowing the Go call stack.
	src := ""
	for i := 0; i < MaxDepth+50; i++ {
		src += "-"
	}
	src += "1"
	expr, err := Parse(src)
	require.NoError(t, err)
	_, err = Eval(expr, newMemVars())
	require.Error(t, err)
}
