package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/vfs"
)

// fakeRunner stands in for internal/interp so these tests never import it
// (that would create the cycle Runner exists to avoid).
type fakeRunner struct {
	stdout string
}

func (f *fakeRunner) RunCapture(prog *ast.Program) ([]byte, int, error) {
	return []byte(f.stdout), 0, nil
}

func newExpander(t *testing.T) (*Expander, *env.Session) {
	t.Helper()
	s := env.NewSession(1)
	fs := vfs.New(vfs.DefaultLimits())
	return New(s, fs, &fakeRunner{}), s
}

func TestExpandWordSplitsOnWhitespace(t *testing.T) {
	e, _ := newExpander(t)
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "hello world"}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, fields)
}

func TestExpandWordQuotedPreservesSpaces(t *testing.T) {
	e, _ := newExpander(t)
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragSingleQuoted, Text: "hello world"}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, fields)
}

func TestExpandUnquotedVariable(t *testing.T) {
	e, s := newExpander(t)
	require.NoError(t, s.Set("X", "value here"))
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "X", VarOp: ast.VarPlain}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "here"}, fields)
}

func TestExpandQuotedVariableStaysWhole(t *testing.T) {
	e, s := newExpander(t)
	require.NoError(t, s.Set("X", "value here"))
	inner := []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "X", VarOp: ast.VarPlain}}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragDoubleQuotedRun, Inner: inner}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"value here"}, fields)
}

func TestExpandDefaultValueWhenUnset(t *testing.T) {
	e, _ := newExpander(t)
	arg := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "fallback"}}}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "UNSET", VarOp: ast.VarDefaultU, VarArg: &arg}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, fields)
}

func TestExpandAssignDefaultSetsVariable(t *testing.T) {
	e, s := newExpander(t)
	arg := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "assigned"}}}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "Y", VarOp: ast.VarAssignU, VarArg: &arg}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"assigned"}, fields)
	v, ok := s.Get("Y")
	require.True(t, ok)
	assert.Equal(t, "assigned", v)
}

func TestExpandRemovePrefixShort(t *testing.T) {
	e, s := newExpander(t)
	require.NoError(t, s.Set("FILE", "/a/b/c.txt"))
	pat := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "/*/"}}}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "FILE", VarOp: ast.VarRemovePrefixShort, VarArg: &pat}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/c.txt"}, fields)
}

func TestExpandArithmeticSubstitution(t *testing.T) {
	e, _ := newExpander(t)
	expr := ast.ArithBinaryExpr{Op: ast.BinAdd, Left: ast.ArithInteger{Value: 1}, Right: ast.ArithInteger{Value: 2}}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragArithSub, ArithExpr: expr}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, fields)
}

func TestExpandCommandSubstitutionSplitsOnIFS(t *testing.T) {
	s := env.NewSession(1)
	fs := vfs.New(vfs.DefaultLimits())
	e := New(s, fs, &fakeRunner{stdout: "a b c\n"})
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragCmdSub, CmdSub: &ast.Program{}}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}

func TestExpandBraceSequence(t *testing.T) {
	e, _ := newExpander(t)
	from := ast.Arith(ast.ArithInteger{Value: 1})
	to := ast.Arith(ast.ArithInteger{Value: 3})
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragBrace, BraceFrom: &from, BraceTo: &to}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, fields)
}

func TestExpandBraceList(t *testing.T) {
	e, _ := newExpander(t)
	seq := []ast.Word{
		{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "a"}}},
		{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "b"}}},
	}
	w := ast.Word{Fragments: []ast.Fragment{
		{Kind: ast.FragLiteralChars, Text: "pre-"},
		{Kind: ast.FragBrace, BraceIsSeq: true, BraceSeq: seq},
	}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-a", "pre-b"}, fields)
}

func TestExpandLiteralSuppressesSplitAndGlob(t *testing.T) {
	e, _ := newExpander(t)
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragLiteralChars, Text: "a b c"}}}
	s, err := e.ExpandLiteral(w)
	require.NoError(t, err)
	assert.Equal(t, "a b c", s)
}

func TestMaybeGlobMatchesFiles(t *testing.T) {
	e, s := newExpander(t)
	require.NoError(t, e.FS.Mkdir("/dir", false))
	require.NoError(t, e.FS.Write("/dir/a.txt", []byte("x")))
	require.NoError(t, e.FS.Write("/dir/b.txt", []byte("x")))
	s.Cwd = "/dir"

	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragGlob, GlobPattern: "*.txt"}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/dir/a.txt", "/dir/b.txt"}, fields)
}

func TestGlobMatchNoMatchIsLiteral(t *testing.T) {
	e, _ := newExpander(t)
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragGlob, GlobPattern: "*.nonexistent"}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.nonexistent"}, fields)
}

func TestGlobMatchHelper(t *testing.T) {
	assert.True(t, GlobMatch("a*", "abc"))
	assert.True(t, GlobMatch("a?c", "abc"))
	assert.False(t, GlobMatch("a*", "xyz"))
}

func TestPositionalAllAtSplitsEachElement(t *testing.T) {
	e, s := newExpander(t)
	s.Positional = []string{"one two", "three"}
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "@", VarOp: ast.VarPlain}}}
	fields, err := e.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, fields)
}

func TestNoUnsetVariableUnderNoUnsetErrors(t *testing.T) {
	e, s := newExpander(t)
	s.Options.NoUnset = true
	w := ast.Word{Fragments: []ast.Fragment{{Kind: ast.FragUnquotedVar, VarName: "NOPE", VarOp: ast.VarPlain}}}
	_, err := e.ExpandWord(w)
	require.Error(t, err)
	var unbound *env.UnboundVariable
	require.ErrorAs(t, err, &unbound)
}
