package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexSimpleWords(t *testing.T) {
	toks := lexAll(t, "echo hello")
	assert.Equal(t, []token.Kind{token.WORD, token.WORD, token.EOF}, kinds(toks))
	assert.Equal(t, []token.Fragment{{Kind: token.FragLiteral, Text: "echo"}}, toks[0].Fragments)
}

func TestLexReservedWordOnlyInCommandPosition(t *testing.T) {
	toks := lexAll(t, "if true; then echo if; fi")
	assert.Equal(t, token.RESERVED, toks[0].Kind)
	assert.Equal(t, "if", toks[0].Lit)

	// the second "if" appears as an argument to echo, not command position
	var echoArgKind token.Kind
	for i, tok := range toks {
		if tok.Kind == token.WORD && len(tok.Fragments) == 1 &&
			tok.Fragments[0].Kind == token.FragLiteral && tok.Fragments[0].Text == "if" {
			echoArgKind = toks[i].Kind
		}
	}
	assert.Equal(t, token.WORD, echoArgKind)
}

func TestLexAssignmentWord(t *testing.T) {
	toks := lexAll(t, "FOO=bar")
	assert.Equal(t, token.ASSIGNMENT_WORD, toks[0].Kind)
}

func TestLexOperators(t *testing.T) {
	toks := lexAll(t, "a && b || c | d ;; e ;")
	got := kinds(toks)
	want := []token.Kind{
		token.WORD, token.AND_AND, token.WORD, token.OR_OR, token.WORD,
		token.PIPE, token.WORD, token.SEMI_SEMI, token.WORD, token.SEMI, token.EOF,
	}
	assert.Equal(t, want, got)
}

func TestLexSingleQuotedString(t *testing.T) {
	toks := lexAll(t, "'hello world'")
	require.Len(t, toks[0].Fragments, 1)
	assert.Equal(t, token.FragSingleQuoted, toks[0].Fragments[0].Kind)
	assert.Equal(t, "hello world", toks[0].Fragments[0].Text)
}

func TestLexDoubleQuotedWithVar(t *testing.T) {
	toks := lexAll(t, `"hi $name!"`)
	require.Len(t, toks[0].Fragments, 1)
	f := toks[0].Fragments[0]
	require.Equal(t, token.FragDoubleQuotedRun, f.Kind)
	require.Len(t, f.Inner, 3)
	assert.Equal(t, token.FragLiteral, f.Inner[0].Kind)
	assert.Equal(t, "hi ", f.Inner[0].Text)
	assert.Equal(t, token.FragVarUnquoted, f.Inner[1].Kind)
	assert.Equal(t, "name", f.Inner[1].Text)
	assert.Equal(t, token.FragLiteral, f.Inner[2].Kind)
	assert.Equal(t, "!", f.Inner[2].Text)
}

func TestLexCommandSubstitution(t *testing.T) {
	toks := lexAll(t, "echo $(ls -a)")
	require.Len(t, toks[1].Fragments, 1)
	assert.Equal(t, token.FragCmdSub, toks[1].Fragments[0].Kind)
	assert.Equal(t, "ls -a", toks[1].Fragments[0].Raw)
}

func TestLexArithmeticSubstitution(t *testing.T) {
	toks := lexAll(t, "echo $((1 + 2))")
	assert.Equal(t, token.FragArithSub, toks[1].Fragments[0].Kind)
	assert.Equal(t, "1 + 2", toks[1].Fragments[0].Raw)
}

func TestLexBracedVar(t *testing.T) {
	toks := lexAll(t, "echo ${name:-default}")
	assert.Equal(t, token.FragVarQuoted, toks[1].Fragments[0].Kind)
	assert.Equal(t, "name:-default", toks[1].Fragments[0].Raw)
}

func TestLexTilde(t *testing.T) {
	toks := lexAll(t, "~user")
	assert.Equal(t, token.FragTilde, toks[0].Fragments[0].Kind)
	assert.Equal(t, "user", toks[0].Fragments[0].Text)
}

func TestLexIONumberBeforeRedirection(t *testing.T) {
	toks := lexAll(t, "2>&1")
	assert.Equal(t, token.IO_NUMBER, toks[0].Kind)
	assert.Equal(t, "2", toks[0].Lit)
	assert.Equal(t, token.GREAT_AMP, toks[1].Kind)
}

func TestLexUnterminatedSingleQuoteIsError(t *testing.T) {
	l := New("'abc")
	_, err := l.NextToken()
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
}

func TestLexBraceExpansionRequiresCommaOrRange(t *testing.T) {
	toks := lexAll(t, "echo {a,b}")
	assert.Equal(t, token.FragBrace, toks[1].Fragments[0].Kind)
	assert.Equal(t, "a,b", toks[1].Fragments[0].Raw)
}

func TestLexLiteralBraceIsNotExpansion(t *testing.T) {
	toks := lexAll(t, `echo {notbrace}`)
	require.Len(t, toks[1].Fragments, 1)
	assert.Equal(t, token.FragLiteral, toks[1].Fragments[0].Kind)
	assert.Equal(t, "{notbrace}", toks[1].Fragments[0].Text)
}
