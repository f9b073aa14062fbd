package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/token"
)

func TestRawArithBlockStopsAtMatchingDoubleParen(t *testing.T) {
	l := New("i + (1 * 2)))")
	raw, err := l.RawArithBlock()
	require.NoError(t, err)
	assert.Equal(t, "i + (1 * 2)", raw)
	assert.Equal(t, byte(')'), l.ch)
}

func TestRawArithBlockUnterminated(t *testing.T) {
	l := New("i + 1")
	_, err := l.RawArithBlock()
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
}

func TestLexWordFragmentsReLexesOperandText(t *testing.T) {
	frags, err := LexWordFragments("default $x")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, token.FragLiteral, frags[0].Kind)
	assert.Equal(t, "default ", frags[0].Text)
	assert.Equal(t, token.FragVarUnquoted, frags[1].Kind)
	assert.Equal(t, "x", frags[1].Text)
}
