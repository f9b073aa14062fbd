package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/token"
)

func TestHeredocCollectsUntilDelimiter(t *testing.T) {
	l := New("cat <<EOF\nline one\nline two\nEOF\necho after\n")
	body := l.RegisterHeredoc("EOF", false, false)

	// Consume the header line tokens up to its NEWLINE, which triggers
	// collectPendingHeredocs.
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		if tok.Kind == token.NEWLINE {
			break
		}
	}

	require.Len(t, *body, 1)
	assert.Equal(t, token.FragLiteral, (*body)[0].Kind)
	assert.Equal(t, "line one\nline two\n", (*body)[0].Text)

	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, token.WORD, tok.Kind)
	assert.Equal(t, "echo", tok.Fragments[0].Text)
}

func TestHeredocQuotedDelimiterSuppressesExpansion(t *testing.T) {
	l := New("cat <<'EOF'\n$HOME is unexpanded\nEOF\n")
	body := l.RegisterHeredoc("EOF", true, false)

	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		if tok.Kind == token.NEWLINE {
			break
		}
	}

	require.Len(t, *body, 1)
	assert.Equal(t, "$HOME is unexpanded\n", (*body)[0].Text)
}

func TestHeredocStripTabsIndent(t *testing.T) {
	l := New("cat <<-EOF\n\t\tindented\nEOF\n")
	body := l.RegisterHeredoc("EOF", false, true)

	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		if tok.Kind == token.NEWLINE {
			break
		}
	}

	require.Len(t, *body, 1)
	assert.Equal(t, "indented\n", (*body)[0].Text)
}

func TestHeredocUnterminatedIsError(t *testing.T) {
	l := New("cat <<EOF\nnever closes\n")
	l.RegisterHeredoc("EOF", false, false)

	var err error
	for {
		var tok token.Token
		tok, err = l.NextToken()
		if err != nil {
			break
		}
		if tok.Kind == token.EOF {
			break
		}
	}
	require.Error(t, err)
}
