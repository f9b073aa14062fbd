package lexer

import "github.com/bashkit/bashkit/internal/token"

// LexWordFragments lexes s as a single word's worth of fragments. It is used
// by internal/parser to re-lex operand text captured raw by the top-level
// lexer (parameter-expansion default/alternate words, brace-expansion
// elements), so nested expansions inside those operands still get a proper
// Fragment tree instead of being treated as opaque text.
func LexWordFragments(s string) ([]token.Fragment, error) {
	l := New(s)
	tok, err := l.lexWord(l.here())
	if err != nil {
		return nil, err
	}
	return tok.Fragments, nil
}
