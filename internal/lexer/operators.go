package lexer

import "github.com/bashkit/bashkit/internal/token"

type opRule struct {
	text string
	kind token.Kind
}

// Longest-match-first operator table (spec.md §4.1 token kinds).
var opRules = []opRule{
	{"<<<", token.LESS_LESS_L},
	{"<<-", token.DLESS_DASH},
	{"2>&1", token.GREAT_AMP}, // handled specially below via prefix digit
	{"&&", token.AND_AND},
	{"||", token.OR_OR},
	{"|&", token.PIPE_ERR},
	{";;", token.SEMI_SEMI},
	{";&", token.SEMI_AMP},
	{"<<", token.DLESS},
	{">>", token.DGREAT},
	{"<&", token.LESS_AMP},
	{">&", token.GREAT_AMP},
	{"&>", token.AND_GREAT},
	{"|", token.PIPE},
	{"&", token.AMP},
	{";", token.SEMI},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"{", token.LBRACE},
	{"}", token.RBRACE},
	{"<", token.LESS},
	{">", token.GREAT},
}

// lexOperator attempts to match an operator at the current position. It
// does not consume anything on a non-match.
func (l *Lexer) lexOperator(pos token.Pos) (token.Token, bool, error) {
	// ";;&" must be tried before ";;" and ";&".
	if l.matchLit(";;&") {
		l.advance(3)
		return token.Token{Kind: token.SEMI_SEMI_A, Pos: pos}, true, nil
	}
	for _, r := range opRules {
		if r.kind == token.GREAT_AMP && r.text == "2>&1" {
			continue // not a real prefix match here; redirection fd-dup is parsed from IO_NUMBER + this op
		}
		if l.matchLit(r.text) {
			// "{" / "}" are only operators in command position (brace
			// group) or word-terminal contexts; elsewhere they are
			// literal word characters (brace expansion is lexed as part
			// of a word). We only treat them as operators when they
			// appear where a command/word boundary is expected, i.e.
			// always here — the parser disambiguates brace-group "{"
			// from a literal "{" starting a word by requiring whitespace
			// or line start before a brace-group token, consistent with
			// POSIX's reserved-word-like treatment of "{"/"}".
			if (r.text == "{" || r.text == "}") && !l.commandPosition {
				continue
			}
			l.advance(len(r.text))
			return token.Token{Kind: r.kind, Lit: r.text, Pos: pos}, true, nil
		}
	}
	return token.Token{}, false, nil
}

func (l *Lexer) matchLit(s string) bool {
	if l.pos+len(s) > len(l.input) {
		return false
	}
	return l.input[l.pos:l.pos+len(s)] == s
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		l.readChar()
	}
}
