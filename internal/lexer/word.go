package lexer

import (
	"fmt"

	"github.com/bashkit/bashkit/internal/token"
)

// lexWord reads one WORD token. It stops at unescaped whitespace or an
// operator start. Nested constructs ($(...), $((...)), ${...}, <(...),
// `...`) are captured as balanced raw text in the Fragment and re-lexed by
// a sub-parser later (internal/parser inherits the remaining depth/fuel
// budget onto that sub-parse, per spec.md §4.2).
func (l *Lexer) lexWord(pos token.Pos) (token.Token, error) {
	var frags []token.Fragment
	var lit []byte

	flushLit := func() {
		if len(lit) > 0 {
			frags = append(frags, token.Fragment{Kind: token.FragLiteral, Text: string(lit)})
			lit = nil
		}
	}

	first := true
	for {
		if l.ch == 0 {
			break
		}
		if !first && (l.ch == ' ' || l.ch == '\t' || l.ch == '\n') {
			break
		}
		if !first && l.atOperatorBoundary() {
			break
		}
		switch l.ch {
		case '\'':
			flushLit()
			f, err := l.lexSingleQuoted()
			if err != nil {
				return token.Token{}, err
			}
			frags = append(frags, f)
		case '"':
			flushLit()
			f, err := l.lexDoubleQuoted()
			if err != nil {
				return token.Token{}, err
			}
			frags = append(frags, f)
		case '`':
			flushLit()
			f, err := l.lexBacktick()
			if err != nil {
				return token.Token{}, err
			}
			frags = append(frags, f)
		case '\\':
			if l.peekChar() == '\n' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			if l.ch == 0 {
				break
			}
			lit = append(lit, l.ch)
			l.readChar()
		case '$':
			flushLit()
			f, err := l.lexDollar()
			if err != nil {
				return token.Token{}, err
			}
			frags = append(frags, f)
		case '~':
			if first {
				flushLit()
				f := l.lexTilde()
				frags = append(frags, f)
			} else {
				lit = append(lit, '~')
				l.readChar()
			}
		case '<':
			if l.peekChar() == '(' {
				flushLit()
				f, err := l.lexProcSub(token.FragProcSubIn)
				if err != nil {
					return token.Token{}, err
				}
				frags = append(frags, f)
				break
			}
			goto defaultCase
		case '>':
			if l.peekChar() == '(' {
				flushLit()
				f, err := l.lexProcSub(token.FragProcSubOut)
				if err != nil {
					return token.Token{}, err
				}
				frags = append(frags, f)
				break
			}
			goto defaultCase
		case '{':
			if braceLooksLikeExpansion(l.input, l.pos) {
				flushLit()
				f, err := l.lexBraceExpansion()
				if err != nil {
					return token.Token{}, err
				}
				frags = append(frags, f)
				break
			}
			goto defaultCase
		default:
		defaultCase:
			lit = append(lit, l.ch)
			l.readChar()
		}
		first = false
	}
	flushLit()
	return token.Token{Kind: token.WORD, Fragments: frags, Pos: pos}, nil
}

func (l *Lexer) atOperatorBoundary() bool {
	switch l.ch {
	case '|', '&', ';', '(', ')':
		return true
	case '<', '>':
		return true
	case '{', '}':
		return l.commandPosition == false && false // handled by lexOperator only at true command boundaries; words may contain literal braces otherwise
	}
	return false
}

func (l *Lexer) lexSingleQuoted() (token.Fragment, error) {
	l.readChar() // consume '
	start := l.pos
	for l.ch != '\'' {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated single-quoted string"}
		}
		l.readChar()
	}
	text := l.input[start:l.pos]
	l.readChar() // consume closing '
	return token.Fragment{Kind: token.FragSingleQuoted, Text: text}, nil
}

// lexDoubleQuoted reads "..." producing a FragDoubleQuotedRun whose Inner
// fragments carry the same kinds lexWord would produce, so $-expansions
// still happen, but word splitting/globbing on the whole run is suppressed
// at expansion time (spec.md §4.1, §4.3 step 5).
func (l *Lexer) lexDoubleQuoted() (token.Fragment, error) {
	l.readChar() // consume "
	var inner []token.Fragment
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			inner = append(inner, token.Fragment{Kind: token.FragLiteral, Text: string(lit)})
			lit = nil
		}
	}
	for l.ch != '"' {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated double-quoted string"}
		}
		switch l.ch {
		case '\\':
			nxt := l.peekChar()
			if nxt == '$' || nxt == '`' || nxt == '"' || nxt == '\\' || nxt == '\n' {
				l.readChar()
				if l.ch == '\n' {
					l.readChar()
					continue
				}
				lit = append(lit, l.ch)
				l.readChar()
			} else {
				lit = append(lit, '\\')
				l.readChar()
			}
		case '$':
			flush()
			f, err := l.lexDollar()
			if err != nil {
				return token.Fragment{}, err
			}
			inner = append(inner, f)
		case '`':
			flush()
			f, err := l.lexBacktick()
			if err != nil {
				return token.Fragment{}, err
			}
			inner = append(inner, f)
		default:
			lit = append(lit, l.ch)
			l.readChar()
		}
	}
	flush()
	l.readChar() // consume closing "
	return token.Fragment{Kind: token.FragDoubleQuotedRun, Inner: inner}, nil
}

func (l *Lexer) lexBacktick() (token.Fragment, error) {
	l.readChar() // consume `
	start := l.pos
	for l.ch != '`' {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated backtick command substitution"}
		}
		if l.ch == '\\' && (l.peekChar() == '`' || l.peekChar() == '\\' || l.peekChar() == '$') {
			l.readChar()
		}
		l.readChar()
	}
	raw := l.input[start:l.pos]
	l.readChar()
	return token.Fragment{Kind: token.FragCmdSub, Raw: raw}, nil
}

func (l *Lexer) lexTilde() token.Fragment {
	l.readChar() // consume ~
	start := l.pos
	for isIdentByte(l.ch) {
		l.readChar()
	}
	return token.Fragment{Kind: token.FragTilde, Text: l.input[start:l.pos]}
}

func isIdentByte(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '-'
}

// lexDollar dispatches on the byte after "$": ${...}, $((...)), $(...), or
// a bare $name / $1 / $@ / $# / $? / $! / $$ variable reference.
func (l *Lexer) lexDollar() (token.Fragment, error) {
	l.readChar() // consume $
	switch {
	case l.ch == '(' && l.peekChar() == '(':
		return l.lexArithSub()
	case l.ch == '(':
		return l.lexParenCmdSub()
	case l.ch == '{':
		return l.lexBracedVar()
	case isIdentStart(l.ch):
		start := l.pos
		for isIdentByte(l.ch) {
			l.readChar()
		}
		return token.Fragment{Kind: token.FragVarUnquoted, Text: l.input[start:l.pos]}, nil
	case isDigit(l.ch):
		name := string(l.ch)
		l.readChar()
		return token.Fragment{Kind: token.FragVarUnquoted, Text: name}, nil
	case l.ch == '@' || l.ch == '*' || l.ch == '#' || l.ch == '?' || l.ch == '!' || l.ch == '$' || l.ch == '-':
		name := string(l.ch)
		l.readChar()
		return token.Fragment{Kind: token.FragVarUnquoted, Text: name}, nil
	default:
		// A lone "$" with nothing meaningful following is a literal "$".
		return token.Fragment{Kind: token.FragLiteral, Text: "$"}, nil
	}
}

func isIdentStart(c byte) bool { return isAlpha(c) || c == '_' }

func (l *Lexer) lexArithSub() (token.Fragment, error) {
	l.readChar() // first (
	l.readChar() // second (
	start := l.pos
	depth := 1
	for depth > 0 {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated arithmetic expansion"}
		}
		if l.ch == '(' {
			depth++
		} else if l.ch == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
		l.readChar()
	}
	raw := l.input[start:l.pos]
	l.readChar() // consume inner )
	if l.ch != ')' {
		return token.Fragment{}, &LexError{Pos: l.here(), Reason: "expected closing )) for arithmetic expansion"}
	}
	l.readChar() // consume outer )
	return token.Fragment{Kind: token.FragArithSub, Raw: raw}, nil
}

func (l *Lexer) lexParenCmdSub() (token.Fragment, error) {
	l.readChar() // consume (
	start := l.pos
	depth := 1
	inSingle, inDouble := false, false
	for depth > 0 {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated command substitution"}
		}
		switch {
		case l.ch == '\\' && !inSingle:
			l.readChar()
		case l.ch == '\'' && !inDouble:
			inSingle = !inSingle
		case l.ch == '"' && !inSingle:
			inDouble = !inDouble
		case l.ch == '(' && !inSingle && !inDouble:
			depth++
		case l.ch == ')' && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				raw := l.input[start:l.pos]
				l.readChar()
				return token.Fragment{Kind: token.FragCmdSub, Raw: raw}, nil
			}
		}
		l.readChar()
	}
	return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated command substitution"}
}

func (l *Lexer) lexProcSub(kind token.FragKind) (token.Fragment, error) {
	l.readChar() // consume < or >
	l.readChar() // consume (
	start := l.pos
	depth := 1
	for depth > 0 {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated process substitution"}
		}
		if l.ch == '(' {
			depth++
		} else if l.ch == ')' {
			depth--
			if depth == 0 {
				raw := l.input[start:l.pos]
				l.readChar()
				return token.Fragment{Kind: kind, Raw: raw}, nil
			}
		}
		l.readChar()
	}
	return token.Fragment{}, fmt.Errorf("unreachable")
}

// lexBracedVar reads "${...}", capturing the raw interior for the parser
// to split into name/op/arg (spec.md §4.3 step 2 operator family).
func (l *Lexer) lexBracedVar() (token.Fragment, error) {
	l.readChar() // consume {
	start := l.pos
	depth := 1
	inSingle, inDouble := false, false
	for depth > 0 {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated parameter expansion"}
		}
		switch {
		case l.ch == '\\' && !inSingle:
			l.readChar()
		case l.ch == '\'' && !inDouble:
			inSingle = !inSingle
		case l.ch == '"' && !inSingle:
			inDouble = !inDouble
		case l.ch == '{' && !inSingle && !inDouble:
			depth++
		case l.ch == '}' && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				raw := l.input[start:l.pos]
				l.readChar()
				return token.Fragment{Kind: token.FragVarQuoted, Raw: raw}, nil
			}
		}
		l.readChar()
	}
	return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated parameter expansion"}
}

// braceLooksLikeExpansion is a cheap lookahead so a literal "{" in a word
// (e.g. a JSON-ish argument) isn't mistaken for brace expansion: we require
// either a comma or ".." before the matching "}" at this nesting level.
func braceLooksLikeExpansion(input string, pos int) bool {
	depth := 0
	for i := pos; i < len(input); i++ {
		switch input[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return false
			}
		case ',':
			if depth == 1 {
				return true
			}
		case '.':
			if depth == 1 && i+1 < len(input) && input[i+1] == '.' {
				return true
			}
		case ' ', '\t', '\n':
			if depth <= 1 {
				return false
			}
		}
	}
	return false
}

func (l *Lexer) lexBraceExpansion() (token.Fragment, error) {
	l.readChar() // consume {
	start := l.pos
	depth := 1
	for depth > 0 {
		if l.ch == 0 {
			return token.Fragment{}, &LexError{Pos: l.here(), Reason: "unterminated brace expansion"}
		}
		if l.ch == '{' {
			depth++
		} else if l.ch == '}' {
			depth--
			if depth == 0 {
				break
			}
		}
		l.readChar()
	}
	raw := l.input[start:l.pos]
	l.readChar() // consume }
	return token.Fragment{Kind: token.FragBrace, Raw: raw}, nil
}
