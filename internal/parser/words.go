package parser

import (
	"strings"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/lexer"
	"github.com/bashkit/bashkit/internal/token"
)

// heredocFixup pairs a lexer-populated heredoc body slot with the ast
// Fragment that needs its HereDocBody filled in once the body has actually
// been collected (which happens when the owning lexer reaches the
// terminating NEWLINE, strictly after the redirection itself was parsed).
type heredocFixup struct {
	src *[]token.Fragment
	dst *ast.Fragment
}

// runHeredocFixups converts every heredoc body registered against this
// parser's lexer. Called once parsing of the token stream that owns those
// heredocs has finished (top-level Parse, or a sub-parse of a nested
// construct that can itself contain heredocs).
func (p *Parser) runHeredocFixups() error {
	fixups := p.heredocFixups
	p.heredocFixups = nil
	for _, fx := range fixups {
		conv, err := p.convertFragments(*fx.src)
		if err != nil {
			return err
		}
		fx.dst.HereDocBody = conv
	}
	return nil
}

// convertFragments turns a lexer-level fragment tree into the parser-level
// ast tree, recursively sub-parsing every nested construct it carries as
// raw text (spec.md §4.2 "sub-parsers inherit the remaining budget").
func (p *Parser) convertFragments(in []token.Fragment) ([]ast.Fragment, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]ast.Fragment, 0, len(in))
	for _, f := range in {
		af, err := p.convertFragment(f)
		if err != nil {
			return nil, err
		}
		out = append(out, af)
	}
	return out, nil
}

func (p *Parser) convertFragment(f token.Fragment) (ast.Fragment, error) {
	switch f.Kind {
	case token.FragLiteral:
		return ast.Fragment{Kind: ast.FragLiteralChars, Text: f.Text}, nil
	case token.FragSingleQuoted:
		return ast.Fragment{Kind: ast.FragSingleQuoted, Text: f.Text}, nil
	case token.FragEscapedChar:
		return ast.Fragment{Kind: ast.FragEscapedChar, Text: f.Text}, nil
	case token.FragDoubleQuotedRun:
		inner, err := p.convertFragments(f.Inner)
		if err != nil {
			return ast.Fragment{}, err
		}
		return ast.Fragment{Kind: ast.FragDoubleQuotedRun, Inner: inner}, nil
	case token.FragVarUnquoted:
		return ast.Fragment{Kind: ast.FragUnquotedVar, VarName: f.Text, VarOp: ast.VarPlain}, nil
	case token.FragVarQuoted:
		return p.parseBracedVar(f.Raw)
	case token.FragCmdSub, token.FragBacktickSub:
		prog, err := p.subParseProgram(f.Raw)
		if err != nil {
			return ast.Fragment{}, err
		}
		return ast.Fragment{Kind: ast.FragCmdSub, CmdSub: prog}, nil
	case token.FragArithSub:
		a, err := arith.Parse(f.Raw)
		if err != nil {
			if ae, ok := err.(*arith.Error); ok {
				return ast.Fragment{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: ae.Error()}
			}
			return ast.Fragment{}, err
		}
		return ast.Fragment{Kind: ast.FragArithSub, ArithExpr: a}, nil
	case token.FragTilde:
		return ast.Fragment{Kind: ast.FragTilde, TildeUser: f.Text}, nil
	case token.FragBrace:
		return p.parseBraceExpansion(f.Raw)
	case token.FragProcSubIn, token.FragProcSubOut:
		prog, err := p.subParseProgram(f.Raw)
		if err != nil {
			return ast.Fragment{}, err
		}
		kind := ast.FragProcSubIn
		if f.Kind == token.FragProcSubOut {
			kind = ast.FragProcSubOut
		}
		return ast.Fragment{Kind: kind, ProcSubBody: prog}, nil
	default:
		return ast.Fragment{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "unsupported word fragment"}
	}
}

// subParseProgram re-lexes and parses raw nested-construct text (command
// substitution or process substitution body) sharing this parser's
// remaining budget (spec.md §4.2, §8 invariant 2).
func (p *Parser) subParseProgram(raw string) (*ast.Program, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	sub, err := subParser(raw, p.budget)
	if err != nil {
		return nil, err
	}
	prog, err := sub.parseProgram(token.EOF, "")
	if err != nil {
		return nil, err
	}
	if err := sub.runHeredocFixups(); err != nil {
		return nil, err
	}
	return prog, nil
}

// wordFromRaw re-lexes raw text as a single word and converts it, used for
// parameter-expansion operand words and brace-expansion elements (spec.md
// §4.3 step 2/step 1): those operands can themselves contain expansions.
func (p *Parser) wordFromRaw(raw string) (ast.Word, error) {
	frags, err := lexer.LexWordFragments(raw)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return ast.Word{}, &ParseError{Kind: ErrSyntax, Pos: le.Pos, Reason: le.Reason}
		}
		return ast.Word{}, err
	}
	conv, err := p.convertFragments(frags)
	if err != nil {
		return ast.Word{}, err
	}
	return ast.Word{Fragments: conv, P: p.cur.Pos}, nil
}

// parseBracedVar splits the interior of "${...}" into name, optional index,
// and the operator family of spec.md §4.3 step 2.
func (p *Parser) parseBracedVar(raw string) (ast.Fragment, error) {
	i := 0
	n := len(raw)
	bang := false
	hash := false
	if i < n && raw[i] == '!' {
		bang = true
		i++
	}
	if !bang && i < n && raw[i] == '#' {
		hash = true
		i++
	}

	nameStart := i
	switch {
	case i < n && (raw[i] == '@' || raw[i] == '*' || raw[i] == '#' || raw[i] == '?' || raw[i] == '!' || raw[i] == '$' || raw[i] == '-'):
		i++
	default:
		for i < n && (isNameByte(raw[i])) {
			i++
		}
	}
	name := raw[nameStart:i]
	if name == "" {
		return ast.Fragment{}, &ParseError{Kind: ErrSyntax, Reason: "missing variable name in ${}"}
	}

	var idxText string
	hasIdx := false
	if i < n && raw[i] == '[' {
		depth := 1
		j := i + 1
		start := j
		for j < n && depth > 0 {
			switch raw[j] {
			case '[':
				depth++
			case ']':
				depth--
			}
			if depth == 0 {
				break
			}
			j++
		}
		if j >= n {
			return ast.Fragment{}, &ParseError{Kind: ErrSyntax, Reason: "unterminated [ in ${}"}
		}
		idxText = raw[start:j]
		hasIdx = true
		i = j + 1
	}

	rest := raw[i:]
	op, argText, hasOp := splitVarOp(rest)

	switch {
	case hash && hasIdx && idxText == "@":
		return ast.Fragment{Kind: ast.FragQuotedVar, VarName: name, VarOp: ast.VarArrayLen}, nil
	case hash:
		return ast.Fragment{Kind: ast.FragQuotedVar, VarName: name, VarOp: ast.VarLength}, nil
	case bang && hasIdx && (idxText == "@" || idxText == "*"):
		return ast.Fragment{Kind: ast.FragQuotedVar, VarName: name, VarOp: ast.VarArrayKeys}, nil
	}

	frag := ast.Fragment{Kind: ast.FragQuotedVar, VarName: name}

	if hasIdx {
		switch idxText {
		case "@":
			frag.VarOp = ast.VarAllAt
		case "*":
			frag.VarOp = ast.VarAllStar
		default:
			idxWord, err := p.wordFromRaw(idxText)
			if err != nil {
				return ast.Fragment{}, err
			}
			frag.VarIdx = &idxWord
			frag.VarOp = ast.VarIndex
		}
	} else {
		frag.VarOp = ast.VarPlain
	}

	if hasOp {
		frag.VarOp = op
		argWord, err := p.wordFromRaw(argText)
		if err != nil {
			return ast.Fragment{}, err
		}
		frag.VarArg = &argWord
	}

	return frag, nil
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// splitVarOp recognises the operator family at the start of s (spec.md
// §4.3 step 2), longest-match first.
func splitVarOp(s string) (op ast.VarOp, arg string, ok bool) {
	if s == "" {
		return 0, "", false
	}
	two := ""
	if len(s) >= 2 {
		two = s[:2]
	}
	switch two {
	case "##":
		return ast.VarRemovePrefixLong, s[2:], true
	case "%%":
		return ast.VarRemoveSuffixLong, s[2:], true
	case ":-":
		return ast.VarDefaultU, s[2:], true
	case ":=":
		return ast.VarAssignU, s[2:], true
	case ":+":
		return ast.VarAltU, s[2:], true
	case ":?":
		return ast.VarErrU, s[2:], true
	}
	switch s[0] {
	case '#':
		return ast.VarRemovePrefixShort, s[1:], true
	case '%':
		return ast.VarRemoveSuffixShort, s[1:], true
	case '-':
		return ast.VarDefault, s[1:], true
	case '=':
		return ast.VarAssign, s[1:], true
	case '+':
		return ast.VarAlt, s[1:], true
	case '?':
		return ast.VarErr, s[1:], true
	}
	return 0, "", false
}

// parseBraceExpansion handles "{a,b,c}" and "{from..to[..step]}" (spec.md
// §4.3 step 1). Anything it cannot classify falls back to a single literal
// element so no input is silently dropped.
func (p *Parser) parseBraceExpansion(raw string) (ast.Fragment, error) {
	if parts, ok := splitTopLevel(raw, '.', true); ok && len(parts) >= 2 {
		from, err1 := arith.Parse(parts[0])
		to, err2 := arith.Parse(parts[1])
		if err1 == nil && err2 == nil {
			frag := ast.Fragment{Kind: ast.FragBrace, BraceIsSeq: false, BraceFrom: &from, BraceTo: &to}
			if len(parts) >= 3 && parts[2] != "" {
				step, err3 := arith.Parse(parts[2])
				if err3 == nil {
					frag.BraceStep = &step
				}
			}
			return frag, nil
		}
	}

	items := splitTopLevelComma(raw)
	if len(items) > 1 {
		words := make([]ast.Word, 0, len(items))
		for _, it := range items {
			w, err := p.wordFromRaw(it)
			if err != nil {
				return ast.Fragment{}, err
			}
			words = append(words, w)
		}
		return ast.Fragment{Kind: ast.FragBrace, BraceIsSeq: true, BraceSeq: words}, nil
	}

	w, err := p.wordFromRaw(raw)
	if err != nil {
		return ast.Fragment{}, err
	}
	return ast.Fragment{Kind: ast.FragBrace, BraceIsSeq: true, BraceSeq: []ast.Word{w}}, nil
}

// splitTopLevelComma splits raw on "," outside of nested {}.
func splitTopLevelComma(raw string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, raw[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, raw[start:])
	return out
}

// splitTopLevel splits raw on a run of two consecutive seps ("..") outside
// nested {}, requiring at least two parts to consider it a match.
func splitTopLevel(raw string, sep byte, double bool) ([]string, bool) {
	marker := string(sep)
	if double {
		marker = strings.Repeat(string(sep), 2)
	}
	depth := 0
	var parts []string
	start := 0
	for i := 0; i+len(marker) <= len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 && raw[i:i+len(marker)] == marker {
			parts = append(parts, raw[start:i])
			start = i + len(marker)
			i += len(marker) - 1
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	parts = append(parts, raw[start:])
	return parts, true
}
