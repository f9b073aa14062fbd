package parser

import (
	"strconv"

	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/token"
)

// parseRedirections consumes zero or more trailing redirections (used
// after compound commands like subshells; simple commands interleave
// redirections with words via parseSimple).
func (p *Parser) parseRedirections() ([]ast.Redirection, error) {
	var out []ast.Redirection
	for {
		switch p.cur.Kind {
		case token.IO_NUMBER, token.LESS, token.GREAT, token.DGREAT, token.DLESS, token.DLESS_DASH,
			token.LESS_AMP, token.GREAT_AMP, token.AND_GREAT, token.LESS_LESS_L:
			r, err := p.parseOneRedirection()
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		default:
			return out, nil
		}
	}
}

// parseOneRedirection parses "[N]OP target", where target is a word (or a
// heredoc body / fd number for dup forms), spec.md §4.4 Redirection
// application.
func (p *Parser) parseOneRedirection() (ast.Redirection, error) {
	pos := p.cur.Pos
	fd := -1
	if p.cur.Kind == token.IO_NUMBER {
		n, err := strconv.Atoi(p.cur.Lit)
		if err != nil {
			return ast.Redirection{}, &ParseError{Kind: ErrSyntax, Pos: pos, Reason: "invalid IO number"}
		}
		fd = n
		if err := p.consumeFuel(); err != nil {
			return ast.Redirection{}, err
		}
		if err := p.advance(); err != nil {
			return ast.Redirection{}, err
		}
	}

	opKind := p.cur.Kind
	var op ast.RedirOp
	defaultFD := 1
	switch opKind {
	case token.LESS:
		op, defaultFD = ast.RedirIn, 0
	case token.GREAT:
		op, defaultFD = ast.RedirOut, 1
	case token.DGREAT:
		op, defaultFD = ast.RedirAppend, 1
	case token.DLESS, token.DLESS_DASH:
		op, defaultFD = ast.RedirHereDoc, 0
	case token.LESS_LESS_L:
		op, defaultFD = ast.RedirHereStr, 0
	case token.LESS_AMP:
		op, defaultFD = ast.RedirDup, 0
	case token.GREAT_AMP:
		op, defaultFD = ast.RedirDup, 1
	case token.AND_GREAT:
		op, defaultFD = ast.RedirBoth, 1
	default:
		return ast.Redirection{}, &ParseError{Kind: ErrSyntax, Pos: pos, Reason: "expected redirection operator"}
	}
	if fd == -1 {
		fd = defaultFD
	}
	stripTabs := opKind == token.DLESS_DASH
	if err := p.consumeFuel(); err != nil {
		return ast.Redirection{}, err
	}
	if err := p.advance(); err != nil {
		return ast.Redirection{}, err
	}

	// "N>&M" / "N<&M" dup-to-fd form: target is a bare digit word, or "-"
	// to close the fd.
	if op == ast.RedirDup && p.cur.Kind == token.WORD && isDupTarget(p.cur) {
		dupFD := -1
		if p.cur.Fragments[0].Text != "-" {
			n, err := strconv.Atoi(p.cur.Fragments[0].Text)
			if err != nil {
				return ast.Redirection{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "invalid dup target"}
			}
			dupFD = n
		}
		r := ast.Redirection{FD: fd, Op: op, DupFD: dupFD, P: pos}
		if err := p.consumeFuel(); err != nil {
			return ast.Redirection{}, err
		}
		if err := p.advance(); err != nil {
			return ast.Redirection{}, err
		}
		return r, nil
	}

	if op == ast.RedirHereDoc {
		return p.parseHeredocRedir(fd, stripTabs, pos)
	}

	if p.cur.Kind != token.WORD {
		return ast.Redirection{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected redirection target"}
	}
	target, err := p.convertWordToken(p.cur)
	if err != nil {
		return ast.Redirection{}, err
	}
	if err := p.consumeFuel(); err != nil {
		return ast.Redirection{}, err
	}
	if err := p.advance(); err != nil {
		return ast.Redirection{}, err
	}
	return ast.Redirection{FD: fd, Op: op, Target: &target, DupFD: -1, P: pos}, nil
}

func isDupTarget(t token.Token) bool {
	if len(t.Fragments) != 1 || t.Fragments[0].Kind != token.FragLiteral {
		return false
	}
	s := t.Fragments[0].Text
	if s == "-" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseHeredocRedir reads the delimiter word and registers the heredoc
// body with the lexer so it is collected after the current line's NEWLINE
// (spec.md §4.1/§4.2 heredoc bodies attached to their redirection node).
func (p *Parser) parseHeredocRedir(fd int, stripTabs bool, pos token.Pos) (ast.Redirection, error) {
	if p.cur.Kind != token.WORD {
		return ast.Redirection{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected heredoc delimiter"}
	}
	delim, quoted := heredocDelimiterText(p.cur)
	bodyFrags := p.lex.RegisterHeredoc(delim, quoted, stripTabs)
	if err := p.consumeFuel(); err != nil {
		return ast.Redirection{}, err
	}
	if err := p.advance(); err != nil {
		return ast.Redirection{}, err
	}
	// The heredoc body is only collected by the lexer once it reaches the
	// terminating NEWLINE, which happens after this redirection is parsed;
	// the Fragment is finalised later by runHeredocFixups.
	target := &ast.Word{P: pos, Fragments: []ast.Fragment{{
		Kind:          ast.FragHereDoc,
		HereDocStrip:  stripTabs,
		HereDocExpand: !quoted,
	}}}
	p.heredocFixups = append(p.heredocFixups, heredocFixup{src: bodyFrags, dst: &target.Fragments[0]})
	return ast.Redirection{FD: fd, Op: ast.RedirHereDoc, Target: target, DupFD: -1, P: pos}, nil
}

// heredocDelimiterText extracts the literal delimiter text and whether it
// was quoted anywhere (spec.md: "unless DELIM was quoted at the header").
func heredocDelimiterText(t token.Token) (string, bool) {
	var b []byte
	quoted := false
	for _, f := range t.Fragments {
		switch f.Kind {
		case token.FragLiteral:
			b = append(b, f.Text...)
		case token.FragSingleQuoted:
			quoted = true
			b = append(b, f.Text...)
		case token.FragDoubleQuotedRun:
			quoted = true
			for _, inner := range f.Inner {
				if inner.Kind == token.FragLiteral {
					b = append(b, inner.Text...)
				}
			}
		}
	}
	return string(b), quoted
}
