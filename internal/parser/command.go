package parser

import (
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/token"
)

// parseSimpleOrFunction parses a Simple command, or — if the word is
// followed immediately by "()" — a POSIX-style function definition
// ("name() { ... }"), spec.md §3 FunctionDef.
func (p *Parser) parseSimpleOrFunction() (ast.Command, error) {
	pos := p.cur.Pos
	if p.cur.Kind == token.WORD && len(p.cur.Fragments) == 1 && p.cur.Fragments[0].Kind == token.FragLiteral {
		if pk, err := p.peekTok(); err == nil && pk.Kind == token.LPAREN {
			name := p.cur.Fragments[0].Text
			if err := p.advance(); err != nil { // consume name
				return nil, err
			}
			if err := p.advance(); err != nil { // consume (
				return nil, err
			}
			if p.cur.Kind != token.RPAREN {
				return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected ) in function definition"}
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
			body, err := p.parseCommand()
			if err != nil {
				return nil, err
			}
			return &ast.FunctionDef{Base: ast.Base{At: pos}, Name: name, Body: body}, nil
		}
	}
	return p.parseSimple()
}

func (p *Parser) parseFunctionKeyword() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("function"); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.WORD || len(p.cur.Fragments) != 1 || p.cur.Fragments[0].Kind != token.FragLiteral {
		return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected function name"}
	}
	name := p.cur.Fragments[0].Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind == token.LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{Base: ast.Base{At: pos}, Name: name, Body: body}, nil
}

// parseSimple parses assignments, words, and redirections in any order, as
// POSIX shells do (spec.md §3 Simple).
func (p *Parser) parseSimple() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	s := &ast.Simple{Base: ast.Base{At: pos}}

	for {
		switch p.cur.Kind {
		case token.ASSIGNMENT_WORD:
			name, val, err := p.splitAssignmentWord()
			if err != nil {
				return nil, err
			}
			s.Assignments = append(s.Assignments, ast.Assignment{Name: name, Value: val})
			if err := p.consumeFuel(); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case token.IO_NUMBER, token.LESS, token.GREAT, token.DGREAT, token.DLESS, token.DLESS_DASH,
			token.LESS_AMP, token.GREAT_AMP, token.AND_GREAT, token.LESS_LESS_L:
			r, err := p.parseOneRedirection()
			if err != nil {
				return nil, err
			}
			s.Redirs = append(s.Redirs, r)
		case token.WORD:
			w, err := p.convertWordToken(p.cur)
			if err != nil {
				return nil, err
			}
			s.Words = append(s.Words, w)
			if err := p.consumeFuel(); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			if len(s.Words) == 0 && len(s.Assignments) == 0 && len(s.Redirs) == 0 {
				return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected command"}
			}
			return s, nil
		}
	}
}

// splitAssignmentWord converts the literal "NAME=value" text of an
// ASSIGNMENT_WORD token into a name plus a Word built from any remaining
// (possibly expansion-bearing) fragments after the "=".
func (p *Parser) splitAssignmentWord() (string, ast.Word, error) {
	t := p.cur
	first := t.Fragments[0]
	idx := indexByte(first.Text, '=')
	name := first.Text[:idx]
	rest := first.Text[idx+1:]
	frags := append([]token.Fragment{{Kind: token.FragLiteral, Text: rest}}, t.Fragments[1:]...)
	w, err := p.convertFragments(frags)
	if err != nil {
		return "", ast.Word{}, err
	}
	return name, ast.Word{Fragments: w, P: t.Pos}, nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func (p *Parser) convertWordToken(t token.Token) (ast.Word, error) {
	frags, err := p.convertFragments(t.Fragments)
	if err != nil {
		return ast.Word{}, err
	}
	return ast.Word{Fragments: frags, P: t.Pos}, nil
}
