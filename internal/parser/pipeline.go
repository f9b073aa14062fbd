package parser

import (
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/token"
)

// parsePipeline parses "[!] cmd1 (| | |&) cmd2 ..." (spec.md §3 Pipeline).
func (p *Parser) parsePipeline() (ast.Command, error) {
	negated := false
	pos := p.cur.Pos
	if p.cur.Kind == token.RESERVED && p.cur.Lit == "!" {
		negated = true
		if err := p.consumeFuel(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	first, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	stages := []ast.Command{first}
	stderrToo := false
	for p.cur.Kind == token.PIPE || p.cur.Kind == token.PIPE_ERR {
		if err := p.enterProduction(); err != nil {
			return nil, err
		}
		if p.cur.Kind == token.PIPE_ERR {
			stderrToo = true
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		stages = append(stages, next)
		p.leaveProduction()
	}
	if len(stages) == 1 && !negated {
		return stages[0], nil
	}
	return &ast.Pipeline{Base: ast.Base{At: pos}, Stages: stages, StderrToo: stderrToo, Negated: negated}, nil
}

// parseCommand dispatches to a compound command production or falls
// through to parseSimple (spec.md §3 Command variants).
func (p *Parser) parseCommand() (ast.Command, error) {
	switch {
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "if":
		return p.parseIf()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "for":
		return p.parseFor()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "while":
		return p.parseWhile()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "until":
		return p.parseUntil()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "case":
		return p.parseCase()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "function":
		return p.parseFunctionKeyword()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "[[":
		return p.parseCondExpr()
	case p.cur.Kind == token.RESERVED && p.cur.Lit == "time":
		return p.parseTime()
	case p.cur.Kind == token.LPAREN:
		if pk, err := p.peekTok(); err == nil && pk.Kind == token.LPAREN {
			return p.parseArithCmd()
		}
		return p.parseSubshell()
	case p.cur.Kind == token.LBRACE:
		return p.parseGroup()
	default:
		return p.parseSimpleOrFunction()
	}
}

func (p *Parser) parseTime() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("time"); err != nil {
		return nil, err
	}
	body, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	return &ast.TimeCmd{Base: ast.Base{At: pos}, Body: body}, nil
}

func (p *Parser) parseSubshell() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseProgram(token.RPAREN, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	redirs, err := p.parseRedirections()
	if err != nil {
		return nil, err
	}
	_ = redirs // subshell-level redirections apply to the whole Program; stored on a wrapping Simple-less Group is unnecessary for this subset
	return &ast.Subshell{Base: ast.Base{At: pos}, Body: body}, nil
}

func (p *Parser) parseGroup() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseProgram(token.RBRACE, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Group{Base: ast.Base{At: pos}, Body: body}, nil
}
