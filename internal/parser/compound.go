package parser

import (
	"strings"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/token"
)

// step consumes the current token, charging one unit of fuel (spec.md
// §4.2: "every token consumed").
func (p *Parser) step() error {
	if err := p.consumeFuel(); err != nil {
		return err
	}
	return p.advance()
}

// parseProgramUntilReserved parses commands until the current token is one
// of the given reserved words (left unconsumed) or EOF.
func (p *Parser) parseProgramUntilReserved(words ...string) (*ast.Program, error) {
	prog := &ast.Program{}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for !p.atAnyReserved(words) && p.cur.Kind != token.EOF {
		cmd, err := p.parseListItem()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, cmd)
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Parser) atAnyReserved(words []string) bool {
	if p.cur.Kind != token.RESERVED {
		return false
	}
	for _, w := range words {
		if p.cur.Lit == w {
			return true
		}
	}
	return false
}

func wrapArithErr(err error, pos token.Pos) error {
	if ae, ok := err.(*arith.Error); ok {
		return &ParseError{Kind: ErrSyntax, Pos: pos, Reason: ae.Error()}
	}
	return err
}

// parseIf parses "if COND; then BODY; [elif COND; then BODY;]... [else BODY;] fi".
func (p *Parser) parseIf() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("if"); err != nil {
		return nil, err
	}
	node := &ast.If{Base: ast.Base{At: pos}}
	for {
		cond, err := p.parseProgramUntilReserved("then")
		if err != nil {
			return nil, err
		}
		if err := p.expectReserved("then"); err != nil {
			return nil, err
		}
		then, err := p.parseProgramUntilReserved("elif", "else", "fi")
		if err != nil {
			return nil, err
		}
		node.Clauses = append(node.Clauses, ast.IfClause{Cond: cond, Then: then})
		if p.atReserved("elif") {
			if err := p.expectReserved("elif"); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.atReserved("else") {
		if err := p.expectReserved("else"); err != nil {
			return nil, err
		}
		elseBody, err := p.parseProgramUntilReserved("fi")
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
	}
	if err := p.expectReserved("fi"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("while"); err != nil {
		return nil, err
	}
	cond, err := p.parseProgramUntilReserved("do")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseProgramUntilReserved("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return &ast.While{Base: ast.Base{At: pos}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseUntil() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("until"); err != nil {
		return nil, err
	}
	cond, err := p.parseProgramUntilReserved("do")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseProgramUntilReserved("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return &ast.Until{Base: ast.Base{At: pos}, Cond: cond, Body: body}, nil
}

// consumeDoubleLParenRaw consumes "((" ... "))" as raw text, used by both
// the "((expr))" arithmetic command and the C-style for-loop header. The
// caller must already know p.cur is LPAREN and the peeked token is also
// LPAREN.
func (p *Parser) consumeDoubleLParenRaw() (string, error) {
	raw, err := p.lex.RawArithBlock()
	if err != nil {
		return "", wrapLexErr(err)
	}
	p.peek = nil
	if err := p.advance(); err != nil {
		return "", err
	}
	return raw, nil
}

func (p *Parser) parseArithCmd() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if _, err := p.peekTok(); err != nil {
		return nil, err
	}
	raw, err := p.consumeDoubleLParenRaw()
	if err != nil {
		return nil, err
	}
	expr, err := arith.Parse(raw)
	if err != nil {
		return nil, wrapArithErr(err, pos)
	}
	return &ast.ArithCmd{Base: ast.Base{At: pos}, Expr: expr}, nil
}

func splitCStyleFor(raw string) (string, string, string, error) {
	parts := strings.SplitN(raw, ";", 3)
	if len(parts) != 3 {
		return "", "", "", &ParseError{Kind: ErrSyntax, Reason: "C-style for requires init; cond; post"}
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

// parseFor parses both "for NAME [in WORDS]; do BODY; done" and the
// C-style "for ((init; cond; post)); do BODY; done" form.
func (p *Parser) parseFor() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("for"); err != nil {
		return nil, err
	}

	if p.cur.Kind == token.LPAREN {
		if pk, err := p.peekTok(); err == nil && pk.Kind == token.LPAREN {
			raw, err := p.consumeDoubleLParenRaw()
			if err != nil {
				return nil, err
			}
			initS, condS, postS, err := splitCStyleFor(raw)
			if err != nil {
				return nil, err
			}
			node := &ast.CFor{Base: ast.Base{At: pos}}
			if initS != "" {
				if node.Init, err = arith.Parse(initS); err != nil {
					return nil, wrapArithErr(err, pos)
				}
			}
			if condS != "" {
				if node.Cond, err = arith.Parse(condS); err != nil {
					return nil, wrapArithErr(err, pos)
				}
			}
			if postS != "" {
				if node.Post, err = arith.Parse(postS); err != nil {
					return nil, wrapArithErr(err, pos)
				}
			}
			if p.cur.Kind == token.SEMI {
				if err := p.step(); err != nil {
					return nil, err
				}
			}
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
			if err := p.expectReserved("do"); err != nil {
				return nil, err
			}
			body, err := p.parseProgramUntilReserved("done")
			if err != nil {
				return nil, err
			}
			if err := p.expectReserved("done"); err != nil {
				return nil, err
			}
			node.Body = body
			return node, nil
		}
	}

	if p.cur.Kind != token.WORD || len(p.cur.Fragments) != 1 || p.cur.Fragments[0].Kind != token.FragLiteral {
		return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected loop variable name"}
	}
	name := p.cur.Fragments[0].Text
	if err := p.step(); err != nil {
		return nil, err
	}

	var words []ast.Word
	haveIn := false
	if p.atReserved("in") {
		haveIn = true
		if err := p.expectReserved("in"); err != nil {
			return nil, err
		}
		for p.cur.Kind == token.WORD {
			w, err := p.convertWordToken(p.cur)
			if err != nil {
				return nil, err
			}
			words = append(words, w)
			if err := p.step(); err != nil {
				return nil, err
			}
		}
	}
	_ = haveIn // nil Words means "iterate over $@", matching the bare "for NAME; do" form
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseProgramUntilReserved("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return &ast.For{Base: ast.Base{At: pos}, Name: name, Words: words, Body: body}, nil
}

func (p *Parser) atCaseClauseEnd() bool {
	switch p.cur.Kind {
	case token.SEMI_SEMI, token.SEMI_AMP, token.SEMI_SEMI_A, token.EOF:
		return true
	}
	return p.atReserved("esac")
}

func (p *Parser) parseCase() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("case"); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.WORD {
		return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected case subject"}
	}
	subject, err := p.convertWordToken(p.cur)
	if err != nil {
		return nil, err
	}
	if err := p.step(); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if err := p.expectReserved("in"); err != nil {
		return nil, err
	}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}

	node := &ast.Case{Base: ast.Base{At: pos}, Subject: subject}
	for !p.atReserved("esac") && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.LPAREN {
			if err := p.step(); err != nil {
				return nil, err
			}
		}
		var pats []ast.Word
		for {
			if p.cur.Kind != token.WORD {
				return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected case pattern"}
			}
			w, err := p.convertWordToken(p.cur)
			if err != nil {
				return nil, err
			}
			pats = append(pats, w)
			if err := p.step(); err != nil {
				return nil, err
			}
			if p.cur.Kind == token.PIPE {
				if err := p.step(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		body := &ast.Program{}
		for !p.atCaseClauseEnd() {
			cmd, err := p.parseListItem()
			if err != nil {
				return nil, err
			}
			body.Commands = append(body.Commands, cmd)
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
		}
		term := ast.TermBreak
		switch p.cur.Kind {
		case token.SEMI_SEMI:
			term = ast.TermBreak
			if err := p.step(); err != nil {
				return nil, err
			}
		case token.SEMI_AMP:
			term = ast.TermFallthrough
			if err := p.step(); err != nil {
				return nil, err
			}
		case token.SEMI_SEMI_A:
			term = ast.TermTestNext
			if err := p.step(); err != nil {
				return nil, err
			}
		}
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		node.Clauses = append(node.Clauses, ast.CaseClause{Patterns: pats, Body: body, Term: term})
	}
	if err := p.expectReserved("esac"); err != nil {
		return nil, err
	}
	return node, nil
}

// soleLiteral reports whether t is a single unquoted literal fragment, and
// returns its text. Conditional-expression operators (-z, ==, -eq, ...)
// must appear unquoted to be recognised, matching bash's own behaviour.
func soleLiteral(t token.Token) (string, bool) {
	if len(t.Fragments) != 1 || t.Fragments[0].Kind != token.FragLiteral {
		return "", false
	}
	return t.Fragments[0].Text, true
}

var unaryCondOps = map[string]ast.CondOp{
	"-z": ast.CondStrZero,
	"-n": ast.CondStrNZero,
	"-e": ast.CondFileExists,
	"-f": ast.CondFileRegular,
	"-d": ast.CondFileDir,
	"-r": ast.CondFileReadable,
	"-w": ast.CondFileWritable,
	"-x": ast.CondFileExecutable,
}

// binaryCondOps maps operator text to a CondOp.
var binaryCondOps = map[string]ast.CondOp{
	"==": ast.CondEq, "=": ast.CondEq, "!=": ast.CondNe,
	"=~": ast.CondRegex,
	"-eq": ast.CondEq, "-ne": ast.CondNe,
	"-lt": ast.CondLt, "-gt": ast.CondGt,
	"-le": ast.CondLe, "-ge": ast.CondGe,
}

// parseCondExpr parses "[[ ... ]]" (spec.md §4.4). Note: "<" and ">" are
// tokenised as redirection operators by the general lexer, so string
// ordering comparisons inside [[ ]] (a rarely-used bash feature) are not
// supported by this subset; use -lt/-gt or == instead.
func (p *Parser) parseCondExpr() (ast.Command, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	pos := p.cur.Pos
	if err := p.expectReserved("[["); err != nil {
		return nil, err
	}
	node, err := p.parseCondOr()
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("]]"); err != nil {
		return nil, err
	}
	return &ast.CondExpr{Base: ast.Base{At: pos}, Expr: node}, nil
}

func (p *Parser) parseCondOr() (ast.CondNode, error) {
	left, err := p.parseCondAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.OR_OR {
		if err := p.step(); err != nil {
			return nil, err
		}
		right, err := p.parseCondAnd()
		if err != nil {
			return nil, err
		}
		left = ast.CondLogical{Op: ast.CondOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCondAnd() (ast.CondNode, error) {
	left, err := p.parseCondTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.AND_AND {
		if err := p.step(); err != nil {
			return nil, err
		}
		right, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		left = ast.CondLogical{Op: ast.CondAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCondTerm() (ast.CondNode, error) {
	if err := p.enterProduction(); err != nil {
		return nil, err
	}
	defer p.leaveProduction()
	if p.cur.Kind == token.RESERVED && p.cur.Lit == "!" {
		if err := p.step(); err != nil {
			return nil, err
		}
		inner, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		return ast.CondNegate{Arg: inner}, nil
	}
	if p.cur.Kind == token.LPAREN {
		if err := p.step(); err != nil {
			return nil, err
		}
		node, err := p.parseCondOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return node, nil
	}
	return p.parseCondPrimary()
}

func (p *Parser) parseCondPrimary() (ast.CondNode, error) {
	if p.cur.Kind != token.WORD {
		return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected conditional expression operand"}
	}
	if lit, ok := soleLiteral(p.cur); ok {
		if op, isUnary := unaryCondOps[lit]; isUnary {
			if err := p.step(); err != nil {
				return nil, err
			}
			if p.cur.Kind != token.WORD {
				return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected operand after unary test operator"}
			}
			arg, err := p.convertWordToken(p.cur)
			if err != nil {
				return nil, err
			}
			if err := p.step(); err != nil {
				return nil, err
			}
			return ast.CondUnary{Op: op, Arg: arg}, nil
		}
	}

	left, err := p.convertWordToken(p.cur)
	if err != nil {
		return nil, err
	}
	if err := p.step(); err != nil {
		return nil, err
	}

	if lit, ok := soleLiteral(p.cur); ok {
		if op, isBinary := binaryCondOps[lit]; isBinary {
			if err := p.step(); err != nil {
				return nil, err
			}
			if p.cur.Kind != token.WORD {
				return nil, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos, Reason: "expected right-hand operand"}
			}
			right, err := p.convertWordToken(p.cur)
			if err != nil {
				return nil, err
			}
			if err := p.step(); err != nil {
				return nil, err
			}
			return ast.CondBinary{Op: op, Left: left, Right: right}, nil
		}
	}

	return ast.CondUnary{Op: ast.CondStrNZero, Arg: left}, nil
}
