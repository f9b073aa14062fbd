// Package parser is the recursive-descent parser of spec.md §4.2: it
// consumes internal/lexer's token stream and produces an immutable
// internal/ast tree, bounded by a depth budget and a fuel budget that every
// sub-parse (command substitution, process substitution, parameter
// expansion pattern) inherits rather than resets (spec.md §3 Invariants,
// §8 invariant 2).
package parser

import (
	"fmt"
	"time"

	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/lexer"
	"github.com/bashkit/bashkit/internal/token"
)

// ErrorKind distinguishes the ParseError variants of spec.md §7.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrTooDeep
	ErrFuelExhausted
	ErrTimeout
)

type ParseError struct {
	Kind   ErrorKind
	Pos    token.Pos
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Reason)
}

// HardMaxDepth is the absolute ceiling spec.md §4.2 mandates; configured
// values above it are clamped.
const HardMaxDepth = 100

// Budget is shared, mutable parse state threaded through every sub-parse so
// nested $(...) / <(...) / ${...} constructs cannot reset it (spec.md §3
// invariant, §8 invariant 2 regression test).
type Budget struct {
	DepthRemaining int
	FuelRemaining  int
	Deadline       time.Time
}

// Options configures a top-level parse (spec.md §6 Limits via the Session
// builder flow downstream).
type Options struct {
	MaxDepth       int
	MaxFuel        int
	ParserTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{MaxDepth: HardMaxDepth, MaxFuel: 100000, ParserTimeout: 30 * time.Second}
}

// Parser walks a token stream from internal/lexer, sharing Budget with any
// sub-parser it spawns for nested constructs.
type Parser struct {
	lex    *lexer.Lexer
	budget *Budget

	cur  token.Token
	peek *token.Token

	heredocFixups []heredocFixup
}

// New creates a top-level parser for src, clamping MaxDepth to HardMaxDepth.
func New(src string, opts Options) (*Parser, error) {
	depth := opts.MaxDepth
	if depth <= 0 || depth > HardMaxDepth {
		depth = HardMaxDepth
	}
	fuel := opts.MaxFuel
	if fuel <= 0 {
		fuel = 100000
	}
	deadline := time.Now().Add(opts.ParserTimeout)
	if opts.ParserTimeout <= 0 {
		deadline = time.Now().Add(30 * time.Second)
	}
	b := &Budget{DepthRemaining: depth, FuelRemaining: fuel, Deadline: deadline}
	return newWithBudget(src, b)
}

// subParser creates a parser over raw nested-construct text that shares the
// parent's remaining Budget (spec.md §4.2: "Sub-parsers ... inherit the
// remaining budgets").
func subParser(raw string, b *Budget) (*Parser, error) {
	return newWithBudget(raw, b)
}

func newWithBudget(src string, b *Budget) (*Parser, error) {
	p := &Parser{lex: lexer.New(src), budget: b}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	if p.peek != nil {
		p.cur = *p.peek
		p.peek = nil
		return nil
	}
	t, err := p.lex.NextToken()
	if err != nil {
		return wrapLexErr(err)
	}
	p.cur = t
	return nil
}

func (p *Parser) peekTok() (token.Token, error) {
	if p.peek == nil {
		t, err := p.lex.NextToken()
		if err != nil {
			return token.Token{}, wrapLexErr(err)
		}
		p.peek = &t
	}
	return *p.peek, nil
}

func wrapLexErr(err error) error {
	if le, ok := err.(*lexer.LexError); ok {
		return &ParseError{Kind: ErrSyntax, Pos: le.Pos, Reason: le.Reason}
	}
	return err
}

// enterProduction must be called on entry to every compound production
// (spec.md §4.2): it decrements depth and fuel and checks the deadline.
func (p *Parser) enterProduction() error {
	p.budget.FuelRemaining--
	if p.budget.FuelRemaining <= 0 {
		return &ParseError{Kind: ErrFuelExhausted, Pos: p.cur.Pos, Reason: "parser fuel exhausted"}
	}
	p.budget.DepthRemaining--
	if p.budget.DepthRemaining <= 0 {
		return &ParseError{Kind: ErrTooDeep, Pos: p.cur.Pos, Reason: "parser exceeded maximum AST depth"}
	}
	if time.Now().After(p.budget.Deadline) {
		return &ParseError{Kind: ErrTimeout, Pos: p.cur.Pos, Reason: "parser exceeded wall-clock timeout"}
	}
	return nil
}

func (p *Parser) leaveProduction() { p.budget.DepthRemaining++ }

// consumeFuel must be called for every token consumed (spec.md §4.2).
func (p *Parser) consumeFuel() error {
	p.budget.FuelRemaining--
	if p.budget.FuelRemaining <= 0 {
		return &ParseError{Kind: ErrFuelExhausted, Pos: p.cur.Pos, Reason: "parser fuel exhausted"}
	}
	return nil
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos,
			Reason: fmt.Sprintf("expected %s, got %s", k, p.cur.Kind)}
	}
	t := p.cur
	if err := p.consumeFuel(); err != nil {
		return token.Token{}, err
	}
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

func (p *Parser) expectReserved(word string) error {
	if p.cur.Kind != token.RESERVED || p.cur.Lit != word {
		return &ParseError{Kind: ErrSyntax, Pos: p.cur.Pos,
			Reason: fmt.Sprintf("expected %q, got %s(%q)", word, p.cur.Kind, p.cur.Lit)}
	}
	if err := p.consumeFuel(); err != nil {
		return err
	}
	return p.advance()
}

func (p *Parser) atReserved(word string) bool {
	return p.cur.Kind == token.RESERVED && p.cur.Lit == word
}

func (p *Parser) skipNewlines() error {
	for p.cur.Kind == token.NEWLINE {
		if err := p.consumeFuel(); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) skipSeparators() error {
	for p.cur.Kind == token.NEWLINE || p.cur.Kind == token.SEMI {
		if err := p.consumeFuel(); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// Parse parses a complete script into a Program (spec.md §4.2 top-level
// entry).
func Parse(src string, opts Options) (*ast.Program, error) {
	p, err := New(src, opts)
	if err != nil {
		return nil, err
	}
	prog, err := p.parseProgram(token.EOF, "")
	if err != nil {
		return nil, err
	}
	if err := p.runHeredocFixups(); err != nil {
		return nil, err
	}
	return prog, nil
}

// parseProgram parses commands until EOF or the given terminator (a
// RESERVED word like "fi"/"done"/"esac", or RBRACE/RPAREN).
func (p *Parser) parseProgram(term token.Kind, termWord string) (*ast.Program, error) {
	prog := &ast.Program{}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for !p.atTerminator(term, termWord) {
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

func (p *Parser) atTerminator(term token.Kind, termWord string) bool {
	if p.cur.Kind == token.EOF {
		return true
	}
	if term == token.RESERVED {
		return p.cur.Kind == token.RESERVED && p.cur.Lit == termWord
	}
	return p.cur.Kind == term
}

// parseListItem parses one top-level Command: a List of AndOr groups
// separated by ";"/"&", folded into a single ast.Command (a bare List when
// there is more than one item, spec.md §3 List).
func (p *Parser) parseListItem() (ast.Command, error) {
	first, err := p.parseAndOr()
	if err != nil {
		return nil, err
	}
	items := []ast.ListItem{{Cmd: first, Sep: ast.SepSemi}}
	for p.cur.Kind == token.SEMI || p.cur.Kind == token.AMP {
		sep := ast.SepSemi
		if p.cur.Kind == token.AMP {
			sep = ast.SepAmp
		}
		items[len(items)-1].Sep = sep
		if err := p.consumeFuel(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind == token.NEWLINE || p.cur.Kind == token.EOF ||
			(p.cur.Kind == token.RESERVED && token.ReservedWords[p.cur.Lit]) {
			break
		}
		next, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		items = append(items, ast.ListItem{Cmd: next, Sep: ast.SepSemi})
	}
	if len(items) == 1 {
		return items[0].Cmd, nil
	}
	return &ast.List{Items: items}, nil
}

func (p *Parser) parseAndOr() (ast.Command, error) {
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.AND_AND || p.cur.Kind == token.OR_OR {
		if err := p.enterProduction(); err != nil {
			return nil, err
		}
		op := ast.AndOp
		if p.cur.Kind == token.OR_OR {
			op = ast.OrOp
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		right, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		left = &ast.AndOr{Base: ast.Base{At: pos}, Left: left, Right: right, Op: op}
		p.leaveProduction()
	}
	return left, nil
}
