// Package token defines the lexical token kinds produced by internal/lexer
// and consumed by internal/parser.
package token

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	WORD            // an unquoted/quoted word, carries raw fragments
	ASSIGNMENT_WORD // NAME=value in command-word position
	IO_NUMBER       // digits immediately preceding a redirection operator

	NEWLINE
	RESERVED // if/then/elif/else/fi/for/in/do/done/while/until/case/esac/function/!/[[/]]/time

	// Operators
	PIPE        // |
	PIPE_ERR    // |&
	AND_AND     // &&
	OR_OR       // ||
	AMP         // &
	SEMI        // ;
	SEMI_SEMI   // ;;
	SEMI_AMP    // ;&
	SEMI_SEMI_A // ;;&
	LPAREN      // (
	RPAREN      // )
	LBRACE      // {
	RBRACE      // }

	LESS        // <
	GREAT       // >
	DLESS       // <<
	DLESS_DASH  // <<-
	DGREAT      // >>
	LESS_AMP    // <&
	GREAT_AMP   // >&
	LESS_LESS_L // <<< (here-string)
	AND_GREAT   // &> (both fds to file)

	HEREDOC_BODY
)

var names = [...]string{
	EOF:             "EOF",
	ILLEGAL:         "ILLEGAL",
	WORD:            "WORD",
	ASSIGNMENT_WORD:  "ASSIGNMENT_WORD",
	IO_NUMBER:       "IO_NUMBER",
	NEWLINE:         "NEWLINE",
	RESERVED:        "RESERVED",
	PIPE:            "PIPE",
	PIPE_ERR:        "PIPE_ERR",
	AND_AND:         "AND_AND",
	OR_OR:           "OR_OR",
	AMP:             "AMP",
	SEMI:            "SEMI",
	SEMI_SEMI:       "SEMI_SEMI",
	SEMI_AMP:        "SEMI_AMP",
	SEMI_SEMI_A:     "SEMI_SEMI_A",
	LPAREN:          "LPAREN",
	RPAREN:          "RPAREN",
	LBRACE:          "LBRACE",
	RBRACE:          "RBRACE",
	LESS:            "LESS",
	GREAT:           "GREAT",
	DLESS:           "DLESS",
	DLESS_DASH:      "DLESS_DASH",
	DGREAT:          "DGREAT",
	LESS_AMP:        "LESS_AMP",
	GREAT_AMP:       "GREAT_AMP",
	LESS_LESS_L:     "LESS_LESS_L",
	AND_GREAT:       "AND_GREAT",
	HEREDOC_BODY:    "HEREDOC_BODY",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ReservedWords is the fixed set recognised only in command position.
var ReservedWords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"for": true, "in": true, "do": true, "done": true,
	"while": true, "until": true,
	"case": true, "esac": true,
	"function": true,
	"!":        true,
	"[[":       true,
	"]]":       true,
	"time":     true,
}

// Pos is a byte offset plus line/column, 1-based, for error reporting.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Fragment is one raw piece of a WORD token, preserved so the parser can
// hand nested constructs ($(...), ${...}, $((...)), <(...)) to sub-parsers
// and so quoting boundaries survive into the AST (see ast.Fragment).
type Fragment struct {
	Kind  FragKind
	Text  string // literal bytes, for Literal/SingleQuoted/EscapedChar/Tilde user
	Inner []Fragment
	Raw   string // raw source text for nested constructs, re-lexed by a sub-parser
}

type FragKind int

const (
	FragLiteral FragKind = iota
	FragSingleQuoted
	FragDoubleQuotedRun
	FragEscapedChar
	FragVarUnquoted
	FragVarQuoted
	FragCmdSub
	FragBacktickSub
	FragArithSub
	FragTilde
	FragBrace
	FragGlob
	FragHereDoc
	FragHereString
	FragProcSubIn
	FragProcSubOut
)

// Token is a single lexical token with its source position.
type Token struct {
	Kind      Kind
	Lit       string // raw literal text ("" for most operators; the word text for WORD et al.)
	Fragments []Fragment
	Pos       Pos
	Quoted    bool // whole token/delimiter was quoted (relevant for heredoc delimiters)
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Lit, t.Pos)
}
