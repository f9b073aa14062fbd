package ast

import "github.com/bashkit/bashkit/internal/token"

// Word is an ordered sequence of Fragments; its final string value(s) are
// only known at execution time, after expansion (spec.md §4.3).
type Word struct {
	Fragments []Fragment
	P         token.Pos
}

// FragmentKind enumerates the Fragment variants named in spec.md §3.
type FragmentKind int

const (
	FragLiteralChars FragmentKind = iota
	FragSingleQuoted
	FragDoubleQuotedRun
	FragEscapedChar
	FragUnquotedVar
	FragQuotedVar
	FragCmdSub
	FragArithSub
	FragTilde
	FragBrace
	FragGlob
	FragHereDoc
	FragHereString
	FragProcSubIn
	FragProcSubOut
)

// VarOp is the "${name OP word}" operator family (spec.md §4.3 step 2).
type VarOp int

const (
	VarPlain     VarOp = iota // $name, ${name}
	VarDefaultU               // ${name:-w}
	VarDefault                // ${name-w}
	VarAssignU                // ${name:=w}
	VarAssign                 // ${name=w}
	VarAltU                   // ${name:+w}
	VarAlt                    // ${name+w}
	VarErrU                   // ${name:?w}
	VarErr                    // ${name?w}
	VarLength                 // ${#name}
	VarRemovePrefixShort       // ${name#pat}
	VarRemovePrefixLong        // ${name##pat}
	VarRemoveSuffixShort       // ${name%pat}
	VarRemoveSuffixLong        // ${name%%pat}
	VarIndex                   // ${name[i]}
	VarAllAt                   // ${name[@]}
	VarAllStar                 // ${name[*]}
	VarArrayLen                // ${#name[@]}
	VarArrayKeys                // ${!name[@]}
)

// Fragment is one piece of a Word. Exactly one of the typed payload fields
// is populated, selected by Kind.
type Fragment struct {
	Kind FragmentKind

	// FragLiteralChars, FragSingleQuoted, FragEscapedChar
	Text string

	// FragDoubleQuotedRun
	Inner []Fragment

	// FragUnquotedVar / FragQuotedVar
	VarName string
	VarOp   VarOp
	VarArg  *Word  // the "w"/"pat" operand, nil if none
	VarIdx  *Word  // array index expression, nil for scalar

	// FragCmdSub
	CmdSub *Program

	// FragArithSub
	ArithExpr Arith

	// FragTilde
	TildeUser string // "" for bare "~"

	// FragBrace
	BraceSeq   []Word // {a,b,c} — each element already a Word
	BraceFrom  *Arith // {1..5} / {1..5..2}
	BraceTo    *Arith
	BraceStep  *Arith
	BraceIsSeq bool // true => BraceSeq populated; false => numeric range

	// FragGlob
	GlobPattern string

	// FragHereDoc
	HereDocBody   []Fragment
	HereDocStrip  bool // <<- : strip leading tabs
	HereDocExpand bool // expansion performed unless delimiter was quoted

	// FragHereString
	HereStringWord *Word

	// FragProcSubIn / FragProcSubOut
	ProcSubBody *Program

	P token.Pos
}

// RedirOp enumerates the redirection operators of spec.md §3.
type RedirOp int

const (
	RedirIn       RedirOp = iota // <
	RedirOut                     // >
	RedirAppend                  // >>
	RedirDup                     // >&, <&
	RedirErrToOut                // 2>&1 (dup fd form with fixed target)
	RedirBoth                    // &>
	RedirHereDoc                 // <<, <<-
	RedirHereStr                 // <<<
)

// Redirection describes one redirection attached to a Simple/compound
// command. Target is set for file/heredoc targets; DupFD is set (>=0) for
// "N>&M" duplication forms, -1 otherwise.
type Redirection struct {
	FD     int // defaults by Op if not explicit: 0 for IN/HERE*, 1 for OUT/APPEND/BOTH
	Op     RedirOp
	Target *Word
	DupFD  int // -1 unless Op==RedirDup
	P      token.Pos
}
