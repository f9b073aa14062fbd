// Package interp is the tree-walking interpreter of spec.md §4.4: it walks
// an internal/ast.Program, dispatching each Command variant, applying
// redirections against internal/vfs, and charging internal/env's resource
// counters as it goes. It implements internal/expand.Runner so command and
// process substitution can recursively execute sub-programs without a Go
// import cycle back into this package.
package interp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/expand"
	"github.com/bashkit/bashkit/internal/vfs"
)

// Builtin is one registered builtin command (spec.md §4.5 Builtin
// contract): it reads Stdin, writes Stdout/Stderr, and returns an exit
// status. A panic inside one is recovered at the call site and turned into
// the BuiltinPanic error kind (spec.md §7).
type Builtin func(ctx *ExecContext, args []string) int

// Builtins resolves a command name to a Builtin, implemented by
// internal/builtin's registry. Names lists every registered name, used to
// build a "did you mean" suggestion on CommandNotFound.
type Builtins interface {
	Lookup(name string) (Builtin, bool)
	Names() []string
}

// ExecContext is handed to every builtin invocation.
type ExecContext struct {
	Session *env.Session
	FS      *vfs.FS
	Expand  *expand.Expander
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Interp ties a Session, filesystem, expander, and builtin registry
// together into one executable unit (spec.md §4.4).
type Interp struct {
	Session  *env.Session
	FS       *vfs.FS
	Expand   *expand.Expander
	Builtins Builtins
}

// New constructs an Interp; the expander is wired back to run through this
// same Interp for command/process substitution.
func New(s *env.Session, fs *vfs.FS, builtins Builtins) *Interp {
	it := &Interp{Session: s, FS: fs, Builtins: builtins}
	it.Expand = expand.New(s, fs, it)
	return it
}

// BuiltinPanic is the error kind of spec.md §7: a builtin panicked instead
// of returning an exit status.
type BuiltinPanic struct {
	Name string
}

func (e *BuiltinPanic) Error() string { return fmt.Sprintf("%s: builtin failed unexpectedly", e.Name) }

// errAbort is returned internally by exec* methods to unwind to the
// nearest loop/program boundary once `set -e` (errexit) fires; it never
// escapes Run/RunCapture.
var errAbort = errors.New("interp: errexit abort")

// limitedWriter charges every write against Limits.OutputBytes (spec.md §5
// output_bytes, "Enforced at: on write to stdout buffer"), remembering the
// first ResourceExceeded so it can be picked back up by execCommand even
// when the immediate caller (a Builtin only returns an exit status, not an
// error) discards the Write error.
type limitedWriter struct {
	w      io.Writer
	limits *env.Limits
	err    error
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.err != nil {
		return 0, lw.err
	}
	if err := lw.limits.ChargeOutput(len(p)); err != nil {
		lw.err = err
		return 0, err
	}
	return lw.w.Write(p)
}

// Run executes a whole program against the given stdio, returning the
// exit status of the last command run (spec.md §6 exec()).
func (it *Interp) Run(prog *ast.Program, stdin io.Reader, stdout, stderr io.Writer) int {
	stdout = &limitedWriter{w: stdout, limits: &it.Session.Limits}
	status, err := it.execProgram(prog, stdin, stdout, stderr, false)
	if sig, ok := asCtrl(err); ok {
		switch sig.kind {
		case ctrlExit, ctrlReturn:
			return sig.status
		case ctrlBreak, ctrlContinue:
			return status // no enclosing loop: bash treats this as a no-op
		}
	}
	if err != nil && !errors.Is(err, errAbort) {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return status
}

// RunCapture implements internal/expand.Runner for command substitution
// and process substitution: it runs prog in a forked subshell (spec.md
// §4.4 Subshell isolation) with stdout captured.
func (it *Interp) RunCapture(prog *ast.Program) ([]byte, int, error) {
	sub := it.Session.Fork()
	child := New(sub, it.FS, it.Builtins)
	var buf bytes.Buffer
	capture := &limitedWriter{w: &buf, limits: &sub.Limits}
	status, err := child.execProgram(prog, strings.NewReader(""), capture, io.Discard, false)
	if sig, ok := asCtrl(err); ok {
		switch sig.kind {
		case ctrlExit, ctrlReturn:
			return buf.Bytes(), sig.status, nil
		case ctrlBreak, ctrlContinue:
			return buf.Bytes(), status, nil
		}
	}
	if err != nil && !errors.Is(err, errAbort) {
		return buf.Bytes(), status, err
	}
	return buf.Bytes(), status, nil
}

// execProgram runs every top-level item of prog in sequence, honoring
// `set -e` between items unless exempt (condition/cond-position contexts
// are always exempt, spec.md §4.4 errexit exemptions).
func (it *Interp) execProgram(prog *ast.Program, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	status := 0
	for _, cmd := range prog.Commands {
		var err error
		status, err = it.execCommand(cmd, stdin, stdout, stderr, exempt)
		if err != nil {
			return status, err
		}
		if !exempt && it.Session.Options.ErrExit && status != 0 {
			return status, errAbort
		}
	}
	return status, nil
}

// execCommand dispatches a single ast.Command node (spec.md §4.4),
// recording its exit status as $? once it returns. Every command checks
// the wall-clock deadline at entry (spec.md §5 Cancellation).
func (it *Interp) execCommand(cmd ast.Command, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	if err := it.Session.Limits.CheckDeadline(); err != nil {
		return 1, err
	}
	status, err := it.dispatchCommand(cmd, stdin, stdout, stderr, exempt)
	if err == nil {
		if lw, ok := stdout.(*limitedWriter); ok && lw.err != nil {
			err = lw.err
		}
	}
	if _, ok := asCtrl(err); !ok {
		it.Session.LastStatus = status
	}
	return status, err
}

func (it *Interp) dispatchCommand(cmd ast.Command, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	switch n := cmd.(type) {
	case *ast.Simple:
		return it.execSimple(n, stdin, stdout, stderr)
	case *ast.Pipeline:
		return it.execPipeline(n, stdin, stdout, stderr, exempt)
	case *ast.AndOr:
		return it.execAndOr(n, stdin, stdout, stderr, exempt)
	case *ast.List:
		return it.execList(n, stdin, stdout, stderr, exempt)
	case *ast.Subshell:
		return it.execSubshell(n, stdin, stdout, stderr)
	case *ast.Group:
		return it.execProgram(n.Body, stdin, stdout, stderr, exempt)
	case *ast.If:
		return it.execIf(n, stdin, stdout, stderr)
	case *ast.For:
		return it.execFor(n, stdin, stdout, stderr)
	case *ast.CFor:
		return it.execCFor(n, stdin, stdout, stderr)
	case *ast.While:
		return it.execWhileUntil(n.Cond, n.Body, stdin, stdout, stderr, false)
	case *ast.Until:
		return it.execWhileUntil(n.Cond, n.Body, stdin, stdout, stderr, true)
	case *ast.Case:
		return it.execCase(n, stdin, stdout, stderr)
	case *ast.FunctionDef:
		it.Session.Functions[n.Name] = n
		return 0, nil
	case *ast.ArithCmd:
		v, err := arith.Eval(n.Expr, it.Session)
		if err != nil {
			return 1, err
		}
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case *ast.CondExpr:
		ok, err := it.evalCond(n.Expr)
		if err != nil {
			return 2, err
		}
		if ok {
			return 0, nil
		}
		return 1, nil
	case *ast.TimeCmd:
		return it.execCommand(n.Body, stdin, stdout, stderr, exempt)
	}
	return 1, fmt.Errorf("interp: unhandled command type %T", cmd)
}
