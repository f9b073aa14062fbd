package interp

import (
	"io"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/expand"
)

func (it *Interp) execSubshell(n *ast.Subshell, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	sub := it.Session.Fork()
	child := New(sub, it.FS, it.Builtins)
	status, err := child.execProgram(n.Body, stdin, stdout, stderr, false)
	if sig, ok := asCtrl(err); ok && (sig.kind == ctrlExit || sig.kind == ctrlReturn) {
		return sig.status, nil
	}
	return status, err
}

func (it *Interp) execIf(n *ast.If, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	for _, clause := range n.Clauses {
		status, err := it.execProgram(clause.Cond, stdin, stdout, stderr, true)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return it.execProgram(clause.Then, stdin, stdout, stderr, false)
		}
	}
	if n.Else != nil {
		return it.execProgram(n.Else, stdin, stdout, stderr, false)
	}
	return 0, nil
}

// loopBody runs one iteration of a loop body and interprets its outcome:
// (stop, status, err). stop is true when the enclosing loop must exit
// (ctrlBreak at level 1, ctrlExit/ctrlReturn, or any non-ctrl error).
func (it *Interp) loopBody(body *ast.Program, stdin io.Reader, stdout, stderr io.Writer) (stop bool, status int, err error) {
	status, err = it.execProgram(body, stdin, stdout, stderr, false)
	if sig, ok := asCtrl(err); ok {
		switch sig.kind {
		case ctrlBreak:
			if sig.levels > 1 {
				return true, status, &ctrlSignal{kind: ctrlBreak, levels: sig.levels - 1}
			}
			return true, status, nil
		case ctrlContinue:
			if sig.levels > 1 {
				return true, status, &ctrlSignal{kind: ctrlContinue, levels: sig.levels - 1}
			}
			return false, status, nil
		default:
			return true, status, err
		}
	}
	if err != nil {
		return true, status, err
	}
	if it.Session.Options.ErrExit && status != 0 {
		return true, status, errAbort
	}
	return false, status, nil
}

func (it *Interp) execFor(n *ast.For, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	var words []string
	if n.Words == nil {
		words = it.Session.Positional
	} else {
		var err error
		words, err = it.Expand.ExpandWords(n.Words)
		if err != nil {
			return 1, err
		}
	}
	status := 0
	for i, w := range words {
		if int64(i) >= it.Session.Limits.MaxLoopIterations {
			return status, &env.ResourceExceeded{Counter: "loop_iterations_per_loop"}
		}
		if err := it.Session.Set(n.Name, w); err != nil {
			return status, err
		}
		stop, s, err := it.loopBody(n.Body, stdin, stdout, stderr)
		status = s
		if stop {
			return status, err
		}
	}
	return status, nil
}

func (it *Interp) execCFor(n *ast.CFor, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if n.Init != nil {
		if _, err := arith.Eval(n.Init, it.Session); err != nil {
			return 1, err
		}
	}
	status := 0
	for i := int64(0); ; i++ {
		if i >= it.Session.Limits.MaxLoopIterations {
			return status, &env.ResourceExceeded{Counter: "loop_iterations_per_loop"}
		}
		if n.Cond != nil {
			v, err := arith.Eval(n.Cond, it.Session)
			if err != nil {
				return status, err
			}
			if v == 0 {
				break
			}
		}
		stop, s, err := it.loopBody(n.Body, stdin, stdout, stderr)
		status = s
		if stop {
			return status, err
		}
		if n.Post != nil {
			if _, err := arith.Eval(n.Post, it.Session); err != nil {
				return status, err
			}
		}
	}
	return status, nil
}

func (it *Interp) execWhileUntil(cond, body *ast.Program, stdin io.Reader, stdout, stderr io.Writer, until bool) (int, error) {
	status := 0
	for i := int64(0); ; i++ {
		if i >= it.Session.Limits.MaxLoopIterations {
			return status, &env.ResourceExceeded{Counter: "loop_iterations_per_loop"}
		}
		cstatus, err := it.execProgram(cond, stdin, stdout, stderr, true)
		if err != nil {
			return cstatus, err
		}
		ok := cstatus == 0
		if until {
			ok = !ok
		}
		if !ok {
			break
		}
		stop, s, err := it.loopBody(body, stdin, stdout, stderr)
		status = s
		if stop {
			return status, err
		}
	}
	return status, nil
}

func (it *Interp) execCase(n *ast.Case, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	subject, err := it.Expand.ExpandLiteral(n.Subject)
	if err != nil {
		return 1, err
	}
	status := 0
	for i := 0; i < len(n.Clauses); i++ {
		clause := n.Clauses[i]
		matched := false
		for _, pw := range clause.Patterns {
			pat, err := it.Expand.ExpandLiteral(pw)
			if err != nil {
				return 1, err
			}
			if expand.GlobMatch(pat, subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		status, err = it.execProgram(clause.Body, stdin, stdout, stderr, false)
		if err != nil {
			return status, err
		}
		switch clause.Term {
		case ast.TermBreak:
			return status, nil
		case ast.TermFallthrough:
			if i+1 < len(n.Clauses) {
				status, err = it.execProgram(n.Clauses[i+1].Body, stdin, stdout, stderr, false)
				return status, err
			}
			return status, nil
		case ast.TermTestNext:
			continue
		}
	}
	return status, nil
}
