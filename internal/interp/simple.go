package interp

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
)

// execSimple runs one Simple command: scoped assignments, word expansion,
// redirection, then dispatch to a function, a builtin, or "command not
// found" (spec.md §4.4 Simple, §7 CommandNotFound).
func (it *Interp) execSimple(n *ast.Simple, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	scoped := len(n.Words) > 0
	if scoped {
		it.Session.PushScope()
		defer it.Session.PopScope()
	}
	for _, a := range n.Assignments {
		val, err := it.Expand.ExpandLiteral(a.Value)
		if err != nil {
			return 1, err
		}
		if a.Index != nil {
			idxText, err := it.Expand.ExpandLiteral(*a.Index)
			if err != nil {
				return 1, err
			}
			idxExpr, err := arith.Parse(idxText)
			if err != nil {
				return 1, err
			}
			idx, err := arith.Eval(idxExpr, it.Session)
			if err != nil {
				return 1, err
			}
			it.Session.SetArrayElement(a.Name, idx, val)
			continue
		}
		if scoped {
			it.Session.SetLocal(a.Name, val)
		} else if err := it.Session.Set(a.Name, val); err != nil {
			return 1, err
		}
	}

	fds, cleanup, err := it.applyRedirs(n.Redirs, fdTable{stdin: stdin, stdout: stdout, stderr: stderr})
	if err != nil {
		return 1, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if len(n.Words) == 0 {
		return 0, nil
	}

	argv, err := it.Expand.ExpandWords(n.Words)
	if err != nil {
		return 1, err
	}
	if len(argv) == 0 {
		return 0, nil
	}

	if err := it.Session.Limits.ChargeCommand(); err != nil {
		return 1, err
	}

	name := argv[0]

	if status, handled, err := it.execControl(name, argv, fds); handled {
		return status, err
	}

	if fn, ok := it.Session.Functions[name]; ok {
		return it.callFunction(fn, argv, fds)
	}

	if b, ok := it.Builtins.Lookup(name); ok {
		return it.runBuiltin(name, b, argv, fds)
	}

	fmt.Fprintf(fds.stderr, "%s: command not found\n", name)
	if suggestion := it.suggestCommand(name); suggestion != "" {
		fmt.Fprintf(fds.stderr, "did you mean %q?\n", suggestion)
	}
	return 127, nil
}

// suggestCommand finds the closest registered builtin or function name to
// name, for the CommandNotFound stderr line (spec.md §7). Returns "" when
// nothing ranks close enough to be useful.
func (it *Interp) suggestCommand(name string) string {
	candidates := it.Builtins.Names()
	for fn := range it.Session.Functions {
		candidates = append(candidates, fn)
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}

// runBuiltin invokes a Builtin under a panic barrier (spec.md §7
// BuiltinPanic: "builtin failed unexpectedly", exit 1).
func (it *Interp) runBuiltin(name string, b Builtin, argv []string, fds fdTable) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = 1
			err = &BuiltinPanic{Name: name}
		}
	}()
	ctx := &ExecContext{
		Session: it.Session,
		FS:      it.FS,
		Expand:  it.Expand,
		Stdin:   fds.stdin,
		Stdout:  fds.stdout,
		Stderr:  fds.stderr,
	}
	return b(ctx, argv), nil
}

// callFunction invokes a user-defined function, pushing a scope and
// positional-parameter frame, charging the function-depth limit (spec.md
// §5 function_depth, §4.4 FunctionDef).
func (it *Interp) callFunction(fn *ast.FunctionDef, argv []string, fds fdTable) (int, error) {
	if err := it.Session.Limits.EnterFunction(); err != nil {
		return 1, err
	}
	defer it.Session.Limits.LeaveFunction()

	savedPositional := it.Session.Positional
	savedArg0 := it.Session.Arg0
	it.Session.Positional = argv[1:]
	it.Session.Arg0 = fn.Name
	it.Session.PushScope()
	defer func() {
		it.Session.PopScope()
		it.Session.Positional = savedPositional
		it.Session.Arg0 = savedArg0
	}()

	status, err := it.execCommand(fn.Body, fds.stdin, fds.stdout, fds.stderr, false)
	if sig, ok := asCtrl(err); ok && sig.kind == ctrlReturn {
		return sig.status, nil
	}
	return status, err
}

// execControl special-cases the four signalling pseudo-builtins that must
// unwind the Go call stack directly rather than returning through the
// ordinary Builtin signature: break, continue, return, exit.
func (it *Interp) execControl(name string, argv []string, fds fdTable) (int, bool, error) {
	levelArg := func() int {
		if len(argv) > 1 {
			if n, err := strconv.Atoi(argv[1]); err == nil && n > 0 {
				return n
			}
		}
		return 1
	}
	statusArg := func(def int) int {
		if len(argv) > 1 {
			if n, err := strconv.Atoi(argv[1]); err == nil {
				return n & 0xff
			}
		}
		return def
	}
	switch name {
	case "break":
		return 0, true, &ctrlSignal{kind: ctrlBreak, levels: levelArg()}
	case "continue":
		return 0, true, &ctrlSignal{kind: ctrlContinue, levels: levelArg()}
	case "return":
		return 0, true, &ctrlSignal{kind: ctrlReturn, status: statusArg(it.Session.LastStatus)}
	case "exit":
		return 0, true, &ctrlSignal{kind: ctrlExit, status: statusArg(it.Session.LastStatus)}
	}
	return 0, false, nil
}
