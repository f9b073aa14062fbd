package builtin

import (
	"fmt"
	"strconv"

	"github.com/bashkit/bashkit/internal/interp"
	"github.com/bashkit/bashkit/internal/vfs"
)

func builtinTest(ctx *interp.ExecContext, args []string) int {
	ok, err := evalTest(ctx, args)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "test:", err)
		return 2
	}
	if ok {
		return 0
	}
	return 1
}

func builtinTestBracket(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 || args[len(args)-1] != "]" {
		fmt.Fprintln(ctx.Stderr, "[: missing closing ]")
		return 2
	}
	return builtinTest(ctx, args[:len(args)-1])
}

// evalTest implements the classic test(1) grammar for the 0/1/2/3-argument
// forms plus a leading "!"; this subset does not chain -a/-o (spec.md
// treats test as an opaque collaborator, §4.3 contract only).
func evalTest(ctx *interp.ExecContext, args []string) (bool, error) {
	if len(args) > 0 && args[0] == "!" {
		ok, err := evalTest(ctx, args[1:])
		return !ok, err
	}
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		return evalUnaryTest(ctx, args[0], args[1])
	case 3:
		return evalBinaryTest(args[0], args[1], args[2])
	}
	return false, fmt.Errorf("too many arguments")
}

func evalUnaryTest(ctx *interp.ExecContext, op, arg string) (bool, error) {
	switch op {
	case "-z":
		return arg == "", nil
	case "-n":
		return arg != "", nil
	case "-e":
		return ctx.FS.Exists(resolvePath(ctx.Session.Cwd, arg)), nil
	case "-f":
		md, err := ctx.FS.Metadata(resolvePath(ctx.Session.Cwd, arg))
		return err == nil && md.Kind == vfs.RegularFile, nil
	case "-d":
		md, err := ctx.FS.Metadata(resolvePath(ctx.Session.Cwd, arg))
		return err == nil && md.Kind == vfs.Directory, nil
	case "-r", "-w", "-x":
		return ctx.FS.Exists(resolvePath(ctx.Session.Cwd, arg)), nil
	}
	return false, fmt.Errorf("unknown unary operator %q", op)
}

func evalBinaryTest(left, op, right string) (bool, error) {
	switch op {
	case "=", "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		l, err := strconv.ParseInt(left, 0, 64)
		if err != nil {
			return false, err
		}
		r, err := strconv.ParseInt(right, 0, 64)
		if err != nil {
			return false, err
		}
		switch op {
		case "-eq":
			return l == r, nil
		case "-ne":
			return l != r, nil
		case "-lt":
			return l < r, nil
		case "-le":
			return l <= r, nil
		case "-gt":
			return l > r, nil
		case "-ge":
			return l >= r, nil
		}
	}
	return false, fmt.Errorf("unknown binary operator %q", op)
}
