package builtin

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/bashkit/bashkit/internal/interp"
)

func splitNameValue(arg string) (name, value string, hasValue bool) {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:], true
	}
	return arg, "", false
}

func builtinExport(ctx *interp.ExecContext, args []string) int {
	for _, a := range args {
		name, value, hasValue := splitNameValue(a)
		if hasValue {
			if err := ctx.Session.Set(name, value); err != nil {
				fmt.Fprintln(ctx.Stderr, "export:", err)
				return 1
			}
		}
		ctx.Session.Export(name)
	}
	return 0
}

func builtinUnset(ctx *interp.ExecContext, args []string) int {
	for _, a := range args {
		if a == "-v" || a == "-f" {
			continue
		}
		ctx.Session.Unset(a)
	}
	return 0
}

func builtinReadonly(ctx *interp.ExecContext, args []string) int {
	for _, a := range args {
		name, value, hasValue := splitNameValue(a)
		if hasValue {
			if err := ctx.Session.Set(name, value); err != nil {
				fmt.Fprintln(ctx.Stderr, "readonly:", err)
				return 1
			}
		}
		ctx.Session.SetReadonly(name)
	}
	return 0
}

func builtinLocal(ctx *interp.ExecContext, args []string) int {
	for _, a := range args {
		name, value, _ := splitNameValue(a)
		ctx.Session.SetLocal(name, value)
	}
	return 0
}

// builtinDeclare covers the common "declare [-x|-r|-a|-i] NAME[=VALUE]"
// forms; the attribute flags beyond -x/-r are accepted but not otherwise
// tracked (spec.md §9: associative arrays/attribute fidelity is out of
// scope for this MVP).
func builtinDeclare(ctx *interp.ExecContext, args []string) int {
	exportIt := false
	readonlyIt := false
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		for _, f := range rest[0][1:] {
			switch f {
			case 'x':
				exportIt = true
			case 'r':
				readonlyIt = true
			}
		}
		rest = rest[1:]
	}
	for _, a := range rest {
		name, value, hasValue := splitNameValue(a)
		if hasValue {
			if err := ctx.Session.Set(name, value); err != nil {
				fmt.Fprintln(ctx.Stderr, "declare:", err)
				return 1
			}
		}
		if exportIt {
			ctx.Session.Export(name)
		}
		if readonlyIt {
			ctx.Session.SetReadonly(name)
		}
	}
	return 0
}

// builtinRead reads one line from stdin and splits it on IFS across the
// named variables, the last absorbing any remainder (spec.md §4.5: a
// builtin reading from its supplied stdin).
func builtinRead(ctx *interp.ExecContext, args []string) int {
	sc := bufio.NewScanner(ctx.Stdin)
	if !sc.Scan() {
		return 1
	}
	line := sc.Text()
	names := args
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	ifs, ok := ctx.Session.Get("IFS")
	if !ok {
		ifs = " \t\n"
	}
	fields := strings.FieldsFunc(line, func(r rune) bool { return strings.ContainsRune(ifs, r) })
	for i, name := range names {
		if i == len(names)-1 && len(fields) > len(names) {
			ctx.Session.Set(name, strings.Join(fields[i:], " "))
			break
		}
		if i < len(fields) {
			ctx.Session.Set(name, fields[i])
		} else {
			ctx.Session.Set(name, "")
		}
	}
	return 0
}

// builtinSet implements the option flags exercised by this subset
// (-e/-u/-o pipefail/-f) plus repositioning "$@" via "set -- ...".
func builtinSet(ctx *interp.ExecContext, args []string) int {
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		on := a[0] == '-'
		switch a[1:] {
		case "e":
			ctx.Session.Options.ErrExit = on
		case "u":
			ctx.Session.Options.NoUnset = on
		case "f":
			ctx.Session.Options.NoGlob = on
		case "o":
			i++
			if i < len(args) {
				switch args[i] {
				case "pipefail":
					ctx.Session.Options.PipeFail = on
				case "errexit":
					ctx.Session.Options.ErrExit = on
				case "nounset":
					ctx.Session.Options.NoUnset = on
				case "noglob":
					ctx.Session.Options.NoGlob = on
				}
			}
		}
	}
	if i < len(args) {
		ctx.Session.Positional = append([]string(nil), args[i:]...)
	}
	return 0
}

func builtinShift(ctx *interp.ExecContext, args []string) int {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	if n > len(ctx.Session.Positional) {
		ctx.Session.Positional = nil
		return 1
	}
	ctx.Session.Positional = ctx.Session.Positional[n:]
	return 0
}
