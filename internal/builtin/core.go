package builtin

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bashkit/bashkit/internal/interp"
	"github.com/bashkit/bashkit/internal/vfs"
)

func builtinTrue(ctx *interp.ExecContext, args []string) int  { return 0 }
func builtinFalse(ctx *interp.ExecContext, args []string) int { return 1 }

// builtinEcho implements the common echo(1) subset: -n (no trailing
// newline) and -e (interpret backslash escapes); spec.md treats text
// tools as opaque collaborators, so this covers the common cases only.
func builtinEcho(ctx *interp.ExecContext, args []string) int {
	nl := true
	escapes := false
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-n":
			nl = false
		case "-e":
			escapes = true
		case "-E":
			escapes = false
		default:
			goto words
		}
		i++
	}
words:
	rest := args[i:]
	if escapes {
		for j, w := range rest {
			rest[j] = expandEchoEscapes(w)
		}
	}
	fmt.Fprint(ctx.Stdout, strings.Join(rest, " "))
	if nl {
		fmt.Fprint(ctx.Stdout, "\n")
	}
	return 0
}

func expandEchoEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// builtinPrintf covers the %s/%d/%q/%% conversions and literal text,
// cycling the format over any extra arguments the way POSIX printf does.
func builtinPrintf(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 {
		return 0
	}
	format := args[0]
	rest := args[1:]
	for {
		consumed := printfOnce(ctx.Stdout, format, rest)
		if consumed >= len(rest) {
			break
		}
		rest = rest[consumed:]
		if consumed == 0 {
			break // format consumes no verbs: avoid an infinite loop
		}
	}
	return 0
}

func printfOnce(w io.Writer, format string, args []string) int {
	ai := 0
	next := func() string {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return ""
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			fmt.Fprintf(w, "%c", c)
			continue
		}
		i++
		switch format[i] {
		case 's':
			fmt.Fprint(w, next())
		case 'd', 'i':
			n, _ := strconv.ParseInt(strings.TrimSpace(next()), 0, 64)
			fmt.Fprintf(w, "%d", n)
		case 'q':
			fmt.Fprintf(w, "%q", next())
		case '%':
			fmt.Fprint(w, "%")
		case '\\':
			// "%\n" isn't a real conversion; treat literally like bash.
			fmt.Fprintf(w, "%%%c", format[i])
		default:
			fmt.Fprintf(w, "%%%c", format[i])
		}
	}
	return ai
}

func builtinCat(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 {
		io.Copy(ctx.Stdout, ctx.Stdin)
		return 0
	}
	status := 0
	for _, a := range args {
		path := resolvePath(ctx.Session.Cwd, a)
		b, err := ctx.FS.Read(path)
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "cat: %s: %s\n", a, err)
			status = 1
			continue
		}
		ctx.Stdout.Write(b)
	}
	return status
}

func builtinPwd(ctx *interp.ExecContext, args []string) int {
	cwd := ctx.Session.Cwd
	if cwd == "" {
		cwd = "/"
	}
	fmt.Fprintln(ctx.Stdout, cwd)
	return 0
}

func builtinCd(ctx *interp.ExecContext, args []string) int {
	target := "/root"
	if len(args) > 0 {
		target = args[0]
	} else if home, ok := ctx.Session.Get("HOME"); ok && home != "" {
		target = home
	}
	path := resolvePath(ctx.Session.Cwd, target)
	md, err := ctx.FS.Metadata(path)
	if err != nil || md.Kind != vfs.Directory {
		fmt.Fprintf(ctx.Stderr, "cd: %s: No such directory\n", target)
		return 1
	}
	ctx.Session.Cwd = path
	return 0
}

// resolvePath joins a possibly-relative path against cwd and normalizes
// it; absolute paths pass through Normalize untouched.
func resolvePath(cwd, path string) string {
	if path == "" {
		path = "."
	}
	if !strings.HasPrefix(path, "/") {
		if cwd == "" {
			cwd = "/"
		}
		path = cwd + "/" + path
	}
	np, err := vfs.Normalize(path)
	if err != nil {
		return path
	}
	return np
}
