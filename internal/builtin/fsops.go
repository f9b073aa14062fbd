package builtin

import (
	"bufio"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bashkit/bashkit/internal/interp"
)

func builtinMkdir(ctx *interp.ExecContext, args []string) int {
	parents := false
	status := 0
	for _, a := range args {
		if a == "-p" {
			parents = true
			continue
		}
		if err := ctx.FS.Mkdir(resolvePath(ctx.Session.Cwd, a), parents); err != nil {
			fmt.Fprintf(ctx.Stderr, "mkdir: %s: %s\n", a, err)
			status = 1
		}
	}
	return status
}

func builtinRm(ctx *interp.ExecContext, args []string) int {
	recursive := false
	status := 0
	for _, a := range args {
		if a == "-r" || a == "-rf" || a == "-fr" {
			recursive = true
			continue
		}
		if a == "-f" {
			continue
		}
		if err := ctx.FS.Remove(resolvePath(ctx.Session.Cwd, a), recursive); err != nil {
			fmt.Fprintf(ctx.Stderr, "rm: %s: %s\n", a, err)
			status = 1
		}
	}
	return status
}

func builtinLs(ctx *interp.ExecContext, args []string) int {
	target := ctx.Session.Cwd
	if len(args) > 0 {
		target = resolvePath(ctx.Session.Cwd, args[len(args)-1])
	}
	entries, err := ctx.FS.ListDir(target)
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "ls: %s: %s\n", target, err)
		return 1
	}
	sort.Strings(entries)
	for _, e := range entries {
		fmt.Fprintln(ctx.Stdout, e)
	}
	return 0
}

func builtinBasename(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 {
		return 1
	}
	b := path.Base(args[0])
	if len(args) > 1 {
		b = strings.TrimSuffix(b, args[1])
	}
	fmt.Fprintln(ctx.Stdout, b)
	return 0
}

func builtinDirname(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 {
		return 1
	}
	fmt.Fprintln(ctx.Stdout, path.Dir(args[0]))
	return 0
}

// readOperand reads from the named files, or stdin when none are given.
func readOperand(ctx *interp.ExecContext, args []string) (string, error) {
	if len(args) == 0 {
		var b strings.Builder
		sc := bufio.NewScanner(ctx.Stdin)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			b.WriteString(sc.Text())
			b.WriteByte('\n')
		}
		return b.String(), nil
	}
	var b strings.Builder
	for _, a := range args {
		data, err := ctx.FS.Read(resolvePath(ctx.Session.Cwd, a))
		if err != nil {
			return "", err
		}
		b.Write(data)
	}
	return b.String(), nil
}

// builtinGrep is an opaque collaborator (spec.md §4.3): it supports -v/-i/-n
// and a regexp pattern, not the full BRE/ERE grammar.
func builtinGrep(ctx *interp.ExecContext, args []string) int {
	invert := false
	icase := false
	lineNo := false
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") && rest[0] != "-" {
		switch rest[0] {
		case "-v":
			invert = true
		case "-i":
			icase = true
		case "-n":
			lineNo = true
		default:
			goto matched
		}
		rest = rest[1:]
	}
matched:
	if len(rest) == 0 {
		fmt.Fprintln(ctx.Stderr, "grep: missing pattern")
		return 2
	}
	pattern := rest[0]
	if icase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "grep:", err)
		return 2
	}
	text, err := readOperand(ctx, rest[1:])
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "grep:", err)
		return 2
	}
	matched := false
	for i, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if re.MatchString(line) != invert {
			matched = true
			if lineNo {
				fmt.Fprintf(ctx.Stdout, "%d:%s\n", i+1, line)
			} else {
				fmt.Fprintln(ctx.Stdout, line)
			}
		}
	}
	if matched {
		return 0
	}
	return 1
}

// builtinSed supports only the common "s/pat/repl/[g]" substitution form
// (spec.md §9: sed's full feature set is out of scope for the core).
func builtinSed(ctx *interp.ExecContext, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(ctx.Stderr, "sed: missing script")
		return 2
	}
	script := args[0]
	text, err := readOperand(ctx, args[1:])
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "sed:", err)
		return 2
	}
	out, err := sedSubstitute(script, text)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "sed:", err)
		return 2
	}
	fmt.Fprint(ctx.Stdout, out)
	return 0
}

func sedSubstitute(script, text string) (string, error) {
	if len(script) < 2 || script[0] != 's' {
		return text, nil
	}
	delim := script[1]
	parts := strings.Split(script[2:], string(delim))
	if len(parts) < 2 {
		return "", fmt.Errorf("malformed substitution %q", script)
	}
	pat, repl := parts[0], parts[1]
	global := len(parts) > 2 && strings.Contains(parts[2], "g")
	re, err := regexp.Compile(pat)
	if err != nil {
		return "", err
	}
	replGo := regexp.MustCompile(`\\(\d)`).ReplaceAllString(repl, "$$$1")
	if global {
		return re.ReplaceAllString(text, replGo), nil
	}
	replaced := false
	return re.ReplaceAllStringFunc(text, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return re.ReplaceAllString(m, replGo)
	}), nil
}

func builtinWc(ctx *interp.ExecContext, args []string) int {
	linesOnly, wordsOnly := false, false
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		switch rest[0] {
		case "-l":
			linesOnly = true
		case "-w":
			wordsOnly = true
		}
		rest = rest[1:]
	}
	text, err := readOperand(ctx, rest)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "wc:", err)
		return 1
	}
	nl := strings.Count(text, "\n")
	nw := len(strings.Fields(text))
	nc := len(text)
	switch {
	case linesOnly:
		fmt.Fprintln(ctx.Stdout, nl)
	case wordsOnly:
		fmt.Fprintln(ctx.Stdout, nw)
	default:
		fmt.Fprintf(ctx.Stdout, "%d %d %d\n", nl, nw, nc)
	}
	return 0
}

func builtinHead(ctx *interp.ExecContext, args []string) int { return headTail(ctx, args, true) }
func builtinTail(ctx *interp.ExecContext, args []string) int { return headTail(ctx, args, false) }

func headTail(ctx *interp.ExecContext, args []string, head bool) int {
	n := 10
	rest := args
	if len(rest) > 0 && rest[0] == "-n" && len(rest) > 1 {
		if v, err := strconv.Atoi(rest[1]); err == nil {
			n = v
		}
		rest = rest[2:]
	}
	text, err := readOperand(ctx, rest)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "head/tail:", err)
		return 1
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if head {
		if n < len(lines) {
			lines = lines[:n]
		}
	} else if n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		fmt.Fprintln(ctx.Stdout, l)
	}
	return 0
}

func builtinSort(ctx *interp.ExecContext, args []string) int {
	reverse := false
	numeric := false
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		switch rest[0] {
		case "-r":
			reverse = true
		case "-n":
			numeric = true
		}
		rest = rest[1:]
	}
	text, err := readOperand(ctx, rest)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "sort:", err)
		return 1
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	sort.Slice(lines, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
			b, _ := strconv.ParseFloat(strings.TrimSpace(lines[j]), 64)
			return a < b
		}
		return lines[i] < lines[j]
	})
	if reverse {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	for _, l := range lines {
		fmt.Fprintln(ctx.Stdout, l)
	}
	return 0
}

// builtinCut supports "-d DELIM -f N[,M...]" field selection only.
func builtinCut(ctx *interp.ExecContext, args []string) int {
	delim := "\t"
	var fields []int
	rest := args
	for len(rest) > 0 {
		switch {
		case rest[0] == "-d" && len(rest) > 1:
			delim = rest[1]
			rest = rest[2:]
		case rest[0] == "-f" && len(rest) > 1:
			for _, tok := range strings.Split(rest[1], ",") {
				if n, err := strconv.Atoi(tok); err == nil {
					fields = append(fields, n)
				}
			}
			rest = rest[2:]
		default:
			goto files
		}
	}
files:
	text, err := readOperand(ctx, rest)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "cut:", err)
		return 1
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		cols := strings.Split(line, delim)
		var out []string
		for _, f := range fields {
			if f >= 1 && f <= len(cols) {
				out = append(out, cols[f-1])
			}
		}
		fmt.Fprintln(ctx.Stdout, strings.Join(out, delim))
	}
	return 0
}

// builtinTr supports literal byte-set translation and "-d" deletion; no
// character-class names ([:alpha:] etc).
func builtinTr(ctx *interp.ExecContext, args []string) int {
	del := false
	rest := args
	if len(rest) > 0 && rest[0] == "-d" {
		del = true
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 1
	}
	from := rest[0]
	to := ""
	if len(rest) > 1 {
		to = rest[1]
	}
	text, err := readOperand(ctx, nil)
	if err != nil {
		fmt.Fprintln(ctx.Stderr, "tr:", err)
		return 1
	}
	var b strings.Builder
	for _, r := range text {
		idx := strings.IndexRune(from, r)
		switch {
		case idx < 0:
			b.WriteRune(r)
		case del:
			// drop
		case idx < len(to):
			b.WriteRune(rune(to[idx]))
		case len(to) > 0:
			b.WriteByte(to[len(to)-1])
		}
	}
	fmt.Fprint(ctx.Stdout, b.String())
	return 0
}
