// Package expand realizes an ast.Word into the argv strings the
// interpreter actually executes (spec.md §4.3 Expander). It runs, in
// order: brace expansion, tilde expansion, parameter/command/arithmetic
// substitution, field splitting on IFS, pathname expansion, and quote
// removal. Quote removal mostly falls out of the earlier stages, since the
// lexer never retains quote delimiters inside Fragment.Text.
package expand

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bashkit/bashkit/internal/arith"
	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/vfs"
)

// Runner executes a command-substitution/process-substitution body and
// captures its stdout. internal/interp implements this; expand never
// imports interp (that would be a cycle), it only calls back through this
// interface.
type Runner interface {
	RunCapture(prog *ast.Program) (stdout []byte, exitCode int, err error)
}

// Expander holds everything word expansion needs to resolve live state:
// the variable/option scope, the sandboxed filesystem for globbing, and a
// way to run embedded sub-programs.
type Expander struct {
	Session *env.Session
	FS      *vfs.FS
	Run     Runner
}

func New(s *env.Session, fs *vfs.FS, run Runner) *Expander {
	return &Expander{Session: s, FS: fs, Run: run}
}

// ExpandWord realizes a single Word into zero or more argv fields,
// performing brace expansion, splitting, and globbing.
func (e *Expander) ExpandWord(w ast.Word) ([]string, error) {
	candidates, err := e.expandBraces(w.Fragments)
	if err != nil {
		return nil, err
	}
	var fields []string
	for _, frags := range candidates {
		split, err := e.splitFields(frags)
		if err != nil {
			return nil, err
		}
		for _, f := range split {
			globbed, err := e.maybeGlob(f.text, f.globCandidate)
			if err != nil {
				return nil, err
			}
			fields = append(fields, globbed...)
		}
	}
	return fields, nil
}

// ExpandWords expands and concatenates a list of Words, the normal shape
// for a command's argv or a `for` loop's word list.
func (e *Expander) ExpandWords(ws []ast.Word) ([]string, error) {
	var out []string
	for _, w := range ws {
		fields, err := e.ExpandWord(w)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// ExpandLiteral realizes a Word to a single string with no field splitting
// and no globbing: assignment right-hand sides, redirection targets, case
// subjects/patterns, [[ ]] operands, and array index/VarArg operand text
// all use this form (spec.md §4.3: "splitting/globbing suppressed").
func (e *Expander) ExpandLiteral(w ast.Word) (string, error) {
	return e.flatten(w.Fragments, false)
}

// maybeGlob expands pathname metacharacters in a field that came from an
// unquoted context; quoted fields (globCandidate==false) or noglob mode
// pass through unchanged. A pattern matching nothing is left as a literal
// field (spec.md §4.3: "a glob matching nothing expands to itself").
func (e *Expander) maybeGlob(field string, globCandidate bool) ([]string, error) {
	if !globCandidate || e.Session.Options.NoGlob || !vfs.HasMeta(field) {
		return []string{field}, nil
	}
	matches, err := e.FS.Glob(e.Session.Cwd, field)
	if err != nil || len(matches) == 0 {
		return []string{field}, nil
	}
	sort.Strings(matches)
	return matches, nil
}

// --- brace expansion ---------------------------------------------------

// expandBraces finds the first FragBrace fragment and produces the
// cross-product of its alternatives against the (recursively expanded)
// suffix, per spec.md §4.3 step 1 ("occurs before tilde expansion").
func (e *Expander) expandBraces(frags []ast.Fragment) ([][]ast.Fragment, error) {
	for i, f := range frags {
		if f.Kind != ast.FragBrace {
			continue
		}
		alts, err := e.braceAlternatives(f)
		if err != nil {
			return nil, err
		}
		prefix := frags[:i]
		suffixCandidates, err := e.expandBraces(frags[i+1:])
		if err != nil {
			return nil, err
		}
		var out [][]ast.Fragment
		for _, alt := range alts {
			altFrag := ast.Fragment{Kind: ast.FragLiteralChars, Text: alt, P: f.P}
			for _, suf := range suffixCandidates {
				combo := make([]ast.Fragment, 0, len(prefix)+1+len(suf))
				combo = append(combo, prefix...)
				combo = append(combo, altFrag)
				combo = append(combo, suf...)
				out = append(out, combo)
			}
		}
		return out, nil
	}
	return [][]ast.Fragment{frags}, nil
}

func (e *Expander) braceAlternatives(f ast.Fragment) ([]string, error) {
	if f.BraceIsSeq {
		out := make([]string, 0, len(f.BraceSeq))
		for _, w := range f.BraceSeq {
			s, err := e.flatten(w.Fragments, false)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	from, err := arith.Eval(*f.BraceFrom, e.Session)
	if err != nil {
		return nil, err
	}
	to, err := arith.Eval(*f.BraceTo, e.Session)
	if err != nil {
		return nil, err
	}
	step := int64(1)
	if f.BraceStep != nil {
		step, err = arith.Eval(*f.BraceStep, e.Session)
		if err != nil {
			return nil, err
		}
		if step == 0 {
			step = 1
		}
		if step < 0 {
			step = -step
		}
	}
	var out []string
	if from <= to {
		for v := from; v <= to; v += step {
			out = append(out, strconv.FormatInt(v, 10))
		}
	} else {
		for v := from; v >= to; v -= step {
			out = append(out, strconv.FormatInt(v, 10))
		}
	}
	return out, nil
}

// --- tilde expansion -----------------------------------------------------

func (e *Expander) tildeText(user string) string {
	if user == "" {
		if home, ok := e.Session.Get("HOME"); ok {
			return home
		}
		return "/root"
	}
	// No multi-user account table in the sandbox; ~user resolves to itself.
	return "~" + user
}

// --- field splitting -----------------------------------------------------

// field is one realized argv field plus whether it is still eligible for
// pathname expansion (false for anything that came from a quoted context).
type field struct {
	text          string
	globCandidate bool
}

// splitFields walks frags left to right, gluing literal/quoted text
// directly onto the current field and IFS-splitting the results of
// unquoted substitutions (spec.md §4.3 steps 2-5).
func (e *Expander) splitFields(frags []ast.Fragment) ([]field, error) {
	var fields []field
	cur := ""
	active := false
	curGlob := true

	flush := func() {
		if active {
			fields = append(fields, field{text: cur, globCandidate: curGlob})
		}
		cur = ""
		active = false
		curGlob = true
	}
	touch := func(s string, globOK bool) {
		cur += s
		active = true
		if !globOK {
			curGlob = false
		}
	}
	touchSplit := func(parts []string) {
		if len(parts) == 0 {
			return
		}
		cur += parts[0]
		active = true
		for i := 1; i < len(parts); i++ {
			flush()
			cur = parts[i]
			active = true
		}
	}

	for _, f := range frags {
		switch f.Kind {
		case ast.FragLiteralChars, ast.FragEscapedChar:
			touch(f.Text, true)
		case ast.FragSingleQuoted:
			touch(f.Text, false)
		case ast.FragDoubleQuotedRun:
			multi, isArr, err := e.evalMulti(f.Inner, true)
			if err != nil {
				return nil, err
			}
			if isArr {
				// "${arr[@]}" inside quotes: each element is its own
				// quoted field (spec.md §4.3 step 5 exception).
				for _, m := range multi {
					if active {
						touch(m, false)
						flush()
					} else {
						cur = m
						active = true
						curGlob = false
						flush()
					}
				}
				continue
			}
			touch(strings.Join(multi, ""), false)
		case ast.FragTilde:
			touch(e.tildeText(f.TildeUser), true)
		case ast.FragGlob:
			touch(f.GlobPattern, true)
		case ast.FragUnquotedVar, ast.FragQuotedVar:
			vals, isArr, err := e.evalVarFragment(f)
			if err != nil {
				return nil, err
			}
			if isArr {
				for i, v := range vals {
					if i > 0 {
						flush()
					}
					touchSplit(e.splitIFS(v))
				}
				continue
			}
			if len(vals) == 0 {
				continue
			}
			touchSplit(e.splitIFS(vals[0]))
		case ast.FragCmdSub:
			out, err := e.runCmdSub(f.CmdSub)
			if err != nil {
				return nil, err
			}
			touchSplit(e.splitIFS(out))
		case ast.FragArithSub:
			v, err := arith.Eval(f.ArithExpr, e.Session)
			if err != nil {
				return nil, err
			}
			touch(strconv.FormatInt(v, 10), true)
		case ast.FragProcSubIn, ast.FragProcSubOut:
			// Process substitution has no on-disk backing in this sandbox;
			// degrade to an empty path so callers fail predictably rather
			// than silently reading garbage.
			touch("/dev/null", true)
		case ast.FragHereDoc, ast.FragHereString:
			// never appears inside a Word's own Fragments; redirection
			// targets are realized by internal/interp directly.
		default:
			return nil, fmt.Errorf("expand: unhandled fragment kind %d", f.Kind)
		}
	}
	flush()
	return fields, nil
}

// --- flatten: single-string realization, no splitting/globbing ---------

// flatten realizes frags to one string: used for assignment values,
// redirection targets, case subjects/patterns, [[ ]] operands, and any
// nested operand word (array index, VarArg default/pattern text).
func (e *Expander) flatten(frags []ast.Fragment, quoted bool) (string, error) {
	var b strings.Builder
	for _, f := range frags {
		switch f.Kind {
		case ast.FragLiteralChars, ast.FragEscapedChar, ast.FragSingleQuoted:
			b.WriteString(f.Text)
		case ast.FragDoubleQuotedRun:
			s, err := e.flatten(f.Inner, true)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case ast.FragTilde:
			b.WriteString(e.tildeText(f.TildeUser))
		case ast.FragGlob:
			b.WriteString(f.GlobPattern)
		case ast.FragUnquotedVar, ast.FragQuotedVar:
			vals, isArr, err := e.evalVarFragment(f)
			if err != nil {
				return "", err
			}
			if isArr {
				b.WriteString(strings.Join(vals, " "))
			} else if len(vals) > 0 {
				b.WriteString(vals[0])
			}
		case ast.FragCmdSub:
			out, err := e.runCmdSub(f.CmdSub)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
		case ast.FragArithSub:
			v, err := arith.Eval(f.ArithExpr, e.Session)
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatInt(v, 10))
		case ast.FragBrace:
			alts, err := e.braceAlternatives(f)
			if err != nil {
				return "", err
			}
			if len(alts) > 0 {
				b.WriteString(alts[0])
			}
		case ast.FragProcSubIn, ast.FragProcSubOut:
			b.WriteString("/dev/null")
		}
	}
	return b.String(), nil
}

// evalMulti flattens a run of Inner fragments of a double-quoted run,
// special-casing a lone "${arr[@]}" so the caller can split it into
// per-element quoted fields.
func (e *Expander) evalMulti(frags []ast.Fragment, quoted bool) ([]string, bool, error) {
	if len(frags) == 1 && (frags[0].Kind == ast.FragUnquotedVar || frags[0].Kind == ast.FragQuotedVar) {
		vals, isArr, err := e.evalVarFragment(frags[0])
		if err != nil {
			return nil, false, err
		}
		if isArr {
			return vals, true, nil
		}
	}
	s, err := e.flatten(frags, quoted)
	if err != nil {
		return nil, false, err
	}
	return []string{s}, false, nil
}

// --- variable fragment evaluation ---------------------------------------

// evalVarFragment resolves a FragUnquotedVar/FragQuotedVar to its value(s).
// isArr is true only for the "all positional"/"all array elements" forms
// ($@, ${arr[@]}) where the caller must treat each as a separate field.
func (e *Expander) evalVarFragment(f ast.Fragment) (vals []string, isArr bool, err error) {
	name := f.VarName
	switch f.VarOp {
	case ast.VarPlain:
		if name == "@" {
			return append([]string(nil), e.Session.Positional...), true, nil
		}
		if f.VarIdx != nil {
			return e.indexedValue(name, f.VarIdx)
		}
		s, ok := e.rawGet(name)
		if !ok {
			if e.Session.Options.NoUnset {
				return nil, false, &env.UnboundVariable{Name: name}
			}
			return nil, false, nil
		}
		return []string{s}, false, nil
	case ast.VarLength:
		if f.VarIdx != nil {
			if idxText, err := e.ExpandLiteral(*f.VarIdx); err == nil && (idxText == "@" || idxText == "*") {
				v, _ := e.Session.GetValue(name)
				return []string{strconv.Itoa(len(v.Array))}, false, nil
			}
		}
		s, _ := e.rawGet(name)
		return []string{strconv.Itoa(len(s))}, false, nil
	case ast.VarArrayLen:
		v, _ := e.Session.GetValue(name)
		return []string{strconv.Itoa(len(v.Array))}, false, nil
	case ast.VarArrayKeys:
		v, ok := e.Session.GetValue(name)
		if !ok || !v.IsArray {
			return nil, false, nil
		}
		keys := make([]int64, 0, len(v.Array))
		for k := range v.Array {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = strconv.FormatInt(k, 10)
		}
		return out, true, nil
	case ast.VarAllAt:
		if name == "" || name == "@" {
			return append([]string(nil), e.Session.Positional...), true, nil
		}
		v, ok := e.Session.GetValue(name)
		if !ok || !v.IsArray {
			return nil, false, nil
		}
		keys := make([]int64, 0, len(v.Array))
		for k := range v.Array {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = v.Array[k]
		}
		return out, true, nil
	case ast.VarAllStar:
		v, ok := e.Session.GetValue(name)
		if !ok {
			return []string{""}, false, nil
		}
		return []string{v.Join(" ")}, false, nil
	case ast.VarDefault, ast.VarDefaultU:
		s, ok := e.rawGet(name)
		unset := !ok || (f.VarOp == ast.VarDefaultU && s == "")
		if unset {
			arg, err := e.flattenArg(f.VarArg)
			if err != nil {
				return nil, false, err
			}
			return []string{arg}, false, nil
		}
		return []string{s}, false, nil
	case ast.VarAssign, ast.VarAssignU:
		s, ok := e.rawGet(name)
		unset := !ok || (f.VarOp == ast.VarAssignU && s == "")
		if unset {
			arg, err := e.flattenArg(f.VarArg)
			if err != nil {
				return nil, false, err
			}
			if err := e.Session.Set(name, arg); err != nil {
				return nil, false, err
			}
			return []string{arg}, false, nil
		}
		return []string{s}, false, nil
	case ast.VarAlt, ast.VarAltU:
		s, ok := e.rawGet(name)
		set := ok && !(f.VarOp == ast.VarAltU && s == "")
		if set {
			arg, err := e.flattenArg(f.VarArg)
			if err != nil {
				return nil, false, err
			}
			return []string{arg}, false, nil
		}
		return []string{""}, false, nil
	case ast.VarErr, ast.VarErrU:
		s, ok := e.rawGet(name)
		unset := !ok || (f.VarOp == ast.VarErrU && s == "")
		if unset {
			msg, err := e.flattenArg(f.VarArg)
			if err != nil {
				return nil, false, err
			}
			if msg == "" {
				msg = name + ": parameter null or not set"
			}
			return nil, false, errors.New(msg)
		}
		return []string{s}, false, nil
	case ast.VarRemovePrefixShort, ast.VarRemovePrefixLong, ast.VarRemoveSuffixShort, ast.VarRemoveSuffixLong:
		s, _ := e.rawGet(name)
		pat, err := e.flattenArg(f.VarArg)
		if err != nil {
			return nil, false, err
		}
		return []string{trimByPattern(s, pat, f.VarOp)}, false, nil
	case ast.VarIndex:
		return e.indexedValue(name, f.VarIdx)
	}
	return nil, false, nil
}

func (e *Expander) indexedValue(name string, idx *ast.Word) ([]string, bool, error) {
	if idx == nil {
		s, ok := e.rawGet(name)
		if !ok {
			return nil, false, nil
		}
		return []string{s}, false, nil
	}
	idxText, err := e.ExpandLiteral(*idx)
	if err != nil {
		return nil, false, err
	}
	if idxText == "@" || idxText == "*" {
		v, ok := e.Session.GetValue(name)
		if !ok || !v.IsArray {
			return nil, false, nil
		}
		keys := make([]int64, 0, len(v.Array))
		for k := range v.Array {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = v.Array[k]
		}
		return out, idxText == "@", nil
	}
	n, err := arith.Parse(idxText)
	if err != nil {
		return nil, false, err
	}
	i, err := arith.Eval(n, e.Session)
	if err != nil {
		return nil, false, err
	}
	v, ok := e.Session.GetValue(name)
	if !ok || !v.IsArray {
		if i == 0 {
			s, ok := e.rawGet(name)
			return []string{s}, !ok, nil
		}
		return []string{""}, false, nil
	}
	return []string{v.Array[i]}, false, nil
}

func (e *Expander) flattenArg(w *ast.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	return e.flatten(w.Fragments, false)
}

// rawGet mirrors Session.Get but treats an unset variable under `set -u` as
// an error at the call sites that care (handled by the caller, not here).
func (e *Expander) rawGet(name string) (string, bool) {
	return e.Session.Get(name)
}

func (e *Expander) Get(name string) (string, bool) { return e.Session.Get(name) }

// --- IFS splitting --------------------------------------------------------

func (e *Expander) splitIFS(s string) []string {
	ifs, ok := e.Session.Get("IFS")
	if !ok {
		ifs = " \t\n"
	}
	if ifs == "" {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	isSep := func(r rune) bool { return strings.ContainsRune(ifs, r) }
	fields := strings.FieldsFunc(s, isSep)
	return fields
}

// --- command substitution -------------------------------------------------

func (e *Expander) runCmdSub(prog *ast.Program) (string, error) {
	out, _, err := e.Run.RunCapture(prog)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
