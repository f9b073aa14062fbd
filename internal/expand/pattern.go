package expand

import (
	"regexp"
	"strings"

	"github.com/bashkit/bashkit/internal/ast"
)

// trimByPattern implements ${name#pat}, ${name##pat}, ${name%pat},
// ${name%%pat} (spec.md §4.3 prefix/suffix removal forms).
func trimByPattern(s, pat string, op ast.VarOp) string {
	if pat == "" {
		return s
	}
	switch op {
	case ast.VarRemovePrefixShort:
		if n, ok := matchPrefixLen(pat, s, false); ok {
			return s[n:]
		}
	case ast.VarRemovePrefixLong:
		if n, ok := matchPrefixLen(pat, s, true); ok {
			return s[n:]
		}
	case ast.VarRemoveSuffixShort:
		if n, ok := matchSuffixLen(pat, s, false); ok {
			return s[:len(s)-n]
		}
	case ast.VarRemoveSuffixLong:
		if n, ok := matchSuffixLen(pat, s, true); ok {
			return s[:len(s)-n]
		}
	}
	return s
}

// GlobMatch reports whether the whole of s matches a shell wildcard
// pattern ("*", "?", "[...]"); used by `case` clause dispatch.
func GlobMatch(pat, s string) bool {
	re, err := globToRegexp(pat, true)
	if err != nil {
		return pat == s
	}
	return re.MatchString(s)
}

// matchPrefixLen finds the length of the shortest (or longest, if greedy)
// prefix of s matched by pat.
func matchPrefixLen(pat, s string, greedy bool) (int, bool) {
	re, err := globToRegexp(pat, true)
	if err != nil {
		return 0, false
	}
	if greedy {
		for end := len(s); end >= 0; end-- {
			if re.MatchString(s[:end]) {
				return end, true
			}
		}
		return 0, false
	}
	for end := 0; end <= len(s); end++ {
		if re.MatchString(s[:end]) {
			return end, true
		}
	}
	return 0, false
}

func matchSuffixLen(pat, s string, greedy bool) (int, bool) {
	re, err := globToRegexp(pat, true)
	if err != nil {
		return 0, false
	}
	// regexp has no native rightmost-anchored search, so try every suffix
	// start position: scanning front-to-back finds the longest match
	// first, scanning back-to-front finds the shortest match first.
	if greedy {
		for i := 0; i <= len(s); i++ {
			if re.MatchString(s[i:]) {
				return len(s) - i, true
			}
		}
	} else {
		for i := len(s); i >= 0; i-- {
			if re.MatchString(s[i:]) {
				return len(s) - i, true
			}
		}
	}
	return 0, false
}

// globToRegexp translates a shell wildcard pattern to an anchored regexp.
// anchorBoth anchors both ends (whole-string match, for `case`); otherwise
// only the start is anchored (for prefix/suffix trimming, which needs to
// find matches ending mid-string).
func globToRegexp(pat string, anchorBoth bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pat) && (pat[j] == '!' || pat[j] == '^') {
				j++
			}
			if j < len(pat) && pat[j] == ']' {
				j++
			}
			for j < len(pat) && pat[j] != ']' {
				j++
			}
			if j >= len(pat) {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			cls := pat[i+1 : j]
			b.WriteByte('[')
			if strings.HasPrefix(cls, "!") {
				b.WriteByte('^')
				cls = cls[1:]
			}
			b.WriteString(cls)
			b.WriteByte(']')
			i = j
		case '\\':
			if i+1 < len(pat) {
				b.WriteString(regexp.QuoteMeta(string(pat[i+1])))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if anchorBoth {
		b.WriteByte('$')
	}
	return regexp.Compile(b.String())
}
