package vfs

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HasMeta reports whether s contains any glob metacharacter.
func HasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Glob expands a pathname pattern against the VFS (spec.md §4.3 step 6).
// Each path segment is matched independently with doublestar.Match, which
// treats "*" and "?" as not crossing "/" — exactly the semantics required.
// Unmatched patterns are the caller's responsibility to fall back to the
// literal pattern (spec.md: "unmatched patterns yield themselves
// literally"). Results are sorted lexicographically.
func (fs *FS) Glob(base, pattern string) ([]string, error) {
	segs := strings.Split(pattern, "/")
	absolute := strings.HasPrefix(pattern, "/")
	var roots []string
	if absolute {
		roots = []string{""}
		segs = segs[1:]
	} else {
		roots = []string{base}
	}
	matches := roots
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		var next []string
		for _, dir := range matches {
			if !HasMeta(seg) {
				candidate := join(dir, seg)
				if fs.Exists(candidate) {
					next = append(next, candidate)
				}
				continue
			}
			names, err := fs.ListDir(dir)
			if err != nil {
				continue
			}
			for _, name := range names {
				if strings.HasPrefix(seg, ".") == strings.HasPrefix(name, ".") || !strings.HasPrefix(name, ".") {
					ok, err := doublestar.Match(seg, name)
					if err == nil && ok {
						next = append(next, join(dir, name))
					}
				}
			}
		}
		matches = next
	}
	sort.Strings(matches)
	return matches, nil
}

func join(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
