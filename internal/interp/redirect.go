package interp

import (
	"io"
	"strings"

	"github.com/bashkit/bashkit/internal/ast"
)

// fdTable is the subset of a process's file descriptor table this
// sandbox's subset actually needs: stdin/stdout/stderr. "N>&M" dup forms
// and "&>"/"|&" both-streams forms are expressed in terms of these three.
type fdTable struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// applyRedirs opens every redirection target against the VFS and returns
// the resulting fd table plus a cleanup func that flushes/closes whatever
// was opened (spec.md §4.4 "redirections apply only for the command's
// duration").
func (it *Interp) applyRedirs(redirs []ast.Redirection, base fdTable) (fdTable, func() error, error) {
	cur := base
	var closers []io.Closer

	cleanup := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, r := range redirs {
		switch r.Op {
		case ast.RedirIn:
			path, err := it.Expand.ExpandLiteral(*r.Target)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			h, err := it.FS.OpenRead(path)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			assignReader(&cur, r.FD, h)

		case ast.RedirOut, ast.RedirAppend:
			path, err := it.Expand.ExpandLiteral(*r.Target)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			h, err := it.FS.OpenWrite(path, r.Op == ast.RedirAppend)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			closers = append(closers, h)
			assignWriter(&cur, r.FD, h)

		case ast.RedirBoth:
			path, err := it.Expand.ExpandLiteral(*r.Target)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			h, err := it.FS.OpenWrite(path, false)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			closers = append(closers, h)
			cur.stdout = h
			cur.stderr = h

		case ast.RedirDup:
			if r.DupFD == -1 {
				assignWriter(&cur, r.FD, io.Discard)
				continue
			}
			src := streamFor(&cur, r.DupFD)
			switch r.FD {
			case 0:
				if rd, ok := src.(io.Reader); ok {
					cur.stdin = rd
				}
			default:
				if w, ok := src.(io.Writer); ok {
					assignWriter(&cur, r.FD, w)
				}
			}

		case ast.RedirHereDoc:
			body := r.Target.Fragments[0]
			text, err := it.Expand.ExpandLiteral(ast.Word{Fragments: body.HereDocBody})
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			cur.stdin = strings.NewReader(text)

		case ast.RedirHereStr:
			text, err := it.Expand.ExpandLiteral(*r.Target)
			if err != nil {
				cleanup()
				return cur, nil, err
			}
			cur.stdin = strings.NewReader(text + "\n")
		}
	}
	return cur, cleanup, nil
}

func assignReader(t *fdTable, fd int, r io.Reader) {
	if fd == 0 {
		t.stdin = r
	}
}

func assignWriter(t *fdTable, fd int, w io.Writer) {
	switch fd {
	case 1:
		t.stdout = w
	case 2:
		t.stderr = w
	}
}

func streamFor(t *fdTable, fd int) interface{} {
	switch fd {
	case 0:
		return t.stdin
	case 1:
		return t.stdout
	case 2:
		return t.stderr
	}
	return nil
}
