package interp

import (
	"io"
	"sync"

	"github.com/bashkit/bashkit/internal/ast"
)

// execPipeline runs each stage concurrently, connected by in-process pipes
// (spec.md §4.4 Pipeline; grounded on the teacher's pipeline runner, which
// wires os.Pipe + a WaitGroup the same way — this subset has no real
// subprocesses, so io.Pipe stands in for os.Pipe).
func (it *Interp) execPipeline(p *ast.Pipeline, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	n := len(p.Stages)
	if n == 1 {
		status, err := it.execCommand(p.Stages[0], stdin, stdout, stderr, exempt)
		return negate(p.Negated, status), err
	}

	readers := make([]*io.PipeReader, n-1)
	writers := make([]*io.PipeWriter, n-1)
	for i := range readers {
		readers[i], writers[i] = io.Pipe()
	}

	statuses := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			in := stdin
			if i > 0 {
				in = readers[i-1]
			}
			out := stdout
			if i < n-1 {
				out = writers[i]
			}
			errStream := stderr
			if p.StderrToo && i < n-1 {
				errStream = writers[i]
			}
			statuses[i], errs[i] = it.execCommand(p.Stages[i], in, out, errStream, exempt)
			if i < n-1 {
				writers[i].Close()
			}
			if i > 0 {
				readers[i-1].Close()
			}
		}()
	}
	wg.Wait()

	last := statuses[n-1]
	if it.Session.Options.PipeFail {
		for i := n - 1; i >= 0; i-- {
			if statuses[i] != 0 {
				last = statuses[i]
				break
			}
		}
	}
	for _, err := range errs {
		if err != nil {
			return negate(p.Negated, last), err
		}
	}
	return negate(p.Negated, last), nil
}

func negate(neg bool, status int) int {
	if !neg {
		return status
	}
	if status == 0 {
		return 1
	}
	return 0
}

func (it *Interp) execAndOr(n *ast.AndOr, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	status, err := it.execCommand(n.Left, stdin, stdout, stderr, true)
	if err != nil {
		return status, err
	}
	if n.Op == ast.AndOp && status != 0 {
		return status, nil
	}
	if n.Op == ast.OrOp && status == 0 {
		return status, nil
	}
	return it.execCommand(n.Right, stdin, stdout, stderr, exempt)
}

func (it *Interp) execList(n *ast.List, stdin io.Reader, stdout, stderr io.Writer, exempt bool) (int, error) {
	status := 0
	for i, item := range n.Items {
		last := i == len(n.Items)-1
		var err error
		status, err = it.execCommand(item.Cmd, stdin, stdout, stderr, exempt || !last)
		if err != nil {
			return status, err
		}
		if !last && !exempt && it.Session.Options.ErrExit && status != 0 {
			return status, errAbort
		}
	}
	return status, nil
}
