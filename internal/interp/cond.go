package interp

import (
	"regexp"
	"strconv"

	"github.com/bashkit/bashkit/internal/ast"
	"github.com/bashkit/bashkit/internal/expand"
	"github.com/bashkit/bashkit/internal/vfs"
)

// evalCond walks a "[[ ... ]]" tree (spec.md §4.4: operands are expanded
// with splitting/globbing suppressed, matching CondBinary's Left/Right
// being flattened rather than field-split).
func (it *Interp) evalCond(n ast.CondNode) (bool, error) {
	switch c := n.(type) {
	case ast.CondBinary:
		left, err := it.Expand.ExpandLiteral(c.Left)
		if err != nil {
			return false, err
		}
		right, err := it.Expand.ExpandLiteral(c.Right)
		if err != nil {
			return false, err
		}
		return evalCondBinary(c.Op, left, right)
	case ast.CondUnary:
		arg, err := it.Expand.ExpandLiteral(c.Arg)
		if err != nil {
			return false, err
		}
		return it.evalCondUnary(c.Op, arg)
	case ast.CondLogical:
		left, err := it.evalCond(c.Left)
		if err != nil {
			return false, err
		}
		if c.Op == ast.CondAnd && !left {
			return false, nil
		}
		if c.Op == ast.CondOr && left {
			return true, nil
		}
		return it.evalCond(c.Right)
	case ast.CondNegate:
		v, err := it.evalCond(c.Arg)
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return false, nil
}

// evalCondBinary. The parser's CondOp merges the string (==, !=) and
// numeric (-eq, -ne, -lt, -gt, -le, -ge) operator families, so both
// operands' shape decides which semantics apply: numeric if both parse as
// integers, string/glob otherwise (spec.md §9 Open Question).
func evalCondBinary(op ast.CondOp, left, right string) (bool, error) {
	switch op {
	case ast.CondEq, ast.CondNe:
		ln, lok := asInt(left)
		rn, rok := asInt(right)
		var eq bool
		if lok && rok {
			eq = ln == rn
		} else {
			eq = expand.GlobMatch(right, left)
		}
		if op == ast.CondNe {
			return !eq, nil
		}
		return eq, nil
	case ast.CondLt, ast.CondGt, ast.CondLe, ast.CondGe:
		ln, _ := asInt(left)
		rn, _ := asInt(right)
		switch op {
		case ast.CondLt:
			return ln < rn, nil
		case ast.CondGt:
			return ln > rn, nil
		case ast.CondLe:
			return ln <= rn, nil
		default:
			return ln >= rn, nil
		}
	case ast.CondRegex:
		re, err := regexp.Compile(right)
		if err != nil {
			return false, err
		}
		return re.MatchString(left), nil
	}
	return false, nil
}

func (it *Interp) evalCondUnary(op ast.CondOp, arg string) (bool, error) {
	switch op {
	case ast.CondStrZero:
		return arg == "", nil
	case ast.CondStrNZero:
		return arg != "", nil
	case ast.CondFileExists:
		return it.FS.Exists(arg), nil
	case ast.CondFileRegular:
		md, err := it.FS.Metadata(arg)
		return err == nil && md.Kind == vfs.RegularFile, nil
	case ast.CondFileDir:
		md, err := it.FS.Metadata(arg)
		return err == nil && md.Kind == vfs.Directory, nil
	case ast.CondFileReadable, ast.CondFileWritable, ast.CondFileExecutable:
		// No permission bits tracked in this sandbox's VFS; any extant path
		// is treated as satisfying the requested access mode.
		return it.FS.Exists(arg), nil
	}
	return false, nil
}

func asInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 0, 64)
	return n, err == nil
}
