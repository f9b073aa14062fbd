package arith

import "github.com/bashkit/bashkit/internal/ast"

// Vars is the minimal variable-access surface the evaluator needs; the
// interpreter's Environment implements it so arith has no import-cycle
// dependency on internal/env.
type Vars interface {
	GetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error)) (int64, error)
	SetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error), value int64) error
}

// Eval evaluates an arithmetic expression against the given Vars. Division
// and modulo by zero return *Error, caught by the interpreter and surfaced
// as a non-zero exit rather than a parser-level failure (spec.md §4.2).
func Eval(expr ast.Arith, vars Vars) (int64, error) {
	e := &evaluator{vars: vars}
	return e.eval(expr, 0)
}

type evaluator struct {
	vars Vars
}

func (e *evaluator) eval(expr ast.Arith, depth int) (int64, error) {
	if depth > MaxDepth {
		return 0, &Error{Reason: "arithmetic recursion exceeded MAX_ARITH_DEPTH"}
	}
	switch n := expr.(type) {
	case ast.ArithInteger:
		return n.Value, nil
	case ast.ArithVariable:
		return e.vars.GetArithVar(n.Name, n.Index, func(a ast.Arith) (int64, error) { return e.eval(a, depth+1) })
	case ast.ArithUnaryExpr:
		v, err := e.eval(n.Arg, depth+1)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case ast.UnaryPlus:
			return v, nil
		case ast.UnaryMinus:
			return -v, nil
		case ast.UnaryNot:
			return boolInt(v == 0), nil
		case ast.UnaryBitNot:
			return ^v, nil
		case ast.UnaryPreInc:
			return e.assignVar(n.Arg, v+1, depth)
		case ast.UnaryPreDec:
			return e.assignVar(n.Arg, v-1, depth)
		}
		return 0, &Error{Reason: "unknown unary operator"}
	case ast.ArithBinaryExpr:
		return e.evalBinary(n, depth)
	case ast.ArithTernaryExpr:
		c, err := e.eval(n.Cond, depth+1)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return e.eval(n.Then, depth+1)
		}
		return e.eval(n.Else, depth+1)
	case ast.ArithAssignExpr:
		var v int64
		var err error
		if n.Compound {
			cur, err2 := e.vars.GetArithVar(n.Name, n.Index, func(a ast.Arith) (int64, error) { return e.eval(a, depth+1) })
			if err2 != nil {
				return 0, err2
			}
			rhs, err2 := e.eval(n.Value, depth+1)
			if err2 != nil {
				return 0, err2
			}
			v, err = applyBinary(n.Op, cur, rhs)
		} else {
			v, err = e.eval(n.Value, depth+1)
		}
		if err != nil {
			return 0, err
		}
		if err := e.vars.SetArithVar(n.Name, n.Index, func(a ast.Arith) (int64, error) { return e.eval(a, depth+1) }, v); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return 0, &Error{Reason: "unknown arithmetic node"}
	}
}

func (e *evaluator) assignVar(target ast.Arith, v int64, depth int) (int64, error) {
	ref, ok := target.(ast.ArithVariable)
	if !ok {
		return 0, &Error{Reason: "++/-- target is not a variable"}
	}
	if err := e.vars.SetArithVar(ref.Name, ref.Index, func(a ast.Arith) (int64, error) { return e.eval(a, depth+1) }, v); err != nil {
		return 0, err
	}
	return v, nil
}

func (e *evaluator) evalBinary(n ast.ArithBinaryExpr, depth int) (int64, error) {
	// Short-circuit && / ||.
	if n.Op == ast.BinAnd || n.Op == ast.BinOr {
		l, err := e.eval(n.Left, depth+1)
		if err != nil {
			return 0, err
		}
		if n.Op == ast.BinAnd && l == 0 {
			return 0, nil
		}
		if n.Op == ast.BinOr && l != 0 {
			return 1, nil
		}
		r, err := e.eval(n.Right, depth+1)
		if err != nil {
			return 0, err
		}
		return boolInt(r != 0), nil
	}
	l, err := e.eval(n.Left, depth+1)
	if err != nil {
		return 0, err
	}
	r, err := e.eval(n.Right, depth+1)
	if err != nil {
		return 0, err
	}
	return applyBinary(n.Op, l, r)
}

func applyBinary(op ast.BinaryOp, l, r int64) (int64, error) {
	switch op {
	case ast.BinBitOr:
		return l | r, nil
	case ast.BinBitXor:
		return l ^ r, nil
	case ast.BinBitAnd:
		return l & r, nil
	case ast.BinEq:
		return boolInt(l == r), nil
	case ast.BinNe:
		return boolInt(l != r), nil
	case ast.BinLt:
		return boolInt(l < r), nil
	case ast.BinLe:
		return boolInt(l <= r), nil
	case ast.BinGt:
		return boolInt(l > r), nil
	case ast.BinGe:
		return boolInt(l >= r), nil
	case ast.BinShl:
		return l << uint64(r), nil
	case ast.BinShr:
		return l >> uint64(r), nil
	case ast.BinAdd:
		return l + r, nil
	case ast.BinSub:
		return l - r, nil
	case ast.BinMul:
		return l * r, nil
	case ast.BinDiv:
		if r == 0 {
			return 0, &Error{Reason: "division by zero"}
		}
		return l / r, nil
	case ast.BinMod:
		if r == 0 {
			return 0, &Error{Reason: "division by zero"}
		}
		return l % r, nil
	case ast.BinComma:
		return r, nil
	}
	return 0, &Error{Reason: "unknown binary operator"}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
