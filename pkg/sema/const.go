package sema

import "minic/pkg/ast"

// isConstant implements the constant-expression predicate of spec.md
// §4.1, used only for global initializers: true for Number; for
// BinaryOp when both operands are constant; for UnaryOp(-)/UnaryOp(!)
// when the operand is constant; for UnaryOp(&variable) when the
// variable is global. A bare Variable is never constant, even a
// global one — address-of is the only permitted global reference.
func (a *Analyzer) isConstant(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Number:
		return true

	case *ast.BinaryOp:
		if n.Op == "=" {
			return false
		}
		return a.isConstant(n.Left) && a.isConstant(n.Right)

	case *ast.UnaryOp:
		switch n.Op {
		case "-", "!":
			return a.isConstant(n.Operand)
		case "&":
			if v, ok := n.Operand.(*ast.Variable); ok {
				_, isGlobal := a.globalSymbols[v.Name]
				return isGlobal
			}
			return false
		default:
			return false
		}

	default:
		return false
	}
}
