package codegen

import (
	"fmt"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
)

// evalConst folds an expression the analyzer has already accepted as
// constant (sema.isConstant) into a literal int32, per spec.md §4.2's
// global-initializer folding rule. & of a global yields
// GlobalBase + offset rather than a runtime address computation.
func (cg *CodeGen) evalConst(e ast.Expr) (int32, error) {
	switch n := e.(type) {
	case *ast.Number:
		return int32(n.Value), nil

	case *ast.BinaryOp:
		l, err := cg.evalConst(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := cg.evalConst(n.Right)
		if err != nil {
			return 0, err
		}
		return evalConstBinary(n.Op, l, r)

	case *ast.UnaryOp:
		switch n.Op {
		case "-":
			v, err := cg.evalConst(n.Operand)
			return -v, err
		case "!":
			v, err := cg.evalConst(n.Operand)
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		case "&":
			v, ok := n.Operand.(*ast.Variable)
			if !ok {
				return 0, fmt.Errorf("codegen: constant address-of requires a global variable operand")
			}
			gv, ok := cg.globals[v.Name]
			if !ok {
				return 0, fmt.Errorf("codegen: %q is not a known global", v.Name)
			}
			return bytecode.GlobalBase + gv.Offset, nil
		default:
			return 0, fmt.Errorf("codegen: %q is not a valid constant-expression operator", n.Op)
		}

	default:
		return 0, fmt.Errorf("codegen: expression is not a constant")
	}
}

func evalConstBinary(op string, l, r int32) (int32, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("codegen: division by zero in constant expression")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("codegen: modulo by zero in constant expression")
		}
		return l % r, nil
	case "==":
		return boolInt32(l == r), nil
	case "!=":
		return boolInt32(l != r), nil
	case "<":
		return boolInt32(l < r), nil
	case "<=":
		return boolInt32(l <= r), nil
	case ">":
		return boolInt32(l > r), nil
	case ">=":
		return boolInt32(l >= r), nil
	case "&&":
		return boolInt32(l != 0 && r != 0), nil
	case "||":
		return boolInt32(l != 0 || r != 0), nil
	default:
		return 0, fmt.Errorf("codegen: %q is not a valid constant-expression operator", op)
	}
}

func boolInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
