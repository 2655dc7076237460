package sema

import (
	"minic/pkg/ast"
	"minic/pkg/types"
)

// analyzeExpr resolves e's type, stores it on the node, and returns
// it. It returns nil only when a prior diagnostic makes the type
// unknowable; callers must guard against a nil result before using it.
func (a *Analyzer) analyzeExpr(e ast.Expr) *types.Type {
	t := a.resolveExpr(e)
	if t != nil {
		e.SetResolvedType(t)
	}
	return t
}

func (a *Analyzer) resolveExpr(e ast.Expr) *types.Type {
	switch n := e.(type) {
	case *ast.Number:
		return types.IntType

	case *ast.Variable:
		if sym, ok := a.scope.Find(n.Name); ok {
			return sym.Type
		}
		if sym, ok := a.globalSymbols[n.Name]; ok {
			return sym.Type
		}
		a.errorf(n.Line, "undeclared name %q", n.Name)
		return nil

	case *ast.BinaryOp:
		return a.resolveBinaryOp(n)

	case *ast.UnaryOp:
		return a.resolveUnaryOp(n)

	case *ast.FunctionCall:
		return a.resolveFunctionCall(n)

	case *ast.ArrayAccess:
		return a.resolveArrayAccess(n)

	case *ast.MemberAccess:
		return a.resolveMemberAccess(n)

	case *ast.InitializerList:
		a.errorf(n.Line, "initializer list is not valid in this expression context")
		for _, elem := range n.Elements {
			a.analyzeExpr(elem)
		}
		return nil

	default:
		panic("sema: unhandled expression type")
	}
}

func (a *Analyzer) resolveBinaryOp(n *ast.BinaryOp) *types.Type {
	leftType := a.analyzeExpr(n.Left)
	rightType := a.analyzeExpr(n.Right)

	if n.Op == "=" {
		if !a.isLvalue(n.Left) {
			a.errorf(n.Line, "left side of assignment is not an lvalue")
		}
		if rightType != nil && rightType.IsVoid() {
			a.errorf(n.Line, "cannot assign void to a value")
		}
		if leftType != nil && rightType != nil && !types.Compatible(leftType, rightType) {
			a.errorf(n.Line, "cannot assign %s to %s", rightType, leftType)
		}
		return leftType
	}

	if leftType != nil && leftType.IsVoid() {
		a.errorf(n.Line, "void value used in expression")
	}
	if rightType != nil && rightType.IsVoid() {
		a.errorf(n.Line, "void value used in expression")
	}

	if n.Op == "%" {
		if leftType != nil && leftType.Kind != types.KindInt {
			a.errorf(n.Line, "left operand of %% must be int")
		}
		if rightType != nil && rightType.Kind != types.KindInt {
			a.errorf(n.Line, "right operand of %% must be int")
		}
	}

	// Every other binary operator resolves to Int, per spec.md §4.1's
	// deliberate simplification: no pointer arithmetic is modeled, and
	// mixed-kind operands (besides modulo) are not rejected here.
	return types.IntType
}

func (a *Analyzer) resolveUnaryOp(n *ast.UnaryOp) *types.Type {
	operandType := a.analyzeExpr(n.Operand)
	if operandType != nil && operandType.IsVoid() {
		a.errorf(n.Line, "void value used in expression")
		return nil
	}

	switch n.Op {
	case "&":
		if !a.isLvalue(n.Operand) {
			a.errorf(n.Line, "operand of & must be an lvalue")
			return nil
		}
		if operandType == nil {
			return nil
		}
		return types.NewPointer(operandType)

	case "*":
		if operandType == nil {
			return nil
		}
		if operandType.Kind != types.KindPointer {
			a.errorf(n.Line, "cannot dereference non-pointer type %s", operandType)
			return nil
		}
		return operandType.Base

	case "-", "+":
		if operandType != nil && operandType.Kind != types.KindInt {
			a.errorf(n.Line, "operand of unary %s must be int", n.Op)
		}
		return types.IntType

	case "!":
		return types.IntType

	default:
		panic("sema: unhandled unary operator " + n.Op)
	}
}

func (a *Analyzer) resolveFunctionCall(n *ast.FunctionCall) *types.Type {
	sym, ok := a.scope.Find(n.Name)
	if !ok || sym.Kind != SymFunction {
		a.errorf(n.Line, "call to undeclared function %q", n.Name)
		for _, arg := range n.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	sig := sym.Type
	if len(n.Args) != len(sig.Params) {
		a.errorf(n.Line, "function %q expects %d argument(s), got %d", n.Name, len(sig.Params), len(n.Args))
	}
	for i, arg := range n.Args {
		argType := a.analyzeExpr(arg)
		if i >= len(sig.Params) {
			continue
		}
		if argType != nil && !types.Compatible(argType, sig.Params[i].Type) {
			a.errorf(n.Line, "argument %d of call to %q: cannot use %s as %s", i+1, n.Name, argType, sig.Params[i].Type)
		}
	}
	return sig.Return
}

func (a *Analyzer) resolveArrayAccess(n *ast.ArrayAccess) *types.Type {
	arrayType := a.analyzeExpr(n.Array)
	a.analyzeExpr(n.Index)
	if arrayType == nil {
		return nil
	}
	switch arrayType.Kind {
	case types.KindArray:
		return arrayType.Elem
	case types.KindPointer:
		return arrayType.Base
	default:
		a.errorf(n.Line, "cannot index into non-array, non-pointer type %s", arrayType)
		return nil
	}
}

func (a *Analyzer) resolveMemberAccess(n *ast.MemberAccess) *types.Type {
	objType := a.analyzeExpr(n.Object)
	if objType == nil {
		return nil
	}
	if objType.Kind != types.KindStruct {
		a.errorf(n.Line, "member access on non-struct type %s", objType)
		return nil
	}
	field, ok := objType.FindField(n.Member)
	if !ok {
		a.errorf(n.Line, "struct %q has no member %q", objType.StructName, n.Member)
		return nil
	}
	return field.Type
}

// isLvalue reports whether e denotes an addressable location:
// variables, array accesses, member accesses, and pointer
// dereferences, per spec.md's Lvalue glossary entry.
func (a *Analyzer) isLvalue(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Variable, *ast.ArrayAccess, *ast.MemberAccess:
		return true
	case *ast.UnaryOp:
		return n.Op == "*"
	default:
		return false
	}
}
