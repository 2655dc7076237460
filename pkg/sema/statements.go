package sema

import (
	"minic/pkg/ast"
	"minic/pkg/types"
)

// analyzeStmt dispatches statement analysis per spec.md §4.1 step 3.
// Break/Continue/Empty take no semantic action here: the code
// generator alone enforces loop-nesting if it chooses to.
func (a *Analyzer) analyzeStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Compound:
		a.scope.EnterScope()
		for _, child := range n.Stmts {
			a.analyzeStmt(child)
		}
		a.scope.ExitScope()

	case *ast.VarDecl:
		a.analyzeVarDecl(n)

	case *ast.Return:
		a.analyzeReturn(n)

	case *ast.If:
		a.analyzeExpr(n.Condition)
		a.analyzeStmt(n.Then)
		for _, ei := range n.ElseIfs {
			a.analyzeExpr(ei.Condition)
			a.analyzeStmt(ei.Body)
		}
		if n.Else != nil {
			a.analyzeStmt(n.Else)
		}

	case *ast.While:
		a.analyzeExpr(n.Condition)
		a.analyzeStmt(n.Body)

	case *ast.DoWhile:
		a.analyzeStmt(n.Body)
		a.analyzeExpr(n.Condition)

	case *ast.For:
		a.scope.EnterScope()
		if n.Init != nil {
			a.analyzeStmt(n.Init)
		}
		if n.Cond != nil {
			a.analyzeExpr(n.Cond)
		}
		if n.Incr != nil {
			a.analyzeExpr(n.Incr)
		}
		a.analyzeStmt(n.Body)
		a.scope.ExitScope()

	case *ast.ExprStmt:
		a.analyzeExpr(n.Expr)

	case *ast.Break, *ast.Continue, *ast.Empty:
		// no semantic action

	default:
		panic("sema: unhandled statement type")
	}
}

func (a *Analyzer) analyzeVarDecl(d *ast.VarDecl) {
	base, ok := a.resolveTypeSpec(d.TypeSpec)
	if !ok {
		a.errorf(d.Line, "unknown type %q for variable %q", d.TypeSpec, d.Name)
		return
	}
	if base.IsVoid() {
		a.errorf(d.Line, "variable %q cannot have type void", d.Name)
		return
	}
	if _, exists := a.scope.FindInCurrentScope(d.Name); exists {
		a.errorf(d.Line, "duplicate declaration %q in this scope", d.Name)
		return
	}
	vt, ok := a.wrapArrayDims(base, d.ArrayDims, d.Line)
	if !ok {
		return
	}
	d.ResolvedType = vt
	a.scope.Define(Symbol{Name: d.Name, Type: vt, Kind: SymVariable})

	if d.Init == nil {
		return
	}
	a.analyzeLocalInitializer(d.Init, vt, d.Line)
}

// analyzeLocalInitializer dispatches an initializer per spec.md §4.1
// step 3: an InitializerList dispatches on the variable's resolved
// kind (array, struct, or — for a scalar target with a single-element
// list — a plain scalar check); otherwise the single expression is
// type-checked directly against the variable's type.
func (a *Analyzer) analyzeLocalInitializer(init ast.Expr, target *types.Type, line int) {
	list, isList := init.(*ast.InitializerList)
	if !isList {
		t := a.analyzeExpr(init)
		if t == nil {
			return
		}
		if t.IsVoid() {
			a.errorf(line, "cannot initialize %s from void expression", target)
			return
		}
		if !types.Compatible(t, target) {
			a.errorf(line, "cannot initialize %s with %s", target, t)
		}
		return
	}

	switch target.Kind {
	case types.KindArray, types.KindStruct:
		a.analyzeAggregateInitializer(list, target, false, line)
	default:
		if len(list.Elements) != 1 {
			a.errorf(line, "scalar initializer must have exactly one element")
			return
		}
		t := a.analyzeExpr(list.Elements[0])
		if t != nil && !types.Compatible(t, target) {
			a.errorf(line, "cannot initialize %s with %s", target, t)
		}
	}
}

// analyzeAggregateInitializer validates an initializer list's
// element-wise shape against an array or struct target, per
// spec.md §4.1's aggregate-initializer validation rules. When
// requireConstant is set (global initializers), every element must
// itself be a constant expression. Nested initializer lists are never
// permitted.
func (a *Analyzer) analyzeAggregateInitializer(list *ast.InitializerList, target *types.Type, requireConstant bool, line int) {
	switch target.Kind {
	case types.KindArray:
		if len(list.Elements) > target.Length {
			a.errorf(line, "too many initializers for array of length %d", target.Length)
		}
		for _, elem := range list.Elements {
			if _, nested := elem.(*ast.InitializerList); nested {
				a.errorf(line, "nested initializer lists are not permitted")
				continue
			}
			t := a.analyzeExpr(elem)
			if t != nil && !types.Compatible(t, target.Elem) {
				a.errorf(line, "cannot initialize array element of type %s with %s", target.Elem, t)
			}
			if requireConstant && !a.isConstant(elem) {
				a.errorf(line, "global initializer element must be a constant expression")
			}
		}

	case types.KindStruct:
		if len(list.Elements) > len(target.Fields) {
			a.errorf(line, "too many initializers for struct %q", target.StructName)
		}
		for i, elem := range list.Elements {
			if _, nested := elem.(*ast.InitializerList); nested {
				a.errorf(line, "nested initializer lists are not permitted")
				continue
			}
			t := a.analyzeExpr(elem)
			if i >= len(target.Fields) {
				continue
			}
			field := target.Fields[i]
			if t != nil && !types.Compatible(t, field.Type) {
				a.errorf(line, "cannot initialize member %q of type %s with %s", field.Name, field.Type, t)
			}
			if requireConstant && !a.isConstant(elem) {
				a.errorf(line, "global initializer element must be a constant expression")
			}
		}

	default:
		a.errorf(line, "type %s cannot be initialized from a list", target)
	}
}

func (a *Analyzer) analyzeReturn(r *ast.Return) {
	if !a.inFunction {
		a.errorf(r.LineOf(), "return statement outside of a function")
		return
	}
	if r.Expr == nil {
		if !a.currentReturnType.IsVoid() {
			a.errorf(r.LineOf(), "non-void function must return a value")
		}
		return
	}
	t := a.analyzeExpr(r.Expr)
	if a.currentReturnType.IsVoid() {
		a.errorf(r.LineOf(), "void function cannot return a value")
		return
	}
	if t != nil && !types.Compatible(t, a.currentReturnType) {
		a.errorf(r.LineOf(), "cannot return %s from function declared to return %s", t, a.currentReturnType)
	}
}
