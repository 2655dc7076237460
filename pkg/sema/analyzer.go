// Package sema implements the semantic analyzer of spec.md §4.1: it
// resolves declared types, tracks symbols through nested lexical
// scopes plus a separate global namespace, annotates every expression
// node with a resolved type, checks assignment/return/argument
// compatibility, and validates initializer-list shapes.
package sema

import (
	"fmt"
	"strings"

	"minic/pkg/ast"
	"minic/pkg/types"
)

// Analyzer holds all mutable state for one analysis pass over a Program.
type Analyzer struct {
	scope         *Scope
	structTypes   map[string]*types.Type
	globalSymbols map[string]Symbol

	diags []Diagnostic

	currentReturnType *types.Type
	inFunction        bool
}

// Analyze validates prog and annotates it in place with resolved
// types. It returns false with a non-empty diagnostic list on any
// error; the code generator must not run over a tree that failed.
func Analyze(prog *ast.Program) (bool, []Diagnostic) {
	a := &Analyzer{
		scope:         NewScope(),
		structTypes:   make(map[string]*types.Type),
		globalSymbols: make(map[string]Symbol),
	}
	a.run(prog)
	return len(a.diags) == 0, a.diags
}

func (a *Analyzer) errorf(line int, format string, args ...any) {
	a.diags = append(a.diags, Diagnostic{Message: fmt.Sprintf(format, args...), Line: line})
}

func (a *Analyzer) run(prog *ast.Program) {
	// 1. Struct pass, in source order.
	for _, sd := range prog.Structs {
		a.analyzeStructDecl(sd)
	}

	// 2. Ordered pass over globals and functions, in declaration order.
	for _, ref := range prog.DeclOrder {
		switch ref.Kind {
		case ast.DeclGlobal:
			a.analyzeGlobalVarDecl(prog.Globals[ref.Index])
		case ast.DeclFunction:
			a.analyzeFunctionDecl(prog.Functions[ref.Index])
		case ast.DeclStruct:
			// already handled above
		}
	}
}

//  Type-specifier resolution

// resolveTypeSpec parses the lexical forms named in spec.md §6 ("int",
// "void", "T*" at any pointer depth, "struct NAME" optionally
// followed by '*') into a *types.Type, using the struct namespace for
// struct lookups.
func (a *Analyzer) resolveTypeSpec(spec string) (*types.Type, bool) {
	stars := 0
	for strings.HasSuffix(spec, "*") {
		spec = spec[:len(spec)-1]
		stars++
	}
	var base *types.Type
	switch {
	case spec == "int":
		base = types.IntType
	case spec == "void":
		base = types.VoidType
	case strings.HasPrefix(spec, "struct "):
		name := strings.TrimPrefix(spec, "struct ")
		st, ok := a.structTypes[name]
		if !ok {
			return nil, false
		}
		base = st
	default:
		return nil, false
	}
	for i := 0; i < stars; i++ {
		base = types.NewPointer(base)
	}
	return base, true
}

// wrapArrayDims builds nested Array types right-to-left, per spec.md
// §4.1: int arr[3][4] becomes Array(Array(int,4),3). Non-positive
// dimensions are rejected with a diagnostic and this returns false.
func (a *Analyzer) wrapArrayDims(base *types.Type, dims []int, line int) (*types.Type, bool) {
	t := base
	ok := true
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] <= 0 {
			a.errorf(line, "array size must be positive, got %d", dims[i])
			ok = false
			continue
		}
		t = types.NewArray(t, dims[i])
	}
	return t, ok
}

//  1. Struct pass

func (a *Analyzer) analyzeStructDecl(sd *ast.StructDecl) {
	if _, exists := a.structTypes[sd.Name]; exists {
		a.errorf(sd.Line, "duplicate struct declaration %q", sd.Name)
		return
	}
	st := types.NewStruct(sd.Name)
	// Insert before resolving members so self-referential pointers
	// (struct Node { struct Node *next; }) can find the name.
	a.structTypes[sd.Name] = st

	for _, m := range sd.Members {
		base, ok := a.resolveTypeSpec(m.TypeSpec)
		if !ok {
			a.errorf(sd.Line, "unknown type %q for member %q of struct %q", m.TypeSpec, m.Name, sd.Name)
			continue
		}
		if base.IsVoid() {
			a.errorf(sd.Line, "member %q of struct %q cannot have type void", m.Name, sd.Name)
			continue
		}
		ft, ok := a.wrapArrayDims(base, m.ArrayDims, sd.Line)
		if !ok {
			continue
		}
		st.AppendField(m.Name, ft)
	}
	st.Finalize()
}

//  2. Ordered pass: globals

func (a *Analyzer) analyzeGlobalVarDecl(g *ast.GlobalVarDecl) {
	base, ok := a.resolveTypeSpec(g.TypeSpec)
	if !ok {
		a.errorf(g.Line, "unknown type %q for global %q", g.TypeSpec, g.Name)
		return
	}
	if base.IsVoid() {
		a.errorf(g.Line, "global %q cannot have type void", g.Name)
		return
	}
	if _, exists := a.globalSymbols[g.Name]; exists {
		a.errorf(g.Line, "duplicate global declaration %q", g.Name)
		return
	}
	vt, ok := a.wrapArrayDims(base, g.ArrayDims, g.Line)
	if !ok {
		return
	}
	g.ResolvedType = vt
	a.globalSymbols[g.Name] = Symbol{Name: g.Name, Type: vt, Kind: SymVariable}

	if g.Init == nil {
		return
	}
	a.analyzeGlobalInitializer(g.Init, vt, g.Line)
}

func (a *Analyzer) analyzeGlobalInitializer(init ast.Expr, target *types.Type, line int) {
	if list, isList := init.(*ast.InitializerList); isList {
		a.analyzeAggregateInitializer(list, target, true, line)
		return
	}
	t := a.analyzeExpr(init)
	if !a.isConstant(init) {
		a.errorf(line, "global initializer must be a constant expression")
		return
	}
	if t != nil && !types.Compatible(t, target) {
		a.errorf(line, "cannot initialize %s with %s", target, t)
	}
}

//  2. Ordered pass: functions

func (a *Analyzer) analyzeFunctionDecl(fn *ast.FunctionDecl) {
	retType, ok := a.resolveTypeSpec(fn.ReturnTypeSpec)
	if !ok {
		a.errorf(fn.Line, "unknown return type %q for function %q", fn.ReturnTypeSpec, fn.Name)
		retType = types.VoidType
	}
	fn.ResolvedReturnType = retType

	if _, exists := a.scope.FindInCurrentScope(fn.Name); exists {
		a.errorf(fn.Line, "duplicate function declaration %q", fn.Name)
		return
	}

	params := make([]types.Param, 0, len(fn.Params))
	for i := range fn.Params {
		p := &fn.Params[i]
		base, ok := a.resolveTypeSpec(p.TypeSpec)
		if !ok {
			a.errorf(fn.Line, "unknown type %q for parameter %q of function %q", p.TypeSpec, p.Name, fn.Name)
			continue
		}
		if base.IsVoid() {
			a.errorf(fn.Line, "parameter %q of function %q cannot have type void", p.Name, fn.Name)
			continue
		}
		pt, ok := a.wrapArrayDims(base, p.ArrayDims, fn.Line)
		if !ok {
			continue
		}
		p.ResolvedType = pt
		params = append(params, types.Param{Name: p.Name, Type: pt})
	}

	sig := types.NewFunction(retType, params)
	a.scope.Define(Symbol{Name: fn.Name, Type: sig, Kind: SymFunction})

	a.scope.EnterScope()
	for i := range fn.Params {
		if fn.Params[i].ResolvedType == nil {
			continue
		}
		a.scope.Define(Symbol{Name: fn.Params[i].Name, Type: fn.Params[i].ResolvedType, Kind: SymParameter})
	}

	prevReturn, prevInFunc := a.currentReturnType, a.inFunction
	a.currentReturnType, a.inFunction = retType, true

	a.analyzeStmt(fn.Body)

	a.currentReturnType, a.inFunction = prevReturn, prevInFunc
	a.scope.ExitScope()
}
