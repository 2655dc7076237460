// Package codegen lowers an analyzed *ast.Program to a *bytecode.Program,
// per spec.md §4.2: it lays out variables as slot offsets in an
// activation record, materializes addresses for lvalues, dispatches
// between stack-resident, global, and indirect load/store forms, and
// implements the caller-owns-return-slot calling convention.
package codegen

import (
	"fmt"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
	"minic/pkg/types"
)

// localVar describes one function-scoped variable's activation-record slot run.
type localVar struct {
	Offset      int32
	SlotCount   int32
	IsParameter bool
}

// globalVar describes one global variable's slot run in the globals segment.
type globalVar struct {
	Offset    int32
	SlotCount int32
}

// loopLabels tracks the forward-patch lists for one nested loop's
// break/continue targets, resolved once the loop's full extent is known.
type loopLabels struct {
	breakPatches    []int
	continuePatches []int
}

// callPatch remembers a CALL instruction emitted before its target
// function's entry address was known.
type callPatch struct {
	index    int
	funcName string
}

// CodeGen holds all mutable state for one lowering pass over a Program.
type CodeGen struct {
	prog *bytecode.Program

	locals           map[string]localVar
	nextLocalOffset  int32
	globals          map[string]globalVar
	nextGlobalOffset int32

	structTypes map[string]*types.Type

	currentFunction    string
	currentReturnType  *types.Type
	currentRetSlotBase int32

	loopStack   []loopLabels
	callPatches []callPatch
}

// Generate lowers a fully-analyzed Program into a bytecode.Program.
// It assumes Analyze has already succeeded; any failure here (a
// missing resolved type, a division by zero in a constant expression)
// is a programmer/analyzer defect and is raised immediately as an
// error, per spec.md §7.
func Generate(prog *ast.Program) (*bytecode.Program, error) {
	cg := &CodeGen{
		prog: &bytecode.Program{
			Functions: make(map[string]int32),
		},
		globals:     make(map[string]globalVar),
		structTypes: make(map[string]*types.Type),
	}

	if err := cg.generateGlobals(prog); err != nil {
		return nil, err
	}

	for _, fn := range prog.Functions {
		if err := cg.generateFunction(fn); err != nil {
			return nil, err
		}
	}

	for _, cp := range cg.callPatches {
		addr, ok := cg.prog.Functions[cp.funcName]
		if !ok {
			return nil, fmt.Errorf("codegen: call to undefined function %q", cp.funcName)
		}
		cg.prog.Code[cp.index].Operand = addr
	}

	entry, ok := cg.prog.Functions["main"]
	if !ok {
		return nil, fmt.Errorf("codegen: no entry point (function \"main\" not found)")
	}
	cg.prog.EntryPoint = entry

	return cg.prog, nil
}

//  Instruction emission helpers

func (cg *CodeGen) emit(op bytecode.Opcode, operand int32) int {
	cg.prog.Code = append(cg.prog.Code, bytecode.Instruction{Op: op, Operand: operand})
	return len(cg.prog.Code) - 1
}

func (cg *CodeGen) here() int32 { return int32(len(cg.prog.Code)) }

func (cg *CodeGen) patch(index int, operand int32) {
	cg.prog.Code[index].Operand = operand
}

//  Global pass

// generateGlobals runs the two-pass allocation spec.md §4.2 describes:
// first every global's slot run is allocated (so address-of a
// forward-declared global resolves correctly), then each global's
// initializer is folded to a constant.
func (cg *CodeGen) generateGlobals(prog *ast.Program) error {
	for _, g := range prog.Globals {
		width := int32(g.ResolvedType.SlotCount())
		cg.globals[g.Name] = globalVar{Offset: cg.nextGlobalOffset, SlotCount: width}
		cg.nextGlobalOffset += width
	}

	for _, g := range prog.Globals {
		gv := cg.globals[g.Name]
		init, err := cg.foldGlobalInit(g, gv)
		if err != nil {
			return err
		}
		cg.prog.Globals = append(cg.prog.Globals, init)
	}
	return nil
}

func (cg *CodeGen) foldGlobalInit(g *ast.GlobalVarDecl, gv globalVar) (bytecode.GlobalVarInit, error) {
	out := bytecode.GlobalVarInit{Offset: gv.Offset, SlotCount: gv.SlotCount}
	if g.Init == nil {
		return out, nil
	}
	if list, ok := g.Init.(*ast.InitializerList); ok {
		for _, elem := range list.Elements {
			v, err := cg.evalConst(elem)
			if err != nil {
				return out, err
			}
			out.InitData = append(out.InitData, v)
		}
		return out, nil
	}
	v, err := cg.evalConst(g.Init)
	if err != nil {
		return out, err
	}
	out.InitData = []int32{v}
	return out, nil
}

//  Function prologue / epilogue

func (cg *CodeGen) generateFunction(fn *ast.FunctionDecl) error {
	cg.locals = make(map[string]localVar)
	cg.nextLocalOffset = 0
	cg.currentFunction = fn.Name
	cg.currentReturnType = fn.ResolvedReturnType
	cg.loopStack = nil

	paramSlots := int32(0)
	for i := range fn.Params {
		paramSlots += int32(fn.Params[i].ResolvedType.SlotCount())
	}

	// Assign parameter offsets from cursor = -3 outward (more
	// negative), each parameter's own run laid low-to-high so member 0
	// sits at the lowest address, per spec.md §4.2's prologue layout.
	cursor := int32(-3)
	for i := range fn.Params {
		width := int32(fn.Params[i].ResolvedType.SlotCount())
		base := cursor - width + 1
		cg.locals[fn.Params[i].Name] = localVar{Offset: base, SlotCount: width, IsParameter: true}
		cursor = base - 1
	}

	cg.currentRetSlotBase = -3 - paramSlots

	cg.prog.Functions[fn.Name] = cg.here()

	if err := cg.genStmt(fn.Body); err != nil {
		return err
	}

	if !bodyEndsInReturn(fn.Body) {
		cg.emit(bytecode.PUSH, 0)
		cg.emit(bytecode.RET, cg.currentRetSlotBase)
	}
	return nil
}

// bodyEndsInReturn is the shallow, statement-list-final-element check
// spec.md's prologue/epilogue algorithm relies on to decide whether a
// default epilogue is needed; it does not attempt full
// reachability analysis (that is explicitly out of scope, per
// spec.md §1's non-goal on optimization passes).
func bodyEndsInReturn(body *ast.Compound) bool {
	if len(body.Stmts) == 0 {
		return false
	}
	_, ok := body.Stmts[len(body.Stmts)-1].(*ast.Return)
	return ok
}
