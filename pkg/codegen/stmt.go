package codegen

import (
	"fmt"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
)

// genStmt dispatches statement lowering per spec.md §4.2's "Local
// allocation" and "Control flow" rules.
func (cg *CodeGen) genStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Compound:
		return cg.genCompound(n)
	case *ast.VarDecl:
		return cg.genVarDecl(n)
	case *ast.Return:
		return cg.genReturn(n)
	case *ast.If:
		return cg.genIf(n)
	case *ast.While:
		return cg.genWhile(n)
	case *ast.DoWhile:
		return cg.genDoWhile(n)
	case *ast.For:
		return cg.genFor(n)
	case *ast.ExprStmt:
		return cg.genExprDiscard(n.Expr)
	case *ast.Break:
		return cg.genBreak(n)
	case *ast.Continue:
		return cg.genContinue(n)
	case *ast.Empty:
		return nil
	default:
		return fmt.Errorf("codegen: unhandled statement type %T", s)
	}
}

// genExprDiscard lowers an expression used only for its side effect,
// popping whatever slots it leaves behind.
func (cg *CodeGen) genExprDiscard(e ast.Expr) error {
	if err := cg.genExpr(e); err != nil {
		return err
	}
	slotCount := 0
	if rt := e.ResolvedTypeOf(); rt != nil {
		slotCount = rt.SlotCount()
	}
	for i := 0; i < slotCount; i++ {
		cg.emit(bytecode.POP, 0)
	}
	return nil
}

// genCompound implements "Local allocation": it snapshots the local
// table before generating its statements, then retracts any slots
// added within this block on exit.
func (cg *CodeGen) genCompound(n *ast.Compound) error {
	savedOffset := cg.nextLocalOffset
	savedLocals := cg.snapshotLocals()

	for _, stmt := range n.Stmts {
		if err := cg.genStmt(stmt); err != nil {
			return err
		}
	}

	cg.retractLocals(savedOffset, savedLocals)
	return nil
}

func (cg *CodeGen) snapshotLocals() map[string]localVar {
	saved := make(map[string]localVar, len(cg.locals))
	for k, v := range cg.locals {
		saved[k] = v
	}
	return saved
}

func (cg *CodeGen) retractLocals(savedOffset int32, savedLocals map[string]localVar) {
	if delta := cg.nextLocalOffset - savedOffset; delta > 0 {
		cg.emit(bytecode.ADJSP, delta)
	}
	cg.nextLocalOffset = savedOffset
	cg.locals = savedLocals
}

// genVarDecl allocates this declaration's slot run at the current
// local offset and materializes its initial value directly into
// those slots — the freshly-emitted pushes become the variable.
func (cg *CodeGen) genVarDecl(d *ast.VarDecl) error {
	slotCount := int32(d.ResolvedType.SlotCount())
	offset := cg.nextLocalOffset
	cg.locals[d.Name] = localVar{Offset: offset, SlotCount: slotCount}
	cg.nextLocalOffset += slotCount

	if d.Init == nil {
		for i := int32(0); i < slotCount; i++ {
			cg.emit(bytecode.PUSH, 0)
		}
		return nil
	}
	if list, ok := d.Init.(*ast.InitializerList); ok {
		return cg.genInitializerList(list, slotCount)
	}
	return cg.genExpr(d.Init)
}

// genInitializerList emits each element's value in order, padding
// with PUSH 0 up to the declared slot width, per spec.md §4.2.
func (cg *CodeGen) genInitializerList(list *ast.InitializerList, targetSlots int32) error {
	emitted := int32(0)
	for _, elem := range list.Elements {
		if err := cg.genExpr(elem); err != nil {
			return err
		}
		emitted += int32(elem.ResolvedTypeOf().SlotCount())
	}
	for ; emitted < targetSlots; emitted++ {
		cg.emit(bytecode.PUSH, 0)
	}
	return nil
}

// genReturn implements spec.md §4.2's "Return with record values":
// scalar returns push the value and let RET copy it; record returns
// store each slot explicitly (high-to-low) and then reload the
// highest slot so RET's own single-slot write-back is a harmless
// repeat of what was already stored, rather than a corruption of it.
func (cg *CodeGen) genReturn(r *ast.Return) error {
	if cg.currentFunction == "" {
		panic("codegen: genReturn called outside any function body")
	}
	if r.Expr == nil {
		cg.emit(bytecode.PUSH, 0)
		cg.emit(bytecode.RET, cg.currentRetSlotBase)
		return nil
	}

	slotCount := int32(cg.currentReturnType.SlotCount())
	if slotCount <= 1 {
		if err := cg.genExpr(r.Expr); err != nil {
			return err
		}
		cg.emit(bytecode.RET, cg.currentRetSlotBase)
		return nil
	}

	if err := cg.genExpr(r.Expr); err != nil {
		return err
	}
	base := cg.currentRetSlotBase - (slotCount - 1)
	for i := slotCount - 1; i >= 0; i-- {
		cg.emit(bytecode.STORE, base+i)
	}
	cg.emit(bytecode.LOAD, cg.currentRetSlotBase)
	cg.emit(bytecode.RET, cg.currentRetSlotBase)
	return nil
}

//  Control flow

func (cg *CodeGen) genIf(n *ast.If) error {
	var joinPatches []int

	emitBranch := func(cond ast.Expr, body ast.Stmt) error {
		if err := cg.genExpr(cond); err != nil {
			return err
		}
		skip := cg.emit(bytecode.JZ, 0)
		if err := cg.genStmt(body); err != nil {
			return err
		}
		joinPatches = append(joinPatches, cg.emit(bytecode.JMP, 0))
		cg.patch(skip, cg.here())
		return nil
	}

	if err := emitBranch(n.Condition, n.Then); err != nil {
		return err
	}
	for _, ei := range n.ElseIfs {
		if err := emitBranch(ei.Condition, ei.Body); err != nil {
			return err
		}
	}
	if n.Else != nil {
		if err := cg.genStmt(n.Else); err != nil {
			return err
		}
	}

	join := cg.here()
	for _, idx := range joinPatches {
		cg.patch(idx, join)
	}
	return nil
}

func (cg *CodeGen) genWhile(n *ast.While) error {
	condStart := cg.here()
	if err := cg.genExpr(n.Condition); err != nil {
		return err
	}
	exitJump := cg.emit(bytecode.JZ, 0)

	cg.pushLoop()
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	cg.emit(bytecode.JMP, condStart)
	end := cg.here()
	cg.patch(exitJump, end)
	cg.popLoop(condStart, end)
	return nil
}

func (cg *CodeGen) genDoWhile(n *ast.DoWhile) error {
	bodyStart := cg.here()
	cg.pushLoop()
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	condStart := cg.here()
	if err := cg.genExpr(n.Condition); err != nil {
		return err
	}
	cg.emit(bytecode.JNZ, bodyStart)
	end := cg.here()
	cg.popLoop(condStart, end)
	return nil
}

func (cg *CodeGen) genFor(n *ast.For) error {
	savedOffset := cg.nextLocalOffset
	savedLocals := cg.snapshotLocals()

	if n.Init != nil {
		if err := cg.genStmt(n.Init); err != nil {
			return err
		}
	}

	condStart := cg.here()
	var exitJump int
	hasExit := false
	if n.Cond != nil {
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		exitJump = cg.emit(bytecode.JZ, 0)
		hasExit = true
	}

	cg.pushLoop()
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	incrStart := cg.here()
	if n.Incr != nil {
		if err := cg.genExprDiscard(n.Incr); err != nil {
			return err
		}
	}
	cg.emit(bytecode.JMP, condStart)
	end := cg.here()
	if hasExit {
		cg.patch(exitJump, end)
	}
	cg.popLoop(incrStart, end)

	cg.retractLocals(savedOffset, savedLocals)
	return nil
}

func (cg *CodeGen) pushLoop() {
	cg.loopStack = append(cg.loopStack, loopLabels{})
}

// popLoop resolves the current loop's pending break/continue jumps:
// continue targets continueTarget (the condition for while/do-while,
// the increment for for-loops); break targets the address just past
// the loop.
func (cg *CodeGen) popLoop(continueTarget, breakTarget int32) {
	top := cg.loopStack[len(cg.loopStack)-1]
	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
	for _, idx := range top.continuePatches {
		cg.patch(idx, continueTarget)
	}
	for _, idx := range top.breakPatches {
		cg.patch(idx, breakTarget)
	}
}

func (cg *CodeGen) genBreak(n *ast.Break) error {
	if len(cg.loopStack) == 0 {
		return fmt.Errorf("codegen: break statement outside of a loop")
	}
	idx := cg.emit(bytecode.JMP, 0)
	top := len(cg.loopStack) - 1
	cg.loopStack[top].breakPatches = append(cg.loopStack[top].breakPatches, idx)
	return nil
}

func (cg *CodeGen) genContinue(n *ast.Continue) error {
	if len(cg.loopStack) == 0 {
		return fmt.Errorf("codegen: continue statement outside of a loop")
	}
	idx := cg.emit(bytecode.JMP, 0)
	top := len(cg.loopStack) - 1
	cg.loopStack[top].continuePatches = append(cg.loopStack[top].continuePatches, idx)
	return nil
}
