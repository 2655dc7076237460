package codegen

import (
	"fmt"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
)

// genAssign lowers a BinaryOp("=") per spec.md §4.2: scalar targets
// always go through an address computation followed by STOREM, then
// re-materialize the stored value so the assignment still yields it
// as an expression result; record targets copy via MEMCPY when the
// source is itself addressable, or via element-wise stores when the
// source is a call result already sitting on the stack. Assignment
// through a pointer dereference is always scalar, regardless of the
// pointee's width.
func (cg *CodeGen) genAssign(left, right ast.Expr) error {
	isDeref := isDereference(left)
	slotCount := int32(left.ResolvedTypeOf().SlotCount())

	if isDeref || slotCount <= 1 {
		if err := cg.genExpr(right); err != nil {
			return err
		}
		if err := cg.genAddr(left); err != nil {
			return err
		}
		cg.emit(bytecode.STOREM, 0)
		return cg.genExpr(left)
	}

	if isAddressable(right) {
		if err := cg.genAddr(right); err != nil {
			return err
		}
		if err := cg.genAddr(left); err != nil {
			return err
		}
		cg.emit(bytecode.MEMCPY, slotCount)
	} else {
		if err := cg.genExpr(right); err != nil {
			return err
		}
		if err := cg.storeRecordFromStack(left, slotCount); err != nil {
			return err
		}
	}
	return cg.genExpr(left)
}

// storeRecordFromStack consumes slotCount values already on top of
// the stack (highest-index member on top, per the low-to-high record
// layout) and writes them into left's slots, highest index first.
func (cg *CodeGen) storeRecordFromStack(left ast.Expr, slotCount int32) error {
	for i := slotCount - 1; i >= 0; i-- {
		if v, ok := left.(*ast.Variable); ok {
			if lv, isLocal := cg.locals[v.Name]; isLocal {
				cg.emit(bytecode.STORE, lv.Offset+i)
				continue
			}
			if gv, isGlobal := cg.globals[v.Name]; isGlobal {
				cg.emit(bytecode.STOREG, gv.Offset+i)
				continue
			}
			return fmt.Errorf("codegen: %q is not a known variable", v.Name)
		}
		if err := cg.genAddr(left); err != nil {
			return err
		}
		if i > 0 {
			cg.emit(bytecode.ADDPTR, i)
		}
		cg.emit(bytecode.STOREM, 0)
	}
	return nil
}

func isDereference(e ast.Expr) bool {
	u, ok := e.(*ast.UnaryOp)
	return ok && u.Op == "*"
}

func isAddressable(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Variable, *ast.ArrayAccess, *ast.MemberAccess:
		return true
	case *ast.UnaryOp:
		return n.Op == "*"
	default:
		return false
	}
}
