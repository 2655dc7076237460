package codegen

import (
	"fmt"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
	"minic/pkg/types"
)

var binaryOpcodes = map[string]bytecode.Opcode{
	"+":  bytecode.ADD,
	"-":  bytecode.SUB,
	"*":  bytecode.MUL,
	"/":  bytecode.DIV,
	"%":  bytecode.MOD,
	"==": bytecode.EQ,
	"!=": bytecode.NE,
	"<":  bytecode.LT,
	"<=": bytecode.LE,
	">":  bytecode.GT,
	">=": bytecode.GE,
	"&&": bytecode.AND,
	"||": bytecode.OR,
}

// genExpr lowers e per spec.md §4.2's "Expression lowering" rules,
// leaving exactly e.ResolvedTypeOf().SlotCount() slots on the stack —
// one for scalars and pointers, slot_count contiguous slots laid
// low-to-high for records. Every caller (statement lowering, nested
// expression lowering) relies on this invariant to keep the stack
// balanced without a DUP opcode.
func (cg *CodeGen) genExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Number:
		cg.emit(bytecode.PUSH, int32(n.Value))
		return nil

	case *ast.Variable:
		return cg.loadVariable(n.Name)

	case *ast.BinaryOp:
		if n.Op == "=" {
			return cg.genAssign(n.Left, n.Right)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		op, ok := binaryOpcodes[n.Op]
		if !ok {
			return fmt.Errorf("codegen: unknown binary operator %q", n.Op)
		}
		cg.emit(op, 0)
		return nil

	case *ast.UnaryOp:
		return cg.genUnary(n)

	case *ast.FunctionCall:
		return cg.genCall(n)

	case *ast.ArrayAccess, *ast.MemberAccess:
		slotCount := int32(n.ResolvedTypeOf().SlotCount())
		return cg.genLoadMulti(func() error { return cg.genAddr(e) }, slotCount)

	case *ast.InitializerList:
		return fmt.Errorf("codegen: initializer list is not valid outside a declaration")

	default:
		return fmt.Errorf("codegen: unhandled expression type %T", e)
	}
}

func (cg *CodeGen) genUnary(n *ast.UnaryOp) error {
	switch n.Op {
	case "&":
		return cg.genAddr(n.Operand)

	case "*":
		slotCount := int32(n.ResolvedTypeOf().SlotCount())
		return cg.genLoadMulti(func() error { return cg.genExpr(n.Operand) }, slotCount)

	case "-":
		if err := cg.genExpr(n.Operand); err != nil {
			return err
		}
		cg.emit(bytecode.NEG, 0)
		return nil

	case "+":
		return cg.genExpr(n.Operand)

	case "!":
		if err := cg.genExpr(n.Operand); err != nil {
			return err
		}
		cg.emit(bytecode.NOT, 0)
		return nil

	default:
		return fmt.Errorf("codegen: unknown unary operator %q", n.Op)
	}
}

// genLoadMulti reads slotCount contiguous slots starting at the
// address produced by addrGen, called once per slot since the
// instruction set has no stack-duplication opcode: each call
// regenerates the base address and offsets it by the slot index.
func (cg *CodeGen) genLoadMulti(addrGen func() error, slotCount int32) error {
	if slotCount <= 0 {
		slotCount = 1
	}
	for i := int32(0); i < slotCount; i++ {
		if err := addrGen(); err != nil {
			return err
		}
		if i > 0 {
			cg.emit(bytecode.ADDPTR, i)
		}
		cg.emit(bytecode.LOADM, 0)
	}
	return nil
}

// loadVariable pushes a variable's value, LOAD/LOADG for a scalar or
// pointer, a run of LOAD/LOADG for a record, per spec.md §4.2.
func (cg *CodeGen) loadVariable(name string) error {
	if lv, ok := cg.locals[name]; ok {
		for i := int32(0); i < lv.SlotCount; i++ {
			cg.emit(bytecode.LOAD, lv.Offset+i)
		}
		return nil
	}
	if gv, ok := cg.globals[name]; ok {
		for i := int32(0); i < gv.SlotCount; i++ {
			cg.emit(bytecode.LOADG, gv.Offset+i)
		}
		return nil
	}
	return fmt.Errorf("codegen: %q is not a known variable", name)
}

// genAddr lowers e's address per spec.md §4.2's UnaryOp(&x)/ArrayAccess/
// MemberAccess bullets, for use both by &e itself and by every
// load/store path that needs an lvalue's location rather than its value.
func (cg *CodeGen) genAddr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Variable:
		if lv, ok := cg.locals[n.Name]; ok {
			cg.emit(bytecode.LEA, lv.Offset)
			return nil
		}
		if gv, ok := cg.globals[n.Name]; ok {
			cg.emit(bytecode.LEAG, gv.Offset)
			return nil
		}
		return fmt.Errorf("codegen: %q is not a known variable", n.Name)

	case *ast.UnaryOp:
		if n.Op != "*" {
			return fmt.Errorf("codegen: unary %q is not an lvalue", n.Op)
		}
		return cg.genExpr(n.Operand)

	case *ast.ArrayAccess:
		elemType := n.ResolvedTypeOf()
		elemSlots := int32(elemType.SlotCount())
		if err := cg.genExpr(n.Index); err != nil {
			return err
		}
		arrType := n.Array.ResolvedTypeOf()
		switch arrType.Kind {
		case types.KindArray:
			if err := cg.genAddr(n.Array); err != nil {
				return err
			}
		case types.KindPointer:
			if err := cg.genExpr(n.Array); err != nil {
				return err
			}
		default:
			return fmt.Errorf("codegen: cannot index non-array, non-pointer type")
		}
		cg.emit(bytecode.ADDPTRD, elemSlots)
		return nil

	case *ast.MemberAccess:
		objType := n.Object.ResolvedTypeOf()
		field, ok := objType.FindField(n.Member)
		if !ok {
			return fmt.Errorf("codegen: struct %q has no member %q", objType.StructName, n.Member)
		}
		if err := cg.genAddr(n.Object); err != nil {
			return err
		}
		if field.Offset != 0 {
			cg.emit(bytecode.ADDPTR, int32(field.Offset))
		}
		return nil

	default:
		return fmt.Errorf("codegen: %T is not an lvalue", e)
	}
}

// genCall lowers a call per spec.md §4.2: the caller pre-allocates the
// return slot, pushes arguments in reverse order, then discards the
// argument words after CALL returns, leaving only the return value(s).
func (cg *CodeGen) genCall(n *ast.FunctionCall) error {
	retSlots := int32(0)
	if rt := n.ResolvedTypeOf(); rt != nil {
		retSlots = int32(rt.SlotCount())
	}
	// RET always writes one slot at the return-slot offset, so a void
	// call still reserves one slot and drops it again after the call.
	reserved := retSlots
	if reserved == 0 {
		reserved = 1
	}
	for i := int32(0); i < reserved; i++ {
		cg.emit(bytecode.PUSH, 0)
	}

	totalParamSlots := int32(0)
	for i := len(n.Args) - 1; i >= 0; i-- {
		if err := cg.genExpr(n.Args[i]); err != nil {
			return err
		}
		totalParamSlots += int32(n.Args[i].ResolvedTypeOf().SlotCount())
	}

	if addr, ok := cg.prog.Functions[n.Name]; ok {
		cg.emit(bytecode.CALL, addr)
	} else {
		idx := cg.emit(bytecode.CALL, 0)
		cg.callPatches = append(cg.callPatches, callPatch{index: idx, funcName: n.Name})
	}
	cg.emit(bytecode.ADJSP, totalParamSlots+reserved-retSlots)
	return nil
}
