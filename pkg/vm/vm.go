// Package vm executes a *bytecode.Program against a private stack and
// globals segment, per spec.md §4.3.
package vm

import (
	"errors"
	"fmt"

	"minic/pkg/bytecode"
)

// StackSize is the reference stack capacity named in spec.md §5.
const StackSize = 4096

// Sentinel run-time error kinds, per spec.md §7's fatal run-time list.
var (
	ErrStackOverflow  = errors.New("vm: stack overflow")
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrDivisionByZero = errors.New("vm: division by zero")
	ErrOutOfBounds    = errors.New("vm: out-of-bounds memory access")
	ErrNoEntryPoint   = errors.New("vm: no entry point")
	ErrPCOutOfRange   = errors.New("vm: program counter out of range")
)

// Trace, when non-nil, receives one line per executed instruction —
// wired to -debug on the CLI and consumed live by cmd/vmtrace.
type Trace func(pc int32, instr bytecode.Instruction, sp, fp int32)

// VM holds one program's execution state. It is single-owner and not
// safe for concurrent use, per spec.md §5.
type VM struct {
	prog    *bytecode.Program
	stack   [StackSize]int32
	globals []int32
	sp      int32
	fp      int32
	pc      int32
	running bool

	Trace Trace
}

// New prepares a VM to run prog but does not start execution.
func New(prog *bytecode.Program) (*VM, error) {
	if _, ok := prog.Functions["main"]; !ok {
		return nil, ErrNoEntryPoint
	}

	v := &VM{prog: prog}
	v.initGlobals()
	v.setupOuterFrame()
	return v, nil
}

// initGlobals walks the GlobalVarInit list in order, appending each
// entry's explicit values and zero-padding up to its slot_count.
func (v *VM) initGlobals() {
	total := int32(0)
	for _, g := range v.prog.Globals {
		total += g.SlotCount
	}
	v.globals = make([]int32, total)
	for _, g := range v.prog.Globals {
		for i, val := range g.InitData {
			v.globals[g.Offset+int32(i)] = val
		}
	}
}

// setupOuterFrame builds the synthetic outermost frame that calls
// main: a zero return slot, a sentinel return address (-1), a zero
// saved fp, fp = sp, pc = main's entry.
func (v *VM) setupOuterFrame() {
	v.push(0)  // return slot
	v.push(-1) // sentinel return address
	v.push(0)  // saved fp
	v.fp = v.sp
	v.pc = v.prog.Functions["main"]
	v.running = true
}

func (v *VM) push(val int32) error {
	if v.sp >= StackSize {
		return ErrStackOverflow
	}
	v.stack[v.sp] = val
	v.sp++
	return nil
}

func (v *VM) pop() (int32, error) {
	if v.sp <= 0 {
		return 0, ErrStackUnderflow
	}
	v.sp--
	return v.stack[v.sp], nil
}

func (v *VM) stackAt(addr int32) (int32, error) {
	if addr < 0 || addr >= StackSize {
		return 0, ErrOutOfBounds
	}
	return v.stack[addr], nil
}

func (v *VM) setStackAt(addr, val int32) error {
	if addr < 0 || addr >= StackSize {
		return ErrOutOfBounds
	}
	v.stack[addr] = val
	return nil
}

func (v *VM) globalAt(addr int32) (int32, error) {
	idx := addr - bytecode.GlobalBase
	if idx < 0 || int(idx) >= len(v.globals) {
		return 0, ErrOutOfBounds
	}
	return v.globals[idx], nil
}

func (v *VM) setGlobalAt(addr, val int32) error {
	idx := addr - bytecode.GlobalBase
	if idx < 0 || int(idx) >= len(v.globals) {
		return ErrOutOfBounds
	}
	v.globals[idx] = val
	return nil
}

// loadMem and storeMem implement LOADM/STOREM's dispatch: an address
// at or above GlobalBase denotes a globals-segment cell, otherwise a
// stack cell.
func (v *VM) loadMem(addr int32) (int32, error) {
	if addr >= bytecode.GlobalBase {
		return v.globalAt(addr)
	}
	return v.stackAt(addr)
}

func (v *VM) storeMem(addr, val int32) error {
	if addr >= bytecode.GlobalBase {
		return v.setGlobalAt(addr, val)
	}
	return v.setStackAt(addr, val)
}

// Run steps the VM to completion and returns the final exit value —
// the top of stack at halt — per spec.md §4.3's halt condition.
func (v *VM) Run() (int32, error) {
	for v.running {
		if err := v.Step(); err != nil {
			return 0, err
		}
	}
	if v.sp <= 0 {
		return 0, nil
	}
	return v.stack[v.sp-1], nil
}

// Running reports whether the VM has not yet halted. Exposed for
// cmd/vmtrace, which steps one instruction at a time between frames.
func (v *VM) Running() bool { return v.running }

// PC, SP, and FP expose the current register values for tracing UIs.
func (v *VM) PC() int32 { return v.pc }
func (v *VM) SP() int32 { return v.sp }
func (v *VM) FP() int32 { return v.fp }

// StackView returns the live portion of the stack, [0, sp), for
// read-only display; it aliases the VM's backing array.
func (v *VM) StackView() []int32 { return v.stack[:v.sp] }

// Globals returns the live globals segment for read-only display.
func (v *VM) Globals() []int32 { return v.globals }

// Program returns the bytecode program this VM is executing, for
// disassembly alongside a live trace.
func (v *VM) Program() *bytecode.Program { return v.prog }

// Step executes exactly one instruction.
func (v *VM) Step() error {
	if v.pc < 0 || int(v.pc) >= len(v.prog.Code) {
		return ErrPCOutOfRange
	}
	instr := v.prog.Code[v.pc]
	if v.Trace != nil {
		v.Trace(v.pc, instr, v.sp, v.fp)
	}
	v.pc++
	return v.exec(instr)
}

func (v *VM) exec(instr bytecode.Instruction) error {
	switch instr.Op {
	case bytecode.PUSH:
		return v.push(instr.Operand)

	case bytecode.POP:
		_, err := v.pop()
		return err

	case bytecode.LOAD:
		val, err := v.stackAt(v.fp + instr.Operand)
		if err != nil {
			return err
		}
		return v.push(val)

	case bytecode.STORE:
		val, err := v.pop()
		if err != nil {
			return err
		}
		return v.setStackAt(v.fp+instr.Operand, val)

	case bytecode.LOADM:
		addr, err := v.pop()
		if err != nil {
			return err
		}
		val, err := v.loadMem(addr)
		if err != nil {
			return err
		}
		return v.push(val)

	case bytecode.STOREM:
		addr, err := v.pop()
		if err != nil {
			return err
		}
		val, err := v.pop()
		if err != nil {
			return err
		}
		return v.storeMem(addr, val)

	case bytecode.LOADG:
		val, err := v.globalAt(bytecode.GlobalBase + instr.Operand)
		if err != nil {
			return err
		}
		return v.push(val)

	case bytecode.STOREG:
		val, err := v.pop()
		if err != nil {
			return err
		}
		return v.setGlobalAt(bytecode.GlobalBase+instr.Operand, val)

	case bytecode.LEA:
		return v.push(v.fp + instr.Operand)

	case bytecode.LEAG:
		return v.push(bytecode.GlobalBase + instr.Operand)

	case bytecode.ADDPTR:
		a, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(a + instr.Operand)

	case bytecode.ADDPTRD:
		base, err := v.pop()
		if err != nil {
			return err
		}
		idx, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(base + idx*instr.Operand)

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD:
		return v.execArith(instr.Op)

	case bytecode.NEG:
		a, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(-a)

	case bytecode.NOT:
		a, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(boolToInt(a == 0))

	case bytecode.EQ, bytecode.NE, bytecode.LT, bytecode.LE, bytecode.GT, bytecode.GE, bytecode.AND, bytecode.OR:
		return v.execCompare(instr.Op)

	case bytecode.JMP:
		v.pc = instr.Operand
		return nil

	case bytecode.JZ:
		a, err := v.pop()
		if err != nil {
			return err
		}
		if a == 0 {
			v.pc = instr.Operand
		}
		return nil

	case bytecode.JNZ:
		a, err := v.pop()
		if err != nil {
			return err
		}
		if a != 0 {
			v.pc = instr.Operand
		}
		return nil

	case bytecode.CALL:
		if err := v.push(v.pc); err != nil {
			return err
		}
		if err := v.push(v.fp); err != nil {
			return err
		}
		v.fp = v.sp
		v.pc = instr.Operand
		return nil

	case bytecode.RET:
		return v.execReturn(instr.Operand)

	case bytecode.ADJSP:
		v.sp -= instr.Operand
		if v.sp < 0 {
			return ErrStackUnderflow
		}
		return nil

	case bytecode.MEMCPY:
		return v.execMemcpy(instr.Operand)

	case bytecode.HALT:
		v.running = false
		return nil

	default:
		return fmt.Errorf("vm: unimplemented opcode %s", instr.Op)
	}
}

func (v *VM) execArith(op bytecode.Opcode) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.ADD:
		return v.push(a + b)
	case bytecode.SUB:
		return v.push(a - b)
	case bytecode.MUL:
		return v.push(a * b)
	case bytecode.DIV:
		if b == 0 {
			return ErrDivisionByZero
		}
		return v.push(a / b)
	case bytecode.MOD:
		if b == 0 {
			return ErrDivisionByZero
		}
		return v.push(a % b)
	default:
		return fmt.Errorf("vm: %s is not an arithmetic opcode", op)
	}
}

func (v *VM) execCompare(op bytecode.Opcode) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.EQ:
		return v.push(boolToInt(a == b))
	case bytecode.NE:
		return v.push(boolToInt(a != b))
	case bytecode.LT:
		return v.push(boolToInt(a < b))
	case bytecode.LE:
		return v.push(boolToInt(a <= b))
	case bytecode.GT:
		return v.push(boolToInt(a > b))
	case bytecode.GE:
		return v.push(boolToInt(a >= b))
	case bytecode.AND:
		return v.push(boolToInt(a != 0 && b != 0))
	case bytecode.OR:
		return v.push(boolToInt(a != 0 || b != 0))
	default:
		return fmt.Errorf("vm: %s is not a comparison opcode", op)
	}
}

// execReturn implements the RET opcode's combined value-copy and
// frame-teardown semantics.
func (v *VM) execReturn(retSlotOffset int32) error {
	var val int32
	if v.sp > v.fp {
		popped, err := v.pop()
		if err != nil {
			return err
		}
		val = popped
	}
	if err := v.setStackAt(v.fp+retSlotOffset, val); err != nil {
		return err
	}
	v.sp = v.fp
	savedFp, err := v.pop()
	if err != nil {
		return err
	}
	retAddr, err := v.pop()
	if err != nil {
		return err
	}
	v.fp = savedFp
	if retAddr == -1 {
		v.running = false
		return nil
	}
	v.pc = retAddr
	return nil
}

// execMemcpy handles all four stack/globals direction combinations,
// bounds-checking the source and destination of each slot as it is
// copied, per spec.md §4.3; slots copied before a failing one stay
// written.
func (v *VM) execMemcpy(k int32) error {
	dst, err := v.pop()
	if err != nil {
		return err
	}
	src, err := v.pop()
	if err != nil {
		return err
	}
	for i := int32(0); i < k; i++ {
		val, err := v.loadMem(src + i)
		if err != nil {
			return err
		}
		if err := v.storeMem(dst+i, val); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
