package vm

import (
	"testing"

	"minic/pkg/bytecode"
)

func runOnce(t *testing.T, prog *bytecode.Program) int32 {
	t.Helper()
	machine, err := New(prog)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	code, err := machine.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return code
}

// program builds a minimal single-function Program whose "main" body
// is exactly code, ended by the caller with a RET.
func program(code []bytecode.Instruction) *bytecode.Program {
	return &bytecode.Program{
		Code:      code,
		Functions: map[string]int32{"main": 0},
	}
}

func TestVMArithmetic(t *testing.T) {
	prog := program([]bytecode.Instruction{
		{Op: bytecode.PUSH, Operand: 3},
		{Op: bytecode.PUSH, Operand: 4},
		{Op: bytecode.ADD},
		{Op: bytecode.RET, Operand: -3},
	})
	if got := runOnce(t, prog); got != 7 {
		t.Errorf("3+4 = %d, want 7", got)
	}
}

func TestVMDivisionByZero(t *testing.T) {
	prog := program([]bytecode.Instruction{
		{Op: bytecode.PUSH, Operand: 1},
		{Op: bytecode.PUSH, Operand: 0},
		{Op: bytecode.DIV},
		{Op: bytecode.RET, Operand: -3},
	})
	machine, err := New(prog)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := machine.Run(); err != ErrDivisionByZero {
		t.Errorf("Run() error = %v, want %v", err, ErrDivisionByZero)
	}
}

func TestVMStackUnderflow(t *testing.T) {
	// The synthetic outer frame leaves three slots on the stack, so the
	// first two ADDs succeed and the third pops from an empty stack.
	prog := program([]bytecode.Instruction{
		{Op: bytecode.ADD},
		{Op: bytecode.ADD},
		{Op: bytecode.ADD},
	})
	machine, err := New(prog)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := machine.Run(); err != ErrStackUnderflow {
		t.Errorf("Run() error = %v, want %v", err, ErrStackUnderflow)
	}
}

func TestVMNoEntryPoint(t *testing.T) {
	prog := &bytecode.Program{Functions: map[string]int32{}}
	if _, err := New(prog); err != ErrNoEntryPoint {
		t.Errorf("New() error = %v, want %v", err, ErrNoEntryPoint)
	}
}

func TestVMGlobalsReadWrite(t *testing.T) {
	prog := &bytecode.Program{
		Code: []bytecode.Instruction{
			{Op: bytecode.PUSH, Operand: 42},
			{Op: bytecode.STOREG, Operand: 0},
			{Op: bytecode.LOADG, Operand: 0},
			{Op: bytecode.RET, Operand: -3},
		},
		Functions: map[string]int32{"main": 0},
		Globals:   []bytecode.GlobalVarInit{{Offset: 0, SlotCount: 1}},
	}
	if got := runOnce(t, prog); got != 42 {
		t.Errorf("global read-after-write = %d, want 42", got)
	}
}

func TestVMGlobalInitialValue(t *testing.T) {
	prog := &bytecode.Program{
		Code: []bytecode.Instruction{
			{Op: bytecode.LOADG, Operand: 0},
			{Op: bytecode.RET, Operand: -3},
		},
		Functions: map[string]int32{"main": 0},
		Globals:   []bytecode.GlobalVarInit{{Offset: 0, SlotCount: 1, InitData: []int32{99}}},
	}
	if got := runOnce(t, prog); got != 99 {
		t.Errorf("global initial value = %d, want 99", got)
	}
}

func TestVMMemcpyNonOverlapping(t *testing.T) {
	// Copy two stack-resident locals from one frame-relative run to
	// another: push the two source values, then the two destination
	// slots (main's locals sit at fp+0.. since main's own frame has no
	// parameters), then MEMCPY 2 from [fp+0,fp+1] to [fp+2,fp+3].
	prog := program([]bytecode.Instruction{
		{Op: bytecode.PUSH, Operand: 11}, // fp+0
		{Op: bytecode.PUSH, Operand: 22}, // fp+1
		{Op: bytecode.PUSH, Operand: 0},  // fp+2 (dest)
		{Op: bytecode.PUSH, Operand: 0},  // fp+3 (dest)
		{Op: bytecode.LEA, Operand: 0},
		{Op: bytecode.LEA, Operand: 2},
		{Op: bytecode.MEMCPY, Operand: 2},
		{Op: bytecode.LOAD, Operand: 2},
		{Op: bytecode.LOAD, Operand: 3},
		{Op: bytecode.ADD},
		{Op: bytecode.RET, Operand: -3},
	})
	if got := runOnce(t, prog); got != 33 {
		t.Errorf("memcpy'd sum = %d, want 33", got)
	}
}

func TestVMCallAndReturn(t *testing.T) {
	// main: CALL five; RET. five is kept simple: it takes no params,
	// just returns a constant, to exercise CALL/RET framing without
	// also depending on codegen's parameter layout.
	prog := &bytecode.Program{
		Code: []bytecode.Instruction{
			// main, addr 0
			{Op: bytecode.PUSH, Operand: 0}, // return slot
			{Op: bytecode.CALL, Operand: 3}, // call "five" at addr 3
			{Op: bytecode.RET, Operand: -3},
			// five, addr 3
			{Op: bytecode.PUSH, Operand: 5},
			{Op: bytecode.RET, Operand: -3},
		},
		Functions: map[string]int32{"main": 0, "five": 3},
	}
	if got := runOnce(t, prog); got != 5 {
		t.Errorf("call result = %d, want 5", got)
	}
}
