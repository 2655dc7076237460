package codegen

import (
	"strings"
	"testing"

	"minic/pkg/bytecode"
	"minic/pkg/lexer"
	"minic/pkg/parser"
	"minic/pkg/sema"
)

func mustGenerate(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := parser.Parse(toks, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ok, diags := sema.Analyze(prog)
	if !ok {
		t.Fatalf("Analyze failed: %v", diags)
	}
	bc, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return bc
}

func TestGenerateBinaryExpr(t *testing.T) {
	bc := mustGenerate(t, "int main() { return 1 + 2; }")
	code := bc.Disassemble()
	if !strings.Contains(code, "ADD") {
		t.Errorf("disassembly does not contain ADD:\n%s", code)
	}
	if !strings.Contains(code, "main:") {
		t.Errorf("disassembly does not label main's entry:\n%s", code)
	}
}

func TestGenerateEntryPointIsMain(t *testing.T) {
	bc := mustGenerate(t, "int main() { return 0; }")
	if bc.EntryPoint != bc.Functions["main"] {
		t.Errorf("EntryPoint = %d, Functions[main] = %d, want equal", bc.EntryPoint, bc.Functions["main"])
	}
}

func TestGenerateForwardCallIsPatched(t *testing.T) {
	// helper is defined after main, so its CALL must be backpatched
	// once helper's entry address is known.
	bc := mustGenerate(t, "int main() { return helper(); } int helper() { return 5; }")
	callAddr := int32(-1)
	for _, instr := range bc.Code {
		if instr.Op == bytecode.CALL {
			callAddr = instr.Operand
		}
	}
	if callAddr != bc.Functions["helper"] {
		t.Errorf("CALL operand = %d, helper's entry = %d, want equal", callAddr, bc.Functions["helper"])
	}
}

func TestGenerateGlobalConstantFolding(t *testing.T) {
	bc := mustGenerate(t, "int a = 3 + 4 * 2; int main() { return a; }")
	if len(bc.Globals) != 1 {
		t.Fatalf("got %d global descriptors, want 1", len(bc.Globals))
	}
	g := bc.Globals[0]
	if len(g.InitData) != 1 || g.InitData[0] != 11 {
		t.Errorf("global init data = %v, want [11]", g.InitData)
	}
}

func TestGenerateGlobalAddressOfForwardReference(t *testing.T) {
	// &y must resolve even though y is declared after x in source.
	bc := mustGenerate(t, "int *x = &y; int y = 9; int main() { return *x; }")
	var xInit, yOffset int32 = -1, -1
	for _, g := range bc.Globals {
		if len(g.InitData) == 1 && g.InitData[0] >= bytecode.GlobalBase {
			xInit = g.InitData[0]
		}
		if len(g.InitData) == 1 && g.InitData[0] == 9 {
			yOffset = g.Offset
		}
	}
	if xInit != bytecode.GlobalBase+yOffset {
		t.Errorf("&y folded to %d, want GlobalBase+%d = %d", xInit, yOffset, bytecode.GlobalBase+yOffset)
	}
}

func TestGenerateRecordReturnStoresEverySlot(t *testing.T) {
	bc := mustGenerate(t, `
		struct Pair { int a; int b; };
		struct Pair make() {
			struct Pair p;
			p.a = 1;
			p.b = 2;
			return p;
		}
		int main() {
			struct Pair p;
			p = make();
			return p.a + p.b;
		}`)
	// make is generated first, so its code is [Functions["make"], Functions["main"]).
	storeCount := 0
	for _, instr := range bc.Code[bc.Functions["make"]:bc.Functions["main"]] {
		if instr.Op == bytecode.STORE {
			storeCount++
		}
	}
	if storeCount != 2 {
		t.Errorf("make's 2-slot struct return emitted %d STOREs, want 2", storeCount)
	}
}

func TestGenerateIfElseBranchesJoin(t *testing.T) {
	bc := mustGenerate(t, "int main() { int x; x = 1; if (x == 1) { return 1; } else { return 2; } }")
	hasJZ, hasJMP := false, false
	for _, instr := range bc.Code {
		if instr.Op == bytecode.JZ {
			hasJZ = true
		}
		if instr.Op == bytecode.JMP {
			hasJMP = true
		}
	}
	if !hasJZ || !hasJMP {
		t.Errorf("if/else lowering missing a JZ or JMP (JZ=%v JMP=%v)", hasJZ, hasJMP)
	}
}

func TestGenerateBreakOutsideLoopIsError(t *testing.T) {
	toks, err := lexer.Lex("int main() { break; return 0; }")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := parser.Parse(toks, "int main() { break; return 0; }")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ok, diags := sema.Analyze(prog); !ok {
		t.Fatalf("Analyze failed unexpectedly: %v", diags)
	}
	if _, err := Generate(prog); err == nil {
		t.Error("Generate accepted a break statement outside any loop")
	}
}
