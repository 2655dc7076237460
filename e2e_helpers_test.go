// Shared helper for the root-level end-to-end scenarios of spec.md
// §8, one file per scenario below, grounded on the teacher's own
// root-level e2e_lib_test.go and pkg/compiler's runCode helper.
package minic_test

import (
	"testing"

	"minic/pkg/codegen"
	"minic/pkg/lexer"
	"minic/pkg/parser"
	"minic/pkg/sema"
	"minic/pkg/vm"
)

// runCode wires the full lex/parse/analyze/generate/run pipeline and
// returns the VM's exit code, failing the test immediately at
// whichever stage errors.
func runCode(t *testing.T, src string) int32 {
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
		for _, d := range diags {
			t.Logf("diagnostic: %s", d.String())
		}
		t.Fatalf("Analyze failed with %d diagnostic(s)", len(diags))
	}
	bc, err := codegen.Generate(prog)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	machine, err := vm.New(bc)
	if err != nil {
		t.Fatalf("vm.New failed: %v", err)
	}
	exitCode, err := machine.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return exitCode
}
