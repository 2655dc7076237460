// Command minic compiles and runs a single C-subset source file
// through the lex/parse/analyze/codegen/run pipeline of spec.md §6.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"minic/pkg/ast"
	"minic/pkg/bytecode"
	"minic/pkg/codegen"
	"minic/pkg/lexer"
	"minic/pkg/parser"
	"minic/pkg/sema"
	"minic/pkg/vm"
)

func main() {
	mode := flag.String("mode", "run", "lex, parse, semantics, codegen-print, run, or bench")
	debug := flag.Bool("debug", false, "trace every executed instruction to stderr")
	n := flag.Int("n", 1, "iteration count for -mode=bench")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: minic -mode=lex|parse|semantics|codegen-print|run|bench [-debug] [-n count] <source.c>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %q: %v\n", path, err)
		os.Exit(1)
	}

	if err := run(string(source), *mode, *debug, *n); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(source, mode string, debug bool, n int) error {
	switch mode {
	case "lex":
		return runLex(source)
	case "parse":
		return runParse(source)
	case "semantics":
		return runSemantics(source)
	case "codegen-print":
		return runCodegenPrint(source)
	case "run":
		code, err := runVM(source, debug)
		if err != nil {
			return err
		}
		os.Exit(int(code))
		return nil
	case "bench":
		return runBench(source, n, debug)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func runLex(source string) error {
	toks, err := lexer.Lex(source)
	if err != nil {
		return err
	}
	for _, t := range toks {
		fmt.Println(t)
	}
	return nil
}

func runParse(source string) error {
	toks, err := lexer.Lex(source)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(toks, source)
	if err != nil {
		return err
	}
	fmt.Printf("%d struct(s), %d global(s), %d function(s)\n",
		len(prog.Structs), len(prog.Globals), len(prog.Functions))
	return nil
}

func runSemantics(source string) error {
	prog, err := compileToAST(source)
	if err != nil {
		return err
	}
	ok, diags := sema.Analyze(prog)
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if !ok {
		return fmt.Errorf("semantic analysis failed with %d error(s)", len(diags))
	}
	fmt.Println("semantics OK")
	return nil
}

func runCodegenPrint(source string) error {
	bc, err := compileToBytecode(source)
	if err != nil {
		return err
	}
	fmt.Print(bc.Disassemble())
	return nil
}

func runVM(source string, debug bool) (int32, error) {
	bc, err := compileToBytecode(source)
	if err != nil {
		return 0, err
	}
	machine, err := vm.New(bc)
	if err != nil {
		return 0, err
	}
	if debug {
		machine.Trace = func(pc int32, instr bytecode.Instruction, sp, fp int32) {
			fmt.Fprintf(os.Stderr, "pc=%-5d sp=%-5d fp=%-5d %s %d\n", pc, sp, fp, instr.Op, instr.Operand)
		}
	}
	return machine.Run()
}

func runBench(source string, n int, debug bool) error {
	if n <= 0 {
		n = 1
	}

	lexStart := time.Now()
	toks, err := lexer.Lex(source)
	if err != nil {
		return err
	}
	lexElapsed := time.Since(lexStart)

	parseStart := time.Now()
	prog, err := parser.Parse(toks, source)
	if err != nil {
		return err
	}
	parseElapsed := time.Since(parseStart)

	semaStart := time.Now()
	ok, diags := sema.Analyze(prog)
	semaElapsed := time.Since(semaStart)
	if !ok {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return fmt.Errorf("semantic analysis failed with %d error(s)", len(diags))
	}

	codegenStart := time.Now()
	bc, err := codegen.Generate(prog)
	if err != nil {
		return err
	}
	codegenElapsed := time.Since(codegenStart)

	runStart := time.Now()
	var exitCode int32
	for i := 0; i < n; i++ {
		machine, err := vm.New(bc)
		if err != nil {
			return err
		}
		if debug {
			machine.Trace = func(pc int32, instr bytecode.Instruction, sp, fp int32) {
				fmt.Fprintf(os.Stderr, "pc=%-5d sp=%-5d fp=%-5d %s %d\n", pc, sp, fp, instr.Op, instr.Operand)
			}
		}
		exitCode, err = machine.Run()
		if err != nil {
			return err
		}
	}
	runElapsed := time.Since(runStart)

	fmt.Printf("lex:     %v\n", lexElapsed)
	fmt.Printf("parse:   %v\n", parseElapsed)
	fmt.Printf("sema:    %v\n", semaElapsed)
	fmt.Printf("codegen: %v\n", codegenElapsed)
	fmt.Printf("run x%d:  %v (%v/iter, exit=%d)\n", n, runElapsed, runElapsed/time.Duration(n), exitCode)
	return nil
}

//  Shared pipeline stages

func compileToAST(source string) (*ast.Program, error) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	return parser.Parse(toks, source)
}

func compileToBytecode(source string) (*bytecode.Program, error) {
	prog, err := compileToAST(source)
	if err != nil {
		return nil, err
	}
	ok, diags := sema.Analyze(prog)
	if !ok {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return nil, fmt.Errorf("semantic analysis failed with %d error(s)", len(diags))
	}
	return codegen.Generate(prog)
}
