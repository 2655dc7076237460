// Command vmtrace is a live visual debugger for the stack machine:
// it compiles one source file, then steps the VM at a fixed rate,
// rendering the program counter, call frame, stack, and globals each
// frame. Grounded on the teacher's cmd/desktop Game loop, adapted from
// a CPU/peripheral front panel to this stack machine's registers.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"minic/pkg/bytecode"
	"minic/pkg/codegen"
	"minic/pkg/lexer"
	"minic/pkg/parser"
	"minic/pkg/sema"
	"minic/pkg/vm"
)

const (
	screenWidth  = 640
	screenHeight = 480
	stepsPerTick = 1
)

// Game holds one running VM and the most recently executed instruction,
// which vmtrace renders each frame.
type Game struct {
	machine  *vm.VM
	lastInst string
	finished bool
	fatal    error
	exitCode int32
	paused   bool
}

// Update steps the VM, honoring the same just-pressed key polling the
// teacher's cmd/desktop Game.Update uses for terminal input: space
// toggles pause, and while paused the right arrow single-steps one
// instruction at a time.
func (g *Game) Update() error {
	if g.finished {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
			g.step()
		}
		return nil
	}
	for i := 0; i < stepsPerTick; i++ {
		if !g.step() {
			return nil
		}
	}
	return nil
}

// step advances the VM by one instruction, recording the trace line
// for Draw. It returns false once the VM has halted or faulted.
func (g *Game) step() bool {
	if !g.machine.Running() {
		g.finished = true
		return false
	}
	pc := g.machine.PC()
	if int(pc) < len(g.machine.Program().Code) {
		instr := g.machine.Program().Code[pc]
		g.lastInst = fmt.Sprintf("%5d: %s %d", pc, instr.Op, instr.Operand)
	}
	if err := g.machine.Step(); err != nil {
		g.fatal = err
		g.finished = true
		return false
	}
	return true
}

func (g *Game) Draw(screen *ebiten.Image) {
	lines := []string{
		fmt.Sprintf("pc=%d sp=%d fp=%d", g.machine.PC(), g.machine.SP(), g.machine.FP()),
		"last: " + g.lastInst,
		"",
		"stack (top 16):",
		formatTail(g.machine.StackView(), 16),
		"",
		"globals (first 16):",
		formatHead(g.machine.Globals(), 16),
	}
	if g.paused {
		lines = append(lines, "", "paused (space: resume, -> : step)")
	}
	if g.finished {
		lines = append(lines, "", "halted")
	}
	if g.fatal != nil {
		lines = append(lines, "", "fatal: "+g.fatal.Error())
	}
	ebitenutil.DebugPrintAt(screen, strings.Join(lines, "\n"), 8, 8)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func formatTail(vals []int32, n int) string {
	start := 0
	if len(vals) > n {
		start = len(vals) - n
	}
	return formatSlice(vals[start:])
}

func formatHead(vals []int32, n int) string {
	if len(vals) > n {
		vals = vals[:n]
	}
	return formatSlice(vals)
}

func formatSlice(vals []int32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " ")
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vmtrace <source.c>")
		os.Exit(2)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read source file: %v", err)
	}

	bc, err := compile(string(source))
	if err != nil {
		log.Fatalf("compilation failed: %v", err)
	}

	machine, err := vm.New(bc)
	if err != nil {
		log.Fatalf("failed to start VM: %v", err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("minic vmtrace")

	if err := ebiten.RunGame(&Game{machine: machine}); err != nil {
		log.Fatal(err)
	}
}

func compile(source string) (*bytecode.Program, error) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(toks, source)
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
