package parser

import (
	"strings"
	"testing"

	"minic/pkg/ast"
	"minic/pkg/lexer"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := Parse(toks, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return prog
}

func TestParseFunctionDecl(t *testing.T) {
	prog := mustParse(t, "int add(int a, int b) { return a + b; }")
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" || fn.ReturnTypeSpec != "int" {
		t.Errorf("got name=%q returnType=%q, want name=%q returnType=%q", fn.Name, fn.ReturnTypeSpec, "add", "int")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.Return", fn.Body.Stmts[0])
	}
	if _, ok := ret.Expr.(*ast.BinaryOp); !ok {
		t.Errorf("return expr is %T, want *ast.BinaryOp", ret.Expr)
	}
}

func TestParseStructDecl(t *testing.T) {
	prog := mustParse(t, "struct Point { int x; int y; };")
	if len(prog.Structs) != 1 {
		t.Fatalf("got %d structs, want 1", len(prog.Structs))
	}
	s := prog.Structs[0]
	if s.Name != "Point" || len(s.Members) != 2 {
		t.Fatalf("got name=%q, %d members, want Point, 2", s.Name, len(s.Members))
	}
}

func TestParseGlobalVarDeclWithInitializer(t *testing.T) {
	prog := mustParse(t, "int x = 5; int main() { return x; }")
	if len(prog.Globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(prog.Globals))
	}
	g := prog.Globals[0]
	if g.Name != "x" || g.Init == nil {
		t.Fatalf("got name=%q init=%v, want name=%q with a non-nil initializer", g.Name, g.Init, "x")
	}
}

func TestParseArrayDimsAndIndex(t *testing.T) {
	prog := mustParse(t, "int main() { int arr[3][4]; return arr[1][2]; }")
	decl, ok := prog.Functions[0].Body.Stmts[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("stmt[0] is %T, want *ast.VarDecl", prog.Functions[0].Body.Stmts[0])
	}
	if len(decl.ArrayDims) != 2 || decl.ArrayDims[0] != 3 || decl.ArrayDims[1] != 4 {
		t.Errorf("got dims %v, want [3 4]", decl.ArrayDims)
	}
	ret := prog.Functions[0].Body.Stmts[1].(*ast.Return)
	outer, ok := ret.Expr.(*ast.ArrayAccess)
	if !ok {
		t.Fatalf("return expr is %T, want *ast.ArrayAccess", ret.Expr)
	}
	if _, ok := outer.Array.(*ast.ArrayAccess); !ok {
		t.Errorf("outer array access's base is %T, want a nested *ast.ArrayAccess", outer.Array)
	}
}

func TestParseArrowDesugarsToDereferenceMember(t *testing.T) {
	prog := mustParse(t, "struct P { int x; };\nint main() { struct P *p; return p->x; }")
	ret := prog.Functions[0].Body.Stmts[1].(*ast.Return)
	member, ok := ret.Expr.(*ast.MemberAccess)
	if !ok {
		t.Fatalf("return expr is %T, want *ast.MemberAccess", ret.Expr)
	}
	if member.Member != "x" {
		t.Errorf("member name = %q, want %q", member.Member, "x")
	}
	deref, ok := member.Object.(*ast.UnaryOp)
	if !ok || deref.Op != "*" {
		t.Errorf("p->x's object is %#v, want a unary-* dereference", member.Object)
	}
}

func TestParseDoWhile(t *testing.T) {
	prog := mustParse(t, "int main() { int i; i = 0; do { i = i + 1; } while (i < 3); return i; }")
	if _, ok := prog.Functions[0].Body.Stmts[2].(*ast.DoWhile); !ok {
		t.Errorf("stmt[2] is %T, want *ast.DoWhile", prog.Functions[0].Body.Stmts[2])
	}
}

func TestParseElseIfChain(t *testing.T) {
	prog := mustParse(t, `int main() {
		int x;
		x = 2;
		if (x == 1) { return 1; }
		else if (x == 2) { return 2; }
		else { return 3; }
	}`)
	ifStmt, ok := prog.Functions[0].Body.Stmts[2].(*ast.If)
	if !ok {
		t.Fatalf("stmt[2] is %T, want *ast.If", prog.Functions[0].Body.Stmts[2])
	}
	if len(ifStmt.ElseIfs) != 1 || ifStmt.Else == nil {
		t.Errorf("got %d else-ifs and else=%v, want 1 else-if and a non-nil else", len(ifStmt.ElseIfs), ifStmt.Else)
	}
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	toks, err := lexer.Lex("int main() { return 0 }")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	_, err = Parse(toks, "int main() { return 0 }")
	if err == nil {
		t.Fatal("Parse succeeded on a missing semicolon, want an error")
	}
	if !strings.Contains(err.Error(), "line") {
		t.Errorf("error %q does not mention a line number", err.Error())
	}
}
