// Package ast defines the syntax tree the parser builds and the
// semantic analyzer decorates in place: a tagged-variant (sum type)
// tree of expression and statement nodes, plus the top-level program
// shape spec.md §3 describes.
package ast

import (
	"fmt"
	"strings"

	"minic/pkg/types"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. Every
// implementation carries a mutable ResolvedType, empty until the
// analyzer fills it in, and a Line for diagnostics.
type Expr interface {
	exprNode()
	String() string
	ResolvedTypeOf() *types.Type
	SetResolvedType(*types.Type)
	LineOf() int
}

// ExprBase is embedded by every Expr implementation; it carries the
// mutable ResolvedType slot the analyzer fills in and the source Line
// used for diagnostics.
type ExprBase struct {
	ResolvedType *types.Type
	Line         int
}

// NewExprBase constructs the common embedded state for an expression
// node freshly produced by the parser.
func NewExprBase(line int) ExprBase { return ExprBase{Line: line} }

func (e *ExprBase) exprNode()                    {}
func (e *ExprBase) ResolvedTypeOf() *types.Type   { return e.ResolvedType }
func (e *ExprBase) SetResolvedType(t *types.Type) { e.ResolvedType = t }
func (e *ExprBase) LineOf() int                   { return e.Line }

// Number is a compile-time integer literal.
//
//	int x = 10;
//	         ^^  Number{Value: 10}
type Number struct {
	ExprBase
	Value int
}

func (n *Number) String() string { return fmt.Sprintf("%d", n.Value) }

// Variable is a read of a named variable.
//
//	return x;
//	       ^  Variable{Name: "x"}
type Variable struct {
	ExprBase
	Name string
}

func (v *Variable) String() string { return v.Name }

// BinaryOp represents Left Op Right for arithmetic, comparison,
// logical, and assignment operators alike ("=" included).
type BinaryOp struct {
	ExprBase
	Op    string
	Left  Expr
	Right Expr
}

func (b *BinaryOp) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// UnaryOp represents Op Operand, e.g. &x, *p, -x, !x.
type UnaryOp struct {
	ExprBase
	Op      string
	Operand Expr
}

func (u *UnaryOp) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }

// FunctionCall represents name(args).
type FunctionCall struct {
	ExprBase
	Name string
	Args []Expr
}

func (c *FunctionCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// ArrayAccess represents Array[Index].
type ArrayAccess struct {
	ExprBase
	Array Expr
	Index Expr
}

func (a *ArrayAccess) String() string { return fmt.Sprintf("%s[%s]", a.Array, a.Index) }

// MemberAccess represents Object.Member.
type MemberAccess struct {
	ExprBase
	Object Expr
	Member string
}

func (m *MemberAccess) String() string { return fmt.Sprintf("%s.%s", m.Object, m.Member) }

// InitializerList represents { e0, e1, ... }, first-class in
// declaration-initializer position only (spec.md §9).
type InitializerList struct {
	ExprBase
	Elements []Expr
}

func (l *InitializerList) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

//  Statement nodes

// Stmt is implemented by every node that does not itself produce a value.
type Stmt interface {
	stmtNode()
	String() string
	LineOf() int
}

type StmtBase struct {
	Line int
}

// NewStmtBase constructs the common embedded state for a statement
// node freshly produced by the parser.
func NewStmtBase(line int) StmtBase { return StmtBase{Line: line} }

func (s *StmtBase) stmtNode()   {}
func (s *StmtBase) LineOf() int { return s.Line }

// Compound represents { stmt; stmt; ... }, introducing a new lexical scope.
type Compound struct {
	StmtBase
	Stmts []Stmt
}

func (c *Compound) String() string { return fmt.Sprintf("Compound(len=%d)", len(c.Stmts)) }

// VarDecl represents a local or block-scoped declaration:
//
//	int x = 10;
//	int arr[3][4];
//	struct Point p = {1, 2};
type VarDecl struct {
	StmtBase
	Name         string
	TypeSpec     string // "int", "void", "struct Point", "int*", ...
	ArrayDims    []int  // in source order, e.g. [3, 4] for arr[3][4]
	Init         Expr   // nil if absent
	ResolvedType *types.Type
}

func (d *VarDecl) String() string {
	return fmt.Sprintf("VarDecl(%s %s, init=%v)", d.TypeSpec, d.Name, d.Init)
}

// Return represents return [expr];
type Return struct {
	StmtBase
	Expr Expr // nil for a bare "return;"
}

func (r *Return) String() string { return fmt.Sprintf("Return(%v)", r.Expr) }

// ElseIf is one "else if (cond) body" clause chained off an If.
type ElseIf struct {
	Condition Expr
	Body      Stmt
}

// If represents if (cond) then [else if...]* [else else]
type If struct {
	StmtBase
	Condition Expr
	Then      Stmt
	ElseIfs   []ElseIf
	Else      Stmt // nil if absent
}

func (i *If) String() string { return fmt.Sprintf("If(%s)", i.Condition) }

// While represents while (cond) body
type While struct {
	StmtBase
	Condition Expr
	Body      Stmt
}

func (w *While) String() string { return fmt.Sprintf("While(%s)", w.Condition) }

// For represents for ([init]; [cond]; [incr]) body
type For struct {
	StmtBase
	Init Stmt // nil if absent
	Cond Expr // nil if absent
	Incr Expr // nil if absent
	Body Stmt
}

func (f *For) String() string { return "For(...)" }

// DoWhile represents do body while (cond);
type DoWhile struct {
	StmtBase
	Body      Stmt
	Condition Expr
}

func (d *DoWhile) String() string { return fmt.Sprintf("DoWhile(%s)", d.Condition) }

// Break represents break;
type Break struct{ StmtBase }

func (b *Break) String() string { return "Break" }

// Continue represents continue;
type Continue struct{ StmtBase }

func (c *Continue) String() string { return "Continue" }

// Empty represents a bare ";"
type Empty struct{ StmtBase }

func (e *Empty) String() string { return "Empty" }

// ExprStmt represents an expression evaluated for its side effects.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

func (e *ExprStmt) String() string { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

//  Top-level declarations

// StructMember is one field declarator inside a StructDecl.
type StructMember struct {
	Name      string
	TypeSpec  string
	ArrayDims []int
}

// StructDecl represents struct Name { ... };
type StructDecl struct {
	Line    int
	Name    string
	Members []StructMember
}

// Param is one function-parameter declarator.
type Param struct {
	Name         string
	TypeSpec     string
	ArrayDims    []int
	ResolvedType *types.Type
}

// FunctionDecl represents ReturnType name(params) { body }
type FunctionDecl struct {
	Line               int
	Name               string
	ReturnTypeSpec     string
	Params             []Param
	Body               *Compound
	ResolvedReturnType *types.Type
}

// GlobalVarDecl has the same shape as VarDecl, declared at file scope.
type GlobalVarDecl struct {
	Line         int
	Name         string
	TypeSpec     string
	ArrayDims    []int
	Init         Expr
	ResolvedType *types.Type
}

// DeclKind tags one entry of a Program's DeclOrder stream.
type DeclKind int

const (
	DeclStruct DeclKind = iota
	DeclGlobal
	DeclFunction
)

// DeclRef indexes one top-level declaration by kind and position
// within its own list, preserving source order across all three lists.
type DeclRef struct {
	Kind  DeclKind
	Index int
}

// Program is the parser's complete output: three declaration lists
// plus the interleaved order they appeared in.
type Program struct {
	Structs   []*StructDecl
	Globals   []*GlobalVarDecl
	Functions []*FunctionDecl
	DeclOrder []DeclRef
}
