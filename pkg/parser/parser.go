// Package parser is a hand-written recursive-descent parser turning a
// lexer.Token stream into a *ast.Program. Like pkg/lexer, it is the
// straightforward, peripheral front-end collaborator spec.md §1 treats
// as an external contract: its only job is to deliver the tree shape
// spec.md §6 describes.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"minic/pkg/ast"
	"minic/pkg/lexer"
)

// Parser holds all mutable state for a single parse over a token stream.
type Parser struct {
	toks        []lexer.Token
	pos         int
	sourceLines []string
}

// Parse tokenizes-free: it consumes an already-lexed token stream and
// builds the top-level Program, or returns the first syntax error.
func Parse(toks []lexer.Token, src string) (*ast.Program, error) {
	p := &Parser{toks: toks, sourceLines: strings.Split(src, "\n")}
	prog := &ast.Program{}
	for p.peek().Type != lexer.EOF {
		if err := p.parseTopLevel(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Parser) peek() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

// fmtError wraps an error message with the source line where tok appears.
func (p *Parser) fmtError(tok lexer.Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.advance(), nil
}

//  Top level

func (p *Parser) parseTopLevel(prog *ast.Program) error {
	if p.peek().Type == lexer.STRUCT && p.peekAt(2).Type == lexer.LBRACE {
		decl, err := p.parseStructDecl()
		if err != nil {
			return err
		}
		prog.Structs = append(prog.Structs, decl)
		prog.DeclOrder = append(prog.DeclOrder, ast.DeclRef{Kind: ast.DeclStruct, Index: len(prog.Structs) - 1})
		return nil
	}

	startTok := p.peek()
	typeSpec, err := p.parseTypeSpec()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.IDENTIFIER)
	if err != nil {
		return err
	}

	if p.peek().Type == lexer.LPAREN {
		fn, err := p.parseFunctionDecl(startTok.Line, typeSpec, nameTok.Lexeme)
		if err != nil {
			return err
		}
		prog.Functions = append(prog.Functions, fn)
		prog.DeclOrder = append(prog.DeclOrder, ast.DeclRef{Kind: ast.DeclFunction, Index: len(prog.Functions) - 1})
		return nil
	}

	dims, err := p.parseArrayDims()
	if err != nil {
		return err
	}
	var init ast.Expr
	if p.peek().Type == lexer.ASSIGN {
		p.advance()
		init, err = p.parseInitializer()
		if err != nil {
			return err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return err
	}
	g := &ast.GlobalVarDecl{Line: startTok.Line, Name: nameTok.Lexeme, TypeSpec: typeSpec, ArrayDims: dims, Init: init}
	prog.Globals = append(prog.Globals, g)
	prog.DeclOrder = append(prog.DeclOrder, ast.DeclRef{Kind: ast.DeclGlobal, Index: len(prog.Globals) - 1})
	return nil
}

// parseTypeSpec parses a base type keyword (and, for struct, its name)
// followed by zero or more '*' pointer markers, producing the lexical
// forms named in spec.md §6: "int", "void", "T*" (any levels), and
// "struct NAME" optionally followed by '*'.
func (p *Parser) parseTypeSpec() (string, error) {
	tok := p.peek()
	var base string
	switch tok.Type {
	case lexer.INT:
		p.advance()
		base = "int"
	case lexer.VOID:
		p.advance()
		base = "void"
	case lexer.STRUCT:
		p.advance()
		nameTok, err := p.expect(lexer.IDENTIFIER)
		if err != nil {
			return "", err
		}
		base = "struct " + nameTok.Lexeme
	default:
		return "", p.fmtError(tok, "expected a type, got %s (%q)", tok.Type, tok.Lexeme)
	}
	for p.peek().Type == lexer.STAR {
		p.advance()
		base += "*"
	}
	return base, nil
}

func (p *Parser) parseArrayDims() ([]int, error) {
	var dims []int
	for p.peek().Type == lexer.LBRACKET {
		p.advance()
		numTok, err := p.expect(lexer.NUMBER)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(numTok.Lexeme)
		if err != nil {
			return nil, p.fmtError(numTok, "invalid array dimension %q", numTok.Lexeme)
		}
		dims = append(dims, n)
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
	}
	return dims, nil
}

func (p *Parser) parseInitializer() (ast.Expr, error) {
	if p.peek().Type == lexer.LBRACE {
		return p.parseInitializerList()
	}
	return p.parseExpression()
}

func (p *Parser) parseInitializerList() (ast.Expr, error) {
	brace, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	list := &ast.InitializerList{}
	list.Line = brace.Line
	if p.peek().Type != lexer.RBRACE {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, e)
			if p.peek().Type != lexer.COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseStructDecl() (*ast.StructDecl, error) {
	structTok, err := p.expect(lexer.STRUCT)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	decl := &ast.StructDecl{Line: structTok.Line, Name: nameTok.Lexeme}
	for p.peek().Type != lexer.RBRACE {
		typeSpec, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		fieldTok, err := p.expect(lexer.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		dims, err := p.parseArrayDims()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		decl.Members = append(decl.Members, ast.StructMember{Name: fieldTok.Lexeme, TypeSpec: typeSpec, ArrayDims: dims})
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseFunctionDecl(line int, returnType, name string) (*ast.FunctionDecl, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	if p.peek().Type != lexer.RPAREN {
		for {
			typeSpec, err := p.parseTypeSpec()
			if err != nil {
				return nil, err
			}
			nameTok, err := p.expect(lexer.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			dims, err := p.parseArrayDims()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: nameTok.Lexeme, TypeSpec: typeSpec, ArrayDims: dims})
			if p.peek().Type != lexer.COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{Line: line, Name: name, ReturnTypeSpec: returnType, Params: params, Body: body}, nil
}

//  Statements

func (p *Parser) parseCompound() (*ast.Compound, error) {
	brace, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	c := &ast.Compound{}
	c.Line = brace.Line
	for p.peek().Type != lexer.RBRACE {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		c.Stmts = append(c.Stmts, s)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) startsTypeSpec() bool {
	switch p.peek().Type {
	case lexer.INT, lexer.VOID:
		return true
	case lexer.STRUCT:
		// "struct Name x;" is a decl; "struct Name {" at statement
		// position never occurs in this grammar (structs are
		// top-level only), so any struct keyword here starts a decl.
		return true
	default:
		return false
	}
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.LBRACE:
		return p.parseCompound()
	case lexer.SEMICOLON:
		p.advance()
		return &ast.Empty{StmtBase: ast.NewStmtBase(tok.Line)}, nil
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.DO:
		return p.parseDoWhile()
	case lexer.BREAK:
		p.advance()
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Break{StmtBase: ast.NewStmtBase(tok.Line)}, nil
	case lexer.CONTINUE:
		p.advance()
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Continue{StmtBase: ast.NewStmtBase(tok.Line)}, nil
	default:
		if p.startsTypeSpec() {
			return p.parseVarDecl()
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{StmtBase: ast.NewStmtBase(tok.Line), Expr: e}, nil
	}
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	startTok := p.peek()
	typeSpec, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	dims, err := p.parseArrayDims()
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.peek().Type == lexer.ASSIGN {
		p.advance()
		init, err = p.parseInitializer()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.VarDecl{
		StmtBase:  ast.NewStmtBase(startTok.Line),
		Name:      nameTok.Lexeme,
		TypeSpec:  typeSpec,
		ArrayDims: dims,
		Init:      init,
	}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	tok, err := p.expect(lexer.RETURN)
	if err != nil {
		return nil, err
	}
	r := &ast.Return{StmtBase: ast.NewStmtBase(tok.Line)}
	if p.peek().Type != lexer.SEMICOLON {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		r.Expr = e
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	tok, err := p.expect(lexer.IF)
	if err != nil {
		return nil, err
	}
	cond, then, err := p.parseCondAndBody()
	if err != nil {
		return nil, err
	}
	ifStmt := &ast.If{StmtBase: ast.NewStmtBase(tok.Line), Condition: cond, Then: then}
	for p.peek().Type == lexer.ELSE && p.peekAt(1).Type == lexer.IF {
		p.advance() // else
		p.advance() // if
		c, b, err := p.parseCondAndBody()
		if err != nil {
			return nil, err
		}
		ifStmt.ElseIfs = append(ifStmt.ElseIfs, ast.ElseIf{Condition: c, Body: b})
	}
	if p.peek().Type == lexer.ELSE {
		p.advance()
		elseBody, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ifStmt.Else = elseBody
	}
	return ifStmt, nil
}

func (p *Parser) parseCondAndBody() (ast.Expr, ast.Stmt, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	tok, err := p.expect(lexer.WHILE)
	if err != nil {
		return nil, err
	}
	cond, body, err := p.parseCondAndBody()
	if err != nil {
		return nil, err
	}
	return &ast.While{StmtBase: ast.NewStmtBase(tok.Line), Condition: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	tok, err := p.expect(lexer.DO)
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.DoWhile{StmtBase: ast.NewStmtBase(tok.Line), Body: body, Condition: cond}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	tok, err := p.expect(lexer.FOR)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	var init ast.Stmt
	if p.peek().Type != lexer.SEMICOLON {
		if p.startsTypeSpec() {
			init, err = p.parseVarDecl()
			if err != nil {
				return nil, err
			}
		} else {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.SEMICOLON); err != nil {
				return nil, err
			}
			init = &ast.ExprStmt{StmtBase: ast.NewStmtBase(tok.Line), Expr: e}
		}
	} else {
		p.advance() // consume ';'
	}

	var cond ast.Expr
	if p.peek().Type != lexer.SEMICOLON {
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	var incr ast.Expr
	if p.peek().Type != lexer.RPAREN {
		incr, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.For{StmtBase: ast.NewStmtBase(tok.Line), Init: init, Cond: cond, Incr: incr, Body: body}, nil
}

//  Expressions — precedence-climbing ladder, lowest to highest.

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == lexer.ASSIGN {
		tok := p.advance()
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: "=", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.OR_OR {
		tok := p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.AND_AND {
		tok := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.EQ || p.peek().Type == lexer.NEQ {
		tok := p.advance()
		op := "=="
		if tok.Type == lexer.NEQ {
			op = "!="
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		var op string
		switch tt {
		case lexer.LT:
			op = "<"
		case lexer.LE:
			op = "<="
		case lexer.GT:
			op = ">"
		case lexer.GE:
			op = ">="
		default:
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.PLUS || p.peek().Type == lexer.MINUS {
		tok := p.advance()
		op := "+"
		if tok.Type == lexer.MINUS {
			op = "-"
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		var op string
		switch tt {
		case lexer.STAR:
			op = "*"
		case lexer.SLASH:
			op = "/"
		case lexer.PERCENT:
			op = "%"
		default:
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek()
	var op string
	switch tok.Type {
	case lexer.AMP:
		op = "&"
	case lexer.STAR:
		op = "*"
	case lexer.MINUS:
		op = "-"
	case lexer.PLUS:
		op = "+"
	case lexer.NOT:
		op = "!"
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: op, Operand: operand}, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case lexer.LBRACKET:
			tok := p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			e = &ast.ArrayAccess{ExprBase: ast.NewExprBase(tok.Line), Array: e, Index: idx}
		case lexer.DOT:
			tok := p.advance()
			memberTok, err := p.expect(lexer.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			e = &ast.MemberAccess{ExprBase: ast.NewExprBase(tok.Line), Object: e, Member: memberTok.Lexeme}
		case lexer.ARROW:
			// Desugar p->m into (*p).m per spec.md §6.
			tok := p.advance()
			memberTok, err := p.expect(lexer.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			deref := &ast.UnaryOp{ExprBase: ast.NewExprBase(tok.Line), Op: "*", Operand: e}
			e = &ast.MemberAccess{ExprBase: ast.NewExprBase(tok.Line), Object: deref, Member: memberTok.Lexeme}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		n, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, p.fmtError(tok, "invalid integer literal %q", tok.Lexeme)
		}
		return &ast.Number{ExprBase: ast.NewExprBase(tok.Line), Value: n}, nil
	case lexer.IDENTIFIER:
		p.advance()
		if p.peek().Type == lexer.LPAREN {
			return p.parseCallArgs(tok)
		}
		return &ast.Variable{ExprBase: ast.NewExprBase(tok.Line), Name: tok.Lexeme}, nil
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, p.fmtError(tok, "expected expression, got %s (%q)", tok.Type, tok.Lexeme)
	}
}

func (p *Parser) parseCallArgs(nameTok lexer.Token) (ast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	call := &ast.FunctionCall{ExprBase: ast.NewExprBase(nameTok.Line), Name: nameTok.Lexeme}
	if p.peek().Type != lexer.RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peek().Type != lexer.COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}
