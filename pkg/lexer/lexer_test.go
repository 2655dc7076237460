package lexer

import "testing"

func TestLexKeywordsAndPunctuation(t *testing.T) {
	toks, err := Lex("int x; if (x <= 3) { return -x; }")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}

	want := []TokenType{
		INT, IDENTIFIER, SEMICOLON,
		IF, LPAREN, IDENTIFIER, LE, NUMBER, RPAREN,
		LBRACE, RETURN, MINUS, IDENTIFIER, SEMICOLON, RBRACE,
		EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestLexTwoCharOperators(t *testing.T) {
	tests := []struct {
		src  string
		want TokenType
	}{
		{"->", ARROW},
		{"&&", AND_AND},
		{"||", OR_OR},
		{"==", EQ},
		{"!=", NEQ},
		{"<=", LE},
		{">=", GE},
		{"&", AMP},
		{"!", NOT},
	}
	for _, tt := range tests {
		toks, err := Lex(tt.src)
		if err != nil {
			t.Fatalf("Lex(%q) failed: %v", tt.src, err)
		}
		if len(toks) < 1 || toks[0].Type != tt.want {
			t.Errorf("Lex(%q) = %v, want first token %s", tt.src, toks, tt.want)
		}
	}
}

func TestLexLineCounting(t *testing.T) {
	toks, err := Lex("int a;\nint b;\n")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	var secondLine int
	for _, tok := range toks {
		if tok.Type == IDENTIFIER && tok.Lexeme == "b" {
			secondLine = tok.Line
		}
	}
	if secondLine != 2 {
		t.Errorf("identifier %q line = %d, want 2", "b", secondLine)
	}
}

func TestLexNumber(t *testing.T) {
	toks, err := Lex("12345")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if len(toks) < 1 || toks[0].Type != NUMBER || toks[0].Lexeme != "12345" {
		t.Errorf("got %v, want a single NUMBER token %q", toks, "12345")
	}
}

func TestLexUnknownCharacter(t *testing.T) {
	if _, err := Lex("int x = @;"); err == nil {
		t.Errorf("Lex accepted an unknown character without error")
	}
}
