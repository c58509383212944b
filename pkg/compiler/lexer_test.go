package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "single number",
			input: "42",
			expected: []Token{
				{Type: NUMBER, Lexeme: "42", Pos: 0, Value: 42},
				{Type: EOF, Pos: 2},
			},
		},
		{
			name:  "all operators",
			input: "+-*/()",
			expected: []Token{
				{Type: OPERATOR, Lexeme: "+", Pos: 0},
				{Type: OPERATOR, Lexeme: "-", Pos: 1},
				{Type: OPERATOR, Lexeme: "*", Pos: 2},
				{Type: OPERATOR, Lexeme: "/", Pos: 3},
				{Type: OPERATOR, Lexeme: "(", Pos: 4},
				{Type: OPERATOR, Lexeme: ")", Pos: 5},
				{Type: EOF, Pos: 6},
			},
		},
		{
			name:  "whitespace is skipped",
			input: " 12 +\t3\n",
			expected: []Token{
				{Type: NUMBER, Lexeme: "12", Pos: 1, Value: 12},
				{Type: OPERATOR, Lexeme: "+", Pos: 4},
				{Type: NUMBER, Lexeme: "3", Pos: 6, Value: 3},
				{Type: EOF, Pos: 8},
			},
		},
		{
			name:  "leading zeros",
			input: "007",
			expected: []Token{
				{Type: NUMBER, Lexeme: "007", Pos: 0, Value: 7},
				{Type: EOF, Pos: 3},
			},
		},
		{
			name:  "largest literal",
			input: "9223372036854775807",
			expected: []Token{
				{Type: NUMBER, Lexeme: "9223372036854775807", Pos: 0, Value: 9223372036854775807},
				{Type: EOF, Pos: 19},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []Token{{Type: EOF, Pos: 0}},
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: []Token{{Type: EOF, Pos: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("Tokenize(%q)\n got: %v\nwant: %v", tt.input, tokens, tt.expected)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantPos int
		wantMsg string
	}{
		{"1+a", 2, "unexpected character 'a'"},
		{"x", 0, "unexpected character 'x'"},
		{"1 % 2", 2, "unexpected character '%'"},
		{"2 ^ 3", 2, "unexpected character '^'"},
		{"1+é", 2, "unexpected character 'é'"},
		{"1+\xff", 2, "invalid UTF-8 byte 0xff"},
		{"1 + 9223372036854775808", 4, "number out of range"},
	}

	for _, tt := range tests {
		tokens, err := Tokenize(tt.input)
		if err == nil {
			t.Errorf("Tokenize(%q): expected error, got %v", tt.input, tokens)
			continue
		}
		if tokens != nil {
			t.Errorf("Tokenize(%q): expected no partial tokens, got %v", tt.input, tokens)
		}
		var d *Diagnostic
		if !errors.As(err, &d) {
			t.Errorf("Tokenize(%q): expected *Diagnostic, got %T", tt.input, err)
			continue
		}
		if d.Kind != TokenizeError {
			t.Errorf("Tokenize(%q): kind = %s, want %s", tt.input, d.Kind, TokenizeError)
		}
		if d.Pos != tt.wantPos {
			t.Errorf("Tokenize(%q): pos = %d, want %d", tt.input, d.Pos, tt.wantPos)
		}
		if d.Msg != tt.wantMsg {
			t.Errorf("Tokenize(%q): msg = %q, want %q", tt.input, d.Msg, tt.wantMsg)
		}
	}
}

func TestTokenizeIsPure(t *testing.T) {
	input := "2*(3+4*(5-1)) - -7 / 2"
	first, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	second, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Tokenize is not deterministic:\n%v\n%v", first, second)
	}
	if last := first[len(first)-1]; last.Type != EOF {
		t.Errorf("last token = %s, want EOF", last.Type)
	}
	for _, tok := range first[:len(first)-1] {
		if tok.Type == EOF {
			t.Errorf("EOF before the end of the token slice")
		}
	}
}

func TestTokenIs(t *testing.T) {
	plus := Token{Type: OPERATOR, Lexeme: "+"}
	if !plus.Is('+') {
		t.Errorf("expected '+' token to match '+'")
	}
	if plus.Is('-') {
		t.Errorf("expected '+' token not to match '-'")
	}
	// A NUMBER whose text happens to be one character never matches.
	one := Token{Type: NUMBER, Lexeme: "1", Value: 1}
	if one.Is('1') {
		t.Errorf("NUMBER token matched as operator")
	}
	if (Token{Type: EOF}).Is('+') {
		t.Errorf("EOF matched as operator")
	}
}

func TestTokenTypeString(t *testing.T) {
	if OPERATOR.String() != "OPERATOR" || NUMBER.String() != "NUMBER" || EOF.String() != "EOF" {
		t.Errorf("unexpected token type names")
	}
	if got := TokenType(99).String(); got != "TokenType(99)" {
		t.Errorf("TokenType(99).String() = %q", got)
	}
}
