package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func lit(v int64) *Literal { return &Literal{Value: v} }

func bin(op Operator, l, r Expr) *BinaryExpr { return &BinaryExpr{Op: op, Left: l, Right: r} }

func neg(e Expr) *BinaryExpr { return bin(Sub, lit(0), e) }

// TestParse verifies that Parse produces the correct AST for valid inputs.
func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Expr
	}{
		{"Number", "42", lit(42)},
		{"Addition", "1+2", bin(Add, lit(1), lit(2))},
		{"Precedence", "1+2*3", bin(Add, lit(1), bin(Mul, lit(2), lit(3)))},
		{"Precedence on the left", "2*3+1", bin(Add, bin(Mul, lit(2), lit(3)), lit(1))},
		{"Parentheses", "(1+2)*3", bin(Mul, bin(Add, lit(1), lit(2)), lit(3))},
		{"Left associative subtraction", "10-2-3", bin(Sub, bin(Sub, lit(10), lit(2)), lit(3))},
		{"Left associative division", "100/10/5", bin(Div, bin(Div, lit(100), lit(10)), lit(5))},
		{"Mixed same level", "8/4*2", bin(Mul, bin(Div, lit(8), lit(4)), lit(2))},
		{"Unary minus", "-5", neg(lit(5))},
		{"Unary plus is dropped", "+5", lit(5)},
		{"Unary chain", "+-5", neg(lit(5))},
		{"Double minus", "--5", neg(neg(lit(5)))},
		{"Unary binds tighter than mul", "-2*3", bin(Mul, neg(lit(2)), lit(3))},
		{"Unary after binary", "2*-3", bin(Mul, lit(2), neg(lit(3)))},
		{"Unary on group", "-(1+2)", neg(bin(Add, lit(1), lit(2)))},
		{"Redundant parentheses", "((7))", lit(7)},
		{
			"Nested",
			"2*(3+4*(5-1))",
			bin(Mul, lit(2), bin(Add, lit(3), bin(Mul, lit(4), bin(Sub, lit(5), lit(1))))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpr(tt.input)
			if err != nil {
				t.Fatalf("ParseExpr(%q) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseExpr(%q)\n got: %s\nwant: %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantPos int
		wantMsg string
	}{
		{"(1+2", 4, "expected ')'"},
		{"((1)", 4, "expected ')'"},
		{"", 0, "expected a number"},
		{"1+", 2, "expected a number"},
		{"*3", 0, "expected a number"},
		{"1+*2", 2, "expected a number"},
		{"()", 1, "expected a number"},
		{"-", 1, "expected a number"},
		{"1+2)", 3, "unexpected ')'"},
		{"1 2", 2, "unexpected '2'"},
		{"(1)(2)", 3, "unexpected '('"},
	}

	for _, tt := range tests {
		_, err := ParseExpr(tt.input)
		if err == nil {
			t.Errorf("ParseExpr(%q): expected error", tt.input)
			continue
		}
		var d *Diagnostic
		if !errors.As(err, &d) {
			t.Errorf("ParseExpr(%q): expected *Diagnostic, got %T", tt.input, err)
			continue
		}
		if d.Kind != ParseError {
			t.Errorf("ParseExpr(%q): kind = %s, want %s", tt.input, d.Kind, ParseError)
		}
		if d.Pos != tt.wantPos || d.Msg != tt.wantMsg {
			t.Errorf("ParseExpr(%q) = %d %q, want %d %q", tt.input, d.Pos, d.Msg, tt.wantPos, tt.wantMsg)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	src := "1 - -2 * (3 + 4) / 5"
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	first, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	second, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parse is not idempotent:\n%s\n%s", first, second)
	}
	if first == second {
		t.Errorf("Parse returned a shared tree; each call must build its own")
	}
}

func TestParseWithoutEOF(t *testing.T) {
	// A token slice missing its sentinel still terminates cleanly.
	tokens := []Token{{Type: NUMBER, Lexeme: "3", Pos: 0, Value: 3}}
	got, err := Parse(tokens, "3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(got, lit(3)) {
		t.Errorf("Parse = %s, want 3", got)
	}
}

func TestExprString(t *testing.T) {
	e, err := ParseExpr("1+2*-3")
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if got, want := e.String(), "(1 + (2 * (0 - 3)))"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Operator(9).String(); got != "Operator(9)" {
		t.Errorf("Operator(9).String() = %q", got)
	}
}
