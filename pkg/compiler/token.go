package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF      TokenType = iota // sentinel: end of input
	OPERATOR                  // one of + - * / ( )
	NUMBER                    // decimal integer literal
)

var tokenNames = [...]string{
	EOF:      "EOF",
	OPERATOR: "OPERATOR",
	NUMBER:   "NUMBER",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// operators is the fixed set of one-character operator and grouping tokens.
const operators = "+-*/()"

// Token is a single lexical unit produced by Tokenize.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Pos    int    // byte offset of the first character in the source
	Value  int64  // parsed value, NUMBER only
}

// Is reports whether t is the operator token op.
func (t Token) Is(op byte) bool {
	return t.Type == OPERATOR && len(t.Lexeme) == 1 && t.Lexeme[0] == op
}

// describe names the token for diagnostics.
func (t Token) describe() string {
	if t.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", t.Lexeme)
}

func (t Token) String() string {
	return fmt.Sprintf("%-8s %-8q  pos %d", t.Type, t.Lexeme, t.Pos)
}
