package compiler

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer holds all mutable state for a single scanning pass over src.
// Positions are byte offsets so diagnostics can point back into the input.
type Lexer struct {
	src string
	pos int // offset of the next byte to consume
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// peek returns the rune at the current position and its width without
// advancing. It returns 0, 0 at end of input.
func (l *Lexer) peek() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		r, size := l.peek()
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanNumber collects a maximal run of decimal digits.
// The first digit must be at l.pos.
func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	lexeme := l.src[start:l.pos]

	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return Token{}, newDiagnostic(TokenizeError, l.src, start, "number out of range")
	}
	return Token{Type: NUMBER, Lexeme: lexeme, Pos: start, Value: val}, nil
}

// nextToken skips whitespace and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}, nil
	}

	c := l.src[l.pos]
	if isDigit(c) {
		return l.scanNumber()
	}

	if strings.IndexByte(operators, c) >= 0 {
		tok := Token{Type: OPERATOR, Lexeme: l.src[l.pos : l.pos+1], Pos: l.pos}
		l.pos++
		return tok, nil
	}

	r, _ := l.peek()
	if r == utf8.RuneError {
		return Token{}, newDiagnostic(TokenizeError, l.src, l.pos, "invalid UTF-8 byte 0x%02x", c)
	}
	return Token{}, newDiagnostic(TokenizeError, l.src, l.pos, "unexpected character %q", r)
}

// Tokenize scans src and returns all tokens including the final EOF token.
// It returns a *Diagnostic on the first character that starts no token;
// no partial token slice is returned in that case.
func Tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
