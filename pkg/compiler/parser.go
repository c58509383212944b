package compiler

// Parser consumes the flat token slice produced by Tokenize and builds an AST.
//
// Grammar:
//
//	program = expr EOF
//	expr    = mul ("+" mul | "-" mul)*
//	mul     = unary ("*" unary | "/" unary)*
//	unary   = "+" unary | "-" unary | primary
//	primary = "(" expr ")" | NUMBER
//
// Precedence comes only from this layering. The parser never looks past the
// current token.
type Parser struct {
	tokens []Token
	pos    int
	src    string
}

// NewParser returns a Parser positioned at the first token.
func NewParser(tokens []Token, src string) *Parser {
	return &Parser{tokens: tokens, src: src}
}

// errorAt returns a parse Diagnostic pointing at tok.
func (p *Parser) errorAt(tok Token, format string, args ...any) error {
	return newDiagnostic(ParseError, p.src, tok.Pos, format, args...)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF, Pos: len(p.src)}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// consume advances past the current token if it is the operator op.
func (p *Parser) consume(op byte) bool {
	if !p.peek().Is(op) {
		return false
	}
	p.advance()
	return true
}

// expect consumes the operator op or fails at the current token.
func (p *Parser) expect(op byte) error {
	tok := p.peek()
	if !tok.Is(op) {
		return p.errorAt(tok, "expected '%c'", op)
	}
	p.advance()
	return nil
}

// expectNumber consumes a NUMBER token and returns its value.
func (p *Parser) expectNumber() (int64, error) {
	tok := p.peek()
	if tok.Type != NUMBER {
		return 0, p.errorAt(tok, "expected a number")
	}
	p.advance()
	return tok.Value, nil
}

// ParseProgram parses one whole expression and requires that every token up
// to EOF was consumed.
func (p *Parser) ParseProgram() (Expr, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.errorAt(tok, "unexpected %s", tok.describe())
	}
	return expr, nil
}

// parseExpr handles + and -
func (p *Parser) parseExpr() (Expr, error) {
	expr, err := p.parseMul()
	if err != nil {
		return nil, err
	}

	for {
		var op Operator
		switch {
		case p.consume('+'):
			op = Add
		case p.consume('-'):
			op = Sub
		default:
			return expr, nil
		}
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
}

// parseMul handles * and /
func (p *Parser) parseMul() (Expr, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op Operator
		switch {
		case p.consume('*'):
			op = Mul
		case p.consume('/'):
			op = Div
		default:
			return expr, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
}

// parseUnary handles prefix + and -. Unary minus is rewritten to 0 - x.
func (p *Parser) parseUnary() (Expr, error) {
	if p.consume('+') {
		return p.parseUnary()
	}
	if p.consume('-') {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: Sub, Left: &Literal{Value: 0}, Right: right}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles parenthesized expressions and number literals.
func (p *Parser) parsePrimary() (Expr, error) {
	if p.consume('(') {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return expr, nil
	}

	val, err := p.expectNumber()
	if err != nil {
		return nil, err
	}
	return &Literal{Value: val}, nil
}

// Parse builds the AST for tokens, which must end with EOF. src is the text
// the tokens came from and is only used for diagnostics.
func Parse(tokens []Token, src string) (Expr, error) {
	return NewParser(tokens, src).ParseProgram()
}

// ParseExpr tokenizes and parses src.
func ParseExpr(src string) (Expr, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, src)
}
