package compiler

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDivideByZero   = errors.New("division by zero")
	ErrDivideOverflow = errors.New("division overflow")
)

// Eval computes e directly with the semantics of the generated code:
// two's complement wrap-around for + - * and truncating signed division.
func Eval(e Expr) (int64, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil

	case *BinaryExpr:
		left, err := Eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := Eval(n.Right)
		if err != nil {
			return 0, err
		}

		switch n.Op {
		case Add:
			return left + right, nil
		case Sub:
			return left - right, nil
		case Mul:
			return left * right, nil
		case Div:
			if right == 0 {
				return 0, fmt.Errorf("%s: %w", n, ErrDivideByZero)
			}
			if left == math.MinInt64 && right == -1 {
				return 0, fmt.Errorf("%s: %w", n, ErrDivideOverflow)
			}
			return left / right, nil
		}
		return 0, fmt.Errorf("unknown operator %s", n.Op)
	}

	return 0, fmt.Errorf("unsupported expression node %T", e)
}
