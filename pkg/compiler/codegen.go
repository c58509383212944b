package compiler

import (
	"fmt"
	"math"
	"strings"
)

// CodeGen walks an AST and emits x86-64 assembly (GNU as, Intel syntax).
//
// Every node is compiled as a stack machine: literals are pushed, binary
// operations pop their right operand into rdi and their left operand into
// rax, combine them in rax and push the result.
type CodeGen struct {
	out      strings.Builder
	annotate bool
	depth    int // values currently on the stack
	maxDepth int
}

func newCodeGen(annotate bool) *CodeGen {
	return &CodeGen{annotate: annotate}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	if cg.annotate {
		cg.line("    # "+format, args...)
	}
}

func (cg *CodeGen) push(format string, args ...any) {
	cg.line("    push "+format, args...)
	cg.depth++
	if cg.depth > cg.maxDepth {
		cg.maxDepth = cg.depth
	}
}

func (cg *CodeGen) pop(reg string) {
	cg.line("    pop %s", reg)
	cg.depth--
}

// genExpr emits code that leaves the value of e on top of the stack.
// The left operand is always generated before the right one.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		if n.Value >= math.MinInt32 && n.Value <= math.MaxInt32 {
			cg.push("%d", n.Value)
			return nil
		}
		// push only takes a sign-extended 32-bit immediate.
		cg.line("    mov rax, %d", n.Value)
		cg.push("rax")
		return nil

	case *BinaryExpr:
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("binary %s is missing an operand", n.Op)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}

		cg.comment("%s", n)
		cg.pop("rdi")
		cg.pop("rax")

		switch n.Op {
		case Add:
			cg.line("    add rax, rdi")
		case Sub:
			cg.line("    sub rax, rdi")
		case Mul:
			cg.line("    imul rax, rdi")
		case Div:
			cg.line("    cqo")
			cg.line("    idiv rdi")
		default:
			return fmt.Errorf("unknown operator %s", n.Op)
		}

		cg.push("rax")
		return nil

	case nil:
		return fmt.Errorf("missing expression")
	}

	return fmt.Errorf("unsupported expression node %T", e)
}

func (cg *CodeGen) generate(e Expr) (string, error) {
	cg.line(".intel_syntax noprefix")
	cg.line(".globl main")
	cg.line("main:")

	if err := cg.genExpr(e); err != nil {
		return "", err
	}
	if cg.depth != 1 {
		return "", fmt.Errorf("internal error: %d values left on the stack, want 1", cg.depth)
	}

	cg.comment("return %s", e)
	cg.pop("rax")
	cg.line("    ret")
	return cg.out.String(), nil
}

// Generate returns the assembly program that computes e and returns it from
// main.
func Generate(e Expr) (string, error) {
	return newCodeGen(false).generate(e)
}

// GenerateAnnotated is Generate with a comment naming the subexpression
// before each operation.
func GenerateAnnotated(e Expr) (string, error) {
	return newCodeGen(true).generate(e)
}

// StackDepth returns the largest number of values the program for e keeps
// on the stack at once.
func StackDepth(e Expr) (int, error) {
	cg := newCodeGen(false)
	if err := cg.genExpr(e); err != nil {
		return 0, err
	}
	return cg.maxDepth, nil
}
