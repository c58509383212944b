// Package compiler provides the lexer, parser and code generator that turn a
// single arithmetic expression into an x86-64 assembly program.
//
// Pipeline: expression → Tokenize → Parse → Generate → assembly text
//
// The generated program is a stack machine: every literal is pushed, every
// binary operation pops two operands and pushes its result, and main returns
// the one value left on the stack in rax.
package compiler
