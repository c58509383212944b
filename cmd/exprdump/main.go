package main

import (
	"fmt"
	"io"
	"os"

	"exprc/pkg/asm"
	"exprc/pkg/compiler"
)

const testSource = "2*(3+4*(5-1))"

func main() {
	src := testSource
	if len(os.Args) > 1 {
		src = os.Args[1]
	}

	if err := dump(os.Stdout, src); err != nil {
		compiler.Report(os.Stderr, err)
		os.Exit(1)
	}
}

// dump prints every pipeline stage for src.
func dump(w io.Writer, src string) error {
	fmt.Fprintf(w, "Source:\n%s\n\n", src)

	// Tokenize
	tokens, err := compiler.Tokenize(src)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Fprintln(w, " ", tok)
	}
	fmt.Fprintln(w)

	// Parse
	tree, err := compiler.Parse(tokens, src)
	if err != nil {
		return err
	}

	depth, err := compiler.StackDepth(tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "AST")
	fmt.Fprintln(w, " ", tree)
	fmt.Fprintf(w, "  max stack depth: %d\n\n", depth)

	// Code generation
	assembly, err := compiler.GenerateAnnotated(tree)
	if err != nil {
		return fmt.Errorf("codegen error: %w", err)
	}

	fmt.Fprintln(w, "Generated Assembly")
	fmt.Fprint(w, assembly)
	fmt.Fprintln(w)

	prog, err := asm.Assemble(assembly)
	if err != nil {
		return fmt.Errorf("assembly error: %w", err)
	}

	fmt.Fprintf(w, "Source Map (%d bytes)\n", len(prog.Code))
	for _, addr := range prog.Addresses() {
		fmt.Fprintf(w, "  0x%04x  line %d\n", addr, prog.SourceMap[addr])
	}
	fmt.Fprintln(w)

	if value, err := compiler.Eval(tree); err != nil {
		fmt.Fprintf(w, "Value: %v\n", err)
	} else {
		fmt.Fprintf(w, "Value: %d\n", value)
	}
	return nil
}
