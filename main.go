//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"exprc/pkg/asm"
	"exprc/pkg/compiler"
	"exprc/pkg/utils"
)

const usage = "usage: exprc [-run] [-o FILE] [-annotate] EXPR"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole CLI; it returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("exprc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outPath := fs.String("o", "", "write the assembly to this file instead of stdout")
	runProgram := fs.Bool("run", false, "execute the program on the emulator and print its result")
	annotate := fs.Bool("annotate", false, "comment each operation with the subexpression it computes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fmt.Fprintln(stderr, "exprc: invalid number of arguments: want 1, got 0")
		fs.Usage()
		return 1
	}

	// EXPR is always the last argument so that "-5" is never taken for a flag.
	src := args[len(args)-1]
	if err := fs.Parse(args[:len(args)-1]); err != nil {
		return 1
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(stderr, "exprc: invalid number of arguments: want 1, got %d\n", fs.NArg()+1)
		fs.Usage()
		return 1
	}

	tree, err := compiler.ParseExpr(src)
	if err != nil {
		compiler.Report(stderr, err)
		return 1
	}

	var assembly string
	if *annotate {
		assembly, err = compiler.GenerateAnnotated(tree)
	} else {
		assembly, err = compiler.Generate(tree)
	}
	if err != nil {
		fmt.Fprintf(stderr, "codegen error: %v\n", err)
		return 1
	}

	if *outPath != "" {
		fullPath, err := writeAssembly(*outPath, assembly)
		if err != nil {
			fmt.Fprintf(stderr, "failed to write assembly file %q: %v\n", *outPath, err)
			return 1
		}
		fmt.Fprintf(stderr, "wrote %d bytes -> %s\n", len(assembly), fullPath)
	} else {
		fmt.Fprint(stdout, assembly)
	}

	if *runProgram {
		prog, err := asm.Assemble(assembly)
		if err != nil {
			fmt.Fprintf(stderr, "assembly error: %v\n", err)
			return 1
		}
		vm, err := compiler.Execute(prog)
		if err != nil {
			fmt.Fprintf(stderr, "runtime error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "result: %d\n", vm.Result())
	}

	return 0
}

func writeAssembly(path, assembly string) (string, error) {
	fullPath, parentDir, err := utils.GetPathInfo(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return "", err
	}
	return fullPath, os.WriteFile(fullPath, []byte(assembly), 0o644)
}
