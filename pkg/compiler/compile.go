package compiler

import (
	"fmt"

	"exprc/pkg/asm"
	"exprc/pkg/cpu"
)

// Compile runs the whole front end on src and returns the assembly text.
// Tokenize and parse failures come back as *Diagnostic.
func Compile(src string) (string, error) {
	e, err := ParseExpr(src)
	if err != nil {
		return "", err
	}
	return Generate(e)
}

// Build compiles src and assembles the result for the emulator.
func Build(src string) (string, *asm.Program, error) {
	assembly, err := Compile(src)
	if err != nil {
		return "", nil, err
	}

	prog, err := asm.Assemble(assembly)
	if err != nil {
		return assembly, nil, fmt.Errorf("assembly error: %w", err)
	}

	return assembly, prog, nil
}

// Result describes one execution of a compiled expression.
type Result struct {
	Value    int64
	Assembly string
	Program  *asm.Program
	Steps    int
}

// Execute loads prog into a fresh CPU and runs it to completion.
func Execute(prog *asm.Program) (*cpu.CPU, error) {
	vm := cpu.NewCPU()
	if err := vm.Load(prog.Code, prog.Entry); err != nil {
		return nil, err
	}
	if err := vm.Run(); err != nil {
		return vm, err
	}
	return vm, nil
}

// Run compiles src, assembles it and executes it on the emulator. Faults
// such as cpu.ErrDivideByZero are returned wrapped; test them with errors.Is.
func Run(src string) (*Result, error) {
	assembly, prog, err := Build(src)
	if err != nil {
		return nil, err
	}

	res := &Result{Assembly: assembly, Program: prog}
	vm, err := Execute(prog)
	if vm != nil {
		res.Steps = vm.Steps
	}
	if err != nil {
		return res, fmt.Errorf("runtime error: %w", err)
	}

	res.Value = vm.Result()
	return res, nil
}
