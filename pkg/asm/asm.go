// Package asm assembles the Intel-syntax x86-64 subset emitted by the
// expression compiler into bytecode for the emulator in package cpu.
package asm

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"exprc/pkg/cpu"
)

var zeroOperandOps = map[string]uint16{
	"HLT": cpu.OpHLT,
	"NOP": cpu.OpNOP,
	"RET": cpu.OpRET,
	"CQO": cpu.OpCQO,
}

var oneRegisterOps = map[string]uint16{
	"PUSH": cpu.OpPUSH,
	"POP":  cpu.OpPOP,
	"IDIV": cpu.OpIDIV,
}

var twoRegisterOps = map[string]uint16{
	"MOV":  cpu.OpMOV,
	"ADD":  cpu.OpADD,
	"SUB":  cpu.OpSUB,
	"IMUL": cpu.OpIMUL,
}

var regAndImmediateOps = map[string]uint16{
	"MOV": cpu.OpMOVI,
}

var immediateOnlyOps = map[string]uint16{
	"PUSH": cpu.OpPUSHI,
}

// ignoredDirectives are accepted for compatibility with the GNU assembler and
// have no effect on the emitted bytecode.
var ignoredDirectives = map[string]bool{
	".INTEL_SYNTAX": true,
	".TEXT":         true,
}

// Program is the output of a successful assembly.
type Program struct {
	Code []byte
	// SourceMap maps the address of each instruction to its 1-based line.
	SourceMap map[uint32]int
	Labels    map[string]uint32
	Globals   []string
	Entry     uint32
}

// LineAt returns the source line of the instruction at addr, or 0.
func (p *Program) LineAt(addr uint32) int {
	return p.SourceMap[addr]
}

// Addresses returns every instruction address in ascending order.
func (p *Program) Addresses() []uint32 {
	addrs := make([]uint32, 0, len(p.SourceMap))
	for a := range p.SourceMap {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Assembler holds the symbols collected while assembling one program.
type Assembler struct {
	labels  map[string]uint32
	globals []string
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

// NewAssembler returns an Assembler with an empty symbol table.
func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint32),
	}
}

// Assemble assembles code with a fresh Assembler.
func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

// Assemble runs both passes over code and returns the encoded program.
func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	var address uint32

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = address
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".GLOBL" || p.mnemonic == ".GLOBAL" {
			if len(p.operands) != 1 {
				return fmt.Errorf("%s expects exactly one symbol on line %d", strings.ToLower(p.mnemonic), lineNo)
			}
			a.globals = append(a.globals, p.operands[0])
			continue
		}

		if ignoredDirectives[p.mnemonic] {
			continue
		}

		length, ok := instructionLength(p.mnemonic, p.operands)
		if !ok {
			if knownMnemonic(p.mnemonic) {
				return fmt.Errorf("%s: wrong number of operands on line %d", strings.ToLower(p.mnemonic), lineNo)
			}
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, strings.ToLower(p.mnemonic))
		}

		if address+length > cpu.MemorySize/2 {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint32]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" || p.mnemonic == ".GLOBL" || p.mnemonic == ".GLOBAL" || ignoredDirectives[p.mnemonic] {
			continue
		}

		sourceMap[uint32(len(program))] = lineNo

		mnemonic := p.mnemonic
		ops := p.operands

		if opcode, ok := zeroOperandOps[mnemonic]; ok {
			if len(ops) != 0 {
				return nil, fmt.Errorf("%s expects 0 operands on line %d", strings.ToLower(mnemonic), lineNo)
			}
			program = appendInstr(program, cpu.EncodeInstruction(opcode, 0, 0))
			continue
		}

		switch len(ops) {
		case 1:
			if reg, err := parseRegister(ops[0], lineNo); err == nil {
				opcode, ok := oneRegisterOps[mnemonic]
				if !ok {
					return nil, fmt.Errorf("%s does not take a register operand on line %d", strings.ToLower(mnemonic), lineNo)
				}
				program = appendInstr(program, cpu.EncodeInstruction(opcode, reg, 0))
				continue
			} else if isRegisterName(ops[0]) {
				return nil, err
			}
			opcode, ok := immediateOnlyOps[mnemonic]
			if !ok {
				return nil, fmt.Errorf("%s expects a register operand on line %d", strings.ToLower(mnemonic), lineNo)
			}
			imm, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, err
			}
			program = appendInstr(program, cpu.EncodeInstruction(opcode, 0, 0))
			program = appendImm(program, imm)
			continue

		case 2:
			regA, err := parseRegister(ops[0], lineNo)
			if err != nil {
				return nil, err
			}
			if regB, err := parseRegister(ops[1], lineNo); err == nil {
				opcode, ok := twoRegisterOps[mnemonic]
				if !ok {
					return nil, fmt.Errorf("%s does not take two registers on line %d", strings.ToLower(mnemonic), lineNo)
				}
				program = appendInstr(program, cpu.EncodeInstruction(opcode, regA, regB))
				continue
			} else if isRegisterName(ops[1]) {
				return nil, err
			}
			opcode, ok := regAndImmediateOps[mnemonic]
			if !ok {
				return nil, fmt.Errorf("%s expects two registers on line %d", strings.ToLower(mnemonic), lineNo)
			}
			imm, err := a.parseImmediate(ops[1], lineNo)
			if err != nil {
				return nil, err
			}
			program = appendInstr(program, cpu.EncodeInstruction(opcode, regA, 0))
			program = appendImm(program, imm)
			continue
		}

		return nil, fmt.Errorf("%s: wrong number of operands on line %d", strings.ToLower(mnemonic), lineNo)
	}

	if len(a.globals) == 0 {
		return nil, fmt.Errorf("no entry point: missing .globl directive")
	}
	entry, ok := a.labels[a.globals[0]]
	if !ok {
		return nil, fmt.Errorf("entry point '%s' is not defined", a.globals[0])
	}

	return &Program{
		Code:      program,
		SourceMap: sourceMap,
		Labels:    a.labels,
		Globals:   a.globals,
		Entry:     entry,
	}, nil
}

func appendInstr(program []byte, instr uint16) []byte {
	return binary.LittleEndian.AppendUint16(program, instr)
}

func appendImm(program []byte, imm int64) []byte {
	return binary.LittleEndian.AppendUint64(program, uint64(imm))
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	if cut := strings.IndexAny(line, "#;"); cut >= 0 {
		return line[:cut]
	}
	return line
}

func isRegisterName(token string) bool {
	lower := strings.ToLower(token)
	for _, name := range cpu.RegNames {
		if lower == name {
			return true
		}
	}
	return false
}

func parseRegister(token string, lineNo int) (uint16, error) {
	lower := strings.ToLower(token)
	for i, name := range cpu.RegNames {
		if lower != name {
			continue
		}
		if uint16(i) == cpu.RSP {
			return 0, fmt.Errorf("rsp is reserved for the stack on line %d", lineNo)
		}
		return uint16(i), nil
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func (a *Assembler) parseImmediate(token string, lineNo int) (int64, error) {
	if value, err := strconv.ParseInt(token, 0, 64); err == nil {
		return value, nil
	}

	if addr, ok := a.labels[token]; ok {
		return int64(addr), nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

// instructionLength returns the byte length of an instruction.
// Register forms are 2 bytes; forms with an immediate are 10 bytes.
func instructionLength(mnemonic string, operands []string) (uint32, bool) {
	if _, ok := zeroOperandOps[mnemonic]; ok {
		return 2, true
	}

	last := ""
	if len(operands) > 0 {
		last = operands[len(operands)-1]
	}

	switch len(operands) {
	case 1:
		if _, ok := oneRegisterOps[mnemonic]; ok && isRegisterName(last) {
			return 2, true
		}
		if _, ok := immediateOnlyOps[mnemonic]; ok {
			return 10, true
		}
		if _, ok := oneRegisterOps[mnemonic]; ok {
			return 2, true
		}
	case 2:
		if _, ok := twoRegisterOps[mnemonic]; ok && isRegisterName(last) {
			return 2, true
		}
		if _, ok := regAndImmediateOps[mnemonic]; ok {
			return 10, true
		}
		if _, ok := twoRegisterOps[mnemonic]; ok {
			return 2, true
		}
	}
	return 0, false
}

func knownMnemonic(mnemonic string) bool {
	for _, table := range []map[string]uint16{zeroOperandOps, oneRegisterOps, twoRegisterOps, regAndImmediateOps, immediateOnlyOps} {
		if _, ok := table[mnemonic]; ok {
			return true
		}
	}
	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
