package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	OpHLT   uint16 = 0x00
	OpNOP   uint16 = 0x01
	OpMOVI  uint16 = 0x02 // mov reg, imm64
	OpMOV   uint16 = 0x03
	OpPUSHI uint16 = 0x04 // push imm64
	OpPUSH  uint16 = 0x05
	OpPOP   uint16 = 0x06
	OpADD   uint16 = 0x07
	OpSUB   uint16 = 0x08
	OpIMUL  uint16 = 0x09
	OpCQO   uint16 = 0x0A
	OpIDIV  uint16 = 0x0B
	OpRET   uint16 = 0x0C
)

// Register indices follow the x86-64 encoding order.
const (
	RAX uint16 = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// RegNames is indexed by register number.
var RegNames = [16]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

const (
	// MemorySize is the size of the flat address space shared by code and stack.
	MemorySize = 1 << 20

	// WordSize is the width of a stack slot.
	WordSize = 8

	// MaxSteps bounds Run so a malformed program cannot spin forever.
	MaxSteps = 1 << 24
)

var (
	ErrDivideByZero   = errors.New("divide by zero")
	ErrDivideOverflow = errors.New("quotient out of range")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrBadOpcode      = errors.New("illegal instruction")
	ErrPCOutOfRange   = errors.New("program counter out of range")
	ErrStepLimit      = errors.New("step limit exceeded")
)

type CPU struct {
	Regs [16]int64

	PC uint32
	SP uint32

	Z bool
	N bool

	Halted bool

	// Err holds the fault that halted the machine, if any.
	Err error

	// Steps counts executed instructions.
	Steps int

	// codeEnd is the first address past the loaded program; the stack may not
	// grow into it.
	codeEnd uint32

	Memory [MemorySize]byte
}

// NewCPU returns a machine with an empty stack and nothing loaded.
func NewCPU() *CPU {
	return &CPU{SP: MemorySize}
}

// Load copies code to address 0 and points PC at entry.
func (c *CPU) Load(code []byte, entry uint32) error {
	if len(code) > MemorySize/2 {
		return fmt.Errorf("program too large for memory: %d bytes > %d bytes", len(code), MemorySize/2)
	}
	if int(entry) >= len(code) && len(code) > 0 {
		return fmt.Errorf("entry point 0x%04x outside program", entry)
	}
	c.Reset()
	copy(c.Memory[:], code)
	c.codeEnd = uint32(len(code))
	c.PC = entry
	return nil
}

// Reset clears registers, flags and the stack but keeps memory contents.
func (c *CPU) Reset() {
	c.Regs = [16]int64{}
	c.PC = 0
	c.SP = MemorySize
	c.Z = false
	c.N = false
	c.Halted = false
	c.Err = nil
	c.Steps = 0
}

func (c *CPU) reg(idx uint16) *int64 {
	return &c.Regs[idx&0x0F]
}

func (c *CPU) updateFlags(result int64) {
	c.Z = result == 0
	c.N = result < 0
}

func (c *CPU) fault(err error, pc uint32) error {
	c.Halted = true
	c.Err = fmt.Errorf("pc 0x%04x: %w", pc, err)
	return c.Err
}

func (c *CPU) read16(addr uint32) uint16 {
	return binary.LittleEndian.Uint16(c.Memory[addr:])
}

func (c *CPU) read64(addr uint32) int64 {
	return int64(binary.LittleEndian.Uint64(c.Memory[addr:]))
}

func (c *CPU) push(val int64) error {
	if c.SP < c.codeEnd+WordSize {
		return ErrStackOverflow
	}
	c.SP -= WordSize
	binary.LittleEndian.PutUint64(c.Memory[c.SP:], uint64(val))
	return nil
}

func (c *CPU) pop() (int64, error) {
	if c.SP+WordSize > MemorySize {
		return 0, ErrStackUnderflow
	}
	val := c.read64(c.SP)
	c.SP += WordSize
	return val, nil
}

// StackDepth reports how many values are on the stack.
func (c *CPU) StackDepth() int {
	return int((MemorySize - c.SP) / WordSize)
}

// Code returns the loaded program. The slice aliases Memory.
func (c *CPU) Code() []byte {
	return c.Memory[:c.codeEnd]
}

// Stack returns the stack contents, top first.
func (c *CPU) Stack() []int64 {
	out := make([]int64, 0, c.StackDepth())
	for addr := c.SP; addr+WordSize <= MemorySize; addr += WordSize {
		out = append(out, c.read64(addr))
	}
	return out
}

// Step executes one instruction. It returns the fault, if any, which is also
// recorded in c.Err.
func (c *CPU) Step() error {
	if c.Halted {
		return c.Err
	}

	pc := c.PC
	if pc+2 > c.codeEnd {
		return c.fault(ErrPCOutOfRange, pc)
	}

	instr := c.read16(pc)
	c.PC += 2
	c.Steps++

	opcode := instr >> 8
	regA := (instr >> 4) & 0x0F
	regB := instr & 0x0F

	immediate := func() (int64, error) {
		if c.PC+8 > c.codeEnd {
			return 0, ErrPCOutOfRange
		}
		imm := c.read64(c.PC)
		c.PC += 8
		return imm, nil
	}

	switch opcode {
	case OpHLT:
		c.Halted = true

	case OpNOP:
		// No operation.

	case OpMOVI:
		imm, err := immediate()
		if err != nil {
			return c.fault(err, pc)
		}
		*c.reg(regA) = imm

	case OpMOV:
		*c.reg(regA) = *c.reg(regB)

	case OpPUSHI:
		imm, err := immediate()
		if err != nil {
			return c.fault(err, pc)
		}
		if err := c.push(imm); err != nil {
			return c.fault(err, pc)
		}

	case OpPUSH:
		if err := c.push(*c.reg(regA)); err != nil {
			return c.fault(err, pc)
		}

	case OpPOP:
		val, err := c.pop()
		if err != nil {
			return c.fault(err, pc)
		}
		*c.reg(regA) = val

	case OpADD:
		result := *c.reg(regA) + *c.reg(regB)
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpSUB:
		result := *c.reg(regA) - *c.reg(regB)
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpIMUL:
		result := *c.reg(regA) * *c.reg(regB)
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpCQO:
		if c.Regs[RAX] < 0 {
			c.Regs[RDX] = -1
		} else {
			c.Regs[RDX] = 0
		}

	case OpIDIV:
		divisor := *c.reg(regA)
		if divisor == 0 {
			return c.fault(ErrDivideByZero, pc)
		}
		// Only a sign-extended rdx:rax dividend fits in 64 bits; anything else
		// would need a 128-bit quotient.
		dividend := c.Regs[RAX]
		if c.Regs[RDX] != dividend>>63 {
			return c.fault(ErrDivideOverflow, pc)
		}
		if dividend == -1<<63 && divisor == -1 {
			return c.fault(ErrDivideOverflow, pc)
		}
		c.Regs[RAX] = dividend / divisor
		c.Regs[RDX] = dividend % divisor

	case OpRET:
		if c.StackDepth() == 0 {
			// Returning with nothing on the stack hands control back to the host.
			c.Halted = true
			return nil
		}
		target, err := c.pop()
		if err != nil {
			return c.fault(err, pc)
		}
		c.PC = uint32(target)

	default:
		return c.fault(ErrBadOpcode, pc)
	}

	return nil
}

// Run steps until the machine halts, faults or exceeds MaxSteps.
func (c *CPU) Run() error {
	for !c.Halted {
		if c.Steps >= MaxSteps {
			return c.fault(ErrStepLimit, c.PC)
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return c.Err
}

// Result is the value the program returned in rax.
func (c *CPU) Result() int64 {
	return c.Regs[RAX]
}

// ExitStatus is the status a POSIX shell would observe for a process whose
// main returned Result.
func (c *CPU) ExitStatus() int {
	return int(c.Regs[RAX] & 0xFF)
}

func EncodeInstruction(opcode, regA, regB uint16) uint16 {
	return (opcode << 8) | ((regA & 0x0F) << 4) | (regB & 0x0F)
}
