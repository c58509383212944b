package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// machineState is the JSON snapshot of the CPU control state.
type machineState struct {
	Regs     [16]int64 `json:"regs"`
	PC       uint32    `json:"pc"`
	SP       uint32    `json:"sp"`
	Z        bool      `json:"z"`
	N        bool      `json:"n"`
	Halted   bool      `json:"halted"`
	Steps    int       `json:"steps"`
	CodeEnd  uint32    `json:"code_end"`
	Fault    string    `json:"fault,omitempty"`
	FaultMsg string    `json:"fault_detail,omitempty"`
}

// faults lists the sentinels a snapshot can name.
var faults = []error{
	ErrDivideByZero,
	ErrDivideOverflow,
	ErrStackOverflow,
	ErrStackUnderflow,
	ErrBadOpcode,
	ErrPCOutOfRange,
	ErrStepLimit,
}

// restoredFault keeps the recorded message while still matching its sentinel
// under errors.Is.
type restoredFault struct {
	msg      string
	sentinel error
}

func (f *restoredFault) Error() string { return f.msg }
func (f *restoredFault) Unwrap() error { return f.sentinel }

// HibernateToBytes serialises the machine into an in-memory ZIP archive: the
// control state as JSON, the loaded program and the live part of the stack.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		Regs:    c.Regs,
		PC:      c.PC,
		SP:      c.SP,
		Z:       c.Z,
		N:       c.N,
		Halted:  c.Halted,
		Steps:   c.Steps,
		CodeEnd: c.codeEnd,
	}
	if c.Err != nil {
		state.FaultMsg = c.Err.Error()
		for _, f := range faults {
			if errors.Is(c.Err, f) {
				state.Fault = f.Error()
				break
			}
		}
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "code.bin", c.Memory[:c.codeEnd]); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "stack.bin", c.Memory[c.SP:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by HibernateToBytes.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}
	if state.CodeEnd > MemorySize/2 || state.SP > MemorySize || state.SP < state.CodeEnd {
		return fmt.Errorf("snapshot layout out of range: code end 0x%x, sp 0x%x", state.CodeEnd, state.SP)
	}

	code, err := readZipEntry(fileMap, "code.bin")
	if err != nil {
		return err
	}
	stack, err := readZipEntry(fileMap, "stack.bin")
	if err != nil {
		return err
	}
	if uint32(len(code)) != state.CodeEnd || uint32(len(stack)) != MemorySize-state.SP {
		return fmt.Errorf("snapshot memory does not match its layout")
	}

	c.Memory = [MemorySize]byte{}
	copy(c.Memory[:], code)
	copy(c.Memory[state.SP:], stack)

	c.Regs = state.Regs
	c.PC = state.PC
	c.SP = state.SP
	c.Z = state.Z
	c.N = state.N
	c.Halted = state.Halted
	c.Steps = state.Steps
	c.codeEnd = state.CodeEnd
	c.Err = nil
	if state.FaultMsg != "" {
		var sentinel error
		for _, f := range faults {
			if f.Error() == state.Fault {
				sentinel = f
				break
			}
		}
		c.Err = &restoredFault{msg: state.FaultMsg, sentinel: sentinel}
	}

	return nil
}

// HibernateToFile writes the hibernation archive to the given file path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from the given file path and
// restores the machine state.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
