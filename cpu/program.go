package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int
	Addr      int
	Words     []string
	Data      []byte
	LinkLabel string
}

// Program is the output of the assembler.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the opcode.
}

// Debug finds the source line that generated the byte at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// Binary returns the program image, to be loaded at PROGRAM_START.
func (prog *Program) Binary() (bins []byte) {
	for _, op := range prog.Opcodes {
		offset := op.Addr - PROGRAM_START
		if gap := offset - len(bins); gap > 0 {
			bins = append(bins, make([]byte, gap)...)
		}
		bins = append(bins[:offset], op.Data...)
	}

	return
}

// Codes iterates over the instruction words of the program, by address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n := 0; n+1 < len(op.Data); n += 2 {
				code := Code(uint16(op.Data[n])<<8 | uint16(op.Data[n+1]))
				if !yield(uint16(op.Addr+n), code) {
					return
				}
			}
		}
	}
}
