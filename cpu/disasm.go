package cpu

import (
	"iter"
)

// Disassemble decodes a program image two bytes at a time, yielding each
// instruction with the address it would be loaded at. A trailing odd byte
// is decoded as the high byte of a word with a zero low byte.
func Disassemble(rom []byte) iter.Seq2[uint16, Instruction] {
	return func(yield func(addr uint16, ins Instruction) bool) {
		for n := 0; n < len(rom); n += 2 {
			word := uint16(rom[n]) << 8
			if n+1 < len(rom) {
				word |= uint16(rom[n+1])
			}
			if !yield(uint16(PROGRAM_START+n), Decode(Code(word))) {
				return
			}
		}
	}
}
