// Package cpu implements the interpreter and assembler for the CHIP-8 virtual machine.
//
// The machine consists of 4096 bytes of memory with the hexadecimal font at
// the bottom and programs loaded at 0x200, sixteen 8-bit registers (v0-vf,
// vf doubling as the carry/borrow/collision flag), a 16-bit address register
// (i), a 24-entry call stack, a 64x32 monochrome pixel grid, and delay and
// sound countdown timers.
//
// The interpreter never touches a screen, speaker or keyboard directly. It
// drives a Display, an Input and a Beeper supplied by the embedder, and it
// reports every fatal condition as an error from Tick rather than aborting.
//
// The assembler provides a small assembly language for the instruction set,
// supporting macros, labels, equates, data directives, and compile-time
// expression evaluation.
package cpu
