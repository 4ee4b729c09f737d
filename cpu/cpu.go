// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
	"time"
)

// Machine geometry.
const (
	MEMORY_SIZE    = 4096                        // Bytes of addressable memory.
	PROGRAM_START  = 0x200                       // Load address and initial pc.
	PROGRAM_LIMIT  = MEMORY_SIZE - PROGRAM_START // Largest loadable program.
	REGISTER_COUNT = 16                          // v0 - vf
	REG_VF         = 0xf                         // Carry, borrow and collision flag.
	SCREEN_WIDTH   = 64                          // Pixel grid columns.
	SCREEN_HEIGHT  = 32                          // Pixel grid rows.
	GRID_SIZE      = SCREEN_WIDTH * SCREEN_HEIGHT
	KEY_COUNT      = 16 // Keys on the hexadecimal pad.
)

var _cpu_defines = map[string]string{
	"PROGRAM_START":   fmt.Sprintf("0x%x", PROGRAM_START),
	"FONT_BASE":       fmt.Sprintf("0x%x", FONT_BASE),
	"FONT_GLYPH_SIZE": fmt.Sprintf("%d", FONT_GLYPH_SIZE),
	"SCREEN_WIDTH":    fmt.Sprintf("%d", SCREEN_WIDTH),
	"SCREEN_HEIGHT":   fmt.Sprintf("%d", SCREEN_HEIGHT),
}

// Grid is the pixel grid, row-major, SCREEN_WIDTH pixels per row.
type Grid [GRID_SIZE]bool

// Display renders the pixel grid.
type Display interface {
	// Clear resets the visible surface.
	Clear()
	// Draw renders the full frame. An error is fatal to the run.
	Draw(grid *Grid) error
}

// Input is the hexadecimal keypad.
type Input interface {
	// BlockForKey waits for the next key press. ok is false when the
	// environment is shutting down.
	BlockForKey() (key uint8, ok bool)
	// IsKeyDown reports whether key 0x0-0xF is currently held.
	IsKeyDown(key uint8) bool
}

// Beeper is the tone generator.
type Beeper interface {
	StartTone()
	StopTone()
}

// Cpu is the simulation context for the interpreter.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [REGISTER_COUNT]uint8 // v0 - vf
	Pc       uint16                // Program counter.
	I        uint16                // Address register, not masked to 12 bits.
	Delay    uint8                 // Delay timer.
	Sound    uint8                 // Sound timer.
	Stack    Stack                 // Return addresses.
	Memory   [MEMORY_SIZE]byte     // Font, program and scratch data.
	Grid     Grid                  // Pixel grid.
	Halt     bool                  // Set when a key wait was cancelled.
	LastTick time.Time             // Time of the last timer decrement.

	Ticks int // Instructions executed since reset.

	Now    func() time.Time // Clock for the timers.
	Random func() uint8     // Source for rnd.

	display Display
	input   Input
	beeper  Beeper
}

// NewCpu creates a new CPU attached to its collaborators, with the font loaded.
func NewCpu(display Display, input Input, beeper Beeper) (cpu *Cpu) {
	cpu = &Cpu{
		Now:     time.Now,
		Random:  func() uint8 { return uint8(rand.Uint32()) },
		display: display,
		input:   input,
		beeper:  beeper,
	}

	cpu.Reset()

	return
}

// Defines returns the assembler constants of the machine.
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return Defines()
}

// Reset the CPU state.
// - Clears registers, timers, stack, memory and grid.
// - Reloads the font.
// - Sets pc to the program start.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	clear(cpu.Grid[:])
	copy(cpu.Memory[FONT_BASE:], Font[:])
	cpu.Stack.Reset()
	cpu.Pc = PROGRAM_START
	cpu.I = 0
	cpu.Delay = 0
	cpu.Sound = 0
	cpu.Halt = false
	cpu.Ticks = 0
	cpu.LastTick = cpu.Now()
}

// Load copies a program image into memory at PROGRAM_START.
func (cpu *Cpu) Load(rom []byte) (err error) {
	if len(rom) > PROGRAM_LIMIT {
		err = ErrProgramSize{Size: len(rom)}
		return
	}

	copy(cpu.Memory[PROGRAM_START:], rom)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(rom))
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %03X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %04X\n", "i", cpu.I)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %02X\n", fmt.Sprintf("v%x", n), val)
	}
	text += fmt.Sprintf("% 5s: %02X\n", "delay", cpu.Delay)
	text += fmt.Sprintf("% 5s: %02X\n", "sound", cpu.Sound)

	strval := "---"
	if val, ok := cpu.Stack.Peek(); ok {
		strval = fmt.Sprintf("%03X", val)
	}
	text += fmt.Sprintf("% 5s: %v (%d)\n", "stack", strval, len(cpu.Stack.Data))

	return
}

// FetchCode reads the instruction word at pc and advances pc past it.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	pc := int(cpu.Pc)
	if pc+1 >= MEMORY_SIZE {
		err = ErrAddress{Err: ErrMemoryBounds, Address: pc + 1}
		return
	}

	code = Code(uint16(cpu.Memory[pc])<<8 | uint16(cpu.Memory[pc+1]))
	cpu.Pc += 2

	return
}

// Tick executes a single cycle: timers, fetch, decode, execute.
// running is false once the machine has halted.
func (cpu *Cpu) Tick() (running bool, err error) {
	if cpu.Halt {
		return
	}

	cpu.tickTimers()

	pc := cpu.Pc
	var code Code
	defer func() {
		if err != nil {
			err = &ErrFault{Pc: pc, Code: code, Err: err}
		}
	}()

	code, err = cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(Decode(code))
	if err != nil {
		return
	}

	running = !cpu.Halt
	return
}
