// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
)

const (
	DEFAULT_RATE = 60 // Cycles per second.
)

var _emulator_defines = map[string]string{
	"DEFAULT_RATE": fmt.Sprintf("%v", DEFAULT_RATE),
}

// Status is a snapshot of the machine, safe to read from other goroutines.
type Status struct {
	Pc     uint16
	I      uint16
	Ticks  int
	Halted bool
}

// Emulator state. CPU + loaded program + pacing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the running program, if it was assembled.
	Rate     int          // Cycles per second for Run; 0 runs unpaced.

	rom    []byte
	status atomic.Pointer[Status]
}

// NewEmulator creates a new emulator attached to its collaborators.
func NewEmulator(display cpu.Display, input cpu.Input, beeper cpu.Beeper) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(display, input, beeper),
		Program: &cpu.Program{},
		Rate:    DEFAULT_RATE,
	}

	emu.publish()

	return
}

// Defines returns an iterator over the emulator and cpu defines.
func Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		cpu.Defines(),
	)
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return Defines()
}

// NewAssembler returns an assembler with all of the defines predefined.
func NewAssembler(verbose bool) (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: verbose}
	for key, value := range Defines() {
		asm.Predefine(key, value)
	}

	return
}

// Reset the machine and reload the current program image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.rom)
	if err != nil {
		return
	}

	emu.publish()

	return
}

// Load a binary program image. Any previous assembly listing is discarded.
func (emu *Emulator) Load(rom []byte) (err error) {
	if len(rom) > cpu.PROGRAM_LIMIT {
		err = cpu.ErrProgramSize{Size: len(rom)}
		return
	}

	emu.rom = bytes.Clone(rom)
	emu.Program = &cpu.Program{}

	err = emu.Reset()
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes", len(rom))
	}

	return
}

// Assemble a program source and load it.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	prog, err := NewAssembler(emu.Verbose).Parse(input)
	if err != nil {
		return
	}

	err = emu.Load(prog.Binary())
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// isText reports whether data looks like assembly source rather than a
// binary image.
func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}

	for _, c := range string(data) {
		if unicode.IsSpace(c) || unicode.IsGraphic(c) {
			continue
		}
		return false
	}

	return true
}

// LoadFile loads a program from a file system. Text files are assembled,
// anything else is loaded as a binary image.
func (emu *Emulator) LoadFile(fsys fs.FS, name string) (err error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return
	}

	if len(data) > 0 && isText(data) {
		if emu.Verbose {
			log.Printf("emulator: assembling %v", name)
		}
		err = emu.Assemble(bytes.NewReader(data))
		return
	}

	err = emu.Load(data)
	return
}

// Code returns the instruction word at the program counter.
func (emu *Emulator) Code() (code cpu.Code) {
	pc := int(emu.Cpu.Pc)
	if pc+1 < cpu.MEMORY_SIZE {
		code = cpu.Code(uint16(emu.Cpu.Memory[pc])<<8 | uint16(emu.Cpu.Memory[pc+1]))
	}

	return
}

// LineNo returns the source line number for the executing opcode, or 0 if
// the program was not assembled.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Status returns the most recently published machine snapshot.
func (emu *Emulator) Status() (status Status) {
	if last := emu.status.Load(); last != nil {
		status = *last
	}

	return
}

func (emu *Emulator) publish() {
	emu.status.Store(&Status{
		Pc:     emu.Cpu.Pc,
		I:      emu.Cpu.I,
		Ticks:  emu.Cpu.Ticks,
		Halted: emu.Cpu.Halt,
	})
}

// Tick performs a single cycle of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		emu.publish()
		if err != nil {
			done = true
			if lineno != 0 {
				err = &ErrRuntime{LineNo: lineno, Err: err}
			}
		}
	}()

	running, err := emu.Cpu.Tick()
	if err != nil {
		return
	}

	if !running {
		if emu.Verbose {
			log.Printf("emulator: halted")
		}
		done = true
	}

	return
}

// Run the emulator at Rate cycles per second until the machine halts,
// faults, or ctx is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	var pace <-chan time.Time
	if emu.Rate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(emu.Rate))
		defer ticker.Stop()
		pace = ticker.C
	}

	if emu.Verbose {
		log.Printf("emulator: running at %v Hz", emu.Rate)
	}

	for {
		if pace != nil {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case <-pace:
			}
		} else if err = ctx.Err(); err != nil {
			return
		}

		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}
