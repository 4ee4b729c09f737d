// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/frontend"
	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/translate"
)

var f = translate.From

// openFile splits a path into a file system and a name within it.
func openFile(path string) (fsys *os.Root, name string, err error) {
	fsys, err = os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return
	}
	name = filepath.Base(path)
	return
}

func disassemble(path string) {
	root, name, err := openFile(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer root.Close()

	rom, err := io.ReadRom(root.FS(), name)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	for addr, ins := range cpu.Disassemble(rom) {
		fmt.Printf("%03x: %04x  %v\n", addr, uint16(ins.Code), ins)
	}
}

func assemble(source string, output string, verbose bool) {
	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	prog, err := emulator.NewAssembler(verbose).Parse(inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	rom := prog.Binary()
	if len(rom) > cpu.PROGRAM_LIMIT {
		log.Fatalf("%v: %v", source, cpu.ErrProgramSize{Size: len(rom)})
	}

	err = os.WriteFile(output, rom, 0o644)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}

func main() {
	var compile string
	var output string
	var disasm bool
	var width int
	var height int
	var rate int
	var terminal bool
	var keys string
	var verbose bool

	flag.StringVar(&compile, "c", "", "assembly source to run, or to assemble with -o")
	flag.StringVar(&output, "o", "", "write the assembled ROM here, do not execute")
	flag.BoolVar(&disasm, "d", false, "disassemble the ROM, do not execute")
	flag.IntVar(&width, "x", frontend.DEFAULT_WIDTH, "window width")
	flag.IntVar(&height, "y", frontend.DEFAULT_HEIGHT, "window height")
	flag.IntVar(&rate, "r", emulator.DEFAULT_RATE, "cycles per second, 0 for unpaced")
	flag.BoolVar(&terminal, "t", false, "run in the terminal instead of a window")
	flag.StringVar(&keys, "k", "", "file of scripted key presses")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if len(output) != 0 {
		if len(compile) == 0 || flag.NArg() != 0 {
			log.Fatalf("%v: %v", os.Args[0], f("-o requires -c and no ROM"))
		}
		assemble(compile, output, verbose)
		return
	}

	var path string
	switch {
	case len(compile) != 0 && flag.NArg() == 0:
		path = compile
	case len(compile) == 0 && flag.NArg() == 1:
		path = flag.Arg(0)
	default:
		log.Fatalf("%v: %v", os.Args[0], f("expected exactly one ROM, or -c source"))
	}

	if disasm {
		disassemble(path)
		return
	}

	var con *io.Console
	fatalf := func(format string, args ...any) {
		// Leave raw mode before exiting.
		if con != nil {
			con.Close()
		}
		log.Fatalf(format, args...)
	}

	var tape *io.Tape
	if len(keys) != 0 {
		inf, err := os.Open(keys)
		if err != nil {
			log.Fatalf("%v: %v", keys, err)
		}
		defer inf.Close()
		tape = &io.Tape{Input: inf}
	}

	var emu *emulator.Emulator
	status := func() string {
		st := emu.Status()
		return f("pc %03X  i %03X  ticks %v", st.Pc, st.I, st.Ticks)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var run func(run func(ctx context.Context) error) error

	if terminal {
		display := &io.Terminal{Output: os.Stdout, Footer: status}
		var input cpu.Input = tape
		if tape == nil {
			var err error
			con, err = io.NewConsole(os.Stdin)
			if err != nil {
				log.Fatalf("%v: %v", os.Args[0], err)
			}
			defer con.Close()
			con.Verbose = verbose
			go func() {
				<-con.Done()
				cancel()
			}()
			input = con
		}

		emu = emulator.NewEmulator(display, input, &io.Bell{Output: os.Stdout})
		display.Clear()
		run = func(run func(ctx context.Context) error) error {
			return run(ctx)
		}
	} else {
		win := frontend.NewWindow(width, height)
		win.Verbose = verbose
		win.Title = filepath.Base(path)
		win.Status = status

		var beeper cpu.Beeper
		tone, err := frontend.NewTone()
		if err != nil {
			log.Printf("%v: %v", os.Args[0], err)
			beeper = &io.Bell{Output: os.Stdout}
		} else {
			defer tone.Close()
			beeper = tone
		}

		var input cpu.Input = win
		if tape != nil {
			input = tape
		}

		emu = emulator.NewEmulator(win, input, beeper)
		go func() {
			<-ctx.Done()
			win.Quit()
		}()
		run = win.Run
	}

	emu.Verbose = verbose
	emu.Rate = rate

	root, name, err := openFile(path)
	if err != nil {
		fatalf("%v: %v", path, err)
	}
	defer root.Close()

	err = emu.LoadFile(root.FS(), name)
	if err != nil {
		fatalf("%v: %v", path, err)
	}

	err = run(emu.Run)
	if err != nil && !errors.Is(err, context.Canceled) {
		if verbose {
			log.Print(emu.Cpu.String())
		}
		fatalf("%v: %v", path, err)
	}
}
