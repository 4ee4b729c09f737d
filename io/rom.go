package io

import (
	"io"
	"io/fs"

	"github.com/ezrec/chip8/cpu"
)

// ReadRom reads a binary program image, rejecting images that do not fit
// in memory above cpu.PROGRAM_START.
func ReadRom(fsys fs.FS, name string) (rom []byte, err error) {
	file, err := fsys.Open(name)
	if err != nil {
		return
	}
	defer file.Close()

	rom, err = io.ReadAll(io.LimitReader(file, cpu.PROGRAM_LIMIT+1))
	if err != nil {
		return
	}

	switch {
	case len(rom) == 0:
		err = ErrRomEmpty
	case len(rom) > cpu.PROGRAM_LIMIT:
		// Report the real size if the file system knows it.
		size := len(rom)
		if info, serr := file.Stat(); serr == nil && info.Size() > int64(size) {
			size = int(info.Size())
		}
		err = cpu.ErrProgramSize{Size: size}
		rom = nil
	}

	return
}
