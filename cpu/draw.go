package cpu

import (
	"errors"
)

// draw XORs an 8 pixel wide, height row sprite read from memory at i onto
// the grid with its top left corner at (x, y), then hands the grid to the
// display. vf is set to 1 if any lit pixel was turned off.
//
// Coordinates do not wrap; a pixel landing outside the grid is an error.
func (cpu *Cpu) draw(x uint8, y uint8, height uint8) (err error) {
	sprite, err := cpu.memoryAt(cpu.I, int(height))
	if err != nil {
		return
	}

	var collision uint8
	for row, bits := range sprite {
		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}
			index := (int(y)+row)*SCREEN_WIDTH + int(x) + col
			if index >= GRID_SIZE {
				err = ErrAddress{Err: ErrGridBounds, Address: index}
				return
			}
			if cpu.Grid[index] {
				collision = 1
			}
			cpu.Grid[index] = !cpu.Grid[index]
		}
	}

	cpu.Register[REG_VF] = collision

	if derr := cpu.display.Draw(&cpu.Grid); derr != nil {
		err = errors.Join(ErrDisplay, derr)
	}

	return
}
