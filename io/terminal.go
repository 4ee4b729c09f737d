package io

import (
	"bytes"
	"io"

	"github.com/ezrec/chip8/cpu"
)

const (
	ansiClear = "\x1b[2J\x1b[H"
	ansiHome  = "\x1b[H"
)

// halfBlock renders two vertically stacked pixels as one character cell,
// indexed by top<<1 | bottom.
var halfBlock = [4]string{" ", "▄", "▀", "█"}

// Terminal renders the pixel grid as text, two pixel rows per line.
type Terminal struct {
	Output io.Writer
	Footer func() string // If set, printed under each frame.

	frame bytes.Buffer
}

// Clear blanks the terminal.
func (tm *Terminal) Clear() {
	io.WriteString(tm.Output, ansiClear)
}

// Draw writes the full frame, homing the cursor first. Lines end in CR LF
// so raw mode terminals render them.
func (tm *Terminal) Draw(grid *cpu.Grid) (err error) {
	tm.frame.Reset()
	tm.frame.WriteString(ansiHome)

	for row := 0; row < cpu.SCREEN_HEIGHT; row += 2 {
		top := grid[row*cpu.SCREEN_WIDTH : (row+1)*cpu.SCREEN_WIDTH]
		bottom := grid[(row+1)*cpu.SCREEN_WIDTH : (row+2)*cpu.SCREEN_WIDTH]
		for col := range cpu.SCREEN_WIDTH {
			index := 0
			if top[col] {
				index |= 2
			}
			if bottom[col] {
				index |= 1
			}
			tm.frame.WriteString(halfBlock[index])
		}
		tm.frame.WriteString("\r\n")
	}

	if tm.Footer != nil {
		tm.frame.WriteString(tm.Footer())
		tm.frame.WriteString("\x1b[K\r\n")
	}

	_, err = tm.Output.Write(tm.frame.Bytes())
	return
}

// Bell is a tone generator that rings the terminal bell once per tone.
type Bell struct {
	Output io.Writer

	sounding bool
}

// StartTone rings the bell, unless it is already ringing.
func (bell *Bell) StartTone() {
	if bell.sounding {
		return
	}
	bell.sounding = true
	bell.Output.Write([]byte{'\a'})
}

// StopTone silences the bell.
func (bell *Bell) StopTone() {
	bell.sounding = false
}
