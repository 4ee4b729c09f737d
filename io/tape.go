package io

import (
	"bufio"
	"io"
)

// Tape provides scripted keypad input read from a byte stream.
// Each hexadecimal digit in the stream is one key press; other characters
// are ignored. End of stream, escape or ctrl-c end the tape.
type Tape struct {
	Input io.Reader

	reader  *bufio.Reader
	pending uint8
	hasKey  bool
	ended   bool
}

// next peeks at the next scripted key.
func (tc *Tape) next() (key uint8, ok bool) {
	if tc.hasKey {
		return tc.pending, true
	}
	if tc.ended || tc.Input == nil {
		return
	}
	if tc.reader == nil {
		tc.reader = bufio.NewReader(tc.Input)
	}

	for {
		c, err := tc.reader.ReadByte()
		if err != nil || isQuit(c) {
			tc.ended = true
			return
		}
		key, ok = KeyOf(c)
		if ok {
			tc.pending = key
			tc.hasKey = true
			return
		}
	}
}

// BlockForKey returns the next key on the tape, or false at its end.
func (tc *Tape) BlockForKey() (key uint8, ok bool) {
	key, ok = tc.next()
	tc.hasKey = false
	return
}

// IsKeyDown reports true, and consumes the key, when key is the next key on
// the tape.
func (tc *Tape) IsKeyDown(key uint8) (down bool) {
	next, ok := tc.next()
	if ok && next == key {
		tc.hasKey = false
		down = true
	}
	return
}

// Ended reports whether the tape has run out.
func (tc *Tape) Ended() bool {
	_, ok := tc.next()
	return !ok
}
