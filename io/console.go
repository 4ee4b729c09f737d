package io

import (
	"io"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	DEFAULT_HOLD = 150 * time.Millisecond // How long a typed key reads as down.
)

// Console is keypad input from a terminal. Terminals report key presses but
// not releases, so a key reads as down for Hold after it was typed.
type Console struct {
	Verbose bool
	Hold    time.Duration

	now     func() time.Time
	keys    KeyWait
	done    chan struct{}
	quit    sync.Once
	mutex   sync.Mutex
	pressed [16]time.Time

	fd    int
	state *term.State
}

// NewConsole starts reading keys from input. If input is a terminal it is
// switched to raw mode until Close.
func NewConsole(input io.Reader) (con *Console, err error) {
	con = &Console{
		Hold: DEFAULT_HOLD,
		now:  time.Now,
		done: make(chan struct{}),
	}

	if file, ok := input.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		con.fd = int(file.Fd())
		con.state, err = term.MakeRaw(con.fd)
		if err != nil {
			con = nil
			return
		}
	}

	go con.read(input)

	return
}

// read routes typed characters until end of input or a quit key.
func (con *Console) read(input io.Reader) {
	defer con.Quit()

	var buf [16]byte
	for {
		n, err := input.Read(buf[:])
		for _, c := range buf[:n] {
			if isQuit(c) {
				return
			}
			key, ok := KeyOf(c)
			if !ok {
				continue
			}
			if con.Verbose {
				log.Printf("console: key %x", key)
			}
			con.mutex.Lock()
			con.pressed[key] = con.now()
			con.mutex.Unlock()
			// Unless a key wait takes it, the press only shows in IsKeyDown.
			con.keys.Press(key)
		}
		if err != nil {
			return
		}
	}
}

// Quit ends the session; pending and future key waits report no key.
func (con *Console) Quit() {
	con.quit.Do(func() { close(con.done) })
}

// Done is closed once the user quits or input ends.
func (con *Console) Done() <-chan struct{} {
	return con.done
}

// BlockForKey waits for the next key typed after the call.
func (con *Console) BlockForKey() (key uint8, ok bool) {
	return con.keys.Wait(con.done)
}

// IsKeyDown reports whether key was typed within the last Hold.
func (con *Console) IsKeyDown(key uint8) bool {
	if int(key) >= len(con.pressed) {
		return false
	}

	con.mutex.Lock()
	defer con.mutex.Unlock()

	at := con.pressed[key]
	return !at.IsZero() && con.now().Sub(at) < con.Hold
}

// Close restores the terminal mode.
func (con *Console) Close() (err error) {
	con.Quit()
	if con.state != nil {
		err = term.Restore(con.fd, con.state)
		con.state = nil
	}
	return
}
