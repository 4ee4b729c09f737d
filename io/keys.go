package io

const (
	KEY_ESCAPE = 0x1b // Quits the run.
	KEY_CTRL_C = 0x03 // Quits the run.
)

// KeyOf maps a typed character to a keypad key: 0-9 and A-F, either case.
func KeyOf(c byte) (key uint8, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 0xa, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0xa, true
	}

	return
}

// isQuit reports whether c requests shutdown.
func isQuit(c byte) bool {
	return c == KEY_ESCAPE || c == KEY_CTRL_C
}
