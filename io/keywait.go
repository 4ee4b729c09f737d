package io

import (
	"sync"

	"github.com/ezrec/chip8/cpu"
)

// KeyWait hands key presses to blocked key waits. A press made while no
// wait is pending is dropped, so a later wait never sees it.
type KeyWait struct {
	mutex   sync.Mutex
	waiting int
	keys    chan uint8
}

// channel returns the key channel, creating it on first use.
// Must be called with the mutex held.
func (kw *KeyWait) channel() chan uint8 {
	if kw.keys == nil {
		kw.keys = make(chan uint8, cpu.KEY_COUNT)
	}
	return kw.keys
}

// Press offers key to the pending waits, and reports whether one takes it.
func (kw *KeyWait) Press(key uint8) (taken bool) {
	kw.mutex.Lock()
	defer kw.mutex.Unlock()

	if kw.waiting == 0 {
		return
	}

	select {
	case kw.channel() <- key:
		taken = true
	default:
	}

	return
}

// Waiting reports whether a wait is pending.
func (kw *KeyWait) Waiting() bool {
	kw.mutex.Lock()
	defer kw.mutex.Unlock()

	return kw.waiting != 0
}

// Wait blocks until a key is pressed, or done is closed.
func (kw *KeyWait) Wait(done <-chan struct{}) (key uint8, ok bool) {
	kw.mutex.Lock()
	kw.waiting++
	keys := kw.channel()
	kw.mutex.Unlock()

	defer func() {
		kw.mutex.Lock()
		defer kw.mutex.Unlock()

		kw.waiting--
		if kw.waiting != 0 {
			return
		}
		// Presses nobody took are stale once the last wait ends.
		for {
			select {
			case <-keys:
			default:
				return
			}
		}
	}()

	select {
	case key = <-keys:
		ok = true
	case <-done:
	}

	return
}
