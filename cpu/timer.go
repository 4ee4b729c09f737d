package cpu

import (
	"time"
)

const (
	TIMER_PERIOD = time.Second            // Interval between timer decrements.
	TONE_PULSE   = 250 * time.Millisecond // How long the tone sounds after a decrement.
)

// tickTimers decrements the delay and sound timers once per TIMER_PERIOD.
// While the sound timer is running the tone is pulsed on at each decrement
// and silenced TONE_PULSE later.
func (cpu *Cpu) tickTimers() {
	now := cpu.Now()
	elapsed := now.Sub(cpu.LastTick)

	switch {
	case elapsed >= TIMER_PERIOD:
		if cpu.Delay > 0 {
			cpu.Delay--
		}
		if cpu.Sound > 0 {
			cpu.beeper.StartTone()
			cpu.Sound--
		}
		cpu.LastTick = now
	case elapsed >= TONE_PULSE:
		cpu.beeper.StopTone()
	}
}
