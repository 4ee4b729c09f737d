package frontend

import (
	"encoding/binary"
	"math"
)

const (
	SAMPLE_RATE     = 44100 // Samples per second.
	TONE_FREQUENCY  = 440.0 // Hz
	TONE_AMPLITUDE  = 0.25
	BYTES_PER_FRAME = 4 // One float32 channel.
)

// squareWave synthesizes a mono float32 square wave.
type squareWave struct {
	Frequency float64
	Amplitude float64

	phase float64 // Position in the current cycle, [0, 1).
}

// fill writes whole float32 little-endian samples into p, silence when off.
func (sw *squareWave) fill(p []byte, on bool) (n int) {
	step := sw.Frequency / SAMPLE_RATE

	for n = 0; n+BYTES_PER_FRAME <= len(p); n += BYTES_PER_FRAME {
		var sample float32
		if on {
			sample = float32(sw.Amplitude)
			if sw.phase >= 0.5 {
				sample = -sample
			}
			sw.phase += step
			sw.phase -= math.Floor(sw.phase)
		}
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(sample))
	}

	return
}
