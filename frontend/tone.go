//go:build !headless

package frontend

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Tone is a square wave tone generator on the system audio device.
type Tone struct {
	ctx    *oto.Context
	player *oto.Player
	on     atomic.Bool

	mutex sync.Mutex // Guards wave, which the audio goroutine reads.
	wave  squareWave
}

// NewTone opens the audio device and starts a silent stream.
func NewTone() (tone *Tone, err error) {
	op := &oto.NewContextOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return
	}
	<-ready

	tone = &Tone{
		ctx: ctx,
		wave: squareWave{
			Frequency: TONE_FREQUENCY,
			Amplitude: TONE_AMPLITUDE,
		},
	}
	tone.player = ctx.NewPlayer(tone)
	tone.player.Play()

	return
}

// Read supplies samples to the audio device.
func (tone *Tone) Read(p []byte) (n int, err error) {
	tone.mutex.Lock()
	defer tone.mutex.Unlock()

	n = tone.wave.fill(p, tone.on.Load())
	return
}

func (tone *Tone) StartTone() {
	tone.on.Store(true)
}

func (tone *Tone) StopTone() {
	tone.on.Store(false)
}

// Close stops the audio stream.
func (tone *Tone) Close() (err error) {
	tone.on.Store(false)
	if tone.player != nil {
		err = tone.player.Close()
		tone.player = nil
	}
	return
}
