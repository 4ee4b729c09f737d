//go:build headless

package frontend

import (
	"context"

	"github.com/ezrec/chip8/cpu"
)

// Window is unavailable in headless builds.
type Window struct {
	Verbose bool
	Title   string
	Status  func() string
}

func NewWindow(width, height int) *Window {
	return &Window{}
}

func (win *Window) Clear() {}
func (win *Window) Draw(grid *cpu.Grid) error { return ErrHeadless }
func (win *Window) BlockForKey() (uint8, bool) { return 0, false }
func (win *Window) IsKeyDown(key uint8) bool { return false }
func (win *Window) Quit() {}
func (win *Window) Run(run func(ctx context.Context) error) error { return ErrHeadless }

// Tone is silent in headless builds.
type Tone struct{}

func NewTone() (*Tone, error) {
	return &Tone{}, nil
}

func (tone *Tone) StartTone() {}
func (tone *Tone) StopTone() {}
func (tone *Tone) Close() error { return nil }
