//go:build !headless

package frontend

import (
	"context"
	"errors"
	"image/color"
	"log"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/io"
)

var (
	colorOn     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorOff    = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colorStatus = color.RGBA{0x00, 0xdc, 0x5a, 0xff}
)

// Keypad maps the hexadecimal keypad to keyboard keys.
var Keypad = [cpu.KEY_COUNT]ebiten.Key{
	ebiten.Key0, ebiten.Key1, ebiten.Key2, ebiten.Key3,
	ebiten.Key4, ebiten.Key5, ebiten.Key6, ebiten.Key7,
	ebiten.Key8, ebiten.Key9, ebiten.KeyA, ebiten.KeyB,
	ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
}

// Window is the pixel grid display and keypad, in a desktop window.
// Escape or closing the window ends the session.
type Window struct {
	Verbose bool
	Title   string
	Status  func() string // Overlay text, toggled with F12.

	width  int
	height int

	mutex   sync.Mutex
	grid    cpu.Grid
	pixels  []byte
	frame   *ebiten.Image
	overlay bool

	keys io.KeyWait
	down [cpu.KEY_COUNT]atomic.Bool
	done chan struct{}
	quit sync.Once
}

// game adapts the window to ebiten's game loop.
type game struct {
	*Window
}

var _ cpu.Display = (*Window)(nil)
var _ cpu.Input = (*Window)(nil)
var _ ebiten.Game = (*game)(nil)

// NewWindow creates a window of the given size in screen pixels.
func NewWindow(width, height int) (win *Window) {
	if width <= 0 || height <= 0 {
		width, height = DEFAULT_WIDTH, DEFAULT_HEIGHT
	}

	win = &Window{
		Title:  "CHIP-8",
		width:  width,
		height: height,
		pixels: make([]byte, cpu.GRID_SIZE*4),
		done:   make(chan struct{}),
	}

	return
}

// Clear blanks the display.
func (win *Window) Clear() {
	win.mutex.Lock()
	defer win.mutex.Unlock()

	clear(win.grid[:])
}

// Draw takes a copy of the grid for the next frame.
func (win *Window) Draw(grid *cpu.Grid) error {
	win.mutex.Lock()
	defer win.mutex.Unlock()

	win.grid = *grid
	return nil
}

// BlockForKey waits for a key pressed after the call, or for the window
// to close.
func (win *Window) BlockForKey() (key uint8, ok bool) {
	return win.keys.Wait(win.done)
}

// IsKeyDown reports whether key is held.
func (win *Window) IsKeyDown(key uint8) bool {
	if int(key) >= len(win.down) {
		return false
	}
	return win.down[key].Load()
}

// Quit closes the window.
func (win *Window) Quit() {
	win.quit.Do(func() {
		if win.Verbose {
			log.Printf("window: quit")
		}
		close(win.done)
	})
}

// Run opens the window and calls run on another goroutine. ctx is cancelled
// when the window is closed; the window closes when run returns. Must be
// called from the main goroutine.
func (win *Window) Run(run func(ctx context.Context) error) (err error) {
	ebiten.SetWindowSize(win.width, win.height)
	ebiten.SetWindowTitle(win.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer win.Quit()
		result <- run(ctx)
	}()
	go func() {
		<-win.done
		cancel()
	}()

	err = ebiten.RunGame(&game{Window: win})
	win.Quit()

	rerr := <-result
	if errors.Is(rerr, context.Canceled) {
		rerr = nil
	}
	if err == nil {
		err = rerr
	}

	return
}

func (gm *game) Update() error {
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		gm.Quit()
	}

	select {
	case <-gm.done:
		return ebiten.Termination
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		gm.mutex.Lock()
		gm.overlay = !gm.overlay
		gm.mutex.Unlock()
	}

	for n, key := range Keypad {
		gm.down[n].Store(ebiten.IsKeyPressed(key))
		if inpututil.IsKeyJustPressed(key) {
			gm.keys.Press(uint8(n))
		}
	}

	return nil
}

func (gm *game) Draw(screen *ebiten.Image) {
	if gm.frame == nil {
		gm.frame = ebiten.NewImage(cpu.SCREEN_WIDTH, cpu.SCREEN_HEIGHT)
	}

	gm.mutex.Lock()
	for n, on := range gm.grid {
		pixel := colorOff
		if on {
			pixel = colorOn
		}
		gm.pixels[n*4+0] = pixel.R
		gm.pixels[n*4+1] = pixel.G
		gm.pixels[n*4+2] = pixel.B
		gm.pixels[n*4+3] = pixel.A
	}
	overlay := gm.overlay
	gm.mutex.Unlock()

	gm.frame.WritePixels(gm.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(gm.width)/cpu.SCREEN_WIDTH, float64(gm.height)/cpu.SCREEN_HEIGHT)
	screen.DrawImage(gm.frame, op)

	if overlay && gm.Status != nil {
		text.Draw(screen, gm.Status(), basicfont.Face7x13, 4, 14, colorStatus)
	}
}

func (gm *game) Layout(_, _ int) (int, int) {
	return gm.width, gm.height
}
