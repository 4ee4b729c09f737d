// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubDisplay struct {
	clears int
	draws  int
	grid   Grid
	err    error
}

func (sd *stubDisplay) Clear() {
	sd.clears++
}

func (sd *stubDisplay) Draw(grid *Grid) error {
	sd.draws++
	sd.grid = *grid
	return sd.err
}

type stubInput struct {
	keys    []uint8 // Keys returned by BlockForKey, in order.
	down    [KEY_COUNT]bool
	polled  []uint8
	waiting int
}

func (si *stubInput) BlockForKey() (key uint8, ok bool) {
	si.waiting++
	if len(si.keys) == 0 {
		return
	}
	key, si.keys = si.keys[0], si.keys[1:]
	ok = true
	return
}

func (si *stubInput) IsKeyDown(key uint8) bool {
	si.polled = append(si.polled, key)
	return si.down[key]
}

type stubBeeper struct {
	starts int
	stops  int
}

func (sb *stubBeeper) StartTone() { sb.starts++ }
func (sb *stubBeeper) StopTone()  { sb.stops++ }

type testRig struct {
	*Cpu
	display *stubDisplay
	input   *stubInput
	beeper  *stubBeeper
	now     time.Time
}

// newTestRig creates a cpu with stub collaborators and a frozen clock.
func newTestRig(rom ...byte) (rig *testRig) {
	rig = &testRig{
		display: &stubDisplay{},
		input:   &stubInput{},
		beeper:  &stubBeeper{},
		now:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rig.Cpu = NewCpu(rig.display, rig.input, rig.beeper)
	rig.Cpu.Now = func() time.Time { return rig.now }
	rig.Cpu.Reset()
	if err := rig.Cpu.Load(rom); err != nil {
		panic(err)
	}
	return
}

func (rig *testRig) advance(d time.Duration) {
	rig.now = rig.now.Add(d)
}

func TestCpu_New(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig()
	assert.Equal(uint16(PROGRAM_START), rig.Pc)
	assert.Equal(Font[:], rig.Memory[FONT_BASE:FONT_BASE+len(Font)])
	assert.True(rig.Stack.Empty())
	assert.False(rig.Halt)
	assert.Equal(Grid{}, rig.Grid)
	assert.Equal(uint8(0xF0), rig.Memory[0])
	assert.Equal(uint8(0x80), rig.Memory[79])
}

func TestCpu_Load_TooLarge(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(&stubDisplay{}, &stubInput{}, &stubBeeper{})

	err := cpu.Load(make([]byte, PROGRAM_LIMIT))
	assert.NoError(err)

	err = cpu.Load(make([]byte, PROGRAM_LIMIT+1))
	assert.ErrorIs(err, ErrProgramTooLarge)
	var esize ErrProgramSize
	assert.ErrorAs(err, &esize)
	assert.Equal(PROGRAM_LIMIT+1, esize.Size)
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x6A, 0x12)
	_, err := rig.Tick()
	assert.NoError(err)
	rig.Memory[0] = 0
	rig.Stack.Push(0x300)
	rig.Grid[10] = true

	rig.Reset()
	assert.Equal(uint16(PROGRAM_START), rig.Pc)
	assert.Equal(uint8(0), rig.Register[0xA])
	assert.Equal(uint8(0xF0), rig.Memory[0])
	assert.Equal(uint8(0), rig.Memory[PROGRAM_START])
	assert.True(rig.Stack.Empty())
	assert.False(rig.Grid[10])
	assert.Equal(0, rig.Ticks)
}

func TestCpu_Jump(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x1A, 0xBC)
	running, err := rig.Tick()
	assert.NoError(err)
	assert.True(running)
	assert.Equal(uint16(0xABC), rig.Pc)
}

func TestCpu_JumpV0(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xB3, 0x00)
	rig.Register[0] = 0x10
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x310), rig.Pc)
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x22, 0x04, 0xFF, 0xFF, 0x00, 0xEE)

	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x204), rig.Pc)
	assert.Equal([]uint16{0x202}, rig.Stack.Data)

	_, err = rig.Tick()
	assert.NoError(err)
	assert.True(rig.Stack.Empty())
	assert.Equal(uint16(0x202), rig.Pc)
}

func TestCpu_ReturnEmpty(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x00, 0xEE)
	running, err := rig.Tick()
	assert.False(running)
	assert.ErrorIs(err, ErrStackEmpty)

	var fault *ErrFault
	assert.ErrorAs(err, &fault)
	assert.Equal(uint16(0x200), fault.Pc)
	assert.Equal(Code(0x00EE), fault.Code)
}

func TestCpu_CallFull(t *testing.T) {
	assert := assert.New(t)

	// call 0x200, forever.
	rig := newTestRig(0x22, 0x00)
	for range STACK_LIMIT {
		_, err := rig.Tick()
		assert.NoError(err)
	}
	assert.True(rig.Stack.Full())

	_, err := rig.Tick()
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(STACK_LIMIT, len(rig.Stack.Data))
}

func TestCpu_SkipEqual(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x3A, 0xF0)
	rig.Register[0xA] = 0xF0
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(PROGRAM_START+4), rig.Pc)

	rig = newTestRig(0x3A, 0xF0)
	rig.Register[0xA] = 0x00
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(PROGRAM_START+2), rig.Pc)
}

func TestCpu_Skips(t *testing.T) {
	table := [...]struct {
		name string
		rom  []byte
		a, b uint8
		skip bool
	}{
		{"sne byte taken", []byte{0x4A, 0x01}, 0x00, 0x00, true},
		{"sne byte not taken", []byte{0x4A, 0x01}, 0x01, 0x00, false},
		{"se reg taken", []byte{0x5A, 0xB0}, 0x42, 0x42, true},
		{"se reg not taken", []byte{0x5A, 0xB0}, 0x42, 0x43, false},
		{"sne reg taken", []byte{0x9A, 0xB0}, 0x42, 0x43, true},
		{"sne reg not taken", []byte{0x9A, 0xB0}, 0x42, 0x42, false},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			rig := newTestRig(entry.rom...)
			rig.Register[0xA] = entry.a
			rig.Register[0xB] = entry.b
			_, err := rig.Tick()
			assert.NoError(err)
			pc := uint16(PROGRAM_START + 2)
			if entry.skip {
				pc += 2
			}
			assert.Equal(pc, rig.Pc)
		})
	}
}

func TestCpu_Alu(t *testing.T) {
	table := [...]struct {
		name   string
		code   byte // Low byte of 0x8AB?
		a, b   uint8
		result uint8
		vf     uint8
	}{
		{"ld", 0xB0, 0x12, 0x34, 0x34, 0},
		{"or", 0xB1, 0xF0, 0x0F, 0xFF, 0},
		{"and", 0xB2, 0xF3, 0x3F, 0x33, 0},
		{"xor", 0xB3, 0xFF, 0x0F, 0xF0, 0},
		{"add carry", 0xB4, 0xFF, 0x10, 0x0F, 1},
		{"add", 0xB4, 0x10, 0x10, 0x20, 0},
		{"sub", 0xB5, 0x30, 0x10, 0x20, 1},
		{"sub equal", 0xB5, 0x30, 0x30, 0x00, 1},
		{"sub borrow", 0xB5, 0x10, 0x30, 0xE0, 0},
		{"subn", 0xB7, 0x10, 0x30, 0x20, 1},
		{"subn borrow", 0xB7, 0x30, 0x10, 0xE0, 0},
		{"shl", 0xBE, 0x00, 0x81, 0x02, 1},
		{"shl no carry", 0xBE, 0x00, 0x41, 0x82, 0},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			rig := newTestRig(0x8A, entry.code)
			rig.Register[0xA] = entry.a
			rig.Register[0xB] = entry.b
			_, err := rig.Tick()
			assert.NoError(err)
			assert.Equal(entry.result, rig.Register[0xA])
			assert.Equal(entry.vf, rig.Register[REG_VF])
		})
	}
}

func TestCpu_AddFlagTarget(t *testing.T) {
	assert := assert.New(t)

	// add vf v1: the result overwrites the carry.
	rig := newTestRig(0x8F, 0x14)
	rig.Register[REG_VF] = 0xFF
	rig.Register[1] = 0x02
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0x01), rig.Register[REG_VF])
}

func TestCpu_ShiftQuirk(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x8A, 0xB6, 0x8A, 0xB6, 0x8A, 0xB6)
	rig.Register[0xB] = 0b11

	expected := [...]struct{ value, vf uint8 }{
		{1, 1},
		{0, 1},
		{0, 0},
	}

	for _, step := range expected {
		_, err := rig.Tick()
		assert.NoError(err)
		assert.Equal(step.value, rig.Register[0xA])
		assert.Equal(step.value, rig.Register[0xB])
		assert.Equal(step.vf, rig.Register[REG_VF])
	}
}

func TestCpu_ByteOps(t *testing.T) {
	assert := assert.New(t)

	// ld va 0xfe; add va 0x03; ld i 0x123
	rig := newTestRig(0x6A, 0xFE, 0x7A, 0x03, 0xA1, 0x23)
	rig.Register[REG_VF] = 0x55

	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0xFE), rig.Register[0xA])

	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0x01), rig.Register[0xA])
	assert.Equal(uint8(0x55), rig.Register[REG_VF], "add byte leaves vf alone")

	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x123), rig.I)
	assert.Equal(3, rig.Ticks)
}

func TestCpu_AddI(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFA, 0x1E)
	rig.I = 4095
	rig.Register[0xA] = 42
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(4137), rig.I)
	assert.Equal(uint8(0), rig.Register[REG_VF])

	rig = newTestRig(0xFA, 0x1E)
	rig.I = 0xFFFF
	rig.Register[0xA] = 2
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(1), rig.I)
	assert.Equal(uint8(1), rig.Register[REG_VF])
}

func TestCpu_Font(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFA, 0x29)
	rig.Register[0xA] = 0xB
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(FONT_BASE+0xB*FONT_GLYPH_SIZE), rig.I)
	assert.Equal([]byte{0xE0, 0x90, 0xE0, 0x90, 0xE0}, rig.Memory[rig.I:rig.I+5])
}

func TestCpu_Bcd(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFA, 0x33)
	rig.Register[0xA] = 123
	rig.I = 2000
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3}, rig.Memory[2000:2003])
	assert.Equal(uint16(2000), rig.I)
}

func TestCpu_Bcd_Bounds(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFA, 0x33)
	rig.I = MEMORY_SIZE - 2
	_, err := rig.Tick()
	assert.ErrorIs(err, ErrMemoryBounds)
}

func TestCpu_DumpLoad(t *testing.T) {
	assert := assert.New(t)

	// ld [i] v3; ld i 0x300; ld v3 [i]
	rig := newTestRig(0xF3, 0x55, 0xA3, 0x00, 0xF3, 0x65)
	rig.I = 0x300
	copy(rig.Register[:], []uint8{1, 2, 3, 4, 5})

	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3, 4, 0}, rig.Memory[0x300:0x305])
	assert.Equal(uint16(0x304), rig.I)

	clear(rig.Register[:])

	_, err = rig.Tick()
	assert.NoError(err)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal([]uint8{1, 2, 3, 4, 0}, rig.Register[:5])
	assert.Equal(uint16(0x304), rig.I)
}

func TestCpu_Dump_Bounds(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFF, 0x55)
	rig.I = MEMORY_SIZE - 15
	_, err := rig.Tick()
	assert.ErrorIs(err, ErrMemoryBounds)

	var eaddr ErrAddress
	assert.ErrorAs(err, &eaddr)
	assert.Equal(MEMORY_SIZE, eaddr.Address)
}

func TestCpu_InvalidOpcode(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xFF, 0xFF)
	running, err := rig.Tick()
	assert.False(running)
	assert.Error(err)

	var eop ErrOpcode
	assert.ErrorAs(err, &eop)
	assert.Equal(Code(0xFFFF), eop.Code)
	assert.Equal(uint16(0x200), eop.Pc)
	assert.Contains(err.Error(), "0xFF 0xFF")
	assert.Contains(err.Error(), "0x200")
}

func TestCpu_FetchBounds(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig()
	rig.Pc = MEMORY_SIZE - 1
	_, err := rig.Tick()
	assert.ErrorIs(err, ErrMemoryBounds)
}

func TestCpu_Sys(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0x01, 0x23)
	running, err := rig.Tick()
	assert.NoError(err)
	assert.True(running)
	assert.Equal(uint16(0x202), rig.Pc)
}

func TestCpu_Random(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xC3, 0x0F)
	rig.Random = func() uint8 { return 0xA5 }
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0x05), rig.Register[3])
}

func TestCpu_Keys(t *testing.T) {
	assert := assert.New(t)

	// skp v1; skp v1; sknp v1
	rig := newTestRig(0xE1, 0x9E, 0x00, 0x00, 0xE1, 0xA1)
	rig.Register[1] = 0x7
	rig.input.down[0x7] = true

	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x204), rig.Pc)

	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x206), rig.Pc)

	rig.input.down[0x7] = false
	rig.Pc = 0x204
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x208), rig.Pc)
	assert.Equal([]uint8{7, 7, 7}, rig.input.polled)
}

func TestCpu_Keys_OutOfRange(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xE1, 0x9E)
	rig.Register[1] = 0x42
	_, err := rig.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x202), rig.Pc)
	assert.Empty(rig.input.polled)
}

func TestCpu_WaitKey(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig(0xF4, 0x0A, 0xF5, 0x0A)
	rig.input.keys = []uint8{0xC}

	running, err := rig.Tick()
	assert.NoError(err)
	assert.True(running)
	assert.Equal(uint8(0xC), rig.Register[4])

	running, err = rig.Tick()
	assert.NoError(err)
	assert.False(running)
	assert.True(rig.Halt)
	assert.Equal(2, rig.input.waiting)

	// Halted is terminal; nothing further is fetched.
	pc := rig.Pc
	running, err = rig.Tick()
	assert.NoError(err)
	assert.False(running)
	assert.Equal(pc, rig.Pc)
	assert.Equal(2, rig.input.waiting)
}

func TestCpu_Timers(t *testing.T) {
	assert := assert.New(t)

	// ld dt va; ld st va; ld vb dt; jp 0x206
	rig := newTestRig(0xFA, 0x15, 0xFA, 0x18, 0xFB, 0x07, 0x12, 0x06)
	rig.Register[0xA] = 2

	_, err := rig.Tick()
	assert.NoError(err)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(2), rig.Delay)
	assert.Equal(uint8(2), rig.Sound)

	// Not yet a second.
	rig.advance(900 * time.Millisecond)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(2), rig.Register[0xB])
	assert.Equal(0, rig.beeper.starts)
	assert.Equal(1, rig.beeper.stops)

	// A full second since the last decrement.
	rig.advance(100 * time.Millisecond)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(1), rig.Delay)
	assert.Equal(uint8(1), rig.Sound)
	assert.Equal(1, rig.beeper.starts)

	// Tone is silenced once the pulse has elapsed.
	rig.advance(TONE_PULSE)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(2, rig.beeper.stops)

	rig.advance(TIMER_PERIOD)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0), rig.Delay)
	assert.Equal(uint8(0), rig.Sound)
	assert.Equal(2, rig.beeper.starts)

	// Expired timers stay at zero, and the tone is not restarted.
	rig.advance(TIMER_PERIOD)
	_, err = rig.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0), rig.Delay)
	assert.Equal(uint8(0), rig.Sound)
	assert.Equal(2, rig.beeper.starts)
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig()
	rig.Register[0xA] = 0x42
	rig.Stack.Push(0x2AC)

	text := rig.String()
	assert.Contains(text, "pc: 200")
	assert.Contains(text, "va: 42")
	assert.Contains(text, "stack: 2AC (1)")
	assert.True(strings.HasSuffix(text, "\n"))
}

func TestCpu_Defines(t *testing.T) {
	assert := assert.New(t)

	rig := newTestRig()
	defines := map[string]string{}
	for key, value := range rig.Defines() {
		defines[key] = value
	}
	assert.Equal("0x200", defines["PROGRAM_START"])
	assert.Equal("64", defines["SCREEN_WIDTH"])
}

func TestCpu_DisplayError(t *testing.T) {
	assert := assert.New(t)

	failure := errors.New("no surface")

	rig := newTestRig(0xD0, 0x01)
	rig.display.err = failure
	_, err := rig.Tick()
	assert.ErrorIs(err, ErrDisplay)
	assert.ErrorIs(err, failure)
}
