package emulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

type fakeBeeper struct {
	on      bool
	changes int
}

func (b *fakeBeeper) SetActive(on bool) {
	if on != b.on {
		b.changes++
	}
	b.on = on
}

// fakeHAL replays one scripted action per frame.
type fakeHAL struct {
	script []func(in Input) error
	frames int
	draws  []vm.Frame
}

func (h *fakeHAL) ReadInput(in Input) error {
	defer func() { h.frames++ }()

	if h.frames < len(h.script) && h.script[h.frames] != nil {
		return h.script[h.frames](in)
	}
	if h.frames >= len(h.script) {
		return ErrQuit
	}
	return nil
}

func (h *fakeHAL) Draw(frame vm.Frame) error {
	h.draws = append(h.draws, frame)
	return nil
}

func assemble(words ...uint16) []byte {
	program := make([]byte, 0, 2*len(words))
	for _, w := range words {
		program = append(program, byte(w>>8), byte(w))
	}
	return program
}

func newTestEmulator(t *testing.T, steps int, words ...uint16) (*Emulator, *fakeBeeper) {
	t.Helper()

	beeper := &fakeBeeper{}
	e, err := New(assemble(words...), Options{
		StepsPerFrame: steps,
		Quirks:        vm.DefaultQuirks(),
		Beeper:        beeper,
	})
	assert.NoError(t, err)
	return e, beeper
}

func TestNewRejectsOversizedProgram(t *testing.T) {
	_, err := New(make([]byte, vm.MemorySize), Options{StepsPerFrame: 1})
	assert.True(t, errors.Is(err, vm.ErrMemoryOverflow))
}

func TestFrameRunsStepsThenTicks(t *testing.T) {
	// count up in v1 forever
	e, _ := newTestEmulator(t, 4, 0x7101, 0x1200)

	assert.NoError(t, e.Frame())
	assert.Equal(t, uint8(2), e.machine.Registers().V[1])
	assert.Equal(t, uint16(0x200), e.machine.PC())

	assert.NoError(t, e.Frame())
	assert.Equal(t, uint8(4), e.machine.Registers().V[1])
	assert.False(t, e.Looped())
}

func TestFrameDrivesBeeper(t *testing.T) {
	// v0 = 2; sound = v0; spin
	e, beeper := newTestEmulator(t, 3, 0x6002, 0xF018, 0x7101, 0x1204)

	assert.NoError(t, e.Frame())
	assert.True(t, beeper.on)

	assert.NoError(t, e.Frame())
	assert.False(t, beeper.on)
	assert.Equal(t, 2, beeper.changes)
}

func TestFrameDetectsLoop(t *testing.T) {
	e, _ := newTestEmulator(t, 10, 0x6005, 0xF015, 0x1204)

	assert.NoError(t, e.Frame())
	assert.True(t, e.Looped())
	assert.Equal(t, uint8(4), e.machine.DelayValue())

	assert.NoError(t, e.Frame())
	assert.Equal(t, uint8(3), e.machine.DelayValue())

	assert.NoError(t, e.Reboot())
	assert.False(t, e.Looped())
	assert.Equal(t, uint8(0), e.machine.DelayValue())
}

func TestFrameStopsWhileWaitingForKey(t *testing.T) {
	e, _ := newTestEmulator(t, 10, 0xF30A, 0x7301, 0x1204)

	assert.NoError(t, e.Frame())
	assert.Equal(t, vm.WaitingForKey, e.machine.State())
	assert.False(t, e.Looped())

	e.KeyDown(vm.Key7)
	assert.NoError(t, e.Frame())
	e.KeyUp(vm.Key7)

	assert.Equal(t, uint8(8), e.machine.Registers().V[3])
	assert.True(t, e.Looped())
}

func TestFrameHaltsOnFatalError(t *testing.T) {
	e, beeper := newTestEmulator(t, 5, 0x6003, 0xF018, 0x00EE)

	err := e.Frame()
	assert.True(t, errors.Is(err, vm.ErrStackUnderflow))
	assert.True(t, errors.Is(e.Halted(), vm.ErrStackUnderflow))
	assert.False(t, beeper.on)

	pc := e.machine.PC()
	assert.NoError(t, e.Frame())
	assert.Equal(t, pc, e.machine.PC())

	assert.NoError(t, e.Reboot())
	assert.NoError(t, e.Halted())
}

func TestPause(t *testing.T) {
	e, _ := newTestEmulator(t, 1, 0x7101, 0x1200)

	e.TogglePause()
	assert.True(t, e.Paused())
	assert.NoError(t, e.Frame())
	assert.Equal(t, uint8(0), e.machine.Registers().V[1])

	e.TogglePause()
	assert.NoError(t, e.Frame())
	assert.Equal(t, uint8(1), e.machine.Registers().V[1])
}

func TestSnapshotDrawFlag(t *testing.T) {
	e, _ := newTestEmulator(t, 2, 0xA000, 0xD005, 0x1204)

	_, dirty := e.Snapshot()
	assert.True(t, dirty)
	_, dirty = e.Snapshot()
	assert.False(t, dirty)

	assert.NoError(t, e.Frame())
	frame, dirty := e.Snapshot()
	assert.True(t, dirty)
	assert.True(t, frame.Lit() > 0)
}

func TestRun(t *testing.T) {
	e, _ := newTestEmulator(t, 1, 0x7101, 0x1200)

	hal := &fakeHAL{
		script: []func(in Input) error{
			nil,
			func(in Input) error { in.KeyDown(vm.Key1); return nil },
			func(in Input) error { return ErrReboot },
			nil,
		},
	}

	err := e.Run(context.Background(), hal)
	assert.NoError(t, err)
	assert.Equal(t, 5, hal.frames)
	assert.Equal(t, 2, len(hal.draws))

	// the reboot cleared v1 before the last frame ran
	assert.Equal(t, uint8(1), e.machine.Registers().V[1])
}

func TestRunStopsOnContext(t *testing.T) {
	e, _ := newTestEmulator(t, 1, 0x1200)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	hal := &fakeHAL{script: make([]func(in Input) error, 1_000_000)}
	assert.NoError(t, e.Run(ctx, hal))
}

type failingHAL struct{}

var errDraw = errors.New("draw failed")

func (failingHAL) ReadInput(Input) error { return nil }
func (failingHAL) Draw(vm.Frame) error   { return errDraw }

func TestRunReturnsFrontendErrors(t *testing.T) {
	e, _ := newTestEmulator(t, 1, 0x1200)

	err := e.Run(context.Background(), failingHAL{})
	assert.True(t, errors.Is(err, errDraw))
}
