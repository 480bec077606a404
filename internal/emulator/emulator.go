// Package emulator drives a vm.VM in real time: it runs instructions at the
// configured CPU rate, ticks the timers at 60 Hz and connects the machine
// to a frontend and a beeper.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kapitanov/chip8vm/internal/vm"
)

const TimerHz = 60

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// Input receives keypad and control events from a frontend.
type Input interface {
	KeyDown(vm.Key)
	KeyUp(vm.Key)
	TogglePause()
}

// HAL is a frontend driven by Run. ReadInput may return ErrReboot or ErrQuit.
type HAL interface {
	ReadInput(in Input) error
	Draw(frame vm.Frame) error
}

// Beeper plays a tone while the sound timer is running.
type Beeper interface {
	SetActive(on bool)
}

type Options struct {
	StepsPerFrame int
	Quirks        vm.Quirks
	Random        vm.Random
	Beeper        Beeper
}

// Emulator serializes every access to the VM behind one mutex, so frontends
// may feed input from their own goroutines.
type Emulator struct {
	mu sync.Mutex

	machine       *vm.VM
	program       []byte
	stepsPerFrame int
	beeper        Beeper

	paused bool
	looped bool
	halted error
}

func New(program []byte, opts Options) (*Emulator, error) {
	vmOpts := []vm.Option{vm.WithQuirks(opts.Quirks)}
	if opts.Random != nil {
		vmOpts = append(vmOpts, vm.WithRandom(opts.Random))
	}

	e := &Emulator{
		machine:       vm.New(vmOpts...),
		program:       program,
		stepsPerFrame: max(1, opts.StepsPerFrame),
		beeper:        opts.Beeper,
	}
	if e.beeper == nil {
		e.beeper = silent{}
	}

	if err := e.boot(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Emulator) boot() error {
	e.machine.Reset()
	e.looped = false
	e.halted = nil
	e.beeper.SetActive(false)

	return e.machine.LoadProgram(e.program)
}

// Reboot resets the machine and loads the program again.
func (e *Emulator) Reboot() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	slog.Info("reboot")
	return e.boot()
}

// Frame runs one 60 Hz slice: up to StepsPerFrame instructions followed by a
// timer tick. A fatal instruction error is returned once; the program then
// stays halted until Reboot.
func (e *Emulator) Frame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused || e.halted != nil {
		return nil
	}

	if !e.looped {
		if err := e.runSteps(); err != nil {
			e.halted = err
			e.beeper.SetActive(false)
			return err
		}
	}

	e.machine.TickTimers()
	e.beeper.SetActive(e.machine.SoundActive())
	return nil
}

func (e *Emulator) runSteps() error {
	for i := 0; i < e.stepsPerFrame; i++ {
		pc := e.machine.PC()

		if err := e.machine.Step(); err != nil {
			return err
		}

		if e.machine.State() == vm.WaitingForKey {
			return nil
		}

		if e.machine.PC() == pc {
			slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", pc))
			e.looped = true
			return nil
		}
	}

	return nil
}

func (e *Emulator) KeyDown(key vm.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.machine.SetKey(key); err != nil {
		slog.Warn("key down", "key", key, "err", err)
	}
}

func (e *Emulator) KeyUp(key vm.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.machine.ClearKey(key); err != nil {
		slog.Warn("key up", "key", key, "err", err)
	}
}

func (e *Emulator) TogglePause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.paused = !e.paused
	if e.paused {
		e.beeper.SetActive(false)
	}
	slog.Info("pause", "paused", e.paused)
}

func (e *Emulator) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Emulator) Looped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.looped
}

// Halted returns the error that stopped the program, if any.
func (e *Emulator) Halted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

// Snapshot copies the framebuffer and reports whether it changed since the
// previous snapshot.
func (e *Emulator) Snapshot() (vm.Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Framebuffer(), e.machine.TakeDrawFlag()
}

// Run drives the emulator with hal until the frontend quits or ctx is done.
// A halted program keeps the window alive so it can be rebooted.
func (e *Emulator) Run(ctx context.Context, hal HAL) error {
	ticker := time.NewTicker(time.Second / TimerHz)
	defer ticker.Stop()

	for {
		err := e.runFrame(hal)

		if errors.Is(err, ErrQuit) {
			return nil
		}

		if errors.Is(err, ErrReboot) {
			if err := e.Reboot(); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (e *Emulator) runFrame(hal HAL) error {
	if err := hal.ReadInput(e); err != nil {
		return err
	}

	if err := e.Frame(); err != nil {
		slog.Error("program halted", "err", err)
	}

	if frame, dirty := e.Snapshot(); dirty {
		if err := hal.Draw(frame); err != nil {
			return err
		}
	}

	return nil
}

type silent struct{}

func (silent) SetActive(bool) {}
