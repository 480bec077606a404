package vm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	FontStart       = 0x000
	FontGlyphSize   = 5
	ProgramStart    = uint16(0x200)
	InstructionSize = 2

	addrMask = MemorySize - 1
)

// State is the interpreter's control state.
type State uint8

const (
	Running State = iota
	WaitingForKey
)

func (s State) String() string {
	if s == WaitingForKey {
		return "waiting for key"
	}
	return "running"
}

// Random is the source for the rand instruction.
type Random interface {
	Uint32() uint32
}

// VM is a CHIP-8 interpreter. It is not safe for concurrent use: callers
// that step, tick and feed input from different goroutines must serialize
// those calls themselves.
type VM struct {
	memory  Memory
	regs    Registers
	stack   Stack
	display Display
	input   Input

	waitRegister uint16 // target of a pending FX0A
	drawFlag     bool   // Indicates a draw has occurred

	quirks Quirks
	random Random
}

type Option func(*VM)

func WithQuirks(q Quirks) Option {
	return func(vm *VM) {
		vm.quirks = q
	}
}

func WithRandom(r Random) Option {
	return func(vm *VM) {
		vm.random = r
	}
}

// New returns a reset VM with an empty program area.
func New(opts ...Option) *VM {
	vm := &VM{
		quirks: DefaultQuirks(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.random == nil {
		seed := uint64(time.Now().UnixNano())
		vm.random = rand.New(rand.NewPCG(seed, seed>>32))
	}

	vm.Reset()
	return vm
}

// Reset clears registers, stack, input, display and memory, then writes
// the font block. The program has to be loaded again afterwards.
func (vm *VM) Reset() {
	vm.regs.reset()
	vm.stack.Reset()
	vm.input.reset()
	vm.waitRegister = 0

	vm.display.Clear()
	vm.drawFlag = true

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	vm.memory.Reset()
}

// LoadProgram copies a raw program image to 0x200. Oversized programs are
// rejected before anything is written.
func (vm *VM) LoadProgram(program []byte) error {
	if err := vm.memory.Load(int(ProgramStart), program); err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	return nil
}

// Step executes one instruction, or completes a pending key wait. Any
// error is fatal to the running program: the VM must be reset before it
// is stepped again.
func (vm *VM) Step() error {
	if vm.input.waiting {
		key, ok := vm.input.takePressed()
		if !ok {
			return nil
		}

		vm.regs.V[vm.waitRegister] = uint8(key)
		vm.input.waiting = false
		vm.regs.PC = (vm.regs.PC + InstructionSize) & addrMask
		return nil
	}

	return vm.executeOpcode()
}

// TickTimers counts the delay and sound timers down by one. It is meant to
// be called at 60 Hz, independently of Step.
func (vm *VM) TickTimers() {
	vm.regs.tick()
}

func (vm *VM) SetKey(key Key) error {
	return vm.input.setKey(key)
}

func (vm *VM) ClearKey(key Key) error {
	return vm.input.clearKey(key)
}

// CancelWait abandons a pending FX0A. The program counter stays on the wait
// instruction, so the next Step executes it again.
func (vm *VM) CancelWait() {
	vm.input.waiting = false
}

func (vm *VM) Framebuffer() Frame {
	return vm.display.Frame()
}

// TakeDrawFlag reports whether the display changed since the last call.
func (vm *VM) TakeDrawFlag() bool {
	f := vm.drawFlag
	vm.drawFlag = false
	return f
}

func (vm *VM) SoundActive() bool {
	return vm.regs.Sound > 0
}

func (vm *VM) DelayValue() uint8 {
	return vm.regs.Delay
}

func (vm *VM) State() State {
	if vm.input.waiting {
		return WaitingForKey
	}
	return Running
}

func (vm *VM) PC() uint16 {
	return vm.regs.PC
}

func (vm *VM) Registers() Registers {
	return vm.regs
}

func (vm *VM) StackDepth() int {
	return vm.stack.Len()
}

// Memory gives read access to the address space, e.g. for debuggers.
func (vm *VM) Memory() *Memory {
	return &vm.memory
}
