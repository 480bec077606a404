// Package termhal runs the emulator inside a terminal. The screen is drawn
// with half-block characters, two CHIP-8 rows per text line.
//
// Terminals report key presses but not releases, so every key press is
// followed by an automatic release after HoldFrames frames.
package termhal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/vm"
)

// HoldFrames is how long a key stays down after the terminal reported it.
const HoldFrames = 6

const (
	ctrlC     = 0x03
	backspace = 0x08
	escape    = 0x1B
	del       = 0x7F
)

type HAL struct {
	fd       int
	oldState *term.State
	out      *bufio.Writer
	keys     chan []byte
	holds    [vm.KeyCount]int
}

// New puts in into raw mode and starts reading it. Output goes to out.
func New(in *os.File, out io.Writer) (*HAL, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	slog.Debug("termhal: raw mode")

	hal := newHAL(in, out)
	hal.fd = fd
	hal.oldState = oldState

	// hide the cursor, clear the screen
	_, _ = hal.out.WriteString("\x1b[?25l\x1b[2J")
	if err := hal.out.Flush(); err != nil {
		hal.Shutdown()
		return nil, fmt.Errorf("failed to write to terminal: %w", err)
	}
	return hal, nil
}

func newHAL(in io.Reader, out io.Writer) *HAL {
	hal := &HAL{
		out:  bufio.NewWriter(out),
		keys: make(chan []byte, 64),
	}
	go hal.readLoop(in)
	return hal
}

func (hal *HAL) readLoop(in io.Reader) {
	defer close(hal.keys)

	buf := make([]byte, 32)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			hal.keys <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			return
		}
	}
}

func (hal *HAL) Shutdown() {
	_, _ = hal.out.WriteString("\x1b[0m\x1b[?25h\x1b[2J\x1b[H")
	if err := hal.out.Flush(); err != nil {
		slog.Error("failed to reset terminal", "err", err)
	}

	if hal.oldState != nil {
		if err := term.Restore(hal.fd, hal.oldState); err != nil {
			slog.Error("failed to restore terminal", "err", err)
		}
		hal.oldState = nil
	}
}

// ReadInput releases expired keys, then handles whatever the terminal sent
// since the previous frame.
func (hal *HAL) ReadInput(in emulator.Input) error {
	for k := range hal.holds {
		if hal.holds[k] == 0 {
			continue
		}
		hal.holds[k]--
		if hal.holds[k] == 0 {
			in.KeyUp(vm.Key(k))
		}
	}

	for {
		select {
		case bs, ok := <-hal.keys:
			if !ok {
				return emulator.ErrQuit
			}
			if err := hal.processBytes(bs, in); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (hal *HAL) processBytes(bs []byte, in emulator.Input) error {
	for i := 0; i < len(bs); i++ {
		b := bs[i]

		switch b {
		case ctrlC:
			return emulator.ErrQuit
		case escape:
			// a lone escape quits, a sequence such as an arrow key is skipped
			if i+1 == len(bs) {
				return emulator.ErrQuit
			}
			i = skipEscape(bs, i)
			continue
		case backspace, del:
			return emulator.ErrReboot
		case 'p', 'P':
			in.TogglePause()
			continue
		}

		key, ok := keyMap(b)
		if !ok {
			continue
		}
		if hal.holds[key] == 0 {
			in.KeyDown(key)
		}
		hal.holds[key] = HoldFrames
	}

	return nil
}

// skipEscape returns the index of the last byte of the escape sequence
// starting at bs[i].
func skipEscape(bs []byte, i int) int {
	i++
	if bs[i] != '[' && bs[i] != 'O' {
		return i
	}
	for i++; i < len(bs); i++ {
		if bs[i] >= 0x40 && bs[i] <= 0x7E {
			return i
		}
	}
	return len(bs) - 1
}

func keyMap(b byte) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}

	switch b {
	case 'x':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q':
		return vm.Key4, true
	case 'w':
		return vm.Key5, true
	case 'e':
		return vm.Key6, true
	case 'a':
		return vm.Key7, true
	case 's':
		return vm.Key8, true
	case 'd':
		return vm.Key9, true
	case 'z':
		return vm.KeyA, true
	case 'c':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r':
		return vm.KeyD, true
	case 'f':
		return vm.KeyE, true
	case 'v':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(frame vm.Frame) error {
	render(hal.out, frame)
	if err := hal.out.Flush(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

var halfBlocks = [4]string{" ", "▀", "▄", "█"}

// render homes the cursor and writes the frame as ScreenHeight/2 lines.
func render(w *bufio.Writer, frame vm.Frame) {
	_, _ = w.WriteString("\x1b[H")

	for y := 0; y < vm.ScreenHeight; y += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			cell := 0
			if frame.At(x, y) {
				cell |= 1
			}
			if frame.At(x, y+1) {
				cell |= 2
			}
			_, _ = w.WriteString(halfBlocks[cell])
		}
		_, _ = w.WriteString("\r\n")
	}
}
