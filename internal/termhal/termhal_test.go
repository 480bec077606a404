package termhal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/retroenv/retrogolib/assert"

	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/vm"
)

type recorder struct {
	events []string
	paused bool
}

func (r *recorder) KeyDown(k vm.Key) { r.events = append(r.events, fmt.Sprintf("down %x", uint8(k))) }
func (r *recorder) KeyUp(k vm.Key)   { r.events = append(r.events, fmt.Sprintf("up %x", uint8(k))) }
func (r *recorder) TogglePause()     { r.paused = !r.paused }

func newTestHAL(input ...string) *HAL {
	hal := &HAL{
		out:  bufio.NewWriter(&bytes.Buffer{}),
		keys: make(chan []byte, len(input)),
	}
	for _, s := range input {
		hal.keys <- []byte(s)
	}
	return hal
}

func TestKeyMapLayout(t *testing.T) {
	layout := "x123qweasdzc4rfv"
	for i := range layout {
		key, ok := keyMap(layout[i])
		assert.True(t, ok)
		assert.Equal(t, vm.Key(i), key)

		key, ok = keyMap(strings.ToUpper(layout)[i])
		assert.True(t, ok)
		assert.Equal(t, vm.Key(i), key)
	}

	_, ok := keyMap('y')
	assert.False(t, ok)
}

func TestReadInputHoldsKeys(t *testing.T) {
	hal := newTestHAL("1", "1a")
	rec := &recorder{}

	assert.NoError(t, hal.ReadInput(rec))
	assert.Equal(t, 0, len(hal.keys))

	for i := 0; i < HoldFrames-1; i++ {
		assert.NoError(t, hal.ReadInput(rec))
	}
	assert.NoError(t, hal.ReadInput(rec))

	expected := []string{"down 1", "down 7", "up 1", "up 7"}
	if diff := cmp.Diff(expected, rec.events); diff != "" {
		t.Errorf("events (-want, +got)\n%s", diff)
	}
}

func TestReadInputReleasesAfterHold(t *testing.T) {
	hal := newTestHAL("v")
	rec := &recorder{}

	for i := 0; i < HoldFrames; i++ {
		assert.NoError(t, hal.ReadInput(rec))
	}
	assert.Equal(t, 1, len(rec.events))
	assert.Equal(t, "down f", rec.events[0])

	assert.NoError(t, hal.ReadInput(rec))
	assert.Equal(t, 2, len(rec.events))
	assert.Equal(t, "up f", rec.events[1])
}

func TestControlKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"ctrl-c", "\x03", emulator.ErrQuit},
		{"escape", "\x1b", emulator.ErrQuit},
		{"backspace", "\x08", emulator.ErrReboot},
		{"delete", "\x7f", emulator.ErrReboot},
		{"arrow key", "\x1b[A", nil},
		{"function key", "\x1bOP", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hal := newTestHAL(tt.input)
			err := hal.ReadInput(&recorder{})
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestEscapeSequenceIsNotAKey(t *testing.T) {
	hal := newTestHAL("\x1b[Da")
	rec := &recorder{}

	assert.NoError(t, hal.ReadInput(rec))
	assert.Equal(t, 1, len(rec.events))
	assert.Equal(t, "down 7", rec.events[0])
}

func TestPauseKey(t *testing.T) {
	hal := newTestHAL("p")
	rec := &recorder{}

	assert.NoError(t, hal.ReadInput(rec))
	assert.True(t, rec.paused)
}

func TestClosedInputQuits(t *testing.T) {
	hal := newTestHAL()
	close(hal.keys)

	err := hal.ReadInput(&recorder{})
	assert.True(t, errors.Is(err, emulator.ErrQuit))
}

func TestRender(t *testing.T) {
	var d vm.Display
	// 0x80, 0x80 lights (0,0) and (0,1); 0x40 lights (1,2)
	d.DrawSprite(0, 0, []byte{0x80, 0x80, 0x40})

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	render(w, d.Frame())
	assert.NoError(t, w.Flush())

	out, ok := strings.CutPrefix(buf.String(), "\x1b[H")
	assert.True(t, ok)

	lines := strings.Split(out, "\r\n")
	assert.Equal(t, vm.ScreenHeight/2+1, len(lines))
	assert.Equal(t, "", lines[len(lines)-1])

	assert.True(t, strings.HasPrefix(lines[0], "█ "))
	assert.True(t, strings.HasPrefix(lines[1], " ▀ "))
	assert.Equal(t, vm.ScreenWidth, len([]rune(lines[2])))
	assert.Equal(t, strings.Repeat(" ", vm.ScreenWidth), lines[2])
}
