package ebitenui

import (
	"image/color"
	"strings"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/retroenv/retrogolib/assert"

	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/vm"
)

func TestFillPixels(t *testing.T) {
	var d vm.Display
	d.DrawSprite(1, 0, []byte{0x80})

	fg := color.RGBA{R: 0xbe, G: 0xa7, A: 0xff}
	bg := color.RGBA{R: 1, G: 2, B: 3, A: 0xff}

	dst := make([]byte, 4*vm.ScreenWidth*vm.ScreenHeight)
	fillPixels(dst, d.Frame(), fg, bg)

	assert.Equal(t, byte(1), dst[0])
	assert.Equal(t, byte(2), dst[1])
	assert.Equal(t, byte(3), dst[2])
	assert.Equal(t, byte(0xbe), dst[4])
	assert.Equal(t, byte(0xa7), dst[5])
	assert.Equal(t, byte(0), dst[6])
	assert.Equal(t, byte(0xff), dst[7])
}

func TestKeyMapIsComplete(t *testing.T) {
	seen := map[ebiten.Key]bool{}
	for _, key := range keyMap {
		seen[key] = true
	}
	assert.Equal(t, vm.KeyCount, len(seen))
}

func TestStatusText(t *testing.T) {
	// jump to self
	emu, err := emulator.New([]byte{0x12, 0x00}, emulator.Options{StepsPerFrame: 1})
	assert.NoError(t, err)
	assert.Equal(t, "", statusText(emu))

	emu.TogglePause()
	assert.Equal(t, "paused", statusText(emu))
	emu.TogglePause()

	assert.NoError(t, emu.Frame())
	assert.Equal(t, "program finished", statusText(emu))

	halting, err := emulator.New([]byte{0x00, 0xEE}, emulator.Options{StepsPerFrame: 1})
	assert.NoError(t, err)
	assert.Error(t, halting.Frame())
	assert.True(t, strings.HasPrefix(statusText(halting), "halted: "))
}
