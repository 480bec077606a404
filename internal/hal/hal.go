// Package hal is the SDL frontend: a scaled window, the keyboard keypad and
// a couple of control keys.
package hal

import (
	"fmt"
	"image/color"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int
	fgColor         uint32
	bgColor         uint32
}

func New(cfg config.Config) (*HAL, error) {
	fg, err := config.ParseColor(cfg.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := config.ParseColor(cfg.Background)
	if err != nil {
		return nil, err
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	width := int32(vm.ScreenWidth * cfg.Scale)
	height := int32(vm.ScreenHeight * cfg.Scale)

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window", "width", width, "height", height)

	hal := &HAL{
		window:          window,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: vm.ScreenWidth * int(unsafe.Sizeof(uint32(0))),
		fgColor:         argb(fg),
		bgColor:         argb(bg),
	}

	hal.renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		hal.Shutdown()
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	if err := hal.renderer.SetLogicalSize(width, height); err != nil {
		hal.Shutdown()
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	hal.texture, err = hal.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		hal.Shutdown()
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	return hal, nil
}

func argb(c color.RGBA) uint32 {
	return 0xFF000000 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (hal *HAL) Shutdown() {
	if hal.texture != nil {
		if err := hal.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
	}

	if hal.renderer != nil {
		if err := hal.renderer.Destroy(); err != nil {
			slog.Error("failed to destroy sdl renderer", "err", err)
		}
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

// ReadInput drains the SDL event queue. Backspace reboots, P pauses, Escape
// or closing the window quits.
func (hal *HAL) ReadInput(in emulator.Input) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return emulator.ErrQuit

		case sdl.KEYDOWN:
			if err := hal.processKeyDown(e.(*sdl.KeyboardEvent), in); err != nil {
				return err
			}

		case sdl.KEYUP:
			if key, ok := keyMap(e.(*sdl.KeyboardEvent).Keysym.Scancode); ok {
				in.KeyUp(key)
			}
		}
	}

	return nil
}

func (hal *HAL) processKeyDown(e *sdl.KeyboardEvent, in emulator.Input) error {
	if e.Repeat != 0 {
		return nil
	}

	switch e.Keysym.Scancode {
	case sdl.SCANCODE_ESCAPE:
		return emulator.ErrQuit
	case sdl.SCANCODE_BACKSPACE:
		return emulator.ErrReboot
	case sdl.SCANCODE_P:
		in.TogglePause()
		return nil
	}

	if key, ok := keyMap(e.Keysym.Scancode); ok {
		in.KeyDown(key)
	}

	return nil
}

func keyMap(code sdl.Scancode) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(frame vm.Frame) error {
	for i, px := range frame {
		color := hal.bgColor
		if px != 0 {
			color = hal.fgColor
		}

		hal.backBuffer[i] = color
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}
