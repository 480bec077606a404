// Package ebitenui is the Ebitengine frontend. Ebitengine owns the main loop
// here: Update runs one emulator frame per tick at 60 TPS.
package ebitenui

import (
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/vm"
)

// Physical                Logical
// ================        =================
// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
// | q | w | e | r |       | 4 | 5 | 6 | D |
// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
// | z | x | c | v |       | A | 0 | B | F |
// ================        =================
var keyMap = [vm.KeyCount]ebiten.Key{
	vm.Key0: ebiten.KeyX,
	vm.Key1: ebiten.Key1,
	vm.Key2: ebiten.Key2,
	vm.Key3: ebiten.Key3,
	vm.Key4: ebiten.KeyQ,
	vm.Key5: ebiten.KeyW,
	vm.Key6: ebiten.KeyE,
	vm.Key7: ebiten.KeyA,
	vm.Key8: ebiten.KeyS,
	vm.Key9: ebiten.KeyD,
	vm.KeyA: ebiten.KeyZ,
	vm.KeyB: ebiten.KeyC,
	vm.KeyC: ebiten.Key4,
	vm.KeyD: ebiten.KeyR,
	vm.KeyE: ebiten.KeyF,
	vm.KeyF: ebiten.KeyV,
}

var statusColor = color.RGBA{190, 190, 190, 255}

// Game implements ebiten.Game.
type Game struct {
	emu    *emulator.Emulator
	scale  int
	fg, bg color.RGBA
	pixels []byte
	screen *ebiten.Image
}

func New(emu *emulator.Emulator, cfg config.Config) (*Game, error) {
	fg, err := config.ParseColor(cfg.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := config.ParseColor(cfg.Background)
	if err != nil {
		return nil, err
	}

	return &Game{
		emu:    emu,
		scale:  cfg.Scale,
		fg:     fg,
		bg:     bg,
		pixels: make([]byte, 4*vm.ScreenWidth*vm.ScreenHeight),
		screen: ebiten.NewImage(vm.ScreenWidth, vm.ScreenHeight),
	}, nil
}

// Run opens the window and blocks until it is closed.
func (g *Game) Run() error {
	ebiten.SetWindowTitle("CHIP-8")
	ebiten.SetWindowSize(vm.ScreenWidth*g.scale, vm.ScreenHeight*g.scale)
	ebiten.SetTPS(emulator.TimerHz)

	slog.Debug("ebitenui: run game")
	return ebiten.RunGame(g)
}

func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if err := g.emu.Reboot(); err != nil {
			return err
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.emu.TogglePause()
	}

	for k, key := range keyMap {
		if inpututil.IsKeyJustPressed(key) {
			g.emu.KeyDown(vm.Key(k))
		}
		if inpututil.IsKeyJustReleased(key) {
			g.emu.KeyUp(vm.Key(k))
		}
	}

	if err := g.emu.Frame(); err != nil {
		slog.Error("program halted", "err", err)
	}

	if frame, dirty := g.emu.Snapshot(); dirty {
		fillPixels(g.pixels, frame, g.fg, g.bg)
		g.screen.WritePixels(g.pixels)
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.screen, op)

	if status := statusText(g.emu); status != "" {
		text.Draw(screen, status, basicfont.Face7x13, 4, 14, statusColor)
	}
}

func (g *Game) Layout(_, _ int) (int, int) {
	return vm.ScreenWidth * g.scale, vm.ScreenHeight * g.scale
}

// fillPixels converts frame to RGBA bytes.
func fillPixels(dst []byte, frame vm.Frame, fg, bg color.RGBA) {
	for i, px := range frame {
		c := bg
		if px != 0 {
			c = fg
		}
		dst[4*i] = c.R
		dst[4*i+1] = c.G
		dst[4*i+2] = c.B
		dst[4*i+3] = c.A
	}
}

func statusText(emu *emulator.Emulator) string {
	switch {
	case emu.Halted() != nil:
		return "halted: " + emu.Halted().Error()
	case emu.Paused():
		return "paused"
	case emu.Looped():
		return "program finished"
	default:
		return ""
	}
}
