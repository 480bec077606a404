// Package config holds emulator settings: defaults, an optional JSON file
// and validation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/kapitanov/chip8vm/internal/vm"
)

const (
	FrontendSDL      = "sdl"
	FrontendEbiten   = "ebiten"
	FrontendTerminal = "terminal"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	CPUHz      int       `json:"cpu_hz"`
	Frontend   string    `json:"frontend"`
	Scale      int       `json:"scale"`
	Foreground string    `json:"foreground"`
	Background string    `json:"background"`
	Seed       uint64    `json:"seed"` // 0 picks a time based seed
	Audio      Audio     `json:"audio"`
	Quirks     vm.Quirks `json:"quirks"`
}

type Audio struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sample_rate"`
	ToneHz     float64 `json:"tone_hz"`
	Volume     float64 `json:"volume"`
}

func Default() Config {
	return Config{
		CPUHz:      700,
		Frontend:   FrontendSDL,
		Scale:      16,
		Foreground: "#bea700",
		Background: "#000000",
		Audio: Audio{
			Enabled:    true,
			SampleRate: 44100,
			ToneHz:     440,
			Volume:     0.2,
		},
		Quirks: vm.DefaultQuirks(),
	}
}

// Load reads a JSON file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config %q: %w", path, err)
	}

	if err := json.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config %q: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.CPUHz < 60 || c.CPUHz > 100_000 {
		return fmt.Errorf("%w: cpu_hz %d not in 60..100000", ErrInvalid, c.CPUHz)
	}

	switch c.Frontend {
	case FrontendSDL, FrontendEbiten, FrontendTerminal:
	default:
		return fmt.Errorf("%w: unknown frontend %q", ErrInvalid, c.Frontend)
	}

	if c.Scale < 1 || c.Scale > 64 {
		return fmt.Errorf("%w: scale %d not in 1..64", ErrInvalid, c.Scale)
	}

	if _, err := ParseColor(c.Foreground); err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	if _, err := ParseColor(c.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}

	if c.Audio.Enabled {
		if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192_000 {
			return fmt.Errorf("%w: sample_rate %d not in 8000..192000", ErrInvalid, c.Audio.SampleRate)
		}
		if c.Audio.ToneHz <= 0 || c.Audio.ToneHz >= float64(c.Audio.SampleRate)/2 {
			return fmt.Errorf("%w: tone_hz %g", ErrInvalid, c.Audio.ToneHz)
		}
		if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
			return fmt.Errorf("%w: volume %g not in 0..1", ErrInvalid, c.Audio.Volume)
		}
	}

	return nil
}

// StepsPerFrame is the number of instructions to run per 60 Hz timer tick.
func (c Config) StepsPerFrame() int {
	return max(1, c.CPUHz/60)
}

// ParseColor parses "#rrggbb".
func ParseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: colour %q is not #rrggbb", ErrInvalid, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: colour %q: %w", ErrInvalid, s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}
