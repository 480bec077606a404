package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapitanov/chip8vm/internal/audio"
	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/ebitenui"
	"github.com/kapitanov/chip8vm/internal/emulator"
	"github.com/kapitanov/chip8vm/internal/hal"
	"github.com/kapitanov/chip8vm/internal/termhal"
)

type runOptions struct {
	configPath string
	cfg        config.Config
	mute       bool
	noWrap     bool
	noFlag     bool
}

func addRunFlags(cmd *cobra.Command) *runOptions {
	opts := &runOptions{cfg: config.Default()}
	flags := cmd.Flags()

	flags.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	flags.StringVar(&opts.cfg.Frontend, "frontend", opts.cfg.Frontend, "frontend: sdl, ebiten or terminal")
	flags.IntVar(&opts.cfg.CPUHz, "cpu-hz", opts.cfg.CPUHz, "instructions per second")
	flags.IntVar(&opts.cfg.Scale, "scale", opts.cfg.Scale, "window pixels per CHIP-8 pixel")
	flags.Uint64Var(&opts.cfg.Seed, "seed", 0, "random seed, 0 picks one from the clock")
	flags.BoolVar(&opts.mute, "mute", false, "disable sound")

	flags.BoolVar(&opts.cfg.Quirks.ShiftUsesVY, "shift-vy", false, "8XY6/8XYE shift VY into VX")
	flags.BoolVar(&opts.cfg.Quirks.JumpUsesVX, "jump-vx", false, "BXNN jumps to XNN + VX")
	flags.BoolVar(&opts.cfg.Quirks.LoadStoreIncrementsIndex, "load-store-inc", false, "FX55/FX65 advance I")
	flags.BoolVar(&opts.cfg.Quirks.LogicResetsFlag, "logic-vf-reset", false, "8XY1/2/3 reset VF")
	flags.BoolVar(&opts.noWrap, "no-index-wrap", false, "FX1E does not wrap I at 0xFFF")
	flags.BoolVar(&opts.noFlag, "no-index-flag", false, "FX1E leaves VF untouched")

	return opts
}

// resolveConfig loads the config file, if any, and applies the flags that
// were set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, opts *runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	overrides := map[string]func(){
		"frontend":       func() { cfg.Frontend = opts.cfg.Frontend },
		"cpu-hz":         func() { cfg.CPUHz = opts.cfg.CPUHz },
		"scale":          func() { cfg.Scale = opts.cfg.Scale },
		"seed":           func() { cfg.Seed = opts.cfg.Seed },
		"mute":           func() { cfg.Audio.Enabled = !opts.mute },
		"shift-vy":       func() { cfg.Quirks.ShiftUsesVY = opts.cfg.Quirks.ShiftUsesVY },
		"jump-vx":        func() { cfg.Quirks.JumpUsesVX = opts.cfg.Quirks.JumpUsesVX },
		"load-store-inc": func() { cfg.Quirks.LoadStoreIncrementsIndex = opts.cfg.Quirks.LoadStoreIncrementsIndex },
		"logic-vf-reset": func() { cfg.Quirks.LogicResetsFlag = opts.cfg.Quirks.LogicResetsFlag },
		"no-index-wrap":  func() { cfg.Quirks.IndexWrap = !opts.noWrap },
		"no-index-flag":  func() { cfg.Quirks.IndexOverflowFlag = !opts.noFlag },
	}
	for name, apply := range overrides {
		if flags.Changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, path string, opts *runOptions) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to load file %q: %w", path, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	slog.Debug("random seed", "seed", seed)

	var beeper emulator.Beeper = audio.Silent{}
	if cfg.Audio.Enabled {
		b, err := audio.New(cfg.Audio)
		if err != nil {
			slog.Warn("audio disabled", "err", err)
		} else {
			defer b.Close()
			beeper = b
		}
	}

	emu, err := emulator.New(bs, emulator.Options{
		StepsPerFrame: cfg.StepsPerFrame(),
		Quirks:        cfg.Quirks,
		Random:        rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		Beeper:        beeper,
	})
	if err != nil {
		return fmt.Errorf("unable to start %q: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("start", "rom", path, "frontend", cfg.Frontend, "cpu_hz", cfg.CPUHz)

	switch cfg.Frontend {
	case config.FrontendEbiten:
		g, err := ebitenui.New(emu, cfg)
		if err != nil {
			return fmt.Errorf("unable to initialize ebiten: %w", err)
		}
		return g.Run()

	case config.FrontendTerminal:
		h, err := termhal.New(os.Stdin, os.Stdout)
		if err != nil {
			return fmt.Errorf("unable to initialize terminal: %w", err)
		}
		defer h.Shutdown()
		return emu.Run(ctx, h)

	default:
		h, err := hal.New(cfg)
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()
		return emu.Run(ctx, h)
	}
}
