// Package audio plays the CHIP-8 buzzer: a square wave that sounds while
// the sound timer is running.
package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/kapitanov/chip8vm/internal/config"
)

// Beeper streams a square wave through oto. It implements emulator.Beeper.
type Beeper struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *tone
	active atomic.Bool
	mutex  sync.Mutex
}

func New(cfg config.Audio) (*Beeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	<-ready
	slog.Debug("audio: context ready", "sample_rate", cfg.SampleRate)

	b := &Beeper{
		ctx:  ctx,
		tone: newTone(cfg.SampleRate, cfg.ToneHz, cfg.Volume),
	}
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	return b, nil
}

func (b *Beeper) SetActive(on bool) {
	b.active.Store(on)
}

// Read is called by oto from its own goroutine.
func (b *Beeper) Read(p []byte) (int, error) {
	n := len(p) / 4
	samples := make([]float32, n)
	b.tone.fill(samples, b.active.Load())

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

func (b *Beeper) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.player == nil {
		return
	}
	b.active.Store(false)
	if err := b.player.Close(); err != nil {
		slog.Error("failed to close audio player", "err", err)
	}
	b.player = nil
}

// Silent is used when audio is disabled or unavailable.
type Silent struct{}

func (Silent) SetActive(bool) {}

type tone struct {
	step   float64
	phase  float64
	volume float32
}

func newTone(sampleRate int, hz, volume float64) *tone {
	return &tone{
		step:   hz / float64(sampleRate),
		volume: float32(volume),
	}
}

// fill writes the next len(samples) samples. The phase keeps running while
// muted so the wave restarts without a click.
func (t *tone) fill(samples []float32, on bool) {
	for i := range samples {
		switch {
		case !on:
			samples[i] = 0
		case t.phase < 0.5:
			samples[i] = t.volume
		default:
			samples[i] = -t.volume
		}

		t.phase += t.step
		if t.phase >= 1 {
			t.phase -= 1
		}
	}
}
