// Package oto plays a stepsynth.Renderer on the default audio device through
// oto.
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/stepsynth"
)

type (
	// OtoContext is an open audio device.
	OtoContext struct {
		ctx    *oto.Context
		mu     sync.Mutex
		player *oto.Player
	}

	// reader renders on demand whenever the player needs more bytes.
	reader struct {
		renderer  stepsynth.Renderer
		floats    []float32
		tmpBuffer []byte
	}
)

// otoBufferSize is the device buffer in frames
const otoBufferSize = 1024

var _ stepsynth.AudioOutput = (*OtoContext)(nil)

// NewContext opens the default device for mono float32 output and waits
// until it is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx}, nil
}

// Play starts pulling audio from r; a previous renderer is stopped.
func (c *OtoContext) Play(r stepsynth.Renderer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		if err := c.player.Close(); err != nil {
			return fmt.Errorf("cannot close oto player: %w", err)
		}
	}
	c.player = c.ctx.NewPlayer(&reader{renderer: r})
	c.player.Play()
	if err := c.player.Err(); err != nil {
		return fmt.Errorf("cannot start oto player: %w", err)
	}
	return nil
}

// Close stops the player and suspends the device.
func (c *OtoContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		if err := c.player.Close(); err != nil {
			return fmt.Errorf("cannot close oto player: %w", err)
		}
		c.player = nil
	}
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (r *reader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(r.floats) < n {
		r.floats = make([]float32, n)
	}
	r.floats = r.floats[:n]
	r.renderer.Render(r.floats)
	// we reuse the old capacity tmpBuffer by setting its length to zero
	r.tmpBuffer = FloatBufferToFloat32LE(r.floats, r.tmpBuffer[:0])
	return copy(p, r.tmpBuffer), nil
}
