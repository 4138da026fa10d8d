package session

import (
	"time"

	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/soft"
)

// Offline renders a session faster than real time: the control timers are
// virtual and advanced in lockstep with the rendered audio.
type Offline struct {
	Ctx    *soft.Context
	Timers *clock.Manual
	// Block is the number of frames rendered between timer advances.
	Block int
}

func NewOffline(cfg soft.Config) *Offline {
	ctx := soft.New(cfg)
	return &Offline{Ctx: ctx, Timers: clock.NewManual(), Block: int(ctx.SampleRate()) / 100}
}

// Render renders the next len(buffer) frames.
func (o *Offline) Render(buffer []float32) {
	rate := o.Ctx.SampleRate()
	block := max(o.Block, 1)
	for len(buffer) > 0 {
		n := min(len(buffer), block)
		o.Ctx.Render(buffer[:n])
		o.Timers.Advance(time.Duration(float64(n) / rate * float64(time.Second)))
		buffer = buffer[n:]
	}
}
