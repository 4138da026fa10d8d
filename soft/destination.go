package soft

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/stepsynth"
)

type (
	// Decibel is a level relative to full scale.
	Decibel float32

	// Destination is the output of the context. It sums its inputs and
	// tracks their peak level.
	Destination struct {
		*core
		peak float32
		abs  []float32
	}
)

var _ stepsynth.AudioNode = (*Destination)(nil)

func newDestination(c *Context) *Destination {
	d := &Destination{abs: make([]float32, blockSize)}
	d.core = c.newCore(d.process)
	return d
}

func (d *Destination) Connect(dest stepsynth.AudioNode)  {}
func (d *Destination) ConnectParam(p stepsynth.Param)    {}
func (d *Destination) Disconnect()                       {}
func (d *Destination) DisconnectParam(p stepsynth.Param) {}

func (d *Destination) process(blk uint64, t0 float64, out []float32) {
	d.mix(blk, t0, out)
	abs := d.abs[:len(out)]
	copy(abs, out)
	vek32.Abs_Inplace(abs)
	d.peak = max(d.peak, vek32.Max(abs))
}

// Peak returns the peak level of the output since the previous call.
func (d *Destination) Peak() Decibel {
	d.ctx.mu.Lock()
	p := d.peak
	d.peak = 0
	d.ctx.mu.Unlock()
	return Decibel(20 * math.Log10(float64(p)))
}
