package soft

import (
	"math"
	"slices"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/stepsynth"
)

type (
	// Param is an automatable parameter. Its value at a time is given by the
	// automation events, or by the intrinsic value before the first event;
	// when rendering, the outputs of the nodes connected to it are added.
	Param struct {
		ctx    *Context
		value  float64
		events []event
		ins    []*core
		buf    []float32
		filled uint64
	}

	event struct {
		kind eventKind
		v, t float64
	}

	eventKind int
)

const (
	setEvent eventKind = iota
	linearEvent
	expEvent
)

var _ stepsynth.Param = (*Param)(nil)

func (c *Context) newParam(v float64) *Param {
	return &Param{ctx: c, value: v, buf: make([]float32, blockSize)}
}

// Value returns the automated value at the current time. Connected inputs
// are not included.
func (p *Param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.at(p.ctx.now())
}

func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.value = v
	if len(p.events) > 0 {
		p.insert(event{setEvent, v, p.ctx.now()})
	}
}

func (p *Param) SetValueAtTime(v, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(event{setEvent, v, t})
}

func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(event{linearEvent, v, t})
}

func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(event{expEvent, v, t})
}

func (p *Param) CancelScheduledValues(t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.events = slices.DeleteFunc(p.events, func(e event) bool { return e.t >= t })
}

// insert keeps the events sorted by time; events at equal times stay in the
// order they were scheduled.
func (p *Param) insert(e event) {
	i, _ := slices.BinarySearchFunc(p.events, e.t, func(a event, t float64) int {
		if a.t <= t {
			return -1
		}
		return 1
	})
	p.events = slices.Insert(p.events, i, e)
}

// at evaluates the automation at t.
func (p *Param) at(t float64) float64 {
	// i is the index of the first event after t
	i, _ := slices.BinarySearchFunc(p.events, t, func(a event, t float64) int {
		if a.t <= t {
			return -1
		}
		return 1
	})
	v0, t0 := p.value, 0.0
	if i > 0 {
		v0, t0 = p.events[i-1].v, p.events[i-1].t
	}
	if i == len(p.events) {
		return v0
	}
	next := p.events[i]
	switch next.kind {
	case linearEvent:
		if i == 0 {
			return v0
		}
		return v0 + (next.v-v0)*(t-t0)/(next.t-t0)
	case expEvent:
		if i == 0 || v0 == 0 || (v0 < 0) != (next.v < 0) {
			return v0
		}
		return v0 * math.Pow(next.v/v0, (t-t0)/(next.t-t0))
	}
	return v0
}

// fill computes the values of the block starting at t0, including the
// connected inputs.
func (p *Param) fill(blk uint64, t0 float64, size int) []float32 {
	out := p.buf[:size]
	if p.filled == blk {
		return out
	}
	p.filled = blk
	p.prune(t0)
	if len(p.events) == 0 || (len(p.events) == 1 && p.events[0].t <= t0) {
		v := float32(p.at(t0))
		for i := range out {
			out[i] = v
		}
	} else {
		for i := range out {
			out[i] = float32(p.at(t0 + float64(i)/p.ctx.rate))
		}
	}
	for _, in := range p.ins {
		vek32.Add_Inplace(out, in.pull(blk, t0, size))
	}
	return out
}

// prune drops the events before the last one at or before t; later ramps
// only need their predecessor.
func (p *Param) prune(t float64) {
	i := 0
	for i+1 < len(p.events) && p.events[i+1].t <= t {
		i++
	}
	if i > 0 {
		p.events = slices.Delete(p.events, 0, i)
	}
}
