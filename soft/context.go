// Package soft is an audio backend written in Go: it renders the node graph
// block by block into a mono float32 stream. Time only advances by rendering,
// so driving Render from an audio device callback gives a live backend and
// driving it in a loop gives an offline one.
package soft

import (
	"log/slog"
	"sync"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/stepsynth"
)

type (
	Config struct {
		SampleRate int          `yaml:"sampleRate"`
		Logger     *slog.Logger `yaml:"-"`
	}

	// Context implements stepsynth.Context. A single mutex guards the graph:
	// the control thread edits it between blocks and the render thread
	// holds the lock while rendering a buffer.
	Context struct {
		mu    sync.Mutex
		rate  float64
		frame int64
		block uint64
		dest  *Destination
		log   *slog.Logger
	}

	// core is the part of a node that takes part in rendering: a processing
	// function over the summed inputs and a cache of the output of the
	// current block.
	core struct {
		ctx      *Context
		ins      []*core
		outs     []*core
		params   []*Param
		process  func(blk uint64, t0 float64, out []float32)
		buf      []float32
		rendered uint64
	}

	// node is implemented by every AudioNode of this backend.
	node interface{ soft() *core }
)

const (
	DefaultSampleRate = 44100
	blockSize         = 128
)

var _ stepsynth.Context = (*Context)(nil)

func New(cfg Config) *Context {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Context{rate: float64(cfg.SampleRate), log: cfg.Logger}
	c.dest = newDestination(c)
	return c
}

func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

func (c *Context) now() float64 { return float64(c.frame) / c.rate }

func (c *Context) SampleRate() float64 { return c.rate }

func (c *Context) Destination() stepsynth.AudioNode { return c.dest }

// Meter returns the peak meter of the output.
func (c *Context) Meter() *Destination { return c.dest }

// Render renders the next len(buffer) frames and advances the clock by as
// much.
func (c *Context) Render(buffer []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(buffer) > 0 {
		n := min(len(buffer), blockSize)
		c.block++
		out := c.dest.pull(c.block, c.now(), n)
		copy(buffer, out)
		c.frame += int64(n)
		buffer = buffer[n:]
	}
}

// Advance renders d seconds of audio and throws it away.
func (c *Context) Advance(d float64) {
	var buf [blockSize]float32
	frames := int64(d*c.rate + 0.5)
	for frames > 0 {
		n := min(frames, blockSize)
		c.Render(buf[:n])
		frames -= n
	}
}

func (c *Context) newCore(process func(blk uint64, t0 float64, out []float32)) *core {
	return &core{ctx: c, process: process, buf: make([]float32, blockSize)}
}

func (n *core) soft() *core { return n }

func (n *core) pull(blk uint64, t0 float64, size int) []float32 {
	out := n.buf[:size]
	if n.rendered == blk {
		return out
	}
	n.rendered = blk
	n.process(blk, t0, out)
	return out
}

// mix sums the inputs of the node into out.
func (n *core) mix(blk uint64, t0 float64, out []float32) {
	vek32.Zeros_Into(out, len(out))
	for _, in := range n.ins {
		vek32.Add_Inplace(out, in.pull(blk, t0, len(out)))
	}
}

func (n *core) connect(dest stepsynth.AudioNode) {
	d, ok := dest.(node)
	if !ok {
		panic("soft: cannot connect to a node of another backend")
	}
	dc := d.soft()
	if dc.ctx != n.ctx {
		panic("soft: cannot connect nodes of different contexts")
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, o := range n.outs {
		if o == dc {
			return
		}
	}
	n.outs = append(n.outs, dc)
	dc.ins = append(dc.ins, n)
}

func (n *core) connectParam(p stepsynth.Param) {
	sp, ok := p.(*Param)
	if !ok {
		panic("soft: cannot connect to a parameter of another backend")
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, o := range n.params {
		if o == sp {
			return
		}
	}
	n.params = append(n.params, sp)
	sp.ins = append(sp.ins, n)
}

func (n *core) disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, o := range n.outs {
		o.ins = remove(o.ins, n)
	}
	for _, p := range n.params {
		p.ins = remove(p.ins, n)
	}
	n.outs, n.params = nil, nil
}

func (n *core) disconnectParam(p stepsynth.Param) {
	sp, ok := p.(*Param)
	if !ok {
		return
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.params = remove(n.params, sp)
	sp.ins = remove(sp.ins, n)
}

func remove[T comparable](s []T, v T) []T {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
