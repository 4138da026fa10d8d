package soft

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/stepsynth"
)

type (
	// generator is the start and stop schedule of a source node.
	generator struct {
		start, stop float64
	}

	Oscillator struct {
		*core
		generator
		wave      stepsynth.Waveform
		frequency *Param
		detune    *Param
		phase     float64
	}

	BufferSource struct {
		*core
		generator
		buffer       stepsynth.Buffer
		loop         bool
		playbackRate *Param
		detune       *Param
		pos          float64
		ended        bool
	}

	ConstantSource struct {
		*core
		generator
		offset *Param
	}

	Gain struct {
		*core
		gain *Param
	}

	// Buffer is mono or multichannel float32 audio.
	Buffer struct {
		rate float64
		data [][]float32
	}
)

var (
	_ stepsynth.Oscillator     = (*Oscillator)(nil)
	_ stepsynth.BufferSource   = (*BufferSource)(nil)
	_ stepsynth.ConstantSource = (*ConstantSource)(nil)
	_ stepsynth.Gain           = (*Gain)(nil)
	_ stepsynth.Buffer         = (*Buffer)(nil)
)

func newGenerator() generator { return generator{start: math.Inf(1), stop: math.Inf(1)} }

func (g *generator) active(t float64) bool { return t >= g.start && t < g.stop }

func (g *generator) doStart(c *Context, t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsInf(g.start, 1) {
		g.start = max(t, c.now())
	}
}

func (g *generator) doStop(c *Context, t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g.stop = max(t, c.now())
}

func (c *Context) CreateOscillator() stepsynth.Oscillator {
	o := &Oscillator{generator: newGenerator(), wave: stepsynth.Sine, frequency: c.newParam(440), detune: c.newParam(0)}
	o.core = c.newCore(o.process)
	return o
}

func (o *Oscillator) Connect(dest stepsynth.AudioNode)  { o.connect(dest) }
func (o *Oscillator) ConnectParam(p stepsynth.Param)    { o.connectParam(p) }
func (o *Oscillator) Disconnect()                       { o.disconnect() }
func (o *Oscillator) DisconnectParam(p stepsynth.Param) { o.disconnectParam(p) }
func (o *Oscillator) Start(t float64)                   { o.doStart(o.ctx, t) }
func (o *Oscillator) Stop(t float64)                    { o.doStop(o.ctx, t) }
func (o *Oscillator) Frequency() stepsynth.Param        { return o.frequency }
func (o *Oscillator) Detune() stepsynth.Param           { return o.detune }

func (o *Oscillator) SetType(w stepsynth.Waveform) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.wave = w
}

func (o *Oscillator) process(blk uint64, t0 float64, out []float32) {
	freq := o.frequency.fill(blk, t0, len(out))
	det := o.detune.fill(blk, t0, len(out))
	dt := 1 / o.ctx.rate
	for i := range out {
		t := t0 + float64(i)*dt
		if !o.active(t) {
			out[i] = 0
			continue
		}
		out[i] = float32(waveform(o.wave, o.phase))
		f := float64(freq[i]) * math.Exp2(float64(det[i])/1200)
		o.phase += f * dt
		o.phase -= math.Floor(o.phase)
	}
}

func waveform(w stepsynth.Waveform, phase float64) float64 {
	switch w {
	case stepsynth.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case stepsynth.Sawtooth:
		return 2*phase - 1
	case stepsynth.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	}
	return math.Sin(2 * math.Pi * phase)
}

func (c *Context) CreateBufferSource() stepsynth.BufferSource {
	s := &BufferSource{generator: newGenerator(), playbackRate: c.newParam(1), detune: c.newParam(0)}
	s.core = c.newCore(s.process)
	return s
}

func (s *BufferSource) Connect(dest stepsynth.AudioNode)  { s.connect(dest) }
func (s *BufferSource) ConnectParam(p stepsynth.Param)    { s.connectParam(p) }
func (s *BufferSource) Disconnect()                       { s.disconnect() }
func (s *BufferSource) DisconnectParam(p stepsynth.Param) { s.disconnectParam(p) }
func (s *BufferSource) Start(t float64)                   { s.doStart(s.ctx, t) }
func (s *BufferSource) Stop(t float64)                    { s.doStop(s.ctx, t) }
func (s *BufferSource) PlaybackRate() stepsynth.Param     { return s.playbackRate }
func (s *BufferSource) Detune() stepsynth.Param           { return s.detune }

func (s *BufferSource) SetBuffer(b stepsynth.Buffer) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.buffer = b
}

func (s *BufferSource) SetLoop(loop bool) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.loop = loop
}

func (s *BufferSource) process(blk uint64, t0 float64, out []float32) {
	rate := s.playbackRate.fill(blk, t0, len(out))
	det := s.detune.fill(blk, t0, len(out))
	vek32.Zeros_Into(out, len(out))
	if s.buffer == nil || s.buffer.Length() == 0 || s.buffer.NumChannels() == 0 {
		return
	}
	data := s.buffer.ChannelData(0)
	step := s.buffer.SampleRate() / s.ctx.rate
	dt := 1 / s.ctx.rate
	for i := range out {
		if s.ended || !s.active(t0+float64(i)*dt) {
			continue
		}
		n := float64(len(data))
		if s.pos >= n || s.pos < 0 {
			if !s.loop {
				s.ended = true
				continue
			}
			s.pos -= math.Floor(s.pos/n) * n
		}
		j := int(s.pos)
		frac := float32(s.pos - float64(j))
		next := j + 1
		if next >= len(data) {
			next = 0
			if !s.loop {
				next = j
			}
		}
		out[i] = data[j] + (data[next]-data[j])*frac
		s.pos += float64(rate[i]) * math.Exp2(float64(det[i])/1200) * step
	}
}

func (c *Context) CreateConstantSource() stepsynth.ConstantSource {
	s := &ConstantSource{generator: newGenerator(), offset: c.newParam(1)}
	s.core = c.newCore(s.process)
	return s
}

func (s *ConstantSource) Connect(dest stepsynth.AudioNode)  { s.connect(dest) }
func (s *ConstantSource) ConnectParam(p stepsynth.Param)    { s.connectParam(p) }
func (s *ConstantSource) Disconnect()                       { s.disconnect() }
func (s *ConstantSource) DisconnectParam(p stepsynth.Param) { s.disconnectParam(p) }
func (s *ConstantSource) Start(t float64)                   { s.doStart(s.ctx, t) }
func (s *ConstantSource) Stop(t float64)                    { s.doStop(s.ctx, t) }
func (s *ConstantSource) Offset() stepsynth.Param           { return s.offset }

func (s *ConstantSource) process(blk uint64, t0 float64, out []float32) {
	off := s.offset.fill(blk, t0, len(out))
	dt := 1 / s.ctx.rate
	for i := range out {
		if s.active(t0 + float64(i)*dt) {
			out[i] = off[i]
		} else {
			out[i] = 0
		}
	}
}

func (c *Context) CreateGain() stepsynth.Gain {
	g := &Gain{gain: c.newParam(1)}
	g.core = c.newCore(g.process)
	return g
}

func (g *Gain) Connect(dest stepsynth.AudioNode)  { g.connect(dest) }
func (g *Gain) ConnectParam(p stepsynth.Param)    { g.connectParam(p) }
func (g *Gain) Disconnect()                       { g.disconnect() }
func (g *Gain) DisconnectParam(p stepsynth.Param) { g.disconnectParam(p) }
func (g *Gain) Gain() stepsynth.Param             { return g.gain }

func (g *Gain) process(blk uint64, t0 float64, out []float32) {
	g.mix(blk, t0, out)
	vek32.Mul_Inplace(out, g.gain.fill(blk, t0, len(out)))
}

// CreateBuffer allocates a silent buffer at the sample rate of the context.
func (c *Context) CreateBuffer(channels, frames int) stepsynth.Buffer {
	b := &Buffer{rate: c.rate, data: make([][]float32, channels)}
	for i := range b.data {
		b.data[i] = make([]float32, frames)
	}
	return b
}

func (b *Buffer) NumChannels() int    { return len(b.data) }
func (b *Buffer) SampleRate() float64 { return b.rate }

func (b *Buffer) Length() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// ChannelData returns the samples of a channel; writing to them changes the
// buffer.
func (b *Buffer) ChannelData(channel int) []float32 { return b.data[channel] }
