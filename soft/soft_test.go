package soft_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/soft"
)

const rate = 1000

func newContext() *soft.Context {
	return soft.New(soft.Config{SampleRate: rate})
}

func TestRenderAdvancesTime(t *testing.T) {
	c := newContext()
	buf := make([]float32, 300)
	c.Render(buf)
	assert.InDelta(t, 0.3, c.CurrentTime(), 1e-9)
	c.Advance(0.7)
	assert.InDelta(t, 1.0, c.CurrentTime(), 1e-9)
}

func TestLinearRamp(t *testing.T) {
	c := newContext()
	g := c.CreateGain()
	p := g.Gain()
	p.SetValueAtTime(0, 1)
	p.LinearRampToValueAtTime(1, 2)
	assert.Equal(t, 1.0, p.Value(), "before the first event the intrinsic value applies")
	c.Advance(1.5)
	assert.InDelta(t, 0.5, p.Value(), 1e-9)
	c.Advance(1)
	assert.InDelta(t, 1, p.Value(), 1e-9)
}

func TestExponentialRamp(t *testing.T) {
	c := newContext()
	p := c.CreateGain().Gain()
	p.SetValueAtTime(1, 0)
	p.ExponentialRampToValueAtTime(0.01, 2)
	c.Advance(1)
	assert.InDelta(t, 0.1, p.Value(), 1e-9)
}

func TestCancelScheduledValues(t *testing.T) {
	c := newContext()
	p := c.CreateGain().Gain()
	p.SetValueAtTime(0.5, 0)
	p.LinearRampToValueAtTime(1, 1)
	p.CancelScheduledValues(0.5)
	c.Advance(0.8)
	assert.InDelta(t, 0.5, p.Value(), 1e-9)
}

func TestConstantSourceModulatesParam(t *testing.T) {
	c := newContext()
	dc := c.CreateConstantSource()
	dc.Offset().SetValue(0.25)
	dc.Start(0)
	src := c.CreateConstantSource()
	src.Start(0)
	g := c.CreateGain()
	g.Gain().SetValue(0.5)
	src.Connect(g)
	dc.ConnectParam(g.Gain())
	g.Connect(c.Destination())
	buf := make([]float32, 10)
	c.Render(buf)
	for _, v := range buf {
		assert.InDelta(t, 0.75, v, 1e-6)
	}
	dc.DisconnectParam(g.Gain())
	c.Render(buf)
	assert.InDelta(t, 0.5, buf[9], 1e-6)
	g.Disconnect()
	c.Render(buf)
	assert.Equal(t, float32(0), buf[9])
}

func TestOscillatorStartStop(t *testing.T) {
	c := newContext()
	o := c.CreateOscillator()
	o.SetType(stepsynth.Square)
	o.Frequency().SetValue(10)
	o.Connect(c.Destination())
	o.Start(0.1)
	o.Stop(0.2)
	buf := make([]float32, 300)
	c.Render(buf)
	assert.Equal(t, float32(0), buf[99])
	assert.Equal(t, float32(1), buf[100])
	assert.Equal(t, float32(-1), buf[160])
	assert.Equal(t, float32(0), buf[250])
}

func TestSineAmplitude(t *testing.T) {
	c := newContext()
	o := c.CreateOscillator()
	o.Frequency().SetValue(50)
	o.Connect(c.Destination())
	o.Start(0)
	buf := make([]float32, 1000)
	c.Render(buf)
	assert.InDelta(t, 0, float64(c.Meter().Peak()), 0.01)
	assert.True(t, math.IsInf(float64(c.Meter().Peak()), -1), "the peak is reset when read")
}

func TestLoopingBuffer(t *testing.T) {
	c := newContext()
	b := c.CreateBuffer(1, 4)
	copy(b.ChannelData(0), []float32{1, 2, 3, 4})
	s := c.CreateBufferSource()
	s.SetBuffer(b)
	s.SetLoop(true)
	s.Connect(c.Destination())
	s.Start(0)
	buf := make([]float32, 10)
	c.Render(buf)
	assert.Equal(t, []float32{1, 2, 3, 4, 1, 2, 3, 4, 1, 2}, buf)
}

func TestOneShotBufferEnds(t *testing.T) {
	c := newContext()
	b := c.CreateBuffer(1, 3)
	copy(b.ChannelData(0), []float32{1, 1, 1})
	s := c.CreateBufferSource()
	s.SetBuffer(b)
	s.Connect(c.Destination())
	s.Start(0)
	buf := make([]float32, 6)
	c.Render(buf)
	assert.Equal(t, []float32{1, 1, 1, 0, 0, 0}, buf)
}

func TestLowpassAttenuatesHighFrequencies(t *testing.T) {
	c := soft.New(soft.Config{SampleRate: 44100})
	o := c.CreateOscillator()
	o.Frequency().SetValue(10000)
	f := c.CreateBiquadFilter()
	f.SetType(stepsynth.Lowpass)
	f.Frequency().SetValue(200)
	o.Connect(f)
	f.Connect(c.Destination())
	o.Start(0)
	buf := make([]float32, 4410)
	c.Render(buf)
	c.Meter().Peak()
	c.Render(buf)
	require.NotEmpty(t, buf)
	assert.Less(t, float64(c.Meter().Peak()), -40.0)
}

func compress(t *testing.T, level float64) float32 {
	t.Helper()
	c := newContext()
	src := c.CreateConstantSource()
	src.Offset().SetValue(level)
	comp := c.CreateDynamicsCompressor()
	comp.Threshold().SetValue(-20)
	comp.Knee().SetValue(30)
	comp.Ratio().SetValue(12)
	comp.Attack().SetValue(0.01)
	comp.Release().SetValue(0.1)
	src.Connect(comp)
	comp.Connect(c.Destination())
	src.Start(0)
	buf := make([]float32, rate)
	c.Render(buf)
	return buf[len(buf)-1]
}

func TestCompressorAboveKnee(t *testing.T) {
	// 0 dB is 20 dB over the threshold and past the knee: -20 + 20/12 dB
	assert.InDelta(t, math.Pow(10, (-20+20.0/12)/20), compress(t, 1), 1e-3)
}

func TestCompressorInKnee(t *testing.T) {
	// -20 dB sits in the middle of the knee: 15 dB into it gives a
	// reduction of (1 - 1/12) * 15^2 / 60 dB
	want := math.Pow(10, (-20-(1-1.0/12)*15*15/60)/20)
	assert.InDelta(t, want, compress(t, 0.1), 1e-4)
}

func TestCompressorPassesQuietSignals(t *testing.T) {
	assert.InDelta(t, 0.01, compress(t, 0.01), 1e-6)
}
