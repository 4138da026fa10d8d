package soft

import (
	"math"

	"github.com/vsariola/stepsynth"
)

type (
	BiquadFilter struct {
		*core
		typ       stepsynth.FilterType
		frequency *Param
		q         *Param
		gain      *Param
		state     biquadState
	}

	biquadState struct {
		x1, x2, y1, y2 float32
	}

	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}
)

// coefficients are recomputed every chunk frames
const chunk = 32

var _ stepsynth.BiquadFilter = (*BiquadFilter)(nil)

func (c *Context) CreateBiquadFilter() stepsynth.BiquadFilter {
	f := &BiquadFilter{typ: stepsynth.Lowpass, frequency: c.newParam(350), q: c.newParam(1), gain: c.newParam(0)}
	f.core = c.newCore(f.process)
	return f
}

func (f *BiquadFilter) Connect(dest stepsynth.AudioNode)  { f.connect(dest) }
func (f *BiquadFilter) ConnectParam(p stepsynth.Param)    { f.connectParam(p) }
func (f *BiquadFilter) Disconnect()                       { f.disconnect() }
func (f *BiquadFilter) DisconnectParam(p stepsynth.Param) { f.disconnectParam(p) }
func (f *BiquadFilter) Frequency() stepsynth.Param        { return f.frequency }
func (f *BiquadFilter) Q() stepsynth.Param                { return f.q }
func (f *BiquadFilter) Gain() stepsynth.Param             { return f.gain }

func (f *BiquadFilter) SetType(t stepsynth.FilterType) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.typ = t
}

func (f *BiquadFilter) process(blk uint64, t0 float64, out []float32) {
	f.mix(blk, t0, out)
	freq := f.frequency.fill(blk, t0, len(out))
	q := f.q.fill(blk, t0, len(out))
	gain := f.gain.fill(blk, t0, len(out))
	for i := 0; i < len(out); i += chunk {
		j := min(i+chunk, len(out))
		c := coefficients(f.typ, float64(freq[i]), float64(q[i]), float64(gain[i]), f.ctx.rate)
		f.state.Filter(out[i:j], c)
	}
}

// coefficients follows the Audio EQ Cookbook by Robert Bristow-Johnson, with
// the Q of the lowpass and highpass types in dB.
func coefficients(t stepsynth.FilterType, freq, q, gain, rate float64) biquadCoeff {
	freq = max(1, min(freq, rate/2*0.999))
	w0 := 2 * math.Pi * freq / rate
	cos, sin := math.Cos(w0), math.Sin(w0)
	a := math.Pow(10, gain/40)
	alpha := sin / (2 * max(q, 1e-4))
	var b0, b1, b2, a0, a1, a2 float64
	switch t {
	case stepsynth.Highpass:
		alpha = sin / (2 * math.Pow(10, q/20))
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case stepsynth.Bandpass:
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case stepsynth.Notch:
		b0, b1, b2 = 1, -2*cos, 1
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case stepsynth.Allpass:
		b0, b1, b2 = 1-alpha, -2*cos, 1+alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case stepsynth.Peaking:
		b0, b1, b2 = 1+alpha*a, -2*cos, 1-alpha*a
		a0, a1, a2 = 1+alpha/a, -2*cos, 1-alpha/a
	case stepsynth.Lowshelf:
		s := 2 * math.Sqrt(a) * sin / 2 * math.Sqrt2
		b0 = a * ((a + 1) - (a-1)*cos + s)
		b1 = 2 * a * ((a - 1) - (a+1)*cos)
		b2 = a * ((a + 1) - (a-1)*cos - s)
		a0 = (a + 1) + (a-1)*cos + s
		a1 = -2 * ((a - 1) + (a+1)*cos)
		a2 = (a + 1) + (a-1)*cos - s
	case stepsynth.Highshelf:
		s := 2 * math.Sqrt(a) * sin / 2 * math.Sqrt2
		b0 = a * ((a + 1) + (a-1)*cos + s)
		b1 = -2 * a * ((a - 1) + (a+1)*cos)
		b2 = a * ((a + 1) + (a-1)*cos - s)
		a0 = (a + 1) - (a-1)*cos + s
		a1 = 2 * ((a - 1) - (a+1)*cos)
		a2 = (a + 1) - (a-1)*cos - s
	default:
		alpha = sin / (2 * math.Pow(10, q/20))
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	}
	return biquadCoeff{
		b0: float32(b0 / a0), b1: float32(b1 / a0), b2: float32(b2 / a0),
		a1: float32(a1 / a0), a2: float32(a2 / a0),
	}
}

func (state *biquadState) Filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i := 0; i < len(buffer); i++ {
		x := buffer[i]
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}
