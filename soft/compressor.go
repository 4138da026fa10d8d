package soft

import (
	"math"

	"github.com/vsariola/stepsynth"
)

// DynamicsCompressor is a feed-forward compressor: a static gain curve with a
// quadratic soft knee over the instantaneous level in dB, and the gain
// reduction smoothed with separate attack and release time constants. The
// parameters are read once per block. There is no makeup gain.
type DynamicsCompressor struct {
	*core
	threshold, knee, ratio, attack, release *Param
	// reduction is the smoothed gain reduction in dB, >= 0
	reduction float64
}

var _ stepsynth.DynamicsCompressor = (*DynamicsCompressor)(nil)

// CreateDynamicsCompressor creates a compressor with the Web Audio defaults:
// threshold -24 dB, knee 30 dB, ratio 12, attack 3 ms and release 250 ms.
func (c *Context) CreateDynamicsCompressor() stepsynth.DynamicsCompressor {
	d := &DynamicsCompressor{
		threshold: c.newParam(-24),
		knee:      c.newParam(30),
		ratio:     c.newParam(12),
		attack:    c.newParam(0.003),
		release:   c.newParam(0.25),
	}
	d.core = c.newCore(d.process)
	return d
}

func (d *DynamicsCompressor) Connect(dest stepsynth.AudioNode)  { d.connect(dest) }
func (d *DynamicsCompressor) ConnectParam(p stepsynth.Param)    { d.connectParam(p) }
func (d *DynamicsCompressor) Disconnect()                       { d.disconnect() }
func (d *DynamicsCompressor) DisconnectParam(p stepsynth.Param) { d.disconnectParam(p) }
func (d *DynamicsCompressor) Threshold() stepsynth.Param        { return d.threshold }
func (d *DynamicsCompressor) Knee() stepsynth.Param             { return d.knee }
func (d *DynamicsCompressor) Ratio() stepsynth.Param            { return d.ratio }
func (d *DynamicsCompressor) Attack() stepsynth.Param           { return d.attack }
func (d *DynamicsCompressor) Release() stepsynth.Param          { return d.release }

// Reduction returns the current gain reduction in dB.
func (d *DynamicsCompressor) Reduction() Decibel {
	d.ctx.mu.Lock()
	defer d.ctx.mu.Unlock()
	return Decibel(d.reduction)
}

func (d *DynamicsCompressor) process(blk uint64, t0 float64, out []float32) {
	d.mix(blk, t0, out)
	n := len(out)
	thr := float64(d.threshold.fill(blk, t0, n)[0])
	knee := max(float64(d.knee.fill(blk, t0, n)[0]), 0)
	ratio := max(float64(d.ratio.fill(blk, t0, n)[0]), 1)
	att := smoothing(float64(d.attack.fill(blk, t0, n)[0]), d.ctx.rate)
	rel := smoothing(float64(d.release.fill(blk, t0, n)[0]), d.ctx.rate)
	for i, v := range out {
		x := 20 * math.Log10(math.Abs(float64(v))+1e-12)
		g := x - curve(x, thr, knee, ratio)
		if g > d.reduction {
			d.reduction = att*d.reduction + (1-att)*g
		} else {
			d.reduction = rel*d.reduction + (1-rel)*g
		}
		out[i] = v * float32(math.Pow(10, -d.reduction/20))
	}
}

// curve is the static output level for input level x, all in dB.
func curve(x, thr, knee, ratio float64) float64 {
	over := x - thr
	switch {
	case 2*over < -knee:
		return x
	case 2*over <= knee:
		k := over + knee/2
		return x + (1/ratio-1)*k*k/(2*knee)
	}
	return thr + over/ratio
}

// smoothing is the one-pole coefficient of time constant tau seconds.
func smoothing(tau, rate float64) float64 {
	if tau <= 0 {
		return 0
	}
	return math.Exp(-1 / (tau * rate))
}
