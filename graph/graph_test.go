package graph_test

import (
	"fmt"
	"time"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/soft"
)

const step = 50 * time.Millisecond

// rig runs a soft backend and manual control timers in lockstep.
type rig struct {
	ctx    *soft.Context
	timers *clock.Manual
	log    []string
	oscs   int
	// params wraps oscillator frequencies to log releases; such params
	// cannot take modulation.
	params bool
}

// recording wraps the soft backend to log when oscillators start.
type recording struct {
	*soft.Context
	r *rig
}

type recordingOsc struct {
	stepsynth.Oscillator
	name string
	r    *rig
}

type recordingParam struct {
	stepsynth.Param
	name string
	r    *rig
}

func newRig(cfg graph.Config) (*rig, *graph.Graph) {
	r := &rig{ctx: soft.New(soft.Config{SampleRate: 1000}), timers: clock.NewManual()}
	return r, graph.New(recording{r.ctx, r}, r.timers, cfg)
}

func (c recording) CreateOscillator() stepsynth.Oscillator {
	c.r.oscs++
	return &recordingOsc{c.Context.CreateOscillator(), fmt.Sprintf("osc%d", c.r.oscs), c.r}
}

func (o *recordingOsc) Start(t float64) {
	o.r.log = append(o.r.log, o.name)
	o.Oscillator.Start(t)
}

func (o *recordingOsc) Frequency() stepsynth.Param {
	if !o.r.params {
		return o.Oscillator.Frequency()
	}
	return &recordingParam{o.Oscillator.Frequency(), o.name, o.r}
}

func (p *recordingParam) CancelScheduledValues(t float64) {
	p.r.log = append(p.r.log, "release "+p.name)
	p.Param.CancelScheduledValues(t)
}

// run advances both clocks by d.
func (r *rig) run(d time.Duration) {
	for ; d > 0; d -= step {
		r.ctx.Advance(step.Seconds())
		r.timers.Advance(step)
	}
}
