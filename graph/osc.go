package graph

import (
	"fmt"

	"github.com/vsariola/stepsynth"
)

// Oscillator is a periodic waveform followed by an amplifier. Parameters:
// frequency (Hz), detune (cents) and gain.
type Oscillator struct {
	base
	osc stepsynth.Oscillator
	amp stepsynth.Gain
}

// NewOscillator creates a sine oscillator at the backend default frequency
// and applies p.
func NewOscillator(g *Graph, p Props) (*Oscillator, error) {
	o := &Oscillator{osc: g.ctx.CreateOscillator(), amp: g.ctx.CreateGain()}
	o.osc.Connect(o.amp)
	o.init(g, OscillatorKind, o,
		&param{name: "frequency", target: o.osc.Frequency()},
		&param{name: "detune", target: o.osc.Detune()},
		&param{name: "gain", target: o.amp.Gain()},
	)
	if err := o.Update(p); err != nil {
		o.Disconnect()
		return nil, err
	}
	return o, nil
}

func (o *Oscillator) Update(p Props) error {
	if o.disconnected {
		return ErrDisconnected
	}
	if p.Type != "" {
		w := stepsynth.Waveform(p.Type)
		if !w.Valid() {
			return fmt.Errorf("waveform %q: %w", p.Type, ErrType)
		}
		o.osc.SetType(w)
	}
	return o.update(p.Params)
}

func (o *Oscillator) Connect(dest stepsynth.AudioNode) {
	if !o.disconnected {
		o.amp.Connect(dest)
	}
}

func (o *Oscillator) ConnectParam(p stepsynth.Param) {
	if !o.disconnected {
		o.amp.ConnectParam(p)
	}
}

func (o *Oscillator) Start(t float64) float64 {
	if o.disconnected || o.started {
		return t
	}
	o.startAll(t)
	o.osc.Start(t)
	return t
}

func (o *Oscillator) Stop(t float64) {
	if o.disconnected {
		return
	}
	end := o.stopAll(t)
	o.watchDecay(t, end, o.amp.Gain(), o.osc)
}

func (o *Oscillator) Disconnect() {
	o.disconnect(func() {
		if o.started {
			o.osc.Stop(o.g.ctx.CurrentTime())
		}
		o.osc.Disconnect()
		o.amp.Disconnect()
	})
}
