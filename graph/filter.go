package graph

import (
	"fmt"
	"slices"

	"github.com/vsariola/stepsynth"
)

// Filter is a biquad filter over the sum of its inputs. Parameters:
// frequency (Hz), Q and gain (dB, for the shelving and peaking types).
//
// The inputs are owned like the modulators. When every input has
// disconnected, after decaying, the filter disconnects itself.
type Filter struct {
	base
	filter stepsynth.BiquadFilter
	inputs []Node
	live   int
}

// NewFilter creates a lowpass filter of inputs and applies p. It fails with
// ErrNoInputs without inputs.
func NewFilter(g *Graph, p Props, inputs ...Node) (*Filter, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	f := &Filter{filter: g.ctx.CreateBiquadFilter()}
	f.init(g, FilterKind, f,
		&param{name: "frequency", target: f.filter.Frequency()},
		&param{name: "Q", target: f.filter.Q()},
		&param{name: "gain", target: f.filter.Gain()},
	)
	for i, in := range inputs {
		if in == nil {
			f.Disconnect()
			return nil, fmt.Errorf("input %d: %w", i, ErrNil)
		}
		if err := f.adoptable(in); err != nil || slices.Contains(inputs[:i], in) {
			f.Disconnect()
			if err == nil {
				err = ErrOwned
			}
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	for _, in := range inputs {
		in.node().owner = f
		in.node().onDisconnect = append(in.node().onDisconnect, f.inputDone)
		in.Connect(f.filter)
	}
	f.inputs = slices.Clone(inputs)
	f.live = len(inputs)
	if err := f.Update(p); err != nil {
		f.Disconnect()
		return nil, err
	}
	return f, nil
}

func (f *Filter) Update(p Props) error {
	if f.disconnected {
		return ErrDisconnected
	}
	if p.Type != "" {
		t := stepsynth.FilterType(p.Type)
		if !t.Valid() {
			return fmt.Errorf("filter type %q: %w", p.Type, ErrType)
		}
		f.filter.SetType(t)
	}
	return f.update(p.Params)
}

// Inputs lists the signal inputs in construction order.
func (f *Filter) Inputs() []Node { return slices.Clone(f.inputs) }

// Children lists the inputs followed by the modulators.
func (f *Filter) Children() []Node {
	return append(slices.Clone(f.inputs), f.children...)
}

func (f *Filter) Connect(dest stepsynth.AudioNode) {
	if !f.disconnected {
		f.filter.Connect(dest)
	}
}

func (f *Filter) ConnectParam(p stepsynth.Param) {
	if !f.disconnected {
		f.filter.ConnectParam(p)
	}
}

// Start starts the inputs in construction order, then the modulators and
// the envelopes.
func (f *Filter) Start(t float64) float64 {
	if f.disconnected || f.started {
		return t
	}
	for _, in := range f.inputs {
		in.Start(t)
	}
	f.startAll(t)
	return t
}

func (f *Filter) Stop(t float64) {
	if f.disconnected {
		return
	}
	for _, in := range f.inputs {
		in.Stop(t)
	}
	f.stopAll(t)
}

func (f *Filter) Disconnect() {
	f.disconnect(func() {
		for _, in := range f.inputs {
			in.Disconnect()
		}
		f.filter.Disconnect()
	})
}

func (f *Filter) inputDone() {
	if f.disconnected {
		return
	}
	f.live--
	if f.live == 0 {
		f.g.log.Debug("filter inputs decayed", "id", f.id)
		f.Disconnect()
	}
}
