// Package voice turns the knobs of an instrument into a note factory.
//
// A note is a lowpass filter, its cutoff falling from FilterFrom over half
// the duration, around either an oscillator or, for the noise wave, a
// highpass filtered loop of white noise. The gain rises exponentially to
// Volume over Attack percent of the duration and releases over the duration.
// The oscillator pitch glides from Frequency to FreqDrop percent of it over
// FreqAttack percent of the duration, with a slight vibrato.
package voice

import (
	"fmt"
	"math/rand/v2"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/tracker"
)

// Builder makes the factories of knob-driven instruments. It creates the
// noise buffer on first use, once per backend.
type Builder struct {
	rng   *rand.Rand
	noise map[stepsynth.Context]stepsynth.Buffer
}

const (
	NoiseLength      = 0.5
	VibratoFrequency = 5
	VibratoDepth     = 2
)

// NewBuilder returns a builder whose noise is seeded with seed.
func NewBuilder(seed uint64) *Builder {
	return &Builder{rng: rand.New(rand.NewPCG(seed, seed)), noise: map[stepsynth.Context]stepsynth.Buffer{}}
}

// NoiseBuffer fills a new mono buffer of secs seconds with white noise.
func NoiseBuffer(ctx stepsynth.Context, secs float64, rng *rand.Rand) stepsynth.Buffer {
	buf := ctx.CreateBuffer(1, int(ctx.SampleRate()*secs))
	data := buf.ChannelData(0)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return buf
}

// Noise returns the shared noise buffer of ctx.
func (b *Builder) Noise(ctx stepsynth.Context) stepsynth.Buffer {
	buf, ok := b.noise[ctx]
	if !ok {
		buf = NoiseBuffer(ctx, NoiseLength, b.rng)
		b.noise[ctx] = buf
	}
	return buf
}

// Build implements tracker.Builder.
func (b *Builder) Build(inst stepsynth.Instrument) (tracker.Factory, error) {
	if !(inst.Duration > 0) {
		return nil, fmt.Errorf("duration should be > 0, got %v", inst.Duration)
	}
	if !(inst.Volume > 0) {
		return nil, fmt.Errorf("volume %v: %w", inst.Volume, graph.ErrNonPositive)
	}
	if inst.Wave != stepsynth.Noise && !stepsynth.Waveform(inst.Wave).Valid() {
		return nil, fmt.Errorf("wave %q: %w", inst.Wave, graph.ErrType)
	}
	return func(c tracker.NoteContext) (graph.Node, error) {
		return b.note(inst, c)
	}, nil
}

// nodes disconnects the nodes created so far when building fails.
type nodes []graph.Node

func (n *nodes) add(node graph.Node, err error) (graph.Node, error) {
	if err != nil {
		for _, m := range *n {
			m.Disconnect()
		}
		return nil, err
	}
	*n = append(*n, node)
	return node, nil
}

func (b *Builder) note(inst stepsynth.Instrument, c tracker.NoteContext) (graph.Node, error) {
	d := inst.Duration
	gain, err := graph.NewEnvelope(graph.EnvelopeConfig{
		From:        graph.Epsilon,
		To:          inst.Volume,
		Attack:      d * inst.Attack / 100,
		AttackShape: graph.Exponential,
		Release:     d,
	})
	if err != nil {
		return nil, fmt.Errorf("gain envelope: %w", err)
	}
	cutoff, err := graph.NewEnvelope(graph.EnvelopeConfig{From: inst.FilterFrom, Attack: d / 2})
	if err != nil {
		return nil, fmt.Errorf("cutoff envelope: %w", err)
	}
	var created nodes
	var src graph.Node
	if inst.Wave == stepsynth.Noise {
		sweep, err := graph.NewEnvelope(graph.EnvelopeConfig{
			From:   inst.Frequency * 100,
			To:     2000 * inst.FreqDrop / 100,
			Attack: d * inst.FreqAttack / 100,
		})
		if err != nil {
			return nil, fmt.Errorf("sweep envelope: %w", err)
		}
		sample, err := created.add(graph.NewSample(c.Graph, graph.Props{
			Buffer: b.Noise(c.Graph.Context()),
			Loop:   graph.Loop(true),
			Params: map[string][]graph.Binding{
				"playbackRate": {graph.Const(1)},
				"gain":         {graph.Curve(gain)},
			},
		}))
		if err != nil {
			return nil, err
		}
		src, err = created.add(graph.NewFilter(c.Graph, graph.Props{
			Type: string(stepsynth.Highpass),
			Params: map[string][]graph.Binding{
				"frequency": {graph.Curve(sweep)},
				"gain":      {graph.Const(10)},
			},
		}, sample))
		if err != nil {
			return nil, err
		}
	} else {
		glide, err := graph.NewEnvelope(graph.EnvelopeConfig{
			From:   inst.Frequency,
			To:     inst.Frequency * inst.FreqDrop / 100,
			Attack: d * inst.FreqAttack / 100,
		})
		if err != nil {
			return nil, fmt.Errorf("glide envelope: %w", err)
		}
		vibrato, err := created.add(graph.NewOscillator(c.Graph, graph.Props{
			Type: string(stepsynth.Sine),
			Params: map[string][]graph.Binding{
				"frequency": {graph.Const(VibratoFrequency)},
				"gain":      {graph.Const(VibratoDepth)},
			},
		}))
		if err != nil {
			return nil, err
		}
		params := map[string][]graph.Binding{
			"gain":      {graph.Curve(gain)},
			"frequency": {graph.Curve(glide), graph.Mod(vibrato)},
		}
		if c.Detune != nil {
			params["detune"] = []graph.Binding{graph.DC(c.Detune)}
		}
		src, err = created.add(graph.NewOscillator(c.Graph, graph.Props{Type: inst.Wave, Params: params}))
		if err != nil {
			return nil, err
		}
	}
	return created.add(graph.NewFilter(c.Graph, graph.Props{
		Type: string(stepsynth.Lowpass),
		Params: map[string][]graph.Binding{
			"frequency": {graph.Curve(cutoff)},
			"Q":         {graph.Const(1)},
		},
	}, src))
}
