package voice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/soft"
	"github.com/vsariola/stepsynth/tracker"
	"github.com/vsariola/stepsynth/voice"
)

func setup() (*soft.Context, *clock.Manual, *graph.Graph) {
	ctx := soft.New(soft.Config{SampleRate: 8000})
	timers := clock.NewManual()
	return ctx, timers, graph.New(ctx, timers, graph.Config{})
}

func TestOscillatorNote(t *testing.T) {
	ctx, _, g := setup()
	f, err := voice.NewBuilder(1).Build(stepsynth.DefaultSong.Tracks[0].Instrument)
	require.NoError(t, err)
	detune := ctx.CreateConstantSource()
	n, err := f(tracker.NoteContext{Time: 0, Duration: 0.4, Detune: detune, Graph: g})
	require.NoError(t, err)
	lowpass, ok := n.(*graph.Filter)
	require.True(t, ok)
	require.Len(t, lowpass.Inputs(), 1)
	osc, ok := lowpass.Inputs()[0].(*graph.Oscillator)
	require.True(t, ok)
	freq := osc.Sources("frequency")
	require.Len(t, freq, 2)
	assert.Equal(t, graph.CurveBinding, freq[0].Kind())
	assert.Equal(t, graph.NodeBinding, freq[1].Kind())
	assert.Equal(t, []graph.Node{freq[1].Node()}, osc.Children(), "the vibrato is owned, the detune source is not")
	assert.Equal(t, graph.SourceBinding, osc.Sources("detune")[0].Kind())
}

func TestNoiseNote(t *testing.T) {
	ctx, _, g := setup()
	b := voice.NewBuilder(1)
	f, err := b.Build(stepsynth.DefaultSong.Tracks[2].Instrument)
	require.NoError(t, err)
	n, err := f(tracker.NoteContext{Duration: 0.4, Graph: g})
	require.NoError(t, err)
	highpass := n.(*graph.Filter).Inputs()[0].(*graph.Filter)
	sample := highpass.Inputs()[0].(*graph.Sample)
	assert.Equal(t, 4000, sample.Buffer().Length())
	assert.Same(t, b.Noise(ctx), sample.Buffer(), "the noise buffer is shared")
	for _, v := range sample.Buffer().ChannelData(0) {
		assert.True(t, v >= -1 && v < 1)
	}
}

func TestNoteSoundsAndDecays(t *testing.T) {
	ctx, timers, g := setup()
	f, err := voice.NewBuilder(1).Build(stepsynth.DefaultSong.Tracks[0].Instrument)
	require.NoError(t, err)
	n, err := f(tracker.NoteContext{Duration: 0.4, Graph: g})
	require.NoError(t, err)
	n.Connect(ctx.Destination())
	n.Start(0)
	n.Stop(0.4)
	var all []graph.Node
	graph.Walk(n, func(n graph.Node) { all = append(all, n) })
	assert.Len(t, all, 3)
	ctx.Advance(0.4)
	assert.Greater(t, float64(ctx.Meter().Peak()), -20.0)
	for i := 0; i < 20; i++ {
		ctx.Advance(0.05)
		timers.Advance(50 * time.Millisecond)
	}
	for _, m := range all {
		assert.True(t, m.Disconnected(), "%v %d", m.Kind(), m.ID())
	}
}

func TestBuildRejectsBadKnobs(t *testing.T) {
	b := voice.NewBuilder(1)
	inst := stepsynth.DefaultSong.Tracks[0].Instrument
	inst.Volume = 0
	_, err := b.Build(inst)
	assert.ErrorIs(t, err, graph.ErrNonPositive)
	inst = stepsynth.DefaultSong.Tracks[0].Instrument
	inst.Wave = "pulse"
	_, err = b.Build(inst)
	assert.ErrorIs(t, err, graph.ErrType)
	inst = stepsynth.DefaultSong.Tracks[0].Instrument
	inst.Duration = 0
	_, err = b.Build(inst)
	assert.Error(t, err)
}
