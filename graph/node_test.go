package graph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/stepsynth/graph"
)

func lfo(t *testing.T, g *graph.Graph) *graph.Oscillator {
	t.Helper()
	o, err := graph.NewOscillator(g, graph.Props{Params: map[string][]graph.Binding{
		"frequency": {graph.Const(5)},
		"gain":      {graph.Const(10)},
	}})
	require.NoError(t, err)
	return o
}

func TestOscillatorListsEnvelopeAndModulator(t *testing.T) {
	_, g := newRig(graph.Config{})
	env := graph.MustEnvelope(graph.EnvelopeConfig{From: 220, To: 440})
	mod := lfo(t, g)
	o, err := graph.NewOscillator(g, graph.Set("frequency", graph.Curve(env), graph.Mod(mod)))
	require.NoError(t, err)
	src := o.Sources("frequency")
	require.Len(t, src, 2)
	assert.Equal(t, graph.CurveBinding, src[0].Kind())
	assert.Equal(t, graph.NodeBinding, src[1].Kind())
	assert.Equal(t, []graph.Node{mod}, o.Children())
	assert.Nil(t, o.Sources("cutoff"))
}

func TestUpdateReplacesBindings(t *testing.T) {
	_, g := newRig(graph.Config{})
	first, second := lfo(t, g), lfo(t, g)
	o, err := graph.NewOscillator(g, graph.Set("frequency", graph.Mod(first)))
	require.NoError(t, err)
	err = o.Update(graph.Props{Params: map[string][]graph.Binding{
		"resonance": {graph.Const(3)},
		"frequency": {graph.Mod(second)},
	}})
	require.NoError(t, err, "unknown parameters are ignored")
	assert.True(t, first.Disconnected(), "a replaced modulator is torn down")
	assert.Equal(t, []graph.Node{second}, o.Children())
	require.NoError(t, o.Update(graph.Set("frequency", graph.Mod(second))), "rebinding the same node keeps it")
	assert.False(t, second.Disconnected())
	assert.Equal(t, []graph.Node{second}, o.Children())
}

func TestUpdateRejectsBadType(t *testing.T) {
	_, g := newRig(graph.Config{})
	o, err := graph.NewOscillator(g, graph.Props{Type: "square"})
	require.NoError(t, err)
	assert.ErrorIs(t, o.Update(graph.Props{Type: "pulse"}), graph.ErrType)
	_, err = graph.NewFilter(g, graph.Props{Type: "comb"}, lfo(t, g))
	assert.ErrorIs(t, err, graph.ErrType)
}

func TestFilterNeedsInputs(t *testing.T) {
	_, g := newRig(graph.Config{})
	f, err := graph.NewFilter(g, graph.Props{})
	assert.ErrorIs(t, err, graph.ErrNoInputs)
	assert.Nil(t, f)
}

func TestBindOwnedOrDisconnectedNode(t *testing.T) {
	_, g := newRig(graph.Config{})
	mod := lfo(t, g)
	_, err := graph.NewOscillator(g, graph.Set("frequency", graph.Mod(mod)))
	require.NoError(t, err)
	_, err = graph.NewOscillator(g, graph.Set("detune", graph.Mod(mod)))
	assert.ErrorIs(t, err, graph.ErrOwned)
	_, err = graph.NewFilter(g, graph.Props{}, mod)
	assert.ErrorIs(t, err, graph.ErrOwned)

	dead := lfo(t, g)
	dead.Disconnect()
	_, err = graph.NewOscillator(g, graph.Set("frequency", graph.Mod(dead)))
	assert.ErrorIs(t, err, graph.ErrDisconnected)
	assert.ErrorIs(t, dead.Update(graph.Props{}), graph.ErrDisconnected)
}

func TestBindCycle(t *testing.T) {
	_, g := newRig(graph.Config{})
	child := lfo(t, g)
	parent, err := graph.NewOscillator(g, graph.Set("frequency", graph.Mod(child)))
	require.NoError(t, err)
	assert.ErrorIs(t, child.Update(graph.Set("frequency", graph.Mod(parent))), graph.ErrCycle)
	assert.ErrorIs(t, parent.Update(graph.Set("gain", graph.Mod(parent))), graph.ErrCycle)
}

func TestDCBindingIsNotOwned(t *testing.T) {
	r, g := newRig(graph.Config{})
	dc := r.ctx.CreateConstantSource()
	o, err := graph.NewOscillator(g, graph.Set("detune", graph.DC(dc)))
	require.NoError(t, err)
	assert.Empty(t, o.Children())
	assert.Equal(t, graph.SourceBinding, o.Sources("detune")[0].Kind())
	o.Disconnect()
	assert.Nil(t, o.Sources("detune"))
}

func TestDisconnectIsRecursiveAndIdempotent(t *testing.T) {
	_, g := newRig(graph.Config{})
	mod := lfo(t, g)
	osc, err := graph.NewOscillator(g, graph.Set("frequency", graph.Mod(mod)))
	require.NoError(t, err)
	f, err := graph.NewFilter(g, graph.Props{}, osc)
	require.NoError(t, err)
	var all []graph.Node
	graph.Walk(f, func(n graph.Node) { all = append(all, n) })
	assert.Equal(t, []graph.Node{f, osc, mod}, all)
	f.Disconnect()
	f.Disconnect()
	for _, n := range all {
		assert.True(t, n.Disconnected(), "%v %d", n.Kind(), n.ID())
	}
	assert.Equal(t, 0.0, f.Start(1)-1)
}

func TestFilterStartsInputsInOrder(t *testing.T) {
	r, g := newRig(graph.Config{})
	a, err := graph.NewOscillator(g, graph.Props{})
	require.NoError(t, err)
	b, err := graph.NewOscillator(g, graph.Props{})
	require.NoError(t, err)
	f, err := graph.NewFilter(g, graph.Props{}, a, b)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f.Start(2.5))
	assert.Equal(t, []string{"osc1", "osc2"}, r.log)
	f.Start(3)
	assert.Len(t, r.log, 2, "starting twice does nothing")
	assert.Equal(t, []graph.Node{a, b}, f.Inputs())
}

func TestFilterStopsInputsInOrder(t *testing.T) {
	r, g := newRig(graph.Config{})
	r.params = true
	var in []graph.Node
	for range 2 {
		env, err := graph.NewEnvelope(graph.EnvelopeConfig{From: 100, To: 200, Release: 0.5})
		require.NoError(t, err)
		o, err := graph.NewOscillator(g, graph.Set("frequency", graph.Curve(env)))
		require.NoError(t, err)
		in = append(in, o)
	}
	f, err := graph.NewFilter(g, graph.Props{}, in...)
	require.NoError(t, err)
	f.Start(0)
	r.log = nil
	f.Stop(1)
	assert.Equal(t, []string{"release osc1", "release osc2"}, r.log)
}

func TestSampleNeedsBuffer(t *testing.T) {
	r, g := newRig(graph.Config{})
	_, err := graph.NewSample(g, graph.Props{})
	assert.ErrorIs(t, err, graph.ErrBuffer)
	buf := r.ctx.CreateBuffer(1, 10)
	s, err := graph.NewSample(g, graph.Props{Buffer: buf, Loop: graph.Loop(true)})
	require.NoError(t, err)
	assert.Equal(t, buf, s.Buffer())
	assert.ErrorIs(t, s.Update(graph.Props{Buffer: r.ctx.CreateBuffer(1, 5)}), graph.ErrBuffer)
	assert.Equal(t, graph.SampleKind, s.Kind())
}

func decaying(t *testing.T, g *graph.Graph) *graph.Oscillator {
	t.Helper()
	env := graph.MustEnvelope(graph.EnvelopeConfig{To: 1, Attack: 0.01, Release: 0.1})
	o, err := graph.NewOscillator(g, graph.Set("gain", graph.Curve(env)))
	require.NoError(t, err)
	return o
}

func TestDecayDisconnectsAfterRelease(t *testing.T) {
	r, g := newRig(graph.Config{})
	o := decaying(t, g)
	o.Connect(r.ctx.Destination())
	o.Start(0)
	o.Stop(0.8)
	r.run(500 * time.Millisecond)
	assert.False(t, o.Disconnected(), "not stopped yet")
	r.run(500 * time.Millisecond)
	assert.True(t, o.Disconnected())
	assert.Zero(t, r.timers.Pending(), "the check stops itself")
}

func TestDecayWaitsForGain(t *testing.T) {
	r, g := newRig(graph.Config{DecayInterval: 100 * time.Millisecond})
	o, err := graph.NewOscillator(g, graph.Props{})
	require.NoError(t, err)
	o.Start(0)
	o.Stop(0)
	r.run(time.Second)
	assert.False(t, o.Disconnected(), "a constant gain never decays")
	assert.Equal(t, 1, r.timers.Pending())
	o.Disconnect()
	assert.Zero(t, r.timers.Pending())
}

func TestScheduledDecayChecksAtReleaseEnd(t *testing.T) {
	r, g := newRig(graph.Config{ScheduledDecay: true})
	o := decaying(t, g)
	o.Start(0)
	o.Stop(0.2)
	r.run(250 * time.Millisecond)
	assert.False(t, o.Disconnected())
	r.run(100 * time.Millisecond)
	assert.True(t, o.Disconnected())
}

func TestFilterDisconnectsWhenInputsDecay(t *testing.T) {
	r, g := newRig(graph.Config{})
	a, b := decaying(t, g), decaying(t, g)
	f, err := graph.NewFilter(g, graph.Set("frequency", graph.Const(800)), a, b)
	require.NoError(t, err)
	f.Connect(r.ctx.Destination())
	f.Start(0)
	f.Stop(0.1)
	r.run(450 * time.Millisecond)
	assert.False(t, f.Disconnected())
	r.run(100 * time.Millisecond)
	assert.True(t, a.Disconnected())
	assert.True(t, b.Disconnected())
	assert.True(t, f.Disconnected())
}
