package tracker_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/soft"
	"github.com/vsariola/stepsynth/tracker"
)

const step = 25 * time.Millisecond

type trigger struct {
	track int
	time  float64
}

type rig struct {
	ctx      *soft.Context
	timers   *clock.Manual
	graph    *graph.Graph
	seq      *tracker.Sequencer
	triggers []trigger
	errs     []error
}

func song(tempo stepsynth.Tempo, durations ...float64) stepsynth.Song {
	s := stepsynth.Song{Tempo: tempo}
	for _, d := range durations {
		s.Tracks = append(s.Tracks, stepsynth.Track{Instrument: stepsynth.Instrument{Volume: 0.5, Wave: "sine", Duration: d, Frequency: 440}})
	}
	return s
}

func newRig(t *testing.T, s stepsynth.Song) *rig {
	t.Helper()
	r := &rig{ctx: soft.New(soft.Config{SampleRate: 1000}), timers: clock.NewManual()}
	r.graph = graph.New(r.ctx, r.timers, graph.Config{})
	beats := clock.NewBeats(r.ctx, r.timers, s.Tempo.BPM, clock.BeatsConfig{})
	seq, err := tracker.NewSequencer(r.graph, beats, tracker.NewRegistry(r.timers, nil), s, r.build, tracker.SequencerConfig{
		OnError: func(err error) { r.errs = append(r.errs, err) },
	})
	require.NoError(t, err)
	r.seq = seq
	return r
}

// build makes factories of decaying sine notes that log their triggers.
func (r *rig) build(inst stepsynth.Instrument) (tracker.Factory, error) {
	return func(c tracker.NoteContext) (graph.Node, error) {
		env, err := graph.NewEnvelope(graph.EnvelopeConfig{To: inst.Volume, Attack: 0.01, AttackShape: graph.Exponential, Release: c.Duration})
		if err != nil {
			return nil, err
		}
		r.triggers = append(r.triggers, trigger{track: trackOf(r, inst), time: c.Time})
		return graph.NewOscillator(c.Graph, graph.Props{Params: map[string][]graph.Binding{
			"frequency": {graph.Const(inst.Frequency)},
			"gain":      {graph.Curve(env)},
		}})
	}, nil
}

// trackOf identifies the track of an instrument by its frequency.
func trackOf(r *rig, inst stepsynth.Instrument) int {
	for i := 0; i < r.seq.NumTracks(); i++ {
		if r.seq.Instrument(i).Frequency == inst.Frequency {
			return i
		}
	}
	return -1
}

func (r *rig) run(d time.Duration) {
	for ; d > 0; d -= step {
		r.ctx.Advance(step.Seconds())
		r.timers.Advance(step)
	}
}

func TestSliceTimeWithinBeat(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.4))
	require.NoError(t, r.seq.ToggleSlice(0, 3))
	r.seq.OnBeat(0, 10.0)
	assert.Equal(t, []trigger{{0, 10.375}}, r.triggers)
	r.seq.OnBeat(1, 11.0)
	r.seq.OnBeat(4, 14.0)
	assert.Equal(t, []trigger{{0, 10.375}, {0, 14.375}}, r.triggers, "slice 3 is in the first beat of every bar")
}

func TestTriggerOrder(t *testing.T) {
	s := song(stepsynth.DefaultTempo, 0.1, 0.1)
	s.Tracks[1].Instrument.Frequency = 220
	s.Tracks[0].Slices = []int{9, 8}
	s.Tracks[1].Slices = []int{8}
	r := newRig(t, s)
	r.seq.OnBeat(1, 1.0)
	assert.Equal(t, []trigger{{0, 1.0}, {0, 1.125}, {1, 1.0}}, r.triggers)
	assert.Equal(t, 3, r.seq.Registry().Len())
}

func TestNoteExpiresAfterTwiceDuration(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.4))
	id, err := r.seq.Play(0, 0)
	require.NoError(t, err)
	r.run(775 * time.Millisecond)
	assert.True(t, r.seq.Registry().Has(id))
	r.run(25 * time.Millisecond)
	assert.False(t, r.seq.Registry().Has(id))
	assert.Zero(t, r.seq.Registry().Len())
}

func TestPlayOutOfRange(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.4))
	_, err := r.seq.Play(1, 0)
	assert.ErrorIs(t, err, stepsynth.ErrRange)
	assert.ErrorIs(t, r.seq.ToggleSlice(0, 32), stepsynth.ErrRange)
	assert.ErrorIs(t, r.seq.ToggleSlice(-1, 0), stepsynth.ErrRange)
}

func TestFactoryErrorsAreReported(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.4, 0.4))
	require.NoError(t, r.seq.SetInstrument(1, stepsynth.Instrument{Duration: 0.4}))
	require.NoError(t, r.seq.ToggleSlice(0, 0))
	require.NoError(t, r.seq.ToggleSlice(1, 0))
	r.seq.OnBeat(0, 0)
	require.Len(t, r.errs, 1)
	assert.ErrorIs(t, r.errs[0], graph.ErrNonPositive, "no volume: the exponential attack has no positive endpoint")
	assert.Equal(t, 1, r.seq.Registry().Len(), "the other track still plays")
}

func TestNilNote(t *testing.T) {
	s := song(stepsynth.DefaultTempo, 0.4)
	ctx := soft.New(soft.Config{})
	timers := clock.NewManual()
	g := graph.New(ctx, timers, graph.Config{})
	build := func(stepsynth.Instrument) (tracker.Factory, error) {
		return func(tracker.NoteContext) (graph.Node, error) { return nil, nil }, nil
	}
	seq, err := tracker.NewSequencer(g, clock.NewBeats(ctx, timers, 60, clock.BeatsConfig{}), tracker.NewRegistry(timers, nil), s, build, tracker.SequencerConfig{})
	require.NoError(t, err)
	_, err = seq.Play(0, 0)
	assert.ErrorIs(t, err, tracker.ErrNilNote)
}

func TestBuilderErrorFailsConstruction(t *testing.T) {
	ctx := soft.New(soft.Config{})
	timers := clock.NewManual()
	g := graph.New(ctx, timers, graph.Config{})
	bad := errors.New("bad instrument")
	build := func(stepsynth.Instrument) (tracker.Factory, error) { return nil, bad }
	_, err := tracker.NewSequencer(g, clock.NewBeats(ctx, timers, 60, clock.BeatsConfig{}), tracker.NewRegistry(timers, nil), song(stepsynth.DefaultTempo, 0.4), build, tracker.SequencerConfig{})
	assert.ErrorIs(t, err, bad)
	_, err = tracker.NewSequencer(g, clock.NewBeats(ctx, timers, 60, clock.BeatsConfig{}), tracker.NewRegistry(timers, nil), stepsynth.Song{Tempo: stepsynth.DefaultTempo}, build, tracker.SequencerConfig{})
	assert.Error(t, err, "a song needs tracks")
}

func TestTempoChangesOnNextBeat(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1))
	require.NoError(t, r.seq.ToggleSlice(0, 1))
	next := stepsynth.Tempo{BPM: 120, BeatsPerBar: 4, SlicesPerBeat: 2}
	require.NoError(t, r.seq.SetTempo(next))
	assert.Equal(t, next, r.seq.Tempo())
	assert.Len(t, r.seq.Track(0), 8)
	r.seq.OnBeat(0, 0)
	assert.Equal(t, []trigger{{0, 0.25}}, r.triggers)
	assert.Error(t, r.seq.SetTempo(stepsynth.Tempo{BPM: 0, BeatsPerBar: 4, SlicesPerBeat: 2}))
}

func TestPlayingPatternFromScheduler(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1))
	require.NoError(t, r.seq.ToggleSlice(0, 0))
	require.NoError(t, r.seq.ToggleSlice(0, 12))
	r.seq.Start()
	r.run(2 * time.Second)
	assert.Equal(t, []trigger{{0, 0}, {0, 1.5}}, r.triggers)
	r.seq.Stop()
	assert.False(t, r.seq.Running())
	r.run(3 * time.Second)
	assert.Len(t, r.triggers, 2)
	assert.Zero(t, r.seq.Registry().Len())
	assert.Zero(t, r.timers.Pending(), "stopped notes and the scheduler leave no timers behind")
}

func TestRecord(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1, 0.1))
	_, err := r.seq.Record(1)
	assert.ErrorIs(t, err, tracker.ErrStopped)
	r.seq.Start()
	r.run(300 * time.Millisecond)
	now := r.ctx.CurrentTime()
	slice, err := r.seq.Record(1)
	require.NoError(t, err)
	assert.Equal(t, 2, slice)
	require.Len(t, r.triggers, 1, "recording plays the note")
	assert.Equal(t, now, r.triggers[0].time)
	_, err = r.seq.Record(5)
	assert.ErrorIs(t, err, stepsynth.ErrRange)
	assert.Len(t, r.triggers, 1)
	r.run(650 * time.Millisecond)
	beat, at, ok := r.seq.CurrentBeat()
	require.True(t, ok)
	assert.Equal(t, 1, beat, "beat 1 has already fired ahead of time")
	assert.Equal(t, 1.0, at)
	slice, err = r.seq.Record(1)
	require.NoError(t, err)
	assert.Equal(t, 7, slice, "the last slice of beat 0 is still playing")
	assert.Equal(t, []int{2, 7}, r.seq.Snapshot().Tracks[1].Slices)
}

func TestToggleIsSelfInverse(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1))
	before := r.seq.Track(0)
	require.NoError(t, r.seq.ToggleSlice(0, 5))
	assert.True(t, r.seq.Track(0)[5])
	require.NoError(t, r.seq.ToggleSlice(0, 5))
	assert.Equal(t, before, r.seq.Track(0))
}

func TestSnapshot(t *testing.T) {
	s := song(stepsynth.DefaultTempo, 0.1, 0.2)
	s.Tracks[1].Instrument.Frequency = 330
	s.Tracks[0].Slices = []int{1, 5, 31}
	r := newRig(t, s)
	assert.Equal(t, s, r.seq.Snapshot())
	require.NoError(t, r.seq.SetInstrument(1, stepsynth.Instrument{Volume: 1, Wave: "square", Duration: 1, Frequency: 110}))
	assert.Equal(t, "square", r.seq.Snapshot().Tracks[1].Instrument.Wave)
}

func TestPanicDisconnectsNotes(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 10))
	id, err := r.seq.Play(0, 0)
	require.NoError(t, err)
	note, ok := r.seq.Registry().Get(id)
	require.True(t, ok)
	r.seq.Panic()
	assert.True(t, note.Node.Disconnected())
	assert.Zero(t, r.seq.Registry().Len())
	assert.Zero(t, r.timers.Pending())
}

func TestRegistryIDs(t *testing.T) {
	timers := clock.NewManual()
	ctx := soft.New(soft.Config{})
	g := graph.New(ctx, timers, graph.Config{})
	reg := tracker.NewRegistry(timers, nil)
	var ids []tracker.NoteID
	for i := 0; i < 3; i++ {
		n, err := graph.NewOscillator(g, graph.Props{})
		require.NoError(t, err)
		ids = append(ids, reg.Add(n, 0, 1, time.Duration(i+1)*time.Second))
	}
	assert.Equal(t, ids, reg.IDs())
	assert.Less(t, ids[0], ids[1])
	assert.True(t, reg.Remove(ids[1]))
	assert.False(t, reg.Remove(ids[1]))
	timers.Advance(time.Second)
	assert.Equal(t, []tracker.NoteID{ids[2]}, reg.IDs())
}

func TestPatternEditingRacesWithBeats(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1))
	short := stepsynth.Tempo{BPM: 120, BeatsPerBar: 2, SlicesPerBeat: 4}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = r.seq.ToggleSlice(0, i%8)
			track := r.seq.Track(0)
			assert.Contains(t, []int{8, 32}, len(track))
			_ = r.seq.Tempo()
		}
	}()
	for i := 0; i < 200; i++ {
		tempo := stepsynth.DefaultTempo
		if i%2 == 0 {
			tempo = short
		}
		require.NoError(t, r.seq.SetTempo(tempo))
		r.seq.OnBeat(i, float64(i))
	}
	wg.Wait()
	assert.Equal(t, stepsynth.DefaultTempo, r.seq.Tempo())
	assert.Len(t, r.seq.Track(0), 32)
}

func TestMasterBusIsCompressed(t *testing.T) {
	r := newRig(t, song(stepsynth.DefaultTempo, 0.1))
	comp := r.seq.Compressor()
	assert.Equal(t, float64(tracker.MasterThreshold), comp.Threshold().Value())
	assert.Equal(t, float64(tracker.MasterRatio), comp.Ratio().Value())
	r.seq.Close()
	buf := make([]float32, 100)
	r.ctx.Render(buf)
	assert.Equal(t, make([]float32, 100), buf)
}
