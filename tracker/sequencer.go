package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
)

type (
	SequencerConfig struct {
		// Detune is passed to every factory; nil for none.
		Detune stepsynth.ConstantSource
		// OnError receives the errors of failed triggers. Nil logs them.
		OnError func(error)
		Logger  *slog.Logger
	}

	// Sequencer plays a pattern of tracks, each with its own instrument.
	Sequencer struct {
		graph   *graph.Graph
		ctx     stepsynth.Context
		beats   *clock.Beats
		reg     *Registry
		build   Builder
		master  stepsynth.Gain
		comp    stepsynth.DynamicsCompressor
		pattern *stepsynth.Pattern
		tracks  []trackState
		// tempo is in effect from the last fired beat on; pending takes
		// effect on the next one. Both are read by the pattern editing
		// methods from other goroutines.
		tempo   atomic.Pointer[stepsynth.Tempo]
		pending atomic.Pointer[stepsynth.Tempo]
		sub     *clock.Subscription
		beat    int
		beatAt  float64
		beaten  bool
		detune  stepsynth.ConstantSource
		onError func(error)
		log     *slog.Logger
	}

	trackState struct {
		inst    stepsynth.Instrument
		factory Factory
	}
)

var ErrStopped = errors.New("sequencer is not running")

// Settings of the master compressor.
const (
	MasterThreshold = -20
	MasterKnee      = 30
	MasterRatio     = 12
	MasterAttack    = 0.1
	MasterRelease   = 0.1
)

// NewSequencer creates a sequencer playing song, with the factories of its
// instruments made by build. Notes are connected to a master gain in front
// and a compressor in front of the backend destination.
func NewSequencer(g *graph.Graph, beats *clock.Beats, reg *Registry, song stepsynth.Song, build Builder, cfg SequencerConfig) (*Sequencer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	s := &Sequencer{
		graph:   g,
		ctx:     g.Context(),
		beats:   beats,
		reg:     reg,
		build:   build,
		pattern: stepsynth.NewPattern(len(song.Tracks)),
		tracks:  make([]trackState, len(song.Tracks)),
		detune:  cfg.Detune,
		onError: cfg.OnError,
		log:     cfg.Logger,
	}
	s.tempo.Store(&song.Tempo)
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.onError == nil {
		s.onError = func(err error) { s.log.Error("trigger failed", "err", err) }
	}
	for i, t := range song.Tracks {
		if err := s.SetInstrument(i, t.Instrument); err != nil {
			return nil, err
		}
		s.pattern.Set(i, t.Steps())
	}
	s.master = s.ctx.CreateGain()
	s.master.Gain().SetValue(1)
	s.comp = s.ctx.CreateDynamicsCompressor()
	s.comp.Threshold().SetValue(MasterThreshold)
	s.comp.Knee().SetValue(MasterKnee)
	s.comp.Ratio().SetValue(MasterRatio)
	s.comp.Attack().SetValue(MasterAttack)
	s.comp.Release().SetValue(MasterRelease)
	s.master.Connect(s.comp)
	s.comp.Connect(s.ctx.Destination())
	beats.SetBPM(song.Tempo.BPM)
	return s, nil
}

// Master is the gain all notes are connected to.
func (s *Sequencer) Master() stepsynth.Gain { return s.master }

// Compressor is the master compressor between Master and the destination.
func (s *Sequencer) Compressor() stepsynth.DynamicsCompressor { return s.comp }

func (s *Sequencer) Registry() *Registry { return s.reg }

func (s *Sequencer) NumTracks() int { return len(s.tracks) }

// Start subscribes to the beats and starts them.
func (s *Sequencer) Start() {
	if s.sub == nil {
		s.sub = s.beats.Schedule(s.OnBeat)
	}
	s.beats.Start()
}

// Stop stops the beats and unsubscribes. Playing notes ring out.
func (s *Sequencer) Stop() {
	s.beats.Stop()
	if s.sub != nil {
		s.beats.ClearSchedule(s.sub)
		s.sub = nil
	}
}

func (s *Sequencer) Running() bool { return s.sub != nil && s.beats.Running() }

// OnBeat triggers the notes of the active slices of beat, which falls at
// backend time t: track by track, slice by slice, each at t plus the offset
// of its slice.
func (s *Sequencer) OnBeat(beat int, t float64) {
	if p := s.pending.Load(); p != nil {
		// publish the new tempo before clearing pending, so readers never
		// see the old one in between
		s.tempo.Store(p)
		s.pending.CompareAndSwap(p, nil)
	}
	tempo := *s.tempo.Load()
	s.beat, s.beatAt, s.beaten = beat, t, true
	offset := tempo.Offset(beat)
	secsPerSlice := tempo.SecsPerSlice()
	var errs []error
	for i := range s.tracks {
		steps := s.pattern.Steps(i)
		for k := 0; k < tempo.SlicesPerBeat; k++ {
			if !steps.Get(offset + k) {
				continue
			}
			if _, err := s.trigger(i, t+float64(k)*secsPerSlice); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.onError(err)
	}
}

// Play triggers the note of a track at backend time t, outside the pattern.
func (s *Sequencer) Play(track int, t float64) (NoteID, error) {
	if track < 0 || track >= len(s.tracks) {
		return 0, fmt.Errorf("track %d: %w", track, stepsynth.ErrRange)
	}
	return s.trigger(track, t)
}

func (s *Sequencer) trigger(track int, t float64) (NoteID, error) {
	d := s.tracks[track].inst.Duration
	n, err := s.tracks[track].factory(NoteContext{Time: t, Duration: d, Detune: s.detune, Graph: s.graph})
	if err != nil {
		return 0, fmt.Errorf("track %d at %.3f: %w", track, t, err)
	}
	if n == nil {
		return 0, fmt.Errorf("track %d at %.3f: %w", track, t, ErrNilNote)
	}
	n.Connect(s.master)
	n.Start(t)
	n.Stop(t + d)
	id := s.reg.Add(n, t, d, time.Duration(2*d*float64(time.Second)))
	s.log.Debug("note triggered", "track", track, "note", id, "time", t)
	return id, nil
}

// Record toggles the slice of a track that is playing now, as of the last
// fired beat, and plays the note of the track at once.
func (s *Sequencer) Record(track int) (int, error) {
	if !s.beaten || !s.Running() {
		return 0, ErrStopped
	}
	tempo := *s.tempo.Load()
	now := s.ctx.CurrentTime()
	beat, since := s.beat, now-s.beatAt
	// beats fire ahead of time, so now may still be in the previous beat
	for since < 0 {
		beat--
		since += tempo.SecsPerBeat()
	}
	slice := tempo.SliceAt(beat, since)
	if err := s.ToggleSlice(track, slice); err != nil {
		return slice, err
	}
	_, err := s.Play(track, now)
	return slice, err
}

// ToggleSlice flips a slice of a track.
func (s *Sequencer) ToggleSlice(track, slice int) error {
	if total := s.Tempo().TotalSlices(); slice >= total {
		return fmt.Errorf("slice %d of %d: %w", slice, total, stepsynth.ErrRange)
	}
	return s.pattern.Toggle(track, slice)
}

// Track returns the slices of a track, one bar long.
func (s *Sequencer) Track(track int) []bool {
	return s.pattern.Track(track, s.Tempo().TotalSlices())
}

// SetTempo changes the tempo from the next beat on.
func (s *Sequencer) SetTempo(t stepsynth.Tempo) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.pending.Store(&t)
	s.beats.SetBPM(t.BPM)
	s.log.Info("tempo changed", "bpm", t.BPM, "beatsPerBar", t.BeatsPerBar, "slicesPerBeat", t.SlicesPerBeat)
	return nil
}

// Tempo returns the tempo, including a change not yet in effect. It is safe
// to call from any goroutine.
func (s *Sequencer) Tempo() stepsynth.Tempo {
	if p := s.pending.Load(); p != nil {
		return *p
	}
	return *s.tempo.Load()
}

// SetInstrument replaces the instrument of a track. Playing notes are not
// affected.
func (s *Sequencer) SetInstrument(track int, inst stepsynth.Instrument) error {
	if track < 0 || track >= len(s.tracks) {
		return fmt.Errorf("track %d: %w", track, stepsynth.ErrRange)
	}
	f, err := s.build(inst)
	if err != nil {
		return fmt.Errorf("track %d: %w", track, err)
	}
	s.tracks[track] = trackState{inst: inst, factory: f}
	return nil
}

func (s *Sequencer) Instrument(track int) stepsynth.Instrument {
	return s.tracks[track].inst
}

// CurrentBeat returns the last fired beat and its time; ok is false if no
// beat has fired yet.
func (s *Sequencer) CurrentBeat() (beat int, t float64, ok bool) {
	return s.beat, s.beatAt, s.beaten
}

// Snapshot returns the song being played.
func (s *Sequencer) Snapshot() stepsynth.Song {
	song := stepsynth.Song{Tempo: s.Tempo(), Tracks: make([]stepsynth.Track, len(s.tracks))}
	total := song.Tempo.TotalSlices()
	for i, t := range s.tracks {
		var active []int
		for _, k := range s.pattern.Steps(i).Active() {
			if k < total {
				active = append(active, k)
			}
		}
		song.Tracks[i] = stepsynth.Track{Instrument: t.inst, Slices: active}
	}
	return song
}

// Panic disconnects every playing note.
func (s *Sequencer) Panic() {
	s.reg.Clear()
}

// Close stops the sequencer, silences it and disconnects the master bus.
func (s *Sequencer) Close() {
	s.Stop()
	s.Panic()
	s.master.Disconnect()
	s.comp.Disconnect()
}
