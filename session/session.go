// Package session is the application object: it wires an audio backend and
// the control thread timers to the note graph, the beat scheduler, the note
// registry and the sequencer, and builds the note factories of the
// instruments of a song, either from their knobs or from Lua scripts.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/script"
	"github.com/vsariola/stepsynth/tracker"
	"github.com/vsariola/stepsynth/voice"
)

type Session struct {
	cfg     Config
	ctx     stepsynth.Context
	graph   *graph.Graph
	seq     *tracker.Sequencer
	voices  *voice.Builder
	scripts map[string]*script.Script
	detune  stepsynth.ConstantSource
	log     *slog.Logger
}

// New creates a session playing song. All methods, and every use of the
// sequencer, must happen on the goroutine that runs timers.
func New(cfg Config, song stepsynth.Song, ctx stepsynth.Context, timers clock.Timers) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Graph.Logger = cfg.Logger
	cfg.Beats.Logger = cfg.Logger
	s := &Session{
		cfg:     cfg,
		ctx:     ctx,
		graph:   graph.New(ctx, timers, cfg.Graph),
		voices:  voice.NewBuilder(cfg.Seed),
		scripts: map[string]*script.Script{},
		detune:  ctx.CreateConstantSource(),
		log:     cfg.Logger,
	}
	s.detune.Offset().SetValue(0)
	s.detune.Start(ctx.CurrentTime())
	reg := tracker.NewRegistry(timers, cfg.Logger)
	beats := clock.NewBeats(ctx, timers, song.Tempo.BPM, cfg.Beats)
	seq, err := tracker.NewSequencer(s.graph, beats, reg, song, s.Build, tracker.SequencerConfig{
		Detune: s.detune,
		Logger: cfg.Logger,
	})
	if err != nil {
		s.closeScripts()
		s.detune.Disconnect()
		return nil, err
	}
	s.seq = seq
	return s, nil
}

func (s *Session) Sequencer() *tracker.Sequencer { return s.seq }

func (s *Session) Graph() *graph.Graph { return s.graph }

// Detune is the shared detune of the oscillators, in cents.
func (s *Session) Detune() stepsynth.Param { return s.detune.Offset() }

func (s *Session) Start() { s.seq.Start() }

func (s *Session) Stop() { s.seq.Stop() }

// Close stops playing, disconnects the notes and releases the scripts.
func (s *Session) Close() error {
	s.seq.Close()
	s.detune.Stop(s.ctx.CurrentTime())
	s.detune.Disconnect()
	s.closeScripts()
	s.log.Info("session closed")
	return nil
}

func (s *Session) closeScripts() {
	for _, sc := range s.scripts {
		sc.Close()
	}
	clear(s.scripts)
}

// Build implements tracker.Builder: instruments with a script are played by
// the script, others by their knobs. Script paths are relative to the
// directory of the song.
func (s *Session) Build(inst stepsynth.Instrument) (tracker.Factory, error) {
	if inst.Script == "" {
		return s.voices.Build(inst)
	}
	path := inst.Script
	if !filepath.IsAbs(path) && s.cfg.Song != "" {
		path = filepath.Join(filepath.Dir(s.cfg.Song), path)
	}
	if sc, ok := s.scripts[path]; ok {
		return sc.Factory(), nil
	}
	sc, err := script.Load(path, s.voices.Noise)
	if err != nil {
		return nil, err
	}
	s.scripts[path] = sc
	return sc.Factory(), nil
}

// LoadSong reads a song file; an empty path gives the default song.
func LoadSong(path string) (stepsynth.Song, error) {
	if path == "" {
		return stepsynth.DefaultSong.Copy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return stepsynth.Song{}, fmt.Errorf("cannot open song: %w", err)
	}
	defer f.Close()
	song, err := stepsynth.ReadSong(f)
	if err != nil {
		return stepsynth.Song{}, fmt.Errorf("%v: %w", path, err)
	}
	return song, nil
}

// SaveSong writes the song to path, as JSON for .json files and as YAML
// otherwise.
func SaveSong(path string, song stepsynth.Song) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create song file: %w", err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return stepsynth.WriteSong(f, path, song)
}
