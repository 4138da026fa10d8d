package stepsynth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

type (
	// Song is a serializable snapshot of everything the sequencer plays: the
	// tempo and, for each track, the instrument knobs and the active slices.
	Song struct {
		Tempo  Tempo   `yaml:"tempo" json:"tempo"`
		Tracks []Track `yaml:"tracks" json:"tracks"`
	}

	// Track is one row of the pattern grid together with the instrument that
	// builds its notes.
	Track struct {
		Instrument Instrument `yaml:"instrument" json:"instrument"`
		// Slices lists the indices of the active slices of the track.
		Slices []int `yaml:"slices,flow" json:"slices"`
	}

	// Instrument is the set of knobs of a track, in the units of the control
	// panel: Attack, FreqAttack and FreqDrop are percentages of Duration or
	// Frequency.
	Instrument struct {
		Volume     float64 `yaml:"volume" json:"volume"`
		Wave       string  `yaml:"wave" json:"wave"`
		Duration   float64 `yaml:"duration" json:"duration"`
		FilterFrom float64 `yaml:"filterFrom" json:"filterFrom"`
		Attack     float64 `yaml:"attack" json:"attack"`
		Frequency  float64 `yaml:"frequency" json:"frequency"`
		FreqAttack float64 `yaml:"freqAttack" json:"freqAttack"`
		FreqDrop   float64 `yaml:"freqDrop" json:"freqDrop"`
		// Script is the path of a Lua file that builds the notes instead of
		// the knobs. Relative paths are relative to the song file.
		Script string `yaml:"script,omitempty" json:"script,omitempty"`
	}
)

// Noise is the Instrument.Wave playing filtered white noise instead of an
// oscillator.
const Noise = "noise"

// Steps converts the active slice list of the track to Steps. Negative
// indices are skipped; Song.Validate rejects them.
func (t *Track) Steps() Steps {
	var s Steps
	for _, i := range t.Slices {
		if i >= 0 {
			s.Set(i, true)
		}
	}
	return s
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	tracks := make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		tracks[i] = Track{Instrument: t.Instrument, Slices: slices.Clone(t.Slices)}
	}
	return Song{Tempo: s.Tempo, Tracks: tracks}
}

// Validate checks that the song can be played: a valid tempo, one or more
// tracks, instruments with positive durations and active slices within one
// bar.
func (s *Song) Validate() error {
	if err := s.Tempo.Validate(); err != nil {
		return err
	}
	if len(s.Tracks) == 0 {
		return errors.New("song contains no tracks")
	}
	total := s.Tempo.TotalSlices()
	for i, t := range s.Tracks {
		for _, k := range t.Slices {
			if k < 0 || k >= total {
				return fmt.Errorf("track %d: slice %d of %d: %w", i, k, total, ErrRange)
			}
		}
		if !(t.Instrument.Duration > 0) {
			return fmt.Errorf("track %d: duration should be > 0", i)
		}
		if t.Instrument.Wave != Noise && t.Instrument.Script == "" && !Waveform(t.Instrument.Wave).Valid() {
			return fmt.Errorf("track %d: unknown wave %q", i, t.Instrument.Wave)
		}
	}
	return nil
}

// ReadSong parses a song from JSON or YAML.
func ReadSong(r io.Reader) (Song, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Song{}, fmt.Errorf("could not read song: %w", err)
	}
	var song Song
	if errJSON := json.Unmarshal(b, &song); errJSON != nil {
		song = Song{}
		if errYaml := yaml.Unmarshal(b, &song); errYaml != nil {
			return Song{}, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return song, nil
}

// WriteSong writes the song as JSON if path has a .json extension and as YAML
// otherwise.
func WriteSong(w io.Writer, path string, song Song) error {
	var contents []byte
	var err error
	if filepath.Ext(path) == ".json" {
		contents, err = json.MarshalIndent(song, "", "  ")
	} else {
		contents, err = yaml.Marshal(song)
	}
	if err != nil {
		return fmt.Errorf("could not marshal song: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("could not write song: %w", err)
	}
	return nil
}
