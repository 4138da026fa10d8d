package stepsynth

import (
	"errors"
	"fmt"
	"math"
)

// Tempo determines how fast the pattern is played: BPM beats per minute,
// BeatsPerBar beats in one pass over the pattern and each beat subdivided into
// SlicesPerBeat slices.
type Tempo struct {
	BPM           float64 `yaml:"bpm" json:"bpm"`
	BeatsPerBar   int     `yaml:"beatsPerBar" json:"beatsPerBar"`
	SlicesPerBeat int     `yaml:"slicesPerBeat" json:"slicesPerBeat"`
}

var ErrRange = errors.New("index out of range")

// DefaultTempo is 60 bpm, four beats to a bar and eight slices to a beat.
var DefaultTempo = Tempo{BPM: 60, BeatsPerBar: 4, SlicesPerBeat: 8}

func (t Tempo) Validate() error {
	if !(t.BPM > 0) || math.IsInf(t.BPM, 0) {
		return fmt.Errorf("bpm should be > 0, got %v", t.BPM)
	}
	if t.BeatsPerBar < 1 {
		return fmt.Errorf("beats per bar should be > 0, got %v", t.BeatsPerBar)
	}
	if t.SlicesPerBeat < 1 {
		return fmt.Errorf("slices per beat should be > 0, got %v", t.SlicesPerBeat)
	}
	return nil
}

func (t Tempo) SecsPerBeat() float64 { return 60 / t.BPM }

func (t Tempo) SecsPerSlice() float64 { return t.SecsPerBeat() / float64(t.SlicesPerBeat) }

// TotalSlices is the number of slices in one bar, i.e. the length of a track.
func (t Tempo) TotalSlices() int { return t.SlicesPerBeat * t.BeatsPerBar }

// LocalBeat returns the position of beat within its bar.
func (t Tempo) LocalBeat(beat int) int {
	return (beat%t.BeatsPerBar + t.BeatsPerBar) % t.BeatsPerBar
}

// Offset returns the index of the first slice of beat in a track.
func (t Tempo) Offset(beat int) int {
	return t.LocalBeat(beat) * t.SlicesPerBeat
}

// SliceAt returns the track slice index that is sinceBeat seconds after the
// start of beat. Times past the end of the beat are clamped to its last slice.
func (t Tempo) SliceAt(beat int, sinceBeat float64) int {
	k := int(math.Floor(sinceBeat / t.SecsPerSlice()))
	k = max(0, min(k, t.SlicesPerBeat-1))
	return t.Offset(beat) + k
}
