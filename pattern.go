package stepsynth

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Steps is one track of a pattern: a sparse map from slice index to active,
// in practice a slice of bools that returns false for indices out of range and
// grows only by the necessary amount when an item is set.
type Steps []bool

// Get returns the value at index; or false if the index is out of range.
func (s Steps) Get(index int) bool {
	if index < 0 || index >= len(s) {
		return false
	}
	return s[index]
}

// Set sets the value at index; appending falses until the slice is long
// enough.
func (s *Steps) Set(index int, value bool) {
	if !value && index >= len(*s) {
		return
	}
	for len(*s) <= index {
		*s = append(*s, false)
	}
	(*s)[index] = value
}

// Active lists the indices of all active slices in ascending order.
func (s Steps) Active() []int {
	var ret []int
	for i, v := range s {
		if v {
			ret = append(ret, i)
		}
	}
	return ret
}

// Pattern is the step grid: a fixed number of tracks, each a Steps. Tracks
// are never mutated in place; Toggle replaces the whole track, so a reader
// holding a track from Track or Active always sees a consistent value even if
// another goroutine toggles a slice concurrently.
type Pattern struct {
	tracks []atomic.Pointer[Steps]
}

func NewPattern(numTracks int) *Pattern {
	p := &Pattern{tracks: make([]atomic.Pointer[Steps], numTracks)}
	for i := range p.tracks {
		p.tracks[i].Store(&Steps{})
	}
	return p
}

func (p *Pattern) NumTracks() int { return len(p.tracks) }

// Toggle flips the slice of a track.
func (p *Pattern) Toggle(track, slice int) error {
	if track < 0 || track >= len(p.tracks) {
		return fmt.Errorf("track %d: %w", track, ErrRange)
	}
	if slice < 0 {
		return fmt.Errorf("slice %d: %w", slice, ErrRange)
	}
	for {
		old := p.tracks[track].Load()
		s := slices.Clone(*old)
		s.Set(slice, !old.Get(slice))
		if p.tracks[track].CompareAndSwap(old, &s) {
			return nil
		}
	}
}

// Set replaces a whole track.
func (p *Pattern) Set(track int, steps Steps) error {
	if track < 0 || track >= len(p.tracks) {
		return fmt.Errorf("track %d: %w", track, ErrRange)
	}
	s := slices.Clone(steps)
	p.tracks[track].Store(&s)
	return nil
}

// Active reports whether the slice of a track is active. Out of range
// indices are inactive.
func (p *Pattern) Active(track, slice int) bool {
	if track < 0 || track >= len(p.tracks) {
		return false
	}
	return p.tracks[track].Load().Get(slice)
}

// Track returns a copy of a track, padded or truncated to length slices.
func (p *Pattern) Track(track, length int) []bool {
	ret := make([]bool, length)
	if track < 0 || track >= len(p.tracks) {
		return ret
	}
	copy(ret, *p.tracks[track].Load())
	return ret
}

// Steps returns the current value of a track. The returned Steps must be
// treated as read-only.
func (p *Pattern) Steps(track int) Steps {
	if track < 0 || track >= len(p.tracks) {
		return nil
	}
	return *p.tracks[track].Load()
}
