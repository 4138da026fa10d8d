// Package tracker plays the step pattern: a Sequencer subscribes to the beat
// scheduler and, on every beat, builds a note for every active slice of every
// track with the note factory of the track, starts and stops it and keeps it
// in a Registry until it expires.
//
// All methods must be called from the control thread, except the pattern
// editing methods ToggleSlice, Track and Tempo, which may race with a beat: the
// pattern and the tempo are copy-on-write, so a toggle either affects a beat
// or not, but never corrupts a track.
package tracker
