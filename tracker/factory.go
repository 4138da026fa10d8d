package tracker

import (
	"errors"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/graph"
)

type (
	// NoteContext is passed to a Factory when a note is triggered.
	NoteContext struct {
		// Time is the backend time the note starts at.
		Time float64
		// Duration is the time from the start to the stop of the note.
		Duration float64
		// Detune is a shared constant source for detuning all notes, or nil.
		// Factories bind it with graph.DC; notes must not tear it down.
		Detune stepsynth.ConstantSource
		Graph  *graph.Graph
	}

	// Factory builds the node tree of one note. It returns the root of a
	// tree that is fully constructed but not started. Every generator of the
	// tree should have a gain envelope with a release, otherwise it never
	// decays and is only freed by Registry.Clear.
	Factory func(NoteContext) (graph.Node, error)

	// Builder makes the factory of an instrument.
	Builder func(stepsynth.Instrument) (Factory, error)
)

var ErrNilNote = errors.New("factory returned no note")
