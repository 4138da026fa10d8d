package tracker

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
)

type (
	// NoteID identifies a note; ids increase monotonically.
	NoteID uint64

	// Note is a registered note.
	Note struct {
		ID       NoteID
		Node     graph.Node
		Start    float64
		Duration float64
		expiry   clock.Timer
	}

	// Registry holds the playing notes. An entry is dropped once its expiry
	// passes, whether or not the note has already disconnected itself.
	Registry struct {
		timers clock.Timers
		log    *slog.Logger
		last   NoteID
		notes  map[NoteID]*Note
	}
)

func NewRegistry(timers clock.Timers, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{timers: timers, log: log, notes: map[NoteID]*Note{}}
}

// Add registers a note and returns its id. The entry is removed after expiry
// of control time.
func (r *Registry) Add(n graph.Node, start, duration float64, expiry time.Duration) NoteID {
	r.last++
	id := r.last
	note := &Note{ID: id, Node: n, Start: start, Duration: duration}
	note.expiry = r.timers.AfterFunc(expiry, func() {
		if r.notes[id] == note {
			delete(r.notes, id)
			r.log.Debug("note expired", "note", id, "disconnected", n.Disconnected())
		}
	})
	r.notes[id] = note
	return id
}

// Remove drops a note without touching its nodes.
func (r *Registry) Remove(id NoteID) bool {
	note, ok := r.notes[id]
	if !ok {
		return false
	}
	note.expiry.Stop()
	delete(r.notes, id)
	return true
}

func (r *Registry) Get(id NoteID) (Note, bool) {
	note, ok := r.notes[id]
	if !ok {
		return Note{}, false
	}
	return *note, true
}

func (r *Registry) Has(id NoteID) bool {
	_, ok := r.notes[id]
	return ok
}

func (r *Registry) Len() int { return len(r.notes) }

// IDs lists the registered notes, oldest first.
func (r *Registry) IDs() []NoteID {
	return slices.Sorted(maps.Keys(r.notes))
}

// Clear disconnects and drops every registered note.
func (r *Registry) Clear() {
	for _, id := range r.IDs() {
		note := r.notes[id]
		note.expiry.Stop()
		note.Node.Disconnect()
		delete(r.notes, id)
	}
	r.log.Info("notes cleared")
}
