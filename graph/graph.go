// Package graph builds notes: trees of oscillators, filters and sample players
// whose parameters are constants, envelopes or other nodes, and which tear
// themselves down once their sound has decayed.
//
// A Graph is the context every node is created in. It holds the audio backend,
// the control thread timers used for decay checks and the id sequence of the
// nodes. All nodes of a Graph must be used from the control thread only.
package graph

import (
	"errors"
	"log/slog"
	"time"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
)

type (
	// Config tunes the decay and disconnect protocol.
	Config struct {
		// DecayInterval is the period of the gain check of a stopped node.
		DecayInterval time.Duration `yaml:"decayInterval"`
		// DecayThreshold is the linear gain below which a node is inaudible
		// and can be freed.
		DecayThreshold float64 `yaml:"decayThreshold"`
		// ScheduledDecay makes a stopped node check its gain once, when its
		// gain envelope is known to have finished releasing, and poll only
		// if the gain is still above the threshold then.
		ScheduledDecay bool         `yaml:"scheduledDecay"`
		Logger         *slog.Logger `yaml:"-"`
	}

	Graph struct {
		ctx    stepsynth.Context
		timers clock.Timers
		cfg    Config
		log    *slog.Logger
		seq    int
	}
)

const (
	DefaultDecayInterval  = 500 * time.Millisecond
	DefaultDecayThreshold = 0.002
)

var (
	ErrNonPositive  = errors.New("exponential ramp needs strictly positive endpoints")
	ErrOwned        = errors.New("already owned by another node")
	ErrDisconnected = errors.New("node is disconnected")
	ErrCycle        = errors.New("node would own itself")
	ErrNil          = errors.New("nil binding")
	ErrType         = errors.New("unknown type")
	ErrBuffer       = errors.New("sample needs exactly one buffer")
	ErrNoInputs     = errors.New("filter needs at least one input")
)

func (c Config) withDefaults() Config {
	if c.DecayInterval <= 0 {
		c.DecayInterval = DefaultDecayInterval
	}
	if c.DecayThreshold <= 0 {
		c.DecayThreshold = DefaultDecayThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func New(ctx stepsynth.Context, timers clock.Timers, cfg Config) *Graph {
	cfg = cfg.withDefaults()
	return &Graph{ctx: ctx, timers: timers, cfg: cfg, log: cfg.Logger}
}

// Context returns the backend the nodes of the graph are created in.
func (g *Graph) Context() stepsynth.Context { return g.ctx }

func (g *Graph) Config() Config { return g.cfg }

func (g *Graph) nextID() int {
	g.seq++
	return g.seq
}
