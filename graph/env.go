package graph

import (
	"fmt"
	"math"

	"github.com/vsariola/stepsynth"
)

type (
	// Shape is the curve of a ramp.
	Shape int

	// EnvelopeConfig describes an attack ramp from From to To and an
	// optional release ramp back to From.
	EnvelopeConfig struct {
		// From is the value at the start of the attack and at the end of the
		// release. Zero means Epsilon.
		From float64
		// To is the value at the end of the attack. Zero means the value the
		// parameter has when the attack begins; exponential envelopes need an
		// explicit To.
		To float64
		// Attack is the duration of the attack in seconds. Zero means
		// DefaultAttack.
		Attack      float64
		AttackShape Shape
		// Release is the duration of the release in seconds. Zero or less
		// means the envelope never releases.
		Release      float64
		ReleaseShape Shape
	}

	// Envelope automates one parameter over time. It is bound to the
	// parameter when set as a node parameter; Begin and Release are called
	// by the node on Start and Stop.
	Envelope struct {
		cfg   EnvelopeConfig
		param stepsynth.Param
	}
)

const (
	Linear Shape = iota
	Exponential
)

const (
	// Epsilon is the default From; exponential ramps cannot start at zero.
	Epsilon       = 0.0001
	DefaultAttack = 0.1
)

// Never is returned by Release when the envelope does not release.
var Never = math.Inf(1)

func (s Shape) String() string {
	switch s {
	case Linear:
		return "linear"
	case Exponential:
		return "exp"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape parses "linear", "exp" or "exponential". The empty string is
// Linear.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "exp", "exponential":
		return Exponential, nil
	}
	return Linear, fmt.Errorf("shape %q: %w", s, ErrType)
}

// NewEnvelope validates the config and fills in the defaults.
func NewEnvelope(cfg EnvelopeConfig) (*Envelope, error) {
	if cfg.From == 0 {
		cfg.From = Epsilon
	}
	if cfg.Attack == 0 {
		cfg.Attack = DefaultAttack
	}
	if cfg.Attack < 0 {
		return nil, fmt.Errorf("negative attack %v", cfg.Attack)
	}
	exp := cfg.AttackShape == Exponential || (cfg.Release > 0 && cfg.ReleaseShape == Exponential)
	if exp && (cfg.From <= 0 || cfg.To <= 0) {
		return nil, fmt.Errorf("from %v, to %v: %w", cfg.From, cfg.To, ErrNonPositive)
	}
	return &Envelope{cfg: cfg}, nil
}

// MustEnvelope is like NewEnvelope but panics on an invalid config.
func MustEnvelope(cfg EnvelopeConfig) *Envelope {
	e, err := NewEnvelope(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Envelope) Config() EnvelopeConfig { return e.cfg }

func (e *Envelope) HasRelease() bool { return e.cfg.Release > 0 }

func (e *Envelope) Bound() bool { return e.param != nil }

// Bind makes the envelope automate p.
func (e *Envelope) Bind(p stepsynth.Param) { e.param = p }

func (e *Envelope) Unbind() { e.param = nil }

// Begin schedules the attack: From at t, then a ramp to To. It returns the
// time the ramp completes.
func (e *Envelope) Begin(t float64) float64 {
	end := t + e.cfg.Attack
	if e.param == nil {
		return end
	}
	to := e.target()
	e.param.SetValueAtTime(e.cfg.From, t)
	ramp(e.param, e.cfg.AttackShape, to, end)
	return end
}

// Release cancels the automation from t on and schedules a ramp from To back
// to From. It returns the time the ramp completes, or Never without
// scheduling anything if the envelope has no release.
func (e *Envelope) Release(t float64) float64 {
	if !e.HasRelease() {
		return Never
	}
	end := t + e.cfg.Release
	if e.param == nil {
		return end
	}
	e.param.CancelScheduledValues(t)
	e.param.SetValueAtTime(e.target(), t)
	ramp(e.param, e.cfg.ReleaseShape, e.cfg.From, end)
	return end
}

func (e *Envelope) target() float64 {
	if e.cfg.To == 0 {
		return e.param.Value()
	}
	return e.cfg.To
}

func ramp(p stepsynth.Param, s Shape, v, t float64) {
	if s == Exponential {
		p.ExponentialRampToValueAtTime(v, t)
	} else {
		p.LinearRampToValueAtTime(v, t)
	}
}
