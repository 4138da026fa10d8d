package clock

import (
	"log/slog"
	"slices"
	"time"
)

type (
	// TimeSource is the backend clock, in seconds.
	TimeSource interface {
		CurrentTime() float64
	}

	// BeatFunc receives the index of the beat, counting from 0 when the
	// scheduler was started, and the backend time at which the beat falls.
	// The time is usually slightly in the future.
	BeatFunc func(beat int, time float64)

	// BeatsConfig tunes the look-ahead scheduling. Every Interval of control
	// time, all beats falling within LookAhead of the backend clock are
	// fired. LookAhead should exceed Interval plus the worst callback jitter.
	BeatsConfig struct {
		Interval  time.Duration `yaml:"interval"`
		LookAhead time.Duration `yaml:"lookAhead"`
		Logger    *slog.Logger  `yaml:"-"`
	}

	// Beats fires callbacks once per beat at a cadence given by the BPM,
	// using look-ahead scheduling: the callback runs a little before the
	// beat, with the exact backend time of the beat, so backend events
	// scheduled from it do not suffer from control thread jitter.
	Beats struct {
		src     TimeSource
		timers  Timers
		cfg     BeatsConfig
		log     *slog.Logger
		bpm     float64
		running bool
		ticker  Timer
		beat    int
		next    float64
		subs    []*Subscription
	}

	// Subscription is a callback registered with Schedule.
	Subscription struct {
		fn BeatFunc
	}
)

const (
	DefaultInterval  = 25 * time.Millisecond
	DefaultLookAhead = 100 * time.Millisecond
)

func (c BeatsConfig) withDefaults() BeatsConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.LookAhead <= 0 {
		c.LookAhead = DefaultLookAhead
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func NewBeats(src TimeSource, timers Timers, bpm float64, cfg BeatsConfig) *Beats {
	cfg = cfg.withDefaults()
	return &Beats{src: src, timers: timers, cfg: cfg, log: cfg.Logger, bpm: bpm}
}

// SetBPM changes the tempo. Beats already fired keep their times; the new
// tempo applies from the next beat that has not been fired yet.
func (b *Beats) SetBPM(bpm float64) {
	if !(bpm > 0) {
		return
	}
	if b.running && bpm != b.bpm {
		// next was computed with the old tempo; recompute it from the last
		// fired beat
		b.next += 60/bpm - 60/b.bpm
	}
	b.bpm = bpm
}

func (b *Beats) BPM() float64 { return b.bpm }

func (b *Beats) Running() bool { return b.running }

// Start starts firing beats from the current backend time, beat index 0.
// Starting a running scheduler does nothing.
func (b *Beats) Start() {
	if b.running {
		return
	}
	b.running = true
	b.beat = 0
	b.next = b.src.CurrentTime()
	b.log.Info("beats started", "bpm", b.bpm, "time", b.next)
	b.ticker = b.timers.Every(b.cfg.Interval, b.tick)
	b.tick()
}

// Stop releases the periodic callback; no further beats fire until Start.
func (b *Beats) Stop() {
	if !b.running {
		return
	}
	b.running = false
	b.ticker.Stop()
	b.ticker = nil
	b.log.Info("beats stopped", "beat", b.beat)
}

// Schedule registers fn to be called on every beat.
func (b *Beats) Schedule(fn BeatFunc) *Subscription {
	s := &Subscription{fn: fn}
	b.subs = append(b.subs, s)
	return s
}

// ClearSchedule unregisters a subscription. Clearing an unknown or already
// cleared subscription does nothing.
func (b *Beats) ClearSchedule(s *Subscription) {
	b.subs = slices.DeleteFunc(b.subs, func(e *Subscription) bool { return e == s })
}

func (b *Beats) tick() {
	horizon := b.src.CurrentTime() + b.cfg.LookAhead.Seconds()
	for b.running && b.next < horizon {
		beat, t := b.beat, b.next
		b.beat++
		b.next += 60 / b.bpm
		for _, s := range slices.Clone(b.subs) {
			if slices.Contains(b.subs, s) {
				s.fn(beat, t)
			}
		}
	}
}
