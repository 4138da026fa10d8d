package graph

import (
	"fmt"

	"github.com/vsariola/stepsynth"
)

// Sample plays a backend buffer followed by an amplifier. Parameters:
// playbackRate, detune (cents) and gain.
type Sample struct {
	base
	src    stepsynth.BufferSource
	amp    stepsynth.Gain
	buffer stepsynth.Buffer
}

// NewSample creates a sample player of p.Buffer, which is required.
func NewSample(g *Graph, p Props) (*Sample, error) {
	if p.Buffer == nil {
		return nil, ErrBuffer
	}
	s := &Sample{src: g.ctx.CreateBufferSource(), amp: g.ctx.CreateGain()}
	s.src.Connect(s.amp)
	s.init(g, SampleKind, s,
		&param{name: "playbackRate", target: s.src.PlaybackRate()},
		&param{name: "detune", target: s.src.Detune()},
		&param{name: "gain", target: s.amp.Gain()},
	)
	if err := s.Update(p); err != nil {
		s.Disconnect()
		return nil, err
	}
	return s, nil
}

func (s *Sample) Update(p Props) error {
	if s.disconnected {
		return ErrDisconnected
	}
	if p.Buffer != nil {
		if s.buffer != nil && s.buffer != p.Buffer {
			return fmt.Errorf("sample %d: %w", s.id, ErrBuffer)
		}
		s.buffer = p.Buffer
		s.src.SetBuffer(p.Buffer)
	}
	if p.Loop != nil {
		s.src.SetLoop(*p.Loop)
	}
	return s.update(p.Params)
}

// Buffer returns the audio the sample plays.
func (s *Sample) Buffer() stepsynth.Buffer { return s.buffer }

func (s *Sample) Connect(dest stepsynth.AudioNode) {
	if !s.disconnected {
		s.amp.Connect(dest)
	}
}

func (s *Sample) ConnectParam(p stepsynth.Param) {
	if !s.disconnected {
		s.amp.ConnectParam(p)
	}
}

func (s *Sample) Start(t float64) float64 {
	if s.disconnected || s.started {
		return t
	}
	s.startAll(t)
	s.src.Start(t)
	return t
}

func (s *Sample) Stop(t float64) {
	if s.disconnected {
		return
	}
	end := s.stopAll(t)
	s.watchDecay(t, end, s.amp.Gain(), s.src)
}

func (s *Sample) Disconnect() {
	s.disconnect(func() {
		if s.started {
			s.src.Stop(s.g.ctx.CurrentTime())
		}
		s.src.Disconnect()
		s.amp.Disconnect()
	})
}
