//go:build portaudio

package portaudio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/vsariola/stepsynth"
)

// Output is an initialized PortAudio library with at most one open stream.
type Output struct {
	sampleRate float64
	frames     int
	mu         sync.Mutex
	stream     *portaudio.Stream
}

var _ stepsynth.AudioOutput = (*Output)(nil)

// New initializes PortAudio. frames is the device buffer size.
func New(sampleRate, frames int) (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	return &Output{sampleRate: float64(sampleRate), frames: frames}, nil
}

// Play opens a mono stream on the default device rendering from r.
func (o *Output) Play(r stepsynth.Renderer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil {
		if err := o.stream.Close(); err != nil {
			return fmt.Errorf("cannot close portaudio stream: %w", err)
		}
		o.stream = nil
	}
	s, err := portaudio.OpenDefaultStream(0, 1, o.sampleRate, o.frames, func(out []float32) {
		r.Render(out)
	})
	if err != nil {
		return fmt.Errorf("cannot open portaudio stream: %w", err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return fmt.Errorf("cannot start portaudio stream: %w", err)
	}
	o.stream = s
	return nil
}

// Close closes the stream and terminates PortAudio.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil {
		if err := o.stream.Close(); err != nil {
			return fmt.Errorf("cannot close portaudio stream: %w", err)
		}
		o.stream = nil
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("cannot terminate portaudio: %w", err)
	}
	return nil
}
