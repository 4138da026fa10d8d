package stepsynth

// Renderer fills a mono float32 buffer with the next block of audio, advancing
// the backend clock by len(buffer) frames. Render is called from the audio
// output's own goroutine.
type Renderer interface {
	Render(buffer []float32)
}

// AudioOutput plays audio pulled from a Renderer until closed.
type AudioOutput interface {
	Play(r Renderer) error
	Close() error
}
