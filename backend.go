package stepsynth

type (
	// Context is the audio backend the engine drives. It owns the clock used
	// as the time base for all scheduling and creates the primitives the note
	// graph is built from. All methods are safe to call from the control
	// thread; the backend synchronizes with its own render thread.
	Context interface {
		// CurrentTime returns the backend clock in seconds. It never goes
		// backwards.
		CurrentTime() float64
		SampleRate() float64
		// Destination is the final output of the backend.
		Destination() AudioNode

		CreateOscillator() Oscillator
		CreateBiquadFilter() BiquadFilter
		CreateBufferSource() BufferSource
		CreateGain() Gain
		CreateConstantSource() ConstantSource
		CreateDynamicsCompressor() DynamicsCompressor
		CreateBuffer(channels, frames int) Buffer
	}

	// Param is an automatable scalar parameter of a backend primitive.
	// Scheduled values are rendered by the backend relative to CurrentTime.
	Param interface {
		// Value returns the value of the parameter at the current backend
		// time, including scheduled automation.
		Value() float64
		// SetValue sets the intrinsic value, used when no automation event is
		// in effect.
		SetValue(v float64)
		SetValueAtTime(v, t float64)
		LinearRampToValueAtTime(v, t float64)
		ExponentialRampToValueAtTime(v, t float64)
		// CancelScheduledValues removes all events scheduled at or after t.
		CancelScheduledValues(t float64)
	}

	// AudioNode is anything with an output that can be wired to another
	// node's input or to a Param.
	AudioNode interface {
		Connect(dest AudioNode)
		ConnectParam(p Param)
		// Disconnect removes every outgoing connection of the node.
		Disconnect()
		// DisconnectParam removes only the connection to p.
		DisconnectParam(p Param)
	}

	// Generator is a node that produces a signal between Start and Stop.
	Generator interface {
		AudioNode
		Start(t float64)
		// Stop stops the generator at t; a t at or before the current time
		// stops it immediately.
		Stop(t float64)
	}

	Oscillator interface {
		Generator
		SetType(w Waveform)
		Frequency() Param
		Detune() Param
	}

	BiquadFilter interface {
		AudioNode
		SetType(f FilterType)
		Frequency() Param
		Q() Param
		Gain() Param
	}

	BufferSource interface {
		Generator
		SetBuffer(b Buffer)
		SetLoop(loop bool)
		PlaybackRate() Param
		Detune() Param
	}

	Gain interface {
		AudioNode
		Gain() Param
	}

	// ConstantSource outputs its Offset as a DC signal. Bound to a parameter
	// it acts as an externally controlled offset.
	ConstantSource interface {
		Generator
		Offset() Param
	}

	// DynamicsCompressor lowers the level of its input above Threshold (dB)
	// by Ratio, with a soft knee Knee dB wide. Attack and Release are the
	// times, in seconds, the gain reduction takes to follow the level.
	DynamicsCompressor interface {
		AudioNode
		Threshold() Param
		Knee() Param
		Ratio() Param
		Attack() Param
		Release() Param
	}

	// Buffer is a fixed-length block of audio owned by the backend.
	Buffer interface {
		NumChannels() int
		Length() int
		SampleRate() float64
		ChannelData(channel int) []float32
	}

	// Waveform is the shape of an oscillator.
	Waveform string

	// FilterType is the response shape of a biquad filter.
	FilterType string
)

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
	Triangle Waveform = "triangle"
)

const (
	Lowpass   FilterType = "lowpass"
	Highpass  FilterType = "highpass"
	Bandpass  FilterType = "bandpass"
	Lowshelf  FilterType = "lowshelf"
	Highshelf FilterType = "highshelf"
	Peaking   FilterType = "peaking"
	Notch     FilterType = "notch"
	Allpass   FilterType = "allpass"
)

// Valid reports whether w is one of the known waveforms.
func (w Waveform) Valid() bool {
	switch w {
	case Sine, Square, Sawtooth, Triangle:
		return true
	}
	return false
}

// Valid reports whether f is one of the known filter types.
func (f FilterType) Valid() bool {
	switch f {
	case Lowpass, Highpass, Bandpass, Lowshelf, Highshelf, Peaking, Notch, Allpass:
		return true
	}
	return false
}
