// Package portaudio plays a stepsynth.Renderer through PortAudio. It needs
// the PortAudio C library and is only built with the portaudio build tag.
package portaudio
