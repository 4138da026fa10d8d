//go:build portaudio

package main

import (
	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/portaudio"
)

const portaudioFrames = 256

func newOutput(sampleRate int) (stepsynth.AudioOutput, error) {
	out, err := portaudio.New(sampleRate, portaudioFrames)
	if err != nil {
		return nil, err
	}
	return out, nil
}
