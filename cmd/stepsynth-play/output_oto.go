//go:build !portaudio

package main

import (
	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/oto"
)

func newOutput(sampleRate int) (stepsynth.AudioOutput, error) {
	out, err := oto.NewContext(sampleRate)
	if err != nil {
		return nil, err
	}
	return out, nil
}
