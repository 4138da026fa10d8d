package stepsynth_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsariola/stepsynth"
)

func TestToPCM16Clips(t *testing.T) {
	got := stepsynth.ToPCM16([]float32{0, 0.5, -1, 2, -3}, nil)
	assert.Equal(t, []int16{0, 16383, -32767, 32767, -32767}, got)
}

func TestWavHeader(t *testing.T) {
	for _, pcm16 := range []bool{false, true} {
		b, err := stepsynth.Wav(make([]float32, 100), 8000, pcm16)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(b[0:4]))
		assert.Equal(t, "WAVE", string(b[8:12]))
		assert.Equal(t, uint32(len(b)-8), binary.LittleEndian.Uint32(b[4:8]))
		assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[22:24]), "mono")
		assert.Equal(t, uint32(8000), binary.LittleEndian.Uint32(b[24:28]))
	}
}

func TestRaw(t *testing.T) {
	b, err := stepsynth.Raw([]float32{1, -1}, false)
	require.NoError(t, err)
	assert.Len(t, b, 8)
	b, err = stepsynth.Raw([]float32{1, -1}, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x7f, 0x01, 0x80}, b)
}
