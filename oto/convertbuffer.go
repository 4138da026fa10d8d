package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToFloat32LE appends the samples to dst as little-endian float32,
// the sample format the oto player is opened with, and returns the extended
// buffer.
func FloatBufferToFloat32LE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
