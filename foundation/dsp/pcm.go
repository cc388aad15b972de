package dsp

import "encoding/binary"

// FromPCM16 decodes little-endian signed 16-bit mono PCM into samples
// normalised to [-1, 1]. A trailing odd byte is ignored.
func FromPCM16(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float64(s) / 32768.0
	}
	return out
}

// Zero overwrites samples in place so captured audio does not outlive the
// tick that analysed it.
func Zero(samples []float64) {
	clear(samples)
}
