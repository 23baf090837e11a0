// Package audio converts raw synthesis samples into WAV payloads.
package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	channels       = 1
	bytesPerSample = 2
)

// EncodeWAV renders float samples as a mono 16-bit PCM WAV file.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	return wrapWAV(Float32ToPCM16(samples), sampleRate)
}

// Float32ToPCM16 converts [-1.0, 1.0] samples to little-endian 16-bit PCM,
// clamping out-of-range values.
func Float32ToPCM16(in []float32) []byte {
	out := make([]byte, len(in)*bytesPerSample)
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(v))
	}
	return out
}

// wrapWAV prepends the 44-byte RIFF/fmt/data header to raw PCM.
func wrapWAV(pcm []byte, sampleRate int) []byte {
	dataLen := len(pcm)
	fileLen := 36 + dataLen // header minus the 8-byte RIFF preamble

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))       // subchunk1 size
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))        // PCM format
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels)) // channels
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	byteRate := sampleRate * channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	blockAlign := channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8)) // bits per sample

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
