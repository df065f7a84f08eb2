package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// Clip is decoded mono audio ready for playback
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns how long the clip plays for
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// DecodePCM16 unpacks little-endian signed 16-bit mono samples and scales
// them to [-1, 1) by dividing by 32768. A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	return samples
}

// DecodeBase64PCM16 decodes base64 PCM as returned by the speech model
func DecodeBase64PCM16(encoded string, sampleRate int) (Clip, error) {
	if sampleRate <= 0 {
		return Clip{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(raw) < 2 {
		return Clip{}, fmt.Errorf("audio is empty")
	}
	return Clip{Samples: DecodePCM16(raw), SampleRate: sampleRate}, nil
}

// EncodePCM16 is the inverse of DecodePCM16, clamping out-of-range samples
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32768
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// WAV wraps the clip in a RIFF/WAVE container so a browser can play it
func (c Clip) WAV() []byte {
	data := EncodePCM16(c.Samples)
	var buf bytes.Buffer
	buf.Grow(44 + len(data))

	write := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	write(uint32(36 + len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(c.SampleRate))
	write(uint32(c.SampleRate * 2))
	write(uint16(2))
	write(uint16(16))
	buf.WriteString("data")
	write(uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}
