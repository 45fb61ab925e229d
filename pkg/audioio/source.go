package audioio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"
)

// AudioChunk represents a chunk of captured audio.
type AudioChunk struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return PCMBytes(c.Samples)
}

// FromBytes populates the chunk from little-endian PCM16.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = PCMSamples(data)
}

// Duration returns the playback length of the chunk.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// RMS returns the root-mean-square level of the chunk, normalized to 0..1.
func (c *AudioChunk) RMS() float64 {
	return RMS(c.Samples)
}

// Source captures audio from a microphone.
type Source interface {
	// Start begins capture. Calling Start on a running source is a no-op.
	Start(ctx context.Context) error

	// Stop halts capture. It is safe to call Stop multiple times.
	Stop() error

	// Read returns the next chunk, blocking until one is available.
	// Returns io.EOF once the source has stopped.
	Read(ctx context.Context) (AudioChunk, error)

	// Config returns the capture configuration.
	Config() Config

	// Name returns the backend name ("alsa", "mock").
	Name() string

	io.Closer
}

// RMS returns the root-mean-square level of PCM16 samples, normalized to 0..1.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PCMBytes encodes samples as little-endian PCM16.
func PCMBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// PCMSamples decodes little-endian PCM16. A trailing odd byte is dropped.
func PCMSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Resample converts mono PCM16 between sample rates with linear
// interpolation. Good enough for speech headed to a recognizer.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return samples
	}

	step := float64(fromRate) / float64(toRate)
	n := int(float64(len(samples)) / step)
	out := make([]int16, n)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + frac*(b-a))
	}
	return out
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
