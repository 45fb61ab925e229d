package tts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// DecodeWAV decodes a 16-bit PCM WAV file into samples.
func DecodeWAV(data []byte) (samples []int16, sampleRate, channels int, err error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, 0, errNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, 0, 0, fmt.Errorf("decode wav: unsupported bit depth %d", dec.BitDepth)
	}

	samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return samples, buf.Format.SampleRate, buf.Format.NumChannels, nil
}
