// Package oggopus decodes Ogg Opus files with libopusfile.
package oggopus

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"
)

// SampleRate is the rate libopusfile always decodes at.
const SampleRate = 48000

// frameSamples holds the largest Opus frame, 120ms at 48kHz.
const frameSamples = 5760

// Decode decodes a whole mono Ogg Opus file to 48kHz PCM16.
func Decode(data []byte) ([]int16, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open opus stream: %w", err)
	}
	defer stream.Close()

	frame := make([]int16, frameSamples)
	var out []int16
	for {
		n, err := stream.Read(frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode opus: %w", err)
		}
		out = append(out, frame[:n]...)
	}
	return out, nil
}
