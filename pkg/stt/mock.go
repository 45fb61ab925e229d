package stt

import (
	"context"
	"sync"
)

// Result is one scripted recognition outcome.
type Result struct {
	Text string
	Err  error
}

// Mock implements Recognizer by replaying scripted results. Once the
// script runs out it answers ErrNoSpeech.
type Mock struct {
	mu      sync.Mutex
	results []Result
	calls   int

	// RecognizeFunc, when set, replaces the script.
	RecognizeFunc func(ctx context.Context, samples []int16, sampleRate int) (string, error)
}

// NewMock returns a mock that replays results in order.
func NewMock(results ...Result) *Mock {
	return &Mock{results: results}
}

// Say appends successful transcriptions to the script.
func (m *Mock) Say(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.results = append(m.results, Result{Text: t})
	}
}

// Fail appends a failing result to the script.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, Result{Err: err})
}

// Recognize pops the next scripted result.
func (m *Mock) Recognize(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	m.mu.Lock()
	m.calls++
	fn := m.RecognizeFunc
	var next *Result
	if fn == nil && len(m.results) > 0 {
		r := m.results[0]
		m.results = m.results[1:]
		next = &r
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, samples, sampleRate)
	}
	if next == nil {
		return "", ErrNoSpeech
	}
	if next.Err != nil {
		return "", next.Err
	}
	return normalize(next.Text), nil
}

// Calls returns how many times Recognize ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

var _ Recognizer = (*Mock)(nil)
