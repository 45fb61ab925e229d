package dashboard

import (
	"sync"
	"time"
)

// DefaultLogLines is how many output lines the supervisor keeps.
const DefaultLogLines = 500

// LogLine is one line of detection process output.
type LogLine struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	RunID  string    `json:"run_id"`
	Stream string    `json:"stream"`
	Text   string    `json:"text"`
}

// LogBuffer is a fixed-size ring of log lines.
type LogBuffer struct {
	mu    sync.RWMutex
	lines []LogLine
	next  int
	full  bool
	seq   uint64
}

// NewLogBuffer creates a ring holding size lines.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultLogLines
	}
	return &LogBuffer{lines: make([]LogLine, size)}
}

// Add appends a line, overwriting the oldest when full, and returns it
// stamped with the next sequence number.
func (b *LogBuffer) Add(line LogLine) LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	line.Seq = b.seq
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
	return line
}

// Len returns the number of stored lines.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.lines)
	}
	return b.next
}

// Last returns up to n of the newest lines, oldest first. n <= 0 returns
// everything.
func (b *LogBuffer) Last(n int) []LogLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.next
	if b.full {
		count = len(b.lines)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]LogLine, n)
	start := b.next - n
	if start < 0 {
		start += len(b.lines)
	}
	for i := range n {
		out[i] = b.lines[(start+i)%len(b.lines)]
	}
	return out
}
