package tui

import (
	"strings"
	"sync"
)

// DefaultLogLines is the number of log lines the dashboard keeps
const DefaultLogLines = 500

// LogBuffer is an io.Writer collecting log lines for the logs panel.
// It is safe to write to before the dashboard runs.
type LogBuffer struct {
	lines   []string
	max     int
	version uint64
	mu      sync.Mutex
}

// NewLogBuffer creates a buffer keeping the last max lines
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogBuffer{max: max}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.lines = append(b.lines, line)
	}
	if len(b.lines) > b.max {
		b.lines = append([]string(nil), b.lines[len(b.lines)-b.max:]...)
	}
	b.version++
	return len(p), nil
}

// Lines returns a copy of the buffered lines and a counter that changes on every write
func (b *LogBuffer) Lines() ([]string, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...), b.version
}

// Clear drops every line
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	b.version++
}
