package surface

import "sync"

// LineBuffer is a thread-safe ring buffer of recent output lines. It keeps a
// bounded memory footprint by discarding the oldest lines once full.
type LineBuffer struct {
	lines    []string
	capacity int
	start    int
	count    int
	mu       sync.RWMutex
}

// NewLineBuffer creates a LineBuffer with the given capacity (minimum 1).
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LineBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Append adds a line, evicting the oldest when full.
func (b *LineBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < b.capacity {
		b.lines[b.count] = line
		b.count++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % b.capacity
}

// Lines returns a copy of the stored lines in chronological order.
func (b *LineBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.lines[(b.start+i)%b.capacity]
	}
	return out
}

// LastN returns the most recent n lines, fewer if the buffer holds fewer.
func (b *LineBuffer) LastN(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	first := b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(b.start+first+i)%b.capacity]
	}
	return out
}

// Len returns the number of stored lines.
func (b *LineBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear discards all stored lines.
func (b *LineBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.count = 0
}
