// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"bytes"
	"sync"
)

// maxPartial caps an unterminated line so a runaway writer cannot grow memory.
const maxPartial = 4096

// LineRing is a thread-safe ring buffer keeping the last N lines written to it.
// Lines split across writes are reassembled.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	count   int
	partial []byte
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		r.partial = append(r.partial, data[:i]...)
		r.push(string(bytes.TrimRight(r.partial, "\r")))
		r.partial = r.partial[:0]
		data = data[i+1:]
	}
	if room := maxPartial - len(r.partial); room > 0 {
		if len(data) > room {
			data = data[:room]
		}
		r.partial = append(r.partial, data...)
	}
	return len(p), nil
}

// push stores a line. Caller must hold the lock.
func (r *LineRing) push(line string) {
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n most recent lines in chronological order, including
// a trailing unterminated line.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		ordered = append(ordered, r.lines[(start+i)%len(r.lines)])
	}
	if len(r.partial) > 0 {
		ordered = append(ordered, string(r.partial))
	}

	if n < 0 {
		n = 0
	}
	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}
