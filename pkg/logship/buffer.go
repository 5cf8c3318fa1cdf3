package logship

import (
	"strings"
	"sync"
)

// buffer accumulates newline-terminated log text ahead of delivery.
//
// Any number of producers append concurrently; the flush loop is the only
// drainer. The lock is held only for the append or swap itself, so producers
// never wait on network I/O and no appended byte straddles a drain boundary.
type buffer struct {
	mu    sync.Mutex
	text  strings.Builder
	lines int
}

// Append adds text (normally a single newline-terminated line) and bumps the
// line counter by the number of newlines it contains.
func (b *buffer) Append(text string) {
	if text == "" {
		return
	}
	n := strings.Count(text, "\n")
	if n == 0 {
		n = 1
	}
	b.mu.Lock()
	b.text.WriteString(text)
	b.lines += n
	b.mu.Unlock()
}

// Lines is a cheap peek used by the flush loop to decide whether a tick is
// worth draining.
func (b *buffer) Lines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines
}

// DrainAll atomically captures and clears the accumulator, returning the
// previous contents and line count.
func (b *buffer) DrainAll() (string, int) {
	b.mu.Lock()
	s := b.text.String()
	n := b.lines
	b.text.Reset()
	b.lines = 0
	b.mu.Unlock()
	return s, n
}
