package journal

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the flush journal.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record captures one flush outcome.
// Keep it compact and schema-stable.
type Record struct {
	At        time.Time `json:"at"`
	Outcome   string    `json:"outcome"`
	MessageID int       `json:"message_id,omitempty"`
	Lines     int       `json:"lines"`
	Bytes     int       `json:"bytes"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
}
