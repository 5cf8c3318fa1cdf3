package config

// Config is tglogd's full configuration. JSON and YAML files are both
// accepted; YAML is coerced to JSON and decoded strictly, so unknown keys are
// rejected in either format.
//
// All durations are Go duration strings (e.g. "500ms", "5s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Ship     ShipConfig     `json:"ship"`
	Tail     TailConfig     `json:"tail"`
	Journal  JournalConfig  `json:"journal,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// TopicID is the optional forum topic to post into (0 = main chat).
	TopicID int `json:"topic_id,omitempty"`
}

// ShipConfig controls the buffering/delivery engine. Zero values fall back to
// the logship defaults (title "TGLogger", 5s interval, 1 line minimum,
// 200000-char file threshold).
type ShipConfig struct {
	Title          string   `json:"title,omitempty"`
	IgnoreMatch    []string `json:"ignore_match,omitempty"`
	UpdateInterval string   `json:"update_interval,omitempty"`
	MinimumLines   int      `json:"minimum_lines,omitempty"`
	PendingLogs    int      `json:"pending_logs,omitempty"`
	RatePerSec     int      `json:"rate_per_sec,omitempty"`
	RetryMax       int      `json:"retry_max,omitempty"`
}

// TailConfig lists the log files the daemon follows. Paths are globs,
// re-scanned every ScanInterval so files that appear later are picked up.
type TailConfig struct {
	Paths        []string `json:"paths"`
	ScanInterval string   `json:"scan_interval,omitempty"`
	// FromStart replays existing file content instead of seeking to the end.
	FromStart bool `json:"from_start,omitempty"`
}

// JournalConfig controls the optional flush journal.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only

	// PruneSchedule is a cron expression; records older than Keep are removed
	// on that schedule. Both must be set for pruning to run.
	PruneSchedule string `json:"prune_schedule,omitempty"`
	Keep          string `json:"keep,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
