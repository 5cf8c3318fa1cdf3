package logship

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultTitle is the header shown at the top of every shipped message.
	DefaultTitle = "TGLogger"

	// DefaultUpdateInterval is the flush cadence. Lower values invite flood
	// waits from Telegram; anything under ~2s is asking for trouble.
	DefaultUpdateInterval = 5 * time.Second

	// DefaultPendingLogs is the buffered-character threshold above which a
	// flush is delivered as a document instead of a message.
	DefaultPendingLogs = 200000

	defaultMinimumLines = 1
	defaultRatePerSec   = 1
	defaultRetryMax     = 3
)

// maxMessageLen is the largest title+body we put into a single chat message.
// Telegram's hard cap is 4096; stay under it to leave room for the code
// fences around the text.
const maxMessageLen = 4000

// Options configures a Handler. Immutable after New(): a Handler never
// re-reads mutated Options, and separate handlers never share state.
type Options struct {
	// Token, ChatID and TopicID route delivery. Token and ChatID are required
	// by NewTelegram; TopicID is the optional forum topic (0 = main chat).
	Token   string
	ChatID  int64
	TopicID int

	// Title heads every shipped message and captions document uploads.
	Title string

	// IgnoreMatch drops any log line containing one of these substrings
	// (literal, case-sensitive).
	IgnoreMatch []string

	// UpdateInterval is the flush cadence.
	UpdateInterval time.Duration

	// MinimumLines buffered before a tick actually flushes.
	MinimumLines int

	// PendingLogs is the buffered-character threshold for the document
	// fallback.
	PendingLogs int

	// RatePerSec caps outbound transport calls ahead of Telegram's own flood
	// control.
	RatePerSec int

	// RetryMax bounds delivery retries (flood waits included) per flush
	// before the batch is dropped.
	RetryMax int
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = DefaultTitle
	}
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = DefaultUpdateInterval
	}
	if o.MinimumLines <= 0 {
		o.MinimumLines = defaultMinimumLines
	}
	if o.PendingLogs <= 0 {
		o.PendingLogs = DefaultPendingLogs
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = defaultRatePerSec
	}
	if o.RetryMax <= 0 {
		o.RetryMax = defaultRetryMax
	}
	return o
}

func (o Options) validateTelegram() error {
	if strings.TrimSpace(o.Token) == "" {
		return errors.New("logship: telegram token is empty")
	}
	if o.ChatID == 0 {
		return errors.New("logship: chat id is required")
	}
	return nil
}
