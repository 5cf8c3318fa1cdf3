package logship

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tglogd/pkg/logx"
)

// closeGrace bounds the final best-effort flush on Close. The process may be
// on its way out; keep shutdown snappy.
const closeGrace = 2 * time.Second

// Handler is the buffering-and-delivery engine. Producers call Write (or
// WriteLevel) concurrently; one background loop drains the buffer every
// UpdateInterval and delivers through the Transport.
//
// A Handler owns all of its state. Multiple handlers never share buffers or
// message ids.
type Handler struct {
	opt Options
	tr  Transport
	log logx.Logger
	rec FlushRecorder
	lim *rate.Limiter

	buf buffer

	// Delivery state: id of the message currently being edited and the text
	// already pushed into it. Owned by the flush loop; nothing else reads or
	// writes these, so no lock.
	msgID int
	sent  string

	docName    string
	docCaption string

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Handler over an explicit Transport. Routing fields in opt
// (Token/ChatID/TopicID) are ignored here; they belong to the transport.
func New(opt Options, tr Transport) (*Handler, error) {
	if tr == nil {
		return nil, errors.New("logship: transport is nil")
	}
	opt = opt.normalized()
	return &Handler{
		opt:        opt,
		tr:         tr,
		log:        logx.Nop(),
		lim:        rate.NewLimiter(rate.Limit(opt.RatePerSec), opt.RatePerSec),
		docName:    "tglogd.log",
		docCaption: opt.Title + ": too many pending logs, shipped as a file",
		done:       make(chan struct{}),
	}, nil
}

// NewTelegram builds a Handler wired to the Bot API using the routing fields
// in opt. The token is verified during construction.
func NewTelegram(opt Options) (*Handler, error) {
	opt = opt.normalized()
	if err := opt.validateTelegram(); err != nil {
		return nil, err
	}
	tr, err := NewTelegramTransport(opt.Token, opt.ChatID, opt.TopicID)
	if err != nil {
		return nil, err
	}
	return New(opt, tr)
}

// SetLogger installs the local diagnostics logger. Call before Start.
func (h *Handler) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	h.log = log
}

// SetRecorder installs an optional flush journal. Call before Start.
func (h *Handler) SetRecorder(rec FlushRecorder) { h.rec = rec }

// Write queues one formatted log line. It never blocks on delivery and never
// surfaces a delivery error to the caller.
func (h *Handler) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := string(p)
	if !shouldInclude(line, h.opt.IgnoreMatch) {
		return len(p), nil
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	h.buf.Append(line)
	return len(p), nil
}

// WriteLevel implements zerolog.LevelWriter so the handler can sit inside a
// zerolog.MultiLevelWriter. Level filtering stays with the host framework.
func (h *Handler) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	return h.Write(p)
}

// Start launches the flush loop. Calling Start twice is a no-op.
func (h *Handler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if h.started {
		return
	}
	h.started = true
	rctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	go h.run(rctx)
}

// Close stops the flush loop and attempts one final best-effort flush of any
// remaining buffered text. Safe to call more than once.
func (h *Handler) Close() error {
	h.startMu.Lock()
	started := h.started
	cancel := h.cancel
	h.cancel = nil
	h.startMu.Unlock()

	if !started {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	<-h.done
	return nil
}

func (h *Handler) run(ctx context.Context) {
	defer close(h.done)

	t := time.NewTicker(h.opt.UpdateInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.finalFlush()
			return
		case <-t.C:
			// Peek first: below the threshold the buffer stays untouched.
			if h.buf.Lines() < h.opt.MinimumLines {
				continue
			}
			text, lines := h.buf.DrainAll()
			h.deliver(ctx, text, lines)
		}
	}
}

// finalFlush drains whatever is left regardless of MinimumLines, under a
// short grace context since the parent is already cancelled.
func (h *Handler) finalFlush() {
	text, lines := h.buf.DrainAll()
	if text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	h.deliver(ctx, text, lines)
}
