package logship

import (
	"context"
	"strings"
	"time"

	"tglogd/pkg/logx"
)

// Flush outcomes, as recorded in FlushReport.
const (
	OutcomeSend    = "send"
	OutcomeEdit    = "edit"
	OutcomeFile    = "file"
	OutcomeDropped = "dropped"
)

// FlushReport summarizes one completed flush for local diagnostics.
type FlushReport struct {
	At        time.Time
	Outcome   string
	MessageID int
	Lines     int
	Bytes     int
	Attempts  int
	Err       string
}

// FlushRecorder receives one report per completed flush. Implementations are
// local-only sinks (a journal, a counter); they must not ship back to the
// transport.
type FlushRecorder interface {
	RecordFlush(ctx context.Context, r FlushReport) error
}

// sendState names the phases of one flush's attempt sequence.
type sendState int

const (
	stateIdle sendState = iota
	stateSending
	stateBackoff
	stateDropped
)

func (s sendState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSending:
		return "sending"
	case stateBackoff:
		return "backoff"
	case stateDropped:
		return "dropped"
	}
	return "unknown"
}

// retryMachine is the bounded sleep-and-retry policy for a single flush.
// Flood waits use the duration the remote service signalled; other failures
// use a short linear backoff. Both spend from the same attempt budget, so a
// flush always terminates in Idle (delivered) or Dropped.
type retryMachine struct {
	max      int // extra attempts after the first
	state    sendState
	attempts int
}

func newRetryMachine(max int) *retryMachine {
	return &retryMachine{max: max, state: stateIdle}
}

func (m *retryMachine) Begin() {
	m.state = stateSending
	m.attempts++
}

func (m *retryMachine) Done() { m.state = stateIdle }

// Fail records a failed attempt and returns the wait before the next one and
// whether a next one is allowed. Once the budget is spent the machine lands
// in Dropped and stays there.
func (m *retryMachine) Fail(err error) (time.Duration, bool) {
	if m.attempts > m.max {
		m.state = stateDropped
		return 0, false
	}
	m.state = stateBackoff
	if wait, ok := isFlood(err); ok {
		return wait, true
	}
	return backoffDelay(m.attempts), true
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * 250 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// deliver runs one full delivery cycle for a drained batch. Batches above the
// file threshold ship as a document. A batch too long for one chat message but
// under the threshold is walked through in message-sized windows, cut at
// newline boundaries, so it becomes several sends instead of one oversized
// call the API would reject.
func (h *Handler) deliver(ctx context.Context, text string, lines int) {
	if text == "" {
		return
	}
	if len(text) > h.opt.PendingLogs || len(h.opt.Title)+len(text) <= maxMessageLen {
		h.deliverBatch(ctx, text, lines)
		return
	}
	for text != "" {
		chunk, rest := splitWindow(h.opt.Title, text, maxMessageLen)
		n := strings.Count(chunk, "\n")
		if n == 0 {
			n = 1
		}
		h.deliverBatch(ctx, chunk, n)
		text = rest
	}
}

// splitWindow cuts text to the largest leading chunk that fits a single
// message alongside title, preferring a newline boundary. A single line wider
// than the window is hard-cut so the walk always makes progress.
func splitWindow(title, text string, max int) (chunk, rest string) {
	room := max - len(title)
	if room < 1 {
		room = 1
	}
	if len(text) <= room {
		return text, ""
	}
	cut := strings.LastIndexByte(text[:room], '\n')
	if cut < 0 {
		cut = room
	} else {
		cut++
	}
	return text[:cut], text[cut:]
}

// deliverBatch performs the attempt sequence for one message-or-document sized
// batch: decide the operation, perform it, and ride out flood waits and
// transient errors until the batch is delivered or the retry budget is spent.
func (h *Handler) deliverBatch(ctx context.Context, text string, lines int) {
	m := newRetryMachine(h.opt.RetryMax)
	var (
		outcome string
		msgID   int
		lastErr error
	)
	for {
		m.Begin()
		outcome, msgID, lastErr = h.attempt(ctx, text)
		if lastErr == nil {
			m.Done()
			h.record(ctx, FlushReport{
				At: time.Now(), Outcome: outcome, MessageID: msgID,
				Lines: lines, Bytes: len(text), Attempts: m.attempts,
			})
			return
		}
		wait, retry := m.Fail(lastErr)
		if !retry {
			break
		}
		if _, flood := isFlood(lastErr); flood {
			h.log.Warn("telegram flood wait",
				logx.Duration("wait", wait), logx.Int("attempt", m.attempts))
		} else {
			h.log.Warn("delivery attempt failed",
				logx.Err(lastErr), logx.Duration("backoff", wait), logx.Int("attempt", m.attempts))
		}
		if !sleepCtx(ctx, wait) {
			m.state = stateDropped
			break
		}
	}

	h.log.Error("log batch dropped",
		logx.Err(lastErr), logx.Int("lines", lines), logx.Int("bytes", len(text)),
		logx.Int("attempts", m.attempts))
	h.record(ctx, FlushReport{
		At: time.Now(), Outcome: OutcomeDropped,
		Lines: lines, Bytes: len(text), Attempts: m.attempts, Err: errString(lastErr),
	})
}

// attempt performs exactly one transport call for the batch. The choice of
// call is recomputed from the delivery state each time, so a retry after an
// edit-reset naturally becomes a fresh send.
func (h *Handler) attempt(ctx context.Context, text string) (string, int, error) {
	if len(text) > h.opt.PendingLogs {
		if err := h.lim.Wait(ctx); err != nil {
			return OutcomeFile, 0, err
		}
		id, err := h.tr.SendDocument(ctx, h.docName, []byte(text), h.docCaption)
		if err != nil {
			return OutcomeFile, 0, err
		}
		// The next flush starts a fresh message rather than appending to a file.
		h.resetMessage()
		return OutcomeFile, id, nil
	}

	if h.msgID != 0 {
		combined := h.sent + text
		if len(h.opt.Title)+len(combined) <= maxMessageLen {
			if err := h.lim.Wait(ctx); err != nil {
				return OutcomeEdit, h.msgID, err
			}
			id := h.msgID
			if err := h.tr.EditMessage(ctx, id, wrapCode(h.opt.Title, combined)); err != nil {
				if isPermanent(err) {
					// Message gone or rejected for good; start fresh on the retry.
					h.resetMessage()
				}
				return OutcomeEdit, id, err
			}
			h.sent = combined
			return OutcomeEdit, id, nil
		}
		// Current message is full; fall through to a new send.
		h.resetMessage()
	}

	if err := h.lim.Wait(ctx); err != nil {
		return OutcomeSend, 0, err
	}
	id, err := h.tr.SendMessage(ctx, wrapCode(h.opt.Title, text))
	if err != nil {
		return OutcomeSend, 0, err
	}
	h.msgID = id
	h.sent = text
	return OutcomeSend, id, nil
}

func (h *Handler) resetMessage() {
	h.msgID = 0
	h.sent = ""
}

func (h *Handler) record(ctx context.Context, r FlushReport) {
	if h.rec == nil {
		return
	}
	if err := h.rec.RecordFlush(ctx, r); err != nil {
		h.log.Debug("flush record failed", logx.Err(err))
	}
}

func wrapCode(title, text string) string {
	return "```" + title + "\n" + text + "```"
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
