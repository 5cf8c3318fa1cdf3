package logship

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHandlerFlushesBufferedLines(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	h := newTestHandler(t, Options{UpdateInterval: 100 * time.Millisecond, MinimumLines: 1}, ft)
	h.Start(context.Background())
	defer h.Close()

	_, _ = h.Write([]byte("one\n"))
	_, _ = h.Write([]byte("two\n"))
	_, _ = h.Write([]byte("three")) // terminator added by the handler

	time.Sleep(250 * time.Millisecond)

	calls := ft.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want exactly 1 delivery", len(calls))
	}
	for _, want := range []string{"one\n", "two\n", "three\n"} {
		if !strings.Contains(calls[0].Text, want) {
			t.Fatalf("delivery missing %q: %q", want, calls[0].Text)
		}
	}
}

func TestHandlerHonorsMinimumLines(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	h := newTestHandler(t, Options{UpdateInterval: 50 * time.Millisecond, MinimumLines: 3}, ft)
	h.Start(context.Background())
	defer h.Close()

	_, _ = h.Write([]byte("one\n"))
	_, _ = h.Write([]byte("two\n"))
	time.Sleep(150 * time.Millisecond)

	if got := len(ft.Calls()); got != 0 {
		t.Fatalf("calls = %d, want 0 below minimum", got)
	}

	_, _ = h.Write([]byte("three\n"))
	time.Sleep(150 * time.Millisecond)

	calls := ft.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Text, "one\n") || !strings.Contains(calls[0].Text, "three\n") {
		t.Fatalf("delivery missing earlier lines: %q", calls[0].Text)
	}
}

func TestHandlerOversizeLineShipsAsFile(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	h := newTestHandler(t, Options{
		UpdateInterval: 50 * time.Millisecond,
		PendingLogs:    200000,
	}, ft)
	h.Start(context.Background())
	defer h.Close()

	_, _ = h.Write([]byte(strings.Repeat("x", 250000) + "\n"))
	time.Sleep(150 * time.Millisecond)

	calls := ft.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Op != "doc" {
		t.Fatalf("op = %s, want doc", calls[0].Op)
	}
}

func TestHandlerIgnoreMatch(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	h := newTestHandler(t, Options{
		UpdateInterval: 50 * time.Millisecond,
		IgnoreMatch:    []string{"healthz"},
	}, ft)
	h.Start(context.Background())
	defer h.Close()

	_, _ = h.Write([]byte("GET /healthz 200\n"))
	_, _ = h.Write([]byte("boom\n"))
	time.Sleep(150 * time.Millisecond)

	calls := ft.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if strings.Contains(calls[0].Text, "healthz") {
		t.Fatalf("ignored line was shipped: %q", calls[0].Text)
	}
}

func TestHandlerCloseFlushesRemainder(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	// Long interval: the ticker never fires during the test, so the only way
	// this line ships is the final flush on Close.
	h := newTestHandler(t, Options{UpdateInterval: time.Hour}, ft)
	h.Start(context.Background())

	_, _ = h.Write([]byte("last words\n"))
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	calls := ft.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1 final flush", len(calls))
	}
	if !strings.Contains(calls[0].Text, "last words\n") {
		t.Fatalf("final flush text = %q", calls[0].Text)
	}
}

func TestHandlerCloseWithoutStart(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	h := newTestHandler(t, Options{}, ft)
	if err := h.Close(); err != nil {
		t.Fatalf("Close before Start: %v", err)
	}
}
