package tailer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *memSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *memSink) waitFor(t *testing.T, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(s.String(), substr) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("sink never received %q; got %q", substr, s.String())
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFollowsAppendedLines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendLine(t, path, "before start")

	sink := &memSink{}
	tl := New(Config{Paths: []string{path}, ScanInterval: 50 * time.Millisecond}, sink)
	tl.Start(context.Background())
	defer tl.Stop()

	// Give the follower time to seek to the end before appending.
	time.Sleep(300 * time.Millisecond)
	appendLine(t, path, "after start")

	sink.waitFor(t, "after start\n", 5*time.Second)
	assert.NotContains(t, sink.String(), "before start")
}

func TestFromStartReplaysExistingContent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendLine(t, path, "history")

	sink := &memSink{}
	tl := New(Config{Paths: []string{path}, FromStart: true, ScanInterval: 50 * time.Millisecond}, sink)
	tl.Start(context.Background())
	defer tl.Stop()

	sink.waitFor(t, "history\n", 5*time.Second)
}

func TestGlobPicksUpNewFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	sink := &memSink{}
	tl := New(Config{
		Paths:        []string{filepath.Join(dir, "*.log")},
		FromStart:    true,
		ScanInterval: 50 * time.Millisecond,
	}, sink)
	tl.Start(context.Background())
	defer tl.Stop()

	// The file appears only after the tailer started.
	time.Sleep(150 * time.Millisecond)
	appendLine(t, filepath.Join(dir, "late.log"), "late arrival")

	sink.waitFor(t, "late arrival\n", 5*time.Second)
}

func TestStopWithoutFiles(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	tl := New(Config{Paths: []string{filepath.Join(t.TempDir(), "missing.log")}}, sink)
	tl.Start(context.Background())
	tl.Stop()
}
