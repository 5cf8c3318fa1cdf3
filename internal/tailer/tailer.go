package tailer

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/hpcloud/tail"

	logx "tglogd/pkg/logx"
)

const defaultScanInterval = 10 * time.Second

// Config controls which files are followed and how.
type Config struct {
	// Paths are file paths or globs. Globs are re-expanded on every scan so
	// files created after startup are picked up.
	Paths []string

	// ScanInterval is how often globs are re-expanded. 0 means the default.
	ScanInterval time.Duration

	// FromStart replays existing file content instead of seeking to the end.
	FromStart bool
}

// Tailer follows a set of log files and writes each complete line to a sink.
// One goroutine per file; rotated or truncated files are reopened.
type Tailer struct {
	cfg  Config
	sink io.Writer
	log  logx.Logger

	mu   sync.Mutex
	seen map[string]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, sink io.Writer) *Tailer {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	return &Tailer{
		cfg:  cfg,
		sink: sink,
		log:  logx.Nop(),
		seen: make(map[string]struct{}),
	}
}

func (t *Tailer) SetLogger(log logx.Logger) {
	if !log.IsZero() {
		t.log = log
	}
}

// Start expands the configured globs once, then keeps rescanning in the
// background until ctx is cancelled or Stop is called.
func (t *Tailer) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)

	t.scan(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.scan(ctx)
			}
		}
	}()
}

// Stop halts scanning and waits for all file followers to exit.
func (t *Tailer) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

func (t *Tailer) scan(ctx context.Context) {
	for _, pattern := range t.cfg.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			t.log.Warn("bad tail pattern", logx.String("pattern", pattern), logx.Err(err))
			continue
		}
		if len(matches) == 0 {
			// a plain path that does not exist yet; keep rescanning
			continue
		}
		for _, path := range matches {
			t.mu.Lock()
			if _, ok := t.seen[path]; ok {
				t.mu.Unlock()
				continue
			}
			t.seen[path] = struct{}{}
			t.mu.Unlock()

			t.wg.Add(1)
			go t.follow(ctx, path)
		}
	}
}

func (t *Tailer) follow(ctx context.Context, path string) {
	defer t.wg.Done()

	loc := &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	if t.cfg.FromStart {
		loc = nil
	}
	tf, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     true,
		Location: loc,
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		t.log.Warn("tail failed", logx.String("path", path), logx.Err(err))
		t.forget(path)
		return
	}
	defer func() {
		_ = tf.Stop()
		tf.Cleanup()
	}()

	t.log.Info("following file", logx.String("path", path), logx.Bool("from_start", t.cfg.FromStart))

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-tf.Lines:
			if !ok {
				t.log.Warn("tail stopped", logx.String("path", path), logx.Err(tf.Err()))
				t.forget(path)
				return
			}
			if line.Err != nil {
				t.log.Debug("tail read error", logx.String("path", path), logx.Err(line.Err))
				continue
			}
			_, _ = t.sink.Write(append([]byte(line.Text), '\n'))
		}
	}
}

// forget lets a later scan retry the file after a follower dies.
func (t *Tailer) forget(path string) {
	t.mu.Lock()
	delete(t.seen, path)
	t.mu.Unlock()
}
