package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tglogd/internal/config"
	"tglogd/internal/journal"
	"tglogd/internal/tailer"
	"tglogd/pkg/logship"
	logx "tglogd/pkg/logx"
)

// App owns the daemon's components and their lifecycle: config manager,
// diagnostics logging, the delivery handler, file tailers, the flush journal
// and its prune schedule.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	handler *logship.Handler
	store   journal.Store
	tl      *tailer.Tailer
	cr      *cron.Cron

	cfgCh  chan *config.Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("component", "config")))

	return &App{cfgMgr: mgr, logSvc: svc, log: log}, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	ctx, a.cancel = context.WithCancel(ctx)

	opt, err := shipOptions(cfg)
	if err != nil {
		return err
	}
	h, err := logship.NewTelegram(opt)
	if err != nil {
		return fmt.Errorf("telegram handler: %w", err)
	}
	h.SetLogger(a.log.With(logx.String("component", "ship")))

	st, err := journal.Open(journalConfig(cfg), a.log.With(logx.String("component", "journal")))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if st != nil {
		h.SetRecorder(flushJournal{st: st})
	}

	a.store = st

	scan, err := config.ParseDurationField("tail.scan_interval", cfg.Tail.ScanInterval)
	if err != nil {
		return err
	}
	a.startPipeline(ctx, h, tailer.Config{
		Paths:        cfg.Tail.Paths,
		ScanInterval: scan,
		FromStart:    cfg.Tail.FromStart,
	})

	if err := a.startPrune(cfg); err != nil {
		return err
	}

	a.cfgCh = a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go a.reloadLoop(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(ctx)
	}()

	a.log.Info("daemon started",
		logx.Int("tail_paths", len(cfg.Tail.Paths)),
		logx.Int64("chat_id", cfg.Telegram.ChatID),
		logx.Bool("journal", st != nil),
	)
	return nil
}

// startPipeline wires the tailers into the handler and starts both. The flush
// loop runs on a context that survives ctx: shutdown cancellation reaches the
// tailers first, and lines they drain on the way out must still make the final
// flush, so the loop stops only via Close in Stop.
func (a *App) startPipeline(ctx context.Context, h *logship.Handler, tcfg tailer.Config) {
	a.handler = h
	h.Start(context.WithoutCancel(ctx))

	a.tl = tailer.New(tcfg, h)
	a.tl.SetLogger(a.log.With(logx.String("component", "tail")))
	a.tl.Start(ctx)
}

// Stop shuts components down producer-first: tailers finish draining before
// the handler's final flush, so everything they read gets shipped.
func (a *App) Stop(ctx context.Context) error {
	_ = ctx
	if a.tl != nil {
		a.tl.Stop()
	}
	if a.handler != nil {
		_ = a.handler.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.cr != nil {
		<-a.cr.Stop().Done()
	}
	a.wg.Wait()
	if a.cfgCh != nil {
		a.cfgMgr.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("daemon stopped")
	return a.logSvc.Close()
}

// startPrune schedules journal pruning. Both journal.prune_schedule and
// journal.keep must be set; otherwise records accumulate until the operator
// intervenes.
func (a *App) startPrune(cfg *config.Config) error {
	if a.store == nil || cfg.Journal.PruneSchedule == "" || cfg.Journal.Keep == "" {
		return nil
	}
	keep, err := config.ParseDurationField("journal.keep", cfg.Journal.Keep)
	if err != nil {
		return err
	}
	if keep <= 0 {
		return nil
	}

	// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	a.cr = cron.New(cron.WithParser(parser))

	log := a.log.With(logx.String("component", "journal"))
	_, err = a.cr.AddFunc(cfg.Journal.PruneSchedule, func() {
		pctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		removed, err := a.store.Prune(pctx, time.Now().Add(-keep))
		if err != nil {
			log.Warn("journal prune failed", logx.Err(err))
			return
		}
		log.Debug("journal pruned", logx.Int("removed", removed))
	})
	if err != nil {
		return fmt.Errorf("journal.prune_schedule: %w", err)
	}
	a.cr.Start()
	return nil
}

// reloadLoop applies config changes published by the watcher. Only the
// logging section is applied live; everything else is reported as needing a
// restart, since the handler and tailers take their options at construction.
func (a *App) reloadLoop(ctx context.Context) {
	defer a.wg.Done()
	prev := a.cfgMgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			if err := cfg.Validate(); err != nil {
				a.log.Warn("config change rejected", logx.Err(err))
				continue
			}
			changed, attrs := config.SummarizeChange(prev, cfg)
			if len(changed) == 0 {
				continue
			}
			a.log.Info("config changed", append(attrs, logx.Any("sections", changed))...)

			if slices.Contains(changed, "logging") {
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging reconfigured", logx.String("level", cfg.Logging.Level))
			}
			if rest := withoutSection(changed, "logging"); len(rest) > 0 {
				a.log.Warn("config sections require a restart to take effect", logx.Any("sections", rest))
			}
			prev = cfg
		}
	}
}

func withoutSection(sections []string, drop string) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

func shipOptions(cfg *config.Config) (logship.Options, error) {
	interval, err := config.ParseDurationField("ship.update_interval", cfg.Ship.UpdateInterval)
	if err != nil {
		return logship.Options{}, err
	}
	return logship.Options{
		Token:          cfg.Telegram.Token,
		ChatID:         cfg.Telegram.ChatID,
		TopicID:        cfg.Telegram.TopicID,
		Title:          cfg.Ship.Title,
		IgnoreMatch:    cfg.Ship.IgnoreMatch,
		UpdateInterval: interval,
		MinimumLines:   cfg.Ship.MinimumLines,
		PendingLogs:    cfg.Ship.PendingLogs,
		RatePerSec:     cfg.Ship.RatePerSec,
		RetryMax:       cfg.Ship.RetryMax,
	}, nil
}

func journalConfig(cfg *config.Config) journal.Config {
	busy, _ := config.ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout)
	return journal.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		BusyTimeout: busy,
	}
}

// flushJournal adapts the journal store to the handler's recorder interface.
type flushJournal struct {
	st journal.Store
}

func (j flushJournal) RecordFlush(ctx context.Context, r logship.FlushReport) error {
	return j.st.Append(ctx, journal.Record{
		At:        r.At,
		Outcome:   r.Outcome,
		MessageID: r.MessageID,
		Lines:     r.Lines,
		Bytes:     r.Bytes,
		Attempts:  r.Attempts,
		Error:     r.Err,
	})
}
