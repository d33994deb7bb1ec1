// Package app wires configuration, logging, storage, the task registry,
// the metrics store, the notifier and the scheduling engine into one
// process with a New/Start/Stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"pmojobs/internal/config"
	"pmojobs/internal/eventbus"
	"pmojobs/internal/jobs"
	"pmojobs/internal/metrics"
	"pmojobs/internal/notifier"
	"pmojobs/internal/ops"
	"pmojobs/internal/registry"
	"pmojobs/internal/scheduler"
	"pmojobs/internal/storage"
	"pmojobs/internal/telemetry"
	"pmojobs/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	reg   *registry.Registry
	ms    *metrics.Store
	bus   eventbus.Bus
	notif *notifier.Service
	sched *scheduler.Service
	tel   *telemetry.Service
	ops   *ops.Service

	mu       sync.Mutex
	started  bool
	cancelBg context.CancelFunc
	bgWG     sync.WaitGroup
	busUnsub func()
}

// New builds the whole service graph. deps supplies the business runners;
// capabilities left nil stay unbound and their tasks are skipped at
// scheduler start.
func New(cfgPath string, deps jobs.Deps) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
		mgr.Commit(cfg)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log)
	mgr.SetValidator(func(_ context.Context, c *config.Config) error { return c.Validate() })

	// Persistence is optional; a broken override store degrades to static
	// defaults rather than blocking start-up.
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	}, log.With(logx.String("svc", "storage")))
	if err != nil {
		log.Warn("override store unavailable; using static defaults", logx.Err(err))
		store = nil
	}

	reg := registry.New(store, log.With(logx.String("svc", "registry")))
	if err := jobs.Bind(reg, deps); err != nil {
		_ = logSvc.Close()
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("bind runners: %w", err)
	}

	ms := metrics.NewStore(cfg.Metrics.HistorySize)
	bus := eventbus.New()

	notif := notifier.New(notifier.Config{
		Enabled:    cfg.Notifier.Enabled,
		RatePerSec: cfg.Notifier.RatePerSec,
	}, ms, log.With(logx.String("svc", "notifier")))
	notif.Register(notifier.NewLogSender(log))
	if cfg.Notifier.Enabled && cfg.Notifier.Telegram.Enabled {
		tg, err := notifier.NewTelegramSender(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID)
		if err != nil {
			log.Warn("telegram channel unavailable", logx.Err(err))
		} else {
			notif.Register(tg)
		}
	}

	sched := scheduler.New(scheduler.Config{
		Enabled:      cfg.Scheduler.Enabled,
		Workers:      cfg.Scheduler.Workers,
		MisfireGrace: cfg.Scheduler.MisfireGrace,
		Timezone:     cfg.Scheduler.Timezone,
	}, reg, ms, bus, log.With(logx.String("svc", "scheduler")))

	tel := telemetry.New(reg, ms, sched.Status)

	return &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		store:  store,
		reg:    reg,
		ms:     ms,
		bus:    bus,
		notif:  notif,
		sched:  sched,
		tel:    tel,
		ops:    ops.New(reg, sched, tel, log.With(logx.String("svc", "ops"))),
	}, nil
}

// Ops exposes the operator facade for whatever transport sits on top.
func (a *App) Ops() *ops.Service { return a.ops }

// Registry exposes the task catalog.
func (a *App) Registry() *registry.Registry { return a.reg }

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	cfg := a.cfgMgr.Get()

	a.notif.Start(ctx)
	if cfg.Scheduler.Enabled {
		a.sched.Start(ctx)
	} else {
		a.log.Info("scheduler disabled by config")
	}

	// Failed runs become operator notifications.
	events, unsub := a.bus.Subscribe(32)
	a.busUnsub = unsub
	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancelBg = cancel

	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		for {
			select {
			case <-bgCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Type != eventbus.TypeRunFailed {
					continue
				}
				run, ok := ev.Data.(eventbus.RunEvent)
				if !ok {
					continue
				}
				err := a.notif.Notify(notifier.Notification{
					Subject: "task failed: " + run.Name,
					Body:    fmt.Sprintf("task=%s owner=%s error=%s", run.TaskID, run.Owner, run.Error),
				})
				if err != nil && !errors.Is(err, notifier.ErrDisabled) {
					a.log.Debug("failure notification dropped", logx.Err(err))
				}
			}
		}
	}()

	// Hot reload: re-apply runtime knobs when the config file changes.
	updates := a.cfgMgr.Subscribe(1)
	a.bgWG.Add(2)
	go func() {
		defer a.bgWG.Done()
		_ = a.cfgMgr.Watch(bgCtx)
	}()
	go func() {
		defer a.bgWG.Done()
		for {
			select {
			case <-bgCtx.Done():
				return
			case c, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(c)
			}
		}
	}()

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(c *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	})
	a.sched.Apply(scheduler.Config{
		Enabled:      c.Scheduler.Enabled,
		Workers:      c.Scheduler.Workers,
		MisfireGrace: c.Scheduler.MisfireGrace,
		Timezone:     c.Scheduler.Timezone,
	})
	a.notif.Apply(notifier.Config{
		Enabled:    c.Notifier.Enabled,
		RatePerSec: c.Notifier.RatePerSec,
	})
	a.log.Info("config re-applied")
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	wasStarted := a.started
	a.started = false
	cancel := a.cancelBg
	unsub := a.busUnsub
	a.cancelBg = nil
	a.busUnsub = nil
	a.mu.Unlock()

	if wasStarted {
		a.sched.Stop(ctx)
		a.notif.Stop(ctx)
	}
	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	a.bgWG.Wait()

	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("app stopped")
	return a.logSvc.Close()
}
