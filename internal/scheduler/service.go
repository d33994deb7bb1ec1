package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"pmojobs/internal/eventbus"
	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/pkg/logx"
)

func New(cfg Config, reg *registry.Registry, ms *metrics.Store, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		reg: reg,
		ms:  ms,
		bus: bus,
		// Six-field specs (with seconds) so structured triggers can pin the
		// second field.
		parser: cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		jobs:   map[string]*jobEntry{},
	}
}

// Apply updates runtime knobs. Worker count takes effect on the next
// Start(); misfire grace applies immediately.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Running reports whether the engine is currently started.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// Start resolves every static definition to its effective configuration,
// registers the enabled ones and launches the worker pool. Per-task
// failures (bad trigger, unbound runner) skip that task only.
func (s *Service) Start(ctx context.Context) {
	// Wait out an in-progress Stop() so worker pools never overlap.
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		if done == nil {
			// already running
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
	defer s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	// Fresh queue per run so stale fires from a previous run never execute.
	s.queue = make(chan fire, 64)

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	s.jobs = map[string]*jobEntry{}
	s.order = nil

	for _, def := range s.reg.Definitions() {
		s.registerLocked(ctx, def)
	}

	runCtx := s.runCtx
	stopCh := s.stopCh
	queue := s.queue

	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer s.workerWG.Done()
			s.worker(runCtx, stopCh, queue, idx)
		}()
	}
	s.c.Start()
	s.log.Info("scheduler started",
		logx.Int("workers", workers),
		logx.String("tz", loc.String()),
		logx.Int("jobs", len(s.jobs)))
}

func (s *Service) registerLocked(ctx context.Context, def registry.TaskDefinition) {
	eff, err := s.reg.EffectiveConfig(ctx, def.ID)
	if err != nil {
		s.log.Error("effective config failed; skipping task", logx.String("task", def.ID), logx.Err(err))
		return
	}
	if !eff.Enabled {
		s.log.Debug("task disabled; not registering", logx.String("task", def.ID))
		return
	}
	spec, err := eff.Trigger.CronSpec()
	if err != nil {
		s.log.Error("invalid trigger; skipping task", logx.String("task", def.ID), logx.Err(err))
		return
	}
	fn, ok := s.reg.Runner(def.ID)
	if !ok {
		s.log.Error("no runner bound; skipping task", logx.String("task", def.ID), logx.String("target", def.Target))
		return
	}

	job := &jobEntry{
		def:     def,
		trigger: eff.Trigger,
		spec:    spec,
		run:     Instrument(def, s.ms, s.bus, s.log, fn),
	}
	entryID, err := s.c.AddFunc(spec, func() { s.fire(job, false) })
	if err != nil {
		s.log.Error("cron registration failed; skipping task",
			logx.String("task", def.ID), logx.String("spec", spec), logx.Err(err))
		return
	}
	job.entryID = entryID
	s.jobs[def.ID] = job
	s.order = append(s.order, def.ID)
	s.log.Debug("task registered",
		logx.String("task", def.ID),
		logx.String("spec", spec),
		logx.String("source", eff.Source))
}

// Stop quits accepting fires, lets running tasks finish, then releases the
// cron and worker resources. Safe to call repeatedly.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	stopCh := s.stopCh
	cancel := s.runCancel
	c := s.c
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}

	go func() {
		s.workerWG.Wait()
		s.mu.Lock()
		s.stopCh = nil
		s.runCtx = nil
		s.queue = nil
		s.stopDone = nil
		s.mu.Unlock()
		close(done)
		s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// stop continues in background
	}
}

// Status summarizes the engine state. A stopped engine yields a valid,
// empty status rather than an error.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.stopCh != nil && s.stopDone == nil, Workers: s.cfg.Workers}
	if s.loc != nil {
		st.Timezone = s.loc.String()
	}
	if !st.Running || s.c == nil {
		return st
	}
	for _, id := range s.order {
		job := s.jobs[id]
		entry := s.c.Entry(job.entryID)
		st.Jobs = append(st.Jobs, JobInfo{
			ID:       job.def.ID,
			Name:     job.def.Name,
			Target:   job.def.Target,
			Trigger:  job.trigger.Describe(),
			CronSpec: job.spec,
			Next:     entry.Next,
			Prev:     entry.Prev,
		})
	}
	st.JobCount = len(st.Jobs)
	return st
}

// ForceRun queues an immediate fire of the given task, subject to the same
// single-instance policy as scheduled fires. Capability checks belong to
// the caller; here only registration is verified.
func (s *Service) ForceRun(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	running := s.stopCh != nil && s.stopDone == nil
	s.mu.Unlock()
	if !running || !ok {
		return ErrNotRegistered
	}
	s.fire(job, true)
	return nil
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
