package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"pmojobs/pkg/logx"
)

// fire enqueues one execution of job. A fire that arrives while the task
// is already queued or running is coalesced into a no-op, which both
// enforces max-instances=1 and collapses any backlog of missed fires into
// a single run.
func (s *Service) fire(job *jobEntry, manual bool) {
	job.state.mu.Lock()
	if job.state.running || job.state.queued {
		job.state.mu.Unlock()
		s.log.Debug("fire coalesced; task already active",
			logx.String("task", job.def.ID), logx.Bool("manual", manual))
		return
	}
	job.state.queued = true
	job.state.mu.Unlock()

	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		s.clearQueued(job)
		s.log.Debug("scheduler not running; dropping fire", logx.String("task", job.def.ID))
		return
	}
	select {
	case q <- fire{job: job, firedAt: time.Now(), manual: manual}:
	default:
		s.clearQueued(job)
		s.log.Warn("scheduler queue full; dropping fire",
			logx.String("task", job.def.ID), logx.Int("queue_cap", cap(q)))
	}
}

func (s *Service) clearQueued(job *jobEntry) {
	job.state.mu.Lock()
	job.state.queued = false
	job.state.mu.Unlock()
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan fire, idx int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduler worker",
				logx.Int("worker", idx), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case f := <-queue:
			s.execOne(ctx, f)
		}
	}
}

func (s *Service) execOne(ctx context.Context, f fire) {
	job := f.job

	s.mu.Lock()
	grace := s.cfg.MisfireGrace
	s.mu.Unlock()

	// Misfire policy: a scheduled fire that sat in the queue past its grace
	// period is abandoned rather than run late. Manual fires always run.
	if !f.manual && grace > 0 {
		if age := time.Since(f.firedAt); age > grace {
			s.clearQueued(job)
			s.log.Warn("misfire abandoned; fire older than grace period",
				logx.String("task", job.def.ID),
				logx.Duration("age", age),
				logx.Duration("grace", grace))
			return
		}
	}

	job.state.mu.Lock()
	job.state.queued = false
	job.state.running = true
	job.state.mu.Unlock()
	defer func() {
		job.state.mu.Lock()
		job.state.running = false
		job.state.mu.Unlock()
	}()

	runCtx := ctx
	var cancel context.CancelFunc
	if job.def.SLA.MaxSeconds > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(job.def.SLA.MaxSeconds)*time.Second)
		defer cancel()
	}

	// The instrumentation wrapper records metrics and emits the lifecycle
	// events; the engine only observes the final error.
	if err := job.run(runCtx); err != nil {
		// Already counted and logged by the wrapper; this is the engine's
		// native failure channel.
		s.log.Debug("run finished with error", logx.String("task", job.def.ID), logx.Err(err))
	}
}
