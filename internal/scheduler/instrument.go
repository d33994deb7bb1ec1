package scheduler

import (
	"context"
	"time"

	"pmojobs/internal/eventbus"
	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/pkg/logx"
)

// Instrument decorates a task runner so every invocation is observable
// without the body cooperating: a run-start event before the call, a
// success or failure record in the metrics store after it, and the
// original error returned unchanged so the engine's own failure handling
// still sees it. No retry happens here; retry intent is SLA metadata only.
func Instrument(def registry.TaskDefinition, ms *metrics.Store, bus eventbus.Bus, log logx.Logger, fn registry.Runner) registry.Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return func(ctx context.Context) error {
		start := time.Now()
		log.Info("task run started",
			logx.String("task", def.ID),
			logx.String("name", def.Name),
			logx.String("owner", def.Owner),
			logx.String("category", def.Category))
		publish(bus, eventbus.TypeRunStart, eventbus.RunEvent{
			TaskID:   def.ID,
			Name:     def.Name,
			Owner:    def.Owner,
			Category: def.Category,
			Started:  start,
		})

		err := fn(ctx)

		dur := time.Since(start)
		now := time.Now()
		if err != nil {
			if ms != nil {
				ms.RecordFailure(def.ID, dur.Milliseconds(), now)
			}
			log.Warn("task run failed",
				logx.String("task", def.ID),
				logx.Duration("dur", dur),
				logx.Err(err))
			publish(bus, eventbus.TypeRunFailed, eventbus.RunEvent{
				TaskID:   def.ID,
				Name:     def.Name,
				Owner:    def.Owner,
				Category: def.Category,
				Started:  start,
				Duration: dur,
				Error:    err.Error(),
			})
			return err
		}

		if ms != nil {
			ms.RecordSuccess(def.ID, dur.Milliseconds(), now)
		}
		log.Info("task run succeeded",
			logx.String("task", def.ID),
			logx.Duration("dur", dur))
		publish(bus, eventbus.TypeRunSuccess, eventbus.RunEvent{
			TaskID:   def.ID,
			Name:     def.Name,
			Owner:    def.Owner,
			Category: def.Category,
			Started:  start,
			Duration: dur,
		})
		return nil
	}
}

func publish(bus eventbus.Bus, typ string, ev eventbus.RunEvent) {
	if bus == nil {
		return
	}
	bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
