// Package ops is the operator-facing query/command surface, consumed by
// an external thin API layer. Authorization itself lives with that
// external collaborator; callers pass the resolved Actor in.
package ops

import (
	"context"
	"errors"
	"fmt"

	"pmojobs/internal/registry"
	"pmojobs/internal/scheduler"
	"pmojobs/internal/telemetry"
	"pmojobs/pkg/logx"
)

var (
	// ErrPermissionDenied maps to HTTP 403 at the transport layer.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound maps to HTTP 404 at the transport layer.
	ErrNotFound = errors.New("not found")
)

// Actor identifies the caller of an admin-gated operation.
type Actor struct {
	Name  string
	Admin bool
}

type Service struct {
	log   logx.Logger
	reg   *registry.Registry
	sched *scheduler.Service
	tel   *telemetry.Service
}

func New(reg *registry.Registry, sched *scheduler.Service, tel *telemetry.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, reg: reg, sched: sched, tel: tel}
}

// Status reports the engine run state. A stopped engine yields a valid
// empty status, never an error.
func (s *Service) Status() scheduler.Status {
	if s.sched == nil {
		return scheduler.Status{}
	}
	return s.sched.Status()
}

// Jobs lists the currently registered tasks with next-fire times.
func (s *Service) Jobs() []scheduler.JobInfo {
	return s.Status().Jobs
}

// Catalog returns the full static task catalog, including dependency
// tables, risk levels and SLAs, for impact-analysis tooling.
func (s *Service) Catalog() []registry.TaskDefinition {
	return s.reg.Definitions()
}

// Metrics returns the structured telemetry snapshot.
func (s *Service) Metrics() telemetry.Report {
	return s.tel.Report()
}

// PrometheusText returns the exposition body; serve it with
// telemetry.ContentType.
func (s *Service) PrometheusText() string {
	return s.tel.PrometheusText()
}

// ForceTrigger queues an immediate fire of the task. The admin capability
// is checked before anything else; an unauthorized or unknown request
// leaves the metrics store untouched.
func (s *Service) ForceTrigger(_ context.Context, actor Actor, id string) error {
	if !actor.Admin {
		return fmt.Errorf("force trigger %s: %w", id, ErrPermissionDenied)
	}
	if s.sched == nil {
		return fmt.Errorf("force trigger %s: %w", id, ErrNotFound)
	}
	if err := s.sched.ForceRun(id); err != nil {
		if errors.Is(err, scheduler.ErrNotRegistered) {
			return fmt.Errorf("force trigger %s: %w", id, ErrNotFound)
		}
		return err
	}
	s.log.Info("task force-triggered",
		logx.String("task", id), logx.String("actor", actor.Name))
	return nil
}

// SyncOverrides seeds the override store from the static tables
// (admin-gated write operation).
func (s *Service) SyncOverrides(ctx context.Context, actor Actor, force bool) (registry.SyncResult, error) {
	if !actor.Admin {
		return registry.SyncResult{}, fmt.Errorf("sync overrides: %w", ErrPermissionDenied)
	}
	return s.reg.SyncOverrides(ctx, force, actor.Name)
}
