// Package jobs binds task ids to their business runners.
//
// The actual business logic (health scoring, shortage detection, cost
// aggregation, reporting) lives behind the Deps interfaces and is supplied
// by the embedding application. A nil capability simply leaves its tasks
// unbound, so the scheduler skips them with a logged resolution error
// instead of running a stub.
package jobs

import (
	"context"

	"pmojobs/internal/registry"
)

// HealthScorer computes and escalates project health.
type HealthScorer interface {
	ScoreAll(ctx context.Context) error
	EscalationScan(ctx context.Context) error
}

// CostAggregator maintains standard costs and variance rollups.
type CostAggregator interface {
	RefreshStandardCosts(ctx context.Context) error
	RollupVariances(ctx context.Context) error
}

// ShortageScanner detects material shortages.
type ShortageScanner interface {
	Scan(ctx context.Context) error
}

// ReportBuilder produces the PMO reports and dashboard caches.
type ReportBuilder interface {
	WeeklySummary(ctx context.Context) error
	WarmDashboards(ctx context.Context) error
}

// Housekeeping owns retention and cleanup work.
type Housekeeping interface {
	PruneExecutionLogs(ctx context.Context) error
}

// Deps carries the business capabilities. Any field may be nil.
type Deps struct {
	Health    HealthScorer
	Cost      CostAggregator
	Shortage  ShortageScanner
	Reports   ReportBuilder
	Housekeep Housekeeping
}

// Bind registers a runner for every capability present in deps. It returns
// the first binding error (unknown id means the static tables and this
// package drifted apart).
func Bind(reg *registry.Registry, deps Deps) error {
	type binding struct {
		id string
		fn registry.Runner
	}
	var bindings []binding

	if deps.Health != nil {
		bindings = append(bindings,
			binding{"health.project_daily_score", deps.Health.ScoreAll},
			binding{"health.risk_escalation_scan", deps.Health.EscalationScan},
		)
	}
	if deps.Cost != nil {
		bindings = append(bindings,
			binding{"cost.standard_cost_refresh", deps.Cost.RefreshStandardCosts},
			binding{"cost.variance_rollup", deps.Cost.RollupVariances},
		)
	}
	if deps.Shortage != nil {
		bindings = append(bindings, binding{"supply.shortage_detection", deps.Shortage.Scan})
	}
	if deps.Reports != nil {
		bindings = append(bindings,
			binding{"report.weekly_pmo_summary", deps.Reports.WeeklySummary},
			binding{"report.dashboard_cache_warm", deps.Reports.WarmDashboards},
		)
	}
	if deps.Housekeep != nil {
		bindings = append(bindings, binding{"ops.execution_log_prune", deps.Housekeep.PruneExecutionLogs})
	}

	for _, b := range bindings {
		if err := reg.Bind(b.id, b.fn); err != nil {
			return err
		}
	}
	return nil
}
