package registry

// Static task tables, grouped by topic. Definitions() concatenates them in
// the order of categoryOrder; duplicate ids across tables are a start-up
// configuration error, never silently merged.

var categoryOrder = []string{
	"project_health",
	"cost",
	"supply",
	"reporting",
	"maintenance",
}

var taskTables = map[string][]TaskDefinition{
	"project_health": {
		{
			ID:          "health.project_daily_score",
			Name:        "Project health daily scoring",
			Target:      "jobs.HealthScorer.ScoreAll",
			Trigger:     TriggerSpec{Hour: "6", Minute: "30"},
			Owner:       "pmo-platform",
			Category:    "project_health",
			Description: "Recomputes the health score for every active project from schedule, cost and quality signals.",
			Enabled:     true,
			DependsOn:   []string{"projects", "project_milestones", "project_health_scores"},
			Risk:        RiskHigh,
			SLA:         SLA{MaxSeconds: 600, RetryOnFailure: true},
		},
		{
			ID:          "health.risk_escalation_scan",
			Name:        "Risk escalation scan",
			Target:      "jobs.HealthScorer.EscalationScan",
			Trigger:     TriggerSpec{Minute: "15"},
			Owner:       "pmo-platform",
			Category:    "project_health",
			Description: "Hourly sweep for projects whose health dropped below the escalation threshold.",
			Enabled:     true,
			DependsOn:   []string{"project_health_scores", "risk_register"},
			Risk:        RiskMedium,
			SLA:         SLA{MaxSeconds: 120, RetryOnFailure: false},
		},
	},
	"cost": {
		{
			ID:          "cost.standard_cost_refresh",
			Name:        "Standard cost refresh",
			Target:      "jobs.CostAggregator.RefreshStandardCosts",
			Trigger:     TriggerSpec{Day: "1", Hour: "2"},
			Owner:       "cost-engineering",
			Category:    "cost",
			Description: "Monthly rebuild of standard cost records from the released BOM and routing masters.",
			Enabled:     true,
			DependsOn:   []string{"standard_costs", "bom_items", "routings"},
			Risk:        RiskCritical,
			SLA:         SLA{MaxSeconds: 1800, RetryOnFailure: true},
		},
		{
			ID:          "cost.variance_rollup",
			Name:        "Cost variance rollup",
			Target:      "jobs.CostAggregator.RollupVariances",
			Trigger:     TriggerSpec{Hour: "3"},
			Owner:       "cost-engineering",
			Category:    "cost",
			Description: "Daily aggregation of actual-vs-standard variances into the cost dashboard tables.",
			Enabled:     true,
			DependsOn:   []string{"cost_entries", "standard_costs", "cost_dashboard_cells"},
			Risk:        RiskHigh,
			SLA:         SLA{MaxSeconds: 900, RetryOnFailure: true},
		},
	},
	"supply": {
		{
			ID:          "supply.shortage_detection",
			Name:        "Material shortage detection",
			Target:      "jobs.ShortageScanner.Scan",
			Trigger:     TriggerSpec{Minute: "5"},
			Owner:       "supply-chain",
			Category:    "supply",
			Description: "Hourly comparison of projected demand against on-hand and inbound stock.",
			Enabled:     true,
			DependsOn:   []string{"inventory_levels", "purchase_orders", "material_requirements"},
			Risk:        RiskHigh,
			SLA:         SLA{MaxSeconds: 300, RetryOnFailure: false},
		},
	},
	"reporting": {
		{
			ID:          "report.weekly_pmo_summary",
			Name:        "Weekly PMO summary report",
			Target:      "jobs.ReportBuilder.WeeklySummary",
			Trigger:     TriggerSpec{DayOfWeek: "1", Hour: "7"},
			Owner:       "pmo-platform",
			Category:    "reporting",
			Description: "Monday-morning portfolio report covering health, budget burn and open risks.",
			Enabled:     true,
			DependsOn:   []string{"projects", "budgets", "project_health_scores", "report_archive"},
			Risk:        RiskMedium,
			SLA:         SLA{MaxSeconds: 600, RetryOnFailure: true},
		},
		{
			ID:          "report.dashboard_cache_warm",
			Name:        "Cost dashboard cache warm",
			Target:      "jobs.ReportBuilder.WarmDashboards",
			Trigger:     TriggerSpec{Minute: "*/10"},
			Owner:       "pmo-platform",
			Category:    "reporting",
			Description: "Pre-computes the heavier dashboard aggregates so interactive loads stay fast.",
			Enabled:     true,
			DependsOn:   []string{"cost_dashboard_cells", "budget_snapshots"},
			Risk:        RiskLow,
			SLA:         SLA{MaxSeconds: 60, RetryOnFailure: false},
		},
	},
	"maintenance": {
		{
			ID:          "ops.execution_log_prune",
			Name:        "Execution log prune",
			Target:      "jobs.Housekeeping.PruneExecutionLogs",
			Trigger:     TriggerSpec{Hour: "1", Minute: "10"},
			Owner:       "platform-ops",
			Category:    "maintenance",
			Description: "Drops job execution log rows past the retention window.",
			Enabled:     true,
			DependsOn:   []string{"job_execution_logs"},
			Risk:        RiskLow,
			SLA:         SLA{MaxSeconds: 120, RetryOnFailure: false},
		},
	},
}
