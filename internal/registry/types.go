// Package registry is the versioned catalog of recurring background tasks.
//
// Static topic-grouped tables declare every task the system knows about;
// persisted overrides (enabled flag, trigger) are merged on top at scheduler
// start. Task bodies are bound through an explicit registration table, so
// the id alone drives behavior without any string-based dispatch.
package registry

import "context"

// Runner is the callable contract for a task body. The body is business
// logic owned elsewhere; the core only invokes it and observes the error.
type Runner func(ctx context.Context) error

// RiskLevel classifies the blast radius of a task misbehaving.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// SLA declares execution expectations for a task. RetryOnFailure is
// recorded as intent only; the engine never re-invokes a failed body.
type SLA struct {
	MaxSeconds     int  `json:"max_seconds"`
	RetryOnFailure bool `json:"retry_on_failure"`
}

// TaskDefinition is one static catalog entry. Definitions are immutable
// after process start.
type TaskDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Target      string      `json:"target"` // runner reference, informational
	Trigger     TriggerSpec `json:"trigger"`
	Owner       string      `json:"owner"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Enabled     bool        `json:"enabled"`
	DependsOn   []string    `json:"depends_on"` // storage resources, informational
	Risk        RiskLevel   `json:"risk_level"`
	SLA         SLA         `json:"sla"`
}

// EffectiveConfig is the merged runtime configuration for one task.
type EffectiveConfig struct {
	Enabled bool
	Trigger TriggerSpec
	// Source is "static" or "override", for logs and the catalog surface.
	Source string
}

// SyncResult reports what an override sync did per task.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}
