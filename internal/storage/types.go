package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the override store.
//
// Driver values:
//   - "file": dependency-free JSON document backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SLA mirrors the per-task service-level metadata. RetryOnFailure is
// informational only; nothing in the engine re-invokes a failed run.
type SLA struct {
	MaxSeconds     int  `json:"max_seconds"`
	RetryOnFailure bool `json:"retry_on_failure"`
}

// OverrideRecord is the persisted per-task configuration row.
//
// It is seeded from the static registry by SyncOverrides and read once at
// scheduler start. Enabled and Trigger take precedence over the static
// definition; the remaining columns are descriptive copies kept for
// operational tooling.
type OverrideRecord struct {
	TaskID      string            `json:"task_id"`
	Name        string            `json:"name"`
	Target      string            `json:"target"`
	Owner       string            `json:"owner"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Enabled     bool              `json:"enabled"`
	Trigger     map[string]string `json:"trigger"`
	DependsOn   []string          `json:"depends_on"`
	RiskLevel   string            `json:"risk_level"`
	SLA         SLA               `json:"sla"`

	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
