// Package telemetry combines metrics store snapshots, derived statistics
// and registry metadata into the operator-facing representations: a
// structured report and a Prometheus-compatible text exposition.
package telemetry

import (
	"sort"
	"time"

	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/internal/scheduler"
)

// TaskReport merges cumulative counters with derived duration statistics
// for one task. The statistic pointers are nil when no samples exist:
// "unavailable" is not the same as zero.
type TaskReport struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Category string `json:"category"`
	Risk     string `json:"risk_level"`

	SuccessCount    int64     `json:"success_count"`
	FailureCount    int64     `json:"failure_count"`
	LastDurationMS  int64     `json:"last_duration_ms"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	LastStatus      string    `json:"last_status"`
	LastTimestamp   time.Time `json:"last_timestamp"`

	SampleCount int      `json:"sample_count"`
	AvgMS       *float64 `json:"avg_ms,omitempty"`
	P50MS       *float64 `json:"p50_ms,omitempty"`
	P95MS       *float64 `json:"p95_ms,omitempty"`
	P99MS       *float64 `json:"p99_ms,omitempty"`
	MinMS       *int64   `json:"min_ms,omitempty"`
	MaxMS       *int64   `json:"max_ms,omitempty"`
}

// ChannelReport is the delivery counter pair for one notification channel.
type ChannelReport struct {
	Channel      string `json:"channel"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
}

// Report is the structured telemetry snapshot.
type Report struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Running       bool            `json:"running"`
	JobCount      int             `json:"job_count"`
	TaskTotal     int             `json:"task_total"`
	Tasks         []TaskReport    `json:"tasks"`
	Notifications []ChannelReport `json:"notifications"`
}

// Service is a read-only view over the registry, the metrics store and the
// engine status.
type Service struct {
	reg    *registry.Registry
	ms     *metrics.Store
	status func() scheduler.Status
}

// New wires the telemetry view. status may be nil when no engine exists;
// reports then degrade to running=false with zero jobs.
func New(reg *registry.Registry, ms *metrics.Store, status func() scheduler.Status) *Service {
	return &Service{reg: reg, ms: ms, status: status}
}

// Report builds the structured snapshot. Every catalog task is reported,
// including ones that have never run (zero-valued counters, no statistics).
func (s *Service) Report() Report {
	snap := s.ms.Snapshot()

	rep := Report{GeneratedAt: time.Now()}
	if s.status != nil {
		st := s.status()
		rep.Running = st.Running
		rep.JobCount = st.JobCount
	}

	for _, def := range s.reg.Definitions() {
		jc := snap.Jobs[def.ID] // zero value materializes an unseen task
		if jc.LastStatus == "" {
			jc.LastStatus = metrics.StatusUnset
		}
		tr := TaskReport{
			ID:              def.ID,
			Name:            def.Name,
			Owner:           def.Owner,
			Category:        def.Category,
			Risk:            string(def.Risk),
			SuccessCount:    jc.SuccessCount,
			FailureCount:    jc.FailureCount,
			LastDurationMS:  jc.LastDurationMS,
			TotalDurationMS: jc.TotalDurationMS,
			LastStatus:      jc.LastStatus,
			LastTimestamp:   jc.LastTimestamp,
		}
		if sum := metrics.Summarize(snap.Durations[def.ID]); sum.Count > 0 {
			tr.SampleCount = sum.Count
			tr.AvgMS = ptr(sum.AvgMS)
			tr.P50MS = ptr(sum.P50MS)
			tr.P95MS = ptr(sum.P95MS)
			tr.P99MS = ptr(sum.P99MS)
			tr.MinMS = ptr(sum.MinMS)
			tr.MaxMS = ptr(sum.MaxMS)
		}
		rep.Tasks = append(rep.Tasks, tr)
	}
	rep.TaskTotal = len(rep.Tasks)

	channels := make([]string, 0, len(snap.Notifications))
	for ch := range snap.Notifications {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		cc := snap.Notifications[ch]
		rep.Notifications = append(rep.Notifications, ChannelReport{
			Channel:      ch,
			SuccessCount: cc.SuccessCount,
			FailureCount: cc.FailureCount,
		})
	}
	return rep
}

func ptr[T any](v T) *T { return &v }
