// Package metrics aggregates per-task execution counters, bounded duration
// windows and notification channel counters for the whole process.
package metrics

import (
	"sync"
	"time"
)

const (
	StatusUnset   = "unset"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DefaultHistorySize caps the per-task duration window when no explicit
// capacity is configured.
const DefaultHistorySize = 100

// JobCounters is the cumulative record for one task id.
type JobCounters struct {
	SuccessCount    int64     `json:"success_count"`
	FailureCount    int64     `json:"failure_count"`
	LastDurationMS  int64     `json:"last_duration_ms"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	LastStatus      string    `json:"last_status"`
	LastTimestamp   time.Time `json:"last_timestamp"`
}

// ChannelCounters counts notification deliveries per channel name.
type ChannelCounters struct {
	SuccessCount int64 `json:"success_count"`
	FailureCount int64 `json:"failure_count"`
}

// Snapshot is a deep copy of the store taken under a single lock
// acquisition, so the jobs, duration windows and notification maps are
// mutually consistent and immune to later writes.
type Snapshot struct {
	Jobs          map[string]JobCounters
	Durations     map[string][]int64
	Notifications map[string]ChannelCounters
}

// Store is the process-wide aggregator.
//
// A single coarse mutex guards every mutation and the snapshot copy. Job
// fire rates are on the order of per-minute cron ticks, far below any
// contention threshold, so the simplicity wins over finer locking.
type Store struct {
	mu sync.Mutex

	capacity      int
	jobs          map[string]*JobCounters
	windows       map[string][]int64
	notifications map[string]*ChannelCounters
}

// NewStore returns an empty store whose per-task duration windows hold at
// most historySize samples (DefaultHistorySize when <= 0).
func NewStore(historySize int) *Store {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Store{
		capacity:      historySize,
		jobs:          map[string]*JobCounters{},
		windows:       map[string][]int64{},
		notifications: map[string]*ChannelCounters{},
	}
}

// RecordSuccess records one successful run of the task.
func (s *Store) RecordSuccess(id string, durationMS int64, ts time.Time) {
	s.record(id, durationMS, ts, true)
}

// RecordFailure records one failed run of the task.
func (s *Store) RecordFailure(id string, durationMS int64, ts time.Time) {
	s.record(id, durationMS, ts, false)
}

func (s *Store) record(id string, durationMS int64, ts time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jc := s.jobs[id]
	if jc == nil {
		jc = &JobCounters{LastStatus: StatusUnset}
		s.jobs[id] = jc
	}
	if ok {
		jc.SuccessCount++
		jc.LastStatus = StatusSuccess
	} else {
		jc.FailureCount++
		jc.LastStatus = StatusFailed
	}
	jc.LastDurationMS = durationMS
	jc.TotalDurationMS += durationMS
	jc.LastTimestamp = ts

	w := s.windows[id]
	if len(w) >= s.capacity {
		// evict exactly the oldest sample
		copy(w, w[1:])
		w[len(w)-1] = durationMS
	} else {
		w = append(w, durationMS)
	}
	s.windows[id] = w
}

// RecordNotification counts one delivery attempt on the named channel.
func (s *Store) RecordNotification(channel string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := s.notifications[channel]
	if cc == nil {
		cc = &ChannelCounters{}
		s.notifications[channel] = cc
	}
	if ok {
		cc.SuccessCount++
	} else {
		cc.FailureCount++
	}
}

// Snapshot deep-copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Jobs:          make(map[string]JobCounters, len(s.jobs)),
		Durations:     make(map[string][]int64, len(s.windows)),
		Notifications: make(map[string]ChannelCounters, len(s.notifications)),
	}
	for id, jc := range s.jobs {
		snap.Jobs[id] = *jc
	}
	for id, w := range s.windows {
		snap.Durations[id] = append([]int64(nil), w...)
	}
	for ch, cc := range s.notifications {
		snap.Notifications[ch] = *cc
	}
	return snap
}

// Reset clears all state. Used for test isolation and operational resets.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = map[string]*JobCounters{}
	s.windows = map[string][]int64{}
	s.notifications = map[string]*ChannelCounters{}
}
