// Package scheduler turns enabled task definitions into live cron entries
// executed on a fixed worker pool, with single-instance and misfire
// guarantees per task.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pmojobs/internal/eventbus"
	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/pkg/logx"
)

// ErrNotRegistered is returned when an operation names a task id that is
// not currently scheduled (disabled, unbound, or unknown).
var ErrNotRegistered = errors.New("task is not registered with the scheduler")

// Config controls the scheduling engine.
type Config struct {
	Enabled bool
	Workers int
	// MisfireGrace is how stale a queued fire may become before it is
	// abandoned instead of run late.
	MisfireGrace time.Duration
	Timezone     string // IANA TZ, e.g. "Asia/Shanghai"
}

// runState serializes fires for one task: a fire that arrives while the
// task is queued or running is coalesced into a no-op.
type runState struct {
	mu      sync.Mutex
	running bool
	queued  bool
}

// fire is one pending execution on the worker queue.
type fire struct {
	job     *jobEntry
	firedAt time.Time
	manual  bool
}

// jobEntry is one registered task.
type jobEntry struct {
	def     registry.TaskDefinition
	trigger registry.TriggerSpec
	spec    string // rendered cron expression
	run     registry.Runner
	entryID cron.EntryID
	state   runState
}

// JobInfo describes a registered task for the operator surface.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Target      string    `json:"target"`
	Trigger     string    `json:"trigger"`
	CronSpec    string    `json:"cron_spec"`
	Next        time.Time `json:"next_run_at"`
	Prev        time.Time `json:"prev_run_at"`
}

// Status is the engine run-state summary. When the engine is stopped it is
// still well-formed: Running=false, JobCount=0.
type Status struct {
	Running  bool      `json:"running"`
	Timezone string    `json:"timezone"`
	Workers  int       `json:"workers"`
	JobCount int       `json:"job_count"`
	Jobs     []JobInfo `json:"jobs"`
}

// Service is the scheduling engine. Construct with New, then Start/Stop.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	reg *registry.Registry
	ms  *metrics.Store
	bus eventbus.Bus

	cfg    Config
	loc    *time.Location
	parser cron.Parser

	c     *cron.Cron
	jobs  map[string]*jobEntry
	order []string

	queue    chan fire
	stopCh   chan struct{}
	stopDone chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}
