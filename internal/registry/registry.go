package registry

import (
	"context"
	"fmt"
	"sync"

	"pmojobs/internal/storage"
	"pmojobs/pkg/logx"
)

// Registry merges the static task tables with persisted overrides and owns
// the id → runner binding table.
type Registry struct {
	log   logx.Logger
	store storage.Store // nil when persistence is disabled

	defs []TaskDefinition
	byID map[string]TaskDefinition

	mu      sync.RWMutex
	runners map[string]Runner
}

// New builds the registry from the built-in task tables.
//
// Duplicate ids across tables are a configuration error: the first
// occurrence wins, later ones are dropped with a logged error so the rest
// of start-up can proceed.
func New(store storage.Store, log logx.Logger) *Registry {
	return newFromTables(categoryOrder, taskTables, store, log)
}

func newFromTables(order []string, tables map[string][]TaskDefinition, store storage.Store, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Registry{
		log:     log,
		store:   store,
		byID:    map[string]TaskDefinition{},
		runners: map[string]Runner{},
	}
	for _, cat := range order {
		for _, def := range tables[cat] {
			if _, dup := r.byID[def.ID]; dup {
				r.log.Error("duplicate task id in static tables; dropping later definition",
					logx.String("task", def.ID), logx.String("category", cat))
				continue
			}
			r.byID[def.ID] = def
			r.defs = append(r.defs, def)
		}
	}
	return r
}

// Definitions returns the ordered catalog. The returned slice is a copy.
func (r *Registry) Definitions() []TaskDefinition {
	out := make([]TaskDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the static definition for id.
func (r *Registry) Lookup(id string) (TaskDefinition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// Bind attaches a runner to a task id. Binding an id the static tables do
// not declare is a programming error and is rejected.
func (r *Registry) Bind(id string, fn Runner) error {
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("bind %s: no such task definition", id)
	}
	if fn == nil {
		return fmt.Errorf("bind %s: nil runner", id)
	}
	r.mu.Lock()
	r.runners[id] = fn
	r.mu.Unlock()
	return nil
}

// Runner resolves the bound runner for id.
func (r *Registry) Runner(id string) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.runners[id]
	return fn, ok
}

// EffectiveConfig merges a persisted override over the static definition.
// A missing or unreachable override store degrades to the static default;
// the latter is logged as a warning (fail open, never surfaced to callers).
func (r *Registry) EffectiveConfig(ctx context.Context, id string) (EffectiveConfig, error) {
	def, ok := r.byID[id]
	if !ok {
		return EffectiveConfig{}, fmt.Errorf("unknown task id %q", id)
	}
	static := EffectiveConfig{Enabled: def.Enabled, Trigger: def.Trigger, Source: "static"}

	if r.store == nil {
		return static, nil
	}
	rec, found, err := r.store.GetOverride(ctx, id)
	if err != nil {
		r.log.Warn("override store unreachable; using static defaults",
			logx.String("task", id), logx.Err(err))
		return static, nil
	}
	if !found {
		return static, nil
	}

	eff := EffectiveConfig{Enabled: rec.Enabled, Trigger: def.Trigger, Source: "override"}
	if len(rec.Trigger) > 0 {
		trig, err := TriggerFromFields(rec.Trigger)
		if err != nil {
			r.log.Warn("override trigger invalid; keeping static trigger",
				logx.String("task", id), logx.Err(err))
		} else {
			eff.Trigger = trig
		}
	}
	return eff, nil
}

// SyncOverrides seeds the override store from the static tables. Missing
// rows are created; with force, existing rows also get their trigger (and
// descriptive columns) rewritten from the static default while the
// operator-set enabled flag is preserved.
func (r *Registry) SyncOverrides(ctx context.Context, force bool, updatedBy string) (SyncResult, error) {
	var res SyncResult
	if r.store == nil {
		return res, storage.ErrDisabled
	}
	for _, def := range r.defs {
		existing, found, err := r.store.GetOverride(ctx, def.ID)
		if err != nil {
			return res, fmt.Errorf("sync %s: %w", def.ID, err)
		}
		switch {
		case !found:
			rec := overrideFromDefinition(def)
			rec.UpdatedBy = updatedBy
			if err := r.store.PutOverride(ctx, rec); err != nil {
				return res, fmt.Errorf("sync %s: %w", def.ID, err)
			}
			res.Created++
		case force:
			rec := overrideFromDefinition(def)
			rec.Enabled = existing.Enabled
			rec.CreatedAt = existing.CreatedAt
			rec.UpdatedBy = updatedBy
			if err := r.store.PutOverride(ctx, rec); err != nil {
				return res, fmt.Errorf("sync %s: %w", def.ID, err)
			}
			res.Updated++
		default:
			res.Skipped++
		}
	}
	r.log.Info("override sync finished",
		logx.Bool("force", force),
		logx.Int("created", res.Created),
		logx.Int("updated", res.Updated),
		logx.Int("skipped", res.Skipped))
	return res, nil
}

func overrideFromDefinition(def TaskDefinition) storage.OverrideRecord {
	return storage.OverrideRecord{
		TaskID:      def.ID,
		Name:        def.Name,
		Target:      def.Target,
		Owner:       def.Owner,
		Category:    def.Category,
		Description: def.Description,
		Enabled:     def.Enabled,
		Trigger:     def.Trigger.Fields(),
		DependsOn:   append([]string(nil), def.DependsOn...),
		RiskLevel:   string(def.Risk),
		SLA:         storage.SLA{MaxSeconds: def.SLA.MaxSeconds, RetryOnFailure: def.SLA.RetryOnFailure},
	}
}
