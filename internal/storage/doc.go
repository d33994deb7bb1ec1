// Package storage persists per-task configuration overrides.
//
// The scheduler never talks to this package directly: the task registry
// reads overrides at start-up and the sync operation seeds them from the
// static tables. Any backend failure degrades to static defaults.
package storage
