package storage

import (
	"context"
	"errors"
	"strings"

	"pmojobs/pkg/logx"
)

// Store is the persistence API consumed by the task registry.
type Store interface {
	// GetOverride returns the row for id; ok is false when no row exists.
	GetOverride(ctx context.Context, id string) (rec OverrideRecord, ok bool, err error)
	PutOverride(ctx context.Context, rec OverrideRecord) error
	ListOverrides(ctx context.Context) ([]OverrideRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
