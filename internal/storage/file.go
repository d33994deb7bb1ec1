package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pmojobs/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// All override rows live in a single JSON document that is rewritten
// atomically (temp file + rename) on every Put. Override writes happen on
// the order of manual sync operations, so the simplicity is worth the
// rewrite cost.
type fileStore struct {
	log  logx.Logger
	path string

	mu   sync.Mutex
	rows map[string]OverrideRecord
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	rows := map[string]OverrideRecord{}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, &rows); err != nil {
			// A corrupt document should not brick the process: the registry
			// fails open to static defaults anyway. Keep the bad file around
			// for inspection.
			log.Warn("override document unreadable; starting empty",
				logx.String("path", path), logx.Err(err))
			rows = map[string]OverrideRecord{}
		}
	}

	return &fileStore{log: log, path: path, rows: rows}, nil
}

func (s *fileStore) GetOverride(_ context.Context, id string) (OverrideRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	return rec, ok, nil
}

func (s *fileStore) PutOverride(_ context.Context, rec OverrideRecord) error {
	if strings.TrimSpace(rec.TaskID) == "" {
		return errors.New("override requires a task id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.TaskID] = rec
	return s.flushLocked()
}

func (s *fileStore) ListOverrides(_ context.Context) ([]OverrideRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OverrideRecord, 0, len(s.rows))
	for _, rec := range s.rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) flushLocked() error {
	b, err := json.MarshalIndent(s.rows, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
