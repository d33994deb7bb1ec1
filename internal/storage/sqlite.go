package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pmojobs/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetOverride(ctx context.Context, id string) (OverrideRecord, bool, error) {
	if s == nil || s.db == nil {
		return OverrideRecord{}, false, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, name, target, owner, category, description, enabled,
		       trigger_spec, depends_on, risk_level, sla, updated_by, created_at, updated_at
		FROM task_overrides WHERE task_id = ?`, id)
	rec, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OverrideRecord{}, false, nil
	}
	if err != nil {
		return OverrideRecord{}, false, err
	}
	return rec, true, nil
}

func (s *sqliteStore) PutOverride(ctx context.Context, rec OverrideRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(rec.TaskID) == "" {
		return errors.New("override requires a task id")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	trigger, err := json.Marshal(orEmptyMap(rec.Trigger))
	if err != nil {
		return err
	}
	deps, err := json.Marshal(orEmptySlice(rec.DependsOn))
	if err != nil {
		return err
	}
	sla, err := json.Marshal(rec.SLA)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_overrides(task_id, name, target, owner, category, description,
		                           enabled, trigger_spec, depends_on, risk_level, sla,
		                           updated_by, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(task_id) DO UPDATE SET
		    name=excluded.name, target=excluded.target, owner=excluded.owner,
		    category=excluded.category, description=excluded.description,
		    enabled=excluded.enabled, trigger_spec=excluded.trigger_spec,
		    depends_on=excluded.depends_on, risk_level=excluded.risk_level,
		    sla=excluded.sla, updated_by=excluded.updated_by,
		    updated_at=excluded.updated_at`,
		rec.TaskID, rec.Name, rec.Target, rec.Owner, rec.Category, rec.Description,
		boolInt(rec.Enabled), string(trigger), string(deps), rec.RiskLevel, string(sla),
		rec.UpdatedBy, rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) ListOverrides(ctx context.Context) ([]OverrideRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, name, target, owner, category, description, enabled,
		       trigger_spec, depends_on, risk_level, sla, updated_by, created_at, updated_at
		FROM task_overrides ORDER BY task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverrideRecord
	for rows.Next() {
		rec, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(row rowScanner) (OverrideRecord, error) {
	var (
		rec                  OverrideRecord
		enabled              int
		trigger, deps, sla   string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.TaskID, &rec.Name, &rec.Target, &rec.Owner, &rec.Category,
		&rec.Description, &enabled, &trigger, &deps, &rec.RiskLevel, &sla,
		&rec.UpdatedBy, &createdAt, &updatedAt)
	if err != nil {
		return OverrideRecord{}, err
	}
	rec.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(trigger), &rec.Trigger); err != nil {
		return OverrideRecord{}, fmt.Errorf("task %s: bad trigger column: %w", rec.TaskID, err)
	}
	if err := json.Unmarshal([]byte(deps), &rec.DependsOn); err != nil {
		return OverrideRecord{}, fmt.Errorf("task %s: bad depends_on column: %w", rec.TaskID, err)
	}
	if err := json.Unmarshal([]byte(sla), &rec.SLA); err != nil {
		return OverrideRecord{}, fmt.Errorf("task %s: bad sla column: %w", rec.TaskID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
