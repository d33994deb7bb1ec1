package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func bufLogger(buf *bytes.Buffer, level zerolog.Level) Logger {
	return Logger{base: zerolog.New(buf).Level(level), hasBase: true}
}

func decodeLine(t *testing.T, line []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("bad log line %q: %v", line, err)
	}
	return m
}

func TestLoggerWritesStructuredLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := bufLogger(&buf, zerolog.InfoLevel)

	l.Info("task run started", String("task", "a.b"), Int("attempt", 1))

	m := decodeLine(t, buf.Bytes())
	if m["message"] != "task run started" || m["level"] != "info" {
		t.Fatalf("line = %v", m)
	}
	if m["task"] != "a.b" || m["attempt"] != float64(1) {
		t.Fatalf("fields missing: %v", m)
	}
	caller, _ := m[zerolog.CallerFieldName].(string)
	if !strings.Contains(caller, "logx_test.go") {
		t.Fatalf("caller = %q", caller)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := bufLogger(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("below-level output: %q", buf.String())
	}

	l.Warn("visible", Err(errors.New("boom")))
	m := decodeLine(t, buf.Bytes())
	if m["level"] != "warn" {
		t.Fatalf("line = %v", m)
	}
	// The error key depends on whether the global zerolog rename ran yet.
	if m["err"] != "boom" && m["error"] != "boom" {
		t.Fatalf("error field missing: %v", m)
	}
}

func TestWithAddsFixedFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := bufLogger(&buf, zerolog.InfoLevel)
	child := l.With(String("svc", "scheduler"))

	child.Info("started")
	m := decodeLine(t, buf.Bytes())
	if m["svc"] != "scheduler" {
		t.Fatalf("derived field missing: %v", m)
	}

	buf.Reset()
	l.Info("plain")
	m = decodeLine(t, buf.Bytes())
	if _, ok := m["svc"]; ok {
		t.Fatal("With mutated the parent logger")
	}
}

func TestZeroValueAndNopAreSilent(t *testing.T) {
	t.Parallel()
	var l Logger
	l.Info("dropped") // must not panic
	Nop().Error("dropped", String("k", "v"))

	if !l.IsZero() {
		t.Fatal("zero value not reported as zero")
	}
	if Nop().IsZero() {
		t.Fatal("Nop logger reported as zero")
	}
}

func TestServiceFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	svc, log := New(Config{
		Level:   "debug",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	})

	log.Info("file sink works", String("task", "x"))
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "file sink works") {
		t.Fatalf("log file = %q", b)
	}
}

func TestServiceApplyChangesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	svc, log := New(Config{
		Level:   "info",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	})
	defer svc.Close()

	log.Debug("invisible")
	svc.Apply(Config{
		Level:   "debug",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	})
	log.Debug("visible after apply")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(b), "invisible") {
		t.Fatal("debug line written at info level")
	}
	if !strings.Contains(string(b), "visible after apply") {
		t.Fatalf("log file = %q", b)
	}
}
