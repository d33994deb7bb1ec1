package telemetry

import (
	"strings"
	"testing"
	"time"

	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/internal/scheduler"
	"pmojobs/pkg/logx"
)

func newTestService(t *testing.T, running bool) (*Service, *metrics.Store) {
	t.Helper()
	reg := registry.New(nil, logx.Nop())
	ms := metrics.NewStore(metrics.DefaultHistorySize)
	status := func() scheduler.Status {
		return scheduler.Status{Running: running, JobCount: 3}
	}
	return New(reg, ms, status), ms
}

func TestReportCoversEveryCatalogTask(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, true)

	rep := svc.Report()
	reg := registry.New(nil, logx.Nop())
	if rep.TaskTotal != len(reg.Definitions()) {
		t.Fatalf("TaskTotal = %d, want %d", rep.TaskTotal, len(reg.Definitions()))
	}
	if !rep.Running || rep.JobCount != 3 {
		t.Fatalf("engine status not reflected: %+v", rep)
	}

	// Tasks that never ran report zero counters, unset status and absent
	// statistics.
	for _, tr := range rep.Tasks {
		if tr.SuccessCount != 0 || tr.FailureCount != 0 {
			t.Fatalf("task %s has counters without runs: %+v", tr.ID, tr)
		}
		if tr.LastStatus != metrics.StatusUnset {
			t.Fatalf("task %s LastStatus = %q", tr.ID, tr.LastStatus)
		}
		if tr.SampleCount != 0 || tr.AvgMS != nil || tr.P95MS != nil {
			t.Fatalf("task %s reports statistics without samples", tr.ID)
		}
	}
}

func TestReportDerivesStatisticsFromWindow(t *testing.T) {
	t.Parallel()
	svc, ms := newTestService(t, true)
	reg := registry.New(nil, logx.Nop())
	id := reg.Definitions()[0].ID

	now := time.Now()
	ms.RecordSuccess(id, 100, now)
	ms.RecordSuccess(id, 200, now)
	ms.RecordFailure(id, 300, now)

	rep := svc.Report()
	var tr *TaskReport
	for i := range rep.Tasks {
		if rep.Tasks[i].ID == id {
			tr = &rep.Tasks[i]
			break
		}
	}
	if tr == nil {
		t.Fatalf("task %s missing from report", id)
	}
	if tr.SuccessCount != 2 || tr.FailureCount != 1 {
		t.Fatalf("counters = %+v", tr)
	}
	if tr.SampleCount != 3 {
		t.Fatalf("SampleCount = %d, want 3", tr.SampleCount)
	}
	if tr.AvgMS == nil || *tr.AvgMS != 200 {
		t.Fatalf("AvgMS = %v, want 200", tr.AvgMS)
	}
	if tr.MinMS == nil || *tr.MinMS != 100 || tr.MaxMS == nil || *tr.MaxMS != 300 {
		t.Fatalf("Min/Max = %v/%v", tr.MinMS, tr.MaxMS)
	}
	if tr.LastStatus != metrics.StatusFailed {
		t.Fatalf("LastStatus = %q", tr.LastStatus)
	}
}

func TestReportNilStatusFunc(t *testing.T) {
	t.Parallel()
	reg := registry.New(nil, logx.Nop())
	svc := New(reg, metrics.NewStore(10), nil)

	rep := svc.Report()
	if rep.Running || rep.JobCount != 0 {
		t.Fatalf("nil status must degrade to stopped: %+v", rep)
	}
}

func TestPrometheusTextHeaderAppearsOnce(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, true)
	out := svc.PrometheusText()

	if n := strings.Count(out, "# HELP pmojobs_task_success_total"); n != 1 {
		t.Fatalf("HELP header appears %d times, want 1", n)
	}
	if n := strings.Count(out, "# TYPE pmojobs_task_duration_p99_ms gauge"); n != 1 {
		t.Fatalf("TYPE header appears %d times, want 1", n)
	}
}

func TestPrometheusTextOmitsStatisticsWithoutSamples(t *testing.T) {
	t.Parallel()
	svc, ms := newTestService(t, false)
	reg := registry.New(nil, logx.Nop())
	ran := reg.Definitions()[0].ID
	ms.RecordSuccess(ran, 42, time.Now())

	out := svc.PrometheusText()

	if !strings.Contains(out, "pmojobs_scheduler_running 0\n") {
		t.Fatal("missing scheduler_running gauge")
	}
	for _, def := range reg.Definitions() {
		needle := `task="` + def.ID + `"`
		var counterLines, statLines int
		for _, line := range strings.Split(out, "\n") {
			if !strings.Contains(line, needle) {
				continue
			}
			switch {
			case strings.HasPrefix(line, "pmojobs_task_success_total"),
				strings.HasPrefix(line, "pmojobs_task_failure_total"),
				strings.HasPrefix(line, "pmojobs_task_last_duration_ms"),
				strings.HasPrefix(line, "pmojobs_task_last_run_timestamp_seconds"):
				counterLines++
			case strings.HasPrefix(line, "pmojobs_task_duration_"):
				statLines++
			}
		}
		if counterLines != 4 {
			t.Fatalf("task %s: %d counter lines, want 4", def.ID, counterLines)
		}
		wantStats := 0
		if def.ID == ran {
			wantStats = 6
		}
		if statLines != wantStats {
			t.Fatalf("task %s: %d statistic lines, want %d", def.ID, statLines, wantStats)
		}
	}
}

func TestPrometheusTextNotificationCounters(t *testing.T) {
	t.Parallel()
	svc, ms := newTestService(t, true)
	ms.RecordNotification("log", true)
	ms.RecordNotification("log", true)
	ms.RecordNotification("log", false)

	out := svc.PrometheusText()
	if !strings.Contains(out, `pmojobs_notification_success_total{channel="log"} 2`) {
		t.Fatal("missing notification success counter")
	}
	if !strings.Contains(out, `pmojobs_notification_failure_total{channel="log"} 1`) {
		t.Fatal("missing notification failure counter")
	}
}

func TestEscapeLabel(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{`plain`, `plain`},
		{`back\slash`, `back\\slash`},
		{`quo"te`, `quo\"te`},
		{"new\nline", `new\nline`},
	}
	for _, tc := range cases {
		if got := escapeLabel(tc.in); got != tc.want {
			t.Errorf("escapeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
