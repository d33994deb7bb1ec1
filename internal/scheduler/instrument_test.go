package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"pmojobs/internal/eventbus"
	"pmojobs/internal/metrics"
	"pmojobs/internal/registry"
	"pmojobs/pkg/logx"
)

func testDef() registry.TaskDefinition {
	return registry.TaskDefinition{
		ID:       "test.sample",
		Name:     "Sample",
		Owner:    "qa",
		Category: "maintenance",
	}
}

func TestInstrumentRecordsSuccess(t *testing.T) {
	t.Parallel()
	ms := metrics.NewStore(10)
	run := Instrument(testDef(), ms, nil, logx.Nop(), func(ctx context.Context) error {
		return nil
	})

	if err := run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap := ms.Snapshot()
	jc, ok := snap.Jobs["test.sample"]
	if !ok {
		t.Fatal("no counters recorded")
	}
	if jc.SuccessCount != 1 || jc.FailureCount != 0 {
		t.Fatalf("counters = %+v", jc)
	}
	if jc.LastStatus != metrics.StatusSuccess {
		t.Fatalf("LastStatus = %q", jc.LastStatus)
	}
	if len(snap.Durations["test.sample"]) != 1 {
		t.Fatalf("duration window = %v", snap.Durations["test.sample"])
	}
}

func TestInstrumentRecordsFailureAndReturnsErrorUnchanged(t *testing.T) {
	t.Parallel()
	ms := metrics.NewStore(10)
	boom := errors.New("boom")
	run := Instrument(testDef(), ms, nil, logx.Nop(), func(ctx context.Context) error {
		return boom
	})

	if err := run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the runner's own error", err)
	}

	jc := ms.Snapshot().Jobs["test.sample"]
	if jc.FailureCount != 1 || jc.SuccessCount != 0 {
		t.Fatalf("counters = %+v", jc)
	}
	if jc.LastStatus != metrics.StatusFailed {
		t.Fatalf("LastStatus = %q", jc.LastStatus)
	}
}

func TestInstrumentPublishesLifecycleEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	run := Instrument(testDef(), metrics.NewStore(10), bus, logx.Nop(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	_ = run(context.Background())

	want := []string{eventbus.TypeRunStart, eventbus.TypeRunFailed}
	for _, typ := range want {
		select {
		case ev := <-ch:
			if ev.Type != typ {
				t.Fatalf("event type = %q, want %q", ev.Type, typ)
			}
			re, ok := ev.Data.(eventbus.RunEvent)
			if !ok {
				t.Fatalf("event data = %T", ev.Data)
			}
			if re.TaskID != "test.sample" {
				t.Fatalf("event task = %q", re.TaskID)
			}
			if typ == eventbus.TypeRunFailed && re.Error == "" {
				t.Fatal("failed event carries no error text")
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func TestInstrumentDoesNotRetry(t *testing.T) {
	t.Parallel()
	var calls int
	run := Instrument(testDef(), metrics.NewStore(10), nil, logx.Nop(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	_ = run(context.Background())
	if calls != 1 {
		t.Fatalf("runner invoked %d times, want 1", calls)
	}
}
