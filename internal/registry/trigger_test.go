package registry

import (
	"testing"

	"pmojobs/pkg/logx"
)

func TestTriggerFromFieldsRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	_, err := TriggerFromFields(map[string]string{"hour": "6", "quarter": "1"})
	if err == nil {
		t.Fatal("expected error for unknown trigger field")
	}
}

func TestTriggerFieldsRoundTrip(t *testing.T) {
	t.Parallel()
	in := TriggerSpec{Hour: "6", Minute: "30", DayOfWeek: "1"}
	out, err := TriggerFromFields(in.Fields())
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if out != in {
		t.Fatalf("round trip changed spec: got %+v, want %+v", out, in)
	}
}

func TestTriggerCronSpec(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		trig    TriggerSpec
		want    string
		wantErr bool
	}{
		{name: "empty defaults to every minute at second zero", trig: TriggerSpec{}, want: "0 * * * * *"},
		{name: "daily at 06:30", trig: TriggerSpec{Hour: "6", Minute: "30"}, want: "0 30 6 * * *"},
		{name: "hour only pins the minute", trig: TriggerSpec{Hour: "3"}, want: "0 0 3 * * *"},
		{name: "minute only fires hourly", trig: TriggerSpec{Minute: "15"}, want: "0 15 * * * *"},
		{name: "month only pins day and time", trig: TriggerSpec{Month: "6"}, want: "0 0 0 1 6 *"},
		{name: "monthly on the first", trig: TriggerSpec{Day: "1", Hour: "2"}, want: "0 0 2 1 * *"},
		{name: "weekly on monday", trig: TriggerSpec{DayOfWeek: "1", Hour: "7"}, want: "0 0 7 * * 1"},
		{name: "step expression", trig: TriggerSpec{Minute: "*/10"}, want: "0 */10 * * * *"},
		{name: "explicit second", trig: TriggerSpec{Second: "30", Minute: "0"}, want: "30 0 * * * *"},
		{name: "year unsupported", trig: TriggerSpec{Year: "2026"}, wantErr: true},
		{name: "week unsupported", trig: TriggerSpec{Week: "2"}, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.trig.CronSpec()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CronSpec: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CronSpec = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTriggerDescribe(t *testing.T) {
	t.Parallel()
	if got := (TriggerSpec{}).Describe(); got != "every minute" {
		t.Fatalf("Describe() = %q", got)
	}
	got := TriggerSpec{Hour: "6", Minute: "30"}.Describe()
	if got != "hour=6 minute=30" {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestStaticTriggersCompile(t *testing.T) {
	t.Parallel()
	r := New(nil, logx.Nop())
	for _, def := range r.Definitions() {
		if _, err := def.Trigger.CronSpec(); err != nil {
			t.Errorf("task %s: %v", def.ID, err)
		}
	}
}
