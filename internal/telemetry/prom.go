package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentType is the exposition-format content type expected by pull-based
// collectors.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// promHeader is emitted exactly once per response, before any metric line.
const promHeader = `# HELP pmojobs_scheduler_running Whether the scheduling engine is started.
# TYPE pmojobs_scheduler_running gauge
# HELP pmojobs_scheduler_jobs Number of tasks currently registered.
# TYPE pmojobs_scheduler_jobs gauge
# HELP pmojobs_task_success_total Successful runs per task.
# TYPE pmojobs_task_success_total counter
# HELP pmojobs_task_failure_total Failed runs per task.
# TYPE pmojobs_task_failure_total counter
# HELP pmojobs_task_last_duration_ms Duration of the most recent run in milliseconds.
# TYPE pmojobs_task_last_duration_ms gauge
# HELP pmojobs_task_last_run_timestamp_seconds Unix time of the most recent run.
# TYPE pmojobs_task_last_run_timestamp_seconds gauge
# HELP pmojobs_task_duration_avg_ms Average run duration over the rolling window.
# TYPE pmojobs_task_duration_avg_ms gauge
# HELP pmojobs_task_duration_min_ms Minimum run duration over the rolling window.
# TYPE pmojobs_task_duration_min_ms gauge
# HELP pmojobs_task_duration_max_ms Maximum run duration over the rolling window.
# TYPE pmojobs_task_duration_max_ms gauge
# HELP pmojobs_task_duration_p50_ms Median run duration over the rolling window.
# TYPE pmojobs_task_duration_p50_ms gauge
# HELP pmojobs_task_duration_p95_ms 95th percentile run duration over the rolling window.
# TYPE pmojobs_task_duration_p95_ms gauge
# HELP pmojobs_task_duration_p99_ms 99th percentile run duration over the rolling window.
# TYPE pmojobs_task_duration_p99_ms gauge
# HELP pmojobs_notification_success_total Successful notification deliveries per channel.
# TYPE pmojobs_notification_success_total counter
# HELP pmojobs_notification_failure_total Failed notification deliveries per channel.
# TYPE pmojobs_notification_failure_total counter
`

// PrometheusText renders the current telemetry as exposition text.
//
// Per-task statistic gauges are emitted only when the rolling window holds
// samples; zero-filled placeholders would be indistinguishable from real
// zero-millisecond runs.
func (s *Service) PrometheusText() string {
	rep := s.Report()

	var b strings.Builder
	b.WriteString(promHeader)

	fmt.Fprintf(&b, "pmojobs_scheduler_running %d\n", boolGauge(rep.Running))
	fmt.Fprintf(&b, "pmojobs_scheduler_jobs %d\n", rep.JobCount)

	for _, t := range rep.Tasks {
		labels := taskLabels(t)
		fmt.Fprintf(&b, "pmojobs_task_success_total%s %d\n", labels, t.SuccessCount)
		fmt.Fprintf(&b, "pmojobs_task_failure_total%s %d\n", labels, t.FailureCount)
		fmt.Fprintf(&b, "pmojobs_task_last_duration_ms%s %d\n", labels, t.LastDurationMS)
		var lastRun int64
		if !t.LastTimestamp.IsZero() {
			lastRun = t.LastTimestamp.Unix()
		}
		fmt.Fprintf(&b, "pmojobs_task_last_run_timestamp_seconds%s %d\n", labels, lastRun)

		if t.SampleCount > 0 {
			fmt.Fprintf(&b, "pmojobs_task_duration_avg_ms%s %s\n", labels, formatFloat(*t.AvgMS))
			fmt.Fprintf(&b, "pmojobs_task_duration_min_ms%s %d\n", labels, *t.MinMS)
			fmt.Fprintf(&b, "pmojobs_task_duration_max_ms%s %d\n", labels, *t.MaxMS)
			fmt.Fprintf(&b, "pmojobs_task_duration_p50_ms%s %s\n", labels, formatFloat(*t.P50MS))
			fmt.Fprintf(&b, "pmojobs_task_duration_p95_ms%s %s\n", labels, formatFloat(*t.P95MS))
			fmt.Fprintf(&b, "pmojobs_task_duration_p99_ms%s %s\n", labels, formatFloat(*t.P99MS))
		}
	}

	for _, c := range rep.Notifications {
		label := fmt.Sprintf(`{channel="%s"}`, escapeLabel(c.Channel))
		fmt.Fprintf(&b, "pmojobs_notification_success_total%s %d\n", label, c.SuccessCount)
		fmt.Fprintf(&b, "pmojobs_notification_failure_total%s %d\n", label, c.FailureCount)
	}

	return b.String()
}

func taskLabels(t TaskReport) string {
	return fmt.Sprintf(`{task="%s",name="%s",owner="%s",category="%s"}`,
		escapeLabel(t.ID), escapeLabel(t.Name), escapeLabel(t.Owner), escapeLabel(t.Category))
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// escapeLabel escapes a label value per the exposition format rules.
func escapeLabel(v string) string {
	return labelEscaper.Replace(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolGauge(v bool) int {
	if v {
		return 1
	}
	return 0
}
