package registry

import (
	"fmt"
	"sort"
	"strings"
)

// TriggerSpec is a structured cron-like schedule. Empty fields mean "any"
// (second defaults to 0 so tasks fire once per matching minute, not sixty
// times).
//
// Year and Week are part of the persisted schema for compatibility with
// operational tooling, but the engine's cron grammar has no year/week
// field; a definition using them is rejected at registration.
type TriggerSpec struct {
	Year      string `json:"year,omitempty"`
	Month     string `json:"month,omitempty"`
	Week      string `json:"week,omitempty"`
	Day       string `json:"day,omitempty"`
	DayOfWeek string `json:"day_of_week,omitempty"`
	Hour      string `json:"hour,omitempty"`
	Minute    string `json:"minute,omitempty"`
	Second    string `json:"second,omitempty"`
}

// triggerFields is the persisted-schema allow-list, in display order.
var triggerFields = []string{"year", "month", "week", "day", "day_of_week", "hour", "minute", "second"}

// TriggerFromFields builds a TriggerSpec from a persisted field map,
// rejecting any key outside the allow-list.
func TriggerFromFields(fields map[string]string) (TriggerSpec, error) {
	var t TriggerSpec
	var unknown []string
	for k, v := range fields {
		v = strings.TrimSpace(v)
		switch k {
		case "year":
			t.Year = v
		case "month":
			t.Month = v
		case "week":
			t.Week = v
		case "day":
			t.Day = v
		case "day_of_week":
			t.DayOfWeek = v
		case "hour":
			t.Hour = v
		case "minute":
			t.Minute = v
		case "second":
			t.Second = v
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return TriggerSpec{}, fmt.Errorf("trigger has unsupported fields: %s", strings.Join(unknown, ", "))
	}
	return t, nil
}

// Fields returns the non-empty fields as a persisted-schema map.
func (t TriggerSpec) Fields() map[string]string {
	m := map[string]string{}
	for _, k := range triggerFields {
		if v := t.field(k); v != "" {
			m[k] = v
		}
	}
	return m
}

func (t TriggerSpec) field(name string) string {
	switch name {
	case "year":
		return t.Year
	case "month":
		return t.Month
	case "week":
		return t.Week
	case "day":
		return t.Day
	case "day_of_week":
		return t.DayOfWeek
	case "hour":
		return t.Hour
	case "minute":
		return t.Minute
	case "second":
		return t.Second
	}
	return ""
}

// IsZero reports whether no field is set.
func (t TriggerSpec) IsZero() bool { return t == TriggerSpec{} }

// CronSpec renders the trigger as a 6-field cron expression
// (second minute hour day month day_of_week) for the engine.
//
// Fields finer than the coarsest one set default to their minimum, so
// hour=3 means 03:00:00 daily, not every minute of hour three. Unset
// coarser fields stay wildcards.
func (t TriggerSpec) CronSpec() (string, error) {
	if t.Year != "" || t.Week != "" {
		return "", fmt.Errorf("trigger fields year/week are not supported by the scheduling engine")
	}
	dateSet := t.Month != "" || t.Day != "" || t.DayOfWeek != ""
	hour := t.Hour
	if hour == "" && dateSet {
		hour = "0"
	}
	min := t.Minute
	if min == "" && hour != "" {
		min = "0"
	}
	sec := t.Second
	if sec == "" {
		sec = "0"
	}
	day := t.Day
	if day == "" && t.Month != "" && t.DayOfWeek == "" {
		day = "1"
	}
	return strings.Join([]string{
		sec,
		orAny(min),
		orAny(hour),
		orAny(day),
		orAny(t.Month),
		orAny(t.DayOfWeek),
	}, " "), nil
}

// Describe renders the trigger for human eyes, e.g.
// "minute=30 hour=6" or "every minute".
func (t TriggerSpec) Describe() string {
	var parts []string
	for _, k := range triggerFields {
		if v := t.field(k); v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	if len(parts) == 0 {
		return "every minute"
	}
	return strings.Join(parts, " ")
}

func orAny(v string) string {
	if v == "" {
		return "*"
	}
	return v
}
