package engine_test

import (
	"testing"
	"time"

	"github.com/warp/funding-engine/engine"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestScheduleDue_NeverExecutedIsAlwaysDue(t *testing.T) {
	asOf := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	for _, trigger := range engine.TriggerTypes() {
		if !engine.ScheduleDue(trigger, nil, asOf) {
			t.Errorf("%s: rule with no last execution should be due", trigger)
		}
	}
}

func TestScheduleDue_TimeBasedThresholds(t *testing.T) {
	asOf := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		trigger  engine.TriggerType
		daysAgo  int
		expected bool
	}{
		{engine.TriggerWeekly, 6, false},
		{engine.TriggerWeekly, 7, true},
		{engine.TriggerBiweekly, 13, false},
		{engine.TriggerBiweekly, 14, true},
		{engine.TriggerMonthly, 27, false},
		{engine.TriggerMonthly, 28, true}, // Approximate monthly, not calendar-aware
		{engine.TriggerPayday, 13, false},
		{engine.TriggerPayday, 14, true}, // Biweekly heuristic
	}

	for _, c := range cases {
		last := asOf.AddDate(0, 0, -c.daysAgo)
		got := engine.ScheduleDue(c.trigger, timePtr(last), asOf)
		if got != c.expected {
			t.Errorf("%s after %d days: expected due=%v, got %v", c.trigger, c.daysAgo, c.expected, got)
		}
	}
}

func TestScheduleDue_NonTimeBasedAlwaysDue(t *testing.T) {
	asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	yesterday := asOf.AddDate(0, 0, -1)

	if !engine.ScheduleDue(engine.TriggerManual, timePtr(yesterday), asOf) {
		t.Error("manual trigger should always be due")
	}
	if !engine.ScheduleDue(engine.TriggerIncomeDetected, timePtr(yesterday), asOf) {
		t.Error("income-detected trigger should always be due")
	}
}

func TestScheduleDue_ZeroTimestampFailsOpen(t *testing.T) {
	// An unparseable timestamp arrives at the engine as the zero time and
	// is treated as "never executed" (due).
	asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !engine.ScheduleDue(engine.TriggerWeekly, timePtr(time.Time{}), asOf) {
		t.Error("zero last-executed timestamp should be due")
	}
}

func TestWholeDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	// 23:00 on day 1 to 01:00 on day 8 is 7 whole days apart by date.
	from := time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.June, 8, 1, 0, 0, 0, time.UTC)

	if days := engine.WholeDaysBetween(from, to); days != 7 {
		t.Errorf("expected 7 whole days, got %d", days)
	}
}
