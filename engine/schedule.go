package engine

import "time"

// =============================================================================
// SCHEDULE CLOCK - Has enough time elapsed for a time-based trigger?
// =============================================================================

// Minimum whole days between executions per trigger. Monthly is an
// approximation, not calendar-month-aware. Payday reuses the biweekly
// cadence; this is a known simplification, not learned from detected
// payday patterns.
const (
	minDaysWeekly   = 7
	minDaysBiweekly = 14
	minDaysMonthly  = 28
	minDaysPayday   = 14
)

// ScheduleDue decides whether a time-based trigger is due again.
// A rule that has never executed is always due. Triggers outside the
// time-based set (manual, income-detected) are always due.
func ScheduleDue(trigger TriggerType, lastExecuted *time.Time, asOf time.Time) bool {
	if lastExecuted == nil || lastExecuted.IsZero() {
		return true
	}

	days := WholeDaysBetween(*lastExecuted, asOf)

	switch trigger {
	case TriggerWeekly:
		return days >= minDaysWeekly
	case TriggerBiweekly:
		return days >= minDaysBiweekly
	case TriggerMonthly:
		return days >= minDaysMonthly
	case TriggerPayday:
		return days >= minDaysPayday
	case TriggerManual, TriggerIncomeDetected:
		return true
	default:
		return true
	}
}

// WholeDaysBetween returns the whole-day difference to - from, comparing
// calendar dates in UTC.
func WholeDaysBetween(from, to time.Time) int {
	return int(truncateToDay(to).Sub(truncateToDay(from)).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
