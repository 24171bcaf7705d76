package period

import "time"

// StartOfPeriod returns the canonical start date of the period containing date.
// For KindWeekly it is the most recent weekStartDay at or before date; for
// KindMonthly the first day of date's month. The result is normalized to
// midnight in date's location.
func StartOfPeriod(date time.Time, kind Kind, weekStartDay time.Weekday) time.Time {
	if kind == KindMonthly {
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	}
	return startOfWeek(date, weekStartDay)
}

func startOfWeek(date time.Time, weekStartDay time.Weekday) time.Time {
	if weekStartDay < time.Sunday || weekStartDay > time.Saturday {
		weekStartDay = time.Sunday
	}
	delta := (int(date.Weekday()) - int(weekStartDay) + 7) % 7
	start := date.AddDate(0, 0, -delta)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, date.Location())
}
