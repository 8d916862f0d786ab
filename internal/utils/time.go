package utils

import "time"

// HoursUntil returns the (possibly negative) hours from now until t, with t
// treated as an absolute instant. Refund tiers are computed from this.
func HoursUntil(t time.Time, now time.Time) float64 {
	return t.Sub(now).Hours()
}

func FormatTimeISO(t time.Time) string {
	return t.Format(time.RFC3339)
}

func ParseTimeISO(timeStr string) (time.Time, error) {
	return time.Parse(time.RFC3339, timeStr)
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, t.Location())
}
