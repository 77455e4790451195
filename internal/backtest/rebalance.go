package backtest

import "time"

// ShouldRebalance reports whether a rebalancing leg is due on date given the
// last rebalance date and the configured cadence. A zero last date (the
// first simulated date) always rebalances to bootstrap the cohort.
func ShouldRebalance(date, last time.Time, freq Frequency) bool {
	if last.IsZero() {
		return true
	}

	switch freq {
	case Daily:
		return true
	case Weekly:
		return date.Sub(last) >= 7*24*time.Hour
	case Monthly:
		return date.Year() != last.Year() || date.Month() != last.Month()
	case Quarterly:
		return monthsBetween(last, date) >= 3
	default:
		return false
	}
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
