package types

import (
	"fmt"
	"time"
)

// NextBillingDate advances a scheduled billing date by one billing cycle.
// The caller passes the previous scheduled date, not the wall clock, so late
// runs do not shift the schedule. Day-of-month overflow is clamped, so
// Jan 31 + 1 month is Feb 28 (or 29).
func NextBillingDate(current time.Time, cycle BillingCycle) (time.Time, error) {
	switch cycle {
	case BillingCycleMonthly:
		return AddClampedDate(current, 0, 1, 0), nil
	case BillingCycleAnnual:
		return AddClampedDate(current, 1, 0, 0), nil
	default:
		return current, fmt.Errorf("invalid billing cycle: %s", cycle)
	}
}

// AddClampedDate adds years, months and days to t, clamping the day to the
// last valid day of the resulting month.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	lastDay := time.Date(newY, newM+1, 0, 0, 0, 0, 0, t.Location()).Day()

	newD := d + days
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight on the first day of t's month
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// StartOfNextMonth returns midnight on the first day of the month after t's
func StartOfNextMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0)
}
