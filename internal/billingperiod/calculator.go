// Package billingperiod computes the recurring consolidation window for an
// operator. All functions are pure: the scheduler and the consolidation
// engine must agree on the same period for the same inputs.
package billingperiod

import (
	"errors"
	"time"

	operatordomain "github.com/smallbiznis/overflight/internal/operator/domain"
)

// Period is one billing window, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

var (
	ErrNoPeriodType    = errors.New("billing_period_type_not_configured")
	ErrInvalidStartDay = errors.New("invalid_billing_period_start_day")
)

// CurrentPeriod returns the window containing referenceDate.
//
// WEEKLY: a 7-day window anchored to the most recent occurrence of the
// configured start weekday (1=Monday..7=Sunday) on or before referenceDate.
//
// MONTHLY: from the configured start day of the month through the last
// calendar day of that month. The start day clamps to the month's last day
// when it exceeds it (31 in February starts on the 28th or 29th), computed
// per month. A reference date before this month's start day rolls back to
// the previous month.
func CurrentPeriod(op operatordomain.Operator, referenceDate time.Time) (Period, error) {
	ref := dateOnly(referenceDate)

	switch op.BillingPeriodType {
	case operatordomain.BillingPeriodWeekly:
		return weeklyPeriod(op.BillingPeriodStartDay, ref)
	case operatordomain.BillingPeriodMonthly:
		return monthlyPeriod(op.BillingPeriodStartDay, ref)
	default:
		return Period{}, ErrNoPeriodType
	}
}

// IsPeriodEnd reports whether referenceDate falls on the closing calendar
// day of its own period. Time of day is ignored.
func IsPeriodEnd(op operatordomain.Operator, referenceDate time.Time) (bool, error) {
	period, err := CurrentPeriod(op, referenceDate)
	if err != nil {
		return false, err
	}
	return sameDate(referenceDate, period.End), nil
}

func weeklyPeriod(startDay int, ref time.Time) (Period, error) {
	if startDay < 1 || startDay > 7 {
		return Period{}, ErrInvalidStartDay
	}

	// time.Weekday has Sunday=0; the configuration uses 1=Monday..7=Sunday.
	refWeekday := int(ref.Weekday())
	if refWeekday == 0 {
		refWeekday = 7
	}

	back := (refWeekday - startDay + 7) % 7
	start := ref.AddDate(0, 0, -back)
	return Period{Start: start, End: start.AddDate(0, 0, 6)}, nil
}

func monthlyPeriod(startDay int, ref time.Time) (Period, error) {
	if startDay < 1 || startDay > 31 {
		return Period{}, ErrInvalidStartDay
	}

	year, month := ref.Year(), ref.Month()
	start := monthStart(year, month, startDay, ref.Location())
	if ref.Before(start) {
		prev := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location()).AddDate(0, -1, 0)
		start = monthStart(prev.Year(), prev.Month(), startDay, ref.Location())
	}

	end := lastDayOfMonth(start.Year(), start.Month(), ref.Location())
	return Period{Start: start, End: end}, nil
}

func monthStart(year int, month time.Month, startDay int, loc *time.Location) time.Time {
	day := startDay
	if last := lastDayOfMonth(year, month, loc).Day(); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func lastDayOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
