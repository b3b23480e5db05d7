package billingperiod

import (
	"testing"
	"time"

	operatordomain "github.com/smallbiznis/overflight/internal/operator/domain"
	"github.com/stretchr/testify/assert"
)

func weeklyOp(startDay int) operatordomain.Operator {
	return operatordomain.Operator{
		BillingPeriodType:     operatordomain.BillingPeriodWeekly,
		BillingPeriodStartDay: startDay,
	}
}

func monthlyOp(startDay int) operatordomain.Operator {
	return operatordomain.Operator{
		BillingPeriodType:     operatordomain.BillingPeriodMonthly,
		BillingPeriodStartDay: startDay,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentPeriod_Weekly(t *testing.T) {
	// Tuesday start, reference on a Friday: window is Tue..Mon.
	// 2026-08-21 is a Friday, the preceding Tuesday is 2026-08-18.
	period, err := CurrentPeriod(weeklyOp(2), date(2026, time.August, 21))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.August, 18), period.Start)
	assert.Equal(t, date(2026, time.August, 24), period.End)

	// Reference on the start weekday itself anchors to that same day.
	period, err = CurrentPeriod(weeklyOp(2), date(2026, time.August, 18))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.August, 18), period.Start)

	// Sunday start with a Sunday reference, Weekday()==0 wraps to 7.
	period, err = CurrentPeriod(weeklyOp(7), date(2026, time.August, 23))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.August, 23), period.Start)
	assert.Equal(t, date(2026, time.August, 29), period.End)
}

func TestCurrentPeriod_Monthly(t *testing.T) {
	// Plain mid-month reference.
	period, err := CurrentPeriod(monthlyOp(15), date(2026, time.March, 20))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.March, 15), period.Start)
	assert.Equal(t, date(2026, time.March, 31), period.End)

	// Reference before this month's start day rolls back a month.
	period, err = CurrentPeriod(monthlyOp(15), date(2026, time.March, 10))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 15), period.Start)
	assert.Equal(t, date(2026, time.February, 28), period.End)
}

func TestCurrentPeriod_MonthlyClampsStartDay(t *testing.T) {
	// Day 31 in February clamps to the 28th (2026 is not a leap year).
	period, err := CurrentPeriod(monthlyOp(31), date(2026, time.February, 28))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 28), period.Start)
	assert.Equal(t, date(2026, time.February, 28), period.End)

	// Leap year February clamps to the 29th.
	period, err = CurrentPeriod(monthlyOp(31), date(2028, time.February, 29))
	assert.NoError(t, err)
	assert.Equal(t, date(2028, time.February, 29), period.Start)

	// The clamp is per month: rolling back from early March re-clamps
	// against February's length, not March's.
	period, err = CurrentPeriod(monthlyOp(31), date(2026, time.March, 5))
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 28), period.Start)
	assert.Equal(t, date(2026, time.February, 28), period.End)
}

func TestCurrentPeriod_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2026, time.August, 21, 0, 1, 0, 0, time.UTC)
	night := time.Date(2026, time.August, 21, 23, 59, 59, 0, time.UTC)

	p1, err := CurrentPeriod(weeklyOp(2), morning)
	assert.NoError(t, err)
	p2, err := CurrentPeriod(weeklyOp(2), night)
	assert.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestCurrentPeriod_InvalidConfig(t *testing.T) {
	_, err := CurrentPeriod(operatordomain.Operator{}, date(2026, time.August, 21))
	assert.ErrorIs(t, err, ErrNoPeriodType)

	_, err = CurrentPeriod(weeklyOp(0), date(2026, time.August, 21))
	assert.ErrorIs(t, err, ErrInvalidStartDay)

	_, err = CurrentPeriod(weeklyOp(8), date(2026, time.August, 21))
	assert.ErrorIs(t, err, ErrInvalidStartDay)

	_, err = CurrentPeriod(monthlyOp(32), date(2026, time.August, 21))
	assert.ErrorIs(t, err, ErrInvalidStartDay)
}

func TestIsPeriodEnd(t *testing.T) {
	// Weekly Tue..Mon: the following Monday closes the window.
	end, err := IsPeriodEnd(weeklyOp(2), date(2026, time.August, 24))
	assert.NoError(t, err)
	assert.True(t, end)

	end, err = IsPeriodEnd(weeklyOp(2), date(2026, time.August, 23))
	assert.NoError(t, err)
	assert.False(t, end)

	// Monthly windows always close on the last calendar day.
	end, err = IsPeriodEnd(monthlyOp(15), date(2026, time.March, 31))
	assert.NoError(t, err)
	assert.True(t, end)

	end, err = IsPeriodEnd(monthlyOp(15), date(2026, time.March, 30))
	assert.NoError(t, err)
	assert.False(t, end)
}
