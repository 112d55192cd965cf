package usecase

import (
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// LifetimeEnd is the sentinel billing horizon for LIFETIME plans. A lifetime
// subscription is never due: its next billing date is pinned here instead of
// being derived by calendar arithmetic.
var LifetimeEnd = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// NextBillingDate advances t by one plan period. When the source day does not
// exist in the target month the date clamps to the month's last day
// (Jan 31 -> Feb 28, or Feb 29 in a leap year).
func NextBillingDate(t time.Time, plan model.SubscriptionPlanType) time.Time {
	switch plan {
	case model.PlanTypeMonthly:
		return addMonthsClamped(t, 1)
	case model.PlanTypeQuarterly:
		return addMonthsClamped(t, 3)
	case model.PlanTypeYearly:
		return addMonthsClamped(t, 12)
	case model.PlanTypeLifetime:
		return LifetimeEnd
	default:
		return addMonthsClamped(t, 1)
	}
}

// addMonthsClamped is AddDate without day-overflow normalization: the day of
// month saturates at the target month's length instead of rolling over.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	anchor := time.Date(year, month+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	if max := daysInMonth(anchor.Year(), anchor.Month()); day > max {
		day = max
	}

	return time.Date(anchor.Year(), anchor.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month; day zero of the
// following month normalizes to the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
