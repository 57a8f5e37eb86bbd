// Package expiry classifies client subscriptions by their expiration date.
package expiry

import "time"

// Status is the subscription bucket of a client.
type Status string

// Subscription buckets.
const (
	StatusUnknown      Status = "unknown"
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// ExpiringWindowDays is the inclusive window, in days from today, treated as expiring soon.
const ExpiringWindowDays = 7

// Result is the classification of one expiration date.
type Result struct {
	Status        Status
	DaysRemaining *int // Signed day count; nil when the date is absent.
}

// Classify buckets an optional expiration date relative to today.
// Only the calendar dates of both arguments are compared.
func Classify(expiresOn *time.Time, today time.Time) Result {
	if expiresOn == nil || expiresOn.IsZero() {
		return Result{Status: StatusUnknown}
	}
	days := DaysBetween(today, *expiresOn)
	res := Result{DaysRemaining: &days}
	switch {
	case days < 0:
		res.Status = StatusExpired
	case days <= ExpiringWindowDays:
		res.Status = StatusExpiringSoon
	default:
		res.Status = StatusActive
	}
	return res
}

// DaysBetween returns the signed number of calendar days from one date to another.
// Each argument contributes its year/month/day in its own location.
func DaysBetween(from, to time.Time) int {
	a := civilUTC(from)
	b := civilUTC(to)
	return int(b.Sub(a).Hours() / 24)
}

// Today returns midnight of now's calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func civilUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
