package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

// instantLayouts are tried in order for inputs that carry a time component.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Policy holds the booking rules shared by the calculator and the resolver.
type Policy struct {
	MinimumStay      time.Duration
	TaxRate          decimal.Decimal
	TaxRoundPlaces   int32
	MaxDiscountRatio decimal.Decimal
	EarlyFloorRatio  decimal.Decimal
	// Location interprets timezone-naive inputs and decides what "today" is.
	Location *time.Location
}

// DefaultPolicy returns the house rules: 12h minimum stay, 18% tax rounded to
// whole currency units, discounts capped at half the base amount.
func DefaultPolicy() Policy {
	return Policy{
		MinimumStay:      12 * time.Hour,
		TaxRate:          decimal.RequireFromString("0.18"),
		TaxRoundPlaces:   0,
		MaxDiscountRatio: decimal.RequireFromString("0.5"),
		EarlyFloorRatio:  decimal.RequireFromString("0.5"),
		Location:         time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

type DateErrorCode string

const (
	DateErrorMalformed        DateErrorCode = "MALFORMED_DATE"
	DateErrorPastCheckIn      DateErrorCode = "CHECK_IN_IN_PAST"
	DateErrorInvertedRange    DateErrorCode = "CHECK_OUT_NOT_AFTER_CHECK_IN"
	DateErrorBelowMinimumStay DateErrorCode = "BELOW_MINIMUM_STAY"
)

// DateError reports a malformed or policy-violating interval.
type DateError struct {
	Code    DateErrorCode
	Message string
}

func (e *DateError) Error() string {
	return e.Message
}

// ValidateInterval checks a requested stay against the house rules.
func (p Policy) ValidateInterval(checkIn, checkOut, now time.Time) error {
	today := TruncateToDay(now.In(checkIn.Location()))
	if checkIn.Before(today) {
		return &DateError{Code: DateErrorPastCheckIn, Message: "check-in date cannot be in the past"}
	}
	if !checkOut.After(checkIn) {
		return &DateError{Code: DateErrorInvertedRange, Message: "check-out must be after check-in"}
	}
	if checkOut.Sub(checkIn) < p.MinimumStay {
		return &DateError{
			Code:    DateErrorBelowMinimumStay,
			Message: fmt.Sprintf("minimum stay is %s", formatHours(p.MinimumStay)),
		}
	}
	return nil
}

// NormalizeBoundary parses a check-in (end=false) or check-out (end=true)
// value. Date-only input is pinned to 00:00:00.000 or 23:59:59.999 of that
// day; dateOnly reports which form was given.
func (p Policy) NormalizeBoundary(raw string, end bool) (t time.Time, dateOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	loc := p.location()

	if len(raw) == len(dateLayout) {
		d, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return time.Time{}, false, &DateError{Code: DateErrorMalformed, Message: fmt.Sprintf("invalid date %q, expected yyyy-mm-dd", raw)}
		}
		if end {
			return EndOfDay(d), true, nil
		}
		return d, true, nil
	}

	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), false, nil
		}
	}
	return time.Time{}, false, &DateError{Code: DateErrorMalformed, Message: fmt.Sprintf("invalid date %q", raw)}
}

// TruncateToDay returns midnight of t's calendar day in t's location.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CalendarDay maps t to midnight UTC of its wall-clock date so days can be
// compared across locations.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BillableEnd is the instant a stay is billed up to. A date-only check-out
// frees the room that morning, so billing stops at the start of that day.
func BillableEnd(checkOut time.Time, dateOnly bool) time.Time {
	if dateOnly {
		return TruncateToDay(checkOut)
	}
	return checkOut
}

// EndOfDay returns 23:59:59.999 of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// BillableDays is max(1, ceil(hours/24)) over [from, to).
func BillableDays(from, to time.Time) int64 {
	elapsed := to.Sub(from)
	if elapsed <= 0 {
		return 1
	}
	days := int64(elapsed / day)
	if elapsed%day > 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%g hours", d.Hours())
}
