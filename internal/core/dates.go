package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid record date")

// ParseRecordDate reads a record date in US slash order (month/day/year)
// and returns local midnight of that day.
//
// Out-of-range day or month values roll over into the adjacent period
// ("2/30/2025" is March 2nd), the same normalization a JavaScript Date
// constructor applies. ISO dates are rejected rather than silently
// reinterpreted.
func ParseRecordDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	month, day, year := nums[0], nums[1], nums[2]
	// Two-digit years follow the usual browser pivot: 00-49 is 20xx.
	switch {
	case year < 50:
		year += 2000
	case year < 100:
		year += 1900
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), nil
}

// FormatRecordDate renders t in the source's M/D/YYYY form.
func FormatRecordDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}

// startOfDay zeroes the clock part of t in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last representable instant of t's day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_999_999, t.Location())
}
