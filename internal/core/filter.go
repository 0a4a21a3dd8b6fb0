package core

import (
	"strings"
	"time"
)

// FilterMode names a quick date filter.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterYesterday FilterMode = "yesterday"
	FilterWeek      FilterMode = "week"
	FilterMonth     FilterMode = "month"
	FilterYear      FilterMode = "year"
	FilterSpecific  FilterMode = "specific"
)

// ParseFilterMode normalizes a user supplied mode. Unknown values map to
// FilterAll.
func ParseFilterMode(s string) FilterMode {
	switch m := FilterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FilterYesterday, FilterWeek, FilterMonth, FilterYear, FilterSpecific:
		return m
	default:
		return FilterAll
	}
}

// DateFilter selects a date range. Start and End are only read in
// FilterSpecific mode; a zero value means "not supplied".
type DateFilter struct {
	Mode  FilterMode
	Start time.Time
	End   time.Time
}

// Range returns the inclusive bounds the filter selects relative to now,
// and false when the filter does not restrict dates.
func (f DateFilter) Range(now time.Time) (time.Time, time.Time, bool) {
	today := startOfDay(now)
	switch f.Mode {
	case FilterYesterday:
		y := today.AddDate(0, 0, -1)
		return y, endOfDay(y), true
	case FilterWeek:
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		sunday := monday.AddDate(0, 0, 6)
		return monday, endOfDay(sunday), true
	case FilterMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		last := first.AddDate(0, 1, -1)
		return first, endOfDay(last), true
	case FilterYear:
		first := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		last := time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, today.Location())
		return first, endOfDay(last), true
	case FilterSpecific:
		start, end := f.Start, f.End
		switch {
		case start.IsZero() && end.IsZero():
			return time.Time{}, time.Time{}, false
		case start.IsZero():
			start = end
		case end.IsZero():
			end = start
		}
		return startOfDay(start), endOfDay(end), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// FilterByDate returns the records whose parsed date falls inside the
// filter's range, evaluated against now. The result is always a new slice;
// for an unrestricted filter it holds every input record in order.
// Records whose date cannot be parsed never match a bounded range.
func FilterByDate(records []TransactionRecord, f DateFilter, now time.Time) []TransactionRecord {
	start, end, bounded := f.Range(now)
	if !bounded {
		return append(make([]TransactionRecord, 0, len(records)), records...)
	}
	out := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		d, err := ParseRecordDate(r.Date, now.Location())
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByDepartment keeps the records counted towards name, including
// sub-section rows when name is a composite department.
func FilterByDepartment(records []TransactionRecord, catalog Catalog, name string) []TransactionRecord {
	names := []string{name}
	if d, ok := catalog.Lookup(name); ok {
		names = append(names, d.SubSections...)
	}
	out := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		if containsExact(names, r.Department) {
			out = append(out, r)
		}
	}
	return out
}
