package http

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"revdash/internal/core"
)

// DashboardQuery is the parsed filter shared by the dashboard, records and
// export endpoints.
type DashboardQuery struct {
	Filter     core.DateFilter
	Department string
}

// ParseDashboardQuery reads filter, start, end and department. start and
// end accept YYYY-MM-DD or M/D/YYYY; supplying either without a filter
// implies the specific-range mode.
func ParseDashboardQuery(query url.Values, loc *time.Location) (DashboardQuery, error) {
	var q DashboardQuery

	rawMode := strings.TrimSpace(query.Get("filter"))
	q.Filter.Mode = core.ParseFilterMode(rawMode)

	var err error
	if q.Filter.Start, err = parseDateParam(query.Get("start"), loc); err != nil {
		return q, fmt.Errorf("invalid start date: %w", err)
	}
	if q.Filter.End, err = parseDateParam(query.Get("end"), loc); err != nil {
		return q, fmt.Errorf("invalid end date: %w", err)
	}
	if rawMode == "" && (!q.Filter.Start.IsZero() || !q.Filter.End.IsZero()) {
		q.Filter.Mode = core.FilterSpecific
	}
	if q.Filter.Mode == core.FilterSpecific && !q.Filter.Start.IsZero() && !q.Filter.End.IsZero() &&
		q.Filter.End.Before(q.Filter.Start) {
		return q, fmt.Errorf("end date %s is before start date %s",
			q.Filter.End.Format("2006-01-02"), q.Filter.Start.Format("2006-01-02"))
	}

	// Department names are matched exactly, so only control characters are
	// stripped.
	q.Department = sanitizeInput(query.Get("department"))
	return q, nil
}

func parseDateParam(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := core.ParseRecordDate(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor M/D/YYYY", s)
	}
	return t, nil
}

// cacheKey identifies a dashboard view of one snapshot on one calendar day.
func (q DashboardQuery) cacheKey(fetchedAt, now time.Time) string {
	return strings.Join([]string{
		fmt.Sprint(fetchedAt.UnixNano()),
		now.Format("2006-01-02"),
		string(q.Filter.Mode),
		dateKey(q.Filter.Start),
		dateKey(q.Filter.End),
		q.Department,
	}, "|")
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// sanitizeInput removes control characters except tab, newline and
// carriage return. Surrounding spaces are kept.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
