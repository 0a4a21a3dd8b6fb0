package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// SeriesPoint is one x-axis value of a chart with its stacked amounts.
	SeriesPoint struct {
		Label  string          `json:"label"`
		Cash   decimal.Decimal `json:"cash"`
		Online decimal.Decimal `json:"online"`
		Total  decimal.Decimal `json:"total"`
	}
)

// DailySeries returns one point per calendar day in ascending date order.
// Records with unparseable dates are left out.
func DailySeries(records []TransactionRecord, loc *time.Location) []SeriesPoint {
	type acc struct {
		day          time.Time
		cash, online decimal.Decimal
	}
	byDay := make(map[time.Time]*acc)
	for _, r := range records {
		d, err := ParseRecordDate(r.Date, loc)
		if err != nil {
			continue
		}
		a, ok := byDay[d]
		if !ok {
			a = &acc{day: d}
			byDay[d] = a
		}
		a.cash = a.cash.Add(r.Cash)
		a.online = a.online.Add(r.Online)
	}
	days := make([]*acc, 0, len(byDay))
	for _, a := range byDay {
		days = append(days, a)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })

	out := make([]SeriesPoint, 0, len(days))
	for _, a := range days {
		out = append(out, SeriesPoint{
			Label:  FormatRecordDate(a.day),
			Cash:   a.cash,
			Online: a.online,
			Total:  a.cash.Add(a.online),
		})
	}
	return out
}

// DepartmentSeries returns rolled-up totals per catalog department in
// catalog order, skipping departments without data.
func DepartmentSeries(records []TransactionRecord, catalog Catalog) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(catalog))
	for _, d := range catalog {
		t := catalog.MainDepartmentTotals(records, d.Name)
		if !t.HasData {
			continue
		}
		out = append(out, SeriesPoint{Label: d.Name, Cash: t.Cash, Online: t.Online, Total: t.Total})
	}
	return out
}
