package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// orderedSums accumulates totals per key and remembers first-seen order.
type orderedSums struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newOrderedSums() *orderedSums {
	return &orderedSums{sums: make(map[string]decimal.Decimal)}
}

func (o *orderedSums) add(key string, v decimal.Decimal) {
	cur, ok := o.sums[key]
	if !ok {
		o.order = append(o.order, key)
	}
	o.sums[key] = cur.Add(v)
}

// max returns the key with the largest sum. Ties keep the key seen first.
func (o *orderedSums) max() (string, decimal.Decimal, bool) {
	var (
		bestKey string
		bestSum decimal.Decimal
	)
	for i, k := range o.order {
		if s := o.sums[k]; i == 0 || s.GreaterThan(bestSum) {
			bestKey, bestSum = k, s
		}
	}
	return bestKey, bestSum, len(o.order) > 0
}

// CalculateAnalytics derives the insight figures for a record subset.
//
// Best day groups by the raw date string and top department by the raw
// department string. Averages divide total revenue by the number of
// distinct calendar days, months and years present. Dates that do not
// parse count as their own distinct period.
func CalculateAnalytics(records []TransactionRecord, loc *time.Location) AnalyticsData {
	out := AnalyticsData{
		BestDay:              Placeholder,
		BestDayRevenue:       decimal.Zero,
		TopDepartment:        Placeholder,
		TopDepartmentRevenue: decimal.Zero,
		CashOnlineRatio:      Placeholder,
		AvgDailyRevenue:      decimal.Zero,
		AvgMonthlyRevenue:    decimal.Zero,
		AvgYearlyRevenue:     decimal.Zero,
	}
	if len(records) == 0 {
		return out
	}

	byDate := newOrderedSums()
	byDept := newOrderedSums()
	days := make(map[string]struct{})
	months := make(map[string]struct{})
	years := make(map[string]struct{})
	cash, online := decimal.Zero, decimal.Zero

	for _, r := range records {
		total := r.Total()
		byDate.add(r.Date, total)
		byDept.add(r.Department, total)
		cash = cash.Add(r.Cash)
		online = online.Add(r.Online)

		dayKey, monthKey, yearKey := periodKeys(r.Date, loc)
		days[dayKey] = struct{}{}
		months[monthKey] = struct{}{}
		years[yearKey] = struct{}{}
	}

	if k, s, ok := byDate.max(); ok {
		out.BestDay, out.BestDayRevenue = k, s
	}
	if k, s, ok := byDept.max(); ok {
		out.TopDepartment, out.TopDepartmentRevenue = k, s
	}
	out.CashOnlineRatio = FormatCashOnlineRatio(cash, online)

	revenue := cash.Add(online)
	out.AvgDailyRevenue = average(revenue, len(days))
	out.AvgMonthlyRevenue = average(revenue, len(months))
	out.AvgYearlyRevenue = average(revenue, len(years))
	return out
}

// FormatCashOnlineRatio renders cash:online as "X.XX:1", or the
// placeholder when there is no online revenue.
func FormatCashOnlineRatio(cash, online decimal.Decimal) string {
	if online.IsZero() {
		return Placeholder
	}
	return cash.Div(online).StringFixed(2) + ":1"
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func periodKeys(date string, loc *time.Location) (day, month, year string) {
	t, err := ParseRecordDate(date, loc)
	if err != nil {
		raw := "raw:" + date
		return raw, raw, raw
	}
	return t.Format("2006-01-02"), fmt.Sprintf("%d-%02d", t.Year(), int(t.Month())), fmt.Sprint(t.Year())
}
