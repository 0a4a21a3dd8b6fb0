package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func rec(date, dept string, cash, online int64) TransactionRecord {
	return TransactionRecord{
		Date:       date,
		Department: dept,
		Cash:       decimal.NewFromInt(cash),
		Online:     decimal.NewFromInt(online),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateDepartmentTotals(t *testing.T) {
	tests := []struct {
		name    string
		records []TransactionRecord
		dept    string
		cash    string
		online  string
		hasData bool
	}{
		{
			name: "basic totals ignore zero rows",
			records: []TransactionRecord{
				rec("1/1/2025", "Kitchen", 100, 50),
				rec("1/2/2025", "Kitchen", 0, 0),
			},
			dept: "Kitchen", cash: "100", online: "50", hasData: true,
		},
		{
			name:    "zero valued rows mean no data",
			records: []TransactionRecord{rec("1/1/2025", "GiftShop", 0, 0)},
			dept:    "GiftShop", cash: "0", online: "0", hasData: false,
		},
		{
			name:    "unknown department",
			records: []TransactionRecord{rec("1/1/2025", "Kitchen", 10, 10)},
			dept:    "Nowhere", cash: "0", online: "0", hasData: false,
		},
		{
			name:    "match is case sensitive",
			records: []TransactionRecord{rec("1/1/2025", "kitchen", 10, 10)},
			dept:    "Kitchen", cash: "0", online: "0", hasData: false,
		},
		{
			name:    "match is not trimmed",
			records: []TransactionRecord{rec("1/1/2025", "Kitchen ", 10, 10)},
			dept:    "Kitchen", cash: "0", online: "0", hasData: false,
		},
		{
			name:    "empty input",
			records: nil,
			dept:    "Kitchen", cash: "0", online: "0", hasData: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDepartmentTotals(tt.records, tt.dept)
			if !got.Cash.Equal(dec(tt.cash)) || !got.Online.Equal(dec(tt.online)) {
				t.Fatalf("cash/online = %s/%s, want %s/%s", got.Cash, got.Online, tt.cash, tt.online)
			}
			if !got.Total.Equal(got.Cash.Add(got.Online)) {
				t.Fatalf("total %s != cash+online", got.Total)
			}
			if got.HasData != tt.hasData {
				t.Fatalf("hasData = %v, want %v", got.HasData, tt.hasData)
			}
		})
	}
}

func TestMainDepartmentTotalsRollsUpSubSections(t *testing.T) {
	records := []TransactionRecord{
		rec("1/1/2025", "Kitchen", 100, 50),
		rec("1/1/2025", "Kitchen Hundi", 20, 0),
		rec("1/2/2025", "Kitchen Seva Office", 5, 7),
		rec("1/2/2025", "Main Hundi", 1000, 0),
	}
	got := DefaultCatalog.MainDepartmentTotals(records, "Kitchen")
	want := CalculateDepartmentTotals(records, "Kitchen").Total.
		Add(CalculateDepartmentTotals(records, "Kitchen Hundi").Total).
		Add(CalculateDepartmentTotals(records, "Kitchen Seva Office").Total)
	if !got.Total.Equal(want) {
		t.Fatalf("rollup total = %s, want %s", got.Total, want)
	}
	if !got.Cash.Equal(dec("125")) || !got.Online.Equal(dec("57")) {
		t.Fatalf("unexpected rollup: %+v", got)
	}
	if !got.HasData {
		t.Fatal("expected hasData")
	}

	flat := DefaultCatalog.MainDepartmentTotals(records, "Main Hundi")
	if !flat.Total.Equal(dec("1000")) {
		t.Fatalf("non composite total = %s", flat.Total)
	}
}

func TestMainDepartmentTotalsOnlySubSectionRows(t *testing.T) {
	records := []TransactionRecord{rec("3/1/2025", "Kitchen Hundi", 40, 0)}
	got := DefaultCatalog.MainDepartmentTotals(records, "Kitchen")
	if !got.HasData || !got.Total.Equal(dec("40")) {
		t.Fatalf("expected sub-section rows to count: %+v", got)
	}
}

func TestCatalogBreakdown(t *testing.T) {
	records := []TransactionRecord{
		rec("1/1/2025", "Kitchen", 10, 0),
		rec("1/1/2025", "Kitchen Hundi", 5, 0),
		rec("1/1/2025", "Parking", 0, 3),
	}
	rows := DefaultCatalog.Breakdown(records)
	if len(rows) != DefaultCatalog.Size() {
		t.Fatalf("rows = %d, want %d", len(rows), DefaultCatalog.Size())
	}
	for i, r := range rows {
		if r.Name != DefaultCatalog[i].Name {
			t.Fatalf("row %d = %q, want catalog order", i, r.Name)
		}
	}
	kitchen := rows[1]
	if !kitchen.Composite || len(kitchen.SubSections) != 2 {
		t.Fatalf("kitchen row: %+v", kitchen)
	}
	if !kitchen.Own.Total.Equal(dec("10")) || !kitchen.Totals.Total.Equal(dec("15")) {
		t.Fatalf("kitchen own/total = %s/%s", kitchen.Own.Total, kitchen.Totals.Total)
	}
	if kitchen.SubSections[0].Name != "Kitchen Hundi" || !kitchen.SubSections[0].Totals.Total.Equal(dec("5")) {
		t.Fatalf("kitchen sub-section: %+v", kitchen.SubSections[0])
	}
}

func TestCatalogIsValid(t *testing.T) {
	if !DefaultCatalog.IsValid("Kitchen Seva Office") {
		t.Fatal("sub-section names are valid department values")
	}
	if DefaultCatalog.IsValid("kitchen") {
		t.Fatal("lookup must be case sensitive")
	}
	if !DefaultCatalog.IsComposite("Kitchen") || DefaultCatalog.IsComposite("Parking") {
		t.Fatal("unexpected composite flags")
	}
}

func TestCalculatorsAreIdempotent(t *testing.T) {
	records := []TransactionRecord{
		rec("1/1/2025", "Kitchen", 100, 50),
		rec("1/2/2025", "Main Hundi", 30, 70),
	}
	a := CalculateKPIs(records, DefaultCatalog)
	b := CalculateKPIs(records, DefaultCatalog)
	if !a.TotalRevenue.Equal(b.TotalRevenue) || a.ActiveDepartments != b.ActiveDepartments {
		t.Fatalf("kpis differ: %+v vs %+v", a, b)
	}
	x := CalculateAnalytics(records, nil)
	y := CalculateAnalytics(records, nil)
	if x.BestDay != y.BestDay || x.TopDepartment != y.TopDepartment || x.CashOnlineRatio != y.CashOnlineRatio {
		t.Fatalf("analytics differ: %+v vs %+v", x, y)
	}
}
