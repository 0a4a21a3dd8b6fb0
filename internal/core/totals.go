package core

import "github.com/shopspring/decimal"

// CalculateDepartmentTotals sums the records whose department equals name
// exactly (case-sensitive, untrimmed).
//
// HasData is true only when at least one record matched and the total is
// positive; a department with nothing but zero-valued rows has no data.
func CalculateDepartmentTotals(records []TransactionRecord, name string) DepartmentTotals {
	return sumMatching(records, name)
}

func sumMatching(records []TransactionRecord, names ...string) DepartmentTotals {
	cash, online := decimal.Zero, decimal.Zero
	matched := false
	for _, r := range records {
		if !containsExact(names, r.Department) {
			continue
		}
		matched = true
		cash = cash.Add(r.Cash)
		online = online.Add(r.Online)
	}
	return newTotals(cash, online, matched)
}

func containsExact(names []string, v string) bool {
	for _, n := range names {
		if n == v {
			return true
		}
	}
	return false
}
