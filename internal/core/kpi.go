package core

import "github.com/shopspring/decimal"

// CalculateKPIs summarizes a record subset regardless of department.
// TotalDepartments is the catalog size and does not depend on records.
func CalculateKPIs(records []TransactionRecord, catalog Catalog) KPIData {
	cash, online := decimal.Zero, decimal.Zero
	seen := make(map[string]struct{})
	for _, r := range records {
		cash = cash.Add(r.Cash)
		online = online.Add(r.Online)
		seen[r.Department] = struct{}{}
	}
	revenue := cash.Add(online)
	return KPIData{
		TotalCash:         cash,
		TotalOnline:       online,
		TotalRevenue:      revenue,
		CashPercentage:    percentOf(cash, revenue),
		OnlinePercentage:  percentOf(online, revenue),
		ActiveDepartments: len(seen),
		TotalDepartments:  catalog.Size(),
	}
}
