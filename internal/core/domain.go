package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder is returned for string insights that have no data behind them.
const Placeholder = "--"

type (
	// TransactionRecord is one income row as it comes out of the source.
	// Date keeps the source's M/D/YYYY text; use ParseRecordDate to read it.
	TransactionRecord struct {
		Date       string          `json:"date"`
		Department string          `json:"department"`
		Cash       decimal.Decimal `json:"cash"`
		Online     decimal.Decimal `json:"online"`
	}

	// DepartmentTotals is derived on demand for a department and a record subset.
	DepartmentTotals struct {
		Cash    decimal.Decimal `json:"cash"`
		Online  decimal.Decimal `json:"online"`
		Total   decimal.Decimal `json:"total"`
		HasData bool            `json:"hasData"`
	}

	KPIData struct {
		TotalCash         decimal.Decimal `json:"totalCash"`
		TotalOnline       decimal.Decimal `json:"totalOnline"`
		TotalRevenue      decimal.Decimal `json:"totalRevenue"`
		CashPercentage    decimal.Decimal `json:"cashPercentage"`
		OnlinePercentage  decimal.Decimal `json:"onlinePercentage"`
		ActiveDepartments int             `json:"activeDepartments"`
		TotalDepartments  int             `json:"totalDepartments"`
	}

	AnalyticsData struct {
		BestDay              string          `json:"bestDay"`
		BestDayRevenue       decimal.Decimal `json:"bestDayRevenue"`
		TopDepartment        string          `json:"topDepartment"`
		TopDepartmentRevenue decimal.Decimal `json:"topDepartmentRevenue"`
		CashOnlineRatio      string          `json:"cashOnlineRatio"`
		AvgDailyRevenue      decimal.Decimal `json:"avgDailyRevenue"`
		AvgMonthlyRevenue    decimal.Decimal `json:"avgMonthlyRevenue"`
		AvgYearlyRevenue     decimal.Decimal `json:"avgYearlyRevenue"`
	}

	BankAccountRecord struct {
		BankDetails       string          `json:"bankDetails"`
		IFSCCode          string          `json:"ifscCode"`
		UPIIDs            []string        `json:"upiIds"`
		AccountHolderName string          `json:"accountHolderName"`
		MainPurpose       string          `json:"mainPurpose"`
		CurrentBalance    decimal.Decimal `json:"currentBalance"`
		AccountNumber     string          `json:"accountNumber"`
		LastUpdatedDate   string          `json:"lastUpdatedDate,omitempty"`
		LastUpdatedTime   string          `json:"lastUpdatedTime,omitempty"`
	}

	// Snapshot is the record set of one successful fetch. It is replaced
	// wholesale on refresh and never modified after construction.
	Snapshot struct {
		Records      []TransactionRecord
		BankAccounts []BankAccountRecord
		FetchedAt    time.Time
	}
)

// Total returns cash plus online for a single record.
func (r TransactionRecord) Total() decimal.Decimal {
	return r.Cash.Add(r.Online)
}

// NewSnapshot copies the given slices so later changes by the caller
// cannot leak into the snapshot.
func NewSnapshot(records []TransactionRecord, banks []BankAccountRecord, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Records:      append([]TransactionRecord(nil), records...),
		BankAccounts: append([]BankAccountRecord(nil), banks...),
		FetchedAt:    fetchedAt,
	}
}

// RecordsCopy returns a fresh slice over the snapshot records.
func (s *Snapshot) RecordsCopy() []TransactionRecord {
	if s == nil {
		return nil
	}
	return append([]TransactionRecord(nil), s.Records...)
}
