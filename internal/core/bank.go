package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBankExclusions lists bank-name keywords whose accounts are left
// out of the balance total.
var DefaultBankExclusions = []string{"Kotak", "Yes Bank", "IDBI"}

// BankSummary aggregates the bank-account sheet.
type BankSummary struct {
	TotalBalance  decimal.Decimal     `json:"totalBalance"`
	IncludedCount int                 `json:"includedCount"`
	ExcludedCount int                 `json:"excludedCount"`
	Accounts      []BankAccountRecord `json:"accounts"`
}

// IsExcludedAccount reports whether any keyword occurs, ignoring case, in
// the account's bank details, purpose or holder name.
func IsExcludedAccount(a BankAccountRecord, keywords []string) bool {
	fields := []string{
		strings.ToLower(a.BankDetails),
		strings.ToLower(a.MainPurpose),
		strings.ToLower(a.AccountHolderName),
	}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		for _, f := range fields {
			if strings.Contains(f, k) {
				return true
			}
		}
	}
	return false
}

// SummarizeBankAccounts sums current balances over the accounts that are
// not excluded. Accounts keeps every input account in order.
func SummarizeBankAccounts(accounts []BankAccountRecord, exclusions []string) BankSummary {
	s := BankSummary{
		TotalBalance: decimal.Zero,
		Accounts:     append([]BankAccountRecord(nil), accounts...),
	}
	for _, a := range accounts {
		if IsExcludedAccount(a, exclusions) {
			s.ExcludedCount++
			continue
		}
		s.IncludedCount++
		s.TotalBalance = s.TotalBalance.Add(a.CurrentBalance)
	}
	return s
}
