package ingest

import (
	"fmt"
	"strings"

	"revdash/internal/core"
)

const (
	FieldBankDetails   = "bankDetails"
	FieldIFSC          = "ifscCode"
	FieldUPI           = "upiIds"
	FieldHolder        = "accountHolderName"
	FieldPurpose       = "mainPurpose"
	FieldBalance       = "currentBalance"
	FieldAccountNumber = "accountNumber"
	FieldUpdatedDate   = "lastUpdatedDate"
	FieldUpdatedTime   = "lastUpdatedTime"
)

// Order matters: "bank" would otherwise swallow "Bank Balance" and "date"
// would swallow "Last Updated Date Time" style headers.
var bankFields = []field{
	{name: FieldIFSC, synonyms: []string{"ifsc"}, position: 1},
	{name: FieldUPI, synonyms: []string{"upi", "vpa"}, position: 2},
	{name: FieldHolder, synonyms: []string{"holder", "name"}, position: 3},
	{name: FieldPurpose, synonyms: []string{"purpose", "usage"}, position: 4},
	{name: FieldBalance, synonyms: []string{"balance", "amount"}, position: 5},
	{name: FieldAccountNumber, synonyms: []string{"account number", "account no", "acc no", "a/c"}, position: 6},
	{name: FieldUpdatedTime, synonyms: []string{"time"}, position: 8},
	{name: FieldUpdatedDate, synonyms: []string{"date", "updated"}, position: 7},
	{name: FieldBankDetails, synonyms: []string{"bank", "details", "branch"}, position: 0},
}

// BankColumns maps bank-account fields to column indexes, -1 when absent.
type BankColumns struct {
	Index      map[string]int
	Unresolved []string
	Positional bool
	HeaderRow  bool
}

// Resolved reports whether every field was found by header name.
func (c BankColumns) Resolved() bool { return len(c.Unresolved) == 0 }

func (c BankColumns) get(row []string, name string) string {
	idx, ok := c.Index[name]
	if !ok {
		return ""
	}
	return safeGet(row, idx)
}

// ResolveBankHeaders matches the first row of a bank-accounts sheet. With
// no matching header the columns are read in record order and the first
// row is data when its balance cell holds a digit.
func ResolveBankHeaders(header []string) BankColumns {
	res := resolve(header, bankFields)
	cols := BankColumns{
		Index:      res.index,
		Unresolved: res.unresolved,
		Positional: res.matched == 0,
		HeaderRow:  true,
	}
	if cols.Positional && strings.ContainsAny(cols.get(header, FieldBalance), "0123456789") {
		cols.HeaderRow = false
	}
	return cols
}

// BankBatch is the result of parsing a bank-accounts sheet.
type BankBatch struct {
	Accounts []core.BankAccountRecord
	Columns  BankColumns
	Dropped  int
}

// ParseBankAccounts reads bank-account rows. Rows without bank details are
// dropped. Balances are sanitized and default to zero; negative balances
// are kept.
func ParseBankAccounts(rows [][]string) (BankBatch, error) {
	if len(rows) == 0 {
		return BankBatch{}, nil
	}
	cols := ResolveBankHeaders(rows[0])
	batch := BankBatch{Columns: cols}
	if cols.Index[FieldBankDetails] < 0 {
		return batch, fmt.Errorf("%w: bank details", ErrUnresolvedColumns)
	}

	data := rows
	if cols.HeaderRow {
		data = rows[1:]
	}
	for _, row := range data {
		if blankRow(row) {
			continue
		}
		details := cols.get(row, FieldBankDetails)
		if details == "" {
			batch.Dropped++
			continue
		}
		batch.Accounts = append(batch.Accounts, core.BankAccountRecord{
			BankDetails:       details,
			IFSCCode:          cols.get(row, FieldIFSC),
			UPIIDs:            SplitUPIIDs(cols.get(row, FieldUPI)),
			AccountHolderName: cols.get(row, FieldHolder),
			MainPurpose:       cols.get(row, FieldPurpose),
			CurrentBalance:    core.SanitizeAmount(cols.get(row, FieldBalance)),
			AccountNumber:     cols.get(row, FieldAccountNumber),
			LastUpdatedDate:   cols.get(row, FieldUpdatedDate),
			LastUpdatedTime:   cols.get(row, FieldUpdatedTime),
		})
	}
	return batch, nil
}

// SplitUPIIDs splits a cell listing several UPI ids separated by commas,
// semicolons or line breaks.
func SplitUPIIDs(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
