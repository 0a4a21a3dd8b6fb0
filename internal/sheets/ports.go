package sheets

import (
	"context"

	"revdash/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordSource returns the full ordered list of income records.
	RecordSource interface {
		FetchRecords(ctx context.Context) ([]core.TransactionRecord, error)
	}

	// BankAccountSource returns the bank-account sheet. Sources without one
	// return an empty slice and no error.
	BankAccountSource interface {
		FetchBankAccounts(ctx context.Context) ([]core.BankAccountRecord, error)
	}

	// ConnectionTester checks that the source is reachable with the
	// configured credentials without reading the records.
	ConnectionTester interface {
		TestConnection(ctx context.Context) error
	}

	// Source is everything the sync manager needs from a backend.
	Source interface {
		RecordSource
		BankAccountSource
		ConnectionTester
	}
)
