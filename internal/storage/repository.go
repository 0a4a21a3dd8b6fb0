package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revdash/internal/core"
	"revdash/internal/ingest"
	ports "revdash/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.Source = (*SQLiteRepository)(nil)

// SQLiteRepository reads income records and bank accounts from a SQLite
// database that another system keeps up to date.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchRecords returns every transaction row in insertion order. Rows
// without a date or department are skipped; amounts are sanitized the same
// way as spreadsheet cells.
func (r *SQLiteRepository) FetchRecords(ctx context.Context) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.TransactionRecord, 0, len(rows))
	dropped := 0
	for _, t := range rows {
		date := strings.TrimSpace(t.Date)
		dept := strings.TrimSpace(t.Department)
		if date == "" || dept == "" {
			dropped++
			continue
		}
		out = append(out, core.TransactionRecord{
			Date:       date,
			Department: dept,
			Cash:       core.NonNegative(core.SanitizeAmount(t.Cash)),
			Online:     core.NonNegative(core.SanitizeAmount(t.Online)),
		})
	}
	if dropped > 0 {
		slog.DebugContext(ctx, "Dropped incomplete transaction rows", "count", dropped)
	}
	return out, nil
}

// FetchBankAccounts returns every bank account in insertion order.
func (r *SQLiteRepository) FetchBankAccounts(ctx context.Context) ([]core.BankAccountRecord, error) {
	rows, err := r.queries.ListBankAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	out := make([]core.BankAccountRecord, 0, len(rows))
	for _, b := range rows {
		if strings.TrimSpace(b.BankDetails) == "" {
			continue
		}
		out = append(out, core.BankAccountRecord{
			BankDetails:       b.BankDetails,
			IFSCCode:          b.IfscCode,
			UPIIDs:            ingest.SplitUPIIDs(b.UpiIds),
			AccountHolderName: b.AccountHolderName,
			MainPurpose:       b.MainPurpose,
			CurrentBalance:    core.SanitizeAmount(b.CurrentBalance),
			AccountNumber:     b.AccountNumber,
			LastUpdatedDate:   b.LastUpdatedDate,
			LastUpdatedTime:   b.LastUpdatedTime,
		})
	}
	return out, nil
}

// TestConnection checks that the database answers and the schema exists.
func (r *SQLiteRepository) TestConnection(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	slog.DebugContext(ctx, "SQLite source reachable", "transactions", n)
	return nil
}

// Import inserts records and bank accounts in one transaction. It is used
// to seed databases for local runs and tests.
func (r *SQLiteRepository) Import(ctx context.Context, records []core.TransactionRecord, banks []core.BankAccountRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, rec := range records {
		if _, err := q.CreateTransaction(ctx, CreateTransactionParams{
			Date:       rec.Date,
			Department: rec.Department,
			Cash:       rec.Cash.String(),
			Online:     rec.Online.String(),
		}); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}
	for _, b := range banks {
		if _, err := q.CreateBankAccount(ctx, CreateBankAccountParams{
			BankDetails:       b.BankDetails,
			IfscCode:          b.IFSCCode,
			UpiIds:            strings.Join(b.UPIIDs, ","),
			AccountHolderName: b.AccountHolderName,
			MainPurpose:       b.MainPurpose,
			CurrentBalance:    b.CurrentBalance.String(),
			AccountNumber:     b.AccountNumber,
			LastUpdatedDate:   b.LastUpdatedDate,
			LastUpdatedTime:   b.LastUpdatedTime,
		}); err != nil {
			return fmt.Errorf("insert bank account: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Imported records into SQLite", "records", len(records), "bank_accounts", len(banks))
	return nil
}
